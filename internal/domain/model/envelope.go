package model

// Kind selects which message the envelope builder produces.
type Kind int

// Message kinds.
const (
	KindUsageReport Kind = iota + 1
	KindAcknowledgment
	KindObservation
)

func (k Kind) String() string {
	switch k {
	case KindUsageReport:
		return "usage_report"
	case KindAcknowledgment:
		return "acknowledgment"
	case KindObservation:
		return "observation"
	default:
		return "unknown"
	}
}

// HeaderTimeLayout formats msgDate/time. Dates use DateLayout.
const HeaderTimeLayout = "15:04:05.0Z"

// Header identifies a message.
type Header struct {
	ID     string
	Date   string
	Time   string
	Status string
	Type   string
}

// Parties holds the single sender and single receiver of a message.
type Parties struct {
	Sender   string
	Receiver string
}

// Swapped returns the parties of an answer: the receiver becomes the sender.
func (p Parties) Swapped() Parties {
	return Parties{Sender: p.Receiver, Receiver: p.Sender}
}

// Trailer describes context, parties, remarks and classification.
type Trailer struct {
	Context        string
	Parties        Parties
	Remarks        []string
	Classification string
}

// Content is the message payload between header and trailer.
type Content interface {
	Kind() Kind
}

// UsageContent carries the product and its measurement points.
type UsageContent struct {
	Product SerialProduct
	Points  []MeasurementPoint
}

// Kind implements Content.
func (UsageContent) Kind() Kind { return KindUsageReport }

// AckContent is the empty acknowledgment marker.
type AckContent struct{}

// Kind implements Content.
func (AckContent) Kind() Kind { return KindAcknowledgment }

// ObsContent is the empty observation marker.
type ObsContent struct{}

// Kind implements Content.
func (ObsContent) Kind() Kind { return KindObservation }

// Envelope is a complete message: header, content and trailer. The uid is
// always derived from Header.ID.
type Envelope struct {
	UID     string
	Header  Header
	Content Content
	Trailer Trailer
}

// Metadata is the typed input of the envelope builder.
type Metadata struct {
	ID             string
	Date           string
	Time           string
	Status         string
	Type           string
	Context        string
	Sender         string
	Receiver       string
	Remarks        []string
	Classification string
}
