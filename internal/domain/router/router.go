// Package router decides how an inbound message is answered.
//
// A readable message is acknowledged, an unreadable one is answered with an
// observation listing every problem. Both answers swap the inbound parties:
// whoever received the inbound message sends the answer.
package router

import (
	"context"
	"strings"
	"time"

	"github.com/okian/trekhums/internal/domain/envelope"
	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/types"
)

// State is the lifecycle position of an inbound message.
type State int

// Inbound lifecycle.
const (
	StateReceived State = iota
	StateEntityRejected
	StateParseFailed
	StateParseSucceeded
	StateAnswered
)

func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateEntityRejected:
		return "entity_rejected"
	case StateParseFailed:
		return "parse_failed"
	case StateParseSucceeded:
		return "parse_succeeded"
	case StateAnswered:
		return "answered"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateEntityRejected || s == StateAnswered
}

// RemarkSeparator joins the lines of an observation remark.
const RemarkSeparator = "\n"

// Remark texts of answers.
const (
	ObservationHeading = "Message could not be processed."
	AckRemarkPrefix    = "Acknowledgment of message "
)

// Router builds the answer to a read result.
type Router struct {
	builder        *envelope.Builder
	identity       string
	counterpart    string
	project        string
	classification string
	now            func() time.Time
}

// New constructs a Router.
func New(opts ...Option) *Router {
	r := &Router{
		builder:        envelope.NewBuilder(),
		classification: types.DefaultClassification,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Classify returns the state a read result moves the message to.
func Classify(res envelope.Result) State {
	if res.OK() {
		return StateParseSucceeded
	}
	return StateParseFailed
}

// Route builds the ACK or OBS answer to res. The returned state is the one
// reached before answering; once the answer is written the message is
// StateAnswered.
func (r *Router) Route(ctx context.Context, res envelope.Result) (*model.Envelope, State, error) {
	state := Classify(res)
	in := res.Envelope
	now := r.now().UTC()

	md := model.Metadata{
		Date:   now.Format(model.DateLayout),
		Time:   now.Format(model.HeaderTimeLayout),
		Status: types.StatusFinal,
	}

	if state == StateParseSucceeded {
		p := in.Trailer.Parties.Swapped()
		md.ID = "Acknowledgment of " + in.UID
		md.Type = types.TypeAcknowledgment
		md.Context = in.Trailer.Context
		md.Sender = p.Sender
		md.Receiver = p.Receiver
		md.Classification = in.Trailer.Classification
		md.Remarks = []string{AckRemarkPrefix + in.UID}
		env, err := r.builder.Build(ctx, model.KindAcknowledgment, md, model.AckContent{})
		return env, state, err
	}

	p := r.answerParties(in.Trailer.Parties)
	md.ID = "Observation of " + r.uidOrUnknown(in.UID)
	md.Type = types.TypeObservation
	md.Context = firstNonEmpty(in.Trailer.Context, r.project)
	md.Sender = p.Sender
	md.Receiver = p.Receiver
	md.Classification = r.classification
	md.Remarks = []string{ObservationRemark(res.Failure)}
	env, err := r.builder.Build(ctx, model.KindObservation, md, model.ObsContent{})
	return env, state, err
}

// ObservationRemark renders every problem on its own line below a heading.
func ObservationRemark(f *envelope.ParseFailure) string {
	lines := []string{ObservationHeading}
	if f != nil {
		for _, p := range f.Problems {
			lines = append(lines, p.String())
		}
	}
	return strings.Join(lines, RemarkSeparator)
}

// answerParties swaps the inbound parties. A side that could not be read
// falls back to this system's identity (as sender) or its configured
// counterpart (as receiver).
func (r *Router) answerParties(in model.Parties) model.Parties {
	p := in.Swapped()
	p.Sender = firstNonEmpty(p.Sender, r.identity)
	p.Receiver = firstNonEmpty(p.Receiver, r.counterpart)
	return p
}

func (r *Router) uidOrUnknown(uid string) string {
	if uid == "" {
		return "unidentified message"
	}
	return uid
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
