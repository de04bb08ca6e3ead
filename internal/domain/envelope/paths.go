// Package envelope builds, serializes and reads S5000F isfDataset messages.
//
// The builder assembles header, content and trailer from a typed metadata
// record and refuses to produce a structurally incomplete envelope. The
// serializer renders an envelope to UTF-8 XML without indentation. The
// reader extracts the header and trailer of an inbound document through
// fixed relative paths and reports every missing field at once.
package envelope

// Relative paths from the isfDataset root element.
const (
	PathUID            = "@uid"
	PathID             = "msgId/id"
	PathType           = "msgType/code"
	PathDate           = "msgDate/date"
	PathTime           = "msgDate/time"
	PathStatus         = "msgStatus/state"
	PathContext        = "msgContext/context/projRef/projId/id"
	PathClassification = "secs/sec/secClassDefRef/secClass/name"
	PathRemark         = "rmks/rmk/text/descr"
	PathParty          = "msgPty"
	PathPartyRole      = "ptyType/code"
	PathPartyID        = "party/persRef/persId/id"
	PathSender         = "msgPty[ptyType/code='S']/" + PathPartyID
	PathReceiver       = "msgPty[ptyType/code='R']/" + PathPartyID
	PathContent        = "content"
)

// Content element names.
const (
	TagUsage        = "uc50902"
	TagAcknowledged = "msgAck"
	TagObservation  = "msgObs"
)
