package envelope

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/types"
)

const entityMarker = "<!ENTITY"

// ContainsEntity reports whether raw carries an entity declaration. Such
// documents are trash and are never handed to the XML parser.
func ContainsEntity(raw []byte) bool {
	return bytes.Contains(raw, []byte(entityMarker))
}

// Result is the outcome of reading one inbound document. Envelope holds
// whatever could be extracted, even when Failure is set.
type Result struct {
	Envelope model.Envelope
	Failure  *ParseFailure
}

// OK reports whether every mandatory field was found.
func (r Result) OK() bool { return r.Failure == nil }

// Reader extracts header, content and trailer of inbound messages.
type Reader struct{}

// NewReader constructs a Reader.
func NewReader() *Reader { return &Reader{} }

// Read parses raw. The only error is ErrTrashInput; a malformed or
// incomplete document is reported through Result.Failure.
func (r *Reader) Read(raw []byte) (Result, error) {
	if ContainsEntity(raw) {
		return Result{}, ErrTrashInput
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return failed(model.Envelope{}, []Problem{{Path: "/", Reason: "document is not well-formed: " + err.Error()}}), nil
	}
	root := doc.Root()
	if root == nil {
		return failed(model.Envelope{}, []Problem{{Path: "/", Reason: "document has no root element"}}), nil
	}

	var pf ParseFailure
	if root.Tag != types.RootTag {
		pf.Add("/", fmt.Sprintf("unexpected root element %q", root.Tag))
	}
	if ns := root.NamespaceURI(); ns != types.Namespace {
		pf.Add("/", fmt.Sprintf("unexpected namespace %q", ns))
	}

	var env model.Envelope
	env.UID = strings.TrimSpace(root.SelectAttrValue("uid", ""))
	if env.UID == "" {
		pf.Add(PathUID, "mandatory attribute is missing")
	}

	env.Header.ID = text(root, PathID)
	env.Header.Type = mandatory(root, PathType, &pf)
	env.Header.Date = mandatory(root, PathDate, &pf)
	env.Header.Time = mandatory(root, PathTime, &pf)
	env.Header.Status = mandatory(root, PathStatus, &pf)
	env.Trailer.Context = mandatory(root, PathContext, &pf)
	env.Trailer.Parties = readParties(root, &pf)
	env.Trailer.Classification = mandatory(root, PathClassification, &pf)
	for _, el := range root.FindElements(PathRemark) {
		if s := strings.TrimSpace(el.Text()); s != "" {
			env.Trailer.Remarks = append(env.Trailer.Remarks, s)
		}
	}
	env.Content = readContent(root)

	if len(pf.Problems) > 0 {
		return failed(env, pf.Problems), nil
	}
	return Result{Envelope: env}, nil
}

func failed(env model.Envelope, problems []Problem) Result {
	return Result{Envelope: env, Failure: &ParseFailure{Problems: problems}}
}

func text(el *etree.Element, path string) string {
	found := el.FindElement(path)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.Text())
}

func mandatory(root *etree.Element, path string, pf *ParseFailure) string {
	found := root.FindElement(path)
	if found == nil {
		pf.Add(path, "mandatory element is missing")
		return ""
	}
	v := strings.TrimSpace(found.Text())
	if v == "" {
		pf.Add(path, "mandatory element is empty")
	}
	return v
}

// readParties requires exactly one sender and one receiver. The party id
// is the first id below party, so organisation references are accepted as
// well as person references.
func readParties(root *etree.Element, pf *ParseFailure) model.Parties {
	ids := map[types.Role][]string{}
	for i, pty := range root.FindElements(PathParty) {
		at := fmt.Sprintf("%s[%d]", PathParty, i+1)
		role := text(pty, PathPartyRole)
		if role == "" {
			pf.Add(at+"/"+PathPartyRole, "party role is missing")
			continue
		}
		id := text(pty, "party//id")
		if id == "" {
			pf.Add(at+"/"+PathPartyID, "party id is missing")
			continue
		}
		ids[types.Role(role)] = append(ids[types.Role(role)], id)
	}

	pick := func(role types.Role, path, name string) string {
		switch n := len(ids[role]); n {
		case 0:
			pf.Add(path, "no "+name+" party")
			return ""
		case 1:
			return ids[role][0]
		default:
			pf.Add(path, fmt.Sprintf("%d %s parties, expected one", n, name))
			return ids[role][0]
		}
	}
	return model.Parties{
		Sender:   pick(types.RoleSender, PathSender, "sender"),
		Receiver: pick(types.RoleReceiver, PathReceiver, "receiver"),
	}
}

func readContent(root *etree.Element) model.Content {
	if root.FindElement(TagAcknowledged) != nil {
		return model.AckContent{}
	}
	if root.FindElement(TagObservation) != nil {
		return model.ObsContent{}
	}
	spv := root.FindElement(TagUsage + "/serialPV")
	if spv == nil {
		return nil
	}
	u := model.UsageContent{
		Product: model.SerialProduct{
			UID:       spv.SelectAttrValue("uid", ""),
			ProductID: text(spv, "prodId/id"),
			VariantID: text(spv, "prodVarId/id"),
			SerialID:  text(spv, "serPVId/id"),
		},
	}
	for _, el := range spv.FindElements("mpoints/mPoint") {
		mp := model.MeasurementPoint{
			UID:  el.SelectAttrValue("uid", ""),
			Name: text(el, "mPointId/id"),
		}
		for _, val := range el.FindElements("mPointVal") {
			mp.Values = append(mp.Values, model.MeasurementValue{
				Date:          text(val, "recDate/date"),
				Time:          text(val, "recDate/time"),
				Determination: text(val, "vdtm"),
				Unit:          text(val, "unit"),
				Value:         text(val, "value"),
			})
		}
		u.Points = append(u.Points, mp)
	}
	return u
}
