package envelope

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/types"
)

// MarshalOption configures serialization.
type MarshalOption func(*marshalConfig)

type marshalConfig struct {
	schemaLocation string
}

// WithSchemaLocation sets the schema file named in xsi:schemaLocation.
func WithSchemaLocation(loc string) MarshalOption {
	return func(c *marshalConfig) {
		if loc != "" {
			c.schemaLocation = loc
		}
	}
}

// Marshal renders env as a UTF-8 XML document with declaration and no
// indentation.
func Marshal(env *model.Envelope, opts ...MarshalOption) ([]byte, error) {
	if env == nil || env.Content == nil {
		return nil, ErrNoContent
	}
	cfg := marshalConfig{schemaLocation: types.DefaultSchema}
	for _, opt := range opts {
		opt(&cfg)
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	root := doc.CreateElement(types.NamespacePrefix + ":" + types.RootTag)
	root.CreateAttr("xmlns:"+types.NamespacePrefix, types.Namespace)
	root.CreateAttr("xmlns:xsi", types.XSINamespace)
	root.CreateAttr("crud", types.CrudInsert)
	root.CreateAttr("uid", env.UID)
	root.CreateAttr("xsi:schemaLocation", types.Namespace+" "+cfg.schemaLocation)

	writeHeader(root, env.Header)
	writeContent(root, env.Content)
	writeTrailer(root, env.Trailer)

	return doc.WriteToBytes()
}

func writeHeader(root *etree.Element, h model.Header) {
	leaf(root, PathID, h.ID)
	date := root.CreateElement("msgDate")
	leaf(date, "date", h.Date)
	leaf(date, "time", h.Time)
	leaf(root, PathStatus, h.Status)
	leaf(root, PathType, h.Type)
}

func writeContent(root *etree.Element, c model.Content) {
	switch v := c.(type) {
	case model.UsageContent:
		spv := root.CreateElement(TagUsage).CreateElement("serialPV")
		spv.CreateAttr("uid", v.Product.UID)
		leaf(spv, "prodId/id", v.Product.ProductID)
		leaf(spv, "prodVarId/id", v.Product.VariantID)
		leaf(spv, "serPVId/id", v.Product.SerialID)
		mpoints := spv.CreateElement("mpoints")
		for _, mp := range v.Points {
			el := mpoints.CreateElement("mPoint")
			el.CreateAttr("uid", mp.UID)
			leaf(el, "mPointId/id", mp.Name)
			for _, mv := range mp.Values {
				val := el.CreateElement("mPointVal")
				rec := val.CreateElement("recDate")
				leaf(rec, "date", mv.Date)
				leaf(rec, "time", mv.Time)
				leaf(val, "vdtm", mv.Determination)
				leaf(val, "unit", mv.Unit)
				leaf(val, "value", mv.Value)
			}
		}
	case model.AckContent:
		root.CreateElement(TagAcknowledged)
	case model.ObsContent:
		root.CreateElement(TagObservation)
	}
}

func writeTrailer(root *etree.Element, t model.Trailer) {
	leaf(root, PathContext, t.Context)
	writeParty(root, types.RoleSender, t.Parties.Sender)
	writeParty(root, types.RoleReceiver, t.Parties.Receiver)
	if len(t.Remarks) > 0 {
		rmks := root.CreateElement("rmks")
		for _, r := range t.Remarks {
			leaf(rmks, "rmk/text/descr", r)
		}
	}
	leaf(root, PathClassification, t.Classification)
}

func writeParty(root *etree.Element, role types.Role, id string) {
	pty := root.CreateElement(PathParty)
	leaf(pty, PathPartyRole, string(role))
	leaf(pty, PathPartyID, id)
}

// leaf creates the chain of elements named by a slash separated path and
// sets the text of the last one.
func leaf(parent *etree.Element, path, text string) *etree.Element {
	el := parent
	for _, tag := range strings.Split(path, "/") {
		el = el.CreateElement(tag)
	}
	el.SetText(text)
	return el
}
