package envelope

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/trekhums/internal/domain/dedupe"
	"github.com/okian/trekhums/internal/domain/ident"
	"github.com/okian/trekhums/internal/domain/model"
)

// Option applies a configuration option to the Builder.
type Option func(*Builder)

// WithDeriver sets the identifier deriver used for message uids.
func WithDeriver(d ident.Deriver) Option {
	return func(b *Builder) {
		if d != nil {
			b.deriver = d
		}
	}
}

// Builder assembles envelopes from metadata and content.
type Builder struct {
	deriver ident.Deriver
}

// NewBuilder constructs a Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{deriver: ident.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build validates md and content for kind and returns the envelope. Every
// empty mandatory field is reported in one ValidationError.
func (b *Builder) Build(ctx context.Context, kind model.Kind, md model.Metadata, content model.Content) (*model.Envelope, error) {
	var missing []string
	require := func(path, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, path)
		}
	}
	require(PathID, md.ID)
	require(PathDate, md.Date)
	require(PathTime, md.Time)
	require(PathStatus, md.Status)
	require(PathType, md.Type)
	require(PathContext, md.Context)
	require(PathSender, md.Sender)
	require(PathReceiver, md.Receiver)
	require(PathClassification, md.Classification)

	switch {
	case content == nil:
		missing = append(missing, PathContent)
	case content.Kind() != kind:
		missing = append(missing, fmt.Sprintf("%s (%s given)", PathContent, content.Kind()))
	}

	switch kind {
	case model.KindUsageReport:
		if u, ok := content.(model.UsageContent); ok {
			missing = append(missing, checkUsage(ctx, u)...)
		}
	case model.KindObservation:
		if !hasRemark(md.Remarks) {
			missing = append(missing, PathRemark)
		}
	case model.KindAcknowledgment:
	default:
		missing = append(missing, fmt.Sprintf("kind %d", int(kind)))
	}

	if len(missing) > 0 {
		return nil, &ValidationError{Kind: kind, Fields: missing}
	}

	var remarks []string
	if len(md.Remarks) > 0 {
		remarks = append(remarks, md.Remarks...)
	}
	return &model.Envelope{
		UID: b.deriver.Derive(ident.TagMessage, md.ID),
		Header: model.Header{
			ID:     md.ID,
			Date:   md.Date,
			Time:   md.Time,
			Status: md.Status,
			Type:   md.Type,
		},
		Content: content,
		Trailer: model.Trailer{
			Context:        md.Context,
			Parties:        model.Parties{Sender: md.Sender, Receiver: md.Receiver},
			Remarks:        remarks,
			Classification: md.Classification,
		},
	}, nil
}

func checkUsage(ctx context.Context, u model.UsageContent) []string {
	var missing []string
	base := TagUsage + "/serialPV"
	p := u.Product
	if p.UID == "" {
		missing = append(missing, base+"/@uid")
	}
	if p.ProductID == "" {
		missing = append(missing, base+"/prodId/id")
	}
	if p.VariantID == "" {
		missing = append(missing, base+"/prodVarId/id")
	}
	if p.SerialID == "" {
		missing = append(missing, base+"/serPVId/id")
	}
	if len(u.Points) == 0 {
		missing = append(missing, base+"/mpoints/mPoint")
		return missing
	}

	seen := dedupe.NewInMemoryDeduper()
	for i, mp := range u.Points {
		at := fmt.Sprintf("%s/mpoints/mPoint[%d]", base, i+1)
		switch {
		case mp.UID == "":
			missing = append(missing, at+"/@uid")
		case seen.SeenAndRecord(ctx, mp.UID):
			missing = append(missing, at+"/@uid (duplicate "+mp.UID+")")
		}
		if mp.Name == "" {
			missing = append(missing, at+"/mPointId/id")
		}
		if len(mp.Values) == 0 {
			missing = append(missing, at+"/mPointVal")
		}
		for j, v := range mp.Values {
			if v.Date == "" || v.Time == "" || v.Determination == "" || v.Unit == "" || v.Value == "" {
				missing = append(missing, fmt.Sprintf("%s/mPointVal[%d]", at, j+1))
			}
		}
	}
	return missing
}

func hasRemark(remarks []string) bool {
	for _, r := range remarks {
		if strings.TrimSpace(r) != "" {
			return true
		}
	}
	return false
}
