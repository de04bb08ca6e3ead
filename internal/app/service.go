// Package service runs the two batch pipelines: building a usage report from
// a GPX track, and answering the oldest inbound message.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/trekhums/internal/adapters/gpx"
	"github.com/okian/trekhums/internal/adapters/repository"
	"github.com/okian/trekhums/internal/adapters/validator"
	"github.com/okian/trekhums/internal/domain/envelope"
	"github.com/okian/trekhums/internal/domain/measure"
	"github.com/okian/trekhums/internal/domain/model"
	"github.com/okian/trekhums/internal/domain/router"
	"github.com/okian/trekhums/internal/domain/track"
	"github.com/okian/trekhums/internal/domain/types"
	"github.com/okian/trekhums/pkg/logger"
	"github.com/okian/trekhums/pkg/metrics"
)

// Commands, as used in logs and metrics.
const (
	CommandReport = "report"
	CommandAnswer = "answer"
)

// Outcome describes what a run did.
type Outcome struct {
	Command string
	RunID   string

	// Input is the GPX path or the intake file name.
	Input string
	// Empty is set when Answer found no intake file.
	Empty bool

	// State is the final inbound state; Decision the state the router
	// answered from.
	State    router.State
	Decision router.State

	InboundUID string
	UID        string
	Path       string
	Resend     bool
	Problems   []string

	Masked int
	Values int
}

// Service wires the domain packages to the message directories.
type Service struct {
	store     repository.Store
	validator validator.Validator
	reader    *envelope.Reader
	builder   *envelope.Builder
	encoder   *measure.Encoder
	router    *router.Router

	profile        Profile
	redaction      track.Window
	schemaLocation string
	now            func() time.Time
	runID          string

	logger logger.Logger
}

// New constructs a Service. A store must be supplied with WithStore before
// Answer or Report write anything.
func New(opts ...Option) *Service {
	s := &Service{
		validator: validator.Noop{},
		reader:    envelope.NewReader(),
		builder:   envelope.NewBuilder(),
		encoder:   measure.New(),
		profile: Profile{
			MessageType:    types.TypeUsageReport,
			Classification: types.DefaultClassification,
		},
		schemaLocation: types.DefaultSchema,
		now:            time.Now,
		runID:          uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}
	s.logger = s.logger.With(logger.String("run_id", s.runID))
	s.router = router.New(
		router.WithBuilder(s.builder),
		router.WithIdentity(s.profile.Identity),
		router.WithCounterpart(s.profile.Counterpart),
		router.WithProject(s.profile.Project),
		router.WithClassification(s.profile.Classification),
		router.WithClock(s.now),
	)
	return s
}

// RunID returns the correlation id of this service instance.
func (s *Service) RunID() string { return s.runID }

// Report converts the GPX file at gpxPath into a usage report written to the
// output directory. label names the trek in the message id; the profile
// label is used when it is empty.
func (s *Service) Report(ctx context.Context, gpxPath, label string) (Outcome, error) {
	out := Outcome{Command: CommandReport, RunID: s.runID, Input: gpxPath}
	if s.store == nil {
		return out, errors.New("service has no message store")
	}

	tr, err := gpx.Load(ctx, gpxPath)
	if err != nil {
		return out, fmt.Errorf("load track %s: %w", gpxPath, err)
	}
	masked, err := tr.Redact(s.redaction)
	if err != nil {
		return out, err
	}
	out.Masked = masked
	metrics.RecordSamplesMasked(masked)

	points, err := s.encoder.EncodeTrack(tr)
	if err != nil {
		return out, err
	}
	product, err := s.encoder.Product(s.profile.ProductID, s.profile.VariantID, s.profile.SerialID)
	if err != nil {
		return out, err
	}
	for _, p := range points {
		out.Values += len(p.Values)
	}

	if label == "" {
		label = s.profile.TrekLabel
	}
	sum := tr.Summary()
	now := s.now().UTC()
	trekDate := sum.Start.UTC().Format(model.DateLayout)
	msgDate := now.Format(model.DateLayout)
	md := model.Metadata{
		ID:             "Bicycle trek " + label + " on " + trekDate,
		Date:           msgDate,
		Time:           now.Format(model.HeaderTimeLayout),
		Status:         types.StatusFinal,
		Type:           s.profile.MessageType,
		Context:        s.profile.Project,
		Sender:         s.profile.Identity,
		Receiver:       s.profile.Counterpart,
		Classification: s.profile.Classification,
		Remarks: []string{
			"Feedback about bicycle trek done on " + trekDate + " reported on " + msgDate,
			fmt.Sprintf("%d samples from %s to %s, %d masked, %.0f m",
				sum.Samples, sum.Start.UTC().Format(time.RFC3339), sum.End.UTC().Format(time.RFC3339),
				sum.Masked, sum.DistanceM),
		},
	}
	env, err := s.builder.Build(ctx, model.KindUsageReport, md,
		model.UsageContent{Product: product, Points: points})
	if err != nil {
		return out, err
	}

	if err := s.emit(ctx, env, &out); err != nil {
		return out, err
	}
	metrics.RecordMeasurementValues(out.Values)
	s.logger.Info(ctx, "usage report written",
		logger.String("uid", out.UID),
		logger.String("path", out.Path),
		logger.Int("points", len(points)),
		logger.Int("values", out.Values),
		logger.Int("masked", masked),
		logger.Float64("distance_m", sum.DistanceM),
	)
	return out, nil
}

// Answer processes the oldest intake file: archive it, gate it, validate
// and read it, and write the ACK or OBS answer. An empty intake is not an
// error.
func (s *Service) Answer(ctx context.Context) (Outcome, error) {
	out := Outcome{Command: CommandAnswer, RunID: s.runID, State: router.StateReceived}
	if s.store == nil {
		return out, errors.New("service has no message store")
	}

	f, err := s.store.Oldest(ctx)
	if errors.Is(err, repository.ErrEmptyIntake) {
		out.Empty = true
		s.logger.Info(ctx, "intake is empty")
		return out, nil
	}
	if err != nil {
		metrics.RecordIOError("list")
		return out, err
	}
	out.Input = f.Name

	archived, err := s.store.Archive(ctx, f)
	if err != nil {
		metrics.RecordIOError("archive")
		return out, err
	}
	raw, err := s.store.Read(ctx, archived)
	if err != nil {
		metrics.RecordIOError("read")
		return out, err
	}

	res, err := s.reader.Read(raw)
	if errors.Is(err, envelope.ErrTrashInput) {
		out.State = router.StateEntityRejected
		metrics.RecordInbound(out.State.String())
		s.logger.Warn(ctx, "entity declaration found; archived without answer",
			logger.String("file", f.Name), logger.String("archived", archived))
		return out, nil
	}
	if err != nil {
		return out, err
	}
	out.InboundUID = res.Envelope.UID

	problems, err := s.validator.Validate(ctx, archived)
	if err != nil {
		s.logger.Warn(ctx, "schema validation skipped", logger.String("file", f.Name), logger.Error(err))
	}
	if len(problems) > 0 {
		if res.Failure == nil {
			res.Failure = &envelope.ParseFailure{}
		}
		res.Failure.Merge(problems)
	}

	answer, decision, err := s.router.Route(ctx, res)
	if err != nil {
		return out, err
	}
	out.Decision = decision
	metrics.RecordInbound(decision.String())
	if res.Failure != nil {
		out.Problems = res.Failure.Paths()
		metrics.RecordParseProblems(len(out.Problems))
		s.logger.Info(ctx, "inbound message has problems",
			logger.String("file", f.Name),
			logger.Any("paths", out.Problems))
	}

	if err := s.emit(ctx, answer, &out); err != nil {
		return out, err
	}
	out.State = router.StateAnswered
	s.logger.Info(ctx, "answer written",
		logger.String("file", f.Name),
		logger.String("inbound_uid", out.InboundUID),
		logger.String("decision", decision.String()),
		logger.String("answer", answer.Header.Type),
		logger.String("uid", out.UID),
	)
	return out, nil
}

// emit serializes env and writes it as <uid>.xml.
func (s *Service) emit(ctx context.Context, env *model.Envelope, out *Outcome) error {
	data, err := envelope.Marshal(env, envelope.WithSchemaLocation(s.schemaLocation))
	if err != nil {
		return err
	}
	path, resend, err := s.store.Write(ctx, env.UID+".xml", data)
	if err != nil {
		metrics.RecordIOError("write")
		return err
	}
	out.UID = env.UID
	out.Path = path
	out.Resend = resend
	metrics.RecordMessageBuilt(env.Content.Kind().String())
	if resend {
		metrics.RecordResend()
		s.logger.Warn(ctx, "output already existed; resend overwrote it",
			logger.String("uid", env.UID), logger.String("path", path))
	}
	return nil
}
