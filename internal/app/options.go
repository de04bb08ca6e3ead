package service

import (
	"time"

	"github.com/okian/trekhums/internal/adapters/repository"
	"github.com/okian/trekhums/internal/adapters/validator"
	"github.com/okian/trekhums/internal/domain/track"
	"github.com/okian/trekhums/pkg/logger"
)

// Profile holds the fixed metadata of emitted messages.
type Profile struct {
	MessageType    string
	Project        string
	Identity       string
	Counterpart    string
	Classification string

	ProductID string
	VariantID string
	SerialID  string
	TrekLabel string
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the message directories.
func WithStore(s repository.Store) Option {
	return func(svc *Service) {
		if s != nil {
			svc.store = s
		}
	}
}

// WithValidator sets the external schema validator.
func WithValidator(v validator.Validator) Option {
	return func(svc *Service) {
		if v != nil {
			svc.validator = v
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(svc *Service) {
		if l != nil {
			svc.logger = l
		}
	}
}

// WithProfile sets message metadata. Empty fields keep their defaults.
func WithProfile(p Profile) Option {
	return func(svc *Service) {
		merge(&svc.profile.MessageType, p.MessageType)
		merge(&svc.profile.Project, p.Project)
		merge(&svc.profile.Identity, p.Identity)
		merge(&svc.profile.Counterpart, p.Counterpart)
		merge(&svc.profile.Classification, p.Classification)
		merge(&svc.profile.ProductID, p.ProductID)
		merge(&svc.profile.VariantID, p.VariantID)
		merge(&svc.profile.SerialID, p.SerialID)
		merge(&svc.profile.TrekLabel, p.TrekLabel)
	}
}

// WithRedaction sets the window masked in usage reports.
func WithRedaction(w track.Window) Option {
	return func(svc *Service) { svc.redaction = w }
}

// WithSchemaLocation sets the schema named by emitted messages.
func WithSchemaLocation(loc string) Option {
	return func(svc *Service) { merge(&svc.schemaLocation, loc) }
}

// WithClock sets the time source of message dates.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) {
		if now != nil {
			svc.now = now
		}
	}
}

// WithRunID sets the correlation id logged with every entry of this run.
func WithRunID(id string) Option {
	return func(svc *Service) { merge(&svc.runID, id) }
}

func merge(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
