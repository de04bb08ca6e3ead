package router

import (
	"time"

	"github.com/okian/trekhums/internal/domain/envelope"
)

// Option applies a configuration option to the Router.
type Option func(*Router)

// WithIdentity sets the party id this system answers as when the inbound
// receiver cannot be read.
func WithIdentity(id string) Option {
	return func(r *Router) { r.identity = id }
}

// WithCounterpart sets the receiver used when the inbound sender cannot be
// read.
func WithCounterpart(id string) Option {
	return func(r *Router) { r.counterpart = id }
}

// WithProject sets the project context used when the inbound one is missing.
func WithProject(project string) Option {
	return func(r *Router) { r.project = project }
}

// WithClassification sets the security class of observations.
func WithClassification(c string) Option {
	return func(r *Router) {
		if c != "" {
			r.classification = c
		}
	}
}

// WithClock sets the time source for answer dates.
func WithClock(now func() time.Time) Option {
	return func(r *Router) {
		if now != nil {
			r.now = now
		}
	}
}

// WithBuilder sets the envelope builder.
func WithBuilder(b *envelope.Builder) Option {
	return func(r *Router) {
		if b != nil {
			r.builder = b
		}
	}
}
