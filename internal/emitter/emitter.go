// Package emitter publishes check outcomes beyond the plugin output.
package emitter

import (
	"context"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/check"
)

// Emitter outputs check outcomes to a backend.
type Emitter interface {
	// Emit publishes one outcome.
	Emit(ctx context.Context, out check.Outcome) error

	// Close cleans up resources.
	Close() error
}

// MultiEmitter fans out to multiple emitters.
type MultiEmitter struct {
	emitters []Emitter
}

// NewMultiEmitter creates an emitter that sends to multiple backends.
func NewMultiEmitter(emitters ...Emitter) *MultiEmitter {
	return &MultiEmitter{emitters: emitters}
}

// Emit sends to all emitters, returns first error.
func (m *MultiEmitter) Emit(ctx context.Context, out check.Outcome) error {
	for _, e := range m.emitters {
		if err := e.Emit(ctx, out); err != nil {
			return err
		}
	}
	return nil
}

// Close closes all emitters.
func (m *MultiEmitter) Close() error {
	for _, e := range m.emitters {
		if err := e.Close(); err != nil {
			return err
		}
	}
	return nil
}
