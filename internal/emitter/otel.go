package emitter

import (
	"context"
	"time"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/check"
)

// Recorder receives check metrics. telemetry.Provider implements it.
type Recorder interface {
	RecordCheck(ctx context.Context, kind string, d time.Duration, enumerated int, counts map[string]int)
	RecordError(ctx context.Context, kind string)
}

// OTELEmitter forwards outcomes to OpenTelemetry instruments.
type OTELEmitter struct {
	recorder Recorder
}

// NewOTELEmitter creates an emitter backed by r.
func NewOTELEmitter(r Recorder) *OTELEmitter {
	return &OTELEmitter{recorder: r}
}

// Emit records the outcome. Failed checks only count as errors.
func (e *OTELEmitter) Emit(ctx context.Context, out check.Outcome) error {
	kind := out.Kind.String()
	if out.Err != nil {
		e.recorder.RecordError(ctx, kind)
		return nil
	}
	e.recorder.RecordCheck(ctx, kind, out.Duration, out.Enumerated, out.Counts())
	return nil
}

// Close is a no-op; the recorder's owner shuts it down.
func (e *OTELEmitter) Close() error {
	return nil
}
