// Package check runs one resource check: enumerate, select, classify.
package check

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/filter"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/result"
	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

// Outcome is the result of one check run.
type Outcome struct {
	Kind       catalog.Kind
	Results    *result.Set
	Enumerated int
	Selected   int
	Duration   time.Duration
	// Err is set when the collection could not be listed; Results is then empty.
	Err error
}

// Counts returns the entry count per category name.
func (o Outcome) Counts() map[string]int {
	counts := make(map[string]int, 4)
	for _, c := range result.Categories() {
		counts[c.String()] = o.Results.Count(c)
	}
	return counts
}

// Runner executes checks against a cloud.
type Runner struct {
	cloud  catalog.Cloud
	tracer trace.Tracer
	log    zerolog.Logger
}

// NewRunner creates a Runner. A nil tracer disables spans.
func NewRunner(cloud catalog.Cloud, tracer trace.Tracer, log zerolog.Logger) *Runner {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	return &Runner{cloud: cloud, tracer: tracer, log: log}
}

// Run lists kind once, applies policy and classifies every selected
// resource. In explicit mode each requested ID that was not listed is
// reported as not found.
func (r *Runner) Run(ctx context.Context, kind catalog.Kind, policy filter.Policy) Outcome {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "check."+kind.String(), trace.WithAttributes(
		attribute.String("kind", kind.String()),
		attribute.String("mode", policy.Mode().String()),
	))
	defer span.End()

	log := r.log.With().Str("kind", kind.String()).Logger()
	out := Outcome{Kind: kind, Results: result.NewSet(log)}

	resources, err := r.enumerate(ctx, kind)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error().Ctx(ctx).Err(err).Msg("enumeration failed")
		out.Err = err
		out.Duration = time.Since(start)
		return out
	}
	out.Enumerated = len(resources)

	seen := make(map[string]struct{}, len(resources))
	for res := range policy.Select(resources, log) {
		seen[res.ID] = struct{}{}
		out.Selected++
		status := res.Status
		if kind.ExistenceOnly() {
			status = ""
		}
		out.Results.Add(result.Classify(kind, res.ID, status, true))
	}

	if policy.Mode() == filter.ModeExplicitIDs {
		for _, id := range policy.IncludeIDs() {
			if _, ok := seen[id]; !ok {
				out.Results.Add(result.Classify(kind, id, "", false))
			}
		}
	}

	out.Duration = time.Since(start)
	span.SetAttributes(
		attribute.Int("enumerated", out.Enumerated),
		attribute.Int("selected", out.Selected),
		attribute.String("severity", out.Results.Severity().String()),
	)
	log.Debug().Ctx(ctx).
		Int("enumerated", out.Enumerated).
		Int("selected", out.Selected).
		Strs("skip_ids", policy.SkipIDs()).
		Interface("select", policy.Selectors()).
		Dur("duration", out.Duration).
		Msg("check finished")
	return out
}

func (r *Runner) enumerate(ctx context.Context, kind catalog.Kind) ([]resource.Resource, error) {
	ctx, span := r.tracer.Start(ctx, "enumerate")
	defer span.End()
	return kind.List(ctx, r.cloud)
}
