package emitter

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/check"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/result"
)

// TextfileEmitter writes the last outcome in Prometheus text format for the
// node exporter textfile collector. Each kind gets its own file, derived
// from the configured path (openstack.prom → openstack_server.prom), so
// checks sharing a path do not overwrite each other. Files are replaced
// atomically.
type TextfileEmitter struct {
	path     string
	log      zerolog.Logger
	registry *prometheus.Registry
	gatherer prometheus.Gatherers
	now      func() time.Time

	status  *prometheus.GaugeVec
	lastRun *prometheus.GaugeVec
}

// NewTextfileEmitter creates a textfile emitter writing next to path.
// extra is gathered into the same file; pass the telemetry provider's
// Gatherer so the check instruments land there too.
func NewTextfileEmitter(path string, extra prometheus.Gatherer, log zerolog.Logger) (*TextfileEmitter, error) {
	e := &TextfileEmitter{
		path:     path,
		log:      log,
		registry: prometheus.NewRegistry(),
		now:      time.Now,
		status: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "openstack_check_status",
			Help: "Nagios state of the last check (0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN)",
		}, []string{"kind"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "openstack_check_last_run_timestamp_seconds",
			Help: "Unix time the last check finished",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{e.status, e.lastRun} {
		if err := e.registry.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	e.gatherer = prometheus.Gatherers{e.registry}
	if extra != nil {
		e.gatherer = append(e.gatherer, extra)
	}
	return e, nil
}

// Emit records the outcome and rewrites the kind's textfile.
func (e *TextfileEmitter) Emit(_ context.Context, out check.Outcome) error {
	kind := out.Kind.String()

	state := result.Unknown
	if out.Err == nil {
		state = out.Results.Severity()
	}
	e.status.WithLabelValues(kind).Set(float64(state.ExitCode()))
	e.lastRun.WithLabelValues(kind).Set(float64(e.now().Unix()))

	path := KindPath(e.path, kind)
	if err := prometheus.WriteToTextfile(path, e.gatherer); err != nil {
		return fmt.Errorf("write textfile %s: %w", path, err)
	}

	e.log.Debug().Str("path", path).Str("kind", kind).Msg("metrics textfile written")
	return nil
}

// Close is a no-op for the textfile emitter.
func (e *TextfileEmitter) Close() error {
	return nil
}

// KindPath inserts kind before the extension of path.
func KindPath(path, kind string) string {
	dir, file := filepath.Split(path)
	ext := filepath.Ext(file)
	return filepath.Join(dir, strings.TrimSuffix(file, ext)+"_"+kind+ext)
}
