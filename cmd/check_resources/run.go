package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/check"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/emitter"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/filter"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/report"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/telemetry"
)

var errTimeout = errors.New("'--timeout' must be positive")

// run validates the invocation, performs the check and prints the report.
// Only usage errors are returned; every other failure becomes an UNKNOWN report.
func (a *app) run(ctx context.Context, kindName string, opts *options) error {
	kind, err := catalog.Parse(kindName)
	if err != nil {
		return err
	}
	policy, err := filter.NewPolicy(kind, filter.Options{
		All:     opts.all,
		IDs:     opts.ids,
		SkipIDs: opts.skipIDs,
		Select:  opts.selects,
	})
	if err != nil {
		return err
	}
	if opts.timeoutOn && opts.timeout <= 0 {
		return errTimeout
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		a.finish(report.Failure(err))
		return nil
	}

	level := cfg.Log.Level
	if opts.debug {
		level = "debug"
	}
	log, err := telemetry.NewLogger(a.stderr, name, level)
	if err != nil {
		a.finish(report.Failure(err))
		return nil
	}

	provider, err := telemetry.NewProvider(ctx, cfg.OTEL)
	if err != nil {
		a.finish(report.Failure(err))
		return nil
	}
	defer shutdown(provider, log)

	out, ran, err := a.check(ctx, cfg, kind, policy, provider, log)

	var renderOpts []report.Option
	if opts.perfData {
		renderOpts = append(renderOpts, report.WithPerfData())
	}

	var rep report.Report
	switch {
	case err != nil:
		rep = report.Failure(err)
	case out.Err != nil:
		rep = report.Failure(out.Err)
	default:
		rep = report.Render(kind, out.Results, renderOpts...)
	}

	if ran {
		emitOutcome(ctx, cfg, provider, out, log)
	}

	log.Debug().
		Str("kind", kind.String()).
		Str("mode", policy.Mode().String()).
		Int("exit_code", rep.ExitCode).
		Msg("check complete")

	a.finish(rep)
	return nil
}

// check connects and runs the check inside a run group next to a signal
// handler. ran reports whether the runner produced an outcome.
func (a *app) check(ctx context.Context, cfg *config.Config, kind catalog.Kind, policy filter.Policy,
	provider *telemetry.Provider, log zerolog.Logger) (out check.Outcome, ran bool, err error) {
	checkCtx, cancel := context.WithTimeout(ctx, cfg.Cloud.Timeout)
	defer cancel()

	var g run.Group
	g.Add(func() error {
		connCtx, span := provider.StartSpan(checkCtx, "connect")
		cloud, err := a.connect(connCtx, cfg.Cloud, log)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return err
		}
		span.End()

		out = check.NewRunner(cloud, provider.Tracer(), log).Run(checkCtx, kind, policy)
		ran = true
		return nil
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	if err := g.Run(); err != nil {
		return out, ran, fmt.Errorf("check %ss: %w", kind, err)
	}
	return out, ran, nil
}

func loadConfig(opts *options) (*config.Config, error) {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return nil, err
		}
	}

	if opts.envFile != "" {
		cfg.Cloud.EnvFile = opts.envFile
	}
	if opts.timeoutOn {
		cfg.Cloud.Timeout = opts.timeout
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.textfile != "" {
		cfg.Metrics.Textfile = opts.textfile
	}
	return cfg, nil
}

// emitOutcome publishes metrics. Failures are logged and never change the report.
func emitOutcome(ctx context.Context, cfg *config.Config, provider *telemetry.Provider, out check.Outcome, log zerolog.Logger) {
	emitters := []emitter.Emitter{emitter.NewOTELEmitter(provider)}
	if cfg.Metrics.Textfile != "" {
		tf, err := emitter.NewTextfileEmitter(cfg.Metrics.Textfile, provider.Gatherer(), log)
		if err != nil {
			log.Warn().Err(err).Msg("textfile emitter unavailable")
		} else {
			emitters = append(emitters, tf)
		}
	}

	emit := emitter.NewMultiEmitter(emitters...)
	if err := emit.Emit(ctx, out); err != nil {
		log.Warn().Err(err).Msg("emit failed")
	}
	if err := emit.Close(); err != nil {
		log.Warn().Err(err).Msg("close emitters failed")
	}
}

func shutdown(provider *telemetry.Provider, log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("telemetry shutdown failed")
	}
}

func (a *app) finish(rep report.Report) {
	fmt.Fprintln(a.stdout, rep.Text)
	a.code = rep.ExitCode
}
