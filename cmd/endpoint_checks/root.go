package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/endpoint"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/openstack"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/telemetry"
)

const name = "endpoint_checks"

var version = "0.1.0"

type catalogFunc func(ctx context.Context, cfg config.CloudConfig, log zerolog.Logger) (endpoint.Catalog, error)

type app struct {
	stdout  io.Writer
	stderr  io.Writer
	catalog catalogFunc
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, catalog: keystoneCatalog}
}

func keystoneCatalog(ctx context.Context, cfg config.CloudConfig, log zerolog.Logger) (endpoint.Catalog, error) {
	s, err := openstack.Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return openstack.NewSessionKeystone(s)
}

type options struct {
	config        string
	envFile       string
	osCredentials string
	timeout       time.Duration
	logLevel      string
	debug         bool
}

func (a *app) newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   name,
		Short: "Print NRPE checks for the Keystone catalog endpoints",
		Long: `Read the Keystone catalog and print one check_http definition per
endpoint of an enabled service, plus a certificate expiry check for
https endpoints. Which interfaces are covered, health check paths and
TLS thresholds come from the "endpoints" section of the config file.

Output is a YAML list of {shortname, description, check_cmd}.`,
		Example: `  endpoint_checks --env-file /var/lib/nagios/nagios.novarc
  endpoint_checks --config /etc/openstack-service-checks/config.yaml`,
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.run(cmd.Context(), opts, cmd.Flags().Changed("timeout"))
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.config, "config", "", "Path to YAML config file")
	f.StringVar(&opts.envFile, "env-file", "", "novarc file with OS_* variables")
	f.StringVar(&opts.osCredentials, "os-credentials", "", "Credentials as key=value pairs (username, password, region_name, auth_url, credentials_project, domain)")
	f.DurationVar(&opts.timeout, "timeout", 0, "Abort after this long (default from config, 30s)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config, warn)")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	cmd.SetVersionTemplate(name + " {{.Version}}\n")
	return cmd
}

func (a *app) execute(args []string) int {
	cmd := a.newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func (a *app) run(ctx context.Context, opts *options, timeoutSet bool) error {
	cfg := config.Default()
	if opts.config != "" {
		var err error
		if cfg, err = config.Load(opts.config); err != nil {
			return err
		}
	}
	if opts.envFile != "" {
		cfg.Cloud.EnvFile = opts.envFile
	}
	if opts.osCredentials != "" {
		cfg.Cloud.OSCredentials = opts.osCredentials
	}
	if timeoutSet {
		if opts.timeout <= 0 {
			return fmt.Errorf("--timeout must be positive (got %s)", opts.timeout)
		}
		cfg.Cloud.Timeout = opts.timeout
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.debug {
		cfg.Log.Level = "debug"
	}

	log, err := telemetry.NewLogger(a.stderr, name, cfg.Log.Level)
	if err != nil {
		return err
	}

	checks, err := a.build(ctx, cfg, log)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(a.stdout)
	enc.SetIndent(2)
	if err := enc.Encode(checks); err != nil {
		return fmt.Errorf("encode checks: %w", err)
	}
	return enc.Close()
}

// build reads the catalog inside a run group next to a signal handler.
func (a *app) build(ctx context.Context, cfg *config.Config, log zerolog.Logger) ([]endpoint.Check, error) {
	buildCtx, cancel := context.WithTimeout(ctx, cfg.Cloud.Timeout)
	defer cancel()

	var checks []endpoint.Check
	var g run.Group
	g.Add(func() error {
		cat, err := a.catalog(buildCtx, cfg.Cloud, log)
		if err != nil {
			return err
		}
		checks, err = endpoint.Build(buildCtx, cat, endpoint.OptionsFromConfig(cfg.Endpoints), log)
		return err
	}, func(error) {
		cancel()
	})
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))

	if err := g.Run(); err != nil {
		return nil, err
	}
	return checks, nil
}
