package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/openstack"
)

const name = "check_resources"

var version = "0.1.0"

// connectFunc opens an authenticated cloud for one run.
type connectFunc func(ctx context.Context, cfg config.CloudConfig, log zerolog.Logger) (catalog.Cloud, error)

// app holds the process boundary so tests can drive the command in-process.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	connect connectFunc
	code    int
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr, connect: connectCloud}
}

func connectCloud(ctx context.Context, cfg config.CloudConfig, log zerolog.Logger) (catalog.Cloud, error) {
	s, err := openstack.Connect(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return openstack.NewSessionClient(s), nil
}

type options struct {
	all       bool
	ids       []string
	skipIDs   []string
	selects   []string
	config    string
	envFile   string
	timeout   time.Duration
	logLevel  string
	debug     bool
	perfData  bool
	textfile  string
	timeoutOn bool
}

func (a *app) newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   name + " <resource-type>",
		Short: "Check the health of OpenStack resources",
		Long: `Check the health of one OpenStack resource collection.

Resources are selected either by explicit ID (--id, repeatable) or with
--all, optionally narrowed by --skip-id and --select KEY=VALUE. The
result follows the Nagios plugin convention: one summary line, one line
per resource, exit code 0 OK, 1 WARNING, 2 CRITICAL, 3 UNKNOWN.

Supported resource types: ` + catalog.Names(),
		Example: `  check_resources server --all
  check_resources port --all --select device_owner=network:router_gateway
  check_resources network -i 3c5b... -i 9f1e...
  check_resources floating-ip --all --skip-id 203d...`,
		Version:       version,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.timeoutOn = cmd.Flags().Changed("timeout")
			return a.run(cmd.Context(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.all, "all", false, "Check all resources of the type")
	f.StringArrayVarP(&opts.ids, "id", "i", nil, "Resource ID to check (repeatable)")
	f.StringArrayVar(&opts.skipIDs, "skip-id", nil, "Resource ID to skip with --all (repeatable)")
	f.StringArrayVar(&opts.selects, "select", nil, "Only check resources whose attribute KEY equals VALUE, with --all (repeatable)")
	f.StringVar(&opts.config, "config", "", "Path to YAML config file")
	f.StringVar(&opts.envFile, "env-file", "", "novarc file with OS_* variables")
	f.DurationVar(&opts.timeout, "timeout", 0, "Abort the check after this long (default from config, 30s)")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config, warn)")
	f.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	f.BoolVar(&opts.perfData, "perfdata", false, "Append performance data to the summary line")
	f.StringVar(&opts.textfile, "metrics-textfile", "", "Node exporter textfile; the resource type is appended to the file name")

	cmd.SetVersionTemplate(name + " {{.Version}}\n")
	return cmd
}

// execute runs the command and returns the process exit code. Usage
// errors exit 2 with the usage text and a diagnostic on stderr.
func (a *app) execute(args []string) int {
	cmd := a.newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprint(a.stderr, cmd.UsageString())
		fmt.Fprintf(a.stderr, "%s: error: %s\n", name, err)
		return 2
	}
	return a.code
}
