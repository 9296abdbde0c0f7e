// Package endpoint derives NRPE URL and certificate checks from the Keystone catalog.
package endpoint

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
)

// ErrCatalogUnavailable is returned when Keystone cannot list its catalog yet.
var ErrCatalogUnavailable = errors.New("unable to list the keystone endpoints")

// Endpoint is one Keystone catalog endpoint.
type Endpoint struct {
	ID        string
	Interface string
	Region    string
	ServiceID string
	URL       string
}

// Service is one Keystone catalog service.
type Service struct {
	ID      string
	Name    string
	Type    string
	Enabled bool
}

// Catalog reads the Keystone service catalog.
type Catalog interface {
	Endpoints(ctx context.Context) ([]Endpoint, error)
	Services(ctx context.Context) ([]Service, error)
}

// Check is an NRPE check definition.
type Check struct {
	Shortname   string `yaml:"shortname"`
	Description string `yaml:"description"`
	Command     string `yaml:"check_cmd"`
}

// Options control which endpoints get checks and how they are built.
type Options struct {
	Interfaces   map[string]bool
	CheckHTTP    string
	TLSWarnDays  int
	TLSCritDays  int
	HealthChecks map[string]string
}

// DefaultHealthChecks returns the URL path (plus extra check_http switches)
// checked for services that expose something better than "/".
func DefaultHealthChecks() map[string]string {
	return map[string]string{
		"keystone": "/healthcheck",
		"s3":       "/healthcheck",
		"aodh":     "/healthcheck",
		"glance":   "/healthcheck",
		"nova":     "/healthcheck",
		"cinderv3": "/v3 -e Unauthorized -d x-openstack-request-id",
		"cinderv2": "/v2 -e Unauthorized -d x-openstack-request-id",
		"cinderv1": "/v1 -e Unauthorized -d x-openstack-request-id",
	}
}

// OptionsFromConfig builds Options, layering configured health checks over the defaults.
func OptionsFromConfig(cfg config.EndpointsConfig) Options {
	health := DefaultHealthChecks()
	maps.Copy(health, cfg.HealthChecks)
	return Options{
		Interfaces:   cfg.Interfaces(),
		CheckHTTP:    cfg.CheckHTTP,
		TLSWarnDays:  cfg.TLSWarnDays,
		TLSCritDays:  cfg.TLSCritDays,
		HealthChecks: health,
	}
}

func (o Options) healthPath(service string) string {
	if p, ok := o.HealthChecks[service]; ok {
		return p
	}
	return "/"
}

// Build returns one URL check per enabled endpoint, plus a certificate
// check for https endpoints, sorted by shortname. A later endpoint with the
// same shortname replaces an earlier one.
func Build(ctx context.Context, cat Catalog, opts Options, log zerolog.Logger) ([]Check, error) {
	endpoints, err := cat.Endpoints(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w, yet: %w", ErrCatalogUnavailable, err)
	}
	services, err := cat.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w, yet: %w", ErrCatalogUnavailable, err)
	}

	names := make(map[string]string, len(services))
	for _, s := range services {
		if s.Enabled {
			names[s.ID] = s.Name
		}
	}

	checks := make(map[string]Check)
	for _, ep := range endpoints {
		service, ok := names[ep.ServiceID]
		if !ok {
			log.Debug().Str("endpoint", ep.ID).Str("service_id", ep.ServiceID).
				Msg("skipping endpoint of disabled or unknown service")
			continue
		}
		if !opts.Interfaces[ep.Interface] {
			continue
		}

		u, err := url.Parse(ep.URL)
		if err != nil || u.Hostname() == "" {
			log.Warn().Str("endpoint", ep.ID).Str("url", ep.URL).Msg("skipping endpoint with unusable url")
			continue
		}

		params := []string{
			opts.CheckHTTP,
			fmt.Sprintf("-H %s -p %s", u.Hostname(), port(u)),
			"-u " + opts.healthPath(service),
		}

		if u.Scheme == "https" {
			params = append(params, "-S")
			cert := Check{
				Shortname:   fmt.Sprintf("%s_%s_cert", service, ep.Interface),
				Description: fmt.Sprintf("Certificate expiry check for %s %s", service, ep.Interface),
				Command: strings.Join(append(slices.Clone(params),
					fmt.Sprintf("-C %d,%d", opts.TLSWarnDays, opts.TLSCritDays)), " "),
			}
			checks[cert.Shortname] = cert
		}

		c := Check{
			Shortname:   fmt.Sprintf("%s_%s", service, ep.Interface),
			Description: fmt.Sprintf("Endpoint url check for %s %s", service, ep.Interface),
			Command:     strings.Join(params, " "),
		}
		checks[c.Shortname] = c
	}

	out := make([]Check, 0, len(checks))
	for _, name := range slices.Sorted(maps.Keys(checks)) {
		out = append(out, checks[name])
	}
	log.Debug().Int("endpoints", len(endpoints)).Int("checks", len(out)).Msg("endpoint checks built")
	return out, nil
}

func port(u *url.URL) string {
	if p := u.Port(); p != "" {
		return p
	}
	if u.Scheme == "https" {
		return "443"
	}
	return "80"
}
