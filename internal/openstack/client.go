// Package openstack lists OpenStack resources and the Keystone catalog via gophercloud.
package openstack

import (
	"context"
	"fmt"
	"os"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/compute/v2/servers"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/layer3/floatingips"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/extensions/security/groups"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/networks"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/ports"
	"github.com/gophercloud/gophercloud/v2/openstack/networking/v2/subnets"
	"github.com/gophercloud/gophercloud/v2/pagination"
	"github.com/rs/zerolog"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

// Session is an authenticated provider plus the endpoint selection used
// to locate service clients.
type Session struct {
	Provider  *gophercloud.ProviderClient
	Endpoints gophercloud.EndpointOpts
}

// Connect authenticates against Keystone. Credentials come from
// cfg.OSCredentials when set, otherwise from the OS_* environment
// (after loading cfg.EnvFile).
func Connect(ctx context.Context, cfg config.CloudConfig, log zerolog.Logger) (*Session, error) {
	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}

	var opts gophercloud.AuthOptions
	region := cfg.Region
	if cfg.OSCredentials != "" {
		creds, err := config.ParseOSCredentials(cfg.OSCredentials)
		if err != nil {
			return nil, err
		}
		opts = creds.AuthOptions
		log.Debug().Int("auth_version", creds.AuthVersion).Msg("using os-credentials")
		if region == "" {
			region = creds.Region
		}
	} else {
		var err error
		opts, err = openstack.AuthOptionsFromEnv()
		if err != nil {
			return nil, fmt.Errorf("read auth options from environment: %w", err)
		}
		if region == "" {
			region = os.Getenv("OS_REGION_NAME")
		}
	}
	opts.AllowReauth = true

	log.Debug().
		Str("auth_url", opts.IdentityEndpoint).
		Str("region", region).
		Str("interface", cfg.Interface).
		Msg("authenticating")

	provider, err := openstack.AuthenticatedClient(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	return &Session{
		Provider: provider,
		Endpoints: gophercloud.EndpointOpts{
			Region:       region,
			Availability: gophercloud.Availability(cfg.Interface),
		},
	}, nil
}

// Client implements catalog.Cloud on top of Neutron and Nova.
type Client struct {
	network *gophercloud.ServiceClient
	compute *gophercloud.ServiceClient
	session *Session
}

// NewClient returns a Client for pre-built service clients.
func NewClient(network, compute *gophercloud.ServiceClient) *Client {
	return &Client{network: network, compute: compute}
}

// NewSessionClient returns a Client that locates service clients on first use,
// so a cloud without Nova can still check network resources.
func NewSessionClient(s *Session) *Client {
	return &Client{session: s}
}

func (c *Client) networkV2() (*gophercloud.ServiceClient, error) {
	if c.network == nil {
		sc, err := openstack.NewNetworkV2(c.session.Provider, c.session.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("network client: %w", err)
		}
		c.network = sc
	}
	return c.network, nil
}

func (c *Client) computeV2() (*gophercloud.ServiceClient, error) {
	if c.compute == nil {
		sc, err := openstack.NewComputeV2(c.session.Provider, c.session.Endpoints)
		if err != nil {
			return nil, fmt.Errorf("compute client: %w", err)
		}
		c.compute = sc
	}
	return c.compute, nil
}

// Networks lists Neutron networks.
func (c *Client) Networks(ctx context.Context) ([]resource.Resource, error) {
	sc, err := c.networkV2()
	if err != nil {
		return nil, err
	}
	return collect(ctx, "network", networks.List(sc, networks.ListOpts{}), networks.ExtractNetworks)
}

// FloatingIPs lists Neutron floating IPs.
func (c *Client) FloatingIPs(ctx context.Context) ([]resource.Resource, error) {
	sc, err := c.networkV2()
	if err != nil {
		return nil, err
	}
	return collect(ctx, "floating-ip", floatingips.List(sc, floatingips.ListOpts{}), floatingips.ExtractFloatingIPs)
}

// Servers lists Nova servers with details.
func (c *Client) Servers(ctx context.Context) ([]resource.Resource, error) {
	sc, err := c.computeV2()
	if err != nil {
		return nil, err
	}
	return collect(ctx, "server", servers.List(sc, servers.ListOpts{}), servers.ExtractServers)
}

// Ports lists Neutron ports.
func (c *Client) Ports(ctx context.Context) ([]resource.Resource, error) {
	sc, err := c.networkV2()
	if err != nil {
		return nil, err
	}
	return collect(ctx, "port", ports.List(sc, ports.ListOpts{}), ports.ExtractPorts)
}

// SecurityGroups lists Neutron security groups.
func (c *Client) SecurityGroups(ctx context.Context) ([]resource.Resource, error) {
	sc, err := c.networkV2()
	if err != nil {
		return nil, err
	}
	return collect(ctx, "security-group", groups.List(sc, groups.ListOpts{}), groups.ExtractGroups)
}

// Subnets lists Neutron subnets.
func (c *Client) Subnets(ctx context.Context) ([]resource.Resource, error) {
	sc, err := c.networkV2()
	if err != nil {
		return nil, err
	}
	return collect(ctx, "subnet", subnets.List(sc, subnets.ListOpts{}), subnets.ExtractSubnets)
}

// collect drains every page and converts each record into a Resource.
func collect[T any](ctx context.Context, kind string, pager pagination.Pager, extract func(pagination.Page) ([]T, error)) ([]resource.Resource, error) {
	page, err := pager.AllPages(ctx)
	if err != nil {
		return nil, err
	}
	records, err := extract(page)
	if err != nil {
		return nil, fmt.Errorf("extract %ss: %w", kind, err)
	}

	out := make([]resource.Resource, 0, len(records))
	for _, rec := range records {
		r, err := resource.FromAPI(kind, rec)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}
