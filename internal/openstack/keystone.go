package openstack

import (
	"context"
	"fmt"

	"github.com/gophercloud/gophercloud/v2"
	"github.com/gophercloud/gophercloud/v2/openstack"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/endpoints"
	"github.com/gophercloud/gophercloud/v2/openstack/identity/v3/services"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/endpoint"
)

// Keystone implements endpoint.Catalog against the identity v3 API.
type Keystone struct {
	identity *gophercloud.ServiceClient
}

// NewKeystone returns a Keystone catalog reader for an identity service client.
func NewKeystone(identity *gophercloud.ServiceClient) *Keystone {
	return &Keystone{identity: identity}
}

// NewSessionKeystone locates the identity v3 endpoint for a session.
func NewSessionKeystone(s *Session) (*Keystone, error) {
	sc, err := openstack.NewIdentityV3(s.Provider, s.Endpoints)
	if err != nil {
		return nil, fmt.Errorf("identity client: %w", err)
	}
	return NewKeystone(sc), nil
}

// Endpoints lists every catalog endpoint.
func (k *Keystone) Endpoints(ctx context.Context) ([]endpoint.Endpoint, error) {
	page, err := endpoints.List(k.identity, endpoints.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, err
	}
	records, err := endpoints.ExtractEndpoints(page)
	if err != nil {
		return nil, fmt.Errorf("extract endpoints: %w", err)
	}

	out := make([]endpoint.Endpoint, 0, len(records))
	for _, e := range records {
		out = append(out, endpoint.Endpoint{
			ID:        e.ID,
			Interface: string(e.Availability),
			Region:    e.Region,
			ServiceID: e.ServiceID,
			URL:       e.URL,
		})
	}
	return out, nil
}

// Services lists every catalog service. The service name lives in the
// free-form attributes of the identity API record.
func (k *Keystone) Services(ctx context.Context) ([]endpoint.Service, error) {
	page, err := services.List(k.identity, services.ListOpts{}).AllPages(ctx)
	if err != nil {
		return nil, err
	}
	records, err := services.ExtractServices(page)
	if err != nil {
		return nil, fmt.Errorf("extract services: %w", err)
	}

	out := make([]endpoint.Service, 0, len(records))
	for _, s := range records {
		name, _ := s.Extra["name"].(string)
		out = append(out, endpoint.Service{
			ID:      s.ID,
			Name:    name,
			Type:    s.Type,
			Enabled: s.Enabled,
		})
	}
	return out, nil
}
