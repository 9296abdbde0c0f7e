// Package catalogtest provides an in-memory catalog.Cloud for tests.
package catalogtest

import (
	"context"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

// Cloud serves fixed resource lists per kind and records which kinds were listed.
type Cloud struct {
	Resources map[catalog.Kind][]resource.Resource
	Err       error
	Calls     []catalog.Kind
}

var _ catalog.Cloud = (*Cloud)(nil)

// New returns a Cloud serving the given resources.
func New(resources map[catalog.Kind][]resource.Resource) *Cloud {
	return &Cloud{Resources: resources}
}

func (c *Cloud) list(ctx context.Context, k catalog.Kind) ([]resource.Resource, error) {
	c.Calls = append(c.Calls, k)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Err != nil {
		return nil, c.Err
	}
	return c.Resources[k], nil
}

func (c *Cloud) Networks(ctx context.Context) ([]resource.Resource, error) {
	return c.list(ctx, catalog.Network)
}

func (c *Cloud) FloatingIPs(ctx context.Context) ([]resource.Resource, error) {
	return c.list(ctx, catalog.FloatingIP)
}

func (c *Cloud) Servers(ctx context.Context) ([]resource.Resource, error) {
	return c.list(ctx, catalog.Server)
}

func (c *Cloud) Ports(ctx context.Context) ([]resource.Resource, error) {
	return c.list(ctx, catalog.Port)
}

func (c *Cloud) SecurityGroups(ctx context.Context) ([]resource.Resource, error) {
	return c.list(ctx, catalog.SecurityGroup)
}

func (c *Cloud) Subnets(ctx context.Context) ([]resource.Resource, error) {
	return c.list(ctx, catalog.Subnet)
}

// R builds a resource with an optional status and attributes.
func R(kind catalog.Kind, id, status string, attrs map[string]string) resource.Resource {
	a := map[string]string{"id": id}
	if status != "" {
		a["status"] = status
	}
	for k, v := range attrs {
		a[k] = v
	}
	return resource.Resource{ID: id, Kind: string(kind), Status: status, Attrs: a}
}
