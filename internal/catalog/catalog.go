// Package catalog maps OpenStack resource types to the calls that enumerate them.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

// ErrUnknownKind is returned for resource types the checks do not support.
var ErrUnknownKind = errors.New("resource is not supported")

// Kind is a checkable OpenStack resource type.
type Kind string

// Supported resource types.
const (
	Network       Kind = "network"
	FloatingIP    Kind = "floating-ip"
	Server        Kind = "server"
	Port          Kind = "port"
	SecurityGroup Kind = "security-group"
	Subnet        Kind = "subnet"
)

// Cloud enumerates OpenStack resource collections.
// Each call returns the whole collection visible to the credentials.
type Cloud interface {
	Networks(ctx context.Context) ([]resource.Resource, error)
	FloatingIPs(ctx context.Context) ([]resource.Resource, error)
	Servers(ctx context.Context) ([]resource.Resource, error)
	Ports(ctx context.Context) ([]resource.Resource, error)
	SecurityGroups(ctx context.Context) ([]resource.Resource, error)
	Subnets(ctx context.Context) ([]resource.Resource, error)
}

type lister func(Cloud, context.Context) ([]resource.Resource, error)

type entry struct {
	list lister
	// existenceOnly kinds are healthy when present; their status is ignored.
	existenceOnly bool
}

var table = map[Kind]entry{
	Network:       {list: Cloud.Networks, existenceOnly: true},
	FloatingIP:    {list: Cloud.FloatingIPs},
	Server:        {list: Cloud.Servers},
	Port:          {list: Cloud.Ports},
	SecurityGroup: {list: Cloud.SecurityGroups, existenceOnly: true},
	Subnet:        {list: Cloud.Subnets, existenceOnly: true},
}

// order keeps help output and tests stable.
var order = []Kind{Network, FloatingIP, Server, Port, SecurityGroup, Subnet}

// Parse returns the Kind for a CLI resource type name.
func Parse(name string) (Kind, error) {
	k := Kind(name)
	if _, ok := table[k]; !ok {
		return "", fmt.Errorf("'%s' %w", name, ErrUnknownKind)
	}
	return k, nil
}

// All returns every supported kind.
func All() []Kind {
	kinds := make([]Kind, len(order))
	copy(kinds, order)
	return kinds
}

// Names returns every supported kind name, comma separated.
func Names() string {
	names := make([]string, 0, len(order))
	for _, k := range order {
		names = append(names, string(k))
	}
	return strings.Join(names, ", ")
}

func (k Kind) String() string {
	return string(k)
}

// ExistenceOnly reports whether the kind is healthy by presence alone.
func (k Kind) ExistenceOnly() bool {
	return table[k].existenceOnly
}

// List enumerates all resources of this kind from the cloud.
func (k Kind) List(ctx context.Context, c Cloud) ([]resource.Resource, error) {
	e, ok := table[k]
	if !ok {
		return nil, fmt.Errorf("'%s' %w", k, ErrUnknownKind)
	}
	resources, err := e.list(c, ctx)
	if err != nil {
		return nil, fmt.Errorf("list %ss: %w", k, err)
	}
	return resources, nil
}
