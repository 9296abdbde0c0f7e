package check

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog/catalogtest"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/filter"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/result"
	"github.com/pponnuvel/charm-openstack-service-checks/pkg/resource"
)

func mustPolicy(t *testing.T, kind catalog.Kind, opts filter.Options) filter.Policy {
	t.Helper()
	p, err := filter.NewPolicy(kind, opts)
	require.NoError(t, err)
	return p
}

func run(t *testing.T, cloud catalog.Cloud, kind catalog.Kind, opts filter.Options) Outcome {
	t.Helper()
	r := NewRunner(cloud, nil, zerolog.Nop())
	return r.Run(context.Background(), kind, mustPolicy(t, kind, opts))
}

func TestRun_ExplicitIDsMissingOne(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Server: {catalogtest.R("server", "a", "ACTIVE", nil)},
	})

	out := run(t, cloud, catalog.Server, filter.Options{IDs: []string{"a", "b"}})

	require.NoError(t, out.Err)
	assert.Equal(t, result.Critical, out.Results.Severity())
	assert.Equal(t, 2, out.Results.Severity().ExitCode())
	assert.Equal(t, []string{"a"}, out.Results.IDs(result.CategoryOK))
	assert.Equal(t, []string{"b"}, out.Results.IDs(result.CategoryNotFound))
	assert.Equal(t, []string{
		"server 'b' was not found",
		"server 'a' is in ACTIVE status",
	}, out.Results.Messages())
	assert.Equal(t, 1, out.Enumerated)
	assert.Equal(t, 1, out.Selected)
}

func TestRun_AllServersActiveAndError(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Server: {
			catalogtest.R("server", "s1", "ACTIVE", nil),
			catalogtest.R("server", "s2", "ERROR", nil),
		},
	})

	out := run(t, cloud, catalog.Server, filter.Options{All: true})

	assert.Equal(t, result.Warning, out.Results.Severity())
	assert.Equal(t, 1, out.Results.Severity().ExitCode())
	assert.Equal(t, 1, out.Results.Count(result.CategoryOK))
	assert.Equal(t, 1, out.Results.Count(result.CategoryWarning))
}

func TestRun_SkipIDExcludesEntirely(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Port: {
			catalogtest.R("port", "x", "DOWN", nil),
			catalogtest.R("port", "y", "ACTIVE", nil),
		},
	})

	out := run(t, cloud, catalog.Port, filter.Options{All: true, SkipIDs: []string{"x"}})

	assert.Equal(t, result.OK, out.Results.Severity())
	assert.Equal(t, 1, out.Results.Len())
	assert.Equal(t, []string{"port 'y' is in ACTIVE status"}, out.Results.Messages())
	assert.Equal(t, 2, out.Enumerated)
	assert.Equal(t, 1, out.Selected)
}

func TestRun_ExistenceOnlyIgnoresStatus(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Subnet: {catalogtest.R("subnet", "sub-1", "DOWN", nil)},
	})

	out := run(t, cloud, catalog.Subnet, filter.Options{IDs: []string{"sub-1"}})

	assert.Equal(t, result.OK, out.Results.Severity())
	assert.Equal(t, []string{"subnet 'sub-1' exists"}, out.Results.Messages())
}

func TestRun_MissingStatusIsWarning(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.FloatingIP: {catalogtest.R("floating-ip", "fip", "", nil)},
	})

	out := run(t, cloud, catalog.FloatingIP, filter.Options{All: true})

	assert.Equal(t, result.Warning, out.Results.Severity())
	assert.Equal(t, []string{"floating-ip 'fip' is in UNKNOWN status"}, out.Results.Messages())
}

func TestRun_SelectRequiresEveryKey(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Port: {
			catalogtest.R("port", "p1", "DOWN", map[string]string{"device_owner": "network:router", "binding:host_id": "node1"}),
			catalogtest.R("port", "p2", "ACTIVE", map[string]string{"device_owner": "network:router", "binding:host_id": "node2"}),
			catalogtest.R("port", "p3", "ACTIVE", map[string]string{"device_owner": "compute:nova"}),
		},
	})

	out := run(t, cloud, catalog.Port, filter.Options{
		All:    true,
		Select: []string{"device_owner=network:router", "binding:host_id=node2"},
	})

	assert.Equal(t, result.OK, out.Results.Severity())
	assert.Equal(t, []string{"p2"}, out.Results.IDs(result.CategoryOK))
}

func TestRun_ExplicitIDsAllMissing(t *testing.T) {
	cloud := catalogtest.New(nil)

	out := run(t, cloud, catalog.Network, filter.Options{IDs: []string{"n2", "n1"}})

	assert.Equal(t, result.Critical, out.Results.Severity())
	assert.Equal(t, []string{"n1", "n2"}, out.Results.IDs(result.CategoryNotFound))
}

func TestRun_EnumerationError(t *testing.T) {
	cloud := catalogtest.New(nil)
	cloud.Err = errors.New("503 Service Unavailable")

	out := run(t, cloud, catalog.Server, filter.Options{All: true})

	require.Error(t, out.Err)
	assert.Contains(t, out.Err.Error(), "list servers")
	assert.Equal(t, 0, out.Results.Len())
	assert.Equal(t, []catalog.Kind{catalog.Server}, cloud.Calls)
}

func TestRun_CancelledContext(t *testing.T) {
	cloud := catalogtest.New(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(cloud, nil, zerolog.Nop())
	out := r.Run(ctx, catalog.Port, mustPolicy(t, catalog.Port, filter.Options{All: true}))

	require.ErrorIs(t, out.Err, context.Canceled)
}

func TestRun_ListsExactlyOnce(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.SecurityGroup: {catalogtest.R("security-group", "sg", "", nil)},
	})

	out := run(t, cloud, catalog.SecurityGroup, filter.Options{IDs: []string{"sg"}})

	assert.Equal(t, []catalog.Kind{catalog.SecurityGroup}, cloud.Calls)
	assert.Equal(t, result.OK, out.Results.Severity())
}

func TestOutcome_Counts(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Server: {
			catalogtest.R("server", "a", "ACTIVE", nil),
			catalogtest.R("server", "b", "DOWN", nil),
			catalogtest.R("server", "c", "BUILD", nil),
		},
	})

	out := run(t, cloud, catalog.Server, filter.Options{IDs: []string{"a", "b", "c", "d"}})

	assert.Equal(t, map[string]int{"ok": 1, "warning": 1, "critical": 1, "not_found": 1}, out.Counts())
}

func TestRun_LogsSelection(t *testing.T) {
	cloud := catalogtest.New(map[catalog.Kind][]resource.Resource{
		catalog.Port: {
			catalogtest.R("port", "x", "DOWN", nil),
			catalogtest.R("port", "y", "ACTIVE", map[string]string{"device_owner": "network:dhcp"}),
		},
	})
	var buf bytes.Buffer
	log := zerolog.New(&buf).Level(zerolog.DebugLevel)
	policy := mustPolicy(t, catalog.Port, filter.Options{
		All:     true,
		SkipIDs: []string{"x"},
		Select:  []string{"device_owner=network:dhcp"},
	})

	out := NewRunner(cloud, nil, log).Run(context.Background(), catalog.Port, policy)

	require.NoError(t, out.Err)
	assert.Equal(t, 1, out.Selected)
	assert.Contains(t, buf.String(), `"skip_ids":["x"]`)
	assert.Contains(t, buf.String(), `"select":{"device_owner":"network:dhcp"}`)
}
