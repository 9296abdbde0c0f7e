package emitter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pponnuvel/charm-openstack-service-checks/internal/catalog"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/check"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/config"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/result"
	"github.com/pponnuvel/charm-openstack-service-checks/internal/telemetry"
)

// mockEmitter implements Emitter for testing.
type mockEmitter struct {
	emitCalls  int
	closeCalls int
	emitErr    error
	closeErr   error
	outcomes   []check.Outcome
}

func (m *mockEmitter) Emit(_ context.Context, out check.Outcome) error {
	m.emitCalls++
	m.outcomes = append(m.outcomes, out)
	return m.emitErr
}

func (m *mockEmitter) Close() error {
	m.closeCalls++
	return m.closeErr
}

// mockRecorder implements Recorder for testing.
type mockRecorder struct {
	kind       string
	duration   time.Duration
	enumerated int
	counts     map[string]int
	errors     int
}

func (m *mockRecorder) RecordCheck(_ context.Context, kind string, d time.Duration, enumerated int, counts map[string]int) {
	m.kind, m.duration, m.enumerated, m.counts = kind, d, enumerated, counts
}

func (m *mockRecorder) RecordError(_ context.Context, kind string) {
	m.kind = kind
	m.errors++
}

func serverOutcome() check.Outcome {
	set := result.NewSet(zerolog.Nop())
	set.Add(result.Classify(catalog.Server, "a", "ACTIVE", true))
	set.Add(result.Classify(catalog.Server, "b", "ERROR", true))
	return check.Outcome{
		Kind:       catalog.Server,
		Results:    set,
		Enumerated: 5,
		Selected:   2,
		Duration:   1500 * time.Millisecond,
	}
}

func TestMultiEmitter_Emit(t *testing.T) {
	e1 := &mockEmitter{}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Emit(context.Background(), serverOutcome())

	require.NoError(t, err)
	assert.Equal(t, 1, e1.emitCalls)
	assert.Equal(t, 1, e2.emitCalls)
	assert.Len(t, e1.outcomes, 1)
	assert.Len(t, e2.outcomes, 1)
}

func TestMultiEmitter_Emit_Error(t *testing.T) {
	e1 := &mockEmitter{emitErr: errors.New("emit failed")}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Emit(context.Background(), serverOutcome())

	assert.Error(t, err)
	assert.Equal(t, 1, e1.emitCalls)
	assert.Equal(t, 0, e2.emitCalls) // Should stop on first error
}

func TestMultiEmitter_Close(t *testing.T) {
	e1 := &mockEmitter{}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Close()

	require.NoError(t, err)
	assert.Equal(t, 1, e1.closeCalls)
	assert.Equal(t, 1, e2.closeCalls)
}

func TestMultiEmitter_Close_Error(t *testing.T) {
	e1 := &mockEmitter{closeErr: errors.New("close failed")}
	e2 := &mockEmitter{}
	multi := NewMultiEmitter(e1, e2)

	err := multi.Close()

	assert.Error(t, err)
	assert.Equal(t, 1, e1.closeCalls)
	assert.Equal(t, 0, e2.closeCalls) // Should stop on first error
}

func TestMultiEmitter_Empty(t *testing.T) {
	multi := NewMultiEmitter()

	err := multi.Emit(context.Background(), serverOutcome())
	require.NoError(t, err)

	err = multi.Close()
	require.NoError(t, err)
}

func TestTextfileEmitter_Emit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openstack.prom")
	e, err := NewTextfileEmitter(path, nil, zerolog.Nop())
	require.NoError(t, err)
	e.now = func() time.Time { return time.Unix(1700000000, 0) }

	require.NoError(t, e.Emit(context.Background(), serverOutcome()))
	require.NoError(t, e.Close())

	data, err := os.ReadFile(filepath.Join(filepath.Dir(path), "openstack_server.prom"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `openstack_check_status{kind="server"} 1`)
	assert.Contains(t, text, `openstack_check_last_run_timestamp_seconds{kind="server"} 1.7e+09`)
	assert.NoFileExists(t, path)
}

func TestTextfileEmitter_WithTelemetry(t *testing.T) {
	ctx := context.Background()
	provider, err := telemetry.NewProvider(ctx, config.Default().OTEL)
	require.NoError(t, err)
	t.Cleanup(func() { _ = provider.Shutdown(ctx) })

	path := filepath.Join(t.TempDir(), "openstack.prom")
	tf, err := NewTextfileEmitter(path, provider.Gatherer(), zerolog.Nop())
	require.NoError(t, err)
	multi := NewMultiEmitter(NewOTELEmitter(provider), tf)

	require.NoError(t, multi.Emit(ctx, serverOutcome()))

	data, err := os.ReadFile(KindPath(path, "server"))
	require.NoError(t, err)
	text := string(data)

	assert.Contains(t, text, `openstack_check_status{kind="server"} 1`)
	assert.Regexp(t, `openstack_check_entries_total\{category="ok",kind="server"[^}]*\} 1`, text)
	assert.Regexp(t, `openstack_check_entries_total\{category="warning",kind="server"[^}]*\} 1`, text)
	assert.Regexp(t, `openstack_check_resources_enumerated_total\{kind="server"[^}]*\} 5`, text)
	assert.Regexp(t, `openstack_check_duration_seconds_sum\{kind="server"[^}]*\} 1.5`, text)
	assert.Equal(t, 1, strings.Count(text, "# TYPE openstack_check_status "))
}

func TestTextfileEmitter_OneFilePerKind(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openstack.prom")

	servers, err := NewTextfileEmitter(path, nil, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, servers.Emit(context.Background(), serverOutcome()))

	ports, err := NewTextfileEmitter(path, nil, zerolog.Nop())
	require.NoError(t, err)
	failed := check.Outcome{Kind: catalog.Port, Results: result.NewSet(zerolog.Nop()), Err: errors.New("boom")}
	require.NoError(t, ports.Emit(context.Background(), failed))

	serverData, err := os.ReadFile(KindPath(path, "server"))
	require.NoError(t, err)
	assert.Contains(t, string(serverData), `openstack_check_status{kind="server"} 1`)

	portData, err := os.ReadFile(KindPath(path, "port"))
	require.NoError(t, err)
	assert.Contains(t, string(portData), `openstack_check_status{kind="port"} 3`)
	assert.NotContains(t, string(portData), `kind="server"`)
}

func TestKindPath(t *testing.T) {
	assert.Equal(t, "/var/lib/node/openstack_server.prom", KindPath("/var/lib/node/openstack.prom", "server"))
	assert.Equal(t, "/tmp/checks_floating-ip", KindPath("/tmp/checks", "floating-ip"))
	assert.Equal(t, "out_port.prom", KindPath("out.prom", "port"))
}

func TestTextfileEmitter_FailedCheckIsUnknown(t *testing.T) {
	path := filepath.Join(t.TempDir(), "openstack.prom")
	e, err := NewTextfileEmitter(path, nil, zerolog.Nop())
	require.NoError(t, err)

	out := check.Outcome{
		Kind:    catalog.Port,
		Results: result.NewSet(zerolog.Nop()),
		Err:     errors.New("list ports: 401 Unauthorized"),
	}
	require.NoError(t, e.Emit(context.Background(), out))

	data, err := os.ReadFile(KindPath(path, "port"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `openstack_check_status{kind="port"} 3`)
}

func TestTextfileEmitter_BadPath(t *testing.T) {
	e, err := NewTextfileEmitter(filepath.Join(t.TempDir(), "missing", "x.prom"), nil, zerolog.Nop())
	require.NoError(t, err)

	err = e.Emit(context.Background(), serverOutcome())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write textfile")
}

func TestOTELEmitter(t *testing.T) {
	rec := &mockRecorder{}
	e := NewOTELEmitter(rec)

	require.NoError(t, e.Emit(context.Background(), serverOutcome()))
	assert.Equal(t, "server", rec.kind)
	assert.Equal(t, 1500*time.Millisecond, rec.duration)
	assert.Equal(t, 5, rec.enumerated)
	assert.Equal(t, map[string]int{"ok": 1, "warning": 1, "critical": 0, "not_found": 0}, rec.counts)
	assert.Equal(t, 0, rec.errors)

	failed := check.Outcome{Kind: catalog.Port, Results: result.NewSet(zerolog.Nop()), Err: errors.New("boom")}
	require.NoError(t, e.Emit(context.Background(), failed))
	assert.Equal(t, 1, rec.errors)
	assert.Equal(t, "port", rec.kind)
	require.NoError(t, e.Close())
}
