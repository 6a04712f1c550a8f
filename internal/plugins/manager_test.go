package plugins

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/models"
	"github.com/Ikey168/Modulo-sub007/internal/registrystore"
)

// fakeHandler is a configurable PluginHandler stand-in for manager tests.
// Each registered entrypoint produces its own instance, so behavior is
// scoped per bundle rather than shared global state.
type fakeHandler struct {
	descriptor models.Descriptor
	initErr    error
	startErr   error
	stopErr    error
	startBlock chan struct{} // when non-nil, Start blocks until it closes
	health     Health

	startCount int32
	stopCount  int32

	eventsMu sync.Mutex
	events   []Event
}

func (f *fakeHandler) GetInfo() models.Descriptor { return f.descriptor }

func (f *fakeHandler) Initialize(ctx *PluginContext) error { return f.initErr }

func (f *fakeHandler) Start(ctx *PluginContext) error {
	atomic.AddInt32(&f.startCount, 1)
	if f.startBlock != nil {
		<-f.startBlock
	}
	return f.startErr
}

func (f *fakeHandler) Stop(ctx *PluginContext) error {
	atomic.AddInt32(&f.stopCount, 1)
	return f.stopErr
}

func (f *fakeHandler) HealthCheck(ctx *PluginContext) Health { return f.health }

func (f *fakeHandler) GetCapabilities() []string        { return f.descriptor.Capabilities }
func (f *fakeHandler) GetRequiredPermissions() []string { return f.descriptor.RequiredPermissions }
func (f *fakeHandler) GetSubscribedEvents() []string    { return f.descriptor.SubscribedEvents }
func (f *fakeHandler) GetPublishedEvents() []string     { return f.descriptor.PublishedEvents }

// OnEvent implements EventHandler so fakeHandler can also stand in for
// plugins declaring subscribed events.
func (f *fakeHandler) OnEvent(ctx context.Context, event Event) error {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeHandler) receivedEvents() []Event {
	f.eventsMu.Lock()
	defer f.eventsMu.Unlock()
	return append([]Event(nil), f.events...)
}

func init() {
	Register("manager-test-ok", func() PluginHandler {
		return &fakeHandler{health: Health{Status: HealthHealthy}}
	})
	Register("manager-test-fail-init", func() PluginHandler {
		return &fakeHandler{initErr: errors.New("init boom")}
	})
	Register("manager-test-fail-start", func() PluginHandler {
		return &fakeHandler{startErr: errors.New("start boom")}
	})
	Register("manager-test-unhealthy", func() PluginHandler {
		return &fakeHandler{health: Health{Status: HealthUnhealthy, Message: "degraded"}}
	})
	Register("manager-test-permissioned", func() PluginHandler {
		return &fakeHandler{
			health: Health{Status: HealthHealthy},
			descriptor: models.Descriptor{
				RequiredPermissions: []string{"notes.read", "system.events.subscribe"},
				SubscribedEvents:    []string{"note.created"},
			},
		}
	})
}

// fakeStore is an in-memory registrystore.Store for manager tests, saving
// a real SQLite/Postgres round trip.
type fakeStore struct {
	mu      sync.Mutex
	records map[string]models.RegistryRecord
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: make(map[string]models.RegistryRecord)}
}

func (s *fakeStore) Put(ctx context.Context, record models.RegistryRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *fakeStore) Get(ctx context.Context, id string) (*models.RegistryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.records[id]
	if !ok {
		return nil, apperrors.NotFound("registry record " + id)
	}
	return &r, nil
}

func (s *fakeStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *fakeStore) ListActive(ctx context.Context) ([]models.RegistryRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.RegistryRecord
	for _, r := range s.records {
		if r.LastKnownState == models.StateActive {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) Close() error { return nil }

func writeManagerBundle(t *testing.T, name, entrypoint string) string {
	t.Helper()
	dir := t.TempDir()
	manifest := models.BundleManifest{
		PluginName:       name,
		PluginVersion:    "1.0.0",
		PluginMainClass:  "Main",
		PluginAPIVersion: "1",
		Entrypoints:      []string{entrypoint},
	}
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), raw, 0o644))
	return dir
}

func newTestManager(t *testing.T, store registrystore.Store) *Manager {
	t.Helper()
	bus := NewEventBus()
	sm, err := NewSecurityManager()
	require.NoError(t, err)
	return NewManager(bus, sm, NewLocalLoader(), nil, store)
}

func TestManager_InstallStartsPluginAndTransitionsActive(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)
	require.Equal(t, "widget", id, "the plugin's declared name is its id")

	inst, ok := mgr.Get(id)
	require.True(t, ok)
	assert.Equal(t, models.StateActive, inst.State)
	assert.NotEmpty(t, inst.Token)
}

func TestManager_InstallRejectsDuplicateActiveName(t *testing.T) {
	mgr := newTestManager(t, nil)

	dir1 := writeManagerBundle(t, "widget", "manager-test-ok")
	_, err := mgr.Install(context.Background(), dir1, nil)
	require.NoError(t, err)

	dir2 := writeManagerBundle(t, "widget", "manager-test-ok")
	_, err = mgr.Install(context.Background(), dir2, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConflict, err.(*apperrors.AppError).Kind)
}

func TestManager_InstallTransitionsErrorOnInitializeFailure(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "broken", "manager-test-fail-init")

	_, err := mgr.Install(context.Background(), dir, nil)
	require.Error(t, err)

	instances := mgr.List()
	require.Len(t, instances, 1)
	assert.Equal(t, models.StateError, instances[0].State)
}

func TestManager_InstallTransitionsErrorOnStartFailure(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "broken", "manager-test-fail-start")

	_, err := mgr.Install(context.Background(), dir, nil)
	require.Error(t, err)

	instances := mgr.List()
	require.Len(t, instances, 1)
	assert.Equal(t, models.StateError, instances[0].State)
}

func TestManager_StartStopRoundTrip(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)

	require.NoError(t, mgr.Stop(context.Background(), id))
	inst, _ := mgr.Get(id)
	assert.Equal(t, models.StateInactive, inst.State)

	require.NoError(t, mgr.Start(context.Background(), id))
	inst, _ = mgr.Get(id)
	assert.Equal(t, models.StateActive, inst.State)
}

func TestManager_StopOnInactiveInstanceIsANoOp(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)
	require.NoError(t, mgr.Stop(context.Background(), id))

	require.NoError(t, mgr.Stop(context.Background(), id))
}

func TestManager_UninstallRemovesInstanceAndRevokesSecurity(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)
	token, _ := mgr.Get(id)
	require.NotEmpty(t, token.Token)

	require.NoError(t, mgr.Uninstall(context.Background(), id))

	_, ok := mgr.Get(id)
	assert.False(t, ok)

	_, ok = mgr.security.LookupByToken(token.Token)
	assert.False(t, ok, "uninstall must revoke the plugin's security token")
}

func TestManager_UninstallProceedsEvenWhenStopFails(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)

	inst, _ := mgr.Get(id)
	inst.Handler.(*fakeHandler).stopErr = errors.New("stop boom")

	require.NoError(t, mgr.Uninstall(context.Background(), id))
	_, ok := mgr.Get(id)
	assert.False(t, ok)
}

func TestManager_UninstallUnknownIDIsNotFound(t *testing.T) {
	mgr := newTestManager(t, nil)
	err := mgr.Uninstall(context.Background(), "does-not-exist")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, err.(*apperrors.AppError).Kind)
}

func TestManager_BootstrapRehydratesActiveRecords(t *testing.T) {
	store := newFakeStore()
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	store.records["rec-1"] = models.RegistryRecord{
		ID:             "rec-1",
		BundlePath:     dir,
		LastKnownState: models.StateActive,
	}

	mgr := newTestManager(t, store)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	inst, ok := mgr.Get("rec-1")
	require.True(t, ok)
	assert.Equal(t, models.StateActive, inst.State)
}

func TestManager_BootstrapLeavesFailedRecordInErrorWithoutAbortingOthers(t *testing.T) {
	store := newFakeStore()
	goodDir := writeManagerBundle(t, "widget", "manager-test-ok")

	store.records["rec-missing"] = models.RegistryRecord{
		ID:             "rec-missing",
		BundlePath:     filepath.Join(t.TempDir(), "does-not-exist"),
		LastKnownState: models.StateActive,
	}
	store.records["rec-good"] = models.RegistryRecord{
		ID:             "rec-good",
		BundlePath:     goodDir,
		LastKnownState: models.StateActive,
	}

	mgr := newTestManager(t, store)
	require.NoError(t, mgr.Bootstrap(context.Background()))

	_, ok := mgr.Get("rec-missing")
	assert.False(t, ok, "a record whose bundle fails to load is never registered in memory")
	assert.Equal(t, models.StateError, store.records["rec-missing"].LastKnownState)

	good, ok := mgr.Get("rec-good")
	require.True(t, ok)
	assert.Equal(t, models.StateActive, good.State)
}

func TestManager_ShutdownStopsActiveInstancesAndClearsState(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "widget", "manager-test-ok")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)
	inst, _ := mgr.Get(id)
	handler := inst.Handler.(*fakeHandler)

	mgr.Shutdown(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&handler.stopCount))
	assert.Empty(t, mgr.List())
}

func TestManager_HealthReturnsUnknownForMissingPlugin(t *testing.T) {
	mgr := newTestManager(t, nil)
	health := mgr.Health("does-not-exist")
	assert.Equal(t, HealthUnknown, health.Status)
}

func TestManager_HealthSweepDemotesAfterConsecutiveUnhealthyResults(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "flaky", "manager-test-unhealthy")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err) // only HealthCheck reports unhealthy; install itself succeeds

	inst, ok := mgr.Get(id)
	require.True(t, ok)
	require.Equal(t, models.StateActive, inst.State)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < unhealthyThreshold; i++ {
			mgr.runHealthSweep()
		}
	}()
	<-done

	updated, ok := mgr.Get(inst.ID)
	require.True(t, ok)
	assert.Equal(t, models.StateError, updated.State)
}

func TestManager_InstallStartTimeoutMovesInstanceToError(t *testing.T) {
	block := make(chan struct{})
	t.Cleanup(func() { close(block) })
	Register("manager-test-hang-start", func() PluginHandler {
		return &fakeHandler{startBlock: block, health: Health{Status: HealthHealthy}}
	})

	mgr := newTestManager(t, nil)
	mgr.SetLifecycleTimeouts(50*time.Millisecond, 50*time.Millisecond)
	dir := writeManagerBundle(t, "laggard", "manager-test-hang-start")

	_, err := mgr.Install(context.Background(), dir, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.KindLifecycleFailed, err.(*apperrors.AppError).Kind,
		"a lifecycle deadline overrun surfaces as LifecycleFailed")

	instances := mgr.List()
	require.Len(t, instances, 1)
	assert.Equal(t, models.StateError, instances[0].State)
}

// TestManager_InstallGrantsDeclaredPermissionsAndSubscribesDeclaredEvents
// checks the install happy path end to end: a plugin declaring required
// permissions and subscribed events ends up with exactly those
// permissions granted and receives events on those types.
func TestManager_InstallGrantsDeclaredPermissionsAndSubscribesDeclaredEvents(t *testing.T) {
	mgr := newTestManager(t, nil)
	dir := writeManagerBundle(t, "sample-logging-plugin", "manager-test-permissioned")

	id, err := mgr.Install(context.Background(), dir, nil)
	require.NoError(t, err)

	assert.True(t, mgr.security.HasPermission(id, "notes.read"))
	assert.True(t, mgr.security.HasPermission(id, "system.events.subscribe"))
	assert.False(t, mgr.security.HasPermission(id, "admin.plugins"))

	inst, ok := mgr.Get(id)
	require.True(t, ok)
	handler := inst.Handler.(*fakeHandler)

	mgr.bus.Publish("note.created", "system", "payload")
	assert.Eventually(t, func() bool {
		return len(handler.receivedEvents()) == 1
	}, time.Second, time.Millisecond)
}
