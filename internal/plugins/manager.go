package plugins

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apperrors "github.com/Ikey168/Modulo-sub007/internal/errors"
	"github.com/Ikey168/Modulo-sub007/internal/logger"
	"github.com/Ikey168/Modulo-sub007/internal/models"
	"github.com/Ikey168/Modulo-sub007/internal/registrystore"
)

// defaultInstallTimeout and defaultStopTimeout bound a single plugin's
// lifecycle hooks: initialize and start during install, stop during stop
// and shutdown. A hook that overruns moves the instance to Error, never
// to a partial state.
const (
	defaultInstallTimeout = 60 * time.Second
	defaultStopTimeout    = 30 * time.Second
)

// unhealthyThreshold is the number of consecutive failed health checks
// the sweep tolerates before demoting an instance and publishing
// system.plugin.unhealthy.
const unhealthyThreshold = 3

// Manager is the plugin runtime's central orchestrator. It owns the
// id->instance map, the lifecycle state machine, and wires every other
// component (event bus, security manager, loaders, registry store)
// behind a narrow set of verbs: Install, Uninstall, Start, Stop,
// Bootstrap, Shutdown, Health.
type Manager struct {
	mu        sync.RWMutex
	instances map[string]*Instance

	idMu sync.Map // per-plugin-id *sync.Mutex, serializes lifecycle ops

	bus        *EventBus
	security   *SecurityManager
	local      *LocalLoader
	remote     *RemoteLoader
	store      registrystore.Store
	unhealthy   map[string]int
	unhealthyMu sync.Mutex

	installTimeout time.Duration
	stopTimeout    time.Duration

	healthSweep *cron.Cron
}

// NewManager wires a Manager from its collaborators. remote may be nil if
// remote installs are disabled for this deployment.
func NewManager(bus *EventBus, security *SecurityManager, local *LocalLoader, remote *RemoteLoader, store registrystore.Store) *Manager {
	return &Manager{
		instances:      make(map[string]*Instance),
		bus:            bus,
		security:       security,
		local:          local,
		remote:         remote,
		store:          store,
		unhealthy:      make(map[string]int),
		installTimeout: defaultInstallTimeout,
		stopTimeout:    defaultStopTimeout,
	}
}

// SetLifecycleTimeouts overrides the install/start and stop deadlines.
// Non-positive values keep the current setting.
func (m *Manager) SetLifecycleTimeouts(install, stop time.Duration) {
	if install > 0 {
		m.installTimeout = install
	}
	if stop > 0 {
		m.stopTimeout = stop
	}
}

// callBounded runs a plugin lifecycle hook with a deadline. The hook runs
// in its own goroutine so a hung plugin cannot wedge the manager; on
// overrun the instance is handled by the caller as an error while the
// stray goroutine is left to finish or leak with its plugin. A panic in
// the hook is recovered and returned as an error.
func callBounded(op string, timeout time.Duration, f func() error) error {
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("%s panicked: %v", op, r)
			}
		}()
		done <- f()
	}()
	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return apperrors.Timeout(op)
	}
}

func (m *Manager) lockFor(id string) *sync.Mutex {
	l, _ := m.idMu.LoadOrStore(id, &sync.Mutex{})
	return l.(*sync.Mutex)
}

func (m *Manager) get(id string) (*Instance, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	return inst, ok
}

func (m *Manager) set(inst *Instance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.instances[inst.ID] = inst
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.instances, id)
}

func (m *Manager) nameCollides(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, inst := range m.instances {
		if inst.Descriptor.Name == name && inst.State == models.StateActive {
			return true
		}
	}
	return false
}

// Install runs the full install protocol: load, validate, persist,
// initialize, start, subscribe, grant permissions, mint a token, publish
// system.plugin.installed. path may be a local bundle path or - if it
// starts with http:// or https:// and a RemoteLoader is configured - a
// remote bundle URL.
func (m *Manager) Install(ctx context.Context, path string, config map[string]string) (string, error) {
	loaded, err := m.load(ctx, path)
	if err != nil {
		return "", err
	}

	if m.nameCollides(loaded.Descriptor.Name) {
		return "", apperrors.Conflict("a plugin named " + loaded.Descriptor.Name + " is already active")
	}
	if err := validateDescriptor(loaded.Descriptor, m.security); err != nil {
		return "", err
	}

	// The plugin's declared name is its id; nameCollides above already
	// guarantees uniqueness among Active instances.
	id := loaded.Descriptor.Name
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	now := nowFunc()
	inst := &Instance{
		ID:         id,
		Descriptor: loaded.Descriptor,
		Handler:    loaded.Handler,
		State:      models.StateInstalling,
		Config:     config,
		createdAt:  now,
		updatedAt:  now,
	}
	m.set(inst)

	if err := m.persist(ctx, inst, path); err != nil {
		m.transitionError(inst)
		return "", err
	}

	pctx := m.pluginContext(inst)
	if err := callBounded("initialize", m.installTimeout, func() error { return inst.Handler.Initialize(pctx) }); err != nil {
		m.transitionError(inst)
		return "", apperrors.LifecycleFailed(id, "initialize", err)
	}
	if err := callBounded("start", m.installTimeout, func() error { return inst.Handler.Start(pctx) }); err != nil {
		m.transitionError(inst)
		return "", apperrors.LifecycleFailed(id, "start", err)
	}

	m.subscribeDeclaredEvents(inst)
	m.security.Grant(id, inst.Descriptor.RequiredPermissions)
	token, err := m.security.MintToken(id)
	if err != nil {
		m.transitionError(inst)
		return "", err
	}

	m.mu.Lock()
	inst.State = models.StateActive
	inst.Token = token
	inst.updatedAt = nowFunc()
	m.mu.Unlock()

	if err := m.persist(ctx, inst, path); err != nil {
		logger.Runtime().Warn().Err(err).Str("plugin", id).Msg("install succeeded but persisting active state failed")
	}

	m.bus.Publish(EventPluginInstalled, SystemOrigin, map[string]string{
		"id": id, "name": inst.Descriptor.Name, "version": inst.Descriptor.Version,
	})

	logger.Runtime().Info().Str("plugin", id).Str("name", inst.Descriptor.Name).Msg("plugin installed")
	return id, nil
}

func (m *Manager) load(ctx context.Context, path string) (*LoadedBundle, error) {
	if m.remote != nil && looksLikeURL(path) {
		return m.remote.LoadRemote(ctx, path, "")
	}
	return m.local.Load(path)
}

func looksLikeURL(path string) bool {
	return len(path) > 8 && (path[:8] == "https://" || path[:7] == "http://")
}

func validateDescriptor(d models.Descriptor, security *SecurityManager) error {
	if d.Name == "" {
		return apperrors.Invalid("plugin descriptor is missing a name")
	}
	if d.Version == "" {
		return apperrors.Invalid("plugin descriptor is missing a version")
	}
	for _, p := range d.RequiredPermissions {
		if !IsCatalogPermission(p) {
			return apperrors.Invalid("plugin requires unknown permission: " + p)
		}
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, inst *Instance, bundlePath string) error {
	if m.store == nil {
		return nil
	}
	record := models.RegistryRecord{
		ID:             inst.ID,
		Descriptor:     inst.Descriptor,
		BundlePath:     bundlePath,
		LastKnownState: inst.State,
		Config:         inst.Config,
		CreatedAt:      inst.createdAt,
		UpdatedAt:      inst.updatedAt,
	}
	return m.store.Put(ctx, record)
}

func (m *Manager) pluginContext(inst *Instance) *PluginContext {
	return &PluginContext{
		PluginID: inst.ID,
		Config:   inst.Config,
		Publish: func(eventType string, payload interface{}) {
			m.bus.Publish(eventType, inst.ID, payload)
		},
	}
}

func (m *Manager) subscribeDeclaredEvents(inst *Instance) {
	handler, ok := inst.Handler.(EventHandler)
	if !ok {
		return
	}
	var handles []SubscriptionHandle
	for _, eventType := range inst.Descriptor.SubscribedEvents {
		handles = append(handles, m.bus.Subscribe(eventType, inst.ID, handler))
	}
	m.mu.Lock()
	inst.subscriptions = handles
	m.mu.Unlock()
}

func (m *Manager) unsubscribeAll(inst *Instance) {
	m.bus.UnsubscribeAll(inst.ID)
	m.mu.Lock()
	inst.subscriptions = nil
	m.mu.Unlock()
}

func (m *Manager) transitionError(inst *Instance) {
	m.mu.Lock()
	inst.State = models.StateError
	inst.updatedAt = nowFunc()
	m.mu.Unlock()
}

// Uninstall runs the uninstall protocol. Stop failures are swallowed:
// uninstall always proceeds to completion.
func (m *Manager) Uninstall(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	inst, ok := m.get(id)
	if !ok {
		return apperrors.NotFound("plugin " + id)
	}

	if err := m.stopLocked(ctx, inst); err != nil {
		logger.Runtime().Warn().Err(err).Str("plugin", id).Msg("stop failed during uninstall, proceeding anyway")
	}

	m.unsubscribeAll(inst)

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			logger.Runtime().Warn().Err(err).Str("plugin", id).Msg("failed to remove registry record")
		}
	}

	m.security.RevokeAll(id)
	m.remove(id)

	m.bus.Publish(EventPluginUninstalled, SystemOrigin, map[string]string{"id": id})
	logger.Runtime().Info().Str("plugin", id).Msg("plugin uninstalled")
	return nil
}

// Start transitions an Inactive or Error instance back to Active.
func (m *Manager) Start(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	inst, ok := m.get(id)
	if !ok {
		return apperrors.NotFound("plugin " + id)
	}

	m.mu.RLock()
	state := inst.State
	m.mu.RUnlock()
	if state != models.StateInactive && state != models.StateError {
		return apperrors.Conflict(fmt.Sprintf("plugin %s is not stoppable-to-start from state %s", id, state))
	}

	pctx := m.pluginContext(inst)
	if err := callBounded("start", m.installTimeout, func() error { return inst.Handler.Start(pctx) }); err != nil {
		m.transitionError(inst)
		return apperrors.LifecycleFailed(id, "start", err)
	}

	m.subscribeDeclaredEvents(inst)

	m.mu.Lock()
	inst.State = models.StateActive
	inst.updatedAt = nowFunc()
	m.mu.Unlock()

	_ = m.persist(ctx, inst, "")
	return nil
}

// Stop transitions an Active instance to Inactive.
func (m *Manager) Stop(ctx context.Context, id string) error {
	lock := m.lockFor(id)
	lock.Lock()
	defer lock.Unlock()

	inst, ok := m.get(id)
	if !ok {
		return apperrors.NotFound("plugin " + id)
	}
	return m.stopLocked(ctx, inst)
}

// stopLocked assumes the caller already holds the per-id lock.
func (m *Manager) stopLocked(ctx context.Context, inst *Instance) error {
	m.mu.RLock()
	state := inst.State
	m.mu.RUnlock()
	if state != models.StateActive {
		return nil
	}

	m.unsubscribeAll(inst)

	pctx := m.pluginContext(inst)
	if err := callBounded("stop", m.stopTimeout, func() error { return inst.Handler.Stop(pctx) }); err != nil {
		m.transitionError(inst)
		return apperrors.LifecycleFailed(inst.ID, "stop", err)
	}

	m.mu.Lock()
	inst.State = models.StateInactive
	inst.updatedAt = nowFunc()
	m.mu.Unlock()

	_ = m.persist(ctx, inst, "")
	return nil
}

// Bootstrap loads every registry entry whose last-known state is Active,
// reconstructing in-memory instances. A failure on one entry marks its
// stored record Error and does not abort the rest; an entry whose
// initialize or start hook failed is also kept in memory in Error, while
// one whose bundle fails to load gets no in-memory instance.
func (m *Manager) Bootstrap(ctx context.Context) error {
	if m.store == nil {
		return nil
	}
	records, err := m.store.ListActive(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "failed to list active registry records", err)
	}

	for _, record := range records {
		if err := m.bootstrapOne(ctx, record); err != nil {
			logger.Runtime().Warn().Err(err).Str("plugin", record.ID).Msg("bootstrap failed for plugin, leaving in error state")
			record.LastKnownState = models.StateError
			record.UpdatedAt = nowFunc()
			if perr := m.store.Put(ctx, record); perr != nil {
				logger.Runtime().Warn().Err(perr).Str("plugin", record.ID).Msg("failed to persist bootstrap error state")
			}
		}
	}
	return nil
}

func (m *Manager) bootstrapOne(ctx context.Context, record models.RegistryRecord) error {
	loaded, err := m.load(ctx, record.BundlePath)
	if err != nil {
		return err
	}

	inst := &Instance{
		ID:         record.ID,
		Descriptor: loaded.Descriptor,
		Handler:    loaded.Handler,
		State:      models.StateInstalling,
		Config:     record.Config,
		createdAt:  record.CreatedAt,
		updatedAt:  nowFunc(),
	}
	m.set(inst)

	pctx := m.pluginContext(inst)
	if err := callBounded("initialize", m.installTimeout, func() error { return inst.Handler.Initialize(pctx) }); err != nil {
		m.transitionError(inst)
		return apperrors.LifecycleFailed(record.ID, "initialize", err)
	}
	if err := callBounded("start", m.installTimeout, func() error { return inst.Handler.Start(pctx) }); err != nil {
		m.transitionError(inst)
		return apperrors.LifecycleFailed(record.ID, "start", err)
	}

	m.subscribeDeclaredEvents(inst)
	m.security.Grant(record.ID, inst.Descriptor.RequiredPermissions)

	m.mu.Lock()
	inst.State = models.StateActive
	m.mu.Unlock()
	return nil
}

// Shutdown publishes system.application.stopping and stops every Active
// instance, each bounded by stopTimeout. Failures are logged, never
// propagated. In-memory maps are cleared afterward.
func (m *Manager) Shutdown(ctx context.Context) {
	m.bus.Publish(EventApplicationStop, SystemOrigin, nil)

	m.mu.RLock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		instances = append(instances, inst)
	}
	m.mu.RUnlock()

	var wg sync.WaitGroup
	for _, inst := range instances {
		if inst.State != models.StateActive {
			continue
		}
		wg.Add(1)
		go func(inst *Instance) {
			defer wg.Done()
			stopCtx, cancel := context.WithTimeout(ctx, m.stopTimeout)
			defer cancel()
			if err := m.Stop(stopCtx, inst.ID); err != nil {
				logger.Runtime().Warn().Err(err).Str("plugin", inst.ID).Msg("shutdown stop failed")
			}
		}(inst)
	}
	wg.Wait()

	if m.healthSweep != nil {
		m.healthSweep.Stop()
	}

	m.mu.Lock()
	m.instances = make(map[string]*Instance)
	m.mu.Unlock()
}

// Health runs a host-visible health check against id's instance. A
// missing plugin yields "unknown"; a panicking health check maps to
// "unhealthy" rather than propagating.
func (m *Manager) Health(id string) Health {
	inst, ok := m.get(id)
	if !ok {
		return Health{Status: HealthUnknown, Message: "plugin not installed"}
	}

	pctx := m.pluginContext(inst)
	return m.safeHealthCheck(inst, pctx)
}

func (m *Manager) safeHealthCheck(inst *Instance, pctx *PluginContext) (health Health) {
	defer func() {
		if r := recover(); r != nil {
			health = Health{Status: HealthUnhealthy, Message: fmt.Sprintf("health check panicked: %v", r)}
		}
	}()
	return inst.Handler.HealthCheck(pctx)
}

// StartHealthSweep schedules a periodic health check across every Active
// instance using the given cron spec (e.g. "@every 30s"). After
// unhealthyThreshold consecutive unhealthy results, the instance is
// demoted to Error and system.plugin.unhealthy is published.
func (m *Manager) StartHealthSweep(spec string) error {
	m.healthSweep = cron.New()
	_, err := m.healthSweep.AddFunc(spec, m.runHealthSweep)
	if err != nil {
		return apperrors.Wrap(apperrors.KindInternal, "invalid health sweep schedule", err)
	}
	m.healthSweep.Start()
	return nil
}

func (m *Manager) runHealthSweep() {
	m.mu.RLock()
	instances := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		if inst.State == models.StateActive {
			instances = append(instances, inst)
		}
	}
	m.mu.RUnlock()

	for _, inst := range instances {
		health := m.Health(inst.ID)
		m.unhealthyMu.Lock()
		if health.Status == HealthUnhealthy {
			m.unhealthy[inst.ID]++
		} else {
			m.unhealthy[inst.ID] = 0
		}
		count := m.unhealthy[inst.ID]
		m.unhealthyMu.Unlock()

		if count >= unhealthyThreshold {
			m.transitionError(inst)
			m.bus.Publish(EventPluginUnhealthy, SystemOrigin, map[string]string{
				"id": inst.ID, "message": health.Message,
			})
			logger.Runtime().Warn().Str("plugin", inst.ID).Int("consecutive_failures", count).
				Msg("plugin demoted to error after repeated health check failures")
		}
	}
}

// Get returns the current in-memory instance for id, for callers (the
// gRPC surface, CLI) that need its descriptor or state without going
// through a lifecycle verb.
func (m *Manager) Get(id string) (*Instance, bool) {
	return m.get(id)
}

// List returns every currently tracked instance.
func (m *Manager) List() []*Instance {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Instance, 0, len(m.instances))
	for _, inst := range m.instances {
		out = append(out, inst)
	}
	return out
}

// SetConfig replaces id's configuration under the manager's lock, so
// callers outside this package never mutate a shared *Instance directly.
func (m *Manager) SetConfig(id string, cfg map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return apperrors.NotFound("plugin " + id)
	}
	inst.Config = cfg
	inst.updatedAt = nowFunc()
	return nil
}

// GetConfig returns a copy of id's current configuration.
func (m *Manager) GetConfig(id string) (map[string]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.instances[id]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(inst.Config))
	for k, v := range inst.Config {
		out[k] = v
	}
	return out, true
}

// nowFunc is a seam for tests; production always uses time.Now.
var nowFunc = time.Now
