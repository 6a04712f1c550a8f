package pluginrpc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ikey168/Modulo-sub007/internal/models"
	"github.com/Ikey168/Modulo-sub007/internal/plugins"
)

// echoHandler is a minimal PluginHandler used only to exercise the gRPC
// server adapter; its lifecycle methods always succeed.
type echoHandler struct {
	plugins.BasePlugin
}

func (h *echoHandler) GetCapabilities() []string { return []string{"notes.read"} }

func init() {
	plugins.Register("pluginrpc-test-entry", func() plugins.PluginHandler {
		return &echoHandler{}
	})
}

func writeTestBundle(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	manifest := models.BundleManifest{
		PluginName:       name,
		PluginVersion:    "1.0.0",
		PluginMainClass:  "Main",
		PluginAPIVersion: "1",
		Entrypoints:      []string{"pluginrpc-test-entry"},
	}
	raw, err := json.Marshal(manifest)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "manifest.json"), raw, 0o644))
	return dir
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	bus := plugins.NewEventBus()
	sm, err := plugins.NewSecurityManager()
	require.NoError(t, err)
	mgr := plugins.NewManager(bus, sm, plugins.NewLocalLoader(), nil, nil)
	return NewServer(mgr)
}

func TestServer_InitializeStartStopRoundTrip(t *testing.T) {
	srv := newTestServer(t)
	dir := writeTestBundle(t, "widget")

	initReply, err := srv.Initialize(context.Background(), &InitializeRequest{Path: dir})
	require.NoError(t, err)
	require.True(t, initReply.Success)
	require.NotEmpty(t, initReply.PluginID)

	stopReply, err := srv.Stop(context.Background(), &PluginIDRequest{PluginID: initReply.PluginID})
	require.NoError(t, err)
	assert.True(t, stopReply.Success)

	startReply, err := srv.Start(context.Background(), &PluginIDRequest{PluginID: initReply.PluginID})
	require.NoError(t, err)
	assert.True(t, startReply.Success)
}

func TestServer_InitializeReportsFailureAsUnsuccessfulNotError(t *testing.T) {
	srv := newTestServer(t)

	reply, err := srv.Initialize(context.Background(), &InitializeRequest{Path: "/does/not/exist"})
	require.NoError(t, err, "manager errors never cross the wire as transport failures")
	assert.False(t, reply.Success)
	assert.NotEmpty(t, reply.Message)
}

func TestServer_GetStatusUnknownPlugin(t *testing.T) {
	srv := newTestServer(t)

	reply, err := srv.GetStatus(context.Background(), &PluginIDRequest{PluginID: "ghost"})
	require.NoError(t, err)
	assert.False(t, reply.Success)
}

func TestServer_GetInfoAndCapabilities(t *testing.T) {
	srv := newTestServer(t)
	dir := writeTestBundle(t, "widget")

	initReply, err := srv.Initialize(context.Background(), &InitializeRequest{Path: dir})
	require.NoError(t, err)
	require.True(t, initReply.Success)

	info, err := srv.GetInfo(context.Background(), &PluginIDRequest{PluginID: initReply.PluginID})
	require.NoError(t, err)
	assert.True(t, info.Success)
	assert.Equal(t, "widget", info.Name)

	caps, err := srv.GetCapabilities(context.Background(), &PluginIDRequest{PluginID: initReply.PluginID})
	require.NoError(t, err)
	assert.True(t, caps.Success)
	assert.Equal(t, []string{"notes.read"}, caps.Capabilities)
}

func TestServer_ConfigureAndGetConfiguration(t *testing.T) {
	srv := newTestServer(t)
	dir := writeTestBundle(t, "widget")

	initReply, err := srv.Initialize(context.Background(), &InitializeRequest{Path: dir})
	require.NoError(t, err)

	cfgReply, err := srv.Configure(context.Background(), &ConfigureRequest{
		PluginID: initReply.PluginID,
		Config:   map[string]string{"threshold": "10"},
	})
	require.NoError(t, err)
	assert.True(t, cfgReply.Success)

	getReply, err := srv.GetConfiguration(context.Background(), &PluginIDRequest{PluginID: initReply.PluginID})
	require.NoError(t, err)
	assert.Equal(t, "10", getReply.Config["threshold"])
}

func TestServer_ExecuteReportsUnsupported(t *testing.T) {
	srv := newTestServer(t)
	dir := writeTestBundle(t, "widget")

	initReply, err := srv.Initialize(context.Background(), &InitializeRequest{Path: dir})
	require.NoError(t, err)

	reply, err := srv.Execute(context.Background(), &ExecuteRequest{PluginID: initReply.PluginID, Operation: "anything"})
	require.NoError(t, err)
	assert.False(t, reply.Success)
}

func TestServer_HealthCheckUnknownPluginKeepsSuccessTrue(t *testing.T) {
	srv := newTestServer(t)

	reply, err := srv.HealthCheck(context.Background(), &PluginIDRequest{PluginID: "ghost"})
	require.NoError(t, err)
	assert.Equal(t, string(plugins.HealthUnknown), reply.Status)
	assert.True(t, reply.Success, "HealthUnknown is not HealthUnhealthy, so Success stays true")
}
