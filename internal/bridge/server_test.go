package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voxbar/internal/addons"
	"voxbar/internal/config"
	"voxbar/internal/logger"
	"voxbar/internal/state"
)

type fakeBackend struct {
	st       state.SystemState
	sent     []string
	cfg      *config.Config
	registry *addons.Registry
	dir      string
}

func (f *fakeBackend) State() state.SystemState { return f.st }

func (f *fakeBackend) SendCommand(tok string) error { f.sent = append(f.sent, tok); return nil }

func (f *fakeBackend) AppConfig() *config.Config { return f.cfg }

func (f *fakeBackend) Registry() *addons.Registry { return f.registry }

func (f *fakeBackend) HotkeyPath() string { return filepath.Join(f.dir, "hotkeys.json") }

func (f *fakeBackend) LaunchPath() string { return filepath.Join(f.dir, "mode-launch.json") }

func startTestServer(t *testing.T) (*fakeBackend, *Client, *Server) {
	t.Helper()

	dir := t.TempDir()
	backend := &fakeBackend{
		st:  state.SystemState{Mode: state.ModeMusic, Listening: true, ServiceRunning: true},
		cfg: config.DefaultConfig(),
		dir: dir,
	}
	backend.registry = addons.NewRegistry(
		filepath.Join(dir, "addons"), filepath.Join(dir, "addons.json"), nil, logger.New(logger.ERROR, "test"))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "addons"), 0o755))

	socket := filepath.Join(dir, "bridge.sock")
	srv := NewServer(socket, backend, logger.New(logger.ERROR, "test"))
	require.NoError(t, srv.Start())
	t.Cleanup(func() { srv.Stop() })

	return backend, NewClient(socket), srv
}

func TestStateRoundTrip(t *testing.T) {
	backend, client, _ := startTestServer(t)

	s, err := client.State(context.Background())
	require.NoError(t, err)
	assert.Equal(t, backend.st, s)
}

func TestSendCommandForwarded(t *testing.T) {
	backend, client, _ := startTestServer(t)

	require.NoError(t, client.SendCommand(context.Background(), "mode:claude"))
	assert.Equal(t, []string{"mode:claude"}, backend.sent)
}

func TestHotkeysOverBridge(t *testing.T) {
	_, client, _ := startTestServer(t)
	ctx := context.Background()

	bindings, err := client.Hotkeys(ctx)
	require.NoError(t, err)
	require.Contains(t, bindings, config.HotkeyToggle)

	b := bindings[config.HotkeyToggle]
	b.Key = "space"
	bindings[config.HotkeyToggle] = b
	require.NoError(t, client.SetHotkeys(ctx, bindings))

	reloaded, err := client.Hotkeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, "space", reloaded[config.HotkeyToggle].Key)
}

func TestLaunchRulesOverBridge(t *testing.T) {
	_, client, _ := startTestServer(t)
	ctx := context.Background()

	rules := map[string]config.ModeLaunchRule{
		"claude": {Enabled: true, ProcessName: "Claude", LaunchCommand: "open -a Claude"},
	}
	require.NoError(t, client.SetLaunchRules(ctx, rules))

	reloaded, err := client.LaunchRules(ctx)
	require.NoError(t, err)
	assert.Equal(t, rules, reloaded)
}

func TestAddonOperationsOverBridge(t *testing.T) {
	backend, client, _ := startTestServer(t)
	ctx := context.Background()

	root := backend.registry.Root()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pack"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pack", "index.js"), []byte("// x"), 0o644))

	list, err := client.ListAddons(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "pack", list[0].Name)

	require.NoError(t, client.SetAddonEnabled(ctx, "pack", false))
	list, err = client.ListAddons(ctx)
	require.NoError(t, err)
	assert.False(t, list[0].Enabled)

	require.NoError(t, client.RemoveAddon(ctx, "pack"))
	list, err = client.ListAddons(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func recvState(t *testing.T, updates <-chan state.SystemState) state.SystemState {
	t.Helper()
	select {
	case s, ok := <-updates:
		require.True(t, ok, "subscription closed early")
		return s
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for state push")
		return state.SystemState{}
	}
}

func TestStateSubscriptionReceivesPushes(t *testing.T) {
	backend, client, srv := startTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, err := client.SubscribeState(ctx)
	require.NoError(t, err)

	// current state arrives before any change
	assert.Equal(t, backend.st, recvState(t, updates))

	pushed := backend.st
	pushed.Listening = false
	pushed.Mode = state.ModeClaude
	srv.NotifyState(pushed)
	assert.Equal(t, pushed, recvState(t, updates))

	// a second push still reaches the same subscriber
	pushed.Speaking = true
	srv.NotifyState(pushed)
	assert.Equal(t, pushed, recvState(t, updates))
}

func TestStateSubscriptionClosesOnCancel(t *testing.T) {
	_, client, srv := startTestServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	updates, err := client.SubscribeState(ctx)
	require.NoError(t, err)
	recvState(t, updates)

	cancel()
	select {
	case _, ok := <-updates:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel never closed")
	}

	// pushing after the disconnect must not panic or block
	srv.NotifyState(state.SystemState{Mode: state.ModeGeneral})
}

func TestUnknownActionRejected(t *testing.T) {
	_, client, _ := startTestServer(t)

	_, err := client.call(context.Background(), "self-destruct", "", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrInvalidAction)
}

func TestSecondInstanceRefused(t *testing.T) {
	backend, client, _ := startTestServer(t)
	require.True(t, client.IsRunning(context.Background()))

	second := NewServer(filepath.Join(backend.dir, "bridge.sock"), backend, logger.New(logger.ERROR, "test"))
	err := second.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), ErrAlreadyRunning)
}
