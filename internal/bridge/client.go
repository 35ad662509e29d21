package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"voxbar/internal/addons"
	"voxbar/internal/config"
	"voxbar/internal/state"
)

// Client talks to a running controller's settings bridge. Used by the
// CLI subcommands and by the secondary settings UI.
type Client struct {
	socketPath string
	timeout    time.Duration
}

func NewClient(socketPath string) *Client {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Client{
		socketPath: socketPath,
		timeout:    10 * time.Second,
	}
}

func (c *Client) call(ctx context.Context, action, name string, payload interface{}) (json.RawMessage, error) {
	req := Request{
		ID:        uuid.New().String(),
		Action:    action,
		Name:      name,
		Timestamp: time.Now(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request payload: %w", err)
		}
		req.Payload = data
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(timeoutCtx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to controller: %w", err)
	}
	defer conn.Close()

	if deadline, ok := timeoutCtx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("failed to set connection deadline: %w", err)
		}
	}

	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to receive response: %w", err)
	}

	if resp.ID != req.ID {
		return nil, fmt.Errorf("response ID mismatch")
	}
	if !resp.Success {
		return nil, fmt.Errorf("%s", resp.Error)
	}
	return resp.Data, nil
}

// IsRunning reports whether a controller holds the bridge socket.
func (c *Client) IsRunning(ctx context.Context) bool {
	testCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(testCtx, "unix", c.socketPath)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (c *Client) State(ctx context.Context) (state.SystemState, error) {
	var s state.SystemState
	data, err := c.call(ctx, ActionGetState, "", nil)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

// SubscribeState opens a held connection receiving a state snapshot on
// every controller state change; the current state arrives first. The
// channel closes when ctx is cancelled or the controller goes away.
func (c *Client) SubscribeState(ctx context.Context) (<-chan state.SystemState, error) {
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to controller: %w", err)
	}

	req := Request{
		ID:        uuid.New().String(),
		Action:    ActionSubscribeState,
		Timestamp: time.Now(),
	}
	if err := json.NewEncoder(conn).Encode(&req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	updates := make(chan state.SystemState, 8)

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	go func() {
		defer close(updates)
		defer conn.Close()

		dec := json.NewDecoder(conn)
		for {
			var resp Response
			if err := dec.Decode(&resp); err != nil {
				return
			}
			if resp.ID != req.ID || !resp.Success {
				return
			}
			var s state.SystemState
			if err := json.Unmarshal(resp.Data, &s); err != nil {
				return
			}
			select {
			case updates <- s:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}

func (c *Client) SendCommand(ctx context.Context, token string) error {
	_, err := c.call(ctx, ActionSendCommand, "", token)
	return err
}

func (c *Client) AppConfig(ctx context.Context) (*config.Config, error) {
	data, err := c.call(ctx, ActionGetConfig, "", nil)
	if err != nil {
		return nil, err
	}
	var cfg config.Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) ListAddons(ctx context.Context) ([]addons.Descriptor, error) {
	data, err := c.call(ctx, ActionListAddons, "", nil)
	if err != nil {
		return nil, err
	}
	var list []addons.Descriptor
	err = json.Unmarshal(data, &list)
	return list, err
}

func (c *Client) AddonSettings(ctx context.Context, name string) (config.AddonSettings, error) {
	var s config.AddonSettings
	data, err := c.call(ctx, ActionGetAddonSettings, name, nil)
	if err != nil {
		return s, err
	}
	err = json.Unmarshal(data, &s)
	return s, err
}

func (c *Client) SetAddonSettings(ctx context.Context, name string, overlay config.AddonSettingsOverlay) error {
	_, err := c.call(ctx, ActionSetAddonSettings, name, overlay)
	return err
}

func (c *Client) Hotkeys(ctx context.Context) (map[string]config.HotkeyBinding, error) {
	data, err := c.call(ctx, ActionGetHotkeys, "", nil)
	if err != nil {
		return nil, err
	}
	var bindings map[string]config.HotkeyBinding
	err = json.Unmarshal(data, &bindings)
	return bindings, err
}

func (c *Client) SetHotkeys(ctx context.Context, bindings map[string]config.HotkeyBinding) error {
	_, err := c.call(ctx, ActionSetHotkeys, "", bindings)
	return err
}

func (c *Client) LaunchRules(ctx context.Context) (map[string]config.ModeLaunchRule, error) {
	data, err := c.call(ctx, ActionGetLaunchRules, "", nil)
	if err != nil {
		return nil, err
	}
	var rules map[string]config.ModeLaunchRule
	err = json.Unmarshal(data, &rules)
	return rules, err
}

func (c *Client) SetLaunchRules(ctx context.Context, rules map[string]config.ModeLaunchRule) error {
	_, err := c.call(ctx, ActionSetLaunchRules, "", rules)
	return err
}

func (c *Client) RemoveAddon(ctx context.Context, name string) error {
	_, err := c.call(ctx, ActionRemoveAddon, name, nil)
	return err
}

func (c *Client) SetAddonEnabled(ctx context.Context, name string, enabled bool) error {
	action := ActionEnableAddon
	if !enabled {
		action = ActionDisableAddon
	}
	_, err := c.call(ctx, action, name, nil)
	return err
}

func (c *Client) ImportLocalAddon(ctx context.Context, path string) (addons.Descriptor, error) {
	var d addons.Descriptor
	data, err := c.call(ctx, ActionImportLocal, "", path)
	if err != nil {
		return d, err
	}
	err = json.Unmarshal(data, &d)
	return d, err
}

func (c *Client) ImportRemoteAddon(ctx context.Context, url string) (addons.Descriptor, error) {
	var d addons.Descriptor
	data, err := c.call(ctx, ActionImportRemote, "", url)
	if err != nil {
		return d, err
	}
	err = json.Unmarshal(data, &d)
	return d, err
}

func (c *Client) ExportAddon(ctx context.Context, name, dest string) error {
	_, err := c.call(ctx, ActionExportAddon, name, dest)
	return err
}
