package bridge

import (
	"encoding/json"
	"time"
)

// Request is one settings-surface call to the controller.
type Request struct {
	ID        string          `json:"id"`                // unique identifier for request correlation
	Action    string          `json:"action"`            // one of the Action* constants
	Name      string          `json:"name,omitempty"`    // addon name for addon-scoped actions
	Payload   json.RawMessage `json:"payload,omitempty"` // action-specific body
	Timestamp time.Time       `json:"timestamp"`
}

// Response is the controller's reply.
type Response struct {
	ID      string          `json:"id"`              // matches request id
	Success bool            `json:"success"`         // whether the action succeeded
	Error   string          `json:"error,omitempty"` // error message if failed
	Data    json.RawMessage `json:"data,omitempty"`  // action-specific result
}

// Bridge actions.
const (
	ActionGetState         = "get-state"
	ActionSubscribeState   = "subscribe-state"
	ActionSendCommand      = "send-command"
	ActionGetConfig        = "get-config"
	ActionListAddons       = "list-addons"
	ActionGetAddonSettings = "get-addon-settings"
	ActionSetAddonSettings = "set-addon-settings"
	ActionGetHotkeys       = "get-hotkeys"
	ActionSetHotkeys       = "set-hotkeys"
	ActionGetLaunchRules   = "get-launch-rules"
	ActionSetLaunchRules   = "set-launch-rules"
	ActionRemoveAddon      = "remove-addon"
	ActionEnableAddon      = "enable-addon"
	ActionDisableAddon     = "disable-addon"
	ActionImportLocal      = "import-local"
	ActionImportRemote     = "import-remote"
	ActionExportAddon      = "export-addon"
)

// DefaultSocketPath is where the controller binds; the bound socket
// doubles as the single-instance guard.
const DefaultSocketPath = "/tmp/voxbar.sock"

// Error messages shared across client and server.
const (
	ErrInvalidAction  = "invalid action"
	ErrAlreadyRunning = "another controller instance is running"
)
