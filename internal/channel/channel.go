package channel

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"voxbar/internal/state"
)

// Command tokens understood by the service process. The command file
// holds at most one token; a new write replaces any unconsumed prior
// command (at-most-once, best-effort).
const (
	CmdToggle       = "toggle"
	CmdStart        = "start"
	CmdStop         = "stop"
	CmdSyncTTS      = "sync-tts"
	CmdReloadAddons = "reload-addons"
)

// ModeCommand builds the mode-change token for m.
func ModeCommand(m state.Mode) string {
	return "mode:" + string(m)
}

// Channel is the file pair shared with the service process: the status
// file (service -> controller) and the command file (controller ->
// service). Neither side holds a lock; writes are wholesale.
type Channel struct {
	statusPath  string
	commandPath string
}

func New(statusPath, commandPath string) *Channel {
	return &Channel{
		statusPath:  statusPath,
		commandPath: commandPath,
	}
}

// ReadStatus parses the current status file. Callers treat any error
// as "keep last known good"; an absent or malformed file never resets
// state.
func (c *Channel) ReadStatus() (state.Report, error) {
	var rep state.Report

	data, err := os.ReadFile(c.statusPath)
	if err != nil {
		return rep, fmt.Errorf("failed to read status file: %w", err)
	}

	if err := json.Unmarshal(data, &rep); err != nil {
		return rep, fmt.Errorf("failed to parse status file: %w", err)
	}

	return rep, nil
}

// Send overwrites the command file with a single token. The channel
// has no queue and no acknowledgment; the controller never blocks on
// delivery.
func (c *Channel) Send(cmd string) error {
	if err := os.MkdirAll(filepath.Dir(c.commandPath), 0o755); err != nil {
		return fmt.Errorf("failed to create channel directory: %w", err)
	}

	if err := os.WriteFile(c.commandPath, []byte(cmd), 0o644); err != nil {
		return fmt.Errorf("failed to write command file: %w", err)
	}

	return nil
}
