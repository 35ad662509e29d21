package launcher

import (
	"fmt"
	"os/exec"
	"sync"

	"voxbar/internal/config"
	"voxbar/internal/logger"
	"voxbar/internal/state"
)

// Launcher starts a companion app when a mode with an enabled launch
// rule is entered, skipping the launch when the process is already
// present.
type Launcher struct {
	rulesPath string
	log       logger.Logger

	mu       sync.Mutex
	lastMode state.Mode
	seeded   bool

	// stubbed in tests
	processRunning func(name string) bool
	launch         func(command string) error
}

func New(rulesPath string, log logger.Logger) *Launcher {
	return &Launcher{
		rulesPath:      rulesPath,
		log:            log,
		processRunning: processRunning,
		launch:         launch,
	}
}

// ObserveState is a reconciler observer: it applies launch rules on
// every observed mode transition, whether the change came from the
// menu, the CLI, or a service report. The first observation only seeds
// the previous mode, so startup never launches anything.
func (l *Launcher) ObserveState(s state.SystemState) {
	l.mu.Lock()
	prev, seeded := l.lastMode, l.seeded
	l.lastMode, l.seeded = s.Mode, true
	l.mu.Unlock()

	if !seeded || prev == s.Mode {
		return
	}
	l.OnModeEnter(s.Mode)
}

// OnModeEnter applies the launch rule for mode, if any.
func (l *Launcher) OnModeEnter(mode state.Mode) {
	rules, err := config.LoadLaunchRules(l.rulesPath)
	if err != nil {
		l.log.W("launch rules unreadable: %v", err)
		return
	}

	rule, ok := rules[string(mode)]
	if !ok || !rule.Enabled || rule.LaunchCommand == "" {
		return
	}

	if rule.ProcessName != "" && l.processRunning(rule.ProcessName) {
		l.log.D("mode %s: %s already running", mode, rule.ProcessName)
		return
	}

	l.log.I("mode %s: launching %q", mode, rule.LaunchCommand)
	if err := l.launch(rule.LaunchCommand); err != nil {
		l.log.W("mode %s launch failed: %v", mode, err)
	}
}

func processRunning(name string) bool {
	return exec.Command("pgrep", "-x", name).Run() == nil
}

// launch starts the command detached; the controller never waits on
// companion apps.
func launch(command string) error {
	cmd := exec.Command("sh", "-c", command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start %q: %w", command, err)
	}
	go cmd.Wait()
	return nil
}
