package controller

import (
	"fmt"
	"os/exec"
	"sync"

	"voxbar/internal/logger"
	"voxbar/internal/state"
)

// ServiceManager supervises the external service process when the
// controller is configured to own its lifecycle. With no configured
// command the service is assumed externally managed and liveness
// comes from status-file reads alone.
type ServiceManager struct {
	command    string
	reconciler *state.Reconciler
	log        logger.Logger

	mu   sync.Mutex
	proc *exec.Cmd
}

func NewServiceManager(command string, rec *state.Reconciler, log logger.Logger) *ServiceManager {
	return &ServiceManager{
		command:    command,
		reconciler: rec,
		log:        log,
	}
}

// Managed reports whether the controller owns the service lifecycle.
func (m *ServiceManager) Managed() bool {
	return m.command != ""
}

// Start launches the service process and watches for its exit.
func (m *ServiceManager) Start() error {
	if !m.Managed() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.proc != nil {
		return fmt.Errorf("service already started")
	}

	cmd := exec.Command("sh", "-c", m.command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}

	m.proc = cmd
	m.log.I("service started (pid %d)", cmd.Process.Pid)

	go m.watch(cmd)
	return nil
}

func (m *ServiceManager) watch(cmd *exec.Cmd) {
	err := cmd.Wait()

	m.mu.Lock()
	expected := m.proc != cmd // Stop already detached it
	if !expected {
		m.proc = nil
	}
	m.mu.Unlock()

	if expected {
		return
	}

	if err != nil {
		m.log.E("service exited unexpectedly: %v", err)
		m.reconciler.SetError(fmt.Sprintf("service exited: %v", err))
	} else {
		m.log.W("service exited")
	}
	m.reconciler.SetServiceRunning(false)
}

// Stop terminates a managed service process.
func (m *ServiceManager) Stop() {
	m.mu.Lock()
	proc := m.proc
	m.proc = nil
	m.mu.Unlock()

	if proc == nil || proc.Process == nil {
		return
	}

	m.log.D("stopping service (pid %d)", proc.Process.Pid)
	if err := proc.Process.Kill(); err != nil {
		m.log.W("failed to kill service: %v", err)
	}
	m.reconciler.SetServiceRunning(false)
}

// Restart stops any managed process and starts a fresh one, clearing
// a sticky error state.
func (m *ServiceManager) Restart() error {
	m.Stop()
	m.reconciler.ClearError()
	return m.Start()
}
