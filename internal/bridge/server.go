package bridge

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"sync"
	"time"

	"voxbar/internal/addons"
	"voxbar/internal/config"
	"voxbar/internal/logger"
	"voxbar/internal/state"
)

const connectionDeadline = 30 * time.Second

// Backend is what the controller exposes to the settings surface.
type Backend interface {
	State() state.SystemState
	SendCommand(token string) error
	AppConfig() *config.Config
	Registry() *addons.Registry
	HotkeyPath() string
	LaunchPath() string
}

// Server is the settings-bridge endpoint: a unix socket speaking
// newline-less JSON request/response, one request per connection.
// A subscribe-state request instead holds its connection open and
// receives a state snapshot push on every controller state change.
type Server struct {
	socketPath string
	listener   net.Listener
	backend    Backend
	log        logger.Logger

	mu      sync.Mutex
	running bool
	done    chan struct{}

	subMu sync.Mutex
	subs  map[net.Conn]*subscription
}

// subscription is one held-open settings-surface connection. Pushes
// reuse the subscribing request's ID for correlation.
type subscription struct {
	id  string
	enc *json.Encoder
}

func NewServer(socketPath string, backend Backend, log logger.Logger) *Server {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	return &Server{
		socketPath: socketPath,
		backend:    backend,
		log:        log,
		subs:       make(map[net.Conn]*subscription),
	}
}

// Start binds the socket. A live controller on the same socket makes
// Start fail with ErrAlreadyRunning: the socket is the single-instance
// guard, so two controllers never race on the same config files.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	if conn, err := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond); err == nil {
		conn.Close()
		return fmt.Errorf("%s", ErrAlreadyRunning)
	}

	// stale socket from a crashed instance
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.log.W("failed to remove stale socket: %v", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to bind bridge socket: %w", err)
	}

	s.listener = listener
	s.running = true
	s.done = make(chan struct{})

	go s.acceptConnections(s.done)

	s.log.D("bridge listening on %s", s.socketPath)
	return nil
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	close(s.done)
	if err := s.listener.Close(); err != nil {
		s.log.E("failed to close bridge listener: %v", err)
	}

	s.subMu.Lock()
	for conn := range s.subs {
		conn.Close()
	}
	s.subs = make(map[net.Conn]*subscription)
	s.subMu.Unlock()
	if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
		s.log.W("failed to remove bridge socket: %v", err)
	}

	s.running = false
	return nil
}

func (s *Server) acceptConnections(done chan struct{}) {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-done:
				return
			default:
				s.log.W("bridge accept failed: %v", err)
				continue
			}
		}
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(connectionDeadline)); err != nil {
		s.log.W("failed to set connection deadline: %v", err)
	}

	var req Request
	if err := json.NewDecoder(conn).Decode(&req); err != nil {
		s.log.W("bridge request decode failed: %v", err)
		return
	}

	if req.Action == ActionSubscribeState {
		s.serveSubscription(conn, req)
		return
	}

	resp := s.dispatch(req)
	if err := json.NewEncoder(conn).Encode(&resp); err != nil {
		s.log.W("bridge response encode failed: %v", err)
	}
}

// serveSubscription registers conn for state pushes and blocks until
// the subscriber disconnects. The current state is sent immediately so
// a settings surface never opens on a stale view.
func (s *Server) serveSubscription(conn net.Conn, req Request) {
	if err := conn.SetDeadline(time.Time{}); err != nil {
		s.log.W("failed to clear subscriber deadline: %v", err)
	}

	sub := &subscription{id: req.ID, enc: json.NewEncoder(conn)}

	s.subMu.Lock()
	data, err := json.Marshal(s.backend.State())
	if err == nil {
		err = sub.enc.Encode(&Response{ID: sub.id, Success: true, Data: data})
	}
	if err == nil {
		s.subs[conn] = sub
	}
	s.subMu.Unlock()

	if err != nil {
		s.log.W("state subscription setup failed: %v", err)
		return
	}
	s.log.D("settings surface subscribed to state")

	// subscribers never send again; the next read returning is the
	// disconnect signal
	var discard Request
	json.NewDecoder(conn).Decode(&discard)

	s.subMu.Lock()
	delete(s.subs, conn)
	s.subMu.Unlock()
	s.log.D("settings surface unsubscribed")
}

// NotifyState pushes a state snapshot to every subscribed settings
// surface. Called by the controller's reconciler observer; a dead
// subscriber is dropped on write failure.
func (s *Server) NotifyState(st state.SystemState) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if len(s.subs) == 0 {
		return
	}

	data, err := json.Marshal(st)
	if err != nil {
		s.log.E("failed to marshal state push: %v", err)
		return
	}

	for conn, sub := range s.subs {
		if err := sub.enc.Encode(&Response{ID: sub.id, Success: true, Data: data}); err != nil {
			s.log.D("dropping state subscriber: %v", err)
			conn.Close()
			delete(s.subs, conn)
		}
	}
}

func (s *Server) dispatch(req Request) Response {
	s.log.D("bridge request: %s", req.Action)

	data, err := s.handle(req)
	if err != nil {
		return Response{ID: req.ID, Success: false, Error: err.Error()}
	}
	return Response{ID: req.ID, Success: true, Data: data}
}

func (s *Server) handle(req Request) (json.RawMessage, error) {
	switch req.Action {
	case ActionGetState:
		return marshal(s.backend.State())

	case ActionSendCommand:
		var token string
		if err := json.Unmarshal(req.Payload, &token); err != nil {
			return nil, fmt.Errorf("invalid command payload: %w", err)
		}
		return nil, s.backend.SendCommand(token)

	case ActionGetConfig:
		return marshal(s.backend.AppConfig())

	case ActionListAddons:
		return marshal(s.backend.Registry().List())

	case ActionGetAddonSettings:
		settings, err := s.backend.Registry().SettingsFor(req.Name)
		if err != nil {
			return nil, err
		}
		return marshal(settings)

	case ActionSetAddonSettings:
		var overlay config.AddonSettingsOverlay
		if err := json.Unmarshal(req.Payload, &overlay); err != nil {
			return nil, fmt.Errorf("invalid settings payload: %w", err)
		}
		return nil, s.backend.Registry().SaveSettings(req.Name, overlay)

	case ActionGetHotkeys:
		bindings, err := config.LoadHotkeys(s.backend.HotkeyPath())
		if err != nil {
			return nil, err
		}
		return marshal(bindings)

	case ActionSetHotkeys:
		var bindings map[string]config.HotkeyBinding
		if err := json.Unmarshal(req.Payload, &bindings); err != nil {
			return nil, fmt.Errorf("invalid hotkeys payload: %w", err)
		}
		return nil, config.SaveHotkeys(s.backend.HotkeyPath(), bindings)

	case ActionGetLaunchRules:
		rules, err := config.LoadLaunchRules(s.backend.LaunchPath())
		if err != nil {
			return nil, err
		}
		return marshal(rules)

	case ActionSetLaunchRules:
		var rules map[string]config.ModeLaunchRule
		if err := json.Unmarshal(req.Payload, &rules); err != nil {
			return nil, fmt.Errorf("invalid launch rules payload: %w", err)
		}
		return nil, config.SaveLaunchRules(s.backend.LaunchPath(), rules)

	case ActionRemoveAddon:
		return nil, s.backend.Registry().Remove(req.Name)

	case ActionEnableAddon:
		return nil, s.backend.Registry().SetEnabled(req.Name, true)

	case ActionDisableAddon:
		return nil, s.backend.Registry().SetEnabled(req.Name, false)

	case ActionImportLocal:
		var path string
		if err := json.Unmarshal(req.Payload, &path); err != nil {
			return nil, fmt.Errorf("invalid import payload: %w", err)
		}
		d, err := s.backend.Registry().ImportLocal(path)
		if err != nil {
			return nil, err
		}
		return marshal(d)

	case ActionImportRemote:
		var url string
		if err := json.Unmarshal(req.Payload, &url); err != nil {
			return nil, fmt.Errorf("invalid import payload: %w", err)
		}
		d, err := s.backend.Registry().ImportRemote(url)
		if err != nil {
			return nil, err
		}
		return marshal(d)

	case ActionExportAddon:
		var dest string
		if err := json.Unmarshal(req.Payload, &dest); err != nil {
			return nil, fmt.Errorf("invalid export payload: %w", err)
		}
		return nil, s.backend.Registry().ExportZip(req.Name, dest)
	}

	return nil, fmt.Errorf("%s: %s", ErrInvalidAction, req.Action)
}

func marshal(v interface{}) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return data, nil
}
