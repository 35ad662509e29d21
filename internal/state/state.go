package state

// Mode is the active voice-command interpretation mode.
type Mode string

const (
	ModeGeneral Mode = "general"
	ModeMusic   Mode = "music"
	ModeClaude  Mode = "claude"
)

// ParseMode returns the Mode for s, or false if s is not a known mode.
func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeGeneral, ModeMusic, ModeClaude:
		return Mode(s), true
	}
	return "", false
}

// VisualState drives icon color and animation.
type VisualState string

const (
	VisualIdle       VisualState = "idle"
	VisualListening  VisualState = "listening"
	VisualSpeaking   VisualState = "speaking"
	VisualProcessing VisualState = "processing"
	VisualError      VisualState = "error"
	VisualDisabled   VisualState = "disabled"
)

// SystemState is the controller's authoritative copy of the shared state.
// Exactly one value per field is current at any instant.
type SystemState struct {
	Mode           Mode
	Listening      bool
	Speaking       bool
	Processing     bool
	ServiceRunning bool
	SmartMode      bool
	TTSEnabled     bool
	LastError      string
}

// Visual derives the displayed state. Speaking outranks processing
// outranks listening; a stopped service wins over everything.
func (s SystemState) Visual() VisualState {
	switch {
	case !s.ServiceRunning:
		return VisualDisabled
	case s.LastError != "":
		return VisualError
	case s.Speaking:
		return VisualSpeaking
	case s.Processing:
		return VisualProcessing
	case s.Listening:
		return VisualListening
	default:
		return VisualIdle
	}
}

// Animated reports whether v advances the frame clock.
func (v VisualState) Animated() bool {
	switch v {
	case VisualListening, VisualSpeaking, VisualProcessing:
		return true
	}
	return false
}

// Report is one status-file publication from the service process.
// Pointer fields distinguish "absent" from "false" so older services
// that omit a field never clobber controller state.
type Report struct {
	Listening         bool   `json:"listening"`
	Mode              string `json:"mode"`
	SmartCommandsOnly bool   `json:"smartCommandsOnly"`
	Speaking          *bool  `json:"speaking,omitempty"`
	Processing        *bool  `json:"processing,omitempty"`
	TTSEnabled        *bool  `json:"ttsEnabled,omitempty"`
}
