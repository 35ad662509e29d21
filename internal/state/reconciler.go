package state

import (
	"sync"
	"time"

	"voxbar/internal/logger"
)

// DefaultDebounceWindow is how long a locally-set value outranks
// service reports for the same field.
const DefaultDebounceWindow = 1000 * time.Millisecond

type field int

const (
	fieldMode field = iota
	fieldListening
	fieldTTS
	fieldSmart
)

// Reconciler owns the controller's SystemState and arbitrates between
// locally-initiated changes and service-reported ones. Local setters
// stamp their field; ApplyReport ignores reported values for a field
// whose stamp is still inside the debounce window. Every local change
// resets the stamp for its field.
type Reconciler struct {
	mu        sync.Mutex
	cur       SystemState
	localSet  map[field]time.Time
	window    time.Duration
	now       func() time.Time
	observers []func(SystemState)
	log       logger.Logger
}

func NewReconciler(window time.Duration, log logger.Logger) *Reconciler {
	if window <= 0 {
		window = DefaultDebounceWindow
	}
	return &Reconciler{
		cur:      SystemState{Mode: ModeGeneral},
		localSet: make(map[field]time.Time),
		window:   window,
		now:      time.Now,
		log:      log,
	}
}

// OnChange registers an observer invoked (outside the lock) whenever
// the state actually changes.
func (r *Reconciler) OnChange(fn func(SystemState)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, fn)
}

// Current returns a snapshot of the authoritative state.
func (r *Reconciler) Current() SystemState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cur
}

// notify runs outside the state lock; the slice is snapshotted under
// it so observers may register concurrently with updates.
func (r *Reconciler) notify(s SystemState) {
	r.mu.Lock()
	observers := make([]func(SystemState), len(r.observers))
	copy(observers, r.observers)
	r.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

func (r *Reconciler) setLocal(f field, apply func(*SystemState)) {
	r.mu.Lock()
	before := r.cur
	apply(&r.cur)
	r.localSet[f] = r.now()
	changed := r.cur != before
	snapshot := r.cur
	r.mu.Unlock()

	if changed {
		r.notify(snapshot)
	}
}

func (r *Reconciler) debounced(f field) bool {
	t0, ok := r.localSet[f]
	if !ok {
		return false
	}
	return r.now().Sub(t0) < r.window
}

// SetMode records a locally-initiated mode change.
func (r *Reconciler) SetMode(m Mode) {
	r.setLocal(fieldMode, func(s *SystemState) { s.Mode = m })
}

// SetListening records a locally-initiated listening toggle.
func (r *Reconciler) SetListening(on bool) {
	r.setLocal(fieldListening, func(s *SystemState) { s.Listening = on })
}

// SetTTS records a locally-initiated TTS toggle.
func (r *Reconciler) SetTTS(on bool) {
	r.setLocal(fieldTTS, func(s *SystemState) { s.TTSEnabled = on })
}

// SetSmartMode records a locally-initiated smart-mode toggle.
func (r *Reconciler) SetSmartMode(on bool) {
	r.setLocal(fieldSmart, func(s *SystemState) { s.SmartMode = on })
}

// SetServiceRunning reflects service process liveness. Not debounced:
// the controller is the only writer.
func (r *Reconciler) SetServiceRunning(running bool) {
	r.mu.Lock()
	before := r.cur
	r.cur.ServiceRunning = running
	if !running {
		r.cur.Listening = false
		r.cur.Speaking = false
		r.cur.Processing = false
	}
	changed := r.cur != before
	snapshot := r.cur
	r.mu.Unlock()

	if changed {
		r.notify(snapshot)
	}
}

// SetError marks a sticky error condition shown until cleared.
func (r *Reconciler) SetError(msg string) {
	r.mu.Lock()
	changed := r.cur.LastError != msg
	r.cur.LastError = msg
	snapshot := r.cur
	r.mu.Unlock()

	if changed {
		r.notify(snapshot)
	}
}

func (r *Reconciler) ClearError() {
	r.SetError("")
}

// ApplyReport merges one service status report into the authoritative
// state. Fields inside their debounce window keep the local value.
// A report implies the service is alive. Returns whether anything
// changed.
func (r *Reconciler) ApplyReport(rep Report) bool {
	r.mu.Lock()
	before := r.cur

	r.cur.ServiceRunning = true

	if !r.debounced(fieldMode) {
		if m, ok := ParseMode(rep.Mode); ok {
			r.cur.Mode = m
		} else if rep.Mode != "" && r.log != nil {
			r.log.D("ignoring unknown reported mode %q", rep.Mode)
		}
	}
	if !r.debounced(fieldListening) {
		r.cur.Listening = rep.Listening
	}
	if !r.debounced(fieldSmart) {
		r.cur.SmartMode = rep.SmartCommandsOnly
	}
	if rep.TTSEnabled != nil && !r.debounced(fieldTTS) {
		r.cur.TTSEnabled = *rep.TTSEnabled
	}
	if rep.Speaking != nil {
		r.cur.Speaking = *rep.Speaking
	}
	if rep.Processing != nil {
		r.cur.Processing = *rep.Processing
	}

	changed := r.cur != before
	snapshot := r.cur
	r.mu.Unlock()

	if changed {
		r.notify(snapshot)
	}
	return changed
}
