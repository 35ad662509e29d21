package icon

import (
	"sync"
	"time"
)

// DefaultFrameInterval is the animation clock period.
const DefaultFrameInterval = 80 * time.Millisecond

// Animator is the single periodic timer driving frame advancement
// while an animated visual state is displayed. Stop halts the clock
// entirely and resets the frame to 0, so re-entering an animated
// state always starts from a known pose.
type Animator struct {
	mu       sync.Mutex
	interval time.Duration
	frame    int
	running  bool
	stop     chan struct{}
	onFrame  func(frame int)
}

// NewAnimator creates a stopped animator. onFrame is invoked from the
// clock goroutine on every advance and once with frame 0 on Start.
func NewAnimator(interval time.Duration, onFrame func(int)) *Animator {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &Animator{
		interval: interval,
		onFrame:  onFrame,
	}
}

// Frame returns the current frame index in [0, FrameCount).
func (a *Animator) Frame() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.frame
}

// Running reports whether the clock is ticking.
func (a *Animator) Running() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

// Start begins the clock at frame 0. Starting a running animator is a
// no-op; the cycle is never restarted mid-flight.
func (a *Animator) Start() {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	a.frame = 0
	a.running = true
	a.stop = make(chan struct{})
	stop := a.stop
	a.mu.Unlock()

	if a.onFrame != nil {
		a.onFrame(0)
	}

	go a.run(stop)
}

// Stop halts the clock and resets the frame to 0.
func (a *Animator) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	close(a.stop)
	a.frame = 0
	a.mu.Unlock()
}

func (a *Animator) run(stop chan struct{}) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a.mu.Lock()
			if !a.running {
				a.mu.Unlock()
				return
			}
			a.frame = (a.frame + 1) % FrameCount
			frame := a.frame
			a.mu.Unlock()

			if a.onFrame != nil {
				a.onFrame(frame)
			}
		}
	}
}
