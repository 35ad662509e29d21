package channel

import (
	"context"
	"time"

	"voxbar/internal/logger"
	"voxbar/internal/state"
)

// DefaultPollInterval is the status-file read cadence.
const DefaultPollInterval = 300 * time.Millisecond

// Poller reads the status file on a fixed period and feeds each report
// to the reconciler. Read or parse failures are swallowed: the
// in-memory state keeps its last known good value.
type Poller struct {
	channel    *Channel
	reconciler *state.Reconciler
	interval   time.Duration
	log        logger.Logger

	// consecutive read failures before the service is considered gone
	missThreshold int
	misses        int
}

func NewPoller(ch *Channel, rec *state.Reconciler, interval time.Duration, log logger.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Poller{
		channel:       ch,
		reconciler:    rec,
		interval:      interval,
		log:           log,
		missThreshold: 10,
	}
}

// Run polls until ctx is cancelled. Blocking; callers run it in a
// goroutine.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.D("poller stopped")
			return
		case <-ticker.C:
			p.Tick()
		}
	}
}

// Tick performs one read-diff-apply pass. Exported so tests and the
// controller can drive polls without the ticker.
func (p *Poller) Tick() {
	rep, err := p.channel.ReadStatus()
	if err != nil {
		p.misses++
		p.log.D("status read failed (%d consecutive): %v", p.misses, err)
		if p.misses == p.missThreshold {
			p.log.W("status file unreadable for %d polls, marking service down", p.misses)
			p.reconciler.SetServiceRunning(false)
		}
		return
	}

	p.misses = 0
	p.reconciler.ApplyReport(rep)
}
