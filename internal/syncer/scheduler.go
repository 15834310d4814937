package syncer

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/avetrov/ledgerkeep/internal/ledger"
)

// syncRunner is the slice of the engine the scheduler drives; it lets tests
// substitute a counting fake.
type syncRunner interface {
	Sync(ctx context.Context) (*Result, error)
}

// Scheduler watches ledger change events and runs sync cycles after a quiet
// window. It is a single-slot pending-work loop: events arriving while the
// window is open restart it, events arriving during a running sync collapse
// into exactly one follow-up cycle, and nothing queues beyond that.
type Scheduler struct {
	runner syncRunner
	events <-chan ledger.Event
	cancel func()
	delay  time.Duration
	log    zerolog.Logger
	done   chan struct{}
}

// NewScheduler subscribes to the store and returns a scheduler that debounces
// change events over delay before invoking the engine.
func NewScheduler(runner syncRunner, store *ledger.Store, delay time.Duration, log zerolog.Logger) *Scheduler {
	events, unsubscribe := store.Subscribe(64)
	return &Scheduler{
		runner: runner,
		events: events,
		cancel: unsubscribe,
		delay:  delay,
		log:    log,
		done:   make(chan struct{}),
	}
}

// Run drives the loop until ctx is cancelled. Sync failures are logged and
// left for the next cycle; local state stays authoritative.
func (s *Scheduler) Run(ctx context.Context) {
	defer close(s.done)
	defer s.cancel()

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-s.events:
			if !ok {
				return
			}
			// The engine's own install publishes EventSyncApplied; re-arming
			// on it would turn every completed cycle into the next one.
			if ev.Kind == ledger.EventSyncApplied {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(s.delay)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(s.delay)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if _, err := s.runner.Sync(ctx); err != nil {
				s.log.Warn().Err(err).Msg("scheduled sync failed, will retry on next change")
			}
		}
	}
}

// Wait blocks until the loop has exited.
func (s *Scheduler) Wait() {
	<-s.done
}
