package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/tgrozenski/agent-email/internal/email/usecase"
)

// Renewer re-registers every user's mailbox watch.
type Renewer interface {
	RenewAll(ctx context.Context) (usecase.RenewSummary, error)
}

// WatchScheduler renews Gmail watches on a fixed interval. Gmail expires a
// watch after seven days, so the interval must stay well below that.
type WatchScheduler struct {
	renewer  Renewer
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewWatchScheduler creates a new scheduler. Each run is bounded by timeout.
func NewWatchScheduler(renewer Renewer, interval, timeout time.Duration) *WatchScheduler {
	return &WatchScheduler{
		renewer:  renewer,
		interval: interval,
		timeout:  timeout,
		stopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the scheduler loop. A non-positive interval disables it.
func (s *WatchScheduler) Start() {
	if s.interval <= 0 {
		log.Println("[WatchScheduler] Interval not set, scheduler disabled")
		close(s.done)
		return
	}

	log.Printf("[WatchScheduler] Starting watch renewal scheduler (interval: %s)", s.interval)

	go func() {
		defer close(s.done)

		// Run immediately on start
		s.runOnce()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runOnce()
			case <-s.stopChan:
				log.Println("[WatchScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop halts the loop and waits for a running renewal to finish.
func (s *WatchScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
	<-s.done
}

func (s *WatchScheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	summary, err := s.renewer.RenewAll(ctx)
	if err != nil {
		log.Printf("[WatchScheduler] Renewal run failed: %v", err)
		return
	}
	log.Printf("[WatchScheduler] Renewal run finished: %d succeeded, %d failed of %d", summary.Succeeded, summary.Failed, summary.Total)
}
