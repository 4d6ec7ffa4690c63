package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultSweepInterval is how often the sweeper re-checks the clock.
const DefaultSweepInterval = 60 * time.Second

// Sweeper periodically drives the time-based transitions of a Tracker and
// rolls the routine over when the date changes.
type Sweeper struct {
	mu       sync.RWMutex
	tracker  *Tracker
	interval time.Duration
	logger   *slog.Logger
	hooks    []func(context.Context)
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewSweeper(t *Tracker, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{
		tracker:  t,
		interval: interval,
		logger:   logger,
	}
}

// OnTick registers fn to run after every sweep.
func (s *Sweeper) OnTick(fn func(context.Context)) {
	s.mu.Lock()
	s.hooks = append(s.hooks, fn)
	s.mu.Unlock()
}

// Start runs one sweep immediately and then one per interval until ctx is
// cancelled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.Tick(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *Sweeper) Stop() {
	s.mu.RLock()
	cancel := s.cancel
	done := s.done
	s.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

// Tick runs one sweep. The previous day's routine is finished off (ended
// blocks and its night of sleep) before today's routine replaces it.
func (s *Sweeper) Tick(ctx context.Context) {
	t := s.tracker

	n := t.CheckAutoComplete()
	if t.CompleteSleepIfNeeded() {
		s.logger.Info("sleep completed")
	}

	if !t.HasRoutineFor(t.clock.Now()) {
		t.Regenerate(t.Profile())
		n += t.CheckAutoComplete()
	}

	if t.CheckWakeUp() {
		s.logger.Info("wake up completed")
	}
	if n > 0 {
		s.logger.Debug("auto-completed blocks", "count", n)
	}

	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()
	for _, fn := range hooks {
		fn(ctx)
	}
}
