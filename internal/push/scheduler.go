package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/dukerupert/daybreak/internal/clock"
	"github.com/dukerupert/daybreak/internal/model"
)

// DefaultLead is how far ahead of a block's start its reminder goes out.
const DefaultLead = 5 * time.Minute

const sentRetention = 7 * 24 * time.Hour

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error
}

// SubscriptionStore lists subscribers and deduplicates reminders.
type SubscriptionStore interface {
	List() ([]model.PushSubscription, error)
	DeleteByEndpoint(endpoint string) error
	WasSent(notifType, refID string) (bool, error)
	RecordSent(notifType, refID string) error
	CleanupSent(before time.Time) error
}

// RoutineSource exposes today's routine.
type RoutineSource interface {
	Routine() model.DailyRoutine
}

// Scheduler sends one "up next" reminder per pending block per day.
type Scheduler struct {
	mu       sync.RWMutex
	sender   Sender
	subs     SubscriptionStore
	routine  RoutineSource
	clock    clock.Clock
	lead     time.Duration
	interval time.Duration
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

func NewScheduler(sender Sender, subs SubscriptionStore, routine RoutineSource, clk clock.Clock, lead time.Duration, logger *slog.Logger) *Scheduler {
	if lead <= 0 {
		lead = DefaultLead
	}
	return &Scheduler{
		sender:   sender,
		subs:     subs,
		routine:  routine,
		clock:    clk,
		lead:     lead,
		interval: 60 * time.Second,
		logger:   logger,
	}
}

// Start begins the scheduler loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

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

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
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

// Tick sends reminders for pending blocks starting within the lead time and
// returns how many blocks were announced.
func (s *Scheduler) Tick(ctx context.Context) int {
	now := s.clock.Now()
	r := s.routine.Routine()

	if now.Minute() == 0 {
		if err := s.subs.CleanupSent(now.Add(-sentRetention)); err != nil {
			s.logger.Error("cleanup sent reminders", "error", err)
		}
	}

	var subs []model.PushSubscription
	loaded := false
	announced := 0

	for _, b := range r.Blocks {
		if b.IsCompleted {
			continue
		}
		start := b.StartOn(r.Date)
		until := start.Sub(now)
		if until <= 0 || until > s.lead {
			continue
		}

		refID := clock.DateKey(r.Date) + "/" + b.ID
		sent, err := s.subs.WasSent(model.NotifTypeBlockReminder, refID)
		if err != nil {
			s.logger.Error("check sent reminder", "ref", refID, "error", err)
			continue
		}
		if sent {
			continue
		}

		if !loaded {
			subs, err = s.subs.List()
			if err != nil {
				s.logger.Error("list push subscriptions", "error", err)
				return announced
			}
			loaded = true
		}

		payload := Payload{
			Title: "Up next: " + b.DisplayName(),
			Body:  fmt.Sprintf("Starts at %s (%d min)", b.Start(), b.DurationMinutes()),
			URL:   "/routine",
			Tag:   "block-" + b.ID,
		}
		for i := range subs {
			s.deliver(ctx, &subs[i], payload)
		}

		if err := s.subs.RecordSent(model.NotifTypeBlockReminder, refID); err != nil {
			s.logger.Error("record sent reminder", "ref", refID, "error", err)
		}
		announced++
	}
	return announced
}

func (s *Scheduler) deliver(ctx context.Context, sub *model.PushSubscription, payload Payload) {
	err := s.sender.Send(ctx, sub, payload)
	if err == nil {
		return
	}
	if errors.Is(err, ErrExpired) {
		s.logger.Info("removing expired push subscription", "device", sub.DeviceName)
		if err := s.subs.DeleteByEndpoint(sub.Endpoint); err != nil {
			s.logger.Error("delete expired subscription", "error", err)
		}
		return
	}
	s.logger.Warn("send reminder", "device", sub.DeviceName, "error", err)
}
