package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sender posts the announcement to the notifications channel
type Sender interface {
	SendAnnouncement(ctx context.Context) error
}

// Scheduler posts the announcement on a cron schedule, but only once the
// channel has seen enough user messages since the previous one. A firing that
// finds the channel too quiet arms a retry after the cooldown.
type Scheduler struct {
	cron        *cron.Cron
	sender      Sender
	schedule    string
	minMessages int
	cooldown    time.Duration

	mu        sync.Mutex
	count     int
	firstSent bool
	retry     *time.Timer
	stopped   bool
}

// ErrNoSchedule is returned when the scheduler is built without a cron spec
var ErrNoSchedule = errors.New("announcement schedule is empty")

// NewScheduler creates a new scheduler instance. schedule accepts five field
// cron specs, six field specs with seconds, and descriptors like @hourly.
func NewScheduler(sender Sender, schedule string, minMessages int, cooldown time.Duration) (*Scheduler, error) {
	if schedule == "" {
		return nil, ErrNoSchedule
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	if _, err := parser.Parse(schedule); err != nil {
		return nil, err
	}
	return &Scheduler{
		cron:        cron.New(cron.WithLocation(time.UTC), cron.WithParser(parser)),
		sender:      sender,
		schedule:    schedule,
		minMessages: minMessages,
		cooldown:    cooldown,
	}, nil
}

// Start begins the scheduler with the announcement job registered
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.schedule, s.tick); err != nil {
		return err
	}
	s.cron.Start()
	zap.S().Infow("announcement scheduler started", "schedule", s.schedule, "minMessages", s.minMessages, "cooldown", s.cooldown)
	return nil
}

// Stop gracefully stops the scheduler and drops any pending retry
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.mu.Lock()
	s.stopped = true
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()
	zap.S().Info("announcement scheduler stopped")
}

// MessageSeen counts one user message in the notifications channel
func (s *Scheduler) MessageSeen() {
	s.mu.Lock()
	s.count++
	s.mu.Unlock()
}

// Count returns the user messages seen since the last announcement
func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}

	if !s.firstSent {
		s.firstSent = true
		s.mu.Unlock()
		zap.S().Debug("first announcement since launch, sending immediately")
		s.send()
		return
	}

	if s.count >= s.minMessages {
		count := s.count
		s.mu.Unlock()
		zap.S().Debugw("enough user messages, sending announcement", "count", count)
		s.send()
		return
	}

	if s.retry != nil {
		s.retry.Stop()
	}
	s.retry = time.AfterFunc(s.cooldown, s.tick)
	count := s.count
	s.mu.Unlock()
	zap.S().Debugw("not enough user messages, retrying after cooldown", "count", count, "cooldown", s.cooldown)
}

func (s *Scheduler) send() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.sender.SendAnnouncement(ctx); err != nil {
		zap.S().Errorw("failed to send announcement", "error", err)
		return
	}

	s.mu.Lock()
	s.count = 0
	if s.retry != nil {
		s.retry.Stop()
		s.retry = nil
	}
	s.mu.Unlock()
	zap.S().Info("announcement sent")
}
