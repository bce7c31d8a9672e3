package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"storefront/store"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Sweeper evicts carts that have not been mutated within ttl.
type Sweeper struct {
	carts store.CartStore
	ttl   time.Duration
	log   *zap.Logger
	now   func() time.Time
	sched *cron.Cron
}

func NewSweeper(carts store.CartStore, ttl time.Duration, log *zap.Logger) *Sweeper {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sweeper{carts: carts, ttl: ttl, log: log, now: time.Now}
}

// Sweep runs one eviction pass. A non-positive ttl disables eviction.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	n, err := s.carts.SweepIdle(ctx, s.now().Add(-s.ttl))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("idle carts evicted", zap.Int("sessions", n), zap.Duration("ttl", s.ttl))
	}
	return n, nil
}

// Start schedules Sweep on schedule, e.g. "@every 10m".
func (s *Sweeper) Start(schedule string) error {
	s.sched = cron.New(cron.WithParser(cronParser))
	_, err := s.sched.AddFunc(schedule, s.run)
	if err != nil {
		return err
	}
	s.sched.Start()
	return nil
}

// Stop halts the schedule and returns a context done once a running sweep
// has finished.
func (s *Sweeper) Stop() context.Context {
	if s.sched == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	return s.sched.Stop()
}

func (s *Sweeper) run() {
	defer func() {
		if err := recover(); err != nil {
			s.log.Error("cart sweep panicked", zap.Any("panic", err))
		}
	}()
	if _, err := s.Sweep(context.Background()); err != nil {
		s.log.Error("cart sweep failed", zap.Error(err))
	}
}
