package withdrawal

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"vaultledger/internal/repositories"
)

// Sweeper periodically purges staged withdrawals whose code has expired.
// Verify enforces expiry on its own; the sweep only keeps the table small.
type Sweeper struct {
	repo      repositories.LedgerRepository
	scheduler gocron.Scheduler
	log       *zap.Logger
	now       func() time.Time
}

func NewSweeper(repo repositories.LedgerRepository, interval time.Duration, log *zap.Logger) (*Sweeper, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Minute
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	s := &Sweeper{repo: repo, scheduler: sched, log: log, now: time.Now}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()
			_, _ = s.Sweep(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.scheduler.Start()
}

func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

// Sweep deletes every staged withdrawal that expired before now.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	n, err := s.repo.DeleteExpiredStagedWithdrawals(ctx, s.now())
	if err != nil {
		s.log.Error("expired withdrawal sweep failed", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		s.log.Info("purged expired withdrawal requests", zap.Int64("count", n))
	}
	return n, nil
}
