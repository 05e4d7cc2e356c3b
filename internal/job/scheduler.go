package job

import (
	"hotel-service/internal/recovery"
	"hotel-service/internal/subscription"
	"hotel-service/pkg/config"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler owns the periodic lifecycle jobs: the expiry sweep, the
// inactivity reaper, and OTP housekeeping. Started at process init,
// stopped at shutdown; jobs never run from the request path.
type Scheduler struct {
	cron *cron.Cron
	cfg  *config.SubscriptionConfig
}

// NewScheduler creates the scheduler without starting it.
func NewScheduler(cfg *config.SubscriptionConfig) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		cfg:  cfg,
	}
}

// Start registers the jobs and starts the cron loop. One scan pass per
// invocation; overlapping runs are harmless because every pass is
// transactional, but schedules should leave headroom anyway.
func (s *Scheduler) Start() error {
	log := zap.L().Named("scheduler")

	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, func() {
		if _, err := subscription.SweepExpired(); err != nil {
			log.Error("Expiry sweep failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.cfg.ReaperSchedule, func() {
		if _, err := ReapInactiveTenants(s.cfg.DeleteAfterDays); err != nil {
			log.Error("Inactivity reaper failed", zap.Error(err))
		}
		if _, err := recovery.PurgeExpiredOTPs(); err != nil {
			log.Error("OTP purge failed", zap.Error(err))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	log.Info("Lifecycle scheduler started",
		zap.String("sweep_schedule", s.cfg.SweepSchedule),
		zap.String("reaper_schedule", s.cfg.ReaperSchedule))
	return nil
}

// Stop halts the cron loop. Running jobs finish their current pass.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	zap.L().Info("Lifecycle scheduler stopped")
}
