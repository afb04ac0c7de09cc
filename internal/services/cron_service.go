package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CronService manages scheduled background jobs.
type CronService struct {
	cron       *cron.Cron
	expiration *ExpirationService
	schedule   string
	logger     *logrus.Logger
}

// NewCronService creates a new CronService. The schedule is a standard
// five-field cron expression; the default sweeps hourly.
func NewCronService(expiration *ExpirationService, schedule string, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:       cron.New(),
		expiration: expiration,
		schedule:   schedule,
		logger:     logger,
	}
}

// Start registers and starts the scheduled jobs.
func (s *CronService) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.expireBookingsJob)
	if err != nil {
		return fmt.Errorf("failed to schedule booking expiration job: %w", err)
	}
	s.logger.WithField("schedule", s.schedule).Info("Scheduled booking expiration sweep")

	s.cron.Start()
	s.logger.Info("Cron service started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Cron service stopped")
}

func (s *CronService) expireBookingsJob() {
	start := time.Now()

	count, references, err := s.expiration.ExpireStale(context.Background())
	if err != nil {
		s.logger.WithError(err).Error("Booking expiration sweep failed")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"expired":    count,
		"references": references,
		"duration":   time.Since(start).String(),
	}).Info("Booking expiration sweep finished")
}

// RunExpireBookingsNow triggers the sweep immediately, outside the
// schedule. Backs the admin sweep endpoint.
func (s *CronService) RunExpireBookingsNow(ctx context.Context) (int, []string, error) {
	return s.expiration.ExpireStale(ctx)
}

// JobStatus reports the scheduler state.
func (s *CronService) JobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":   len(entries) > 0,
		"job_count": len(entries),
		"jobs":      jobs,
	}
}
