package infrastructure

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs tagged one-shot jobs and periodic workers on gocron
type Scheduler struct {
	cron gocron.Scheduler
}

// NewScheduler creates a scheduler. Call Start before jobs can fire.
func NewScheduler() (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	return &Scheduler{cron: cron}, nil
}

// Start begins running jobs
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info("Scheduler started")
}

// ScheduleOnce runs fn once after the delay. The job carries tag so it can
// be removed with Cancel.
func (s *Scheduler) ScheduleOnce(tag string, after time.Duration, fn func()) error {
	start := gocron.OneTimeJobStartImmediately()
	if after > 0 {
		start = gocron.OneTimeJobStartDateTime(time.Now().Add(after))
	}

	_, err := s.cron.NewJob(
		gocron.OneTimeJob(start),
		gocron.NewTask(recovered(tag, fn)),
		gocron.WithName(tag),
		gocron.WithTags(tag),
		gocron.WithLimitedRuns(1),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", tag, err)
	}

	log.WithFields(log.Fields{
		"tag":   tag,
		"after": after,
	}).Debug("Scheduled one-time job")
	return nil
}

// Cancel removes every job carrying tag. Jobs that already ran or never
// existed are ignored.
func (s *Scheduler) Cancel(tag string) {
	s.cron.RemoveByTags(tag)
	log.WithField("tag", tag).Debug("Cancelled scheduled job")
}

// Every runs fn at a fixed interval until the scheduler shuts down
func (s *Scheduler) Every(name string, interval time.Duration, fn func()) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(recovered(name, fn)),
		gocron.WithName(name),
		gocron.WithTags(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule worker %s: %w", name, err)
	}

	log.WithFields(log.Fields{
		"worker":   name,
		"interval": interval,
	}).Info("Periodic worker started")
	return nil
}

// Pending returns the number of jobs still registered
func (s *Scheduler) Pending() int {
	return len(s.cron.Jobs())
}

// Shutdown stops the scheduler and waits for running jobs
func (s *Scheduler) Shutdown() error {
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("failed to shut down scheduler: %w", err)
	}
	log.Info("Scheduler stopped")
	return nil
}

func recovered(name string, fn func()) func() {
	return func() {
		defer func() {
			if r := recover(); r != nil {
				log.WithFields(log.Fields{
					"job":   name,
					"panic": r,
				}).Error("Scheduled job panicked")
			}
		}()
		fn()
	}
}
