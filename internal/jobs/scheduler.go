// Package jobs runs periodic maintenance tasks.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Reconciler recomputes unit availability and reports the units it repaired.
type Reconciler interface {
	ReconcileAvailability(ctx context.Context) ([]uint, error)
}

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	log       *slog.Logger
}

func NewScheduler(log *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, log: log}, nil
}

// ScheduleReconcile runs r every interval, starting immediately. A run that
// overlaps the previous one is rescheduled rather than stacked.
func (s *Scheduler) ScheduleReconcile(ctx context.Context, r Reconciler, every time.Duration) error {
	_, err := s.scheduler.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			fixed, err := r.ReconcileAvailability(ctx)
			if err != nil {
				s.log.Error("availability reconcile failed", "error", err)
				return
			}
			if len(fixed) > 0 {
				s.log.Warn("availability drift repaired", "units", fixed)
				return
			}
			s.log.Debug("availability consistent")
		}),
		gocron.WithName("availability-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("schedule reconcile: %w", err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.log.Info("starting job scheduler", "jobs", len(s.scheduler.Jobs()))
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	s.log.Info("stopping job scheduler")
	return s.scheduler.Shutdown()
}
