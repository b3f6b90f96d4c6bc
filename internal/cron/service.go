package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/metrics"
)

const defaultInterval = time.Hour

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service runs every registered job once per interval while holding the cluster-wide lock.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	}
	svc := &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: params.Interval,
		now:      time.Now,
	}
	if svc.registry == nil {
		svc.registry = &Registry{}
	}
	if svc.interval <= 0 {
		svc.interval = defaultInterval
	}
	return svc, nil
}

// RunOnce runs a single cycle and returns every job failure combined.
func (s *Service) RunOnce(ctx context.Context) error {
	return s.cycle(ctx)
}

// Run cycles immediately and then on every tick until ctx is done. Failed cycles are logged
// and the loop keeps going.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.cycle(ctx); err != nil {
			s.logg.Error(ctx, "scheduled run failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Service) cycle(ctx context.Context) (err error) {
	held, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !held {
		s.logg.Info(ctx, "cron lock held elsewhere, skipping cycle")
		return nil
	}
	defer func() {
		// release with a fresh context so a canceled run still frees the lease
		if relErr := s.lock.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logg.Error(ctx, "failed to release cron lock", relErr)
		}
	}()

	s.logg.Info(s.logg.WithField(ctx, "jobs", s.registry.Names()), "scheduled run starting")
	for _, job := range s.registry.Jobs() {
		if jobErr := s.execute(ctx, job); jobErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", job.Name(), jobErr))
		}
	}
	return err
}

func (s *Service) execute(ctx context.Context, job Job) error {
	ctx = s.logg.WithFields(ctx, map[string]any{"job": job.Name(), "event": "cron.job"})
	started := s.now()
	err := job.Run(ctx)
	finished := s.now()
	s.metrics.ObserveJob(job.Name(), finished.Sub(started), finished, err)

	ctx = s.logg.WithField(ctx, "duration_ms", finished.Sub(started).Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job failed", err)
		return err
	}
	s.logg.Info(ctx, "job completed")
	return nil
}
