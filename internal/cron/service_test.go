package cron

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/roasapp-backend/pkg/logger"
	"github.com/angelmondragon/roasapp-backend/pkg/metrics"
)

type fakeLock struct {
	acquired bool
}

func (f *fakeLock) Acquire(context.Context) (bool, error) {
	if f.acquired {
		return false, nil
	}
	f.acquired = true
	return true, nil
}

func (f *fakeLock) Release(context.Context) error { f.acquired = false; return nil }

type testJob struct {
	name string
	err  error
	runs int
}

func (t *testJob) Name() string { return t.name }

func (t *testJob) Run(context.Context) error {
	t.runs++
	return t.err
}

func TestServiceRunCycleRunsAllJobsEvenOnFailure(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	registry, err := NewRegistry(&testJob{name: "success"}, &testJob{name: "fail", err: errors.New("boom")})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Interval: 0,
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx := context.Background()
	err = service.cycle(ctx)
	if err == nil || !strings.Contains(err.Error(), "fail: boom") {
		t.Fatalf("expected failing job in cycle error, got %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if success, ok := jobs[0].(*testJob); ok {
		if success.runs != 1 {
			t.Fatalf("expected success job to run once, ran %d", success.runs)
		}
	} else {
		t.Fatalf("first job type mismatch")
	}
	if failure, ok := jobs[1].(*testJob); ok {
		if failure.runs != 1 {
			t.Fatalf("expected failure job to run once, ran %d", failure.runs)
		}
	} else {
		t.Fatalf("second job type mismatch")
	}
}

func TestServiceRunOnceSkipsWhenLockHeld(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	job := &testJob{name: "sweep"}
	registry, err := NewRegistry(job)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	lock := &fakeLock{acquired: true}
	service, err := NewService(ServiceParams{Logger: logg, Registry: registry, Lock: lock})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 0 {
		t.Fatalf("expected job to be skipped, ran %d", job.runs)
	}

	lock.acquired = false
	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected job to run once, ran %d", job.runs)
	}
	if lock.acquired {
		t.Fatal("expected lock to be released after the cycle")
	}
}

func TestNewServiceRequiresLock(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	if _, err := NewService(ServiceParams{Logger: logg}); err == nil {
		t.Fatal("expected missing lock error")
	}
	svc, err := NewService(ServiceParams{Logger: logg, Lock: &fakeLock{}})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	if svc.interval != defaultInterval {
		t.Fatalf("expected default interval, got %s", svc.interval)
	}
}

func TestServiceRecordsJobMetrics(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	registry, err := NewRegistry(&testJob{name: "premium-expiry"})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	reg := prometheus.NewRegistry()
	service, err := NewService(ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     &fakeLock{},
		Metrics:  metrics.NewCronJobMetrics(reg),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	tick := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	service.now = func() time.Time {
		tick = tick.Add(2 * time.Second)
		return tick
	}

	if err := service.RunOnce(context.Background()); err != nil {
		t.Fatalf("run once: %v", err)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() == "cron_job_duration_seconds" {
			sum = mf.GetMetric()[0].GetHistogram().GetSampleSum()
		}
	}
	if sum != 2 {
		t.Fatalf("expected a 2s duration sample from the injected clock, got %v", sum)
	}
}

func TestServiceRunStopsOnCancel(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard})
	job := &testJob{name: "sweep"}
	registry, _ := NewRegistry(job)
	service, err := NewService(ServiceParams{Logger: logg, Registry: registry, Lock: &fakeLock{}, Interval: time.Hour})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := service.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if job.runs != 1 {
		t.Fatalf("expected the immediate cycle to run once, ran %d", job.runs)
	}
}
