package cron

import (
	"context"
	"fmt"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry tracks registered cron jobs. Job names label metrics and logs, so they must be unique.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry builds a registry preloaded with the provided jobs.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{names: map[string]struct{}{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job to the registry. Nil jobs are ignored.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	if r.names == nil {
		r.names = map[string]struct{}{}
	}
	if _, dup := r.names[job.Name()]; dup {
		return fmt.Errorf("cron job %q registered twice", job.Name())
	}
	r.names[job.Name()] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns the registered jobs in the order they were added.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists the job names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.jobs))
	for _, job := range r.jobs {
		names = append(names, job.Name())
	}
	return names
}
