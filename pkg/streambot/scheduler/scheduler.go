// Package scheduler runs the bot's periodic posts. Jobs carry a cron
// expression and the text to publish; robfig/cron drives execution and jobs
// are persisted so schedules survive restarts.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// Job is one scheduled post.
type Job struct {
	// ID is the unique job identifier.
	ID string `json:"id" yaml:"id"`

	// Schedule is the cron expression or shorthand (@hourly, @every 4h).
	Schedule string `json:"schedule" yaml:"schedule"`

	// Text is the post text. The PostFunc may override it.
	Text string `json:"text" yaml:"text"`

	// Enabled indicates whether the job is active.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// LastRunAt is the last execution timestamp.
	LastRunAt *time.Time `json:"last_run_at,omitempty" yaml:"last_run_at,omitempty"`

	// LastError contains the error from the last run, if any.
	LastError string `json:"last_error,omitempty" yaml:"last_error,omitempty"`

	// RunCount tracks how many times the job has executed.
	RunCount int `json:"run_count" yaml:"run_count"`
}

// PostFunc publishes one scheduled post and returns the published post id.
type PostFunc func(ctx context.Context, job *Job) (string, error)

// Scheduler manages scheduled posts using cron expressions.
type Scheduler struct {
	jobs    map[string]*Job
	cron    *cron.Cron
	cronIDs map[string]cron.EntryID

	// running suppresses a second firing while the previous run of the same
	// job is still active.
	running map[string]bool

	storage JobStorage
	post    PostFunc
	logger  *slog.Logger

	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler. Storage may be nil for in-memory-only schedules.
func New(storage JobStorage, post PostFunc, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		jobs:    make(map[string]*Job),
		cron:    cron.New(),
		cronIDs: make(map[string]cron.EntryID),
		running: make(map[string]bool),
		storage: storage,
		post:    post,
		logger:  logger.With("component", "scheduler"),
	}
}

// Start loads persisted jobs and begins executing schedules.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx, s.cancel = context.WithCancel(ctx)

	if s.storage != nil {
		jobs, err := s.storage.LoadAll()
		if err != nil {
			return fmt.Errorf("loading scheduled posts: %w", err)
		}
		for _, job := range jobs {
			if err := s.registerLocked(job); err != nil {
				s.logger.Warn("skipping persisted job", "id", job.ID, "error", err)
			}
		}
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.jobs))
	return nil
}

// Stop halts execution. Running jobs finish on their own.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.cron.Stop()
	s.logger.Info("scheduler stopped")
}

// Add registers and persists a new scheduled post, returning its id.
func (s *Scheduler) Add(schedule, text string) (*Job, error) {
	job := &Job{
		ID:        uuid.New().String(),
		Schedule:  schedule,
		Text:      text,
		Enabled:   true,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.registerLocked(job); err != nil {
		return nil, err
	}
	if s.storage != nil {
		if err := s.storage.Save(job); err != nil {
			return nil, fmt.Errorf("persisting job: %w", err)
		}
	}
	return job, nil
}

// Remove deletes a job from the scheduler and storage.
func (s *Scheduler) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entryID, ok := s.cronIDs[id]; ok {
		s.cron.Remove(entryID)
		delete(s.cronIDs, id)
	}
	delete(s.jobs, id)

	if s.storage != nil {
		return s.storage.Delete(id)
	}
	return nil
}

// List returns all registered jobs.
func (s *Scheduler) List() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Job, 0, len(s.jobs))
	for _, j := range s.jobs {
		out = append(out, j)
	}
	return out
}

// registerLocked validates the schedule and wires the cron entry.
func (s *Scheduler) registerLocked(job *Job) error {
	if job.Schedule == "" {
		return fmt.Errorf("job %s: empty schedule", job.ID)
	}
	if !job.Enabled {
		s.jobs[job.ID] = job
		return nil
	}

	entryID, err := s.cron.AddFunc(job.Schedule, func() { s.run(job.ID) })
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.ID, job.Schedule, err)
	}
	s.jobs[job.ID] = job
	s.cronIDs[job.ID] = entryID
	return nil
}

// run executes one firing of a job.
func (s *Scheduler) run(id string) {
	s.mu.Lock()
	job, ok := s.jobs[id]
	if !ok || s.running[id] {
		s.mu.Unlock()
		return
	}
	s.running[id] = true
	ctx := s.ctx
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.running, id)
		s.mu.Unlock()
	}()

	postID, err := s.post(ctx, job)

	s.mu.Lock()
	now := time.Now()
	job.LastRunAt = &now
	job.RunCount++
	if err != nil {
		job.LastError = err.Error()
		s.logger.Warn("scheduled post failed", "id", id, "error", err)
	} else {
		job.LastError = ""
		s.logger.Info("scheduled post published", "id", id, "post_id", postID)
	}
	if s.storage != nil {
		if err := s.storage.Save(job); err != nil {
			s.logger.Warn("persisting job state failed", "id", id, "error", err)
		}
	}
	s.mu.Unlock()
}
