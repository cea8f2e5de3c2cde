package scheduler

import (
	"context"
	"sync"
	"testing"
)

// memStorage is an in-memory JobStorage for tests.
type memStorage struct {
	mu   sync.Mutex
	jobs map[string]*Job
}

func newMemStorage() *memStorage {
	return &memStorage{jobs: make(map[string]*Job)}
}

func (m *memStorage) Save(job *Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = job
	return nil
}

func (m *memStorage) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, id)
	return nil
}

func (m *memStorage) LoadAll() ([]*Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Job
	for _, j := range m.jobs {
		out = append(out, j)
	}
	return out, nil
}

func TestAdd_PersistsAndLists(t *testing.T) {
	storage := newMemStorage()
	s := New(storage, func(ctx context.Context, job *Job) (string, error) {
		return "1", nil
	}, nil)

	job, err := s.Add("@hourly", "beep boop")
	if err != nil {
		t.Fatal(err)
	}
	if job.ID == "" || !job.Enabled {
		t.Errorf("unexpected job: %+v", job)
	}

	if len(s.List()) != 1 {
		t.Errorf("List() = %d jobs, want 1", len(s.List()))
	}
	if _, ok := storage.jobs[job.ID]; !ok {
		t.Error("job was not persisted")
	}
}

func TestAdd_InvalidSchedule(t *testing.T) {
	s := New(nil, func(ctx context.Context, job *Job) (string, error) {
		return "", nil
	}, nil)

	if _, err := s.Add("not a cron expr", "text"); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if len(s.List()) != 0 {
		t.Error("invalid job must not be registered")
	}
}

func TestRemove(t *testing.T) {
	storage := newMemStorage()
	s := New(storage, func(ctx context.Context, job *Job) (string, error) {
		return "", nil
	}, nil)

	job, err := s.Add("@daily", "daily post")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Remove(job.ID); err != nil {
		t.Fatal(err)
	}
	if len(s.List()) != 0 {
		t.Error("job still listed after Remove")
	}
	if _, ok := storage.jobs[job.ID]; ok {
		t.Error("job still persisted after Remove")
	}
}

func TestRun_RecordsOutcome(t *testing.T) {
	storage := newMemStorage()
	posted := 0
	s := New(storage, func(ctx context.Context, job *Job) (string, error) {
		posted++
		return "42", nil
	}, nil)
	s.ctx = context.Background()

	job, err := s.Add("@hourly", "on the hour")
	if err != nil {
		t.Fatal(err)
	}

	s.run(job.ID)

	if posted != 1 {
		t.Fatalf("post fn ran %d times, want 1", posted)
	}
	if job.RunCount != 1 || job.LastRunAt == nil || job.LastError != "" {
		t.Errorf("job state after run: %+v", job)
	}
}

func TestStart_LoadsPersistedJobs(t *testing.T) {
	storage := newMemStorage()
	storage.jobs["j1"] = &Job{ID: "j1", Schedule: "@daily", Text: "hello", Enabled: true}

	s := New(storage, func(ctx context.Context, job *Job) (string, error) {
		return "", nil
	}, nil)
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	if len(s.List()) != 1 {
		t.Errorf("List() = %d jobs, want 1 loaded from storage", len(s.List()))
	}
}
