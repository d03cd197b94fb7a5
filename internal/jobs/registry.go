// Package jobs generalizes the teacher's single-slot jobs.Manager into a
// registry that owns many concurrent Job records, one per submitted
// request, while preserving its state-machine and snapshot-by-copy style.
package jobs

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"media-dubber/internal/domain"
)

// ErrNotFound mirrors the teacher's ErrNoRunningJob shape for the
// multi-job case: the id is simply absent from the registry.
var ErrNotFound = errors.New("job not found")

// Store persists Job snapshots. The Registry's own map always holds the
// jobs in memory; a Store such as RedisStore optionally mirrors them for
// cross-process visibility
// per §5's "Job registry is a single writer per job" note — the writer is
// always this process's Registry, Store is only ever read by others.
type Store interface {
	Save(ctx context.Context, job domain.Job) error
	Delete(ctx context.Context, id string) error
}

// Registry is the single-writer-per-job index (id -> Job) described in
// §5. Inserts/deletes take the mutex; snapshot reads copy out so they
// never block a concurrent writer, exactly as the teacher's Manager.
type Registry struct {
	mu      sync.RWMutex
	byID    map[string]domain.Job
	cancels map[string]context.CancelFunc
	store   Store
}

// NewRegistry builds an empty registry. store may be nil, in which case
// jobs live only in memory for this process's lifetime.
func NewRegistry(store Store) *Registry {
	return &Registry{
		byID:    make(map[string]domain.Job),
		cancels: make(map[string]context.CancelFunc),
		store:   store,
	}
}

// Put inserts or replaces a job record and persists it if a Store is
// configured; no job.json file is written.
func (r *Registry) Put(job domain.Job) {
	r.mu.Lock()
	r.byID[job.ID] = job
	r.mu.Unlock()

	if r.store != nil {
		_ = r.store.Save(context.Background(), job)
	}
}

// Get returns a snapshot copy of one job.
func (r *Registry) Get(id string) (domain.Job, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[id]
	if !ok {
		return domain.Job{}, ErrNotFound
	}
	return job.Snapshot(), nil
}

// List returns a page of jobs ordered by CreatedAt descending, optionally
// filtered by status, matching §4.1's list(limit, offset, status_filter).
func (r *Registry) List(limit, offset int, statusFilter domain.JobStatus) []domain.Job {
	r.mu.RLock()
	all := make([]domain.Job, 0, len(r.byID))
	for _, j := range r.byID {
		if statusFilter != "" && j.Status != statusFilter {
			continue
		}
		all = append(all, j.Snapshot())
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	if offset >= len(all) {
		return []domain.Job{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// Delete removes a job record and any registered cancel func.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	if _, ok := r.byID[id]; !ok {
		r.mu.Unlock()
		return ErrNotFound
	}
	delete(r.byID, id)
	delete(r.cancels, id)
	r.mu.Unlock()

	if r.store != nil {
		_ = r.store.Delete(context.Background(), id)
	}
	return nil
}

// RegisterCancel associates a job id with the CancelFunc that stops its
// in-flight pipeline execution, the multi-job generalization of the
// teacher's single App.cancel field.
func (r *Registry) RegisterCancel(id string, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancels[id] = cancel
}

// Cancel requests cooperative cancellation for a job. It returns success
// even if the job has already terminated, per §4.1.
func (r *Registry) Cancel(id string) error {
	r.mu.Lock()
	job, ok := r.byID[id]
	cancel := r.cancels[id]
	r.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	if cancel != nil {
		cancel()
	}
	return nil
}

// Transition validates and applies the Job's status edge, mutating the
// stored record. It rejects any transition out of a terminal state.
func (r *Registry) Transition(id string, mutate func(job *domain.Job)) (domain.Job, error) {
	r.mu.Lock()
	job, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		return domain.Job{}, ErrNotFound
	}
	if job.Status.IsTerminal() {
		snapshot := job.Snapshot()
		r.mu.Unlock()
		return snapshot, nil
	}
	mutate(&job)
	r.byID[id] = job
	snapshot := job.Snapshot()
	r.mu.Unlock()

	if r.store != nil {
		_ = r.store.Save(context.Background(), job)
	}
	return snapshot, nil
}

// now is overridable in tests that need deterministic timestamps.
var now = time.Now
