package render

import (
	"fmt"
	"sync"
	"time"

	"studio/internal/domain"
)

// Batch is one in-flight project render.
type Batch struct {
	ProjectID string
	StartedAt time.Time
	Cancel    *Cancel

	mu       sync.Mutex
	progress Progress
}

// Update stores the latest snapshot; it is the onProgress callback of the
// batch run.
func (b *Batch) Update(p Progress) {
	b.mu.Lock()
	b.progress = p
	b.mu.Unlock()
}

func (b *Batch) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

// Tracker is the bookkeeping of which projects are rendering. At most one
// batch runs per project.
type Tracker struct {
	mu      sync.Mutex
	batches map[string]*Batch
	now     func() time.Time
}

func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{batches: make(map[string]*Batch), now: now}
}

// Start registers a new batch for projectID. It fails while a previous batch
// for the same project has not finished.
func (t *Tracker) Start(projectID string) (*Batch, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.batches[projectID]; ok && !existing.Progress().Finished {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrRenderInProgress)
	}
	batch := &Batch{ProjectID: projectID, StartedAt: t.now(), Cancel: &Cancel{}}
	t.batches[projectID] = batch
	return batch, nil
}

// Get returns the latest progress of the newest batch for projectID.
func (t *Tracker) Get(projectID string) (Progress, bool) {
	t.mu.Lock()
	batch, ok := t.batches[projectID]
	t.mu.Unlock()
	if !ok {
		return Progress{}, false
	}
	return batch.Progress(), true
}

// Cancel flags the running batch of projectID to stop after its current
// scene. It reports whether a running batch was found.
func (t *Tracker) Cancel(projectID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	batch, ok := t.batches[projectID]
	if !ok || batch.Progress().Finished {
		return false
	}
	batch.Cancel.Request()
	return true
}

// Finish stores the final snapshot of a batch.
func (t *Tracker) Finish(batch *Batch, final Progress) {
	final.Finished = true
	batch.Update(final)
}

// Running lists the projects with an unfinished batch.
func (t *Tracker) Running() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var ids []string
	for id, batch := range t.batches {
		if !batch.Progress().Finished {
			ids = append(ids, id)
		}
	}
	return ids
}
