// Package history keeps the bounded log of completed render timings that the
// estimator learns from.
package history

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MaxRecords bounds the history; older records are evicted first.
const MaxRecords = 100

// Record is one observation of a completed generation job.
type Record struct {
	Provider      string    `json:"provider"`
	Duration      int       `json:"duration"`
	ActualSeconds float64   `json:"actual_seconds"`
	HasImage      bool      `json:"has_image"`
	PromptLength  int       `json:"prompt_length"`
	AspectRatio   string    `json:"aspect_ratio"`
	CompletedAt   time.Time `json:"completed_at"`
}

// Port persists the history between process runs.
type Port interface {
	Load(ctx context.Context) ([]Record, error)
	Save(ctx context.Context, records []Record) error
}

// Appender is implemented by ports that can store a single record without
// rewriting the whole list.
type Appender interface {
	Append(ctx context.Context, rec Record) error
}

// Buffer is the in-memory history shared by the estimator and the render
// runner. Appends are serialized; readers get copies.
type Buffer struct {
	mu       sync.RWMutex
	records  []Record
	port     Port
	refresh  time.Duration
	loadedAt time.Time
	now      func() time.Time
}

// NewBuffer creates an empty buffer persisted through port. A nil port keeps
// the history in memory only.
func NewBuffer(port Port) *Buffer {
	return &Buffer{port: port, now: time.Now}
}

// RefreshEvery makes Refresh reload from the port once the cached records are
// older than ttl. Zero disables reloading.
func (b *Buffer) RefreshEvery(ttl time.Duration) *Buffer {
	b.mu.Lock()
	b.refresh = ttl
	b.mu.Unlock()
	return b
}

// Load replaces the in-memory records with the persisted ones.
func (b *Buffer) Load(ctx context.Context) error {
	if b.port == nil {
		return nil
	}
	records, err := b.port.Load(ctx)
	if err != nil {
		return fmt.Errorf("history: load: %w", err)
	}
	b.mu.Lock()
	b.records = Trim(records)
	b.loadedAt = b.now()
	b.mu.Unlock()
	return nil
}

// Refresh reloads the records when another process may have appended since
// the last load. On error the cached records stay in place.
func (b *Buffer) Refresh(ctx context.Context) error {
	b.mu.RLock()
	due := b.port != nil && b.refresh > 0 && b.now().Sub(b.loadedAt) >= b.refresh
	b.mu.RUnlock()
	if !due {
		return nil
	}
	return b.Load(ctx)
}

// Append adds rec as the newest record, evicting the oldest beyond
// MaxRecords, and persists the change.
func (b *Buffer) Append(ctx context.Context, rec Record) error {
	b.mu.Lock()
	b.records = Trim(append(b.records, rec))
	snapshot := append([]Record(nil), b.records...)
	b.mu.Unlock()

	if b.port == nil {
		return nil
	}
	if appender, ok := b.port.(Appender); ok {
		if err := appender.Append(ctx, rec); err != nil {
			return fmt.Errorf("history: append: %w", err)
		}
		// Pick up what other processes appended to the shared store. A failed
		// reload keeps the local copy, which already holds rec.
		_ = b.Load(ctx)
		return nil
	}
	if err := b.port.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("history: save: %w", err)
	}
	return nil
}

// Snapshot returns the records oldest-to-newest.
func (b *Buffer) Snapshot() []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Record(nil), b.records...)
}

// Len returns the number of buffered records.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.records)
}

// Trim keeps the newest MaxRecords entries of records.
func Trim(records []Record) []Record {
	if len(records) <= MaxRecords {
		return records
	}
	out := make([]Record, MaxRecords)
	copy(out, records[len(records)-MaxRecords:])
	return out
}
