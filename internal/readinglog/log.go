// Package readinglog holds the session-lifetime ordered collection of
// readings behind an explicit mutation interface. Readings are
// append-only; the sorted view is strictly descending by timestamp
// with insertion order as the stable tie-break.
package readinglog

import (
	"context"
	"sort"
	"sync"

	"github.com/healthvoice/healthlog/internal/domain"
)

type entry struct {
	seq     uint64
	reading domain.Reading
}

// Log is an in-memory, versioned, append-only reading collection.
type Log struct {
	mu      sync.RWMutex
	nextSeq uint64
	version uint64
	entries []entry
}

// NewLog returns an empty reading log.
func NewLog() *Log {
	return &Log{}
}

// Append adds a reading to the log. Readings are never mutated after
// this point.
func (l *Log) Append(_ context.Context, reading domain.Reading) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append(l.entries, entry{seq: l.nextSeq, reading: reading})
	l.nextSeq++
	l.version++
	return nil
}

// List returns readings sorted strictly descending by timestamp.
// Readings with equal timestamps keep their insertion order.
func (l *Log) List(_ context.Context, limit int) ([]domain.Reading, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cloned := append([]entry(nil), l.entries...)
	sort.SliceStable(cloned, func(i, j int) bool {
		return cloned[i].reading.Meta().RecordedAt.After(cloned[j].reading.Meta().RecordedAt)
	})

	if limit <= 0 || limit > len(cloned) {
		limit = len(cloned)
	}

	out := make([]domain.Reading, 0, limit)
	for _, e := range cloned[:limit] {
		out = append(out, e.reading)
	}
	return out, nil
}

// Len returns the number of readings in the log.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Version increments on every mutation, letting callers detect change
// without diffing the whole collection.
func (l *Log) Version() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.version
}
