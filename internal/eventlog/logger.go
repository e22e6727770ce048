// Package eventlog buffers state-transition events and flushes them to
// durable storage in batches.
//
// The write path is deliberately not synchronous: events accumulate in
// memory and are flushed when the batch fills or after an idle delay since
// the first unflushed event, whichever comes first. A failed flush re-queues
// the batch, so observability degrades to "delayed" rather than "lost" under
// transient storage failures.
package eventlog

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/canopy-ai/canopy/internal/domain"
)

const (
	DefaultBatchSize     = 20
	DefaultFlushInterval = 2 * time.Second
	DefaultRetention     = 30 * 24 * time.Hour

	tickInterval  = 200 * time.Millisecond
	pruneInterval = time.Hour
	flushTimeout  = 5 * time.Second
)

// EventStore is the durable sink for event batches.
type EventStore interface {
	CreateEvents(ctx context.Context, events []domain.Event) error
	PruneEvents(ctx context.Context, beforeTs int64) (int64, error)
}

// Config controls batching, idle flush, and retention.
type Config struct {
	BatchSize     int
	FlushInterval time.Duration
	Retention     time.Duration
}

// Logger is the buffered event writer.
type Logger struct {
	store EventStore
	cfg   Config

	mu         sync.Mutex
	buffer     []domain.Event
	oldestSeen time.Time // wall time the oldest unflushed event was appended

	lastPrune time.Time
}

// New creates a logger; zero config fields take the defaults.
func New(store EventStore, cfg Config) *Logger {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	return &Logger{store: store, cfg: cfg}
}

// Append records an event with a typed payload. The event becomes durable at
// the next flush; callers needing stronger guarantees call Flush.
func (l *Logger) Append(branchID, sessionID string, eventType domain.EventType, payload interface{}) {
	var raw json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("ERROR: failed to marshal %s payload: %v", eventType, err)
			return
		}
		raw = b
	}

	event := domain.Event{
		EventID:   "evt_" + uuid.New().String()[:8],
		BranchID:  branchID,
		SessionID: sessionID,
		Type:      eventType,
		Payload:   raw,
		Ts:        time.Now().UnixMilli(),
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.buffer) == 0 {
		l.oldestSeen = time.Now()
	}
	l.buffer = append(l.buffer, event)

	if len(l.buffer) >= l.cfg.BatchSize {
		l.flushLocked()
	}
}

// Flush synchronously writes all buffered events.
func (l *Logger) Flush(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.flushBufferLocked(ctx)
}

// Pending returns the number of buffered, unflushed events.
func (l *Logger) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buffer)
}

func (l *Logger) flushLocked() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := l.flushBufferLocked(ctx); err != nil {
		log.Printf("WARN: event flush failed, re-queued %d events: %v", len(l.buffer), err)
	}
}

// flushBufferLocked writes the buffer as one transactional batch. On failure
// the events stay at the front of the buffer for the next attempt.
func (l *Logger) flushBufferLocked(ctx context.Context) error {
	if len(l.buffer) == 0 {
		return nil
	}
	if err := l.store.CreateEvents(ctx, l.buffer); err != nil {
		return err
	}
	l.buffer = nil
	l.oldestSeen = time.Time{}
	return nil
}

// Run drives idle flushes and retention pruning until ctx is cancelled.
func (l *Logger) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.flushIfIdle()
			l.pruneIfDue(ctx)
		}
	}
}

func (l *Logger) flushIfIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.buffer) == 0 || time.Since(l.oldestSeen) < l.cfg.FlushInterval {
		return
	}
	l.flushLocked()
}

func (l *Logger) pruneIfDue(ctx context.Context) {
	l.mu.Lock()
	due := time.Since(l.lastPrune) >= pruneInterval
	if due {
		l.lastPrune = time.Now()
	}
	l.mu.Unlock()
	if !due {
		return
	}

	pruneCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	cutoff := time.Now().Add(-l.cfg.Retention).UnixMilli()
	removed, err := l.store.PruneEvents(pruneCtx, cutoff)
	if err != nil {
		log.Printf("WARN: event prune failed: %v", err)
		return
	}
	if removed > 0 {
		log.Printf("INFO: pruned %d events older than %s", removed, l.cfg.Retention)
	}
}

// Close attempts a final synchronous flush so buffered events are not
// dropped at process exit.
func (l *Logger) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	return l.Flush(ctx)
}
