// Package ledger remembers, per conversation, the last message id that went
// through extraction, so the same message is not emitted twice.
package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/blockedby/chat-observer/internal/logger"
)

// Store is the durable side of the ledger. Save overwrites the whole map.
type Store interface {
	Load(ctx context.Context) (map[string]string, error)
	Save(ctx context.Context, entries map[string]string) error
	Clear(ctx context.Context) error
}

// saveTimeout bounds one background write.
const saveTimeout = 10 * time.Second

// Ledger maps conversation id → last processed message id.
// Reads are served from memory; writes hit memory first and are then
// persisted in the background. A crash between the two may re-emit one
// stale message; that is accepted.
type Ledger struct {
	store Store
	log   *logger.Logger

	mu     sync.RWMutex
	seen   map[string]string
	loaded bool

	// saveMu serialises writes so the last completed Save holds the newest snapshot.
	saveMu sync.Mutex

	kick chan struct{}
	done chan struct{}
	once sync.Once
}

// New creates a ledger over store. Call Load before use.
func New(store Store, log *logger.Logger) *Ledger {
	if log == nil {
		log = logger.Get()
	}
	return &Ledger{
		store: store,
		log:   log,
		seen:  map[string]string{},
		kick:  make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
}

// Load reads the persisted map into memory and starts the background writer.
func (l *Ledger) Load(ctx context.Context) error {
	entries, err := l.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}

	l.mu.Lock()
	l.seen = make(map[string]string, len(entries))
	for k, v := range entries {
		l.seen[k] = v
	}
	l.loaded = true
	l.mu.Unlock()

	l.log.Info().Int("conversations", len(entries)).Msg("ledger loaded")

	go l.writer()
	return nil
}

// IsNew reports whether messageID is newer than the last one recorded for
// conversationID. Without both ids the message cannot be deduplicated and
// is always new.
func (l *Ledger) IsNew(conversationID, messageID string) bool {
	if conversationID == "" || messageID == "" {
		return true
	}
	l.mu.RLock()
	last, ok := l.seen[conversationID]
	l.mu.RUnlock()
	if !ok {
		return true
	}
	return CompareIDs(messageID, last) > 0
}

// RecordSeen stores messageID for conversationID and schedules persistence.
// The stored id never moves backwards.
func (l *Ledger) RecordSeen(conversationID, messageID string) {
	if conversationID == "" || messageID == "" {
		return
	}

	l.mu.Lock()
	if last, ok := l.seen[conversationID]; ok && CompareIDs(messageID, last) <= 0 {
		l.mu.Unlock()
		return
	}
	l.seen[conversationID] = messageID
	l.mu.Unlock()

	select {
	case l.kick <- struct{}{}:
	default:
	}
}

// Last returns the recorded id for conversationID.
func (l *Ledger) Last(conversationID string) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.seen[conversationID]
	return v, ok
}

// Snapshot returns a copy of the in-memory map.
func (l *Ledger) Snapshot() map[string]string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[string]string, len(l.seen))
	for k, v := range l.seen {
		out[k] = v
	}
	return out
}

// Reset clears memory and the durable key. Returns how many conversations were dropped.
func (l *Ledger) Reset(ctx context.Context) (int, error) {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	l.mu.Lock()
	n := len(l.seen)
	l.seen = map[string]string{}
	l.mu.Unlock()

	if err := l.store.Clear(ctx); err != nil {
		return n, fmt.Errorf("clear ledger: %w", err)
	}
	l.log.Info().Int("conversations", n).Msg("ledger reset")
	return n, nil
}

// Flush synchronously writes the current map.
func (l *Ledger) Flush(ctx context.Context) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	if err := l.store.Save(ctx, l.Snapshot()); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	return nil
}

// Close stops the background writer and performs a final flush. A ledger
// that was never loaded leaves the store untouched.
func (l *Ledger) Close() error {
	var err error
	l.once.Do(func() {
		close(l.done)
		l.mu.RLock()
		loaded := l.loaded
		l.mu.RUnlock()
		if !loaded {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		err = l.Flush(ctx)
	})
	return err
}

func (l *Ledger) writer() {
	for {
		select {
		case <-l.done:
			return
		case <-l.kick:
			ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
			if err := l.Flush(ctx); err != nil {
				l.log.Error().Err(err).Msg("ledger write failed")
			}
			cancel()
		}
	}
}
