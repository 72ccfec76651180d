// Package conversation keeps the per-session chat transcript: an append-only
// in-memory log backed by SQLite persistence and a keyword search index.
package conversation

import (
	"context"
	"fmt"
	"sync"
)

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry in the conversation. Turns are never mutated after
// append.
type Turn struct {
	ID        int64  `json:"id,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`
	ImagePath string `json:"image_path,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

// Log is the append-only conversation log for one session. The in-memory
// slice is authoritative for ordering; the store and search index follow it.
// Safe for concurrent use.
type Log struct {
	mu        sync.Mutex
	sessionID string
	turns     []Turn
	store     *Store
	index     *SearchIndex
	nextID    int64
}

// NewLog creates a log for a session. store and index are optional; pass nil
// to run purely in memory.
func NewLog(sessionID string, store *Store, index *SearchIndex) *Log {
	return &Log{
		sessionID: sessionID,
		store:     store,
		index:     index,
		nextID:    1,
	}
}

// NewLogFromStore creates a log for a session and hydrates it with the
// session's persisted turns, so a restarted process replays the transcript it
// had before.
func NewLogFromStore(ctx context.Context, sessionID string, store *Store, index *SearchIndex) (*Log, error) {
	l := NewLog(sessionID, store, index)
	if store == nil {
		return l, nil
	}

	turns, err := store.History(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}
	l.turns = turns
	for _, t := range turns {
		if t.ID >= l.nextID {
			l.nextID = t.ID + 1
		}
	}
	return l, nil
}

// Append adds a turn to the log, persists it, and indexes it for search.
// Persistence failures are returned but the in-memory append always sticks:
// the user-visible transcript must never lose a turn the UI already showed.
func (l *Log) Append(ctx context.Context, turn Turn) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	turn.SessionID = l.sessionID

	if l.store != nil {
		if err := l.store.AppendTurn(ctx, &turn); err != nil {
			turn.ID = l.nextID
			l.nextID++
			l.turns = append(l.turns, turn)
			return fmt.Errorf("failed to persist turn: %w", err)
		}
		l.nextID = turn.ID + 1
	} else {
		turn.ID = l.nextID
		l.nextID++
	}

	l.turns = append(l.turns, turn)

	if l.index != nil {
		if err := l.index.IndexTurn(turn); err != nil {
			return fmt.Errorf("failed to index turn: %w", err)
		}
	}
	return nil
}

// History returns the ordered turns appended so far.
func (l *Log) History() []Turn {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.turns)
}

// Reset clears the transcript wholesale: memory, persisted rows, and search
// documents for this session.
func (l *Log) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.turns = nil
	l.nextID = 1

	if l.store != nil {
		if err := l.store.DeleteSession(ctx, l.sessionID); err != nil {
			return fmt.Errorf("failed to clear persisted turns: %w", err)
		}
	}
	if l.index != nil {
		if err := l.index.DeleteSession(l.sessionID); err != nil {
			return fmt.Errorf("failed to clear search index: %w", err)
		}
	}
	return nil
}

// Search runs a keyword query over this session's turns. Returns nil when no
// search index is configured.
func (l *Log) Search(query string, limit int) ([]SearchHit, error) {
	if l.index == nil {
		return nil, nil
	}
	return l.index.Search(l.sessionID, query, limit)
}
