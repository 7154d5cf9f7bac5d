package session

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"chatwidget/internal/store"
)

const (
	sessionsKey = "chat_sessions"
	activeKey   = "chat_active_session"

	// DefaultTitle is used until the first user message provides one.
	DefaultTitle = "New conversation"

	titleMaxRunes = 25
)

// Patch holds the fields an update may change. Nil pointers and nil slices
// leave the existing value alone.
type Patch struct {
	Title          *string
	ConversationID *string
	Messages       []Message
}

// Repository owns the session collection and the active-session pointer.
// Every mutation rewrites the full collection through the Store; there are no
// partial writes. Storage failures are absorbed by the Store layer, so the
// repository never returns errors; reads of malformed state fall back to an
// empty collection.
type Repository struct {
	store store.Store
	mu    sync.Mutex
}

// NewRepository creates a repository over the given store.
func NewRepository(st store.Store) *Repository {
	return &Repository{store: st}
}

// ListSessions returns all sessions, newest first.
func (r *Repository) ListSessions() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadLocked()
}

// loadLocked reads and validates the persisted collection. Anything that is
// not a JSON array of sessions yields an empty slice.
func (r *Repository) loadLocked() []Session {
	raw, ok := r.store.Get(sessionsKey)
	if !ok || raw == "" {
		return nil
	}

	var sessions []Session
	if err := json.Unmarshal([]byte(raw), &sessions); err != nil {
		log.Warn().Err(err).Msg("session collection unreadable, resetting")
		return nil
	}
	return sessions
}

func (r *Repository) persistLocked(sessions []Session) {
	data, err := json.Marshal(sessions)
	if err != nil {
		log.Warn().Err(err).Msg("marshal session collection")
		return
	}
	r.store.Set(sessionsKey, string(data))
}

// CreateSession makes a fresh session, prepends it to the collection and
// marks it active. With initialText the transcript is seeded with one user
// message and the title derived from it; otherwise the session starts empty
// under a placeholder title.
func (r *Repository) CreateSession(initialText string) Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked(initialText)
}

func (r *Repository) createLocked(initialText string) Session {
	s := Session{
		ID:        uuid.New().String(),
		Title:     TitleFor(initialText),
		Messages:  []Message{},
		CreatedAt: time.Now(),
	}
	if initialText != "" {
		s.Messages = append(s.Messages, NewTextMessage(RoleUser, initialText))
	}

	sessions := append([]Session{s}, r.loadLocked()...)
	r.persistLocked(sessions)
	r.store.Set(activeKey, s.ID)
	return s
}

// GetSession returns a copy of the session with the given id, or nil.
func (r *Repository) GetSession(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.loadLocked() {
		if s.ID == id {
			out := s
			return &out
		}
	}
	return nil
}

// UpdateSession shallow-merges patch into the session and persists the whole
// collection. Returns the updated session, or nil when the id is unknown.
func (r *Repository) UpdateSession(id string, patch Patch) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.loadLocked()
	for i := range sessions {
		if sessions[i].ID != id {
			continue
		}
		if patch.Title != nil {
			sessions[i].Title = *patch.Title
		}
		if patch.ConversationID != nil {
			sessions[i].ConversationID = *patch.ConversationID
		}
		if patch.Messages != nil {
			sessions[i].Messages = patch.Messages
		}
		r.persistLocked(sessions)
		out := sessions[i]
		return &out
	}
	return nil
}

// AppendMessage appends one message to the session transcript and persists.
// Returns the updated session, or nil when the id is unknown.
func (r *Repository) AppendMessage(id string, msg Message) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.loadLocked()
	for i := range sessions {
		if sessions[i].ID != id {
			continue
		}
		sessions[i].Messages = append(sessions[i].Messages, msg)
		r.persistLocked(sessions)
		out := sessions[i]
		return &out
	}
	return nil
}

// DeleteSession removes the session and returns how many remain. When the
// deleted session was active, the most recent remaining session becomes
// active; when the deletion empties the list, a brand-new empty session is
// created and activated, so the system never ends up with zero sessions.
func (r *Repository) DeleteSession(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := r.loadLocked()
	kept := sessions[:0]
	removed := false
	for _, s := range sessions {
		if s.ID == id {
			removed = true
			continue
		}
		kept = append(kept, s)
	}
	if !removed {
		return len(kept)
	}
	r.persistLocked(kept)

	if len(kept) == 0 {
		r.createLocked("")
		return 1
	}
	if active, _ := r.store.Get(activeKey); active == id {
		r.store.Set(activeKey, kept[0].ID)
	}
	return len(kept)
}

// GetActiveSession resolves the active pointer. A dangling or unset pointer
// returns nil; the caller self-heals by creating a session.
func (r *Repository) GetActiveSession() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.store.Get(activeKey)
	if !ok || id == "" {
		return nil
	}
	for _, s := range r.loadLocked() {
		if s.ID == id {
			out := s
			return &out
		}
	}
	log.Warn().Str("session_id", id).Msg("active session pointer dangling")
	return nil
}

// SetActiveSession moves the active pointer.
func (r *Repository) SetActiveSession(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.store.Set(activeKey, id)
}

// TitleFor derives a session title from the first user message, truncated to
// 25 visible characters with an ellipsis.
func TitleFor(text string) string {
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) <= titleMaxRunes {
		return text
	}
	return string(runes[:titleMaxRunes]) + "…"
}
