package session

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatwidget/internal/store"
)

func newTestRepo() *Repository {
	return NewRepository(store.NewMemoryStore())
}

func TestCreateSession(t *testing.T) {
	repo := newTestRepo()

	s := repo.CreateSession("Hello")
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "Hello", s.Title)
	require.Len(t, s.Messages, 1)
	assert.Equal(t, RoleUser, s.Messages[0].Role)
	assert.Equal(t, "Hello", s.Messages[0].Content.Text)

	active := repo.GetActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, s.ID, active.ID)
}

func TestCreateSessionEmpty(t *testing.T) {
	repo := newTestRepo()

	s := repo.CreateSession("")
	assert.Equal(t, DefaultTitle, s.Title)
	assert.Empty(t, s.Messages)
}

func TestListSessionsNewestFirst(t *testing.T) {
	repo := newTestRepo()

	first := repo.CreateSession("first")
	second := repo.CreateSession("second")

	list := repo.ListSessions()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestUpdateSession(t *testing.T) {
	repo := newTestRepo()
	s := repo.CreateSession("hi")

	cid := "conv-42"
	updated := repo.UpdateSession(s.ID, Patch{ConversationID: &cid})
	require.NotNil(t, updated)
	assert.Equal(t, "conv-42", updated.ConversationID)
	// Untouched fields survive a partial update.
	assert.Equal(t, "hi", updated.Title)
	assert.Len(t, updated.Messages, 1)

	// Round-trip through the store.
	got := repo.GetSession(s.ID)
	require.NotNil(t, got)
	assert.Equal(t, "conv-42", got.ConversationID)
}

func TestUpdateSessionUnknown(t *testing.T) {
	repo := newTestRepo()
	title := "x"
	assert.Nil(t, repo.UpdateSession("nope", Patch{Title: &title}))
}

func TestDeleteSessionReassignsActive(t *testing.T) {
	repo := newTestRepo()
	repo.CreateSession("one")
	two := repo.CreateSession("two")

	remaining := repo.DeleteSession(two.ID)
	assert.Equal(t, 1, remaining)

	active := repo.GetActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, "one", active.Title)
}

func TestDeleteLastSessionRecreates(t *testing.T) {
	repo := newTestRepo()
	s := repo.CreateSession("only")

	remaining := repo.DeleteSession(s.ID)
	assert.Equal(t, 1, remaining)

	list := repo.ListSessions()
	require.Len(t, list, 1)
	assert.Equal(t, DefaultTitle, list[0].Title)

	active := repo.GetActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, list[0].ID, active.ID)
}

// The repository must never end up with zero sessions and a dangling active
// pointer, whatever sequence of creates and deletes runs.
func TestCreateDeleteInvariant(t *testing.T) {
	repo := newTestRepo()

	for i := 0; i < 5; i++ {
		repo.CreateSession(fmt.Sprintf("s%d", i))
	}
	for i := 0; i < 10; i++ {
		list := repo.ListSessions()
		require.NotEmpty(t, list)
		repo.DeleteSession(list[len(list)-1].ID)

		active := repo.GetActiveSession()
		require.NotNil(t, active)
		assert.NotNil(t, repo.GetSession(active.ID))
	}
}

func TestGetActiveSessionDangling(t *testing.T) {
	st := store.NewMemoryStore()
	repo := NewRepository(st)
	repo.CreateSession("hi")

	// Simulate corrupted state: pointer references a deleted session.
	st.Set("chat_active_session", "gone")
	assert.Nil(t, repo.GetActiveSession())
}

func TestRepositorySurvivesReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	st, err := store.NewFileStore(path)
	require.NoError(t, err)

	repo := NewRepository(st)
	s := repo.CreateSession("persist me")
	repo.AppendMessage(s.ID, NewTextMessage(RoleAssistant, "ok"))

	st2, err := store.NewFileStore(path)
	require.NoError(t, err)
	repo2 := NewRepository(st2)

	got := repo2.GetSession(s.ID)
	require.NotNil(t, got)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "ok", got.Messages[1].Content.Text)

	active := repo2.GetActiveSession()
	require.NotNil(t, active)
	assert.Equal(t, s.ID, active.ID)
}

func TestRepositoryMalformedCollection(t *testing.T) {
	st := store.NewMemoryStore()
	st.Set("chat_sessions", `{"not":"an array"}`)

	repo := NewRepository(st)
	assert.Empty(t, repo.ListSessions())
}

func TestTitleFor(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", DefaultTitle},
		{"short", "short"},
		{"exactly twenty-five chars", "exactly twenty-five chars"},
		{"this message is longer than the title limit", "this message is longer th…"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TitleFor(tt.in))
	}
}
