// Package orchestrator drives one request/response cycle per user turn: it
// appends the user message, ships the transcript to the backend, folds the
// decoded envelope stream into a single evolving assistant message, and
// writes every update through the session repository.
package orchestrator

import (
	"context"
	"io"
	"strings"

	"github.com/rs/zerolog/log"

	"chatwidget/internal/backend"
	"chatwidget/internal/envelope"
	"chatwidget/internal/session"
	"chatwidget/internal/sse"
)

// FallbackText is the assistant message shown when the backend fails or the
// stream yields nothing usable.
const FallbackText = "Sorry, I wasn't able to answer that. Please try again."

// State is the per-turn lifecycle.
type State int

const (
	StateIdle State = iota
	StateAwaitingFirstChunk
	StateStreaming
	StateSettled
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingFirstChunk:
		return "awaiting_first_chunk"
	case StateStreaming:
		return "streaming"
	case StateSettled:
		return "settled"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}

// Backend abstracts the transport so tests can script replies.
type Backend interface {
	Send(ctx context.Context, conversationID string, transcript []session.Message) (*backend.Response, error)
}

// Listener receives turn lifecycle events. All methods are invoked from the
// goroutine running SubmitTurn; implementations render, they don't block.
type Listener interface {
	TurnStarted(sessionID string)
	AssistantUpdated(sessionID string, msg session.Message)
	TurnSettled(sessionID string)
	TurnErrored(sessionID string, err error)
}

// Orchestrator owns the in-flight turn for one mounted widget. Callers must
// serialize turns per session: a second SubmitTurn while one is in flight is
// not defended against.
type Orchestrator struct {
	repo     *session.Repository
	client   Backend
	listener Listener
	state    State
}

// New creates an orchestrator. listener may be nil.
func New(repo *session.Repository, client Backend, listener Listener) *Orchestrator {
	if listener == nil {
		listener = nopListener{}
	}
	return &Orchestrator{
		repo:     repo,
		client:   client,
		listener: listener,
		state:    StateIdle,
	}
}

// State returns the current turn state.
func (o *Orchestrator) State() State {
	return o.state
}

// turn tracks the fold target for the in-flight reply.
type turn struct {
	sess  *session.Session
	index int // transcript index of this turn's assistant message, -1 until started
	count int // envelopes folded so far
}

// SubmitTurn runs one full user turn. Empty or whitespace-only text is a
// no-op. The user message is persisted before any network activity, so it
// survives a failed call. Returns the final assistant message, or nil for a
// no-op or cancelled turn. Failures are converted to the fallback assistant
// message and never returned as errors.
func (o *Orchestrator) SubmitTurn(ctx context.Context, text string) *session.Message {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	sess := o.ensureSession(text)
	o.state = StateAwaitingFirstChunk
	o.listener.TurnStarted(sess.ID)

	resp, err := o.client.Send(ctx, sess.ConversationID, sess.Messages)
	if err != nil {
		if ctx.Err() == context.Canceled {
			return o.settleCancelled(sess)
		}
		log.Error().Err(err).Str("session_id", sess.ID).Msg("turn transport failure")
		return o.fail(sess, err)
	}
	defer resp.Body.Close()

	t := &turn{sess: sess, index: -1}
	emit := func(env *envelope.Envelope) { o.fold(t, env) }

	if resp.Streaming() {
		err = sse.DecodeBody(ctx, resp.Body, emit)
	} else {
		var body []byte
		body, err = io.ReadAll(resp.Body)
		if err == nil {
			sse.DecodeFull(body, emit)
		}
	}

	if err != nil && t.count == 0 {
		log.Error().Err(err).Str("session_id", sess.ID).Msg("stream failed before first envelope")
		return o.fail(sess, err)
	}
	if err != nil {
		// Stream broke mid-reply: keep what was already folded and
		// persisted rather than discarding a partial answer.
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("stream interrupted, keeping last envelope")
	}

	if t.count == 0 {
		if ctx.Err() == context.Canceled {
			return o.settleCancelled(sess)
		}
		msg := o.appendFallback(sess)
		o.state = StateSettled
		o.listener.TurnSettled(sess.ID)
		return msg
	}

	o.state = StateSettled
	o.listener.TurnSettled(sess.ID)
	msg := t.sess.Messages[t.index]
	return &msg
}

// ensureSession resolves the active session, self-healing a dangling or
// missing pointer, and persists the user message before the network call.
func (o *Orchestrator) ensureSession(text string) *session.Session {
	sess := o.repo.GetActiveSession()
	if sess == nil {
		created := o.repo.CreateSession(text)
		return &created
	}

	updated := o.repo.AppendMessage(sess.ID, session.NewTextMessage(session.RoleUser, text))
	if updated == nil {
		// Session vanished between lookup and append; recreate.
		created := o.repo.CreateSession(text)
		return &created
	}

	// First user message into a placeholder session names it.
	if updated.Title == session.DefaultTitle && len(updated.Messages) == 1 {
		title := session.TitleFor(text)
		if patched := o.repo.UpdateSession(updated.ID, session.Patch{Title: &title}); patched != nil {
			updated = patched
		}
	}
	return updated
}

// fold merges one envelope into the turn's assistant message. The first
// envelope appends the message; later ones replace its content in place
// (last-write-wins), so re-folding an identical envelope never duplicates.
func (o *Orchestrator) fold(t *turn, env *envelope.Envelope) {
	t.count++
	o.state = StateStreaming

	msg := session.Message{Role: session.RoleAssistant, Content: env.Content}
	if env.Role != "" {
		msg.Role = env.Role
	}

	if t.index < 0 {
		t.sess.Messages = append(t.sess.Messages, msg)
		t.index = len(t.sess.Messages) - 1
	} else {
		t.sess.Messages[t.index] = msg
	}

	patch := session.Patch{Messages: t.sess.Messages}
	if env.ConversationID != "" && env.ConversationID != t.sess.ConversationID {
		t.sess.ConversationID = env.ConversationID
	}
	if t.sess.ConversationID != "" {
		cid := t.sess.ConversationID
		patch.ConversationID = &cid
	}
	if updated := o.repo.UpdateSession(t.sess.ID, patch); updated != nil {
		t.sess = updated
	}

	o.listener.AssistantUpdated(t.sess.ID, msg)
}

// settleCancelled ends a caller-cancelled turn that produced no envelope.
// Cancellation is not a failure: the persisted user message stands as is,
// with no apology appended for an answer nobody waited for.
func (o *Orchestrator) settleCancelled(sess *session.Session) *session.Message {
	log.Debug().Str("session_id", sess.ID).Msg("turn cancelled before a reply arrived")
	o.state = StateSettled
	o.listener.TurnSettled(sess.ID)
	return nil
}

// fail settles a broken turn: the fallback assistant message is appended and
// persisted, the already-persisted user message stays intact.
func (o *Orchestrator) fail(sess *session.Session, err error) *session.Message {
	msg := o.appendFallback(sess)
	o.state = StateErrored
	o.listener.TurnErrored(sess.ID, err)
	return msg
}

func (o *Orchestrator) appendFallback(sess *session.Session) *session.Message {
	msg := session.NewTextMessage(session.RoleAssistant, FallbackText)
	if updated := o.repo.AppendMessage(sess.ID, msg); updated != nil {
		*sess = *updated
	}
	o.listener.AssistantUpdated(sess.ID, msg)
	return &msg
}

type nopListener struct{}

func (nopListener) TurnStarted(string)                       {}
func (nopListener) AssistantUpdated(string, session.Message) {}
func (nopListener) TurnSettled(string)                       {}
func (nopListener) TurnErrored(string, error)                {}
