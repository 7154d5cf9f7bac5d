package session

import (
	"encoding/json"
	"time"
)

// Role values used throughout the engine.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Link is one citation attached to an assistant message.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
}

// StructuredContent is the canonical message body: rendered text plus an
// ordered list of citation links.
type StructuredContent struct {
	Text  string `json:"text"`
	Links []Link `json:"links,omitempty"`
}

// UnmarshalJSON accepts both the structured object form and a bare string,
// so transcripts persisted before links existed still load.
func (c *StructuredContent) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = StructuredContent{Text: s}
		return nil
	}

	type plain StructuredContent
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*c = StructuredContent(p)
	return nil
}

// Message is one entry in a session transcript. Order is append-only and
// meaningful; individual messages are never deleted or reordered.
type Message struct {
	Role    string            `json:"role"`
	Content StructuredContent `json:"content"`
}

// NewTextMessage builds a plain-text message.
func NewTextMessage(role, text string) Message {
	return Message{Role: role, Content: StructuredContent{Text: text}}
}

// Session is one persisted conversation thread.
type Session struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id,omitempty"`
	Messages       []Message `json:"messages"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
}
