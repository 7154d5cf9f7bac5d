// Package envelope converts the backend's heterogeneous response shapes into
// one canonical message-update form. The backend has gone through several
// payload revisions (wrapped, delta-framed, flat) and a widget in the field
// sees all of them, so shapes are tried in a fixed priority order.
package envelope

import (
	"chatwidget/internal/session"
)

// Envelope is one normalized unit of server output.
type Envelope struct {
	ConversationID string
	Role           string
	Content        session.StructuredContent
}

// Normalize shapes one decoded JSON value into an Envelope, or nil when the
// value carries no usable message. It never panics on unexpected input.
//
// Resolution order, first match wins:
//  1. an envelope wrapping a nested message object -> unwrap and recurse
//  2. a "delta" or "data" wrapper -> unwrap and recurse
//  3. a direct "content" field -> adopt (string or {text, links} object)
//  4. flat "message"/"links"/"knowledge_links" fields -> synthesize
func Normalize(v any) *Envelope {
	m, ok := v.(map[string]any)
	if !ok {
		return nil
	}

	if nested, ok := m["new_message"].(map[string]any); ok {
		return inherit(m, Normalize(nested))
	}
	if nested, ok := m["message"].(map[string]any); ok {
		return inherit(m, Normalize(nested))
	}
	for _, key := range []string{"delta", "data"} {
		if nested, ok := m[key].(map[string]any); ok {
			return inherit(m, Normalize(nested))
		}
	}

	if content, ok := m["content"]; ok {
		return build(m, parseContent(content))
	}

	if text, ok := m["message"].(string); ok {
		sc := session.StructuredContent{Text: text, Links: parseLinks(linksField(m))}
		return build(m, sc)
	}

	return nil
}

// build assembles the envelope from the carrying object, dropping shapes
// with neither text nor links.
func build(m map[string]any, sc session.StructuredContent) *Envelope {
	if sc.Text == "" && len(sc.Links) == 0 {
		return nil
	}
	sc.Links = session.NormalizeLinks(sc.Links)

	env := &Envelope{Role: session.RoleAssistant, Content: sc}
	if role, ok := m["role"].(string); ok && role != "" {
		env.Role = role
	}
	if cid, ok := m["conversation_id"].(string); ok {
		env.ConversationID = cid
	}
	return env
}

// inherit carries conversation_id from an outer wrapper when the inner
// object did not set one.
func inherit(outer map[string]any, env *Envelope) *Envelope {
	if env == nil {
		return nil
	}
	if env.ConversationID == "" {
		if cid, ok := outer["conversation_id"].(string); ok {
			env.ConversationID = cid
		}
	}
	return env
}

func parseContent(v any) session.StructuredContent {
	switch c := v.(type) {
	case string:
		return session.StructuredContent{Text: c}
	case map[string]any:
		sc := session.StructuredContent{}
		if text, ok := c["text"].(string); ok {
			sc.Text = text
		}
		sc.Links = parseLinks(linksField(c))
		return sc
	default:
		return session.StructuredContent{}
	}
}

func linksField(m map[string]any) any {
	if v, ok := m["links"]; ok {
		return v
	}
	return m["knowledge_links"]
}

func parseLinks(v any) []session.Link {
	items, ok := v.([]any)
	if !ok {
		return nil
	}

	links := make([]session.Link, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		var l session.Link
		if u, ok := entry["url"].(string); ok {
			l.URL = u
		}
		if label, ok := entry["label"].(string); ok {
			l.Label = label
		}
		if l.URL == "" {
			continue
		}
		links = append(links, l)
	}
	if len(links) == 0 {
		return nil
	}
	return links
}
