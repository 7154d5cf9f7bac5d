// Package backend issues chat requests against the remote conversational
// endpoint. It only moves bytes: decoding the response stream is the sse
// package's job, and deciding what to do with it is the orchestrator's.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"chatwidget/internal/session"
)

// Message is the flattened wire form of a transcript entry. Structured
// content is reduced to plain text for outbound requests.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is the outbound JSON body.
type Request struct {
	ConversationID *string   `json:"conversation_id"`
	Messages       []Message `json:"messages"`
}

// Response wraps the raw reply body. ContentType lets the caller pick
// between incremental decoding and the whole-body fallback.
type Response struct {
	Body        io.ReadCloser
	ContentType string
}

// Streaming reports whether the body should be consumed incrementally.
func (r *Response) Streaming() bool {
	return !strings.Contains(r.ContentType, "application/json")
}

// Client talks to the configured chat endpoint.
type Client struct {
	endpoint string
	apiKey   string

	// Streaming responses stay open for the duration of a reply, so the
	// streaming client carries no overall timeout; the context bounds it.
	streamingClient *http.Client
}

// NewClient creates a client for the given endpoint. The API key is passed
// through on every request, not managed here.
func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		streamingClient: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: 30 * time.Second,
			},
		},
	}
}

// Send posts the full flattened transcript and returns the reply body for
// decoding. Any non-2xx status is a transport failure.
func (c *Client) Send(ctx context.Context, conversationID string, transcript []session.Message) (*Response, error) {
	req := Request{Messages: Flatten(transcript)}
	if conversationID != "" {
		req.ConversationID = &conversationID
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream, application/json")
	httpReq.Header.Set("Authorization", "ApiKey "+c.apiKey)

	resp, err := c.streamingClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "request failed")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, errors.Errorf("backend returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}

	return &Response{
		Body:        resp.Body,
		ContentType: resp.Header.Get("Content-Type"),
	}, nil
}

// Flatten reduces a transcript to the outbound wire form; link lists are
// dropped and only the rendered text travels.
func Flatten(transcript []session.Message) []Message {
	out := make([]Message, 0, len(transcript))
	for _, m := range transcript {
		out = append(out, Message{Role: m.Role, Content: m.Content.Text})
	}
	return out
}
