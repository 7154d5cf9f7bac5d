package session

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructuredContentUnmarshal(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want StructuredContent
	}{
		{
			name: "bare string",
			in:   `"just text"`,
			want: StructuredContent{Text: "just text"},
		},
		{
			name: "structured object",
			in:   `{"text":"hi","links":[{"url":"https://a.com","label":"A"}]}`,
			want: StructuredContent{
				Text:  "hi",
				Links: []Link{{URL: "https://a.com", Label: "A"}},
			},
		},
		{
			name: "object without links",
			in:   `{"text":"hi"}`,
			want: StructuredContent{Text: "hi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c StructuredContent
			require.NoError(t, json.Unmarshal([]byte(tt.in), &c))
			assert.Equal(t, tt.want, c)
		})
	}
}

func TestMessageRoundTrip(t *testing.T) {
	msg := Message{
		Role: RoleAssistant,
		Content: StructuredContent{
			Text:  "see the docs",
			Links: []Link{{URL: "https://a.com/x", Label: "A"}},
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, msg, got)
}
