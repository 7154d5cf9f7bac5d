package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLinks(t *testing.T) {
	tests := []struct {
		name string
		in   []Link
		want []Link
	}{
		{
			name: "nil stays nil",
			in:   nil,
			want: nil,
		},
		{
			name: "trailing slash and empty label collapse",
			in: []Link{
				{URL: "https://a.com/x/", Label: "A"},
				{URL: "https://a.com/x", Label: ""},
			},
			want: []Link{{URL: "https://a.com/x", Label: "A"}},
		},
		{
			name: "explicit label from later duplicate beats derived",
			in: []Link{
				{URL: "https://docs.example.org/guide/"},
				{URL: "https://DOCS.example.org/guide", Label: "Guide"},
			},
			want: []Link{{URL: "https://docs.example.org/guide", Label: "Guide"}},
		},
		{
			name: "host case folded, query preserved",
			in: []Link{
				{URL: "https://A.com/search?q=Go", Label: "one"},
				{URL: "https://a.com/search?q=Go", Label: "two"},
				{URL: "https://a.com/search?q=Rust", Label: "three"},
			},
			want: []Link{
				{URL: "https://a.com/search?q=Go", Label: "one"},
				{URL: "https://a.com/search?q=Rust", Label: "three"},
			},
		},
		{
			name: "missing label derived from host",
			in:   []Link{{URL: "https://www.example.com/page"}},
			want: []Link{{URL: "https://www.example.com/page", Label: "example.com"}},
		},
		{
			name: "blank urls dropped",
			in:   []Link{{URL: "   ", Label: "x"}, {URL: "", Label: "y"}},
			want: nil,
		},
		{
			name: "order preserved first wins",
			in: []Link{
				{URL: "https://b.com/1", Label: "B"},
				{URL: "https://a.com/1", Label: "A"},
				{URL: "https://b.com/1/", Label: "ignored"},
			},
			want: []Link{
				{URL: "https://b.com/1", Label: "B"},
				{URL: "https://a.com/1", Label: "A"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeLinks(tt.in))
		})
	}
}

func TestNormalizeLinksUnparseable(t *testing.T) {
	got := NormalizeLinks([]Link{{URL: "not a url", Label: "raw"}})
	require.Len(t, got, 1)
	assert.Equal(t, "not a url", got[0].URL)
	assert.Equal(t, "raw", got[0].Label)
}
