package session

import (
	"net/url"
	"strings"
)

// NormalizeLinks deduplicates a link list by normalized URL. The first
// occurrence keeps its position; a later duplicate only contributes its label
// when the kept entry has none. Entries with an unparseable URL are kept as-is
// and deduplicated by their raw string.
func NormalizeLinks(links []Link) []Link {
	if len(links) == 0 {
		return nil
	}

	out := make([]Link, 0, len(links))
	index := make(map[string]int, len(links))

	for _, l := range links {
		if strings.TrimSpace(l.URL) == "" {
			continue
		}
		key, display := normalizeURL(l.URL)

		if i, seen := index[key]; seen {
			if out[i].Label == "" && l.Label != "" {
				out[i].Label = l.Label
			}
			continue
		}

		entry := Link{URL: display, Label: l.Label}
		index[key] = len(out)
		out = append(out, entry)
	}

	// Derive labels last, so an explicit label from any duplicate wins over
	// a host-derived one.
	for i := range out {
		if out[i].Label == "" {
			out[i].Label = deriveLabel(out[i].URL)
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizeURL returns the dedupe key and the display form of a URL:
// case-folded host, trailing slash stripped from the path, query preserved.
func normalizeURL(raw string) (key, display string) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		trimmed := strings.TrimRight(strings.TrimSpace(raw), "/")
		return strings.ToLower(trimmed), trimmed
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.Fragment = ""

	display = u.String()
	key = u.Host + u.Path
	if u.RawQuery != "" {
		key += "?" + u.RawQuery
	}
	return key, display
}

func deriveLabel(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		return strings.TrimPrefix(u.Host, "www.")
	}
	return raw
}
