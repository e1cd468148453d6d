package digest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Payload is the renderer input: run metadata, counts, an optional config
// overlay and the classified items.
type Payload struct {
	Meta   Meta            `json:"meta"`
	Counts Counts          `json:"counts"`
	Cfg    json.RawMessage `json:"cfg,omitempty"`
	Items  []PayloadItem   `json:"items"`
}

// Meta describes where a payload came from.
type Meta struct {
	Created   string `json:"created,omitempty"`
	TS        string `json:"ts,omitempty"`
	DumpDate  string `json:"dump_date,omitempty"`
	Source    string `json:"source,omitempty"`
	TabdumpID string `json:"tabdump_id,omitempty"`
}

// Counts are the upstream tab counters.
type Counts struct {
	Total  int `json:"total"`
	Dumped int `json:"dumped"`
	Closed int `json:"closed"`
	Kept   int `json:"kept"`
}

// PayloadItem is one classified tab. Decoding is total: fields of the
// wrong shape are coerced or dropped, never rejected.
type PayloadItem struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	NormURL string  `json:"norm_url,omitempty"`
	Domain  string  `json:"domain,omitempty"`
	Browser string  `json:"browser,omitempty"`
	Kind    string  `json:"kind,omitempty"`
	Topics  []Topic `json:"topics,omitempty"`
	Intent  Intent  `json:"intent"`
	Effort  string  `json:"effort,omitempty"`
	Flags   Flags   `json:"flags"`
}

// Topic is a topic tag with optional display title and confidence.
type Topic struct {
	Slug       string  `json:"slug"`
	Title      string  `json:"title,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// Intent is the suggested action with its confidence in 0..1.
type Intent struct {
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

// Flags mark admin-only pages.
type Flags struct {
	IsLocal    bool `json:"is_local"`
	IsAuth     bool `json:"is_auth"`
	IsChat     bool `json:"is_chat"`
	IsInternal bool `json:"is_internal"`
}

// Any reports whether any flag is set.
func (f Flags) Any() bool {
	return f.IsLocal || f.IsAuth || f.IsChat || f.IsInternal
}

// UnmarshalJSON decodes an item from an arbitrary JSON value. Non-object
// values decode to an empty item, which normalization later skips.
func (it *PayloadItem) UnmarshalJSON(b []byte) error {
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		*it = PayloadItem{}
		return nil
	}
	*it = itemFromMap(m)
	return nil
}

func itemFromMap(m map[string]any) PayloadItem {
	it := PayloadItem{
		Title:   stringOf(m["title"]),
		URL:     strings.TrimSpace(stringOf(m["url"])),
		NormURL: stringOf(m["norm_url"]),
		Domain:  stringOf(m["domain"]),
		Browser: stringOf(m["browser"]),
		Kind:    stringOf(m["kind"]),
	}
	if s, ok := m["effort"].(string); ok {
		it.Effort = s
	}
	if intent, ok := m["intent"].(map[string]any); ok {
		it.Intent = Intent{
			Action:     stringOf(intent["action"]),
			Confidence: clampUnit(floatOf(intent["confidence"])),
		}
	}
	if list, ok := m["topics"].([]any); ok {
		for _, raw := range list {
			switch v := raw.(type) {
			case string:
				it.Topics = append(it.Topics, Topic{Slug: v})
			case map[string]any:
				it.Topics = append(it.Topics, Topic{
					Slug:       stringOf(v["slug"]),
					Title:      stringOf(v["title"]),
					Confidence: floatOf(v["confidence"]),
				})
			}
		}
	}
	if flags, ok := m["flags"].(map[string]any); ok {
		it.Flags = Flags{
			IsLocal:    truthy(flags["is_local"]),
			IsAuth:     truthy(flags["is_auth"]),
			IsChat:     truthy(flags["is_chat"]),
			IsInternal: truthy(flags["is_internal"]),
		}
	}
	return it
}

// DecodePayload parses a JSON payload document.
func DecodePayload(data []byte) (*Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &p, nil
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

func floatOf(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err == nil {
			return f
		}
	case bool:
		if x {
			return 1
		}
	}
	return 0
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		return x != ""
	case nil:
		return false
	}
	return true
}

func clampUnit(v float64) float64 {
	if v < 0 || v != v {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
