package normalize

import (
	"fmt"
	"strings"
)

// TopicItem is one normalized trending topic.
type TopicItem struct {
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Sources   []string `json:"sources"`
	Published string   `json:"published"`
}

// TopicList is the canonical topic payload shape. A failed normalization
// yields the empty list, never an error.
type TopicList struct {
	Items []TopicItem `json:"items"`
}

// Empty reports whether normalization produced no topics.
func (l TopicList) Empty() bool {
	return len(l.Items) == 0
}

// Topics coerces raw agent output into the canonical topic list. Accepts an
// already-shaped TopicList, a decoded JSON map, or raw text. Any shape or
// parse failure collapses to the empty list.
func Topics(raw any) TopicList {
	switch value := raw.(type) {
	case TopicList:
		return value
	case map[string]any:
		return topicsFromMap(value)
	case nil:
		return TopicList{}
	default:
		var decoded map[string]any
		if err := DecodeAgentJSON(coerceString(value), &decoded); err != nil {
			return TopicList{}
		}
		return topicsFromMap(decoded)
	}
}

func topicsFromMap(payload map[string]any) TopicList {
	rawItems, ok := payload["items"].([]any)
	if !ok {
		return TopicList{}
	}
	items := make([]TopicItem, 0, len(rawItems))
	for _, entry := range rawItems {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		item := TopicItem{
			Title:     stringField(fields, "title"),
			Summary:   stringField(fields, "summary"),
			Published: stringField(fields, "published"),
			Sources:   sourcesField(fields),
		}
		if item.Title == "" {
			continue
		}
		items = append(items, item)
	}
	return TopicList{Items: items}
}

// sourcesField accepts both "sources" and the singular "source" key, with
// string or list values, and flattens them to a string slice.
func sourcesField(fields map[string]any) []string {
	for _, key := range []string{"sources", "source"} {
		value, ok := fields[key]
		if !ok {
			continue
		}
		switch typed := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(typed); trimmed != "" {
				return []string{trimmed}
			}
		case []any:
			out := make([]string, 0, len(typed))
			for _, entry := range typed {
				if s, ok := entry.(string); ok && strings.TrimSpace(s) != "" {
					out = append(out, strings.TrimSpace(s))
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}

func stringField(fields map[string]any, key string) string {
	if value, ok := fields[key].(string); ok {
		return strings.TrimSpace(value)
	}
	return ""
}

func coerceString(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case []byte:
		return string(typed)
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprint(typed)
	}
}
