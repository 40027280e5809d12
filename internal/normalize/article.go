package normalize

// ArticleDraft is the drafted article embedded in a review verdict.
type ArticleDraft struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Content string   `json:"content"`
	Tags    []string `json:"tags"`
	Sources []string `json:"sources"`
}

// ArticleReview is the canonical editorial verdict shape. A failed
// normalization yields the zero value, never an error.
type ArticleReview struct {
	AccuracyScore int          `json:"accuracy_score"`
	Reason        string       `json:"reason"`
	Status        string       `json:"status"`
	Feedback      string       `json:"feedback"`
	Article       ArticleDraft `json:"article"`
}

// Empty reports whether normalization produced no usable article.
func (r ArticleReview) Empty() bool {
	return r.Article.Content == ""
}

// Approved reports whether the review both carries content and passed editorial review.
func (r ArticleReview) Approved() bool {
	return !r.Empty() && r.Status == "APPROVED"
}

// Article coerces raw agent output into the canonical review shape. Accepts an
// already-shaped ArticleReview, a decoded JSON map, or raw text. Any shape or
// parse failure collapses to the zero value.
func Article(raw any) ArticleReview {
	switch value := raw.(type) {
	case ArticleReview:
		return value
	case map[string]any:
		return articleFromMap(value)
	case nil:
		return ArticleReview{}
	default:
		var decoded map[string]any
		if err := DecodeAgentJSON(coerceString(value), &decoded); err != nil {
			return ArticleReview{}
		}
		return articleFromMap(decoded)
	}
}

func articleFromMap(payload map[string]any) ArticleReview {
	articleFields, ok := payload["article"].(map[string]any)
	if !ok {
		return ArticleReview{}
	}
	review := ArticleReview{
		AccuracyScore: intField(payload, "accuracy_score"),
		Reason:        stringField(payload, "reason"),
		Status:        stringField(payload, "status"),
		Feedback:      stringField(payload, "feedback"),
		Article: ArticleDraft{
			Title:   stringField(articleFields, "title"),
			Summary: stringField(articleFields, "summary"),
			Content: stringField(articleFields, "content"),
			Tags:    stringsField(articleFields, "tags"),
			Sources: stringsField(articleFields, "sources"),
		},
	}
	return review
}

func intField(fields map[string]any, key string) int {
	switch value := fields[key].(type) {
	case float64:
		return int(value)
	case int:
		return value
	default:
		return 0
	}
}

func stringsField(fields map[string]any, key string) []string {
	raw, ok := fields[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, entry := range raw {
		if s, ok := entry.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
