package search

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/services"
)

// maxExtractBytes bounds the text pulled from one source page.
const maxExtractBytes = 8 * 1024

// Extractor fetches source pages and pulls readable article text for the
// research stage.
type Extractor struct {
	httpClient *http.Client
}

// NewExtractor builds an extractor with a bounded request timeout.
func NewExtractor(timeout time.Duration) *Extractor {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Extractor{httpClient: &http.Client{Timeout: timeout}}
}

// Text fetches a URL and returns its paragraph text, truncated to a bounded
// size. Non-HTML or unreachable pages return an error the caller may ignore.
func (e *Extractor) Text(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build page request: %w", err)
	}
	req.Header.Set("User-Agent", "duniya-research/1.0")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "research", "fetch", "page fetch failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", services.Wrap(services.ErrExternalService, "research", "fetch",
			fmt.Sprintf("unexpected status %d for %s", resp.StatusCode, pageURL), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", services.Wrap(services.ErrExternalService, "research", "parse", "parse page", err)
	}

	doc.Find("script, style, nav, header, footer, aside").Remove()

	var builder strings.Builder
	doc.Find("p").EachWithBreak(func(_ int, selection *goquery.Selection) bool {
		text := strings.TrimSpace(selection.Text())
		if text == "" {
			return true
		}
		if builder.Len() > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString(text)
		return builder.Len() < maxExtractBytes
	})

	text := builder.String()
	if len(text) > maxExtractBytes {
		text = text[:maxExtractBytes]
	}
	if strings.TrimSpace(text) == "" {
		return "", services.Wrap(services.ErrMissingData, "research", "extract", "no readable text in page", nil)
	}
	return text, nil
}
