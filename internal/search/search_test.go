package search_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/config"
	"github.com/AteebHussain2/Times-Of-Duniya-Backend/internal/search"
)

func TestNewsSendsAPIKeyAndParsesResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/news" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if got := r.Header.Get("X-API-KEY"); got != "serper-key" {
			t.Errorf("unexpected api key header %q", got)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req["q"] != "pakistan floods" {
			t.Errorf("unexpected query %v", req["q"])
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"news": []map[string]any{
				{"title": "Floods worsen", "link": "https://news.example.com/1", "snippet": "Rivers rise", "date": "6 hours ago", "source": "Example News"},
				{"title": "Relief effort", "link": "https://news.example.com/2"},
			},
		})
	}))
	defer server.Close()

	client := search.New(config.Search{
		APIKey:         "serper-key",
		BaseURL:        server.URL,
		MaxResults:     10,
		TimeoutSeconds: 5,
	})

	results, err := client.News(context.Background(), "pakistan floods")
	if err != nil {
		t.Fatalf("news: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Floods worsen" || results[0].Source != "Example News" {
		t.Fatalf("unexpected result: %+v", results[0])
	}
}

func TestNewsTruncatesToMaxResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"news": []map[string]any{
				{"title": "a"}, {"title": "b"}, {"title": "c"},
			},
		})
	}))
	defer server.Close()

	client := search.New(config.Search{APIKey: "k", BaseURL: server.URL, MaxResults: 2, TimeoutSeconds: 5})
	results, err := client.News(context.Background(), "q")
	if err != nil {
		t.Fatalf("news: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected truncation to 2, got %d", len(results))
	}
}

func TestNewsErrorsOnBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := search.New(config.Search{APIKey: "k", BaseURL: server.URL, MaxResults: 2, TimeoutSeconds: 5})
	if _, err := client.News(context.Background(), "q"); err == nil {
		t.Fatal("expected error")
	}
}

func TestExtractorPullsParagraphText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(`<html><head><style>p{color:red}</style></head><body>
            <nav>Menu</nav>
            <p>First paragraph of the article.</p>
            <script>console.log("noise")</script>
            <p>Second paragraph with details.</p>
            <footer>Copyright</footer>
        </body></html>`))
	}))
	defer server.Close()

	extractor := search.NewExtractor(5 * time.Second)
	text, err := extractor.Text(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !strings.Contains(text, "First paragraph") || !strings.Contains(text, "Second paragraph") {
		t.Fatalf("unexpected text: %q", text)
	}
	for _, noise := range []string{"Menu", "console.log", "Copyright", "color:red"} {
		if strings.Contains(text, noise) {
			t.Fatalf("expected %q stripped, got %q", noise, text)
		}
	}
}

func TestExtractorErrorsOnEmptyPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html><body><div>no paragraphs here</div></body></html>"))
	}))
	defer server.Close()

	extractor := search.NewExtractor(5 * time.Second)
	if _, err := extractor.Text(context.Background(), server.URL); err == nil {
		t.Fatal("expected error for page without paragraphs")
	}
}
