package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const resultPageFixture = `<html><body>
<div class="tF2Cxc">
  <a href="https://example.com/paper"><h3>Paper  title</h3></a>
</div>
<div class="tF2Cxc">
  <a href="https://example.org/blog"><h3>Blog post</h3></a>
</div>
<div class="tF2Cxc">
  <span>missing heading</span>
</div>
</body></html>`

func newTestClient(serverURL string) *Client {
	return &Client{
		baseURL: serverURL,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

func TestSearchParsesResults(t *testing.T) {
	var gotUA, gotQuery string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, resultPageFixture)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	results, err := client.Search(context.Background(), "diffusion models survey")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}

	if gotUA != userAgent {
		t.Errorf("User-Agent = %q", gotUA)
	}
	if gotQuery != "diffusion models survey" {
		t.Errorf("query = %q", gotQuery)
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Paper title" || results[0].Link != "https://example.com/paper" {
		t.Errorf("first result = %+v", results[0])
	}
	if results[1].Title != "Blog post" || results[1].Link != "https://example.org/blog" {
		t.Errorf("second result = %+v", results[1])
	}
}

func TestSearchBlockedUpstream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	results, err := client.Search(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want none", len(results))
	}
}
