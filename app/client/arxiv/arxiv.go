package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"researchd/app/config"

	"github.com/samber/do"
)

type Paper struct {
	Title   string   `json:"title"`
	Summary string   `json:"summary"`
	Link    string   `json:"link"`
	Authors []string `json:"authors"`
	Score   float64  `json:"semantic_score"`
}

type Client struct {
	baseURL    string
	maxPapers  int
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		baseURL:   cfg.Arxiv.BaseURL,
		maxPapers: cfg.Arxiv.MaxPapers,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	Title   string       `xml:"title"`
	Summary string       `xml:"summary"`
	Links   []atomLink   `xml:"link"`
	Authors []atomAuthor `xml:"author"`
}

type atomLink struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title,attr"`
}

type atomAuthor struct {
	Name string `xml:"name"`
}

// Search fetches candidate papers for the given query expression from the
// Atom API, capped at the configured maximum.
func (c *Client) Search(ctx context.Context, expression string) ([]Paper, error) {
	endpoint := fmt.Sprintf("%s/api/query?search_query=%s&start=0&max_results=%d",
		c.baseURL, url.QueryEscape(expression), c.maxPapers)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("arxiv request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read arxiv response: %w", err)
	}

	var feed atomFeed
	if err = xml.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("failed to parse arxiv feed: %w", err)
	}

	papers := make([]Paper, 0, len(feed.Entries))
	for _, entry := range feed.Entries {
		paper := Paper{
			Title:   strings.TrimSpace(entry.Title),
			Summary: strings.TrimSpace(entry.Summary),
		}

		for _, link := range entry.Links {
			if link.Title == "pdf" {
				paper.Link = link.Href
				break
			}
		}
		if paper.Link == "" && len(entry.Links) > 0 {
			paper.Link = entry.Links[0].Href
		}

		for _, author := range entry.Authors {
			paper.Authors = append(paper.Authors, strings.TrimSpace(author.Name))
		}

		papers = append(papers, paper)
	}

	return papers, nil
}
