package websearch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"researchd/app/config"
	"researchd/app/util/scrape"

	"github.com/samber/do"
	"golang.org/x/net/html"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36" +
	" (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

type Result struct {
	Title string `json:"title"`
	Link  string `json:"link"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		baseURL: cfg.WebSearch.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Search scrapes title+link pairs for the query. A failed request or an empty
// result page yields an empty slice, never an error the loop has to handle.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	endpoint := c.baseURL + "/search?q=" + url.QueryEscape(query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	root, err := scrape.Parse(resp.Body)
	if err != nil {
		return nil, nil
	}

	blocks := scrape.FindAll(root, func(n *html.Node) bool {
		return scrape.IsElement(n, "div") && scrape.HasClass(n, "tF2Cxc")
	})

	var results []Result
	for _, block := range blocks {
		title := scrape.FindFirst(block, func(n *html.Node) bool {
			return scrape.IsElement(n, "h3")
		})
		anchor := scrape.FindFirst(block, func(n *html.Node) bool {
			return scrape.IsElement(n, "a")
		})
		if title == nil || anchor == nil {
			continue
		}

		results = append(results, Result{
			Title: scrape.Text(title),
			Link:  scrape.Attr(anchor, "href"),
		})
	}

	return results, nil
}
