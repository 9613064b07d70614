package huggingface

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"researchd/app/config"
	"researchd/app/util/scrape"

	"github.com/samber/do"
	"golang.org/x/net/html"
)

// ErrNoMorePages signals that the cursor's page budget is exhausted or the
// upstream ran out of results.
var ErrNoMorePages = errors.New("no more pages")

var whitespaceRe = regexp.MustCompile(`\s+`)

// Entry is one full-text search hit.
type Entry struct {
	Name       string `json:"item_name"`
	Link       string `json:"item_link"`
	ReadmeLink string `json:"item_read_me"`
	Matches    string `json:"item_matches"`
}

type Model struct {
	Name        string `json:"model_name"`
	LastUpdated string `json:"last_updated"`
	Liked       string `json:"liked"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		baseURL: cfg.HuggingFace.BaseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Cursor pages through full-text search results. Page size is fixed upstream;
// the caller supplies a page budget at construction time.
type Cursor struct {
	client   *Client
	infoType string
	query    string
	page     int
	budget   int
}

// FullTextSearch builds a cursor over the full-text search for the given item
// type (model, dataset or space).
func (c *Client) FullTextSearch(infoType, query string, pageBudget int) *Cursor {
	query = whitespaceRe.ReplaceAllString(query, "+")

	return &Cursor{
		client:   c,
		infoType: infoType,
		query:    query,
		budget:   pageBudget,
	}
}

// Next fetches the next page of entries, or ErrNoMorePages once the budget is
// spent or the upstream returns an empty page.
func (cur *Cursor) Next(ctx context.Context) ([]Entry, error) {
	if cur.budget <= 0 {
		return nil, ErrNoMorePages
	}
	cur.budget--

	endpoint := fmt.Sprintf("%s/search/full-text?q=%s&type=%s&p=%d",
		cur.client.baseURL, cur.query, cur.infoType, cur.page)
	cur.page++

	root, err := cur.client.fetchHTML(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	entries := cur.client.parseSearchResults(root)
	if len(entries) == 0 {
		cur.budget = 0
		return nil, ErrNoMorePages
	}

	return entries, nil
}

func (c *Client) parseSearchResults(root *html.Node) []Entry {
	items := scrape.FindAll(root, func(n *html.Node) bool {
		return scrape.IsElement(n, "div") && scrape.HasClass(n, "transform")
	})

	var entries []Entry
	for _, item := range items {
		headings := scrape.FindAll(item, func(n *html.Node) bool {
			return scrape.IsElement(n, "h4")
		})
		if len(headings) == 0 {
			continue
		}

		anchors := scrape.FindAll(headings[0], func(n *html.Node) bool {
			return scrape.IsElement(n, "a")
		})
		if len(anchors) < 2 {
			continue
		}

		entry := Entry{
			Name: scrape.Attr(anchors[1], "href"),
		}
		entry.Link = c.baseURL + entry.Name

		if len(headings) > 1 {
			if readme := scrape.FindFirst(headings[1], func(n *html.Node) bool {
				return scrape.IsElement(n, "a")
			}); readme != nil {
				entry.ReadmeLink = c.baseURL + scrape.Attr(readme, "href")
			}
		}

		if header := scrape.FindFirst(item, func(n *html.Node) bool {
			return scrape.IsElement(n, "header")
		}); header != nil {
			divs := scrape.FindAll(header, func(n *html.Node) bool {
				return scrape.IsElement(n, "div")
			})
			if len(divs) > 0 {
				entry.Matches = scrape.Text(divs[len(divs)-1])
			}
		}

		entries = append(entries, entry)
	}

	return entries
}

// ListModelsByTask returns the first page of models filtered by pipeline task,
// sorted by one of: trending, likes, downloads, created, modified.
func (c *Client) ListModelsByTask(ctx context.Context, task, sortBy, search string) ([]Model, error) {
	endpoint := fmt.Sprintf("%s/models?pipeline_tag=%s&sort=%s", c.baseURL, task, sortBy)
	if search != "" {
		endpoint += "&search=" + search
	}

	root, err := c.fetchHTML(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	articles := scrape.FindAll(root, func(n *html.Node) bool {
		return scrape.IsElement(n, "article")
	})

	var models []Model
	for _, article := range articles {
		anchor := scrape.FindFirst(article, func(n *html.Node) bool {
			return scrape.IsElement(n, "a")
		})
		if anchor == nil {
			continue
		}

		model := Model{
			Name: trimLeadingSlash(scrape.Attr(anchor, "href")),
		}

		if timeNode := scrape.FindFirst(article, func(n *html.Node) bool {
			return scrape.IsElement(n, "time")
		}); timeNode != nil {
			model.LastUpdated = scrape.Attr(timeNode, "datetime")
		}

		// The likes count is the text right after the card's last icon.
		if svgs := scrape.FindAll(article, func(n *html.Node) bool {
			return scrape.IsElement(n, "svg")
		}); len(svgs) > 0 {
			model.Liked = nextSiblingText(svgs[len(svgs)-1])
		}

		models = append(models, model)
	}

	return models, nil
}

// PageText fetches a page and flattens it to whitespace-normalized text,
// originally meant for README pages.
func (c *Client) PageText(ctx context.Context, pageURL string) (string, error) {
	root, err := c.fetchHTML(ctx, pageURL)
	if err != nil {
		return "", err
	}

	return scrape.Text(root), nil
}

func (c *Client) fetchHTML(ctx context.Context, endpoint string) (*html.Node, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hugging face request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hugging face returned status %d", resp.StatusCode)
	}

	root, err := scrape.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse hugging face page: %w", err)
	}

	return root, nil
}

func nextSiblingText(n *html.Node) string {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type != html.TextNode {
			continue
		}
		if text := strings.TrimSpace(sib.Data); text != "" {
			return text
		}
	}

	return ""
}

func trimLeadingSlash(s string) string {
	if len(s) > 0 && s[0] == '/' {
		return s[1:]
	}

	return s
}
