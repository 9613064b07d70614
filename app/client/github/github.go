package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"researchd/app/config"

	"github.com/elliotchance/pie/v2"
	"github.com/samber/do"
)

// ReadmeUnavailable marks a repository whose README could not be fetched.
const ReadmeUnavailable = "README not available"

// Slots filled from the paper-name search before the keyword search runs.
const reservedPaperSlots = 3

type Repo struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	URL      string `json:"url"`
	Stars    int    `json:"stars"`
	Size     int    `json:"size"`
	Language string `json:"language"`
	Readme   string `json:"readme,omitempty"`
}

type File struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

type Client struct {
	baseURL     string
	token       string
	searchDelay time.Duration
	httpClient  *http.Client

	mu         sync.Mutex
	nextSearch time.Time
}

func NewClient(di *do.Injector) (*Client, error) {
	cfg := do.MustInvoke[*config.Config](di)

	return &Client{
		baseURL:     cfg.GitHub.BaseURL,
		token:       cfg.GitHub.Token,
		searchDelay: cfg.GitHub.SearchDelay,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Search returns at most topK repositories matching the keywords, all with at
// least minStars stars, sorted by stars descending. When paperName is set, up
// to reservedPaperSlots slots are filled from a paper-specific search first.
// Survivors are enriched with their README text best-effort.
func (c *Client) Search(ctx context.Context, keyWords []string, paperName string, topK, minStars int) ([]Repo, error) {
	if topK <= 0 {
		topK = 5
	}

	var selected []Repo
	seen := make(map[string]bool)

	if strings.TrimSpace(paperName) != "" {
		paperRepos, err := c.searchOnce(ctx, paperName)
		if err != nil {
			slog.Warn("Paper-name search failed", "paper", paperName, "error", err)
		}

		for _, repo := range qualify(paperRepos, minStars) {
			if len(selected) >= reservedPaperSlots || len(selected) >= topK {
				break
			}
			key := repo.Owner + "/" + repo.Name
			if seen[key] {
				continue
			}
			seen[key] = true
			selected = append(selected, repo)
		}
	}

	query := strings.Join(keyWords, " ")
	if strings.TrimSpace(paperName) != "" {
		query += " " + paperName
	}

	keywordRepos, err := c.searchOnce(ctx, query)
	if err != nil {
		if len(selected) == 0 {
			return nil, fmt.Errorf("repository search failed: %w", err)
		}
		slog.Warn("Keyword search failed", "query", query, "error", err)
	}

	for _, repo := range qualify(keywordRepos, minStars) {
		if len(selected) >= topK {
			break
		}
		key := repo.Owner + "/" + repo.Name
		if seen[key] {
			continue
		}
		seen[key] = true
		selected = append(selected, repo)
	}

	selected = pie.SortStableUsing(selected, func(a, b Repo) bool {
		return a.Stars > b.Stars
	})

	for i := range selected {
		selected[i].Readme = c.Readme(ctx, selected[i].Owner, selected[i].Name)
	}

	return selected, nil
}

func qualify(repos []Repo, minStars int) []Repo {
	filtered := pie.Filter(repos, func(r Repo) bool {
		return r.Stars >= minStars
	})

	return pie.SortStableUsing(filtered, func(a, b Repo) bool {
		return a.Stars > b.Stars
	})
}

func (c *Client) searchOnce(ctx context.Context, query string) ([]Repo, error) {
	if err := c.waitSearchTurn(ctx); err != nil {
		return nil, err
	}

	endpoint := c.baseURL + "/search/repositories?q=" + url.QueryEscape(query)

	body, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Items []struct {
			Name    string `json:"name"`
			HTMLURL string `json:"html_url"`
			Stars   int    `json:"stargazers_count"`
			Size    int    `json:"size"`
			Lang    string `json:"language"`
			Owner   struct {
				Login string `json:"login"`
			} `json:"owner"`
		} `json:"items"`
	}

	if err = json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	repos := make([]Repo, 0, len(payload.Items))
	for _, item := range payload.Items {
		repos = append(repos, Repo{
			Owner:    item.Owner.Login,
			Name:     item.Name,
			URL:      item.HTMLURL,
			Stars:    item.Stars,
			Size:     item.Size,
			Language: item.Lang,
		})
	}

	return repos, nil
}

// waitSearchTurn enforces the courtesy delay between successive searches.
func (c *Client) waitSearchTurn(ctx context.Context) error {
	c.mu.Lock()
	now := time.Now()
	wait := c.nextSearch.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.nextSearch = now.Add(wait + c.searchDelay)
	c.mu.Unlock()

	if wait <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(wait):
		return nil
	}
}

// Readme fetches the repository README as raw text, best-effort.
func (c *Client) Readme(ctx context.Context, owner, repo string) string {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, owner, repo)

	body, err := c.get(ctx, endpoint, "application/vnd.github.v3.raw")
	if err != nil {
		return ReadmeUnavailable
	}

	return string(body)
}

// ListFiles returns the top-level contents of the repository.
func (c *Client) ListFiles(ctx context.Context, owner, repo string) ([]File, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents", c.baseURL, owner, repo)

	body, err := c.get(ctx, endpoint, "application/vnd.github+json")
	if err != nil {
		return nil, err
	}

	var files []File
	if err = json.Unmarshal(body, &files); err != nil {
		return nil, fmt.Errorf("failed to parse contents response: %w", err)
	}

	return files, nil
}

// FileContent fetches one file from the repository as raw text.
func (c *Client) FileContent(ctx context.Context, owner, repo, path string) (string, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, owner, repo, path)

	body, err := c.get(ctx, endpoint, "application/vnd.github.v3.raw")
	if err != nil {
		return "", err
	}

	return string(body), nil
}

func (c *Client) get(ctx context.Context, endpoint, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", accept)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read github response: %w", err)
	}

	return body, nil
}
