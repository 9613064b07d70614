package pdftext

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/samber/do"
	"github.com/tmc/langchaingo/documentloaders"
)

var arxivIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`https?://(?:www\.)?arxiv\.org/(?:abs|html|pdf)/([0-9]{4}\.[0-9]{4,5}(?:v\d+)?)`),
	regexp.MustCompile(`https?://ar5iv\.labs\.arxiv\.org/(?:html|abs)/([0-9]{4}\.[0-9]{4,5}(?:v\d+)?)`),
}

var gitLinkRe = regexp.MustCompile(`https?://(?:www\.)?(?:github\.com|gitlab\.com)/[\w\-\./]+`)

type Client struct {
	httpClient *http.Client
}

func NewClient(_ *do.Injector) (*Client, error) {
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// NormalizeArxivLink canonicalizes abs/html/pdf and ar5iv forms to the direct
// PDF link, stripping any version suffix. The second return is false when the
// URL is not a recognized arXiv form and not already a PDF.
func NormalizeArxivLink(rawURL string) (string, bool) {
	if strings.HasSuffix(rawURL, ".pdf") {
		return rawURL, true
	}

	for _, pattern := range arxivIDPatterns {
		match := pattern.FindStringSubmatch(rawURL)
		if match == nil {
			continue
		}

		id := match[1]
		if idx := strings.Index(id, "v"); idx >= 0 {
			id = id[:idx]
		}

		return "https://arxiv.org/pdf/" + id, true
	}

	return "", false
}

// FetchPDF downloads the PDF behind an arXiv-style link.
func (c *Client) FetchPDF(ctx context.Context, rawURL string) ([]byte, error) {
	pdfURL, ok := NormalizeArxivLink(rawURL)
	if !ok {
		return nil, fmt.Errorf("not a recognized arxiv link: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("pdf download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("pdf download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read pdf body: %w", err)
	}

	return data, nil
}

// ExtractText pulls the plain text out of PDF bytes, one page per line.
func ExtractText(ctx context.Context, data []byte) (string, error) {
	loader := documentloaders.NewPDF(bytes.NewReader(data), int64(len(data)))

	docs, err := loader.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract pdf text: %w", err)
	}

	var builder strings.Builder
	for _, doc := range docs {
		builder.WriteString(doc.PageContent)
		builder.WriteString("\n")
	}

	return builder.String(), nil
}

// ExtractGitLinks pulls GitHub/GitLab URLs out of text, cleaning trailing
// punctuation and deduplicating while preserving first-seen order.
func ExtractGitLinks(text string) []string {
	matches := gitLinkRe.FindAllString(text, -1)

	seen := make(map[string]bool)
	var links []string

	for _, link := range matches {
		link = strings.TrimRight(link, ".,;)")
		if seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}

	return links
}
