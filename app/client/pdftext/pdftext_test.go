package pdftext

import (
	"testing"
)

func TestNormalizeArxivLink(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		want   string
		wantOK bool
	}{
		{
			name:   "abs link",
			url:    "https://arxiv.org/abs/1706.03762",
			want:   "https://arxiv.org/pdf/1706.03762",
			wantOK: true,
		},
		{
			name:   "pdf link",
			url:    "https://arxiv.org/pdf/1706.03762",
			want:   "https://arxiv.org/pdf/1706.03762",
			wantOK: true,
		},
		{
			name:   "html link with version",
			url:    "https://arxiv.org/html/2301.12345v2",
			want:   "https://arxiv.org/pdf/2301.12345",
			wantOK: true,
		},
		{
			name:   "ar5iv link",
			url:    "https://ar5iv.labs.arxiv.org/html/2106.09685",
			want:   "https://arxiv.org/pdf/2106.09685",
			wantOK: true,
		},
		{
			name:   "www prefix",
			url:    "http://www.arxiv.org/abs/2005.14165v1",
			want:   "https://arxiv.org/pdf/2005.14165",
			wantOK: true,
		},
		{
			name:   "direct pdf elsewhere",
			url:    "https://example.com/paper.pdf",
			want:   "https://example.com/paper.pdf",
			wantOK: true,
		},
		{
			name:   "unrelated url",
			url:    "https://example.com/page",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeArxivLink(tt.url)

			if ok != tt.wantOK {
				t.Fatalf("NormalizeArxivLink(%q) ok = %v, want %v", tt.url, ok, tt.wantOK)
			}
			if ok && got != tt.want {
				t.Errorf("NormalizeArxivLink(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestExtractGitLinks(t *testing.T) {
	text := "Our code is available at https://github.com/foo/bar." +
		" See also https://gitlab.com/baz/qux, and again https://github.com/foo/bar" +
		" plus https://www.github.com/another/repo;"

	links := ExtractGitLinks(text)

	want := []string{
		"https://github.com/foo/bar",
		"https://gitlab.com/baz/qux",
		"https://www.github.com/another/repo",
	}

	if len(links) != len(want) {
		t.Fatalf("got %d links %v, want %d", len(links), links, len(want))
	}

	for i, link := range links {
		if link != want[i] {
			t.Errorf("links[%d] = %q, want %q", i, link, want[i])
		}
	}
}

func TestExtractGitLinksEmpty(t *testing.T) {
	if links := ExtractGitLinks("no repositories mentioned here"); len(links) != 0 {
		t.Errorf("expected no links, got %v", links)
	}
}
