package scrape

import (
	"strings"
	"testing"

	"golang.org/x/net/html"
)

const fixture = `<html><body>
<div class="card primary"><h3> First  card </h3><a href="/one">one</a></div>
<div class="card"><a href="/two">two</a></div>
<span class="card">not a div</span>
</body></html>`

func parseFixture(t *testing.T) *html.Node {
	t.Helper()

	root, err := Parse(strings.NewReader(fixture))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	return root
}

func TestFindAllDocumentOrder(t *testing.T) {
	root := parseFixture(t)

	anchors := FindAll(root, func(n *html.Node) bool {
		return IsElement(n, "a")
	})

	if len(anchors) != 2 {
		t.Fatalf("got %d anchors, want 2", len(anchors))
	}
	if Attr(anchors[0], "href") != "/one" || Attr(anchors[1], "href") != "/two" {
		t.Errorf("anchors out of order: %q, %q", Attr(anchors[0], "href"), Attr(anchors[1], "href"))
	}
}

func TestFindFirst(t *testing.T) {
	root := parseFixture(t)

	div := FindFirst(root, func(n *html.Node) bool {
		return IsElement(n, "div") && HasClass(n, "card")
	})
	if div == nil {
		t.Fatal("no div found")
	}
	if !HasClass(div, "primary") {
		t.Error("FindFirst did not return the first matching div")
	}

	if FindFirst(root, func(n *html.Node) bool { return IsElement(n, "table") }) != nil {
		t.Error("found a table in a fixture without one")
	}
}

func TestHasClassExactMatch(t *testing.T) {
	root := parseFixture(t)

	// "card" must not match the "card primary" node's "primary" token partially.
	cards := FindAll(root, func(n *html.Node) bool {
		return IsElement(n, "div") && HasClass(n, "car")
	})
	if len(cards) != 0 {
		t.Errorf("partial class token matched %d nodes", len(cards))
	}
}

func TestTextCollapsesWhitespace(t *testing.T) {
	root := parseFixture(t)

	h3 := FindFirst(root, func(n *html.Node) bool {
		return IsElement(n, "h3")
	})
	if h3 == nil {
		t.Fatal("no h3 found")
	}

	if got := Text(h3); got != "First card" {
		t.Errorf("Text = %q, want %q", got, "First card")
	}
}

func TestAttrMissing(t *testing.T) {
	root := parseFixture(t)

	h3 := FindFirst(root, func(n *html.Node) bool {
		return IsElement(n, "h3")
	})

	if got := Attr(h3, "href"); got != "" {
		t.Errorf("Attr on missing key = %q, want empty", got)
	}
}
