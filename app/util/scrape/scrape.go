// Package scrape holds the node-walking helpers shared by the HTML adapters.
package scrape

import (
	"io"
	"strings"

	"golang.org/x/net/html"
)

func Parse(r io.Reader) (*html.Node, error) {
	return html.Parse(r)
}

// FindAll returns every node in the tree for which pred holds, in document order.
func FindAll(root *html.Node, pred func(*html.Node) bool) []*html.Node {
	var result []*html.Node

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if pred(n) {
			result = append(result, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(root)

	return result
}

func FindFirst(root *html.Node, pred func(*html.Node) bool) *html.Node {
	nodes := FindAll(root, pred)
	if len(nodes) == 0 {
		return nil
	}

	return nodes[0]
}

func IsElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func Attr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}

	return ""
}

// HasClass reports whether the node carries the given CSS class.
func HasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(Attr(n, "class")) {
		if field == class {
			return true
		}
	}

	return false
}

// Text returns the concatenated text content of the subtree, whitespace-collapsed.
func Text(n *html.Node) string {
	var builder strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			builder.WriteString(n.Data)
			builder.WriteString(" ")
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return strings.Join(strings.Fields(builder.String()), " ")
}
