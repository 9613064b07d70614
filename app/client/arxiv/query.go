package arxiv

import (
	"fmt"
	"strings"
)

// Query holds the optional arXiv search fields. Fields that are present are
// combined with logical AND; an all-empty query degrades to a wildcard.
type Query struct {
	AllFields string `json:"all_fields,omitempty"`
	Title     string `json:"title,omitempty"`
	Author    string `json:"author,omitempty"`
	Category  string `json:"category,omitempty"`
	DateRange string `json:"date_range,omitempty"`
}

func (q Query) Expression() string {
	var parts []string

	if v := strings.TrimSpace(q.AllFields); v != "" {
		parts = append(parts, fmt.Sprintf("all:%q", v))
	}
	if v := strings.TrimSpace(q.Title); v != "" {
		parts = append(parts, fmt.Sprintf("ti:%q", v))
	}
	if v := strings.TrimSpace(q.Author); v != "" {
		parts = append(parts, fmt.Sprintf("au:%q", v))
	}
	if v := strings.TrimSpace(q.Category); v != "" {
		parts = append(parts, "cat:"+v)
	}
	if v := strings.TrimSpace(q.DateRange); v != "" {
		if !strings.HasPrefix(v, "submittedDate:") {
			v = "submittedDate:" + v
		}
		parts = append(parts, v)
	}

	if len(parts) == 0 {
		return "all:*"
	}

	return strings.Join(parts, " AND ")
}

// FreeText returns the text used for the semantic side of the search.
func (q Query) FreeText() string {
	var parts []string

	for _, v := range []string{q.AllFields, q.Title, q.Author, q.Category} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}

	return strings.Join(parts, " ")
}
