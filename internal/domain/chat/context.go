package chat

import (
	"strings"
	"unicode/utf8"
)

// NoContext is passed to the model when retrieval found nothing
const NoContext = "No context found."

const snippetSeparator = "\n---\n"

// BuildContext joins the first topN documents, each cut to budget runes.
// Zero documents yield NoContext.
func BuildContext(docs []Document, topN, budget int) string {
	if topN > 0 && len(docs) > topN {
		docs = docs[:topN]
	}

	snippets := make([]string, 0, len(docs))
	for _, d := range docs {
		snippets = append(snippets, truncateRunes(d.Text, budget))
	}
	if len(snippets) == 0 {
		return NoContext
	}
	return strings.Join(snippets, snippetSeparator)
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i]
		}
		n++
	}
	return s
}
