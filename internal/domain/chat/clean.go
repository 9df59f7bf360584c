package chat

import (
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Reasoning models sometimes leak their scratchpad into the answer
var thinkPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?is)<think>.*?</think>`),
	regexp.MustCompile(`(?is)<thinking>.*?</thinking>`),
	regexp.MustCompile(`(?is)\[think\].*?\[/think\]`),
	regexp.MustCompile(`(?is)<think[^>]*>.*?</think>`),
	regexp.MustCompile(`(?im)^(think|thinking):.*$`),
}

var (
	blankLines = regexp.MustCompile(`\n\s*\n`)
	// Markdown autolinks look like tags to an HTML sanitizer
	autolink = regexp.MustCompile(`<((?:https?://|mailto:)[^\s<>]+)>`)
	// Anything after '&' that could be read as a character reference
	entityLike = regexp.MustCompile(`&[#a-zA-Z0-9]+;?`)
)

// Cleaner strips reasoning blocks and markup from model output. The result
// is plain Markdown text in which '<' and character references are
// escaped, so it never decodes to live HTML. Clean is idempotent.
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner creates a cleaner that removes every HTML element
func NewCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy()}
}

// Clean removes think blocks, collapses blank lines and strips HTML
func (c *Cleaner) Clean(text string) string {
	if text == "" {
		return text
	}

	for _, re := range thinkPatterns {
		text = re.ReplaceAllString(text, "")
	}
	text = blankLines.ReplaceAllString(text, "\n")
	text = autolink.ReplaceAllString(text, "$1")

	// Decode to plain text, then re-escape only what could become markup
	plain := html.UnescapeString(c.policy.Sanitize(text))
	plain = entityLike.ReplaceAllStringFunc(plain, escapeEntity)
	plain = strings.ReplaceAll(plain, "<", "&lt;")

	return strings.TrimSpace(plain)
}

// escapeEntity escapes the ampersand of a sequence a browser would decode
func escapeEntity(ref string) string {
	if html.UnescapeString(ref) == ref {
		return ref
	}
	return "&amp;" + ref[1:]
}
