package cleaner

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Cleaner turns scraped HTML fragments into plain text using Bluemonday
type Cleaner struct {
	strict *bluemonday.Policy
}

// NewCleaner creates a cleaner with the strict (strip everything) policy
func NewCleaner() *Cleaner {
	return &Cleaner{strict: bluemonday.StrictPolicy()}
}

// CleanToText removes all HTML and returns plain text with entities decoded
// and whitespace collapsed
func (c *Cleaner) CleanToText(s string) string {
	if s == "" {
		return ""
	}
	// Block tags become spaces so adjacent paragraphs don't run together
	s = strings.NewReplacer("<br>", " ", "<br/>", " ", "<br />", " ", "</p>", " ", "</li>", " ", "</div>", " ").Replace(s)
	text := html.UnescapeString(c.strict.Sanitize(s))
	return strings.Join(strings.Fields(text), " ")
}

// CleanList applies CleanToText to every item and drops empty ones
func (c *Cleaner) CleanList(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if t := c.CleanToText(item); t != "" {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
