package extractor

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	// MaxSiblingScan bounds forward scans on pages with huge sibling runs
	MaxSiblingScan = 20
	// DescriptionBlockCap is the most text blocks joined into a description
	DescriptionBlockCap = 6
)

// TextAfterLabel finds the first text node containing label and returns the
// trimmed text of the element right after the label's element. When the label
// element is the last child, the label's parent's next sibling is used.
func TextAfterLabel(root *goquery.Selection, label string) (string, bool) {
	el := findLabel(root, label)
	if el == nil {
		return "", false
	}

	value := el.Next()
	if value.Length() == 0 {
		value = el.Parent().Next()
	}

	text := BlockText(value)
	if text == "" {
		return "", false
	}
	return text, true
}

// ListAfterHeading scans forward from a heading: the first ul/ol found yields
// its item texts; without a list, paragraph texts seen on the way are returned.
// The scan stops at the next heading.
func ListAfterHeading(root *goquery.Selection, label string) ([]string, bool) {
	heading := findLabel(root, label)
	if heading == nil {
		return nil, false
	}

	var items, paragraphs []string
	followingSiblings(heading).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxSiblingScan {
			return false
		}
		switch name := goquery.NodeName(s); {
		case name == "ul" || name == "ol":
			s.Find("li").Each(func(_ int, li *goquery.Selection) {
				if t := BlockText(li); t != "" {
					items = append(items, t)
				}
			})
			return false
		case name == "p":
			if t := BlockText(s); t != "" {
				paragraphs = append(paragraphs, t)
			}
		case isHeading(name):
			return false
		}
		return true
	})

	if len(items) > 0 {
		return items, true
	}
	if len(paragraphs) > 0 {
		return paragraphs, true
	}
	return nil, false
}

// ParagraphsAfterHeading joins up to limit p/div blocks following a heading.
// Blocks starting with one of skip are ignored.
func ParagraphsAfterHeading(root *goquery.Selection, label string, limit int, skip []string) (string, bool) {
	heading := findLabel(root, label)
	if heading == nil {
		return "", false
	}

	var parts []string
	followingSiblings(heading).EachWithBreak(func(i int, s *goquery.Selection) bool {
		if i >= MaxSiblingScan || len(parts) >= limit {
			return false
		}
		name := goquery.NodeName(s)
		if isHeading(name) {
			return false
		}
		if name != "p" && name != "div" {
			return true
		}
		t := BlockText(s)
		if t == "" || hasAnyPrefix(t, skip) {
			return true
		}
		parts = append(parts, t)
		return true
	})

	if len(parts) == 0 {
		return "", false
	}
	return strings.Join(parts, " "), true
}

// RegexInBodyMatch returns the first match of pattern in the raw body
func RegexInBodyMatch(body string, pattern *regexp.Regexp) (string, bool) {
	if pattern == nil {
		return "", false
	}
	m := pattern.FindString(body)
	return m, m != ""
}

// SelectorText returns the trimmed text of the first node matching selector
func SelectorText(root *goquery.Selection, selector string) (string, bool) {
	if selector == "" {
		return "", false
	}
	text := BlockText(root.Find(selector).First())
	return text, text != ""
}

// SelectorItems returns the li texts inside the first node matching selector
func SelectorItems(root *goquery.Selection, selector string) ([]string, bool) {
	if selector == "" {
		return nil, false
	}
	var items []string
	root.Find(selector).First().Find("li").Each(func(_ int, li *goquery.Selection) {
		if t := BlockText(li); t != "" {
			items = append(items, t)
		}
	})
	return items, len(items) > 0
}

// CleanText collapses runs of whitespace and trims the result
func CleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// BlockText is the cleaned text of sel with block elements separated by a
// space, so "<p>a</p><p>b</p>" reads "a b" rather than "ab"
func BlockText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeBlockText(&b, n)
	}
	return CleanText(b.String())
}

func writeBlockText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		switch n.Data {
		case "script", "style", "noscript", "template":
			return
		}
	}

	block := n.Type == html.ElementNode && isBlock(n.Data)
	if block {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeBlockText(b, c)
	}
	if block {
		b.WriteByte(' ')
	}
}

func isBlock(name string) bool {
	switch name {
	case "p", "div", "li", "br", "ul", "ol", "dd", "dt", "tr", "td", "section", "article":
		return true
	}
	return isHeading(name)
}

// findLabel returns the element owning the first text node (in document
// order) that contains label, or nil
func findLabel(root *goquery.Selection, label string) *goquery.Selection {
	if label == "" {
		return nil
	}
	for _, n := range root.Nodes {
		if t := firstTextNode(n, label); t != nil && t.Parent != nil {
			return root.FindNodes(t.Parent)
		}
	}
	return nil
}

func firstTextNode(n *html.Node, label string) *html.Node {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "head", "script", "style", "noscript", "template":
			return nil
		}
	}
	if n.Type == html.TextNode && strings.Contains(n.Data, label) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := firstTextNode(c, label); found != nil {
			return found
		}
	}
	return nil
}

func followingSiblings(el *goquery.Selection) *goquery.Selection {
	siblings := el.NextAll()
	if siblings.Length() == 0 {
		siblings = el.Parent().NextAll()
	}
	return siblings
}

func isHeading(name string) bool {
	switch name {
	case "h1", "h2", "h3", "h4", "h5", "h6":
		return true
	}
	return false
}

func hasAnyPrefix(s string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(s, p) {
			return true
		}
	}
	return false
}
