package extractor

import (
	"regexp"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/horizontego/job-ingest/internal/domain"
)

// Relation tells Apply how to find a value relative to a label
type Relation int

const (
	// RelNextSibling reads the node structurally adjacent to the label
	RelNextSibling Relation = iota
	// RelListAfterHeading collects list items (or paragraphs) following a heading
	RelListAfterHeading
	// RelParagraphsAfterHeading joins text blocks following a heading
	RelParagraphsAfterHeading
	// RelRegexInBody matches Pattern against the raw page body
	RelRegexInBody
	// RelSelector reads the text of the first node matching Selector
	RelSelector
	// RelSelectorList reads the list items inside the first node matching Selector
	RelSelectorList
	// RelJSONLD reads Property from the page's schema.org JobPosting
	RelJSONLD
)

// Field names a Posting field that a Rule fills
type Field string

const (
	FieldTitle        Field = "title"
	FieldCompany      Field = "company"
	FieldLocation     Field = "location"
	FieldDescription  Field = "description"
	FieldSalary       Field = "salary"
	FieldRequirements Field = "requirements"
	FieldTasks        Field = "tasks"
	FieldBenefits     Field = "benefits"
	FieldDetail       Field = "detail" // Stored under Rule.Key in Posting.Details
)

// Rule is one entry of a per-source extraction table
type Rule struct {
	Labels   []string // Tried in order, first hit wins
	Relation Relation
	Field    Field
	Key      string // Detail key when Field is FieldDetail
	Selector string
	Property string // JobPosting property for JSONLD
	Pattern  *regexp.Regexp
	Skip     []string // Block prefixes ignored by ParagraphsAfterHeading
}

// Fields holds everything a rule table extracted from one document
type Fields struct {
	Text    map[Field]string
	Lists   map[Field][]string
	Details map[string]string
}

// Apply executes rules against a parsed document and its raw body.
// A field filled by an earlier rule is never overwritten, so fallbacks go last.
func Apply(doc *goquery.Document, body string, rules []Rule) Fields {
	f := Fields{
		Text:    make(map[Field]string),
		Lists:   make(map[Field][]string),
		Details: make(map[string]string),
	}

	var (
		ld       *JobPostingLD
		ldParsed bool
	)

	for _, rule := range rules {
		if f.has(rule) {
			continue
		}

		switch rule.Relation {
		case RelNextSibling:
			for _, label := range rule.Labels {
				if v, ok := TextAfterLabel(doc.Selection, label); ok {
					f.setText(rule, v)
					break
				}
			}
		case RelListAfterHeading:
			for _, label := range rule.Labels {
				if items, ok := ListAfterHeading(doc.Selection, label); ok {
					f.Lists[rule.Field] = items
					break
				}
			}
		case RelParagraphsAfterHeading:
			for _, label := range rule.Labels {
				if v, ok := ParagraphsAfterHeading(doc.Selection, label, DescriptionBlockCap, rule.Skip); ok {
					f.setText(rule, v)
					break
				}
			}
		case RelRegexInBody:
			if v, ok := RegexInBodyMatch(body, rule.Pattern); ok {
				f.setText(rule, v)
			}
		case RelSelector:
			if v, ok := SelectorText(doc.Selection, rule.Selector); ok {
				f.setText(rule, v)
			}
		case RelSelectorList:
			if items, ok := SelectorItems(doc.Selection, rule.Selector); ok {
				f.Lists[rule.Field] = items
			}
		case RelJSONLD:
			if !ldParsed {
				ld, _ = FindJobPostingLD(doc.Selection)
				ldParsed = true
			}
			if ld == nil {
				continue
			}
			if v, ok := ld.Value(rule.Property); ok {
				f.setText(rule, v)
			}
		}
	}

	return f
}

func (f Fields) has(rule Rule) bool {
	if rule.Field == FieldDetail {
		_, ok := f.Details[rule.Key]
		return ok
	}
	if _, ok := f.Text[rule.Field]; ok {
		return true
	}
	_, ok := f.Lists[rule.Field]
	return ok
}

func (f Fields) setText(rule Rule, value string) {
	if rule.Field == FieldDetail {
		f.Details[rule.Key] = value
		return
	}
	f.Text[rule.Field] = value
}

// Fill copies extracted fields onto a posting, leaving missing fields empty
func (f Fields) Fill(p *domain.Posting) {
	p.Title = f.Text[FieldTitle]
	p.Company = f.Text[FieldCompany]
	p.Location = f.Text[FieldLocation]
	p.Description = f.Text[FieldDescription]
	p.Salary = f.Text[FieldSalary]
	p.Requirements = f.Lists[FieldRequirements]
	p.Tasks = f.Lists[FieldTasks]
	p.Benefits = f.Lists[FieldBenefits]
	if len(f.Details) > 0 {
		p.Details = f.Details
	}
}

// ExtractorConfig holds common configuration for fetchers
type ExtractorConfig struct {
	UserAgent string
	ProxyURL  string
	Timeout   time.Duration
}
