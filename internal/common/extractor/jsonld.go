package extractor

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// schema.org JobPosting properties readable with the JSONLD relation
const (
	LDTitle          = "title"
	LDOrganization   = "hiringOrganization"
	LDLocation       = "jobLocation"
	LDDescription    = "description"
	LDSalary         = "baseSalary"
	LDValidThrough   = "validThrough"
	LDEmploymentType = "employmentType"
	LDDatePosted     = "datePosted"
)

// JobPostingLD is the part of a schema.org JobPosting the adapters use.
// Publishers disagree on shapes, so most fields accept a string, a list or
// an object.
type JobPostingLD struct {
	Type               ldText      `json:"@type"`
	Title              ldText      `json:"title"`
	Description        ldText      `json:"description"`
	DatePosted         ldText      `json:"datePosted"`
	ValidThrough       ldText      `json:"validThrough"`
	EmploymentType     ldText      `json:"employmentType"`
	HiringOrganization ldOrg       `json:"hiringOrganization"`
	JobLocation        ldLocations `json:"jobLocation"`
	BaseSalary         *ldSalary   `json:"baseSalary"`
}

// ldText is a string, a list of strings (joined) or a number
type ldText string

func (t *ldText) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = ldText(strings.TrimSpace(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = ldText(strings.Join(list, ", "))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*t = ldText(n.String())
		return nil
	}
	// Objects and other shapes carry nothing we read
	*t = ""
	return nil
}

type ldOrg struct {
	Name ldText `json:"name"`
}

func (o *ldOrg) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		o.Name = ldText(strings.TrimSpace(name))
		return nil
	}
	type plain ldOrg
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*o = ldOrg(p)
	return nil
}

type ldAddress struct {
	Locality ldText `json:"addressLocality"`
	Region   ldText `json:"addressRegion"`
	Country  ldText `json:"addressCountry"`
}

func (a *ldAddress) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		a.Locality = ldText(strings.TrimSpace(s))
		return nil
	}
	type plain ldAddress
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*a = ldAddress(p)
	return nil
}

type ldPlace struct {
	Address ldAddress `json:"address"`
}

type ldLocations []ldPlace

func (l *ldLocations) UnmarshalJSON(data []byte) error {
	var list []ldPlace
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}
	var one ldPlace
	if err := json.Unmarshal(data, &one); err == nil {
		*l = ldLocations{one}
	}
	return nil
}

type ldSalary struct {
	Currency ldText          `json:"currency"`
	Value    json.RawMessage `json:"value"`
}

func (s *ldSalary) UnmarshalJSON(data []byte) error {
	type plain ldSalary
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return nil
	}
	*s = ldSalary(p)
	return nil
}

type ldQuantity struct {
	Value    *float64 `json:"value"`
	MinValue *float64 `json:"minValue"`
	MaxValue *float64 `json:"maxValue"`
	UnitText ldText   `json:"unitText"`
}

// FindJobPostingLD returns the first JobPosting found in the page's
// application/ld+json scripts, including ones nested in lists or @graph
func FindJobPostingLD(doc *goquery.Selection) (*JobPostingLD, bool) {
	var found *JobPostingLD
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		found = findJobPosting([]byte(s.Text()), 0)
		return found == nil
	})
	return found, found != nil
}

func findJobPosting(data []byte, depth int) *JobPostingLD {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || depth > 3 {
		return nil
	}

	switch data[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return nil
		}
		for _, item := range items {
			if jp := findJobPosting(item, depth+1); jp != nil {
				return jp
			}
		}
	case '{':
		var graph struct {
			Graph []json.RawMessage `json:"@graph"`
		}
		if err := json.Unmarshal(data, &graph); err == nil && len(graph.Graph) > 0 {
			for _, item := range graph.Graph {
				if jp := findJobPosting(item, depth+1); jp != nil {
					return jp
				}
			}
			return nil
		}

		var jp JobPostingLD
		if err := json.Unmarshal(data, &jp); err != nil {
			return nil
		}
		if strings.Contains(string(jp.Type), "JobPosting") {
			return &jp
		}
	}
	return nil
}

// Value returns one property as display text
func (jp *JobPostingLD) Value(key string) (string, bool) {
	var v string
	switch key {
	case LDTitle:
		v = string(jp.Title)
	case LDOrganization:
		v = string(jp.HiringOrganization.Name)
	case LDLocation:
		v = jp.location()
	case LDDescription:
		v = htmlToText(string(jp.Description))
	case LDSalary:
		v = jp.salary()
	case LDValidThrough:
		v = string(jp.ValidThrough)
	case LDEmploymentType:
		v = string(jp.EmploymentType)
	case LDDatePosted:
		v = string(jp.DatePosted)
	}
	v = CleanText(v)
	return v, v != ""
}

func (jp *JobPostingLD) location() string {
	var parts []string
	seen := make(map[string]bool)
	for _, place := range jp.JobLocation {
		for _, p := range []ldText{place.Address.Locality, place.Address.Region} {
			s := string(p)
			if s != "" && !seen[s] {
				seen[s] = true
				parts = append(parts, s)
			}
		}
	}
	return strings.Join(parts, ", ")
}

func (jp *JobPostingLD) salary() string {
	if jp.BaseSalary == nil || len(jp.BaseSalary.Value) == 0 {
		return ""
	}

	var amount, unit string
	var q ldQuantity
	if err := json.Unmarshal(jp.BaseSalary.Value, &q); err == nil {
		switch {
		case q.MinValue != nil && q.MaxValue != nil:
			amount = formatAmount(*q.MinValue) + "-" + formatAmount(*q.MaxValue)
		case q.Value != nil:
			amount = formatAmount(*q.Value)
		case q.MinValue != nil:
			amount = formatAmount(*q.MinValue)
		}
		unit = string(q.UnitText)
	} else {
		var n float64
		if err := json.Unmarshal(jp.BaseSalary.Value, &n); err == nil {
			amount = formatAmount(n)
		}
	}
	if amount == "" {
		return ""
	}

	out := amount
	if c := string(jp.BaseSalary.Currency); c != "" {
		out = c + " " + out
	}
	if unit != "" {
		out += " per " + strings.ToLower(unit)
	}
	return out
}

func formatAmount(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// htmlToText flattens an HTML fragment; plain text passes through unchanged
func htmlToText(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return BlockText(doc.Find("body"))
}
