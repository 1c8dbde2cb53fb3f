package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindJobPostingLD_Shapes(t *testing.T) {
	tests := []struct {
		name   string
		script string
		title  string
	}{
		{
			name:   "single object",
			script: `{"@context":"https://schema.org","@type":"JobPosting","title":"Bærplukker"}`,
			title:  "Bærplukker",
		},
		{
			name:   "list with other types first",
			script: `[{"@type":"Organization","name":"NAV"},{"@type":"JobPosting","title":"Fiskeskjærer"}]`,
			title:  "Fiskeskjærer",
		},
		{
			name:   "graph",
			script: `{"@context":"https://schema.org","@graph":[{"@type":"WebPage"},{"@type":["JobPosting"],"title":"Gårdsarbeider"}]}`,
			title:  "Gårdsarbeider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parse(t, `<html><head><script type="application/ld+json">`+tt.script+`</script></head><body></body></html>`)

			jp, ok := FindJobPostingLD(doc.Selection)
			require.True(t, ok)
			v, ok := jp.Value(LDTitle)
			assert.True(t, ok)
			assert.Equal(t, tt.title, v)
		})
	}
}

func TestFindJobPostingLD_NotFound(t *testing.T) {
	for _, page := range []string{
		`<html><body><p>Ingen data</p></body></html>`,
		`<html><head><script type="application/ld+json">{not json</script></head></html>`,
		`<html><head><script type="application/ld+json">{"@type":"Organization","name":"NAV"}</script></head></html>`,
	} {
		_, ok := FindJobPostingLD(parse(t, page).Selection)
		assert.False(t, ok)
	}
}

func TestJobPostingLD_Values(t *testing.T) {
	doc := parse(t, `<html><head>
<script type="application/ld+json">{"@type":"Organization","name":"Ignored"}</script>
<script type="application/ld+json">{
  "@type": "JobPosting",
  "title": " Fiskeforedling ",
  "description": "<p>Sesongarbeid.</p><ul><li>Skift</li></ul>",
  "hiringOrganization": {"@type": "Organization", "name": "Lerøy Midt AS"},
  "jobLocation": [
    {"@type": "Place", "address": {"addressLocality": "Frøya", "addressRegion": "Trøndelag"}},
    {"@type": "Place", "address": {"addressLocality": "Frøya", "addressRegion": "Trøndelag"}}
  ],
  "baseSalary": {"@type": "MonetaryAmount", "currency": "NOK", "value": {"@type": "QuantitativeValue", "minValue": 210, "maxValue": 245.5, "unitText": "HOUR"}},
  "validThrough": "2026-05-15",
  "employmentType": ["SEASONAL", "FULL_TIME"]
}</script></head><body></body></html>`)

	jp, ok := FindJobPostingLD(doc.Selection)
	require.True(t, ok)

	tests := map[string]string{
		LDTitle:          "Fiskeforedling",
		LDOrganization:   "Lerøy Midt AS",
		LDLocation:       "Frøya, Trøndelag",
		LDDescription:    "Sesongarbeid. Skift",
		LDSalary:         "NOK 210-245.5 per hour",
		LDValidThrough:   "2026-05-15",
		LDEmploymentType: "SEASONAL, FULL_TIME",
	}
	for key, want := range tests {
		got, ok := jp.Value(key)
		assert.True(t, ok, key)
		assert.Equal(t, want, got, key)
	}

	_, ok = jp.Value(LDDatePosted)
	assert.False(t, ok)
}

func TestJobPostingLD_LooseShapes(t *testing.T) {
	doc := parse(t, `<html><head><script type="application/ld+json">{
  "@type": "JobPosting",
  "hiringOrganization": "Okanagan Orchards",
  "jobLocation": {"address": "Kelowna"},
  "baseSalary": {"currency": "CAD", "value": 17.4}
}</script></head></html>`)

	jp, ok := FindJobPostingLD(doc.Selection)
	require.True(t, ok)

	org, _ := jp.Value(LDOrganization)
	loc, _ := jp.Value(LDLocation)
	salary, _ := jp.Value(LDSalary)
	assert.Equal(t, "Okanagan Orchards", org)
	assert.Equal(t, "Kelowna", loc)
	assert.Equal(t, "CAD 17.4", salary)
}

func TestApply_JSONLDFallback(t *testing.T) {
	page := `<html><head><script type="application/ld+json">{"@type":"JobPosting","title":"From data","validThrough":"2026-06-01"}</script></head>
<body><h1>From markup</h1></body></html>`
	doc := parse(t, page)

	f := Apply(doc, page, []Rule{
		{Relation: RelSelector, Selector: "h1", Field: FieldTitle},
		{Relation: RelJSONLD, Property: LDTitle, Field: FieldTitle},
		{Relation: RelJSONLD, Property: LDValidThrough, Field: FieldDetail, Key: "deadline"},
		{Relation: RelJSONLD, Property: LDOrganization, Field: FieldCompany},
	})

	assert.Equal(t, "From markup", f.Text[FieldTitle])
	assert.Equal(t, "2026-06-01", f.Details["deadline"])
	assert.NotContains(t, f.Text, FieldCompany)
}
