package normalizer

import (
	"testing"

	"github.com/horizontego/job-ingest/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNormalize_CleansFields(t *testing.T) {
	p := &domain.Posting{
		ExternalURL:  "  https://arbeidsplassen.nav.no/stillinger/stilling/0b1c2d3e-aaaa-bbbb-cccc-123456789abc  ",
		SourceName:   domain.NameArbeidsplassen,
		Title:        "  Bærplukker &amp; <b>sesongarbeider</b> ",
		Description:  "<p>Plukking av jordbær.</p><p>Sommer 2026.</p>",
		Requirements: []string{" Førerkort ", "", "<i>Engelsk</i>"},
		Details:      map[string]string{domain.DetailSector: " Privat ", domain.DetailDeadline: "   "},
	}

	NewNormalizer(nil).Normalize(p)

	assert.Equal(t, "https://arbeidsplassen.nav.no/stillinger/stilling/0b1c2d3e-aaaa-bbbb-cccc-123456789abc", p.ExternalURL)
	assert.Equal(t, "Bærplukker & sesongarbeider", p.Title)
	assert.Equal(t, "Plukking av jordbær. Sommer 2026.", p.Description)
	assert.Equal(t, []string{"Førerkort", "Engelsk"}, p.Requirements)
	assert.Equal(t, map[string]string{domain.DetailSector: "Privat"}, p.Details)
	assert.Equal(t, "0b1c2d3e-aaaa-bbbb-cccc-123456789abc", p.ExternalID)
}

func TestNormalize_LeavesAbsentFieldsEmpty(t *testing.T) {
	p := &domain.Posting{ExternalURL: "https://www.pickingjobs.com/farm/apple-orchard", SourceName: domain.NamePickingJobs}

	NewNormalizer(nil).Normalize(p)

	assert.Empty(t, p.Title)
	assert.Empty(t, p.Company)
	assert.Empty(t, p.Description)
	assert.Nil(t, p.Requirements)
	assert.Nil(t, p.Details)
}

func TestExternalID(t *testing.T) {
	tests := []struct {
		name   string
		source string
		url    string
		want   string
	}{
		{"arbeidsplassen uuid", domain.NameArbeidsplassen, "https://arbeidsplassen.nav.no/stillinger/stilling/abc-123", "abc-123"},
		{"navno without id", domain.NameNavNo, "https://arbeidsplassen.nav.no/stillinger", ""},
		{"pickingjobs slug", domain.NamePickingJobs, "https://www.pickingjobs.com/jobs/cherry-picking.html", "cherry-picking"},
		{"pickingjobs root", domain.NamePickingJobs, "https://www.pickingjobs.com/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExternalID(tt.source, tt.url))
		})
	}
}
