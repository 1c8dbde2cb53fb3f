package domain

import "time"

// Posting is a normalized job posting produced by a source adapter.
// Empty strings and nil slices mean the field was not found on the page.
type Posting struct {
	ID           int64             `json:"id,omitempty"`
	ExternalURL  string            `json:"external_url"`
	ExternalID   string            `json:"external_id,omitempty"`
	Title        string            `json:"title,omitempty"`
	Company      string            `json:"company,omitempty"`
	Location     string            `json:"location,omitempty"`
	Description  string            `json:"description,omitempty"`
	Requirements []string          `json:"requirements,omitempty"`
	Tasks        []string          `json:"tasks,omitempty"`
	Benefits     []string          `json:"benefits,omitempty"`
	Salary       string            `json:"salary,omitempty"` // Source text, never parsed
	SourceName   string            `json:"source_name"`
	IsVerified   bool              `json:"is_verified"`
	CountryID    int               `json:"country_id"`
	Details      map[string]string `json:"details,omitempty"` // Structured key/value pairs
	ScrapedAt    time.Time         `json:"scraped_at"`
}

// Detail keys used in Posting.Details
const (
	DetailJobTitle       = "job_title"
	DetailStartDate      = "start_date"
	DetailEmploymentType = "employment_type"
	DetailWorkHours      = "work_hours"
	DetailLanguage       = "language"
	DetailPositions      = "positions_available"
	DetailRemoteWork     = "remote_work"
	DetailDeadline       = "deadline"
	DetailApplyTo        = "application_email"
	DetailSector         = "sector"
	DetailContactEmail   = "contact_email"
	DetailContactPhone   = "contact_phone"
)

// JobSource represents a job listing source
type JobSource string

const (
	SourceArbeidsplassen JobSource = "arbeidsplassen"
	SourceNavNo          JobSource = "navno"
	SourcePickingJobs    JobSource = "pickingjobs"
)

// Sources lists every adapter the crawler knows how to build
var Sources = []JobSource{SourceArbeidsplassen, SourceNavNo, SourcePickingJobs}

// Display names stored in Posting.SourceName
const (
	NameArbeidsplassen = "arbeidsplassen.nav.no"
	NameNavNo          = "NAV.NO"
	NamePickingJobs    = "PickingJobs.com"
)
