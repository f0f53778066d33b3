// Package model defines the core data types flowing through the enrichment
// pipeline.
package model

import "time"

// RecordStatus describes where a company record is in its lifecycle.
type RecordStatus string

const (
	StatusPending   RecordStatus = "pending"
	StatusValid     RecordStatus = "valid"
	StatusDeadURL   RecordStatus = "dead_url"
	StatusDuplicate RecordStatus = "duplicate"
	StatusError     RecordStatus = "error"
)

// ResolutionMethod identifies which strategy produced the resolved homepage.
type ResolutionMethod string

const (
	MethodStructuredLookup ResolutionMethod = "structured_lookup"
	MethodTLDProbe         ResolutionMethod = "tld_probe"
	MethodSearchRank       ResolutionMethod = "search_rank"
	MethodSeed             ResolutionMethod = "seed"
	MethodSynthetic        ResolutionMethod = "synthetic"
	MethodNone             ResolutionMethod = "none"
)

// CompanyRecord is the identity unit flowing through the pipeline. A record
// is owned exclusively by the task processing it until it is handed to the
// writer, after which it is immutable.
type CompanyRecord struct {
	Index            int              `json:"index"`
	Name             string           `json:"name"`
	SeedURL          string           `json:"seed_url,omitempty"`
	SeedVerified     bool             `json:"seed_verified,omitempty"`
	ResolvedURL      string           `json:"resolved_url,omitempty"`
	ResolutionMethod ResolutionMethod `json:"resolution_method"`
	ProfileURL       string           `json:"profile_url,omitempty"`
	Description      string           `json:"description,omitempty"`
	Status           RecordStatus     `json:"status"`
	ErrorDetail      string           `json:"error_detail,omitempty"`
	DuplicateOf      int              `json:"duplicate_of,omitempty"`
}

// LivenessResult is the outcome of probing one URL. IsLive is true iff
// FinalURL is set.
type LivenessResult struct {
	IsLive   bool   `json:"is_live"`
	FinalURL string `json:"final_url,omitempty"`
	Error    string `json:"error,omitempty"`
}

// RankedCandidate is a scored homepage or profile candidate. Ordering is by
// Score descending with first-seen order breaking ties.
type RankedCandidate struct {
	URL      string   `json:"url"`
	Score    float64  `json:"score"`
	Evidence []string `json:"evidence,omitempty"`
}

// OutputRow is the tabular row emitted for every input record.
type OutputRow struct {
	CompanyName     string `csv:"Company_Name" json:"company_name"`
	OfficialWebsite string `csv:"Official_Website" json:"official_website"`
	LinkedInURL     string `csv:"LinkedIn_URL" json:"linkedin_url"`
	Description     string `csv:"Description" json:"description"`
	Timestamp       string `csv:"Timestamp" json:"timestamp"`
	Status          string `csv:"Status" json:"status"`
}

// RunStatus describes a batch run's lifecycle state.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusCancelled RunStatus = "cancelled"
	RunStatusFailed    RunStatus = "failed"
)

// Run records one batch invocation in the local store.
type Run struct {
	ID        string    `json:"id"`
	InputPath string    `json:"input_path"`
	Total     int       `json:"total"`
	Emitted   int       `json:"emitted"`
	Status    RunStatus `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Row converts a terminal record into its output representation.
func (r *CompanyRecord) Row(now time.Time) OutputRow {
	return OutputRow{
		CompanyName:     r.Name,
		OfficialWebsite: r.ResolvedURL,
		LinkedInURL:     r.ProfileURL,
		Description:     r.Description,
		Timestamp:       now.UTC().Format(time.RFC3339),
		Status:          string(r.Status),
	}
}

// Terminal reports whether the record has reached a final status.
func (r *CompanyRecord) Terminal() bool {
	switch r.Status {
	case StatusValid, StatusDeadURL, StatusDuplicate, StatusError:
		return true
	}
	return false
}
