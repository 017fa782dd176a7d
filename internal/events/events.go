package events

import "time"

// Stream and subject names.
const (
	StreamEvents = "SNAPSIGHT_EVENTS"

	SubjectAnalysis = "snapsight.events.analysis"
)

// AnalysisEvent is published once per terminal analysis outcome for audit
// consumers. Scope is the quota scope key, never raw request fields.
type AnalysisEvent struct {
	Scope     string    `json:"scope"`
	Mode      string    `json:"mode"`
	Outcome   string    `json:"outcome"` // ok, quota_exceeded, validation, storage_error, analysis_error
	Bypassed  bool      `json:"bypassed,omitempty"`
	Labels    int       `json:"labels,omitempty"`
	StoredRef string    `json:"stored_ref,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
