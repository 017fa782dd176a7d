package quota

import (
	"errors"
	"time"
)

// Record is one (scope, day) quota counter. Rows are garbage-collected by the
// janitor once ExpiresAt passes; nothing deletes them explicitly.
type Record struct {
	ScopeKey  string    `json:"scope_key"`
	DayKey    string    `json:"day_key"`
	Count     int       `json:"count"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Decision is the outcome of a consumption attempt.
type Decision struct {
	Allowed   bool
	Remaining int
}

// ErrUnavailable marks transient backend failures. It is distinct from a
// denied decision: denial is a normal outcome, this is infrastructure.
var ErrUnavailable = errors.New("quota store unavailable")

// DayKey returns the UTC calendar day used as the quota window.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// NextMidnight returns the first instant of the next UTC day, used as the
// record's expiry so the backing store can garbage-collect it.
func NextMidnight(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
