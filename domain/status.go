package domain

import "strings"

// Canonical task statuses. StatusCanceledAlias is the American spelling the
// remote service occasionally emits; it is accepted on input and treated as
// StatusCancelled by every filter.
const (
	StatusPending    = "PENDING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"

	StatusCanceledAlias = "CANCELED"

	// legacyOngoing predates the canonical status set and still appears in
	// old persisted records. NormalizeStatus and the repair pass rewrite it.
	legacyOngoing = "ONGOING"
)

// NormalizeStatus maps an arbitrary status token to a canonical status.
// Missing values and unknown tokens become StatusPending, the legacy ONGOING
// token becomes StatusInProgress, and the CANCELED spelling is kept as-is.
func NormalizeStatus(raw string) string {
	if raw == "" {
		return StatusPending
	}
	s := strings.ToUpper(raw)
	if s == legacyOngoing {
		return StatusInProgress
	}
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted, StatusCancelled, StatusCanceledAlias:
		return s
	}
	return StatusPending
}

// IsCancelled reports whether the status is cancelled under either spelling.
func IsCancelled(status string) bool {
	s := strings.ToUpper(status)
	return s == StatusCancelled || s == StatusCanceledAlias
}
