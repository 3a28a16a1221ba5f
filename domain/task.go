package domain

import (
	"encoding/json"
	"strings"
)

// FlexID is a task identifier that tolerates the remote service sending ids
// as JSON numbers instead of strings. Numeric ids decode to their decimal
// string form, so comparisons are always plain string equality.
type FlexID string

func (f *FlexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	*f = FlexID(data)
	return nil
}

// Task is the reconciled view of a single work item. Records arrive from the
// remote service, the local store and user drafts, so most fields are
// optional and defaulted on write.
type Task struct {
	ID              FlexID `json:"id,omitempty"`
	AltID           FlexID `json:"_id,omitempty"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	Status          string `json:"status"`
	AssignedTo      string `json:"assignedTo,omitempty"`
	AssignedToEmail string `json:"assignedToEmail,omitempty"`
	AssignedToName  string `json:"assignedToName,omitempty"`
	DueDate         string `json:"dueDate,omitempty"`
	CreatedDate     string `json:"createdDate,omitempty"`
	LastUpdated     int64  `json:"lastUpdated,omitempty"`

	// PendingSync marks a task whose locally-applied status change has not
	// been confirmed by the remote service yet. A task carrying it always has
	// a matching ledger record.
	PendingSync bool `json:"pendingSync,omitempty"`
}

// Key returns the task identifier, preferring the primary id field over the
// alternate one.
func (t Task) Key() string {
	if t.ID != "" {
		return string(t.ID)
	}
	return string(t.AltID)
}

// HasID reports whether the task matches the given identifier. The primary id
// is tried first, then the alternate id field. FlexID already coerces numeric
// ids to strings, so no further conversion is needed.
func (t Task) HasID(id string) bool {
	if id == "" {
		return false
	}
	return string(t.ID) == id || string(t.AltID) == id
}

// AssignedToKey reports whether the task belongs to the given user key, which
// may match the assignee id, email or display name.
func (t Task) AssignedToKey(userKey string) bool {
	if userKey == "" {
		return false
	}
	return t.AssignedTo == userKey || t.AssignedToEmail == userKey || t.AssignedToName == userKey
}

// TaskPatch carries a partial task update. Nil fields are left untouched.
type TaskPatch struct {
	Title       *string
	Description *string
	Status      *string
	AssignedTo  *string
	DueDate     *string
}

// Apply shallow-merges the patch over the task. A patched status passes
// through NormalizeStatus so no non-canonical value can be persisted.
func (p TaskPatch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = NormalizeStatus(*p.Status)
	}
	if p.AssignedTo != nil {
		t.AssignedTo = *p.AssignedTo
	}
	if p.DueDate != nil {
		t.DueDate = *p.DueDate
	}
}

// PlaceholderTitle derives a human-readable title from the trailing
// characters of a task id, used when a status update references a task the
// local store has never seen.
func PlaceholderTitle(id string) string {
	tail := id
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}
	return "Task " + strings.TrimLeft(tail, "-")
}
