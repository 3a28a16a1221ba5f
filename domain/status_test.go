package domain

import "testing"

func TestNormalizeStatus(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"pending", StatusPending},
		{"Pending", StatusPending},
		{"PENDING", StatusPending},
		{"ongoing", StatusInProgress},
		{"Ongoing", StatusInProgress},
		{"ONGOING", StatusInProgress},
		{"in_progress", StatusInProgress},
		{"IN_PROGRESS", StatusInProgress},
		{"completed", StatusCompleted},
		{"cancelled", StatusCancelled},
		{"canceled", StatusCanceledAlias},
		{"foo", StatusPending},
		{"", StatusPending},
	}
	for _, tc := range cases {
		if got := NormalizeStatus(tc.raw); got != tc.want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestIsCancelledCoversBothSpellings(t *testing.T) {
	for _, status := range []string{StatusCancelled, StatusCanceledAlias, "cancelled", "canceled"} {
		if !IsCancelled(status) {
			t.Errorf("IsCancelled(%q) = false, want true", status)
		}
	}
	if IsCancelled(StatusPending) {
		t.Error("IsCancelled(PENDING) = true, want false")
	}
}
