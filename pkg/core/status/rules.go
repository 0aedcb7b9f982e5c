// Package status holds the pure decision rules for assignment status
// transitions. Every mutation of an assignment's status goes through Apply so
// the transition table lives in exactly one place.
package status

import "github.com/crewtech/crewsync/pkg/core/model"

// Action is a requested status transition.
type Action string

const (
	// ActionConfirm is a worker accepting a shift invite.
	ActionConfirm Action = "confirm"
	// ActionDecline is a worker refusing a shift.
	ActionDecline Action = "decline"
	// ActionCancel is an admin pulling a worker off a shift.
	ActionCancel Action = "cancel"
	// ActionReAdd is an admin re-inviting a worker who previously declined
	// or was cancelled.
	ActionReAdd Action = "readd"
)

// Apply resolves an action against the current status and returns the new
// status plus whether anything changed. The current status is canonicalized
// first, so stale or mixed-case values coming off the wire behave the same
// as clean ones.
func Apply(current model.Status, action Action) (model.Status, bool) {
	cur := model.CanonicalStatus(string(current))

	switch action {
	case ActionConfirm:
		if cur == model.StatusConfirmed {
			return cur, false
		}
		return model.StatusConfirmed, true

	case ActionDecline:
		if cur == model.StatusDeclined {
			return cur, false
		}
		return model.StatusDeclined, true

	case ActionCancel:
		if cur == model.StatusCancelled {
			return cur, false
		}
		return model.StatusCancelled, true

	case ActionReAdd:
		if Active(cur) {
			return cur, false
		}
		return model.StatusInvited, true
	}

	return cur, false
}

// Active reports whether an assignment still ties the worker to the job.
// Declined and Cancelled workers are inactive and may be re-invited;
// everyone else (Invited, Confirmed, empty legacy status, unknown values) is
// already on the job.
func Active(s model.Status) bool {
	cur := model.CanonicalStatus(string(s))
	return cur != model.StatusDeclined && cur != model.StatusCancelled
}

// VisibleToWorker reports whether an assignment should appear in the
// worker-facing shift view. A worker's own decline and an admin cancellation
// are both hidden there.
func VisibleToWorker(s model.Status) bool {
	cur := model.CanonicalStatus(string(s))
	return cur != model.StatusDeclined && cur != model.StatusCancelled
}

// HistoryAnnotation returns the suffix admin history views append after the
// worker's name. Only Cancelled is called out; a decline carries no marker.
func HistoryAnnotation(s model.Status) string {
	if model.CanonicalStatus(string(s)) == model.StatusCancelled {
		return " (Cancelled)"
	}
	return ""
}
