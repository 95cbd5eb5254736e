// Package workflow holds the leave approval state machine and the rule that
// decides which role may act on a request in a given status.
package workflow

import (
	"errors"
	"strings"

	"github.com/noah-isme/hostel-out-api/internal/models"
)

// ErrNotActionable is returned when a role tries to decide a request that is
// not waiting on that role.
var ErrNotActionable = errors.New("leave request is not actionable by this role")

var validTransitions = map[models.LeaveStatus][]models.LeaveStatus{
	models.LeaveStatusApplied:           {models.LeaveStatusApprovedByTeacher, models.LeaveStatusRejectedByTeacher},
	models.LeaveStatusApprovedByTeacher: {models.LeaveStatusApprovedByWarden, models.LeaveStatusRejectedByWarden},
}

var knownStatuses = []models.LeaveStatus{
	models.LeaveStatusApplied,
	models.LeaveStatusApprovedByTeacher,
	models.LeaveStatusApprovedByWarden,
	models.LeaveStatusRejectedByTeacher,
	models.LeaveStatusRejectedByWarden,
}

// Statuses lists every status in workflow order.
func Statuses() []models.LeaveStatus {
	out := make([]models.LeaveStatus, len(knownStatuses))
	copy(out, knownStatuses)
	return out
}

// ParseStatus matches raw against the known status strings ignoring case and
// surrounding whitespace.
func ParseStatus(raw string) (models.LeaveStatus, bool) {
	raw = strings.TrimSpace(raw)
	for _, s := range knownStatuses {
		if strings.EqualFold(string(s), raw) {
			return s, true
		}
	}
	return "", false
}

// CanTransition reports whether from -> to is one of the decision edges.
func CanTransition(from, to models.LeaveStatus) bool {
	targets, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, t := range targets {
		if t == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further decision can be made.
func IsTerminal(status models.LeaveStatus) bool {
	switch status {
	case models.LeaveStatusApprovedByWarden, models.LeaveStatusRejectedByTeacher, models.LeaveStatusRejectedByWarden:
		return true
	}
	return false
}

// IsApproved reports whether the request completed both approval stages.
func IsApproved(status models.LeaveStatus) bool {
	return status == models.LeaveStatusApprovedByWarden
}

// ActionableStatus returns the status a role works on. Students never act.
func ActionableStatus(role models.UserRole) (models.LeaveStatus, bool) {
	switch role {
	case models.RoleTeacher:
		return models.LeaveStatusApplied, true
	case models.RoleWarden:
		return models.LeaveStatusApprovedByTeacher, true
	}
	return "", false
}

// CanAct reports whether role may approve or reject a request in status.
func CanAct(role models.UserRole, status models.LeaveStatus) bool {
	want, ok := ActionableStatus(role)
	return ok && want == status
}

// Next returns the status a decision by role moves from to.
func Next(role models.UserRole, from models.LeaveStatus, approve bool) (models.LeaveStatus, error) {
	if !CanAct(role, from) {
		return "", ErrNotActionable
	}
	var to models.LeaveStatus
	switch role {
	case models.RoleTeacher:
		to = models.LeaveStatusRejectedByTeacher
		if approve {
			to = models.LeaveStatusApprovedByTeacher
		}
	case models.RoleWarden:
		to = models.LeaveStatusRejectedByWarden
		if approve {
			to = models.LeaveStatusApprovedByWarden
		}
	}
	if !CanTransition(from, to) {
		return "", ErrNotActionable
	}
	return to, nil
}

// Decider names the column that records who made the decision for role.
func Decider(role models.UserRole) string {
	switch role {
	case models.RoleTeacher:
		return "approved_by_teacher"
	case models.RoleWarden:
		return "approved_by_warden"
	}
	return ""
}
