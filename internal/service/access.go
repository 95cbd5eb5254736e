package service

import (
	"github.com/noah-isme/hostel-out-api/internal/models"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

// Actor identifies the authenticated caller of a service operation.
type Actor struct {
	ID        string
	Role      models.UserRole
	IP        string
	UserAgent string
}

// IsStaff reports whether the actor is a teacher or a warden.
func (a Actor) IsStaff() bool {
	return a.Role == models.RoleTeacher || a.Role == models.RoleWarden
}

func requireRole(actor Actor, allowed ...models.UserRole) error {
	for _, role := range allowed {
		if actor.Role == role {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrForbidden, "role not permitted for this operation")
}

// requireSelf enforces that a path identifier names the caller.
func requireSelf(actor Actor, pathID string) error {
	if pathID == "" || pathID != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "cannot act on behalf of another user")
	}
	return nil
}

// requireSelfOrStaff lets students read only their own records while staff read any.
func requireSelfOrStaff(actor Actor, ownerID string) error {
	if actor.IsStaff() {
		return nil
	}
	if actor.Role == models.RoleStudent && actor.ID == ownerID {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "students may only access their own records")
}
