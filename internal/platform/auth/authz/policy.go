// Package authz decides whether authenticated claims may act on a resource.
//
// Every function here is pure and total: a decision is always returned, never an error.
// Callers reading a resource report a denial as "not found" so that unauthorized
// callers cannot learn whether the resource exists.
package authz

import "github.com/Overland-East-Bay/ride-api/internal/domain"

// IsAllowed reports whether c may act on a resource owned by owner.
//
// Rules, in order:
// - a subject may always act on its own resource
// - elevated roles (admin, manager) may act on any resource
// - everyone else is denied
func IsAllowed(c domain.Claims, owner domain.SubjectID) bool {
	if c.SubjectID != "" && c.SubjectID == owner {
		return true
	}
	return c.Role.Elevated()
}

// CanMutateUsers reports whether c may create users. Ownership does not matter.
func CanMutateUsers(c domain.Claims) bool {
	return c.Role.Elevated()
}

// CanActOnTrip reports whether c may act on t as one of its participants
// (consumer or assigned driver) or through an elevated role.
func CanActOnTrip(c domain.Claims, t domain.Trip) bool {
	for _, p := range t.Participants() {
		if IsAllowed(c, p) {
			return true
		}
	}
	return false
}

// CanActOnUser reports whether c may act on user u.
func CanActOnUser(c domain.Claims, u domain.User) bool {
	return IsAllowed(c, u.ID.Subject())
}
