package models

// Actor identifies who requests a lifecycle transition. The role set comes
// from the external access-control collaborator; the core only checks it.
type Actor struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

// SystemActor performs administrative background transitions.
var SystemActor = Actor{UserID: "system", Role: RoleSuperuser}

// IsPrivileged reports whether the actor may perform administrative
// transitions (complete, hard delete, cancel on behalf of others).
func (a Actor) IsPrivileged() bool {
	switch a.Role {
	case RoleManager, RoleAdmin, RoleSuperuser:
		return true
	}
	return false
}

// Owns reports whether the reservation belongs to the actor.
func (a Actor) Owns(r *Reservation) bool {
	return r != nil && a.UserID != "" && a.UserID == r.UserID
}
