package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID   primitive.ObjectID
	Role Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a Actor) IsOwner() bool {
	return a.Role == RoleOwner
}

// CanManage reports whether the actor may edit the event.
func (a Actor) CanManage(e *Event) bool {
	return a.IsAdmin() || e.IsOrganizer(a.ID)
}
