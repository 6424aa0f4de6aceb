// Package policy holds the authorization predicates applied before every
// viewing or mutating operation. Two shapes cover the whole domain; each is
// a pure function over the actor and the resource's owner id.
package policy

// Actor is the authenticated caller as seen by a predicate.
type Actor struct {
	ID      string
	IsAdmin bool
}

// Shape selects the rule set for a resource type.
type Shape int

const (
	// OpenView grants view/create to every authenticated actor and
	// update/delete to the owner or an admin. Used by documentations and
	// their diagrams (diagrams authorize against the owning documentation).
	OpenView Shape = iota

	// StrictOwner grants view/update/delete only to the exact owner, with
	// no admin override. Used by SRS and SDD documents and their children.
	StrictOwner
)

func (s Shape) CanView(actor Actor, ownerID string) bool {
	if s == OpenView {
		return true
	}
	return actor.ID == ownerID
}

// CanCreate is true for any authenticated actor under both shapes.
func (s Shape) CanCreate(actor Actor) bool {
	return actor.ID != ""
}

func (s Shape) CanUpdate(actor Actor, ownerID string) bool {
	if actor.ID == ownerID {
		return true
	}
	return s == OpenView && actor.IsAdmin
}

func (s Shape) CanDelete(actor Actor, ownerID string) bool {
	return s.CanUpdate(actor, ownerID)
}
