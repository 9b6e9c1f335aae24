// Package directory defines the contract the provisioning core uses to talk
// to the remote CRM directory: entity kinds, a generic attribute-bag entity
// for the transport boundary, a filter expression tree, and typed views for
// the handful of kinds the reconcilers care about.
package directory

import "github.com/google/uuid"

// Kind is the logical name of a remote entity type.
type Kind string

const (
	KindUser           Kind = "systemuser"
	KindTeam           Kind = "team"
	KindBusinessUnit   Kind = "businessunit"
	KindRole           Kind = "role"
	KindTeamRole       Kind = "teamroles"
	KindTeamMembership Kind = "teammembership"
	KindUserRole       Kind = "systemuserroles"
	KindPlannerGroup   Kind = "atos_grupoplanificador"
	KindPlanningCenter Kind = "atos_centrodeplanificacion"
	KindWorkCenter     Kind = "atos_puestodetrabajo"
	KindSiteCenter     Kind = "atos_centrodeemplazamiento"
)

// Relationship names for the many-to-many edges the tool mutates.
const (
	RelTeamRoles      = "teamroles_association"
	RelTeamMembership = "teammembership_association"
	RelUserRoles      = "systemuserroles_association"
)

// Ref points at a remote entity.
type Ref struct {
	Kind Kind
	ID   uuid.UUID
	// Name is carried for logging only; the remote side ignores it.
	Name string
}

// Attributes is the open attribute bag used at the service boundary.
// Values are scalars or Refs; reconcilers convert to and from typed views
// and never hold Attributes beyond a single call.
type Attributes map[string]any

// Entity is the generic representation of a remote record.
type Entity struct {
	ID         uuid.UUID
	Kind       Kind
	Attributes Attributes
}

// String fetches a string attribute, returning "" when absent or mistyped.
func (e Entity) String(name string) string {
	v, _ := e.Attributes[name].(string)
	return v
}

// Bool fetches a boolean attribute.
func (e Entity) Bool(name string) bool {
	v, _ := e.Attributes[name].(bool)
	return v
}

// Int fetches an option-set or numeric attribute.
func (e Entity) Int(name string) int {
	switch v := e.Attributes[name].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// Ref fetches a lookup attribute, returning a zero Ref when absent.
func (e Entity) Ref(name string) Ref {
	v, _ := e.Attributes[name].(Ref)
	return v
}

// HasRef reports whether a lookup attribute is present and non-nil.
func (e Entity) HasRef(name string) bool {
	v, ok := e.Attributes[name].(Ref)
	return ok && v.ID != uuid.Nil
}

// AsRef converts the entity itself into a reference.
func (e Entity) AsRef() Ref {
	return Ref{Kind: e.Kind, ID: e.ID}
}
