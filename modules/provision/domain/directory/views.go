package directory

import "github.com/google/uuid"

// Attribute names of the remote schema the reconcilers read and write.
// Kept in one place so the typed views below are the only code that touches
// raw attribute keys for these kinds.
const (
	AttrName             = "name"
	AttrBuCode           = "atos_codigout"
	AttrParentBu         = "parentbusinessunitid"
	AttrPlannerGroupRef  = "atos_grupoplanificadorid"
	AttrWorkCenterRef    = "atos_puestodetrabajoid"
	AttrOwnerTeamRef     = "atos_equipopropietarioid"
	AttrOwnerTeamName    = "atos_equipopropietarioidname"
	AttrTeamType         = "teamtype"
	AttrAdministratorRef = "administratorid"
	AttrBusinessUnitRef  = "businessunitid"
	AttrDomainName       = "domainname"
	AttrFullName         = "fullname"
	AttrFirstName        = "firstname"
	AttrYomiFullName     = "yomifullname"
	AttrEmail            = "internalemailaddress"
	AttrLiveID           = "windowsliveid"
	AttrDisabled         = "isdisabled"
	AttrRegionName       = "atos_regionname"
	AttrRegionCode       = "atos_region"
	AttrCode             = "atos_codigo"
	AttrWorkCenterCode   = "atos_codigopuestodetrabajo"
)

// TeamTypeOwner is the only team type this tool provisions; the remote side
// distinguishes owner teams from access teams by this option-set value.
const TeamTypeOwner = 0

// BusinessUnit is the typed view of a businessunit entity.
type BusinessUnit struct {
	ID           uuid.UUID
	Name         string
	Code         string
	ParentBu     Ref
	PlannerGroup Ref
	WorkCenter   Ref
	OwnerTeam    Ref
}

// BusinessUnitView converts a generic entity.
func BusinessUnitView(e Entity) BusinessUnit {
	return BusinessUnit{
		ID:           e.ID,
		Name:         e.String(AttrName),
		Code:         e.String(AttrBuCode),
		ParentBu:     e.Ref(AttrParentBu),
		PlannerGroup: e.Ref(AttrPlannerGroupRef),
		WorkCenter:   e.Ref(AttrWorkCenterRef),
		OwnerTeam:    e.Ref(AttrOwnerTeamRef),
	}
}

// Team is the typed view of a team entity.
type Team struct {
	ID            uuid.UUID
	Name          string
	Type          int
	BusinessUnit  Ref
	Administrator Ref
}

// TeamView converts a generic entity.
func TeamView(e Entity) Team {
	return Team{
		ID:            e.ID,
		Name:          e.String(AttrName),
		Type:          e.Int(AttrTeamType),
		BusinessUnit:  e.Ref(AttrBusinessUnitRef),
		Administrator: e.Ref(AttrAdministratorRef),
	}
}

// Role is the typed view of a role entity. Roles with the same name exist
// once per business unit; ID is only meaningful together with the scope.
type Role struct {
	ID           uuid.UUID
	Name         string
	BusinessUnit Ref
}

// RoleView converts a generic entity.
func RoleView(e Entity) Role {
	return Role{
		ID:           e.ID,
		Name:         e.String(AttrName),
		BusinessUnit: e.Ref(AttrBusinessUnitRef),
	}
}

// User is the typed view of a systemuser entity.
type User struct {
	ID           uuid.UUID
	DomainName   string
	FullName     string
	FirstName    string
	YomiFullName string
	Email        string
	BusinessUnit Ref
	Disabled     bool
}

// UserView converts a generic entity.
func UserView(e Entity) User {
	return User{
		ID:           e.ID,
		DomainName:   e.String(AttrDomainName),
		FullName:     e.String(AttrFullName),
		FirstName:    e.String(AttrFirstName),
		YomiFullName: e.String(AttrYomiFullName),
		Email:        e.String(AttrEmail),
		BusinessUnit: e.Ref(AttrBusinessUnitRef),
		Disabled:     e.Bool(AttrDisabled),
	}
}

// Username is the account part of the user's domain name.
func (u User) Username() string {
	name := u.DomainName
	for i := 0; i < len(name); i++ {
		if name[i] == '@' {
			return name[:i]
		}
	}
	return name
}
