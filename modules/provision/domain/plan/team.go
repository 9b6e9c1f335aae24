package plan

import (
	"strings"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/naming"
)

// TeamKind tags the two team flavors provisioned per business unit.
type TeamKind string

const (
	// StandardTeam is the contractor-facing team ("Equipo contrata ...").
	StandardTeam TeamKind = "standard"
	// ProprietaryTeam is the owner team ("EDPR: ...") that gets linked back
	// to the business unit as its proprietary team.
	ProprietaryTeam TeamKind = "proprietary"
)

// TeamSpec is the desired state of one team: what to name it, where to hang
// it, who administers it and which roles it must hold. The role set depends
// on the kind, never on the row.
type TeamSpec struct {
	Kind          TeamKind
	Name          string
	BusinessUnit  string
	Administrator string
	Roles         []string
}

// TeamData is the fully derived, immutable provisioning target for one valid
// worksheet row. All names are computed once here; downstream code only
// reads them.
type TeamData struct {
	// Bu is the business-unit name, e.g. "0-ES-ZGZ-01 ZP2 Contrata 12345678".
	Bu string
	// ParentBu is the park-level business unit the new one hangs under.
	ParentBu string
	// StandardTeamName and ProprietaryTeamName are the two derived team names.
	StandardTeamName    string
	ProprietaryTeamName string
	// UmbrellaTeam is the site-wide "... Contrata" team used as the
	// membership gate.
	UmbrellaTeam string

	SiteCode       string
	ContractorCode string
	ContractorName string
	PlannerGroup   string
	PlanningCenter string
	Region         Region
}

// Derive computes the provisioning target from a validated row.
func Derive(row TeamRow, defaults Defaults) TeamData {
	bu := naming.BusinessUnitName(row.SiteCode, row.ContractorCode, row.PlannerGroup)
	region := RegionEU
	if defaults.IsNACountry(row.CountryCode()) {
		region = RegionNA
	}
	return TeamData{
		Bu:                  bu,
		ParentBu:            row.SiteCode,
		StandardTeamName:    naming.StandardTeamName(bu),
		ProprietaryTeamName: naming.ProprietaryTeamName(bu),
		UmbrellaTeam:        naming.UmbrellaTeamName(row.SiteCode),
		SiteCode:            row.SiteCode,
		ContractorCode:      row.ContractorCode,
		ContractorName:      strings.TrimSpace(row.ContractorName),
		PlannerGroup:        row.PlannerGroup,
		PlanningCenter:      row.PlanningCenter,
		Region:              region,
	}
}

// Teams expands the target into the two team specs to reconcile, in the
// order they must be processed: standard first, proprietary second, so the
// business unit exists before its owner-team backlink is written.
func (d TeamData) Teams(defaults Defaults) []TeamSpec {
	admin := defaults.Administrator(d.Region)
	return []TeamSpec{
		{
			Kind:          StandardTeam,
			Name:          d.StandardTeamName,
			BusinessUnit:  d.Bu,
			Administrator: admin,
			Roles:         defaults.StandardTeamRoles,
		},
		{
			Kind:          ProprietaryTeam,
			Name:          d.ProprietaryTeamName,
			BusinessUnit:  d.Bu,
			Administrator: admin,
			Roles:         defaults.ProprietaryTeamRoles,
		},
	}
}

// ExportFileName is the workbook name for the per-park user extraction,
// derived from the business unit without its contractor code.
func (d TeamData) ExportFileName() string {
	base := strings.TrimSpace(naming.WithoutContractorCode(d.Bu))
	return strings.ReplaceAll(base, " ", "_") + "_users.xlsx"
}

// AssignmentRow is one row of the "Assign Teams" worksheet: a username and
// the team it should join. Whitespace damage from manual editing is repaired
// at read time, not here.
type AssignmentRow struct {
	Username string
	Team     string
}

// InternalUser reports whether a username follows the internal-staff
// convention: a leading 'e' followed by a digit, excluding the 'x' external
// prefix. Everything else is an external (contractor) account.
func InternalUser(username string) bool {
	u := strings.ToLower(strings.TrimSpace(username))
	if len(u) < 2 || u[0] != 'e' {
		return false
	}
	return u[1] >= '0' && u[1] <= '9'
}

// IberiaUser reports whether the user's business-unit name places them in a
// Spanish or Portuguese park.
func IberiaUser(buName string) bool {
	code := naming.LeadingSiteCode(buName)
	parts := strings.Split(code, "-")
	if len(parts) < 2 {
		return false
	}
	return parts[1] == "ES" || parts[1] == "PT"
}
