package plan

import (
	"os"

	"github.com/go-faster/errors"
	"gopkg.in/yaml.v3"
)

// Region identifies one of the two deployment regions and its option-set
// value in the remote schema.
type Region struct {
	Name string `yaml:"name"`
	Code int    `yaml:"code"`
}

var (
	RegionEU = Region{Name: "EU", Code: 300000000}
	RegionNA = Region{Name: "NA", Code: 300000001}
)

// Defaults carries the region-dependent names baked into the provisioning
// process: default administrators, the role sets granted to each team kind,
// and the shared teams users are normalized into. Built-in values match the
// current production conventions; a YAML file can override any of them.
type Defaults struct {
	// AdministratorEU and AdministratorNA own newly created teams.
	AdministratorEU string `yaml:"administrator_eu"`
	AdministratorNA string `yaml:"administrator_na"`

	// StandardTeamRoles are granted to every standard contractor team.
	StandardTeamRoles []string `yaml:"standard_team_roles"`
	// ProprietaryTeamRoles are granted to every proprietary (EDPR) team.
	ProprietaryTeamRoles []string `yaml:"proprietary_team_roles"`

	// InternalUserRolesEU extends the standard set for internal EU users.
	InternalUserRolesEU []string `yaml:"internal_user_roles_eu"`
	// InternalUserRolesNA is the role set for internal NA users.
	InternalUserRolesNA []string `yaml:"internal_user_roles_na"`

	// ExternalTeamEU and InternalTeamEU are the knowledge-management teams
	// every normalized EU user joins, picked by internal/external status.
	ExternalTeamEU string `yaml:"external_team_eu"`
	InternalTeamEU string `yaml:"internal_team_eu"`
	// IberiaTeam is joined additionally by users in Spanish and Portuguese
	// business units.
	IberiaTeam string `yaml:"iberia_team"`

	// RescoTeamEU, RescoTeamNA and RescoRole parameterize the optional
	// inspections enrollment.
	RescoTeamEU string `yaml:"resco_team_eu"`
	RescoTeamNA string `yaml:"resco_team_na"`
	RescoRole   string `yaml:"resco_role"`

	// EUCountries and NACountries route rows and users by the country code
	// embedded in the site code.
	EUCountries []string `yaml:"eu_countries"`
	NACountries []string `yaml:"na_countries"`

	eu map[string]struct{}
	na map[string]struct{}
}

// BuiltinDefaults returns the production conventions.
func BuiltinDefaults() Defaults {
	d := Defaults{
		AdministratorEU: "JORGE FELIX AVELLANAL APAOLAZA",
		AdministratorNA: "GREG EMANDI",
		StandardTeamRoles: []string{
			"EDPR_ROL_EUROPA",
			"EDPR_ROL_Field Service_Resource",
			"EDPR_ROL_GENERAL",
		},
		ProprietaryTeamRoles: []string{
			"EDPR_Rol para equipos propietarios de unidades de negocio",
		},
		InternalUserRolesEU: []string{
			"EDPR_personal_interno",
			"Resco Archive Read",
		},
		InternalUserRolesNA: []string{
			"EDPR_ROL_USA",
			"EDPR_ROL_Field Service_Resource",
			"EDPR_ROL_GENERAL",
			"EDPR_personal_interno",
			"Resco Archive Read",
		},
		ExternalTeamEU: "Equipo gestión conocimiento contratas",
		InternalTeamEU: "Equipo gestión conocimiento personal interno",
		IberiaTeam:     "Equipo dashboard contratas ES y PT",
		RescoTeamEU:    "Equipo templates checklist EUR",
		RescoTeamNA:    "Equipo templates checklist NA",
		RescoRole:      "EDPR_INSPECTIONS",
		EUCountries: []string{
			"ES", "PT", "FR", "IT", "PL", "RO", "GR", "BE", "UK", "GB",
			"DE", "NL", "HU", "AT", "IE", "DK", "SE", "FI", "NO", "BG",
		},
		NACountries: []string{"US", "CA", "MX"},
	}
	d.index()
	return d
}

// LoadDefaults reads an optional YAML override file on top of the built-in
// conventions. An empty path returns the built-ins unchanged.
func LoadDefaults(path string) (Defaults, error) {
	d := BuiltinDefaults()
	if path == "" {
		return d, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Defaults{}, errors.Wrap(err, "read defaults file")
	}
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Defaults{}, errors.Wrap(err, "parse defaults file")
	}
	d.index()
	return d, nil
}

func (d *Defaults) index() {
	d.eu = make(map[string]struct{}, len(d.EUCountries))
	for _, c := range d.EUCountries {
		d.eu[c] = struct{}{}
	}
	d.na = make(map[string]struct{}, len(d.NACountries))
	for _, c := range d.NACountries {
		d.na[c] = struct{}{}
	}
}

// IsEUCountry reports whether the country code belongs to the EU region.
func (d Defaults) IsEUCountry(code string) bool {
	_, ok := d.eu[code]
	return ok
}

// IsNACountry reports whether the country code belongs to the NA region.
func (d Defaults) IsNACountry(code string) bool {
	_, ok := d.na[code]
	return ok
}

// Administrator returns the default team administrator for the region.
func (d Defaults) Administrator(r Region) string {
	if r == RegionNA {
		return d.AdministratorNA
	}
	return d.AdministratorEU
}
