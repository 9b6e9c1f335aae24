// Package naming holds the pure string rules that turn spreadsheet fields
// into the canonical names of business units and teams. All functions are
// total: malformed input is a caller concern and is reported upstream by the
// row validator.
package naming

import (
	"regexp"
	"strings"
)

const (
	// DefaultPlannerGroup is the sentinel planner-group code that is omitted
	// from derived business-unit names.
	DefaultPlannerGroup = "ZP1"

	standardTeamPrefix    = "Equipo contrata "
	proprietaryTeamPrefix = "EDPR: "
	contractorToken       = "Contrata"
)

var (
	siteCodeRe  = regexp.MustCompile(`^\d-[A-Z]{2}-[A-Z]{3}-\d{2}`)
	parkTokenRe = regexp.MustCompile(`^[a-zA-Z]+-[a-zA-Z]+-[a-zA-Z]+$`)
)

// BusinessUnitName derives the canonical business-unit name from the raw
// site code, contractor code and planner-group code. The planner group is
// inserted only when it differs from the ZP1 default:
//
//	0-ES-ZGZ-01 Contrata 12345678
//	0-ES-ZGZ-01 ZP2 Contrata 12345678
func BusinessUnitName(siteCode, contractorCode, plannerGroup string) string {
	bu := siteCode
	if plannerGroup != DefaultPlannerGroup {
		bu += " " + plannerGroup
	}
	return bu + " " + contractorToken + " " + contractorCode
}

// StandardTeamName derives the contractor ("contrata") team name for a
// business unit.
func StandardTeamName(buName string) string {
	return standardTeamPrefix + buName
}

// ProprietaryTeamName derives the owner-team name for a business unit.
func ProprietaryTeamName(buName string) string {
	return proprietaryTeamPrefix + buName
}

// UmbrellaTeamName derives the park-wide umbrella team name for a base park
// name. Umbrella teams carry a trailing contractor token with no code:
//
//	0-ES-ZGZ-01 -> Equipo contrata 0-ES-ZGZ-01 Contrata
func UmbrellaTeamName(baseParkName string) string {
	return strings.TrimSpace(standardTeamPrefix+baseParkName) + " " + contractorToken
}

// RootParkName strips the contractor qualification from a fully qualified
// park name by locating the last whitespace token shaped like
// letters-letters-letters and truncating after it. When no token matches,
// the trimmed input is returned unchanged.
func RootParkName(fullName string) string {
	words := strings.Fields(strings.TrimSpace(fullName))
	if len(words) == 0 {
		return strings.TrimSpace(fullName)
	}
	last := len(words) - 1
	for i := len(words) - 1; i >= 0; i-- {
		if parkTokenRe.MatchString(words[i]) {
			last = i
			break
		}
	}
	return strings.Join(words[:last+1], " ")
}

// MasterDataTeamName recovers the umbrella team name from a doubly qualified
// team name by truncating just after the second case-insensitive occurrence
// of the "Contrata" token:
//
//	Equipo contrata 0-PT-CES-01 Contrata 12345678 -> Equipo contrata 0-PT-CES-01 Contrata
//
// Names with fewer than two occurrences are returned trimmed and unchanged.
// The truncation is inclusive of the matched token because umbrella teams
// are named with a trailing "Contrata" in the directory.
func MasterDataTeamName(fullName string) string {
	trimmed := strings.TrimSpace(fullName)
	lower := strings.ToLower(trimmed)
	token := strings.ToLower(contractorToken)

	first := strings.Index(lower, token)
	if first < 0 {
		return trimmed
	}
	second := strings.Index(lower[first+len(token):], token)
	if second < 0 {
		return trimmed
	}
	end := first + len(token) + second + len(token)
	return strings.TrimSpace(trimmed[:end])
}

// StripStandardTeamPrefix removes the leading "Equipo contrata" marker from a
// team name, recovering the business-unit name the team was derived from.
func StripStandardTeamPrefix(teamName string) string {
	trimmed := strings.TrimSpace(teamName)
	lower := strings.ToLower(trimmed)
	prefix := strings.ToLower(strings.TrimSpace(standardTeamPrefix))
	if strings.HasPrefix(lower, prefix) {
		return strings.TrimSpace(trimmed[len(prefix):])
	}
	return trimmed
}

// LeadingSiteCode returns the leading substring matching the site-code
// pattern (digit-LETTER{2}-LETTER{3}-digit{2}), or the whole input when no
// prefix matches.
func LeadingSiteCode(input string) string {
	if m := siteCodeRe.FindString(input); m != "" {
		return m
	}
	return input
}

// WithoutContractorCode drops the trailing contractor code from a fully
// qualified business-unit name, leaving the name that parents the users to
// be extracted. The input is expected to end with the code as its last
// space-separated token.
func WithoutContractorCode(buName string) string {
	trimmed := strings.TrimSpace(buName)
	idx := strings.LastIndex(trimmed, " ")
	if idx < 0 {
		return trimmed
	}
	return trimmed[:idx]
}
