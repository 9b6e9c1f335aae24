// Package services implements the provisioning flows on top of the
// directory contract: reconciling business units and teams, diffing role
// sets, gated team membership, user normalization and the bulk commands.
package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// LookupService resolves the named prerequisites a provisioning run depends
// on. All lookups are by name; none of them create anything.
type LookupService struct {
	dir directory.Service
}

func NewLookupService(dir directory.Service) *LookupService {
	return &LookupService{dir: dir}
}

// BusinessUnit finds a business unit by exact name, tolerating duplicates.
func (s *LookupService) BusinessUnit(ctx context.Context, name string) (directory.BusinessUnit, bool, error) {
	e, ok, err := directory.First(ctx, s.dir, directory.KindBusinessUnit, directory.ByName(name))
	if err != nil || !ok {
		return directory.BusinessUnit{}, ok, err
	}
	return directory.BusinessUnitView(e), true, nil
}

// Team finds a team by exact name.
func (s *LookupService) Team(ctx context.Context, name string) (directory.Team, bool, error) {
	e, ok, err := directory.First(ctx, s.dir, directory.KindTeam, directory.ByName(name))
	if err != nil || !ok {
		return directory.Team{}, ok, err
	}
	return directory.TeamView(e), true, nil
}

// Administrator finds the default team administrator by full name. A missing
// administrator is a prerequisite failure: teams cannot be created without
// an owner.
func (s *LookupService) Administrator(ctx context.Context, fullName string) (directory.User, error) {
	e, ok, err := directory.First(ctx, s.dir, directory.KindUser,
		directory.Where(directory.Eq(directory.AttrFullName, fullName)))
	if err != nil {
		return directory.User{}, err
	}
	if !ok {
		return directory.User{}, errors.Wrapf(directory.ErrPrerequisiteNotFound, "administrator %q", fullName)
	}
	return directory.UserView(e), nil
}

// PlannerGroup resolves the planner group joined to its planning center.
// Both names match by substring; anything but exactly one hit halts the
// item, because guessing between planner groups corrupts the business unit.
func (s *LookupService) PlannerGroup(ctx context.Context, plannerGroup, planningCenter string) (directory.Ref, error) {
	filter := directory.Where(directory.Contains("atos_nombre", plannerGroup)).
		WithLink(directory.Link{
			Kind:   directory.KindPlanningCenter,
			From:   "atos_centrodeplanificacionid",
			To:     "atos_centrodeplanificacionid",
			Filter: directory.Where(directory.Contains("atos_nombre", planningCenter)),
		})
	e, err := directory.One(ctx, s.dir, directory.KindPlannerGroup, filter)
	if err != nil {
		return directory.Ref{}, errors.Wrapf(err, "planner group %q in center %q", plannerGroup, planningCenter)
	}
	ref := e.AsRef()
	ref.Name = e.String("atos_nombre")
	return ref, nil
}

// WorkCenter resolves the work center joined to its site center by the site
// code. Same exactly-one rule as PlannerGroup.
func (s *LookupService) WorkCenter(ctx context.Context, siteCode string) (directory.Ref, error) {
	filter := directory.Where(directory.Contains("atos_nombre", siteCode)).
		WithLink(directory.Link{
			Kind:   directory.KindSiteCenter,
			From:   "atos_centrodeemplazamientoid",
			To:     "atos_centrodeemplazamientoid",
			Filter: directory.Where(directory.Contains("atos_nombre", siteCode)),
		})
	e, err := directory.One(ctx, s.dir, directory.KindWorkCenter, filter)
	if err != nil {
		return directory.Ref{}, errors.Wrapf(err, "work center for site %q", siteCode)
	}
	ref := e.AsRef()
	ref.Name = e.String("atos_nombre")
	return ref, nil
}

// RolesByName resolves role names within a business-unit scope. Roles exist
// once per business unit, so the scope is part of the identity. Names that
// resolve to nothing are returned separately; the caller decides whether
// that is fatal.
func (s *LookupService) RolesByName(ctx context.Context, scope directory.Ref, names []string) (found []directory.Role, missing []string, err error) {
	for _, name := range names {
		filter := directory.Where(
			directory.Eq(directory.AttrName, name),
			directory.Eq(directory.AttrBusinessUnitRef, scope.ID.String()),
		)
		e, ok, err := directory.First(ctx, s.dir, directory.KindRole, filter)
		if err != nil {
			return nil, nil, errors.Wrapf(err, "role %q", name)
		}
		if !ok {
			missing = append(missing, name)
			continue
		}
		found = append(found, directory.RoleView(e))
	}
	return found, missing, nil
}

// User finds a user by any of the identifying fields: domain name, email or
// live ID prefix, or a substring of the full or yomi name. The first match
// wins; bulk flows use this after exact lookups fail.
func (s *LookupService) User(ctx context.Context, needle string) (directory.User, bool, error) {
	filter := directory.AnyOf(
		directory.StartsWith(directory.AttrDomainName, needle),
		directory.StartsWith(directory.AttrEmail, needle),
		directory.StartsWith(directory.AttrLiveID, needle),
		directory.Contains(directory.AttrFullName, needle),
		directory.Contains(directory.AttrYomiFullName, needle),
	)
	e, ok, err := directory.First(ctx, s.dir, directory.KindUser, filter)
	if err != nil || !ok {
		return directory.User{}, ok, err
	}
	return directory.UserView(e), true, nil
}

// TeamMembers lists the users belonging to a team.
func (s *LookupService) TeamMembers(ctx context.Context, team directory.Ref) ([]directory.User, error) {
	filter := directory.Filter{}.WithLink(directory.Link{
		Kind:   directory.KindTeamMembership,
		From:   "systemuserid",
		To:     "systemuserid",
		Filter: directory.Where(directory.Eq("teamid", team.ID.String())),
	})
	entities, err := s.dir.FindMany(ctx, directory.KindUser, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "members of team %s", team.Name)
	}
	users := make([]directory.User, 0, len(entities))
	for _, e := range entities {
		users = append(users, directory.UserView(e))
	}
	return users, nil
}

// BusinessUnitMembers lists the users placed directly under a business unit.
func (s *LookupService) BusinessUnitMembers(ctx context.Context, bu directory.Ref) ([]directory.User, error) {
	filter := directory.Where(directory.Eq(directory.AttrBusinessUnitRef, bu.ID.String()))
	entities, err := s.dir.FindMany(ctx, directory.KindUser, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "users of business unit %s", bu.Name)
	}
	users := make([]directory.User, 0, len(entities))
	for _, e := range entities {
		users = append(users, directory.UserView(e))
	}
	return users, nil
}

// IsTeamMember reports whether the user already belongs to the team.
func (s *LookupService) IsTeamMember(ctx context.Context, team, user directory.Ref) (bool, error) {
	filter := directory.Where(directory.Eq("systemuserid", user.ID.String())).
		WithLink(directory.Link{
			Kind:   directory.KindTeamMembership,
			From:   "systemuserid",
			To:     "systemuserid",
			Filter: directory.Where(directory.Eq("teamid", team.ID.String())),
		})
	_, ok, err := directory.First(ctx, s.dir, directory.KindUser, filter)
	return ok, err
}

// TeamRoles lists the roles currently granted to a team.
func (s *LookupService) TeamRoles(ctx context.Context, team directory.Ref) ([]directory.Role, error) {
	filter := directory.Filter{}.WithLink(directory.Link{
		Kind:   directory.KindTeamRole,
		From:   "roleid",
		To:     "roleid",
		Filter: directory.Where(directory.Eq("teamid", team.ID.String())),
	})
	entities, err := s.dir.FindMany(ctx, directory.KindRole, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "roles of team %s", team.Name)
	}
	roles := make([]directory.Role, 0, len(entities))
	for _, e := range entities {
		roles = append(roles, directory.RoleView(e))
	}
	return roles, nil
}

// UserRoles lists the roles directly assigned to a user.
func (s *LookupService) UserRoles(ctx context.Context, user directory.Ref) ([]directory.Role, error) {
	filter := directory.Filter{}.WithLink(directory.Link{
		Kind:   directory.KindUserRole,
		From:   "roleid",
		To:     "roleid",
		Filter: directory.Where(directory.Eq("systemuserid", user.ID.String())),
	})
	entities, err := s.dir.FindMany(ctx, directory.KindRole, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "roles of user %s", user.Name)
	}
	roles := make([]directory.Role, 0, len(entities))
	for _, e := range entities {
		roles = append(roles, directory.RoleView(e))
	}
	return roles, nil
}

// UserTeams lists the teams a user belongs to.
func (s *LookupService) UserTeams(ctx context.Context, user directory.Ref) ([]directory.Team, error) {
	filter := directory.Filter{}.WithLink(directory.Link{
		Kind:   directory.KindTeamMembership,
		From:   "teamid",
		To:     "teamid",
		Filter: directory.Where(directory.Eq("systemuserid", user.ID.String())),
	})
	entities, err := s.dir.FindMany(ctx, directory.KindTeam, filter)
	if err != nil {
		return nil, errors.Wrapf(err, "teams of user %s", user.Name)
	}
	teams := make([]directory.Team, 0, len(entities))
	for _, e := range entities {
		teams = append(teams, directory.TeamView(e))
	}
	return teams, nil
}
