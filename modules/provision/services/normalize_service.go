package services

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/naming"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
)

// NormalizeResult reports what normalization changed for one user.
type NormalizeResult struct {
	Username      string
	Internal      bool
	Region        plan.Region
	RegionUpdated bool
	Roles         RoleChanges
	TeamsJoined   []string
}

// NormalizeService brings a user's region, baseline roles and shared teams
// in line with the conventions for their kind (internal staff or external
// contractor) and region. Normalization is additive except for the region
// attribute, which is corrected in place.
type NormalizeService struct {
	dir      directory.Service
	lookups  *LookupService
	roles    *RoleService
	defaults plan.Defaults
	log      *logrus.Entry
}

func NewNormalizeService(dir directory.Service, lookups *LookupService, roles *RoleService, defaults plan.Defaults, log *logrus.Entry) *NormalizeService {
	return &NormalizeService{dir: dir, lookups: lookups, roles: roles, defaults: defaults, log: log}
}

// Normalize processes one user. withResco additionally enrolls the user in
// the region's inspections team and grants the inspections role.
func (s *NormalizeService) Normalize(ctx context.Context, username string, withResco bool) (NormalizeResult, error) {
	user, found, err := s.lookups.User(ctx, username)
	if err != nil {
		return NormalizeResult{}, err
	}
	if !found {
		return NormalizeResult{}, errors.Wrapf(directory.ErrNotFound, "user %q", username)
	}
	userRef := directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName}

	res := NormalizeResult{
		Username: username,
		Internal: plan.InternalUser(user.Username()),
		Region:   s.regionOf(user),
	}

	regionUpdated, err := s.ensureRegion(ctx, user, res.Region)
	if err != nil {
		return res, err
	}
	res.RegionUpdated = regionUpdated

	roleNames := s.roleSet(res)
	if withResco {
		roleNames = append(append([]string{}, roleNames...), s.defaults.RescoRole)
	}
	changes, err := s.roles.ReconcileUserRoles(ctx, userRef, user.BusinessUnit, roleNames, false)
	if err != nil {
		return res, err
	}
	res.Roles = changes

	for _, teamName := range s.teamSet(res, user, withResco) {
		joined, err := s.joinTeam(ctx, userRef, teamName)
		if err != nil {
			return res, err
		}
		if joined {
			res.TeamsJoined = append(res.TeamsJoined, teamName)
		}
	}

	s.log.WithFields(logrus.Fields{
		"user":     username,
		"internal": res.Internal,
		"region":   res.Region.Name,
	}).Info("user normalized")
	return res, nil
}

func (s *NormalizeService) regionOf(user directory.User) plan.Region {
	parts := strings.Split(naming.LeadingSiteCode(user.BusinessUnit.Name), "-")
	if len(parts) > 1 && s.defaults.IsNACountry(parts[1]) {
		return plan.RegionNA
	}
	return plan.RegionEU
}

// ensureRegion writes the region option set and display name when they are
// missing or wrong.
func (s *NormalizeService) ensureRegion(ctx context.Context, user directory.User, region plan.Region) (bool, error) {
	current, err := s.dir.FindMany(ctx, directory.KindUser,
		directory.Where(directory.Eq(directory.AttrDomainName, user.DomainName)),
		directory.AttrRegionCode, directory.AttrRegionName)
	if err != nil {
		return false, errors.Wrap(err, "read user region")
	}
	if len(current) > 0 && current[0].Int(directory.AttrRegionCode) == region.Code {
		return false, nil
	}
	err = s.dir.Update(ctx, directory.KindUser, user.ID, directory.Attributes{
		directory.AttrRegionCode: region.Code,
		directory.AttrRegionName: region.Name,
	})
	if err != nil {
		return false, errors.Wrap(err, "update user region")
	}
	return true, nil
}

func (s *NormalizeService) roleSet(res NormalizeResult) []string {
	if res.Region == plan.RegionNA {
		return s.defaults.InternalUserRolesNA
	}
	if res.Internal {
		return append(append([]string{}, s.defaults.StandardTeamRoles...), s.defaults.InternalUserRolesEU...)
	}
	return s.defaults.StandardTeamRoles
}

func (s *NormalizeService) teamSet(res NormalizeResult, user directory.User, withResco bool) []string {
	teams := make([]string, 0, 3)
	if res.Region == plan.RegionEU {
		if res.Internal {
			teams = append(teams, s.defaults.InternalTeamEU)
		} else {
			teams = append(teams, s.defaults.ExternalTeamEU)
		}
		if plan.IberiaUser(user.BusinessUnit.Name) {
			teams = append(teams, s.defaults.IberiaTeam)
		}
	}
	if withResco {
		if res.Region == plan.RegionNA {
			teams = append(teams, s.defaults.RescoTeamNA)
		} else {
			teams = append(teams, s.defaults.RescoTeamEU)
		}
	}
	return teams
}

// joinTeam adds the user to a named shared team, skipping silently when
// already a member. A missing shared team is a prerequisite failure.
func (s *NormalizeService) joinTeam(ctx context.Context, user directory.Ref, teamName string) (bool, error) {
	team, found, err := s.lookups.Team(ctx, teamName)
	if err != nil {
		return false, err
	}
	if !found {
		return false, errors.Wrapf(directory.ErrPrerequisiteNotFound, "shared team %q", teamName)
	}
	teamRef := directory.Ref{Kind: directory.KindTeam, ID: team.ID, Name: team.Name}

	member, err := s.lookups.IsTeamMember(ctx, teamRef, user)
	if err != nil {
		return false, err
	}
	if member {
		return false, nil
	}
	if err := s.dir.Associate(ctx, teamRef, directory.RelTeamMembership, user); err != nil {
		return false, errors.Wrapf(err, "join team %q", teamName)
	}
	return true, nil
}
