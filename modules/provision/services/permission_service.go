package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// CopyScope selects which parts of the source user's access to replicate.
type CopyScope struct {
	BusinessUnit bool
	Teams        bool
	Roles        bool
}

// All copies everything.
func (c CopyScope) All() bool { return c.BusinessUnit && c.Teams && c.Roles }

// Empty reports a scope selecting nothing.
func (c CopyScope) Empty() bool { return !c.BusinessUnit && !c.Teams && !c.Roles }

// CopyResult reports what was replicated.
type CopyResult struct {
	Source      string
	Target      string
	BuChanged   bool
	TeamsJoined []string
	Roles       RoleChanges
}

// PermissionService replicates one user's access onto another: business
// unit, team memberships and direct roles, in that order so role names
// resolve in the destination scope.
type PermissionService struct {
	dir     directory.Service
	lookups *LookupService
	roles   *RoleService
	log     *logrus.Entry
}

func NewPermissionService(dir directory.Service, lookups *LookupService, roles *RoleService, log *logrus.Entry) *PermissionService {
	return &PermissionService{dir: dir, lookups: lookups, roles: roles, log: log}
}

// Copy replicates the selected scope from source to target. Roles are
// matched by name in the target's (possibly just changed) business unit.
func (s *PermissionService) Copy(ctx context.Context, sourceName, targetName string, scope CopyScope) (CopyResult, error) {
	if scope.Empty() {
		return CopyResult{}, errors.New("nothing selected to copy")
	}

	source, found, err := s.lookups.User(ctx, sourceName)
	if err != nil {
		return CopyResult{}, err
	}
	if !found {
		return CopyResult{}, errors.Wrapf(directory.ErrNotFound, "source user %q", sourceName)
	}
	target, found, err := s.lookups.User(ctx, targetName)
	if err != nil {
		return CopyResult{}, err
	}
	if !found {
		return CopyResult{}, errors.Wrapf(directory.ErrNotFound, "target user %q", targetName)
	}

	sourceRef := directory.Ref{Kind: directory.KindUser, ID: source.ID, Name: source.FullName}
	targetRef := directory.Ref{Kind: directory.KindUser, ID: target.ID, Name: target.FullName}
	result := CopyResult{Source: sourceName, Target: targetName}

	roleScope := target.BusinessUnit
	if scope.BusinessUnit && target.BusinessUnit.ID != source.BusinessUnit.ID {
		err := s.dir.Update(ctx, directory.KindUser, target.ID, directory.Attributes{
			directory.AttrBusinessUnitRef: source.BusinessUnit,
		})
		if err != nil {
			return result, errors.Wrap(err, "copy business unit")
		}
		result.BuChanged = true
		roleScope = source.BusinessUnit
		s.log.WithFields(logrus.Fields{
			"target": targetName,
			"bu":     source.BusinessUnit.Name,
		}).Info("business unit copied")
	}

	if scope.Teams {
		teams, err := s.lookups.UserTeams(ctx, sourceRef)
		if err != nil {
			return result, err
		}
		for _, team := range teams {
			// Default teams are implicit per business unit and cannot be
			// joined explicitly; they carry the unit's own name.
			if team.Name == source.BusinessUnit.Name || team.Name == target.BusinessUnit.Name {
				continue
			}
			teamRef := directory.Ref{Kind: directory.KindTeam, ID: team.ID, Name: team.Name}
			member, err := s.lookups.IsTeamMember(ctx, teamRef, targetRef)
			if err != nil {
				return result, err
			}
			if member {
				continue
			}
			if err := s.dir.Associate(ctx, teamRef, directory.RelTeamMembership, targetRef); err != nil {
				return result, errors.Wrapf(err, "copy membership of %q", team.Name)
			}
			result.TeamsJoined = append(result.TeamsJoined, team.Name)
		}
	}

	if scope.Roles {
		sourceRoles, err := s.lookups.UserRoles(ctx, sourceRef)
		if err != nil {
			return result, err
		}
		names := make([]string, 0, len(sourceRoles))
		for _, role := range sourceRoles {
			names = append(names, role.Name)
		}
		changes, err := s.roles.ReconcileUserRoles(ctx, targetRef, roleScope, names, false)
		if err != nil {
			return result, err
		}
		result.Roles = changes
	}

	s.log.WithFields(logrus.Fields{"source": sourceName, "target": targetName}).Info("permissions copied")
	return result, nil
}
