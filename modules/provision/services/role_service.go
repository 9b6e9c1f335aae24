package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// RoleChanges reports a role-set reconciliation. Added and Removed name the
// roles actually changed; NotFound names desired roles that do not exist in
// the scope; Failed carries per-role association errors that did not abort
// the rest of the set.
type RoleChanges struct {
	Added    []string
	Removed  []string
	NotFound []string
	Failed   map[string]error
}

// Changed reports whether any edge was written.
func (c RoleChanges) Changed() bool {
	return len(c.Added) > 0 || len(c.Removed) > 0
}

// RoleService diffs and applies role sets on teams and users. Roles are
// identified by name within a business-unit scope; the diff compares names,
// never IDs, because each business unit has its own copy of every role.
type RoleService struct {
	dir     directory.Service
	lookups *LookupService
	log     *logrus.Entry
}

func NewRoleService(dir directory.Service, lookups *LookupService, log *logrus.Entry) *RoleService {
	return &RoleService{dir: dir, lookups: lookups, log: log}
}

// ReconcileTeamRoles brings the team's role set to want, scoped to the
// team's business unit. With symmetric true, roles outside want are removed;
// otherwise extras are left alone. One failing role does not abort the
// others.
func (s *RoleService) ReconcileTeamRoles(ctx context.Context, team, scope directory.Ref, want []string, symmetric bool) (RoleChanges, error) {
	current, err := s.lookups.TeamRoles(ctx, team)
	if err != nil {
		return RoleChanges{}, err
	}
	return s.reconcile(ctx, team, scope, directory.RelTeamRoles, current, want, symmetric)
}

// ReconcileUserRoles does the same for a user's direct role assignments.
func (s *RoleService) ReconcileUserRoles(ctx context.Context, user, scope directory.Ref, want []string, symmetric bool) (RoleChanges, error) {
	current, err := s.lookups.UserRoles(ctx, user)
	if err != nil {
		return RoleChanges{}, err
	}
	return s.reconcile(ctx, user, scope, directory.RelUserRoles, current, want, symmetric)
}

func (s *RoleService) reconcile(
	ctx context.Context,
	target, scope directory.Ref,
	relationship string,
	current []directory.Role,
	want []string,
	symmetric bool,
) (RoleChanges, error) {
	changes := RoleChanges{Failed: map[string]error{}}

	have := make(map[string]directory.Role, len(current))
	for _, role := range current {
		have[role.Name] = role
	}
	wanted := make(map[string]struct{}, len(want))
	for _, name := range want {
		wanted[name] = struct{}{}
	}

	toAdd := make([]string, 0, len(want))
	for _, name := range want {
		if _, ok := have[name]; !ok {
			toAdd = append(toAdd, name)
		}
	}

	resolved, missing, err := s.lookups.RolesByName(ctx, scope, toAdd)
	if err != nil {
		return changes, err
	}
	changes.NotFound = missing
	for _, name := range missing {
		s.log.WithFields(logrus.Fields{"role": name, "scope": scope.Name}).Warn("role not found in scope")
	}

	for _, role := range resolved {
		ref := directory.Ref{Kind: directory.KindRole, ID: role.ID, Name: role.Name}
		if err := s.dir.Associate(ctx, target, relationship, ref); err != nil {
			changes.Failed[role.Name] = err
			s.log.WithError(err).WithField("role", role.Name).Warn("role association failed")
			continue
		}
		changes.Added = append(changes.Added, role.Name)
	}

	if symmetric {
		for _, role := range current {
			if _, ok := wanted[role.Name]; ok {
				continue
			}
			ref := directory.Ref{Kind: directory.KindRole, ID: role.ID, Name: role.Name}
			if err := s.dir.Disassociate(ctx, target, relationship, ref); err != nil {
				changes.Failed[role.Name] = err
				s.log.WithError(err).WithField("role", role.Name).Warn("role removal failed")
				continue
			}
			changes.Removed = append(changes.Removed, role.Name)
		}
	}

	return changes, nil
}
