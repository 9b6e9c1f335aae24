package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
)

// TeamOutcome says what Reconcile did to the team.
type TeamOutcome string

const (
	TeamCreated TeamOutcome = "created"
	// TeamRecreated means an existing team had the wrong type and was
	// deleted and created again; team type cannot be changed in place.
	TeamRecreated TeamOutcome = "recreated"
	TeamUpdated   TeamOutcome = "updated"
	TeamUnchanged TeamOutcome = "unchanged"
)

// TeamResult is the reconciled team plus the role changes applied to it.
type TeamResult struct {
	Ref     directory.Ref
	Outcome TeamOutcome
	Roles   RoleChanges
}

// TeamService reconciles teams against their specs: find-or-create, patch
// business unit and administrator, enforce the owner team type, keep the
// proprietary backlink on the business unit, and reconcile the role set.
type TeamService struct {
	dir     directory.Service
	lookups *LookupService
	roles   *RoleService
	log     *logrus.Entry
}

func NewTeamService(dir directory.Service, lookups *LookupService, roles *RoleService, log *logrus.Entry) *TeamService {
	return &TeamService{dir: dir, lookups: lookups, roles: roles, log: log}
}

// Reconcile brings one team to its desired state under the already
// reconciled business unit. Role additions are add-only here; removing
// roles from provisioned teams is the symmetric flow's job.
func (s *TeamService) Reconcile(ctx context.Context, spec plan.TeamSpec, bu directory.Ref) (TeamResult, error) {
	admin, err := s.lookups.Administrator(ctx, spec.Administrator)
	if err != nil {
		return TeamResult{}, err
	}
	adminRef := directory.Ref{Kind: directory.KindUser, ID: admin.ID, Name: admin.FullName}

	existing, found, err := s.lookups.Team(ctx, spec.Name)
	if err != nil {
		return TeamResult{}, err
	}

	outcome := TeamUnchanged
	var ref directory.Ref

	switch {
	case found && existing.Type != directory.TeamTypeOwner:
		// The remote API rejects type changes on existing teams.
		s.log.WithFields(logrus.Fields{
			"team": spec.Name,
			"type": existing.Type,
		}).Warn("team exists with wrong type, recreating")
		if err := s.dir.Delete(ctx, directory.KindTeam, existing.ID); err != nil {
			return TeamResult{}, errors.Wrapf(err, "delete mistyped team %q", spec.Name)
		}
		ref, err = s.create(ctx, spec, bu, adminRef)
		if err != nil {
			return TeamResult{}, err
		}
		outcome = TeamRecreated

	case found:
		patch := directory.Attributes{}
		if existing.BusinessUnit.ID != bu.ID {
			patch[directory.AttrBusinessUnitRef] = bu
		}
		if existing.Administrator.ID != adminRef.ID {
			patch[directory.AttrAdministratorRef] = adminRef
		}
		ref = directory.Ref{Kind: directory.KindTeam, ID: existing.ID, Name: existing.Name}
		if len(patch) > 0 {
			if err := s.dir.Update(ctx, directory.KindTeam, existing.ID, patch); err != nil {
				return TeamResult{}, errors.Wrapf(err, "update team %q", spec.Name)
			}
			outcome = TeamUpdated
			s.log.WithField("team", spec.Name).Info("team updated")
		}

	default:
		ref, err = s.create(ctx, spec, bu, adminRef)
		if err != nil {
			return TeamResult{}, err
		}
		outcome = TeamCreated
	}

	if spec.Kind == plan.ProprietaryTeam {
		if err := s.linkProprietary(ctx, bu, ref); err != nil {
			return TeamResult{}, err
		}
	}

	changes, err := s.roles.ReconcileTeamRoles(ctx, ref, bu, spec.Roles, false)
	if err != nil {
		return TeamResult{}, err
	}
	return TeamResult{Ref: ref, Outcome: outcome, Roles: changes}, nil
}

func (s *TeamService) create(ctx context.Context, spec plan.TeamSpec, bu, admin directory.Ref) (directory.Ref, error) {
	id, err := s.dir.Create(ctx, directory.KindTeam, directory.Attributes{
		directory.AttrName:             spec.Name,
		directory.AttrTeamType:         directory.TeamTypeOwner,
		directory.AttrBusinessUnitRef:  bu,
		directory.AttrAdministratorRef: admin,
	})
	if err != nil {
		return directory.Ref{}, errors.Wrapf(err, "create team %q", spec.Name)
	}
	s.log.WithField("team", spec.Name).Info("team created")
	return directory.Ref{Kind: directory.KindTeam, ID: id, Name: spec.Name}, nil
}

// linkProprietary writes the owner-team backlink on the business unit so the
// proprietary team is discoverable from the unit itself.
func (s *TeamService) linkProprietary(ctx context.Context, bu, team directory.Ref) error {
	err := s.dir.Update(ctx, directory.KindBusinessUnit, bu.ID, directory.Attributes{
		directory.AttrOwnerTeamRef:  team,
		directory.AttrOwnerTeamName: team.Name,
	})
	if err != nil {
		return errors.Wrapf(err, "link proprietary team %q to %q", team.Name, bu.Name)
	}
	return nil
}
