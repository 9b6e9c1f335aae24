package services

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// ChangeBuResult reports a business-unit move.
type ChangeBuResult struct {
	Username string
	FromBu   string
	ToBu     string
	// RestoredRoles are the direct roles re-granted after the move; moving a
	// user between business units strips all direct role assignments.
	RestoredRoles RoleChanges
}

// ChangeBuService moves users between business units, preserving their
// direct roles across the move by re-resolving the same role names in the
// destination scope.
type ChangeBuService struct {
	dir     directory.Service
	lookups *LookupService
	roles   *RoleService
	log     *logrus.Entry
}

func NewChangeBuService(dir directory.Service, lookups *LookupService, roles *RoleService, log *logrus.Entry) *ChangeBuService {
	return &ChangeBuService{dir: dir, lookups: lookups, roles: roles, log: log}
}

// ChangeBu moves one user. The role snapshot is taken before the move, the
// restore happens after; roles that do not exist in the destination scope
// are reported as NotFound, not failed.
func (s *ChangeBuService) ChangeBu(ctx context.Context, username, targetBu string) (ChangeBuResult, error) {
	user, found, err := s.lookups.User(ctx, username)
	if err != nil {
		return ChangeBuResult{}, err
	}
	if !found {
		return ChangeBuResult{}, errors.Wrapf(directory.ErrNotFound, "user %q", username)
	}
	userRef := directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName}

	bu, found, err := s.lookups.BusinessUnit(ctx, targetBu)
	if err != nil {
		return ChangeBuResult{}, err
	}
	if !found {
		return ChangeBuResult{}, errors.Wrapf(directory.ErrPrerequisiteNotFound, "business unit %q", targetBu)
	}
	buRef := directory.Ref{Kind: directory.KindBusinessUnit, ID: bu.ID, Name: bu.Name}

	result := ChangeBuResult{Username: username, FromBu: user.BusinessUnit.Name, ToBu: bu.Name}
	if user.BusinessUnit.ID == bu.ID {
		return result, nil
	}

	snapshot, err := s.lookups.UserRoles(ctx, userRef)
	if err != nil {
		return ChangeBuResult{}, err
	}
	roleNames := make([]string, 0, len(snapshot))
	for _, role := range snapshot {
		roleNames = append(roleNames, role.Name)
	}

	err = s.dir.Update(ctx, directory.KindUser, user.ID, directory.Attributes{
		directory.AttrBusinessUnitRef: buRef,
	})
	if err != nil {
		return ChangeBuResult{}, errors.Wrapf(err, "move user %q to %q", username, targetBu)
	}
	s.log.WithFields(logrus.Fields{
		"user": username,
		"from": result.FromBu,
		"to":   result.ToBu,
	}).Info("user moved")

	restored, err := s.roles.ReconcileUserRoles(ctx, userRef, buRef, roleNames, false)
	if err != nil {
		return result, errors.Wrap(err, "restore roles after move")
	}
	result.RestoredRoles = restored
	return result, nil
}
