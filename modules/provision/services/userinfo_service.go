package services

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
)

// UserInfo is everything an operator needs to see about one user in one
// read: identity, placement, memberships and roles.
type UserInfo struct {
	User     directory.User
	Internal bool
	Teams    []directory.Team
	Roles    []directory.Role
}

// UserInfoService gathers the read-only user report.
type UserInfoService struct {
	lookups *LookupService
}

func NewUserInfoService(lookups *LookupService) *UserInfoService {
	return &UserInfoService{lookups: lookups}
}

// Describe resolves the user by any identifying field and collects their
// teams and direct roles.
func (s *UserInfoService) Describe(ctx context.Context, needle string) (UserInfo, error) {
	user, found, err := s.lookups.User(ctx, needle)
	if err != nil {
		return UserInfo{}, err
	}
	if !found {
		return UserInfo{}, errors.Wrapf(directory.ErrNotFound, "user %q", needle)
	}
	ref := directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName}

	teams, err := s.lookups.UserTeams(ctx, ref)
	if err != nil {
		return UserInfo{}, err
	}
	roles, err := s.lookups.UserRoles(ctx, ref)
	if err != nil {
		return UserInfo{}, err
	}

	return UserInfo{
		User:     user,
		Internal: plan.InternalUser(user.Username()),
		Teams:    teams,
		Roles:    roles,
	}, nil
}
