package services

import (
	"context"
	"os"
	"time"

	"github.com/go-faster/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

// RoleSnapshot is the on-disk record of a user's direct roles, taken before
// an operation that strips them (such as a business-unit move done outside
// this tool) and replayed afterwards.
type RoleSnapshot struct {
	Username string    `yaml:"username"`
	TakenAt  time.Time `yaml:"taken_at"`
	Roles    []string  `yaml:"roles"`
}

// HoldRolesService snapshots and restores direct role assignments through a
// YAML file, so role sets survive operations the directory performs
// destructively.
type HoldRolesService struct {
	dir     directory.Service
	lookups *LookupService
	roles   *RoleService
	log     *logrus.Entry
}

func NewHoldRolesService(dir directory.Service, lookups *LookupService, roles *RoleService, log *logrus.Entry) *HoldRolesService {
	return &HoldRolesService{dir: dir, lookups: lookups, roles: roles, log: log}
}

// Hold writes the user's current direct roles to path.
func (s *HoldRolesService) Hold(ctx context.Context, username, path string) (RoleSnapshot, error) {
	user, found, err := s.lookups.User(ctx, username)
	if err != nil {
		return RoleSnapshot{}, err
	}
	if !found {
		return RoleSnapshot{}, errors.Wrapf(directory.ErrNotFound, "user %q", username)
	}

	roles, err := s.lookups.UserRoles(ctx, directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName})
	if err != nil {
		return RoleSnapshot{}, err
	}

	snapshot := RoleSnapshot{Username: username, TakenAt: time.Now().UTC()}
	for _, role := range roles {
		snapshot.Roles = append(snapshot.Roles, role.Name)
	}

	raw, err := yaml.Marshal(snapshot)
	if err != nil {
		return RoleSnapshot{}, errors.Wrap(err, "marshal snapshot")
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return RoleSnapshot{}, errors.Wrapf(err, "write snapshot %s", path)
	}
	s.log.WithFields(logrus.Fields{"user": username, "roles": len(snapshot.Roles), "path": path}).Info("roles held")
	return snapshot, nil
}

// Restore replays a snapshot onto the user, resolving role names in the
// user's current business unit.
func (s *HoldRolesService) Restore(ctx context.Context, path string) (RoleChanges, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return RoleChanges{}, errors.Wrapf(err, "read snapshot %s", path)
	}
	var snapshot RoleSnapshot
	if err := yaml.Unmarshal(raw, &snapshot); err != nil {
		return RoleChanges{}, errors.Wrapf(err, "parse snapshot %s", path)
	}

	user, found, err := s.lookups.User(ctx, snapshot.Username)
	if err != nil {
		return RoleChanges{}, err
	}
	if !found {
		return RoleChanges{}, errors.Wrapf(directory.ErrNotFound, "user %q", snapshot.Username)
	}
	userRef := directory.Ref{Kind: directory.KindUser, ID: user.ID, Name: user.FullName}

	changes, err := s.roles.ReconcileUserRoles(ctx, userRef, user.BusinessUnit, snapshot.Roles, false)
	if err != nil {
		return RoleChanges{}, err
	}
	s.log.WithFields(logrus.Fields{
		"user":  snapshot.Username,
		"added": len(changes.Added),
	}).Info("roles restored")
	return changes, nil
}
