package services_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
	"github.com/iota-uz/crm-provisioner/pkg/batch"
)

// flowFixture seeds a small directory with two business units, their roles,
// the shared teams and two users, enough to exercise the user flows.
type flowFixture struct {
	dir      *fakeDirectory
	lookups  *services.LookupService
	roles    *services.RoleService
	defaults plan.Defaults

	euBu     directory.Ref
	otherBu  directory.Ref
	internal directory.Ref
	external directory.Ref
}

func newFlowFixture(t *testing.T) *flowFixture {
	t.Helper()
	dir := newFakeDirectory()
	defaults := plan.BuiltinDefaults()

	euBu := dir.seed(directory.KindBusinessUnit, directory.Attributes{
		directory.AttrName: "0-ES-ZGZ-01 Contrata 12345678",
	})
	otherBu := dir.seed(directory.KindBusinessUnit, directory.Attributes{
		directory.AttrName: "0-FR-NOR-02 Contrata 87654321",
	})

	internal := dir.seed(directory.KindUser, directory.Attributes{
		directory.AttrName:            "INTERNO, PEDRO",
		directory.AttrFullName:        "INTERNO, PEDRO",
		directory.AttrDomainName:      "e1234567@example.com",
		directory.AttrBusinessUnitRef: euBu,
	})
	external := dir.seed(directory.KindUser, directory.Attributes{
		directory.AttrName:            "CONTRATA, MARIA",
		directory.AttrFullName:        "CONTRATA, MARIA",
		directory.AttrDomainName:      "x7654321@example.com",
		directory.AttrBusinessUnitRef: euBu,
	})

	for _, name := range defaults.StandardTeamRoles {
		dir.seed(directory.KindRole, directory.Attributes{
			directory.AttrName:            name,
			directory.AttrBusinessUnitRef: euBu,
		})
		dir.seed(directory.KindRole, directory.Attributes{
			directory.AttrName:            name,
			directory.AttrBusinessUnitRef: otherBu,
		})
	}
	for _, name := range defaults.InternalUserRolesEU {
		dir.seed(directory.KindRole, directory.Attributes{
			directory.AttrName:            name,
			directory.AttrBusinessUnitRef: euBu,
		})
	}
	for _, name := range []string{defaults.InternalTeamEU, defaults.ExternalTeamEU, defaults.IberiaTeam, defaults.RescoTeamEU} {
		dir.seed(directory.KindTeam, directory.Attributes{directory.AttrName: name})
	}
	dir.seed(directory.KindRole, directory.Attributes{
		directory.AttrName:            defaults.RescoRole,
		directory.AttrBusinessUnitRef: euBu,
	})

	lookups := services.NewLookupService(dir)
	return &flowFixture{
		dir:      dir,
		lookups:  lookups,
		roles:    services.NewRoleService(dir, lookups, testLog()),
		defaults: defaults,
		euBu:     euBu,
		otherBu:  otherBu,
		internal: internal,
		external: external,
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()

	t.Run("internal EU user gets internal roles and team", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewNormalizeService(f.dir, f.lookups, f.roles, f.defaults, testLog())

		res, err := svc.Normalize(context.Background(), "e1234567", false)
		require.NoError(t, err)
		assert.True(t, res.Internal)
		assert.Equal(t, plan.RegionEU, res.Region)
		assert.True(t, res.RegionUpdated)
		assert.ElementsMatch(t,
			append(append([]string{}, f.defaults.StandardTeamRoles...), f.defaults.InternalUserRolesEU...),
			res.Roles.Added)
		assert.Contains(t, res.TeamsJoined, f.defaults.InternalTeamEU)
		assert.Contains(t, res.TeamsJoined, f.defaults.IberiaTeam)
	})

	t.Run("external user gets the contractor team only", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewNormalizeService(f.dir, f.lookups, f.roles, f.defaults, testLog())

		res, err := svc.Normalize(context.Background(), "x7654321", false)
		require.NoError(t, err)
		assert.False(t, res.Internal)
		assert.ElementsMatch(t, f.defaults.StandardTeamRoles, res.Roles.Added)
		assert.Contains(t, res.TeamsJoined, f.defaults.ExternalTeamEU)
		assert.NotContains(t, res.TeamsJoined, f.defaults.InternalTeamEU)
	})

	t.Run("resco flag adds the inspections team and role", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewNormalizeService(f.dir, f.lookups, f.roles, f.defaults, testLog())

		res, err := svc.Normalize(context.Background(), "x7654321", true)
		require.NoError(t, err)
		assert.Contains(t, res.Roles.Added, f.defaults.RescoRole)
		assert.Contains(t, res.TeamsJoined, f.defaults.RescoTeamEU)
	})

	t.Run("second run is idempotent", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewNormalizeService(f.dir, f.lookups, f.roles, f.defaults, testLog())

		_, err := svc.Normalize(context.Background(), "x7654321", false)
		require.NoError(t, err)
		res, err := svc.Normalize(context.Background(), "x7654321", false)
		require.NoError(t, err)
		assert.False(t, res.RegionUpdated)
		assert.Empty(t, res.Roles.Added)
		assert.Empty(t, res.TeamsJoined)
	})
}

func TestChangeBu(t *testing.T) {
	t.Parallel()

	t.Run("moves the user and restores roles in the new scope", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewChangeBuService(f.dir, f.lookups, f.roles, testLog())

		// Grant a role in the source scope first.
		_, err := f.roles.ReconcileUserRoles(context.Background(), f.external, f.euBu,
			f.defaults.StandardTeamRoles[:1], false)
		require.NoError(t, err)

		res, err := svc.ChangeBu(context.Background(), "x7654321", "0-FR-NOR-02 Contrata 87654321")
		require.NoError(t, err)
		assert.Equal(t, "0-ES-ZGZ-01 Contrata 12345678", res.FromBu)
		assert.Equal(t, "0-FR-NOR-02 Contrata 87654321", res.ToBu)
		assert.Empty(t, res.RestoredRoles.NotFound)

		e, _ := f.dir.get(directory.KindUser, f.external.ID)
		assert.Equal(t, f.otherBu.ID, e.Ref(directory.AttrBusinessUnitRef).ID)
	})

	t.Run("same business unit is a no-op", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewChangeBuService(f.dir, f.lookups, f.roles, testLog())

		_, err := svc.ChangeBu(context.Background(), "x7654321", "0-ES-ZGZ-01 Contrata 12345678")
		require.NoError(t, err)
		assert.Empty(t, f.dir.updates)
	})

	t.Run("unknown destination fails fast", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewChangeBuService(f.dir, f.lookups, f.roles, testLog())

		_, err := svc.ChangeBu(context.Background(), "x7654321", "0-XX-XXX-99")
		require.ErrorIs(t, err, directory.ErrPrerequisiteNotFound)
	})
}

func TestCopyPermissions(t *testing.T) {
	t.Parallel()

	t.Run("copies business unit, teams and roles", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewPermissionService(f.dir, f.lookups, f.roles, testLog())

		team := f.dir.seed(directory.KindTeam, directory.Attributes{directory.AttrName: "Equipo especial"})
		f.dir.link(directory.RelTeamMembership, team, f.internal)
		_, err := f.roles.ReconcileUserRoles(context.Background(), f.internal, f.euBu,
			f.defaults.StandardTeamRoles[:2], false)
		require.NoError(t, err)

		res, err := svc.Copy(context.Background(), "e1234567", "x7654321",
			services.CopyScope{BusinessUnit: true, Teams: true, Roles: true})
		require.NoError(t, err)
		assert.Contains(t, res.TeamsJoined, "Equipo especial")
		assert.ElementsMatch(t, f.defaults.StandardTeamRoles[:2], res.Roles.Added)
	})

	t.Run("empty scope is rejected", func(t *testing.T) {
		t.Parallel()
		f := newFlowFixture(t)
		svc := services.NewPermissionService(f.dir, f.lookups, f.roles, testLog())

		_, err := svc.Copy(context.Background(), "e1234567", "x7654321", services.CopyScope{})
		require.Error(t, err)
	})
}

func TestHoldAndRestoreRoles(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	svc := services.NewHoldRolesService(f.dir, f.lookups, f.roles, testLog())
	path := filepath.Join(t.TempDir(), "roles.yaml")

	_, err := f.roles.ReconcileUserRoles(context.Background(), f.external, f.euBu,
		f.defaults.StandardTeamRoles, false)
	require.NoError(t, err)

	snapshot, err := svc.Hold(context.Background(), "x7654321", path)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.defaults.StandardTeamRoles, snapshot.Roles)

	// Strip the roles, then replay the snapshot.
	_, err = f.roles.ReconcileUserRoles(context.Background(), f.external, f.euBu, nil, true)
	require.NoError(t, err)

	changes, err := svc.Restore(context.Background(), path)
	require.NoError(t, err)
	assert.ElementsMatch(t, f.defaults.StandardTeamRoles, changes.Added)
}

func TestUserInfo(t *testing.T) {
	t.Parallel()

	f := newFlowFixture(t)
	svc := services.NewUserInfoService(f.lookups)

	_, err := f.roles.ReconcileUserRoles(context.Background(), f.internal, f.euBu,
		f.defaults.StandardTeamRoles[:1], false)
	require.NoError(t, err)

	info, err := svc.Describe(context.Background(), "e1234567")
	require.NoError(t, err)
	assert.True(t, info.Internal)
	require.Len(t, info.Roles, 1)
	assert.Equal(t, f.defaults.StandardTeamRoles[0], info.Roles[0].Name)

	_, err = svc.Describe(context.Background(), "missing-user")
	require.ErrorIs(t, err, directory.ErrNotFound)
}

func TestAssignAll(t *testing.T) {
	t.Parallel()

	f := newMembershipFixture(t)
	membership := f.service(services.AutoEnrollUmbrella)

	runner := batch.New[plan.AssignmentRow, services.MembershipResult](testLog())
	runner.RetryDelay, runner.ItemDelay, runner.BatchDelay = 0, 0, 0

	svc := services.NewAssignService(membership, runner, testLog())
	rows := []plan.AssignmentRow{
		{Username: "x123456", Team: contractorTeam},
		{Username: "ghost", Team: contractorTeam},
		{Username: "ghost", Team: "Equipo contrata 0-ES-ZGZ-01 Contrata"},
	}

	outcomes := svc.AssignAll(context.Background(), rows)
	require.Len(t, outcomes, 3)
	assert.Equal(t, services.MemberAdded, outcomes[0].Result.Status)
	assert.Equal(t, services.UserNotFound, outcomes[1].Result.Status)
	// The second ghost row is answered from the terminal-status cache.
	assert.Equal(t, services.UserNotFound, outcomes[2].Result.Status)
	assert.Equal(t, 1, outcomes[2].Attempts)
}
