package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

const contractorTeam = "Equipo contrata 0-ES-ZGZ-01 Contrata 12345678"

type membershipFixture struct {
	dir      *fakeDirectory
	lookups  *services.LookupService
	user     directory.Ref
	umbrella directory.Ref
	target   directory.Ref
}

func newMembershipFixture(t *testing.T) *membershipFixture {
	t.Helper()
	dir := newFakeDirectory()
	user := dir.seed(directory.KindUser, directory.Attributes{
		directory.AttrName:       "GARCIA, ANA",
		directory.AttrFullName:   "GARCIA, ANA",
		directory.AttrDomainName: "x123456@example.com",
		directory.AttrDisabled:   false,
	})
	umbrella := dir.seed(directory.KindTeam, directory.Attributes{
		directory.AttrName: "Equipo contrata 0-ES-ZGZ-01 Contrata",
	})
	target := dir.seed(directory.KindTeam, directory.Attributes{
		directory.AttrName: contractorTeam,
	})
	return &membershipFixture{
		dir:      dir,
		lookups:  services.NewLookupService(dir),
		user:     user,
		umbrella: umbrella,
		target:   target,
	}
}

func (f *membershipFixture) service(policy services.GatePolicy) *services.MembershipService {
	return services.NewMembershipService(f.dir, f.lookups, policy, services.UmbrellaByTruncation, testLog())
}

func TestUmbrellaName(t *testing.T) {
	t.Parallel()

	svc := services.NewMembershipService(nil, nil, services.RequireUmbrella, services.UmbrellaByTruncation, testLog())
	assert.Equal(t, "Equipo contrata 0-ES-ZGZ-01 Contrata", svc.UmbrellaName(contractorTeam))

	// Planner-group variants share the park umbrella under the site-code
	// strategy but keep their own under truncation.
	variant := "Equipo contrata 0-ES-ZGZ-01 ZP2 Contrata 12345678"
	assert.Equal(t, "Equipo contrata 0-ES-ZGZ-01 ZP2 Contrata", svc.UmbrellaName(variant))

	byPark := services.NewMembershipService(nil, nil, services.RequireUmbrella, services.UmbrellaBySiteCode, testLog())
	assert.Equal(t, "Equipo contrata 0-ES-ZGZ-01 Contrata", byPark.UmbrellaName(variant))
}

func TestAssignUser(t *testing.T) {
	t.Parallel()

	t.Run("gate blocks users outside the umbrella team", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.GateNotSatisfied, res.Status)
		assert.Equal(t, "Equipo contrata 0-ES-ZGZ-01 Contrata", res.Umbrella)
		assert.Zero(t, f.dir.associates)
	})

	t.Run("gated user passes once enrolled in umbrella", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)
		f.dir.link(directory.RelTeamMembership, f.umbrella, f.user)

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.MemberAdded, res.Status)
	})

	t.Run("auto enrollment joins umbrella then target", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)

		res, err := f.service(services.AutoEnrollUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.MemberAdded, res.Status)
		assert.Equal(t, 2, f.dir.associates)

		member, err := f.lookups.IsTeamMember(context.Background(), f.umbrella, f.user)
		require.NoError(t, err)
		assert.True(t, member)
	})

	t.Run("repeat assignment reports already member", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)
		f.dir.link(directory.RelTeamMembership, f.umbrella, f.user)
		f.dir.link(directory.RelTeamMembership, f.target, f.user)

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.AlreadyMember, res.Status)
		assert.Zero(t, f.dir.associates)
	})

	t.Run("unknown user is terminal, not an error", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "nobody", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.UserNotFound, res.Status)
	})

	t.Run("disabled user is terminal", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)
		require.NoError(t, f.dir.Update(context.Background(), directory.KindUser, f.user.ID,
			directory.Attributes{directory.AttrDisabled: true}))

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.UserDisabled, res.Status)
	})

	t.Run("missing umbrella team is terminal", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)
		require.NoError(t, f.dir.Delete(context.Background(), directory.KindTeam, f.umbrella.ID))

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.UmbrellaTeamNotFound, res.Status)
	})

	t.Run("missing target team after passing the gate", func(t *testing.T) {
		t.Parallel()
		f := newMembershipFixture(t)
		f.dir.link(directory.RelTeamMembership, f.umbrella, f.user)
		require.NoError(t, f.dir.Delete(context.Background(), directory.KindTeam, f.target.ID))

		res, err := f.service(services.RequireUmbrella).AssignUser(context.Background(), "x123456", contractorTeam)
		require.NoError(t, err)
		assert.Equal(t, services.TargetTeamNotFound, res.Status)
	})
}
