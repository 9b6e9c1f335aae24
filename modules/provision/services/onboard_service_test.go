package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
	"github.com/iota-uz/crm-provisioner/modules/provision/domain/plan"
	"github.com/iota-uz/crm-provisioner/modules/provision/services"
)

func onboardData() plan.TeamData {
	return plan.TeamData{
		Bu:               "0-ES-ZGZ-01 Contrata 12345678",
		ParentBu:         "0-ES-ZGZ-01",
		StandardTeamName: "Equipo contrata 0-ES-ZGZ-01 Contrata 12345678",
		UmbrellaTeam:     "Equipo contrata 0-ES-ZGZ-01 Contrata",
		SiteCode:         "0-ES-ZGZ-01",
		ContractorCode:   "12345678",
		ContractorName:   "Ebro",
	}
}

func TestOnboard(t *testing.T) {
	t.Parallel()

	newService := func(dir *fakeDirectory) (*services.OnboardService, *services.LookupService) {
		lookups := services.NewLookupService(dir)
		roles := services.NewRoleService(dir, lookups, testLog())
		membership := services.NewMembershipService(dir, lookups,
			services.AutoEnrollUmbrella, services.UmbrellaByTruncation, testLog())
		changeBu := services.NewChangeBuService(dir, lookups, roles, testLog())
		return services.NewOnboardService(dir, lookups, membership, changeBu, testLog()), lookups
	}

	t.Run("assigns park users and moves contractor staff", func(t *testing.T) {
		t.Parallel()
		dir := newFakeDirectory()
		parkBu := dir.seed(directory.KindBusinessUnit, directory.Attributes{
			directory.AttrName: "0-ES-ZGZ-01",
		})
		newBu := dir.seed(directory.KindBusinessUnit, directory.Attributes{
			directory.AttrName: "0-ES-ZGZ-01 Contrata 12345678",
		})
		umbrella := dir.seed(directory.KindTeam, directory.Attributes{
			directory.AttrName: "Equipo contrata 0-ES-ZGZ-01 Contrata",
		})
		target := dir.seed(directory.KindTeam, directory.Attributes{
			directory.AttrName: "Equipo contrata 0-ES-ZGZ-01 Contrata 12345678",
		})
		staff := dir.seed(directory.KindUser, directory.Attributes{
			directory.AttrFullName:        "EBRO, MARIA",
			directory.AttrDomainName:      "x111111@example.com",
			directory.AttrBusinessUnitRef: parkBu,
		})
		other := dir.seed(directory.KindUser, directory.Attributes{
			directory.AttrFullName:        "GARCIA, ANA",
			directory.AttrDomainName:      "x222222@example.com",
			directory.AttrBusinessUnitRef: parkBu,
		})
		dir.seed(directory.KindUser, directory.Attributes{
			directory.AttrFullName:        "BAJA, PEDRO",
			directory.AttrDomainName:      "x333333@example.com",
			directory.AttrBusinessUnitRef: parkBu,
			directory.AttrDisabled:        true,
		})
		// The contractor's employee is already behind the gate; the second
		// user is only hung under the park business unit.
		dir.link(directory.RelTeamMembership, umbrella, staff)

		svc, lookups := newService(dir)
		res, err := svc.Onboard(context.Background(), onboardData())
		require.NoError(t, err)
		require.Len(t, res.Assignments, 3)
		require.Empty(t, res.MoveErrs)

		statuses := map[string]services.MembershipStatus{}
		for _, a := range res.Assignments {
			statuses[a.Username] = a.Status
		}
		assert.Equal(t, services.MemberAdded, statuses["x111111@example.com"])
		assert.Equal(t, services.MemberAdded, statuses["x222222@example.com"])
		assert.Equal(t, services.UserDisabled, statuses["x333333@example.com"])

		inTarget, err := lookups.IsTeamMember(context.Background(), target, staff)
		require.NoError(t, err)
		assert.True(t, inTarget)
		inTarget, err = lookups.IsTeamMember(context.Background(), target, other)
		require.NoError(t, err)
		assert.True(t, inTarget)

		// The contractor's employee moved to the new unit and left the
		// umbrella team; the other user was auto-enrolled and stayed put.
		require.Len(t, res.Moves, 1)
		assert.Equal(t, "x111111@example.com", res.Moves[0].Username)
		moved, ok := dir.get(directory.KindUser, staff.ID)
		require.True(t, ok)
		assert.Equal(t, newBu.ID, moved.Ref(directory.AttrBusinessUnitRef).ID)
		inUmbrella, err := lookups.IsTeamMember(context.Background(), umbrella, staff)
		require.NoError(t, err)
		assert.False(t, inUmbrella)
		inUmbrella, err = lookups.IsTeamMember(context.Background(), umbrella, other)
		require.NoError(t, err)
		assert.True(t, inUmbrella)
	})

	t.Run("requires the umbrella team", func(t *testing.T) {
		t.Parallel()
		dir := newFakeDirectory()
		dir.seed(directory.KindBusinessUnit, directory.Attributes{
			directory.AttrName: "0-ES-ZGZ-01",
		})
		svc, _ := newService(dir)
		_, err := svc.Onboard(context.Background(), onboardData())
		require.ErrorIs(t, err, directory.ErrPrerequisiteNotFound)
	})

	t.Run("requires the park business unit", func(t *testing.T) {
		t.Parallel()
		dir := newFakeDirectory()
		dir.seed(directory.KindTeam, directory.Attributes{
			directory.AttrName: "Equipo contrata 0-ES-ZGZ-01 Contrata",
		})
		svc, _ := newService(dir)
		_, err := svc.Onboard(context.Background(), onboardData())
		require.ErrorIs(t, err, directory.ErrPrerequisiteNotFound)
	})
}
