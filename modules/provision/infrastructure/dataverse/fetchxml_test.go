package dataverse

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/crm-provisioner/modules/provision/domain/directory"
)

func TestRenderFetchXML(t *testing.T) {
	t.Parallel()

	t.Run("exact name lookup", func(t *testing.T) {
		t.Parallel()
		out, err := RenderFetchXML(directory.KindTeam, directory.ByName("0-ES-ZGZ-01 Contrata"))
		require.NoError(t, err)
		assert.Contains(t, out, `<entity name="team">`)
		assert.Contains(t, out, `<all-attributes`)
		assert.Contains(t, out, `<filter type="and">`)
		assert.Contains(t, out, `operator="eq" value="0-ES-ZGZ-01 Contrata"`)
	})

	t.Run("column selection replaces all-attributes", func(t *testing.T) {
		t.Parallel()
		out, err := RenderFetchXML(directory.KindUser, directory.ByName("x"), "fullname", "domainname")
		require.NoError(t, err)
		assert.NotContains(t, out, "all-attributes")
		assert.Contains(t, out, `<attribute name="fullname">`)
		assert.Contains(t, out, `<attribute name="domainname">`)
	})

	t.Run("like gets wrapped in wildcards", func(t *testing.T) {
		t.Parallel()
		out, err := RenderFetchXML(directory.KindUser, directory.Where(
			directory.Contains("fullname", "AVELLANAL"),
		))
		require.NoError(t, err)
		assert.Contains(t, out, `operator="like" value="%AVELLANAL%"`)
	})

	t.Run("begins-with renders as trailing wildcard like", func(t *testing.T) {
		t.Parallel()
		out, err := RenderFetchXML(directory.KindUser, directory.Where(
			directory.StartsWith("domainname", "e123"),
		))
		require.NoError(t, err)
		assert.Contains(t, out, `operator="like" value="e123%"`)
	})

	t.Run("or filter with in condition", func(t *testing.T) {
		t.Parallel()
		out, err := RenderFetchXML(directory.KindRole, directory.AnyOf(
			directory.OneOf("name", "EDPR_ROL_EUROPA", "EDPR_ROL_GENERAL"),
		))
		require.NoError(t, err)
		assert.Contains(t, out, `<filter type="or">`)
		assert.Contains(t, out, `operator="in"`)
		assert.Contains(t, out, `<value>EDPR_ROL_EUROPA</value>`)
		assert.Contains(t, out, `<value>EDPR_ROL_GENERAL</value>`)
	})

	t.Run("link entity joins a related kind", func(t *testing.T) {
		t.Parallel()
		filter := directory.Where(directory.Contains("atos_nombre", "ZP2")).
			WithLink(directory.Link{
				Kind:   directory.KindPlanningCenter,
				From:   "atos_centrodeplanificacionid",
				To:     "atos_centrodeplanificacionid",
				Filter: directory.Where(directory.Contains("atos_nombre", "ES10")),
			})
		out, err := RenderFetchXML(directory.KindPlannerGroup, filter)
		require.NoError(t, err)
		assert.Contains(t, out, `<link-entity name="atos_centrodeplanificacion"`)
		assert.Contains(t, out, `from="atos_centrodeplanificacionid"`)
		assert.Contains(t, out, `value="%ES10%"`)
	})

	t.Run("empty filter omits the filter element", func(t *testing.T) {
		t.Parallel()
		out, err := RenderFetchXML(directory.KindRole, directory.Filter{})
		require.NoError(t, err)
		assert.NotContains(t, out, "<filter")
	})
}
