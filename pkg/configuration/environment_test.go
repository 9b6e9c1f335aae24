package configuration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadEnv_FallsBackToGoModRoot(t *testing.T) {
	tmp := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(tmp, "go.mod"), []byte("module example.com/test\n\ngo 1.22\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env.local"), []byte("CRM_PROVISIONER_TEST_ENV_LOAD=ok\n"), 0o644))

	sub := filepath.Join(tmp, "modules", "provision")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	origWd, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(origWd) })
	require.NoError(t, os.Chdir(sub))

	_ = os.Unsetenv("CRM_PROVISIONER_TEST_ENV_LOAD")

	n, err := LoadEnv([]string{".env", ".env.local"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "ok", os.Getenv("CRM_PROVISIONER_TEST_ENV_LOAD"))
}

func TestParseEnvironment(t *testing.T) {
	for _, valid := range []string{"dev", "PRE", " prd "} {
		_, err := ParseEnvironment(valid)
		assert.NoError(t, err, "ParseEnvironment(%q)", valid)
	}
	_, err := ParseEnvironment("staging")
	require.Error(t, err)
}
