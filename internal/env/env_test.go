package env

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestMerge(t *testing.T) {
	got := Merge(Vars{"A": "1", "B": "1"}, nil, Vars{"B": "2"})
	assert.Equal(t, Vars{"A": "1", "B": "2"}, got)
	assert.Equal(t, Vars{}, Merge())
}

func TestFromOS(t *testing.T) {
	t.Setenv("GENCONF_ENV_TEST", "a=b")
	assert.Equal(t, "a=b", FromOS()["GENCONF_ENV_TEST"], "only the first '=' separates the name")
	assert.NotContains(t, FromOS(), "")
}

func TestLoadEnvFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "base.env", "REGION=cn\nexport TOKEN=\"abc\"\n")
	writeFile(t, dir, "local.env", "# override\nREGION=us\n")

	got, err := LoadEnvFiles(dir, []string{"base.env", "", "local.env"})
	require.NoError(t, err)
	assert.Equal(t, Vars{"REGION": "us", "TOKEN": "abc"}, got)

	_, err = LoadEnvFiles(dir, []string{"absent.env"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), filepath.Join(dir, "absent.env"), "relative names are taken from the work directory")

	got, err = LoadEnvFiles(t.TempDir(), []string{filepath.Join(dir, "local.env")})
	require.NoError(t, err)
	assert.Equal(t, Vars{"REGION": "us"}, got)
}

func TestLoadVarFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := writeFile(t, dir, "vars.yaml", "region: cn\nshards:\n  - 1\n  - 2\n")
	got, err := LoadVarFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "cn", got["region"])
	assert.Equal(t, []any{1, 2}, got["shards"])

	jsoncPath := writeFile(t, dir, "vars.jsonc", "{\n  // region of the fleet\n  \"region\": \"eu\",\n  \"debug\": true,\n}\n")
	got, err = LoadVarFile(jsoncPath)
	require.NoError(t, err)
	assert.Equal(t, "eu", got["region"])
	assert.Equal(t, true, got["debug"])

	plainPath := writeFile(t, dir, "vars.txt", "# comment\nregion = \"us\"\nowner: ops\n")
	got, err = LoadVarFile(plainPath)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"region": "us", "owner": "ops"}, got)

	badPath := writeFile(t, dir, "bad.json", "{")
	_, err = LoadVarFile(badPath)
	require.Error(t, err)
}

func TestLoadVarFiles(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.yaml", "region: cn\nowner: dev\n")
	b := writeFile(t, dir, "b.json", "{\"region\": \"us\"}")

	got, err := LoadVarFiles("", []string{a, " ", b})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"region": "us", "owner": "dev"}, got)

	got, err = LoadVarFiles(dir, []string{"a.yaml"})
	require.NoError(t, err)
	assert.Equal(t, "cn", got["region"])
}
