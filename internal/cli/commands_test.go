package cli

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFilter(t *testing.T) {
	var all nameFilter
	assert.True(t, all.Allows("anything"))
	assert.Nil(t, parseNameFilter("  "))

	f := parseNameFilter("GameSvr, ,loginsvr")
	assert.True(t, f.Allows("gamesvr"))
	assert.True(t, f.Allows("LOGINSVR"))
	assert.False(t, f.Allows("chatsvr"))
}

func TestRenderCommand(t *testing.T) {
	root, scriptDir := writeWorkspace(t)
	tmpl := filepath.Join(root, "preview.conf")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{ .server_full_name }} {{ .server_bus_id }} {{ .project_install_prefix }}\n"), 0o644))

	stdout, err := runRoot(t, "render", tmpl, "-w", scriptDir, "--service", "gamesvr", "--index", "1")
	require.NoError(t, err)
	assert.Equal(t, "gamesvr-1 1.1.11.1 ../..\n", stdout)

	stdout, err = runRoot(t, "render", tmpl, "-w", scriptDir, "--service", "gamesvr", "--output", "deep/er/x.conf")
	require.NoError(t, err)
	assert.Equal(t, "gamesvr-0 1.1.11.0 ../../..\n", stdout)

	out := filepath.Join(root, "preview", "out.conf")
	_, err = runRoot(t, "render", tmpl, "-w", scriptDir, "--service", "gamesvr", "-o", out)
	require.NoError(t, err)
	assert.Equal(t, "gamesvr-0 1.1.11.0 ../..\n", readFile(t, out))

	assert.NoFileExists(t, filepath.Join(root, "gamesvr", "etc", "preview.conf"))
	assert.NoFileExists(t, filepath.Join(scriptDir, "restart_all.sh"))
}

func TestRenderCommand_TemplateSearch(t *testing.T) {
	root, scriptDir := writeWorkspace(t)

	stdout, err := runRoot(t, "render", "start.sh", "-w", scriptDir, "--service", "gamesvr", "--index", "1")
	require.NoError(t, err, "names resolve against the template directories")
	assert.Equal(t, "start gamesvr-1\n", stdout)

	local := filepath.Join(root, "local.conf")
	require.NoError(t, os.WriteFile(local, []byte("{{ .server_index }}\n"), 0o644))
	chdir(t, root)

	stdout, err = runRoot(t, "render", "local.conf", "-w", scriptDir, "--service", "gamesvr")
	require.NoError(t, err, "unknown names fall back to a literal path")
	assert.Equal(t, "0\n", stdout)
}

func TestRenderCommand_Errors(t *testing.T) {
	root, scriptDir := writeWorkspace(t)
	tmpl := filepath.Join(root, "preview.conf")
	require.NoError(t, os.WriteFile(tmpl, []byte("x\n"), 0o644))

	_, err := runRoot(t, "render", tmpl, "-w", scriptDir, "--service", "nosuchsvr")
	require.Error(t, err)

	_, err = runRoot(t, "render", filepath.Join(root, "absent.conf"), "-w", scriptDir, "--service", "gamesvr")
	require.Error(t, err)

	_, err = runRoot(t, "render", tmpl, "-w", scriptDir)
	require.Error(t, err, "service is required")
}

func TestDoctorCommand(t *testing.T) {
	if _, err := exec.LookPath("bash"); err != nil {
		t.Skip("bash not available")
	}

	t.Run("healthy workspace", func(t *testing.T) {
		_, scriptDir := writeWorkspace(t)
		_, err := runRoot(t, "doctor", "-w", scriptDir)
		require.NoError(t, err)
	})

	t.Run("invalid custom rule", func(t *testing.T) {
		_, scriptDir := writeWorkspace(t)
		rulesFile := filepath.Join(scriptDir, "helper", "custom_template_rules", "gamesvr")
		require.NoError(t, os.MkdirAll(filepath.Dir(rulesFile), 0o755))
		require.NoError(t, os.WriteFile(rulesFile, []byte("# ok\netc:gamesvr.conf=etc/{{ .server_index }}.conf\nbogus\n"), 0o644))

		_, err := runRoot(t, "doctor", "-w", scriptDir)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "1 fatal issue")
	})

	t.Run("invalid global rule", func(t *testing.T) {
		_, scriptDir := writeWorkspace(t)
		rulesFile := filepath.Join(scriptDir, "helper", "custom_global_rules", "fleet")
		require.NoError(t, os.MkdirAll(filepath.Dir(rulesFile), 0o755))
		require.NoError(t, os.WriteFile(rulesFile, []byte("fleet.conf=etc/fleet.conf\nno-separator\n"), 0o644))

		_, err := runRoot(t, "doctor", "-w", scriptDir)
		require.Error(t, err)
	})

	t.Run("missing aggregate header", func(t *testing.T) {
		_, scriptDir := writeWorkspace(t)
		require.NoError(t, os.Remove(filepath.Join(scriptDir, "helper", "template", "script", "stop_all.template.sh")))

		_, err := runRoot(t, "doctor", "-w", scriptDir)
		require.Error(t, err)
	})
}
