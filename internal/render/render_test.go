package render

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atframework/genconf/internal/config"
	"github.com/atframework/genconf/internal/env"
)

func TestMerge_LaterSetsWin(t *testing.T) {
	base := Vars{"a": 1, "b": 2}
	out := Merge(base, Vars{"b": 3}, nil, Vars{"c": 4})

	assert.Equal(t, Vars{"a": 1, "b": 3, "c": 4}, out)
	assert.Equal(t, 2, base["b"], "base must not be modified")
}

func TestRenderString_Helpers(t *testing.T) {
	store, err := config.Parse([]byte("[atsystem]\nhost = 10.0.0.1\n"))
	require.NoError(t, err)
	r := NewTextRenderer(store, env.Vars{"REGION": "eu"})

	tmpl := `{{ option "atsystem" "host" "127.0.0.1" }} {{ option "atsystem" "missing" "dflt" }} ` +
		`{{ envOr "REGION" "us" }} {{ envOr "NOPE" "us" }} {{ slug "Game Svr_1" }} ` +
		`{{ default .empty "x" }} {{ busID .id }} {{ hex 255 }} {{ ternary .flag "on" "off" }}`
	out, err := r.RenderString("inline", tmpl, Vars{"empty": " ", "id": uint32(0x01020304), "flag": true})
	require.NoError(t, err)

	assert.Equal(t, "10.0.0.1 dflt eu us game-svr-1 x 1.2.3.4 0xff on", string(out))
}

func TestRenderString_ServerID(t *testing.T) {
	r := NewTextRenderer(nil, nil)

	out, err := r.RenderString("id", `{{ serverID 10 "192.168.1.90" 10002 }}`, nil)
	require.NoError(t, err)
	assert.Equal(t, "3026577576830738", string(out))

	_, err = r.RenderString("id", `{{ serverID 10 "not-an-ip" 1 }}`, nil)
	require.Error(t, err)
}

func TestRenderString_Errors(t *testing.T) {
	r := NewTextRenderer(nil, nil)

	_, err := r.RenderString("broken.conf", "{{ .x ", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.conf")

	_, err = r.RenderString("call.conf", `{{ call .x }}`, Vars{"x": 1})
	require.Error(t, err)
}

func TestRenderFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gamesvr.conf")
	require.NoError(t, os.WriteFile(path, []byte("name={{ .server_name }}\n"), 0o644))

	r := NewTextRenderer(nil, nil)
	out, err := r.RenderFile(path, Vars{"server_name": "gamesvr"})
	require.NoError(t, err)
	assert.Equal(t, "name=gamesvr\n", string(out))

	_, err = r.RenderFile(filepath.Join(dir, "missing.conf"), nil)
	require.Error(t, err)
}

func TestLookup_SearchOrder(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(second, "shared.conf"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(second, "only.conf"), []byte("second"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(first, "shared.conf"), []byte("first"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(first, "dir.conf"), 0o755))

	r := NewTextRenderer(nil, nil, first, second)

	path, ok := r.Lookup("shared.conf")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(first, "shared.conf"), path)

	path, ok = r.Lookup("only.conf")
	require.True(t, ok)
	assert.Equal(t, filepath.Join(second, "only.conf"), path)

	_, ok = r.Lookup("dir.conf")
	assert.False(t, ok, "directories are not templates")

	_, ok = r.Lookup("absent.conf")
	assert.False(t, ok)
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t.conf")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	ok, err := Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Exists(dir)
	require.NoError(t, err)
	assert.False(t, ok)
}
