package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const storeFixture = `
; fleet settings
[atsystem]
world_id = 1 ; inline comment
zone_id = 2 # another one
shm_key_base = 0x10000000
hash = a#b

[server.gamesvr]
install_prefix = atframe/gamesvr
number = 2
type_id = 11

[server.atgateway]
install_prefix = atframe/atgateway
number = 0

[database]
Host = 127.0.0.1
`

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.conf")
	require.NoError(t, os.WriteFile(path, []byte(storeFixture), 0o644))

	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	assert.Equal(t, []string{"atsystem", "server.gamesvr", "server.atgateway", "database"}, store.Sections())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.conf"))
	require.Error(t, err)

	_, err = Load("  ")
	require.Error(t, err)
}

func TestStore_InlineComments(t *testing.T) {
	store, err := Parse([]byte(storeFixture))
	require.NoError(t, err)

	assert.Equal(t, "1", store.Option(SystemSection, "world_id", ""))
	assert.Equal(t, "2", store.Option(SystemSection, "zone_id", ""))
	assert.Equal(t, "a#b", store.Option(SystemSection, "hash", ""), "comment markers need leading whitespace")
}

func TestParse_KeepsRawValues(t *testing.T) {
	store, err := Parse([]byte("[server.a]\ncmd = \"--flag value\"\npath = C:\\dir\\\nnext = 1\n"))
	require.NoError(t, err)

	assert.Equal(t, `"--flag value"`, store.Option("server.a", "cmd", ""))
	assert.Equal(t, `C:\dir\`, store.Option("server.a", "path", ""), "trailing backslash must not join lines")
	assert.Equal(t, "1", store.Option("server.a", "next", ""))

	store, err = Parse([]byte("[server.a]\nlist = a\n    b\nnumber = 2\n"))
	require.NoError(t, err, "indented lines continue the previous value")

	list := store.Option("server.a", "list", "")
	assert.Contains(t, list, "a")
	assert.Contains(t, list, "b")
	assert.False(t, store.Has("server.a", "b"))
	assert.Equal(t, "2", store.Option("server.a", "number", ""))
}

func TestStore_Lookups(t *testing.T) {
	store, err := Parse([]byte(storeFixture))
	require.NoError(t, err)

	assert.True(t, store.Has("database", "Host"))
	assert.False(t, store.Has("database", "host"), "keys are case-sensitive")
	assert.False(t, store.Has("missing", "Host"))
	assert.False(t, store.HasSection("DEFAULT"))

	assert.Equal(t, int64(0x10000000), store.IntOption(SystemSection, "shm_key_base", 0))
	assert.Equal(t, int64(2), store.IntOption("server.gamesvr", "number", 0))
	assert.Equal(t, int64(5), store.IntOption("server.gamesvr", "absent", 5))
	assert.Equal(t, int64(5), store.IntOption("server.gamesvr", "install_prefix", 5))

	assert.Equal(t, map[string]string{
		"install_prefix": "atframe/gamesvr",
		"number":         "2",
		"type_id":        "11",
	}, store.Items("server.gamesvr"))
	assert.Equal(t, []string{"install_prefix", "number", "type_id"}, store.Keys("server.gamesvr"))
	assert.Empty(t, store.Items("missing"))
}

func TestStore_Services(t *testing.T) {
	store, err := Parse([]byte(storeFixture))
	require.NoError(t, err)
	assert.Equal(t, []string{"gamesvr", "atgateway"}, store.Services())
	assert.Equal(t, "server.gamesvr", ServiceSection("gamesvr"))
}

func TestStore_Set(t *testing.T) {
	store, err := Parse([]byte(storeFixture))
	require.NoError(t, err)

	store.Set("server.gamesvr", "number", "5")
	assert.Equal(t, "5", store.Option("server.gamesvr", "number", ""))

	store.Set("server.gamesvr", "port", "7001")
	assert.Equal(t, []string{"install_prefix", "number", "type_id", "port"}, store.Keys("server.gamesvr"))

	store.Set("server.new", "number", "1")
	assert.Contains(t, store.Services(), "new")
}
