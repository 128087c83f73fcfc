package instance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/atframework/genconf/internal/config"
)

const fleetFixture = `
[atsystem]
world_id = 1
zone_id = 2

[server.loginsvr]
number = 2
type_id = 10
atgateway_port = 8000

[server.gamesvr]
number = 3
type_id = 11

[server.chatsvr]
number = 1
type_id = 12
atgateway_port = 9000

[server.atgateway]
number = 0
type_id = 20
`

func newFleet(t *testing.T) *config.Store {
	t.Helper()
	store, err := config.Parse([]byte(fleetFixture))
	require.NoError(t, err)
	return store
}

func TestIndices(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2}, Indices(3, 0))
	assert.Equal(t, []int{5, 6, 7}, Indices(3, 5))
	assert.Empty(t, Indices(0, 5))
	assert.Empty(t, Indices(-1, 0))
}

func TestIndices_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		count := rapid.IntRange(0, 64).Draw(t, "count")
		offset := rapid.IntRange(-10, 1000).Draw(t, "offset")
		got := Indices(count, offset)
		assert.Len(t, got, count)
		for i, v := range got {
			assert.Equal(t, offset+i, v)
		}
	})
}

func TestExpander_Expand(t *testing.T) {
	exp := NewExpander(newFleet(t), 1)

	got := exp.Expand("gamesvr")
	require.Len(t, got, 3)
	assert.Equal(t, "gamesvr-1", got[0].FullName())
	assert.Equal(t, "gamesvr-3", got[2].FullName())
	assert.Equal(t, uint32(11), got[2].TypeID)
	assert.Equal(t, uint32(0x01020b03), got[2].ProcID)

	assert.Empty(t, exp.Expand("atgateway"))
	assert.Empty(t, exp.Expand("unknown"))
}

func TestGatewayConsumers(t *testing.T) {
	assert.Equal(t, []string{"loginsvr", "chatsvr"}, GatewayConsumers(newFleet(t), "atgateway"))
	assert.Empty(t, GatewayConsumers(newFleet(t), "othergw"))
}

func TestGatewayIndex(t *testing.T) {
	store := newFleet(t)
	consumers := GatewayConsumers(store, "atgateway")

	idx, err := GatewayIndex(store, consumers, "loginsvr", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	// chatsvr follows the two loginsvr instances.
	idx, err = GatewayIndex(store, consumers, "chatsvr", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	idx, err = GatewayIndex(store, consumers, "chatsvr", 5, 5)
	require.NoError(t, err)
	assert.Equal(t, 7, idx)

	_, err = GatewayIndex(store, consumers, "gamesvr", 0, 0)
	require.Error(t, err)
}

func TestExpander_ExpandGateway(t *testing.T) {
	exp := NewExpander(newFleet(t), 0)

	got, err := exp.ExpandGateway("atgateway")
	require.NoError(t, err)
	require.Len(t, got, 3)

	var indices []int
	for _, gw := range got {
		assert.Equal(t, "atgateway", gw.Service)
		assert.Equal(t, uint32(20), gw.TypeID)
		indices = append(indices, gw.Index)
	}
	assert.Equal(t, []int{0, 1, 2}, indices, "gateway indices are contiguous across consumers")

	assert.Equal(t, "loginsvr-1", got[1].For.FullName())
	assert.Equal(t, 8001, got[1].Port)
	assert.Equal(t, "chatsvr-0", got[2].For.FullName())
	assert.Equal(t, uint32(12), got[2].For.TypeID)
	assert.Equal(t, 9000, got[2].Port)
}
