package uuid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfflinePlayerUUID(t *testing.T) {
	id := OfflinePlayerUUID("bob")
	id2 := OfflinePlayerUUID("bob")
	require.Equal(t, id, id2)

	id2 = OfflinePlayerUUID("Bob")
	require.NotEqual(t, id, id2)
	assert.Equal(t, 3, id.Version())
	assert.Equal(t, byte(0x80), id[8]&0xc0)
}

func TestDerive(t *testing.T) {
	t.Run("username is case insensitive", func(t *testing.T) {
		require.Equal(t, Derive("", "Notch"), Derive("", "notch"))
		require.Equal(t, OfflinePlayerUUID("notch"), Derive("", "Notch"))
	})
	t.Run("stable across calls", func(t *testing.T) {
		// md5("OfflinePlayer:notch") with version and variant bits applied
		require.Equal(t, "42653081-a90e-3475-b3d6-3550cdb43f8e", Derive("", "Notch").String())
	})
	t.Run("explicit uuid wins", func(t *testing.T) {
		explicit := "069a79f4-44e9-4726-a5be-fca90e38aaf5"
		assert.Equal(t, explicit, Derive(explicit, "Notch").String())
	})
	t.Run("malformed explicit uuid falls back", func(t *testing.T) {
		assert.Equal(t, Derive("", "Notch"), Derive("not-a-uuid", "Notch"))
		assert.Equal(t, Derive("", "Notch"), Derive(Nil.String(), "Notch"))
	})
}

func TestFromInts(t *testing.T) {
	id, err := Parse("069a79f4-44e9-4726-a5be-fca90e38aaf5")
	require.NoError(t, err)
	ints := [4]int32{110787060, 1156138790, -1514210135, 238594805}
	assert.Equal(t, id, FromInts(ints))
}

func TestUUID_JSON(t *testing.T) {
	id := OfflinePlayerUUID("bob")
	b, err := id.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"`+id.String()+`"`, string(b))

	var id2 UUID
	err = id2.UnmarshalJSON(b)
	require.NoError(t, err)
	require.Equal(t, id, id2)
}
