package codec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pair struct {
	A uint32 `cbor:"1,keyasint"`
	B string `cbor:"2,keyasint,omitempty"`
}

func TestMarshalIsDeterministic(t *testing.T) {
	first, err := Marshal(map[string]uint32{"b": 2, "a": 1, "c": 3})
	require.NoError(t, err)

	for range 10 {
		again, err := Marshal(map[string]uint32{"c": 3, "a": 1, "b": 2})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}

	b, err := Marshal(pair{A: 7, B: "x"})
	require.NoError(t, err)

	var got pair
	require.NoError(t, Unmarshal(b, &got))
	assert.Equal(t, pair{A: 7, B: "x"}, got)
}

func TestUnmarshalLimits(t *testing.T) {
	t.Run("NestedTooDeep", func(t *testing.T) {
		// maxNestedLevels+1 single-element arrays around a zero.
		data := append(bytes.Repeat([]byte{0x81}, maxNestedLevels+1), 0x00)
		var v any
		assert.Error(t, Unmarshal(data, &v))
	})

	t.Run("NestedWithinLimit", func(t *testing.T) {
		data := append(bytes.Repeat([]byte{0x81}, maxNestedLevels-1), 0x00)
		var v any
		assert.NoError(t, Unmarshal(data, &v))
	})

	t.Run("DuplicateMapKey", func(t *testing.T) {
		// {1: 1, 1: 2}
		var got pair
		assert.Error(t, Unmarshal([]byte{0xa2, 0x01, 0x01, 0x01, 0x02}, &got))
	})
}
