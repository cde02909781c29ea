package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalIsDeterministic(t *testing.T) {
	a := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	b := map[string]int{"mid": 3, "alpha": 2, "zeta": 1}

	first, err := Marshal(a)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := Marshal(b)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestUnmarshalRejectsUnknownFields(t *testing.T) {
	type wide struct {
		A int
		B int
	}
	type narrow struct {
		A int
	}

	data, err := Marshal(wide{A: 1, B: 2})
	require.NoError(t, err)

	var got narrow
	err = Unmarshal(data, &got)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "codec: decode")

	var full wide
	require.NoError(t, Unmarshal(data, &full))
	assert.Equal(t, wide{A: 1, B: 2}, full)
}
