package assert

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLength(t *testing.T) {
	require.NotPanics(t, func() { Length("abcd", 4) })
	require.PanicsWithValue(t, "assert.Length expected 3 actual 4", func() { Length("abcd", 3) })
}
