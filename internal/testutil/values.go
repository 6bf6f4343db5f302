package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// RequireInt asserts that v is a known number equal to want.
func RequireInt(t *testing.T, want int64, v cty.Value) {
	t.Helper()
	require.True(t, v.IsKnown() && !v.IsNull(), "expected a number, got %#v", v)
	require.Equal(t, cty.Number, v.Type())
	got, _ := v.AsBigFloat().Int64()
	require.Equal(t, want, got)
}
