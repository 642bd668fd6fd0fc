package util

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Expense Approval":        "expense-approval",
		"  leading and trailing ": "leading-and-trailing",
		"Already-Slugged":         "already-slugged",
		"weird$$chars!!here":      "weird-chars-here",
		"Run #2 (retry)":          "run-2-retry",
		"UPPER":                   "upper",
		"---":                     "",
		"":                        "",
	}
	for name, want := range cases {
		require.Equal(t, want, Slugify(name), "slug of %q", name)
	}
}

func TestEventLabel(t *testing.T) {
	require.Equal(t, "Approve Request", EventLabel("approve_request"))
	require.Equal(t, "Approve", EventLabel("APPROVE"))
	require.Equal(t, "Needs More Info", EventLabel("NEEDS_MORE_INFO"))
}

func TestMergeMaps(t *testing.T) {
	out := MergeMaps(map[string]any{"a": 1, "b": 1}, map[string]any{"b": 2})
	require.Equal(t, map[string]any{"a": 1, "b": 2}, out)
	require.Equal(t, map[string]any{}, MergeMaps(nil, nil))
}
