package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransitionDefDecodesBothShapes(t *testing.T) {
	var cfg StateConfig
	raw := `{"on":{"SUBMIT":"review","CLOSE":{"target":"closed","cond":"$.amount <= 1000"}}}`
	require.NoError(t, json.Unmarshal([]byte(raw), &cfg))

	require.Equal(t, "review", cfg.On["SUBMIT"].Target)
	require.Empty(t, cfg.On["SUBMIT"].Cond)
	require.Equal(t, "closed", cfg.On["CLOSE"].Target)
	require.Equal(t, "$.amount <= 1000", cfg.On["CLOSE"].Cond)

	// unguarded transitions round-trip back to the compact string form
	out, err := json.Marshal(cfg.On["SUBMIT"])
	require.NoError(t, err)
	require.JSONEq(t, `"review"`, string(out))
}
