package compose

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"deadticker/internal/render"
)

func TestReplyWithPercent(t *testing.T) {
	up, down, flat := 12.345, -87.0, 0.0
	require.Equal(t, "$WIF — +12.3% today. Press F.", Reply("$WIF", &up))
	require.Equal(t, "$WIF — -87.0% today. Press F.", Reply("$WIF", &down))
	require.Equal(t, "$WIF — 0.0% today. Press F.", Reply("$WIF", &flat))
}

func TestReplyFallsBackToEpitaph(t *testing.T) {
	got := Reply("$WIF", nil)
	epi := render.PickEpitaph("$WIF")
	require.Equal(t, "$WIF — "+strings.TrimSuffix(epi, ".")+".", got)
	require.False(t, strings.HasSuffix(got, ".."))
}

func TestInstructionDeterministic(t *testing.T) {
	// "1" hashes to 49, "12" to 1569.
	require.Equal(t, Instructions[1], Instruction("1"))
	require.Equal(t, Instructions[0], Instruction("12"))
	require.Equal(t, Instruction("1890123"), Instruction("1890123"))
}
