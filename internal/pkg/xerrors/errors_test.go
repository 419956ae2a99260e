package xerrors

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewOverflowGuardError(t *testing.T) {
	err := NewOverflowGuardError("ladder_reward")
	require.Equal(t, CodeArithmeticOverflow, err.Code)
	require.Equal(t, "ladder_reward", err.Context.Metadata["operation"])
}

func TestNewAnomalyError(t *testing.T) {
	err := NewAnomalyError("acc-1", "gold", int64(42))
	require.Equal(t, CodeAnomalyDetected, err.Code)
	require.Equal(t, "acc-1", err.Context.Metadata["account_id"])
	require.Equal(t, "gold", err.Context.Metadata["resource"])
	require.Equal(t, int64(42), err.Context.Metadata["magnitude"])
}
