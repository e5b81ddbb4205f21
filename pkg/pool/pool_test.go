package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
)

func TestGenPoolHashIsDeterministicAndOrderSensitive(t *testing.T) {
	feeTier := fixedpoint.MustFromString("0.003")

	h1 := GenPoolHash("USDC", "SOL", feeTier)
	h2 := GenPoolHash("USDC", "SOL", feeTier)
	require.Equal(t, h1, h2)

	h3 := GenPoolHash("SOL", "USDC", feeTier)
	require.NotEqual(t, h1, h3, "token order must be part of the hash's identity")
}

func TestTickSpacingForFeeTierKnownTiers(t *testing.T) {
	testcases := []struct {
		feeTier string
		spacing int32
	}{
		{"0.0001", 1},
		{"0.0005", 10},
		{"0.003", 60},
		{"0.01", 200},
	}

	for _, tc := range testcases {
		t.Run(tc.feeTier, func(t *testing.T) {
			spacing, err := TickSpacingForFeeTier(fixedpoint.MustFromString(tc.feeTier))
			require.NoError(t, err)
			require.Equal(t, tc.spacing, spacing)
		})
	}
}

func TestTickSpacingForFeeTierUnsupported(t *testing.T) {
	_, err := TickSpacingForFeeTier(fixedpoint.MustFromString("0.5"))
	require.Error(t, err)
	require.True(t, dexerrors.Is(err, dexerrors.Validation))
}

func TestConfigureProtocolFeeValidatesRange(t *testing.T) {
	p := &Pool{}

	require.NoError(t, p.ConfigureProtocolFee(fixedpoint.MustFromString("0.5")))
	require.True(t, p.ProtocolFees.Equal(fixedpoint.MustFromString("0.5")))

	require.Error(t, p.ConfigureProtocolFee(fixedpoint.MustFromString("-0.1")))
	require.Error(t, p.ConfigureProtocolFee(fixedpoint.MustFromString("1.1")))
}

func TestCloneIsIndependentOfSource(t *testing.T) {
	p := &Pool{PoolHash: "hash", Tick: 10}
	clone := p.Clone()
	clone.Tick = 20

	require.Equal(t, int32(10), p.Tick)
	require.Equal(t, int32(20), clone.Tick)
}
