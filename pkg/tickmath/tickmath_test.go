package tickmath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clmmcore/engine/pkg/fixedpoint"
)

func TestTickToSqrtPriceAtZeroIsOne(t *testing.T) {
	p, err := TickToSqrtPrice(0)
	require.NoError(t, err)
	require.True(t, p.Equal(fixedpoint.One), "sqrt price at tick 0 must be exactly 1, got %s", p)
}

func TestTickToSqrtPriceRejectsOutOfRange(t *testing.T) {
	_, err := TickToSqrtPrice(MaxTick + 1)
	require.Error(t, err)

	_, err = TickToSqrtPrice(MinTick - 1)
	require.Error(t, err)
}

func TestTickToSqrtPriceIsMonotonicallyIncreasing(t *testing.T) {
	ticks := []int32{MinTick, -100000, -1, 0, 1, 100000, MaxTick}
	var prev fixedpoint.FixedPoint
	for i, tick := range ticks {
		p, err := TickToSqrtPrice(tick)
		require.NoError(t, err)
		if i > 0 {
			require.True(t, p.GT(prev), "tick %d's sqrt price %s must exceed the previous tick's %s", tick, p, prev)
		}
		prev = p
	}
}

func TestSqrtPriceToTickInvertsTickToSqrtPrice(t *testing.T) {
	for _, tick := range []int32{MinTick, -50000, -1, 0, 1, 50000, MaxTick} {
		p, err := TickToSqrtPrice(tick)
		require.NoError(t, err)

		got, err := SqrtPriceToTick(p)
		require.NoError(t, err)
		require.Equal(t, tick, got)
	}
}

func TestSqrtPriceToTickFloorsBetweenTicks(t *testing.T) {
	lowPrice, err := TickToSqrtPrice(10)
	require.NoError(t, err)
	highPrice, err := TickToSqrtPrice(11)
	require.NoError(t, err)

	mid := lowPrice.Add(highPrice).Div(fixedpoint.FromInt64(2))
	got, err := SqrtPriceToTick(mid)
	require.NoError(t, err)
	require.Equal(t, int32(10), got, "a price strictly between two ticks' prices must floor to the lower tick")
}

func TestSqrtPriceToTickRejectsOutOfRange(t *testing.T) {
	_, err := SqrtPriceToTick(MaxSqrtPrice.Add(fixedpoint.One))
	require.Error(t, err)

	_, err = SqrtPriceToTick(fixedpoint.Zero)
	require.Error(t, err)
}
