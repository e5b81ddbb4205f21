package swap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clmmcore/engine/pkg/bitmap"
	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
	"github.com/clmmcore/engine/pkg/ledger"
	"github.com/clmmcore/engine/pkg/pool"
	"github.com/clmmcore/engine/pkg/tickmath"
	"github.com/clmmcore/engine/pkg/ticks"
)

type memPoolStore struct {
	pools map[string]*pool.Pool
}

func newMemPoolStore(p *pool.Pool) *memPoolStore {
	return &memPoolStore{pools: map[string]*pool.Pool{p.PoolHash: p}}
}

func (s *memPoolStore) GetPool(_ context.Context, poolHash string) (*pool.Pool, error) {
	p, ok := s.pools[poolHash]
	if !ok {
		return nil, dexerrors.NewNotFound("pool not found", nil)
	}
	clone := *p
	return &clone, nil
}

func (s *memPoolStore) PutPool(_ context.Context, p *pool.Pool) error {
	clone := *p
	s.pools[p.PoolHash] = &clone
	return nil
}

type memTickStore struct {
	records map[int32]*ticks.TickData
}

func newMemTickStore() *memTickStore {
	return &memTickStore{records: map[int32]*ticks.TickData{}}
}

func (s *memTickStore) GetTick(_ context.Context, poolHash string, tick int32) (*ticks.TickData, error) {
	t, ok := s.records[tick]
	if !ok {
		return nil, dexerrors.NewNotFound("tick not found", nil)
	}
	clone := *t
	return &clone, nil
}

func (s *memTickStore) PutTick(_ context.Context, t *ticks.TickData) error {
	clone := *t
	s.records[t.Tick] = &clone
	return nil
}

func newTestPool(t *testing.T, tick int32, liquidity fixedpoint.FixedPoint) *pool.Pool {
	sqrtPrice, err := tickmath.TickToSqrtPrice(tick)
	require.NoError(t, err)

	feeTier := fixedpoint.MustFromString("0.003")
	return &pool.Pool{
		PoolHash:    pool.GenPoolHash("USDC", "SOL", feeTier),
		Token0:      "USDC",
		Token1:      "SOL",
		FeeTier:     feeTier,
		TickSpacing: 60,
		SqrtPrice:   sqrtPrice,
		Tick:        tick,
		Liquidity:   liquidity,
		Bitmap:      bitmap.Bitmap{},
	}
}

func allowAll(context.Context, ledger.FeeCode) error { return nil }

func TestSwapExactInputWithinSingleTickRange(t *testing.T) {
	p := newTestPool(t, 0, fixedpoint.FromInt64(1_000_000))
	pools := newMemPoolStore(p)
	e := NewEngine(pools, newMemTickStore(), allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100),
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	result, err := e.Swap(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.AmountIn.Equal(req.Amount), "an exact-input swap must fully consume its input when liquidity never runs out")
	require.True(t, result.AmountOut.IsPositive())
	require.True(t, result.SqrtPriceAfter.LT(p.SqrtPrice), "a zeroForOne swap must move price down")
}

func TestSwapExactOutput(t *testing.T) {
	p := newTestPool(t, 0, fixedpoint.FromInt64(1_000_000))
	pools := newMemPoolStore(p)
	e := NewEngine(pools, newMemTickStore(), allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100),
		ExactInput:     false,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	result, err := e.Swap(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.AmountOut.Equal(req.Amount), "an exact-output swap must deliver exactly the requested output when liquidity never runs out")
	require.True(t, result.AmountIn.IsPositive())
}

func TestQuoteNeverMutatesLedgerState(t *testing.T) {
	p := newTestPool(t, 0, fixedpoint.FromInt64(1_000_000))
	pools := newMemPoolStore(p)
	e := NewEngine(pools, newMemTickStore(), allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100),
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	quoted, err := e.Quote(context.Background(), req)
	require.NoError(t, err)
	require.True(t, quoted.AmountOut.IsPositive())

	stored, err := pools.GetPool(context.Background(), p.PoolHash)
	require.NoError(t, err)
	require.True(t, stored.SqrtPrice.Equal(p.SqrtPrice), "Quote must never write back pool state")
	require.True(t, stored.Tick == p.Tick)
}

func TestSwapCrossesInitializedTickAndUpdatesLiquidity(t *testing.T) {
	p := newTestPool(t, 120, fixedpoint.FromInt64(1_000_000))
	p.Bitmap.Set(60, p.TickSpacing, true)

	pools := newMemPoolStore(p)
	tickStore := newMemTickStore()
	tickStore.records[60] = &ticks.TickData{
		PoolHash:       p.PoolHash,
		Tick:           60,
		LiquidityGross: fixedpoint.FromInt64(500_000),
		LiquidityNet:   fixedpoint.FromInt64(500_000),
		Initialised:    true,
	}

	e := NewEngine(pools, tickStore, allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100000),
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	result, err := e.Swap(context.Background(), req)
	require.NoError(t, err)
	require.True(t, result.TickAfter < 60, "swap must have crossed below tick 60")
	require.True(t, result.LiquidityAfter.LT(fixedpoint.FromInt64(1_000_000)), "crossing a tick with positive liquidityNet downward must reduce active liquidity")
}

func TestSwapFailsWithInsufficientLiquidityWhenNextTickOutOfRange(t *testing.T) {
	tick := tickmath.MinTick + 5
	p := newTestPool(t, tick, fixedpoint.FromInt64(1_000_000))
	p.TickSpacing = 1
	pools := newMemPoolStore(p)
	e := NewEngine(pools, newMemTickStore(), allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100),
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	_, err := e.Swap(context.Background(), req)
	require.Error(t, err)
	require.True(t, dexerrors.Is(err, dexerrors.Conflict))
	require.ErrorContains(t, err, dexerrors.ErrInsufficientLiquidity.Error())

	stored, getErr := pools.GetPool(context.Background(), p.PoolHash)
	require.NoError(t, getErr)
	require.True(t, stored.SqrtPrice.Equal(p.SqrtPrice), "a failed swap must not mutate pool state")
	require.Equal(t, tick, stored.Tick)
}

func TestSwapRejectsInvalidPriceLimit(t *testing.T) {
	p := newTestPool(t, 0, fixedpoint.FromInt64(1_000_000))
	pools := newMemPoolStore(p)
	e := NewEngine(pools, newMemTickStore(), allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100),
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: p.SqrtPrice.Add(fixedpoint.One),
	}

	_, err := e.Swap(context.Background(), req)
	require.Error(t, err)
	require.True(t, dexerrors.Is(err, dexerrors.Validation))
}

func TestSwapFeeGateRejectionIsUnauthorized(t *testing.T) {
	p := newTestPool(t, 0, fixedpoint.FromInt64(1_000_000))
	pools := newMemPoolStore(p)
	denyAll := func(context.Context, ledger.FeeCode) error { return dexerrors.NewUnauthorized("no", nil) }
	e := NewEngine(pools, newMemTickStore(), denyAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.FromInt64(100),
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	_, err := e.Swap(context.Background(), req)
	require.Error(t, err)
	require.True(t, dexerrors.Is(err, dexerrors.Unauthorized))
}

func TestSwapZeroAmountIsValidationFailure(t *testing.T) {
	p := newTestPool(t, 0, fixedpoint.FromInt64(1_000_000))
	pools := newMemPoolStore(p)
	e := NewEngine(pools, newMemTickStore(), allowAll)

	req := Request{
		Token0:         p.Token0,
		Token1:         p.Token1,
		FeeTier:        p.FeeTier,
		Amount:         fixedpoint.Zero,
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: tickmath.MinSqrtPrice.Add(fixedpoint.MustFromString("0.000000000000000001")),
	}

	_, err := e.Swap(context.Background(), req)
	require.Error(t, err)
	require.True(t, dexerrors.Is(err, dexerrors.Validation))
}
