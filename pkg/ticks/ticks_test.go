package ticks

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
)

type memStore struct {
	records map[int32]*TickData
}

func newMemStore() *memStore {
	return &memStore{records: map[int32]*TickData{}}
}

func (m *memStore) GetTick(_ context.Context, poolHash string, tick int32) (*TickData, error) {
	t, ok := m.records[tick]
	if !ok {
		return nil, dexerrors.NewNotFound("tick not found", nil)
	}
	clone := *t
	return &clone, nil
}

func (m *memStore) PutTick(_ context.Context, t *TickData) error {
	clone := *t
	m.records[t.Tick] = &clone
	return nil
}

func TestFetchOrCreateAndCrossFlipsFeeGrowthOutside(t *testing.T) {
	store := newMemStore()
	store.records[60] = &TickData{
		PoolHash:          "pool",
		Tick:              60,
		LiquidityGross:    fixedpoint.FromInt64(100),
		LiquidityNet:      fixedpoint.FromInt64(40),
		FeeGrowthOutside0: fixedpoint.MustFromString("0.1"),
		FeeGrowthOutside1: fixedpoint.MustFromString("0.2"),
		Initialised:       true,
	}

	feeGrowthGlobal0 := fixedpoint.MustFromString("1.0")
	feeGrowthGlobal1 := fixedpoint.MustFromString("2.0")

	liquidityNet, err := FetchOrCreateAndCross(context.Background(), store, "pool", 60, true, feeGrowthGlobal0, feeGrowthGlobal1, true)
	require.NoError(t, err)
	require.True(t, liquidityNet.Equal(fixedpoint.FromInt64(40)))

	updated := store.records[60]
	require.True(t, updated.FeeGrowthOutside0.Equal(fixedpoint.MustFromString("0.9")))
	require.True(t, updated.FeeGrowthOutside1.Equal(fixedpoint.MustFromString("1.8")))
}

func TestFetchOrCreateAndCrossDoesNotPersistWhenToldNotTo(t *testing.T) {
	store := newMemStore()
	store.records[60] = &TickData{
		Tick:              60,
		LiquidityNet:      fixedpoint.FromInt64(40),
		FeeGrowthOutside0: fixedpoint.MustFromString("0.1"),
		FeeGrowthOutside1: fixedpoint.MustFromString("0.2"),
	}

	_, err := FetchOrCreateAndCross(context.Background(), store, "pool", 60, true, fixedpoint.MustFromString("1.0"), fixedpoint.MustFromString("2.0"), false)
	require.NoError(t, err)

	require.True(t, store.records[60].FeeGrowthOutside0.Equal(fixedpoint.MustFromString("0.1")), "a quote must never mutate the persisted record")
}

func TestFetchOrCreateAndCrossMissingRecordWithBitmapSetIsInconsistent(t *testing.T) {
	store := newMemStore()

	_, err := FetchOrCreateAndCross(context.Background(), store, "pool", 60, true, fixedpoint.Zero, fixedpoint.Zero, true)
	require.Error(t, err)
	require.True(t, dexerrors.Is(err, dexerrors.Inconsistent))
}

func TestFetchOrCreateAndCrossMissingRecordWithBitmapClearIsPlainError(t *testing.T) {
	store := newMemStore()

	_, err := FetchOrCreateAndCross(context.Background(), store, "pool", 60, false, fixedpoint.Zero, fixedpoint.Zero, true)
	require.Error(t, err)
	require.False(t, dexerrors.Is(err, dexerrors.Inconsistent))
}
