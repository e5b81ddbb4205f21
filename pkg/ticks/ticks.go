// Package ticks implements the per-tick record store: liquidity-gross,
// liquidity-net, and the two fee-growth-outside accumulators tracked
// relative to the current tick position.
//
// TickData's field shape is a Solana account-layout decode target
// translated to an opaque ledger-object model; the ledger's own wire
// encoding is left to its Store implementation.
package ticks

import (
	"context"
	"fmt"

	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
)

// TickData is the per-pool, per-tick record.
type TickData struct {
	PoolHash          string
	Tick              int32
	LiquidityGross    fixedpoint.FixedPoint
	LiquidityNet      fixedpoint.FixedPoint
	FeeGrowthOutside0 fixedpoint.FixedPoint
	FeeGrowthOutside1 fixedpoint.FixedPoint
	Initialised       bool
}

// Store is the ledger-backed collection of tick records for one pool. It is
// satisfied by an adapter over the external ledger.Store collaborator
// this package never talks to the ledger directly.
type Store interface {
	GetTick(ctx context.Context, poolHash string, tick int32) (*TickData, error)
	PutTick(ctx context.Context, t *TickData) error
}

// FetchOrCreateAndCross loads tick's record, flips its fee-growth-outside
// accumulators relative to the current globals, and returns its
// liquidityNet.
//
// bitmapInitialized must be the bitmap's own bit for this tick, supplied by
// the caller (the swap engine, which already consulted the bitmap to land
// here). A set bit with no backing record is a ledger consistency
// violation and is never recovered from.
//
// persist controls whether the crossed record is written back. A real swap
// passes true; a quote walks the same tick-crossing arithmetic to compute
// its result but must never leave a footprint in the tick store, so it
// passes false.
func FetchOrCreateAndCross(
	ctx context.Context,
	store Store,
	poolHash string,
	tick int32,
	bitmapInitialized bool,
	feeGrowthGlobal0, feeGrowthGlobal1 fixedpoint.FixedPoint,
	persist bool,
) (fixedpoint.FixedPoint, error) {
	record, err := store.GetTick(ctx, poolHash, tick)
	if err != nil {
		if bitmapInitialized {
			return fixedpoint.Zero, dexerrors.NewInconsistent(
				fmt.Sprintf("bitmap marks tick %d initialized but its record is missing", tick), err)
		}
		return fixedpoint.Zero, fmt.Errorf("fetch tick %d: %w", tick, err)
	}

	record.FeeGrowthOutside0 = feeGrowthGlobal0.Sub(record.FeeGrowthOutside0).F18()
	record.FeeGrowthOutside1 = feeGrowthGlobal1.Sub(record.FeeGrowthOutside1).F18()

	if persist {
		if err := store.PutTick(ctx, record); err != nil {
			return fixedpoint.Zero, fmt.Errorf("persist crossed tick %d: %w", tick, err)
		}
	}

	return record.LiquidityNet, nil
}
