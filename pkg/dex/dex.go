// Package dex wires the swap engine, the position-paging reader, and the
// pool's own mutators behind the three callable operations this module
// exposes: swap, configurePoolDexFee, and getUserPositions. Every operation
// calls the fee gate before doing anything else, the same "authorize then
// act" order a transaction's signature check keeps ahead of its RPC work.
package dex

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
	"github.com/clmmcore/engine/pkg/ledger"
	"github.com/clmmcore/engine/pkg/pool"
	"github.com/clmmcore/engine/pkg/position"
	"github.com/clmmcore/engine/pkg/swap"
	"github.com/clmmcore/engine/pkg/ticks"
)

// Engine is the single entry point a caller (an RPC handler, a chaincode
// invoke dispatcher, a CLI) talks to.
type Engine struct {
	Pools   pool.Store
	Ticks   ticks.Store
	Ledger  ledger.Store
	FeeGate ledger.FeeGate

	swap     *swap.Engine
	position *position.Reader
}

// NewEngine constructs an Engine. limiter may be nil to disable the
// position reader's rate limiting.
func NewEngine(pools pool.Store, tickStore ticks.Store, store ledger.Store, feeGate ledger.FeeGate, limiter *rate.Limiter) *Engine {
	return &Engine{
		Pools:    pools,
		Ticks:    tickStore,
		Ledger:   store,
		FeeGate:  feeGate,
		swap:     swap.NewEngine(pools, tickStore, feeGate),
		position: position.NewReader(store, limiter),
	}
}

// Swap executes req against its pool.
func (e *Engine) Swap(ctx context.Context, req swap.Request) (*swap.Result, error) {
	return e.swap.Swap(ctx, req)
}

// Quote prices req without touching the ledger.
func (e *Engine) Quote(ctx context.Context, req swap.Request) (*swap.Result, error) {
	return e.swap.Quote(ctx, req)
}

// ConfigurePoolDexFee sets a pool's protocol-fee fraction.
func (e *Engine) ConfigurePoolDexFee(ctx context.Context, poolHash string, fee fixedpoint.FixedPoint) error {
	// There is no dedicated fee code for reconfiguring an existing pool;
	// this reuses FeeCodeCreatePool as the closest pool-administration gate
	// (see DESIGN.md for why no new code is introduced here).
	if e.FeeGate != nil {
		if err := e.FeeGate(ctx, ledger.FeeCodeCreatePool); err != nil {
			return dexerrors.NewUnauthorized("configurePoolDexFee rejected by fee gate", err)
		}
	}

	p, err := e.Pools.GetPool(ctx, poolHash)
	if err != nil {
		return fmt.Errorf("load pool %s: %w", poolHash, err)
	}

	if err := p.ConfigureProtocolFee(fee); err != nil {
		return err
	}

	if err := e.Pools.PutPool(ctx, p); err != nil {
		return fmt.Errorf("persist pool %s: %w", poolHash, err)
	}
	return nil
}

// GetUserPositions pages through owner's positions.
func (e *Engine) GetUserPositions(ctx context.Context, req position.Request) (*position.Page, error) {
	// There is no dedicated fee code for a read-only position listing;
	// this reuses FeeCodeCollectPositionFees as the closest position-scoped
	// gate (see DESIGN.md for why no new code is introduced here).
	if e.FeeGate != nil {
		if err := e.FeeGate(ctx, ledger.FeeCodeCollectPositionFees); err != nil {
			return nil, dexerrors.NewUnauthorized("getUserPositions rejected by fee gate", err)
		}
	}
	return e.position.GetUserPositions(ctx, req)
}
