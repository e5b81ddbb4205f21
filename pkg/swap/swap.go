// Package swap implements the swap engine: the loop that
// repeatedly consults the tick bitmap, the tick-math and swap-math
// primitives, and the tick store to walk a pool's price across as many
// initialized ticks as the caller's amount (or price limit) requires.
//
// The loop shape: resolve the next tick boundary, clamp it to the
// caller's price limit, run one swap step, fold the step's amounts into
// the running totals by sign, cross the tick if the step's price reached
// the boundary, re-derive the current tick otherwise, repeat until the
// amount is exhausted or the price limit is hit.
package swap

import (
	"context"
	"fmt"

	"github.com/clmmcore/engine/pkg/bitmap"
	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
	"github.com/clmmcore/engine/pkg/ledger"
	"github.com/clmmcore/engine/pkg/pool"
	"github.com/clmmcore/engine/pkg/swapmath"
	"github.com/clmmcore/engine/pkg/tickmath"
	"github.com/clmmcore/engine/pkg/ticks"
)

// maxSwapIterations bounds the number of loop iterations a single swap may
// take. Each iteration ends at an initialized tick, at a bitmap word
// boundary, or at the price limit, so the count is already bounded by the
// pool's own tick range; this constant is a defensive
// backstop above any realistic tick distribution, sized for this
// module's MinTick/MaxTick span.
const maxSwapIterations = 4096

// Request is the caller's swap or quote input.
type Request struct {
	Token0         string
	Token1         string
	FeeTier        fixedpoint.FixedPoint
	Amount         fixedpoint.FixedPoint
	ExactInput     bool
	ZeroForOne     bool
	SqrtPriceLimit fixedpoint.FixedPoint
}

// Result is what a completed swap or quote reports back.
type Result struct {
	AmountIn  fixedpoint.FixedPoint
	AmountOut fixedpoint.FixedPoint

	SqrtPriceAfter fixedpoint.FixedPoint
	TickAfter      int32
	LiquidityAfter fixedpoint.FixedPoint

	ProtocolFeeCollected fixedpoint.FixedPoint
}

// State is the swap loop's running state.
type State struct {
	SqrtPrice                fixedpoint.FixedPoint
	Tick                     int32
	Liquidity                fixedpoint.FixedPoint
	AmountSpecifiedRemaining fixedpoint.FixedPoint
	AmountCalculated         fixedpoint.FixedPoint
	FeeGrowthGlobalX         fixedpoint.FixedPoint
	ProtocolFee              fixedpoint.FixedPoint
}

// Engine wires the pool store, the tick store, and the fee-gate
// authorization predicate together, a struct holding its collaborators
// rather than passing them through every call.
type Engine struct {
	Pools   pool.Store
	Ticks   ticks.Store
	FeeGate ledger.FeeGate
}

// NewEngine constructs an Engine from its three collaborators.
func NewEngine(pools pool.Store, tickStore ticks.Store, feeGate ledger.FeeGate) *Engine {
	return &Engine{Pools: pools, Ticks: tickStore, FeeGate: feeGate}
}

// Swap executes req against the pool it names, persisting the pool's and
// any crossed ticks' new state.
func (e *Engine) Swap(ctx context.Context, req Request) (*Result, error) {
	if e.FeeGate != nil {
		if err := e.FeeGate(ctx, ledger.FeeCodeSwap); err != nil {
			return nil, dexerrors.NewUnauthorized("swap rejected by fee gate", err)
		}
	}

	p, err := e.loadPool(ctx, req)
	if err != nil {
		return nil, err
	}

	result, state, err := e.run(ctx, p, req, true)
	if err != nil {
		return nil, err
	}

	applyState(p, req, state)
	if err := e.Pools.PutPool(ctx, p); err != nil {
		return nil, fmt.Errorf("persist pool after swap: %w", err)
	}

	return result, nil
}

// Quote runs the identical loop against a cloned, never-persisted pool
// snapshot and with tick crossings never written back, so a caller can
// price a swap with no ledger side effects whatsoever.
func (e *Engine) Quote(ctx context.Context, req Request) (*Result, error) {
	p, err := e.loadPool(ctx, req)
	if err != nil {
		return nil, err
	}

	result, _, err := e.run(ctx, p.Clone(), req, false)
	return result, err
}

func (e *Engine) loadPool(ctx context.Context, req Request) (*pool.Pool, error) {
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return nil, dexerrors.NewValidation("amount must be positive", nil)
	}

	poolHash := pool.GenPoolHash(req.Token0, req.Token1, req.FeeTier)
	p, err := e.Pools.GetPool(ctx, poolHash)
	if err != nil {
		return nil, fmt.Errorf("load pool %s: %w", poolHash, err)
	}

	if req.ZeroForOne {
		if req.SqrtPriceLimit.GTE(p.SqrtPrice) || req.SqrtPriceLimit.LTE(tickmath.MinSqrtPrice) {
			return nil, dexerrors.NewValidation("sqrtPriceLimit must lie strictly below the current price and above the minimum", nil)
		}
	} else {
		if req.SqrtPriceLimit.LTE(p.SqrtPrice) || req.SqrtPriceLimit.GTE(tickmath.MaxSqrtPrice) {
			return nil, dexerrors.NewValidation("sqrtPriceLimit must lie strictly above the current price and below the maximum", nil)
		}
	}

	return p, nil
}

// run drives the swap loop to completion against p. persist controls only
// whether crossed tick records are written back through e.Ticks; the pool
// itself is never touched here, callers (Swap/Quote) decide separately
// whether to persist p.
func (e *Engine) run(ctx context.Context, p *pool.Pool, req Request, persist bool) (*Result, *State, error) {
	signedAmount := req.Amount
	if !req.ExactInput {
		signedAmount = req.Amount.Neg()
	}

	state := &State{
		SqrtPrice:                p.SqrtPrice,
		Tick:                     p.Tick,
		Liquidity:                p.Liquidity,
		AmountSpecifiedRemaining: signedAmount,
		AmountCalculated:         fixedpoint.Zero,
		FeeGrowthGlobalX:         feeGrowthGlobalForDirection(p, req.ZeroForOne),
		ProtocolFee:              fixedpoint.Zero,
	}

	iterations := 0
	for !state.AmountSpecifiedRemaining.F18().IsZero() && !state.SqrtPrice.Equal(req.SqrtPriceLimit) {
		iterations++
		if iterations > maxSwapIterations {
			return nil, nil, dexerrors.NewInconsistent(
				fmt.Sprintf("swap did not converge within %d loop iterations", maxSwapIterations), nil)
		}

		if err := e.step(ctx, p, req, state, persist); err != nil {
			return nil, nil, err
		}
	}

	result := buildResult(req, state)
	return result, state, nil
}

// step runs exactly one iteration of the loop body: resolve the next tick
// boundary, clamp it to the caller's price limit, run one swap step, fold
// its amounts into state, and cross the boundary tick if price reached it.
func (e *Engine) step(ctx context.Context, p *pool.Pool, req Request, state *State, persist bool) error {
	sqrtPriceStart := state.SqrtPrice

	tickNext, initialised := bitmap.NextInitializedTickInSameWord(p.Bitmap, state.Tick, p.TickSpacing, req.ZeroForOne, state.SqrtPrice)
	if tickNext < tickmath.MinTick || tickNext > tickmath.MaxTick {
		return dexerrors.NewConflict(dexerrors.ErrInsufficientLiquidity.Error(), nil)
	}

	sqrtPriceNext, err := tickmath.TickToSqrtPrice(tickNext)
	if err != nil {
		return fmt.Errorf("resolve sqrt price for tick %d: %w", tickNext, err)
	}

	var target fixedpoint.FixedPoint
	if req.ZeroForOne {
		target = fixedpoint.Max(sqrtPriceNext, req.SqrtPriceLimit)
	} else {
		target = fixedpoint.Min(sqrtPriceNext, req.SqrtPriceLimit)
	}

	stepResult, err := swapmath.ComputeSwapStep(state.SqrtPrice, target, state.Liquidity, state.AmountSpecifiedRemaining, p.FeeTier)
	if err != nil {
		return dexerrors.NewConflict(dexerrors.ErrInsufficientLiquidity.Error(), err)
	}

	state.SqrtPrice = stepResult.SqrtPriceNext

	if req.ExactInput {
		state.AmountSpecifiedRemaining = state.AmountSpecifiedRemaining.Sub(stepResult.AmountIn.Add(stepResult.FeeAmount)).F18()
		state.AmountCalculated = state.AmountCalculated.Sub(stepResult.AmountOut).F18()
	} else {
		state.AmountSpecifiedRemaining = state.AmountSpecifiedRemaining.Add(stepResult.AmountOut).F18()
		state.AmountCalculated = state.AmountCalculated.Add(stepResult.AmountIn.Add(stepResult.FeeAmount)).F18()
	}

	feeAmount := stepResult.FeeAmount
	if p.ProtocolFees.IsPositive() {
		delta := feeAmount.Mul(p.ProtocolFees).F18()
		feeAmount = feeAmount.Sub(delta).F18()
		state.ProtocolFee = state.ProtocolFee.Add(delta).F18()
	}

	if state.Liquidity.IsPositive() {
		state.FeeGrowthGlobalX = state.FeeGrowthGlobalX.Add(feeAmount.Div(state.Liquidity)).F18()
	}

	switch {
	case state.SqrtPrice.Equal(sqrtPriceNext):
		if initialised {
			feeGrowthGlobal0, feeGrowthGlobal1 := crossingFeeGrowthPair(p, state, req.ZeroForOne)
			liquidityNet, err := ticks.FetchOrCreateAndCross(ctx, e.Ticks, p.PoolHash, tickNext, true, feeGrowthGlobal0, feeGrowthGlobal1, persist)
			if err != nil {
				return err
			}
			if req.ZeroForOne {
				liquidityNet = liquidityNet.Neg()
			}
			state.Liquidity = state.Liquidity.Add(liquidityNet).F18()
		}
		if req.ZeroForOne {
			state.Tick = tickNext - 1
		} else {
			state.Tick = tickNext
		}
	case !state.SqrtPrice.Equal(sqrtPriceStart):
		tick, err := tickmath.SqrtPriceToTick(state.SqrtPrice)
		if err != nil {
			return fmt.Errorf("re-derive tick from price %s: %w", state.SqrtPrice, err)
		}
		state.Tick = tick
	}

	return nil
}

// feeGrowthGlobalForDirection picks the fee-growth-global accumulator the
// loop will be updating for this swap's direction.
func feeGrowthGlobalForDirection(p *pool.Pool, zeroForOne bool) fixedpoint.FixedPoint {
	if zeroForOne {
		return p.FeeGrowthGlobal0
	}
	return p.FeeGrowthGlobal1
}

// crossingFeeGrowthPair pairs the in-flight accumulator being updated this
// swap with the pool's still-static other accumulator, the
// (feeGrowthGlobal0, feeGrowthGlobal1) argument pair a tick crossing needs.
func crossingFeeGrowthPair(p *pool.Pool, state *State, zeroForOne bool) (fixedpoint.FixedPoint, fixedpoint.FixedPoint) {
	if zeroForOne {
		return state.FeeGrowthGlobalX, p.FeeGrowthGlobal1
	}
	return p.FeeGrowthGlobal0, state.FeeGrowthGlobalX
}

// applyState writes the loop's final state back onto p; callers persist p
// themselves afterward.
func applyState(p *pool.Pool, req Request, state *State) {
	p.SqrtPrice = state.SqrtPrice
	p.Tick = state.Tick
	p.Liquidity = state.Liquidity

	if req.ZeroForOne {
		p.FeeGrowthGlobal0 = state.FeeGrowthGlobalX
		p.ProtocolFeesToken0 = p.ProtocolFeesToken0.Add(state.ProtocolFee).F18()
	} else {
		p.FeeGrowthGlobal1 = state.FeeGrowthGlobalX
		p.ProtocolFeesToken1 = p.ProtocolFeesToken1.Add(state.ProtocolFee).F18()
	}
}

// buildResult translates the loop's signed running totals back into the
// nonnegative amountIn/amountOut pair the caller asked for, following
// the sign convention for each swap mode.
func buildResult(req Request, state *State) *Result {
	var amountIn, amountOut fixedpoint.FixedPoint
	if req.ExactInput {
		amountIn = req.Amount.Sub(state.AmountSpecifiedRemaining.F18()).F18()
		amountOut = state.AmountCalculated.Neg().F18()
	} else {
		amountOut = req.Amount.Add(state.AmountSpecifiedRemaining.F18()).F18()
		amountIn = state.AmountCalculated.F18()
	}

	return &Result{
		AmountIn:             amountIn,
		AmountOut:            amountOut,
		SqrtPriceAfter:       state.SqrtPrice,
		TickAfter:            state.Tick,
		LiquidityAfter:       state.Liquidity,
		ProtocolFeeCollected: state.ProtocolFee,
	}
}
