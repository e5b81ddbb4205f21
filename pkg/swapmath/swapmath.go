// Package swapmath implements the pure swap-step primitive:
// given a current and target sqrt price, the active liquidity, and the
// caller's remaining amount, compute how far price actually moves this
// step and the resulting amountIn/amountOut/feeAmount.
//
// Control flow: provisionally move to target, settle for the target if
// the fee-adjusted input covers it, otherwise solve for the actual next
// price, then recompute amountIn/amountOut against whichever price was
// actually reached, then derive the fee from either the leftover or the
// fee-rate ratio. Every formula here is the un-shifted algebraic form,
// since this module's sqrtPrice is already a real-valued
// fixedpoint.FixedPoint rather than an X64/X128 fixed-point integer.
package swapmath

import (
	"fmt"

	"github.com/clmmcore/engine/pkg/fixedpoint"
)

// amount0Delta returns the token0 amount moved between two sqrt prices at
// constant liquidity: L*(Pb-Pa)/(Pa*Pb).
func amount0Delta(sqrtPriceA, sqrtPriceB, liquidity fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	if sqrtPriceA.GT(sqrtPriceB) {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	numerator := liquidity.Mul(sqrtPriceB.Sub(sqrtPriceA))
	denominator := sqrtPriceA.Mul(sqrtPriceB)
	if denominator.IsZero() {
		return fixedpoint.Zero
	}
	return numerator.Div(denominator).F18()
}

// amount1Delta returns the token1 amount moved between two sqrt prices at
// constant liquidity: L*(Pb-Pa).
func amount1Delta(sqrtPriceA, sqrtPriceB, liquidity fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	if sqrtPriceA.GT(sqrtPriceB) {
		sqrtPriceA, sqrtPriceB = sqrtPriceB, sqrtPriceA
	}
	return liquidity.Mul(sqrtPriceB.Sub(sqrtPriceA)).F18()
}

// nextSqrtPriceFromAmount0 solves for the price reached after moving amount
// of token0 in (add) or out (!add) at constant liquidity. The result is
// rounded up at the canonical scale, so the token0 amount between it and
// sqrtPrice never exceeds amount.
func nextSqrtPriceFromAmount0(sqrtPrice, liquidity, amount fixedpoint.FixedPoint, add bool) fixedpoint.FixedPoint {
	if amount.IsZero() {
		return sqrtPrice
	}
	product := amount.Mul(sqrtPrice)
	var denominator fixedpoint.FixedPoint
	if add {
		denominator = liquidity.Add(product)
	} else {
		denominator = liquidity.Sub(product)
	}
	quotient := liquidity.Mul(sqrtPrice).Div(denominator)
	floor := quotient.F18()
	if quotient.Equal(floor) {
		return floor
	}
	return floor.Add(smallestUnit)
}

// nextSqrtPriceFromAmount1 solves for the price reached after moving amount
// of token1 in (add) or out (!add) at constant liquidity.
func nextSqrtPriceFromAmount1(sqrtPrice, liquidity, amount fixedpoint.FixedPoint, add bool) fixedpoint.FixedPoint {
	quotient := amount.Div(liquidity)
	if add {
		return sqrtPrice.Add(quotient).F18()
	}
	return sqrtPrice.Sub(quotient).F18()
}

// Step is the result of one ComputeSwapStep call.
type Step struct {
	SqrtPriceNext fixedpoint.FixedPoint
	AmountIn      fixedpoint.FixedPoint
	AmountOut     fixedpoint.FixedPoint
	FeeAmount     fixedpoint.FixedPoint
}

// ComputeSwapStep is the pure per-step swap-math function. Direction
// (zeroForOne) is inferred from sqrtPriceTarget relative to
// sqrtPriceCurrent. Fee is computed
// strictly on amountIn, never on amountOut.
func ComputeSwapStep(
	sqrtPriceCurrent, sqrtPriceTarget, liquidity, amountRemaining, feePips fixedpoint.FixedPoint,
) (Step, error) {
	if liquidity.IsZero() {
		return Step{}, fmt.Errorf("swapmath: liquidity must be positive")
	}

	zeroForOne := sqrtPriceCurrent.GTE(sqrtPriceTarget)
	exactInput := amountRemaining.GTE(fixedpoint.Zero)

	one := fixedpoint.One
	var step Step

	// amountToTarget is the full amountIn (exact-input) or amountOut
	// (exact-output) needed to reach sqrtPriceTarget exactly, computed once
	// up front so that when the step does reach the target this exact value
	// is reused below rather than re-derived from a price delta of zero.
	var amountToTarget fixedpoint.FixedPoint

	if exactInput {
		amountRemainingLessFee := amountRemaining.Mul(one.Sub(feePips)).F18()

		if zeroForOne {
			amountToTarget = amount0Delta(sqrtPriceTarget, sqrtPriceCurrent, liquidity)
		} else {
			amountToTarget = amount1Delta(sqrtPriceCurrent, sqrtPriceTarget, liquidity)
		}

		if amountRemainingLessFee.GTE(amountToTarget) {
			step.SqrtPriceNext = sqrtPriceTarget
		} else if zeroForOne {
			step.SqrtPriceNext = nextSqrtPriceFromAmount0(sqrtPriceCurrent, liquidity, amountRemainingLessFee, true)
		} else {
			step.SqrtPriceNext = nextSqrtPriceFromAmount1(sqrtPriceCurrent, liquidity, amountRemainingLessFee, true)
		}
	} else {
		if zeroForOne {
			amountToTarget = amount1Delta(sqrtPriceTarget, sqrtPriceCurrent, liquidity)
		} else {
			amountToTarget = amount0Delta(sqrtPriceCurrent, sqrtPriceTarget, liquidity)
		}

		amountRemainingAbs := amountRemaining.Neg()
		if amountRemainingAbs.GTE(amountToTarget) {
			step.SqrtPriceNext = sqrtPriceTarget
		} else if zeroForOne {
			step.SqrtPriceNext = nextSqrtPriceFromAmount1(sqrtPriceCurrent, liquidity, amountRemainingAbs, false)
		} else {
			step.SqrtPriceNext = nextSqrtPriceFromAmount0(sqrtPriceCurrent, liquidity, amountRemainingAbs, false)
		}
	}

	reachedTarget := step.SqrtPriceNext.Equal(sqrtPriceTarget)

	if zeroForOne {
		if reachedTarget && exactInput {
			step.AmountIn = amountToTarget
		} else {
			step.AmountIn = amount0Delta(step.SqrtPriceNext, sqrtPriceCurrent, liquidity)
		}
		if reachedTarget && !exactInput {
			step.AmountOut = amountToTarget
		} else {
			step.AmountOut = amount1Delta(step.SqrtPriceNext, sqrtPriceCurrent, liquidity)
		}
	} else {
		if reachedTarget && exactInput {
			step.AmountIn = amountToTarget
		} else {
			step.AmountIn = amount1Delta(sqrtPriceCurrent, step.SqrtPriceNext, liquidity)
		}
		if reachedTarget && !exactInput {
			step.AmountOut = amountToTarget
		} else {
			step.AmountOut = amount0Delta(sqrtPriceCurrent, step.SqrtPriceNext, liquidity)
		}
	}

	if !exactInput {
		amountRemainingAbs := amountRemaining.Neg()
		if step.AmountOut.GT(amountRemainingAbs) {
			step.AmountOut = amountRemainingAbs
		}
	}

	if exactInput && !step.SqrtPriceNext.Equal(sqrtPriceTarget) {
		step.FeeAmount = amountRemaining.Sub(step.AmountIn).F18()
	} else {
		step.FeeAmount = mulDivCeil(step.AmountIn, feePips, one.Sub(feePips))
	}

	return step, nil
}

// mulDivCeil computes ceil(a*b/denominator) in the fixed-point domain by
// rounding the division up at the canonical scale rather than truncating.
func mulDivCeil(a, b, denominator fixedpoint.FixedPoint) fixedpoint.FixedPoint {
	if denominator.IsZero() {
		return fixedpoint.Zero
	}
	product := a.Mul(b)
	quotient := product.Div(denominator)
	floor := quotient.F18()
	if quotient.Sub(floor).IsZero() {
		return floor
	}
	return floor.Add(smallestUnit)
}

// smallestUnit is 10^-18, the smallest representable step at canonical
// scale, added to round a non-exact division up rather than down.
var smallestUnit = fixedpoint.MustFromString("0.000000000000000001")
