// Package tickmath provides the bidirectional mapping between signed
// integer tick indices and sqrtPrice values, plus the
// MIN_TICK/MAX_TICK bounds and their corresponding sqrt-price bounds.
//
// TickToSqrtPrice walks a per-bit lookup-table-and-right-shift structure
// at Q128, kept in cosmossdk.io/math.Int so the final rescale into
// fixedpoint.FixedPoint keeps all 18 canonical fractional digits exact.
// The Q128 magic constants come from the Uniswap V3 TickMath table.
package tickmath

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"

	"github.com/clmmcore/engine/pkg/fixedpoint"
)

// MinTick and MaxTick bound every tick index this module will accept,
// kept narrower than Uniswap's canonical ±887272 bound: the exact bound
// is an implementation choice constrained only by "stays representable"
// at an 18-digit canonical scale, which this narrower bound satisfies.
const (
	MinTick int32 = -443636
	MaxTick int32 = 443636
)

// q128Bit holds one entry of the per-bit lookup table: if bit i of the
// absolute tick is set, the running ratio is multiplied (via mulRightShift)
// by this Q128 constant.
type q128Bit struct {
	mask  int32
	value sdkmath.Int
}

func hexInt(s string) sdkmath.Int {
	n, ok := new(big.Int).SetString(s[2:], 16)
	if !ok {
		panic("tickmath: bad hex constant " + s)
	}
	return sdkmath.NewIntFromBigInt(n)
}

var (
	two128     = sdkmath.NewIntFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128))
	maxUint256 = sdkmath.NewIntFromBigInt(new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1)))

	ratioBit0Odd  = hexInt("0xfffcb933bd6fad37aa2d162d1a594001")
	ratioBit0Even = two128

	bitTable = []q128Bit{
		{0x2, hexInt("0xfff97272373d413259a46990580e213a")},
		{0x4, hexInt("0xfff2e50f5f656932ef12357cf3c7fdcc")},
		{0x8, hexInt("0xffe5caca7e10e4e61c3624eaa0941cd0")},
		{0x10, hexInt("0xffcb9843d60f6159c9db58835c926644")},
		{0x20, hexInt("0xff973b41fa98c081472e6896dfb254c0")},
		{0x40, hexInt("0xff2ea16466c96a3843ec78b326b52861")},
		{0x80, hexInt("0xfe5dee046a99a2a811c461f1969c3053")},
		{0x100, hexInt("0xfcbe86c7900a88aedcffc83b479aa3a4")},
		{0x200, hexInt("0xf987a7253ac413176f2b074cf7815e54")},
		{0x400, hexInt("0xf3392b0822b70005940c7a398e4b70f3")},
		{0x800, hexInt("0xe7159475a2c29b7443b29c7fa6e889d9")},
		{0x1000, hexInt("0xd097f3bdfd2022b8845ad8f792aa5825")},
		{0x2000, hexInt("0xa9f746462d870fdf8a65dc1f90e061e5")},
		{0x4000, hexInt("0x70d869a156d2a1b890bb3df62baf32f7")},
		{0x8000, hexInt("0x31be135f97d08fd981231505542fcfa6")},
		{0x10000, hexInt("0x9aa508b5b7a84e1c677de54f3e99bc9")},
		{0x20000, hexInt("0x5d6af8dedb81196699c329225ee604")},
		{0x40000, hexInt("0x2216e584f5fa1ea926041bedfe98")},
	}
)

// mulRightShift computes (val*mulBy) >> 128 at Q128.
func mulRightShift(val, mulBy sdkmath.Int) sdkmath.Int {
	product := val.Mul(mulBy)
	return sdkmath.NewIntFromBigInt(new(big.Int).Rsh(product.BigInt(), 128))
}

// TickToSqrtPrice computes 1.0001^(t/2) as a canonical-scale FixedPoint.
func TickToSqrtPrice(tick int32) (fixedpoint.FixedPoint, error) {
	if tick < MinTick || tick > MaxTick {
		return fixedpoint.Zero, fmt.Errorf("tick %d outside [%d, %d]", tick, MinTick, MaxTick)
	}

	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	var ratio sdkmath.Int
	if absTick&0x1 != 0 {
		ratio = ratioBit0Odd
	} else {
		ratio = ratioBit0Even
	}
	for _, b := range bitTable {
		if absTick&int32(b.mask) != 0 {
			ratio = mulRightShift(ratio, b.value)
		}
	}

	if tick > 0 {
		ratio = maxUint256.Quo(ratio)
	}

	// ratio / 2^128 is the real-valued sqrt price; rescale into decimal at
	// generous intermediate precision before the caller ever calls F18.
	sqrtPrice := decimal.NewFromBigInt(ratio.BigInt(), 0).
		DivRound(decimal.NewFromBigInt(two128.BigInt(), 0), fixedpoint.Scale+16)
	return fixedpoint.FromDecimal(sqrtPrice).F18(), nil
}

// MinSqrtPrice and MaxSqrtPrice are computed once at package init from
// MinTick/MaxTick and cached, since every swap bounds-checks against them.
var (
	MinSqrtPrice fixedpoint.FixedPoint
	MaxSqrtPrice fixedpoint.FixedPoint
)

func init() {
	var err error
	MinSqrtPrice, err = TickToSqrtPrice(MinTick)
	if err != nil {
		panic(err)
	}
	MaxSqrtPrice, err = TickToSqrtPrice(MaxTick)
	if err != nil {
		panic(err)
	}
}

// SqrtPriceToTick computes floor(log_sqrt(1.0001)(p)) by binary search over
// the monotone TickToSqrtPrice mapping. sqrtPrice here is already a
// real-valued decimal rather than an integer Q-format value, so an exact
// monotone binary search is both simpler and exact at the canonical scale
// than a bit-trick log2 approximation would be.
func SqrtPriceToTick(p fixedpoint.FixedPoint) (int32, error) {
	if p.LT(MinSqrtPrice) || p.GT(MaxSqrtPrice) {
		return 0, fmt.Errorf("sqrt price %s outside [%s, %s]", p, MinSqrtPrice, MaxSqrtPrice)
	}

	lo, hi := MinTick, MaxTick
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		sp, err := TickToSqrtPrice(mid)
		if err != nil {
			return 0, err
		}
		if sp.LTE(p) {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo, nil
}
