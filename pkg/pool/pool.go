// Package pool implements the pool entity: price, tick and active liquidity,
// fee tier, protocol fee, global fee-growth accumulators, the tick bitmap,
// and the deterministic pool-hash identifier. The pool record holds no
// token reserve balances.
//
// Field shape is a Solana account-layout decode target (Liquidity,
// SqrtPriceX64, TickCurrent, FeeGrowthGlobal0X64/1X64,
// ProtocolFeesToken0/1, TickSpacing) translated to an opaque
// ledger-object model at canonical scale-18 decimal instead of Q64
// fixed-point integers.
package pool

import (
	"crypto/sha256"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/clmmcore/engine/pkg/bitmap"
	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
)

// Pool is the persisted pool record.
type Pool struct {
	PoolHash    string
	Token0      string
	Token1      string
	FeeTier     fixedpoint.FixedPoint
	TickSpacing int32

	SqrtPrice fixedpoint.FixedPoint
	Tick      int32
	Liquidity fixedpoint.FixedPoint

	FeeGrowthGlobal0 fixedpoint.FixedPoint
	FeeGrowthGlobal1 fixedpoint.FixedPoint

	ProtocolFees       fixedpoint.FixedPoint
	ProtocolFeesToken0 fixedpoint.FixedPoint
	ProtocolFeesToken1 fixedpoint.FixedPoint

	Bitmap bitmap.Bitmap
}

// feeTierSpacing mirrors Uniswap V3's fixed fee-tier → tick-spacing table,
// giving every pool a tickSpacing derived from its feeTier rather than set
// independently.
var feeTierSpacing = map[string]int32{
	"0.0001": 1,
	"0.0005": 10,
	"0.003":  60,
	"0.01":   200,
}

// TickSpacingForFeeTier resolves the fee tier's tick spacing.
func TickSpacingForFeeTier(feeTier fixedpoint.FixedPoint) (int32, error) {
	spacing, ok := feeTierSpacing[feeTier.String()]
	if !ok {
		return 0, dexerrors.NewValidation(fmt.Sprintf("unsupported fee tier %s", feeTier), nil)
	}
	return spacing, nil
}

// GenPoolHash deterministically derives the pool's identifier from
// (token0, token1, feeTier) by hashing the triple and base58-encoding
// the digest.
func GenPoolHash(token0, token1 string, feeTier fixedpoint.FixedPoint) string {
	preimage := fmt.Sprintf("%s:%s:%s", token0, token1, feeTier.String())
	digest := sha256.Sum256([]byte(preimage))
	return base58.Encode(digest[:])
}

// ConfigureProtocolFee validates the pool's protocol-fee fraction and sets
// it on p. It does not write p to a store; dex.ConfigurePoolDexFee does.
func (p *Pool) ConfigureProtocolFee(f fixedpoint.FixedPoint) error {
	if f.IsNegative() || f.GT(fixedpoint.One) {
		return dexerrors.NewValidation(fmt.Sprintf("protocol fee %s outside [0, 1]", f), nil)
	}
	p.ProtocolFees = f
	return nil
}
