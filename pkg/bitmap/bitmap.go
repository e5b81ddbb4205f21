// Package bitmap implements the sparse indicator over initialized ticks:
// a mapping from 16-bit word index to 256-bit word, with bit n of word w
// set iff tick w*256+n (scaled by tickSpacing) is initialized.
//
// The scan walks bit positions linearly in the direction of travel
// within one word and reports the word boundary when nothing is found,
// at one-bit-per-tick granularity.
package bitmap

import (
	"math/big"

	"github.com/clmmcore/engine/pkg/fixedpoint"
)

// Bitmap is keyed by word index; a nil or absent entry is treated as an
// all-zero (no initialized ticks) word.
type Bitmap map[int32]*big.Int

// Set marks the tick (which must be a multiple of tickSpacing) initialized
// or cleared.
func (b Bitmap) Set(tick, tickSpacing int32, initialized bool) {
	wordIdx, bitPos := position(compress(tick, tickSpacing))
	word := b[wordIdx]
	if word == nil {
		word = new(big.Int)
		b[wordIdx] = word
	}
	if initialized {
		word.SetBit(word, int(bitPos), 1)
	} else {
		word.SetBit(word, int(bitPos), 0)
	}
}

// IsInitialized reports whether tick's bit is set.
func (b Bitmap) IsInitialized(tick, tickSpacing int32) bool {
	wordIdx, bitPos := position(compress(tick, tickSpacing))
	word := b[wordIdx]
	if word == nil {
		return false
	}
	return word.Bit(int(bitPos)) == 1
}

// compress maps a tick onto its compressed index (tick/tickSpacing), rounding toward
// negative infinity for negative ticks not exactly on a spacing boundary —
// the same convention Uniswap V3's TickBitmap.compress uses, which the
// crossing direction below depends on.
func compress(tick, tickSpacing int32) int32 {
	c := tick / tickSpacing
	if tick < 0 && tick%tickSpacing != 0 {
		c--
	}
	return c
}

func position(compressed int32) (wordIdx int32, bitPos uint) {
	wordIdx = compressed >> 8
	bitPos = uint(uint32(compressed) & 0xff)
	return
}

// NextInitializedTickInSameWord returns the closest initialized tick in
// currentTick's 256-bit word in the direction of travel: zeroForOne scans
// toward lower ticks (inclusive of currentTick's own compressed position),
// otherwise it scans toward higher ticks (starting one past currentTick's
// compressed position). If no initialized bit is found within the word,
// the word boundary tick is returned with initialized=false, bounding the
// work done per swap-engine iteration to O(1) words scanned.
//
// sqrtPrice is accepted for signature symmetry with the rest of the swap
// loop's step helpers but is not needed by the bitmap scan itself; the
// caller (the swap engine) already derives currentTick from sqrtPrice
// before calling in.
func NextInitializedTickInSameWord(
	bm Bitmap,
	currentTick, tickSpacing int32,
	zeroForOne bool,
	_ fixedpoint.FixedPoint,
) (nextTick int32, initialized bool) {
	compressed := compress(currentTick, tickSpacing)

	if zeroForOne {
		wordIdx, bitPos := position(compressed)
		word := bm[wordIdx]
		for i := int(bitPos); i >= 0; i-- {
			if word != nil && word.Bit(i) == 1 {
				return (compressed - int32(int(bitPos)-i)) * tickSpacing, true
			}
		}
		return (compressed - int32(bitPos)) * tickSpacing, false
	}

	compressed++
	wordIdx, bitPos := position(compressed)
	word := bm[wordIdx]
	for i := int(bitPos); i <= 255; i++ {
		if word != nil && word.Bit(i) == 1 {
			return (compressed + int32(i-int(bitPos))) * tickSpacing, true
		}
	}
	return (compressed + int32(255-int(bitPos))) * tickSpacing, false
}
