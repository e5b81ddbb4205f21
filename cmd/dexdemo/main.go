// Command dexdemo builds a single pool in memory, quotes and then executes
// a swap against it, and prints the result. It exists to exercise the
// engine end to end, with the ledger and fee-gate collaborators replaced
// by trivial in-memory stand-ins standing in for a real ledger and
// fee-gate implementation.
package main

import (
	"context"
	"log"
	"strconv"
	"sync"

	"github.com/clmmcore/engine/pkg/bitmap"
	"github.com/clmmcore/engine/pkg/dex"
	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
	"github.com/clmmcore/engine/pkg/ledger"
	"github.com/clmmcore/engine/pkg/pool"
	"github.com/clmmcore/engine/pkg/swap"
	"github.com/clmmcore/engine/pkg/tickmath"
	"github.com/clmmcore/engine/pkg/ticks"
)

var (
	token0  = "USDC"
	token1  = "SOL"
	feeTier = fixedpoint.MustFromString("0.003")

	startingTick      = int32(0)
	startingLiquidity = fixedpoint.MustFromString("1000000")

	swapAmount = fixedpoint.MustFromString("1000")
)

func main() {
	ctx := context.Background()

	pools := newMemPoolStore()
	tickStore := newMemTickStore()

	feeGate := func(ctx context.Context, code ledger.FeeCode) error {
		log.Printf("fee gate approved %s", code)
		return nil
	}

	startingSqrtPrice, err := tickmath.TickToSqrtPrice(startingTick)
	if err != nil {
		log.Fatalf("compute starting sqrt price: %v", err)
	}

	p := &pool.Pool{
		PoolHash:    pool.GenPoolHash(token0, token1, feeTier),
		Token0:      token0,
		Token1:      token1,
		FeeTier:     feeTier,
		TickSpacing: 60,
		SqrtPrice:   startingSqrtPrice,
		Tick:        startingTick,
		Liquidity:   startingLiquidity,
		Bitmap:      bitmap.Bitmap{},
	}
	if err := pools.PutPool(ctx, p); err != nil {
		log.Fatalf("seed pool: %v", err)
	}

	engine := dex.NewEngine(pools, tickStore, nil, feeGate, nil)

	quoteReq := swap.Request{
		Token0:         token0,
		Token1:         token1,
		FeeTier:        feeTier,
		Amount:         swapAmount,
		ExactInput:     true,
		ZeroForOne:     true,
		SqrtPriceLimit: fixedpoint.MustFromString("0.000001"),
	}

	quote, err := engine.Quote(ctx, quoteReq)
	if err != nil {
		log.Fatalf("quote swap: %v", err)
	}
	log.Printf("quote: in=%s out=%s sqrtPriceAfter=%s tickAfter=%d",
		quote.AmountIn, quote.AmountOut, quote.SqrtPriceAfter, quote.TickAfter)

	err = ledger.WithRetry(ctx, 3, 0, func(ctx context.Context) error {
		result, err := engine.Swap(ctx, quoteReq)
		if err != nil {
			return err
		}
		log.Printf("swap committed: in=%s out=%s sqrtPriceAfter=%s tickAfter=%d",
			result.AmountIn, result.AmountOut, result.SqrtPriceAfter, result.TickAfter)
		return nil
	})
	if err != nil {
		log.Fatalf("swap: %v", err)
	}
}

type memPoolStore struct {
	mu    sync.Mutex
	pools map[string]*pool.Pool
}

func newMemPoolStore() *memPoolStore {
	return &memPoolStore{pools: map[string]*pool.Pool{}}
}

func (s *memPoolStore) GetPool(_ context.Context, poolHash string) (*pool.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pools[poolHash]
	if !ok {
		return nil, dexerrors.NewNotFound("pool not found", nil)
	}
	clone := *p
	return &clone, nil
}

func (s *memPoolStore) PutPool(_ context.Context, p *pool.Pool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *p
	s.pools[p.PoolHash] = &clone
	return nil
}

type memTickStore struct {
	mu    sync.Mutex
	ticks map[string]*ticks.TickData
}

func newMemTickStore() *memTickStore {
	return &memTickStore{ticks: map[string]*ticks.TickData{}}
}

func (s *memTickStore) GetTick(_ context.Context, poolHash string, tick int32) (*ticks.TickData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := poolHash + ":" + itoa(tick)
	t, ok := s.ticks[key]
	if !ok {
		return &ticks.TickData{PoolHash: poolHash, Tick: tick}, nil
	}
	clone := *t
	return &clone, nil
}

func (s *memTickStore) PutTick(_ context.Context, t *ticks.TickData) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := t.PoolHash + ":" + itoa(t.Tick)
	clone := *t
	s.ticks[key] = &clone
	return nil
}

func itoa(v int32) string {
	return strconv.Itoa(int(v))
}
