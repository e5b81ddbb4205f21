package position

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/clmmcore/engine/pkg/dexerrors"
	"github.com/clmmcore/engine/pkg/fixedpoint"
	"github.com/clmmcore/engine/pkg/ledger"
)

// ownerIndexKey names the composite-key index a user's DexPositionOwner
// records are filed under: one record per pool the user holds a position
// in, each record listing that pool's positions by tick range.
const ownerIndexKey = "DexPositionOwner"

// positionIndexKey names the composite-key index individual position
// records are filed under, addressed by (poolHash, tickRange, positionId).
const positionIndexKey = "DexPosition"

// TickRangeEntry is one tick-range key's ordered sequence of position
// identifiers within a DexPositionOwner record.
type TickRangeEntry struct {
	TickRange   string
	PositionIDs []string
}

// DexPositionOwner indexes one owner's positions in one pool: a
// "tickLower:tickUpper" tick-range key mapped to the ordered sequence of
// position identifiers minted in that range. A user with positions across
// several pools has one DexPositionOwner record per pool.
type DexPositionOwner struct {
	PoolHash     string
	OwnerID      string
	TickRangeMap []TickRangeEntry
}

// Position is one concentrated-liquidity position record.
type Position struct {
	PositionID string
	PoolHash   string
	Owner      string

	TickLower int32
	TickUpper int32
	Liquidity fixedpoint.FixedPoint

	FeeGrowthInside0Last fixedpoint.FixedPoint
	FeeGrowthInside1Last fixedpoint.FixedPoint
	TokensOwed0          fixedpoint.FixedPoint
	TokensOwed1          fixedpoint.FixedPoint
}

// Request is one page request.
type Request struct {
	Owner    string
	PageSize int32
	Bookmark string
}

// Page is one page of positions plus the bookmark that continues it.
type Page struct {
	Positions []*Position
	Bookmark  string
	IsLast    bool
}

// Reader answers GetUserPositions requests against the ledger's own
// paginated range scan.
type Reader struct {
	Store   ledger.Store
	Limiter *rate.Limiter
}

// NewReader constructs a Reader. limiter may be nil to disable rate
// limiting entirely (e.g. in tests).
func NewReader(store ledger.Store, limiter *rate.Limiter) *Reader {
	return &Reader{Store: store, Limiter: limiter}
}

// positionRef is one flattened (poolHash, tickRange, positionId) triplet,
// pointing at a position record still to be fetched.
type positionRef struct {
	PoolHash   string
	TickRange  string
	PositionID string
}

// flattenOwnerPage flattens a page of DexPositionOwner records into an
// ordered list of position references, preserving insertion order of each
// record's TickRangeMap and the identifier order within each entry.
func flattenOwnerPage(raw [][]byte) ([]positionRef, error) {
	var refs []positionRef
	for _, b := range raw {
		var owner DexPositionOwner
		if err := json.Unmarshal(b, &owner); err != nil {
			return nil, fmt.Errorf("decode owner record: %w", err)
		}
		for _, entry := range owner.TickRangeMap {
			for _, id := range entry.PositionIDs {
				refs = append(refs, positionRef{PoolHash: owner.PoolHash, TickRange: entry.TickRange, PositionID: id})
			}
		}
	}
	return refs, nil
}

// fetchPosition resolves ref's position record from the ledger.
func (r *Reader) fetchPosition(ctx context.Context, ref positionRef) (*Position, error) {
	key, err := r.Store.CreateCompositeKey(positionIndexKey, []string{ref.PoolHash, ref.TickRange, ref.PositionID})
	if err != nil {
		return nil, fmt.Errorf("build position key: %w", err)
	}
	var p Position
	if err := r.Store.GetObjectByKey(ctx, key, &p); err != nil {
		return nil, fmt.Errorf("fetch position %s: %w", ref.PositionID, err)
	}
	return &p, nil
}

// GetUserPositions walks the underlying owner-record pages, flattens each
// into an ordered list of position references, skips references already
// delivered by a previous call's bookmark, and fetches each remaining
// position's data in order until exactly req.PageSize records have been
// collected or the underlying scan is exhausted.
//
// The rate limiter wraps each underlying fetch (both the owner-page scan
// and each individual position fetch) rather than each returned record,
// throttling every outbound call the same way regardless of how much data
// any one call returns.
//
// A bookmark is rejected as invalid only when its local offset skips past
// the owner's last position. The chain part of a bookmark is not itself
// validated; it is handed to the ledger scan unchanged.
func (r *Reader) GetUserPositions(ctx context.Context, req Request) (*Page, error) {
	if req.PageSize <= 0 {
		return nil, dexerrors.NewValidation("pageSize must be positive", nil)
	}

	cursor, err := ParseBookmark(req.Bookmark)
	if err != nil {
		return nil, err
	}

	chainBookmark := cursor.Chain
	toSkip := cursor.Local

	results := make([]*Position, 0, req.PageSize)

	for {
		if r.Limiter != nil {
			if err := r.Limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		chainPage, err := r.Store.GetObjectsByPartialCompositeKeyWithPagination(
			ctx, ownerIndexKey, []string{req.Owner}, req.PageSize, chainBookmark)
		if err != nil {
			return nil, fmt.Errorf("fetch owner page: %w", err)
		}

		refs, err := flattenOwnerPage(chainPage.Results)
		if err != nil {
			return nil, err
		}

		// An empty (or fully-skipped) flattened list is not terminal on its
		// own: the backing page can be legitimately empty in the middle of
		// a page chain. Only the absence of a next cursor ends the scan.
		if toSkip >= len(refs) {
			toSkip -= len(refs)
			if chainPage.Bookmark == "" {
				if toSkip > 0 {
					return nil, dexerrors.NewValidation("bookmark skips past the end of the owner's positions", dexerrors.ErrInvalidBookmark)
				}
				return &Page{Positions: results, Bookmark: "", IsLast: true}, nil
			}
			chainBookmark = chainPage.Bookmark
			continue
		}

		for i := toSkip; i < len(refs); i++ {
			if r.Limiter != nil {
				if err := r.Limiter.Wait(ctx); err != nil {
					return nil, err
				}
			}

			p, err := r.fetchPosition(ctx, refs[i])
			if err != nil {
				return nil, err
			}
			results = append(results, p)

			if int32(len(results)) == req.PageSize {
				local := i + 1
				if local < len(refs) {
					return &Page{
						Positions: results,
						Bookmark:  Bookmark{Chain: chainBookmark, Local: local}.String(),
						IsLast:    false,
					}, nil
				}
				return &Page{
					Positions: results,
					Bookmark:  Bookmark{Chain: chainPage.Bookmark}.String(),
					IsLast:    chainPage.Bookmark == "",
				}, nil
			}
		}

		toSkip = 0
		chainBookmark = chainPage.Bookmark
		if chainBookmark == "" {
			return &Page{Positions: results, Bookmark: "", IsLast: true}, nil
		}
	}
}
