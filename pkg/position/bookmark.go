// Package position implements the position-paging protocol: listing a
// user's DEX positions across the ledger's own paginated range scan, which
// returns pages in chunks the caller cannot size directly, behind a
// caller-facing cursor the caller can size exactly.
package position

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/clmmcore/engine/pkg/dexerrors"
)

// Bookmark is the caller-facing paging cursor: a chain-level bookmark (the
// underlying ledger range scan's own opaque cursor) and a local bookmark
// (how many records at the start of that scan's next page have already
// been returned to a previous caller and must be skipped again).
//
// Its string form is "<chainBookmark>|<localBookmark>". An empty
// Bookmark's string form is the empty string, which both requests the
// first page and marks the end of the last one.
type Bookmark struct {
	Chain string
	Local int
}

// String renders b in its wire form. The zero Bookmark renders as "".
func (b Bookmark) String() string {
	if b.Chain == "" && b.Local == 0 {
		return ""
	}
	return fmt.Sprintf("%s|%d", b.Chain, b.Local)
}

// ParseBookmark parses a bookmark produced by String, or the empty string
// for a first page. Any other malformed input is an InvalidBookmark
// failure.
func ParseBookmark(s string) (Bookmark, error) {
	if s == "" {
		return Bookmark{}, nil
	}

	chain, localStr, ok := strings.Cut(s, "|")
	if !ok {
		return Bookmark{}, dexerrors.NewValidation("malformed bookmark", dexerrors.ErrInvalidBookmark)
	}

	local, err := strconv.Atoi(localStr)
	if err != nil || local < 0 {
		return Bookmark{}, dexerrors.NewValidation("malformed bookmark", dexerrors.ErrInvalidBookmark)
	}

	return Bookmark{Chain: chain, Local: local}, nil
}
