// Package ledger declares the external collaborators the swap engine and
// its neighbors call out to but never implement: the key-value object
// store with composite keys and paginated range scans, the fee-gate
// authorization predicate, and the balance-mutation interface token
// transfers go through. This package is intentionally interface-only.
package ledger

import "context"

// PageResult is the result of one paginated partial-composite-key scan.
type PageResult struct {
	Results  [][]byte
	Bookmark string
}

// Store is the ledger/state collaborator. Implementations are
// expected to serialize every numeric field as a canonical decimal string
// and tick indices as signed decimal integers.
type Store interface {
	// GetObjectByKey fails NotFound if no object is stored at key.
	GetObjectByKey(ctx context.Context, key string, out interface{}) error
	PutChainObject(ctx context.Context, key string, obj interface{}) error
	GetObjectsByPartialCompositeKeyWithPagination(
		ctx context.Context, indexKey string, partialKey []string, pageSize int32, bookmark string,
	) (PageResult, error)
	CreateCompositeKey(indexKey string, keyParts []string) (string, error)
}

// FeeCode names the operation a fee-gate check is invoked for.
type FeeCode string

const (
	FeeCodeCreatePool          FeeCode = "CreatePool"
	FeeCodeAddLiquidity        FeeCode = "AddLiquidity"
	FeeCodeSwap                FeeCode = "Swap"
	FeeCodeRemoveLiquidity     FeeCode = "RemoveLiquidity"
	FeeCodeCollectPositionFees FeeCode = "CollectPositionFees"
	FeeCodeTransferDexPosition FeeCode = "TransferDexPosition"
)

// FeeGate is the opaque authorization predicate invoked before every
// user-facing operation. A non-nil error rejects the operation; the swap
// engine never inspects the error's cause, it only propagates it.
type FeeGate func(ctx context.Context, feeCode FeeCode) error

// BalanceMutator is the token transfer/mint/burn primitive collaborator.
// Its method shapes follow the same balance-lookup call shape (context,
// addressing args, amount) generalized from Solana token accounts to
// opaque token class keys.
type BalanceMutator interface {
	TransferToken(ctx context.Context, from, to, tokenClassKey string, amount string) error
}
