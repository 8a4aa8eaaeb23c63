package adapter

import "context"

// TokenIssuer mints signed auth tokens for a user. Minting is a
// non-transactional network/crypto call: a failure must never be treated as
// "token exists", and the pairing protocol compensates explicitly when a mint
// fails mid-sequence.
type TokenIssuer interface {
	Mint(ctx context.Context, userID string, claims map[string]any) (string, error)
}
