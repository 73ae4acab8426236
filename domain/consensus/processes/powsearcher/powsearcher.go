// Package powsearcher implements the reference proof-of-work search loop:
// a plain incrementing-nonce SHA-256 grind, cancellable mid-search.
// Grounded on the corpus's cpuminer-style solo search loop, collapsed to
// a single goroutine since the mining supervisor already serializes
// searches one at a time.
package powsearcher

import (
	"context"
	"time"

	"github.com/ArchainTeam/archain/domain/consensus/model/externalapi"
	"github.com/ArchainTeam/archain/domain/crypto"
)

// searcher is the reference model.PowSearcher: it grinds nonces counting
// up from zero on every search.
type searcher struct {
	rateLimit time.Duration
}

// New returns a PowSearcher that grinds nonces on the calling goroutine.
// rateLimit, if non-zero, is slept between hash attempts; zero runs at
// full speed. A non-zero rateLimit is useful for simulated or low-power
// nodes that shouldn't peg a CPU core just to keep the network honest.
func New(rateLimit time.Duration) *searcher {
	return &searcher{rateLimit: rateLimit}
}

// Search grinds an 8-byte counter nonce against (indepHash, recallHash)
// until it satisfies diff or ctx is cancelled.
func (s *searcher) Search(ctx context.Context, indepHash, recallHash externalapi.DomainHash, diff uint64) (nonce []byte, timestamp int64, found bool) {
	var counter uint64
	for {
		select {
		case <-ctx.Done():
			return nil, 0, false
		default:
		}

		candidate := crypto.NonceFromUint64(counter)
		if crypto.CheckPoW(indepHash, recallHash, candidate, diff) {
			return candidate, time.Now().UnixMilli(), true
		}
		counter++

		if s.rateLimit > 0 {
			select {
			case <-ctx.Done():
				return nil, 0, false
			case <-time.After(s.rateLimit):
			}
		}
	}
}
