package chain

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Validate recomputes every block's hash and checks linkage to its
// predecessor, aggregating every mismatch found. It does not mutate the
// chain. The genesis block's own hash is not re-checked here; its
// integrity is established once, at creation.
func (l *Ledger) Validate() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var result *multierror.Error
	for i := 1; i < len(l.blocks); i++ {
		current, previous := l.blocks[i], l.blocks[i-1]
		if recomputed := current.CalculateHash(); current.Hash != recomputed {
			result = multierror.Append(result, fmt.Errorf(
				"block %d: stored hash %s does not match recomputed %s",
				i, current.Hash, recomputed,
			))
		}
		if current.PreviousHash != previous.Hash {
			result = multierror.Append(result, fmt.Errorf(
				"block %d: previous hash %s does not match block %d hash %s",
				i, current.PreviousHash, i-1, previous.Hash,
			))
		}
	}
	return result.ErrorOrNil()
}

// IsChainValid is the boolean view of Validate.
func (l *Ledger) IsChainValid() bool {
	return l.Validate() == nil
}
