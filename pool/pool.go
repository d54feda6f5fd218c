// Package pool is the admission-filtered staging area for transactions
// that have not yet been confirmed in a sealed block.
package pool

import (
	"sync"

	"github.com/minichain/minichain/chain"
)

// Pool holds admitted, unconfirmed transactions in admission order.
// It is safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	pending []*chain.Transaction
}

func New() *Pool {
	return &Pool{}
}

// Admit appends tx iff its amount is positive, it is not a self-transfer
// and the claimed sender's balance covers amount plus fee. Signature
// validity is not checked here; it is deferred to ledger confirmation.
// Admit reports whether the transaction was accepted and never errors.
func (p *Pool) Admit(tx *chain.Transaction, sender *chain.Account) bool {
	if tx == nil || sender == nil {
		return false
	}
	if tx.Amount <= 0 || tx.Sender == tx.Recipient {
		return false
	}
	if sender.Balance < tx.Amount+tx.Fee {
		return false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = append(p.pending, tx)
	return true
}

// Pending returns a snapshot of the pool contents without mutating it.
func (p *Pool) Pending() []*chain.Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*chain.Transaction, len(p.pending))
	copy(out, p.pending)
	return out
}

// Len returns the number of pending transactions.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

// Clear empties the pool unconditionally. Anything still pending at
// clear time is discarded, not re-queued; callers that admit faster than
// they mine should prefer Remove.
func (p *Pool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pending = nil
}

// Remove deletes only the entries whose content hash appears in
// confirmed, keeping the rest queued for the next block.
func (p *Pool) Remove(confirmed []string) {
	if len(confirmed) == 0 {
		return
	}
	drop := make(map[string]struct{}, len(confirmed))
	for _, h := range confirmed {
		drop[h] = struct{}{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	kept := p.pending[:0]
	for _, tx := range p.pending {
		if _, ok := drop[tx.ContentHash()]; !ok {
			kept = append(kept, tx)
		}
	}
	p.pending = kept
}
