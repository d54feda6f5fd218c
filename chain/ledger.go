package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"

	"github.com/minichain/minichain/logging"
	"github.com/minichain/minichain/signing"
)

// Policy controls what happens to a candidate transaction whose sender
// cannot be resolved or whose signature does not verify.
type Policy string

const (
	// PolicyLenient includes failed candidates in the block body but
	// excludes them from fee totals and balance updates.
	PolicyLenient Policy = "lenient"

	// PolicyStrict drops failed candidates from the block entirely.
	PolicyStrict Policy = "strict"
)

// Entries of verified signatures kept per ledger. Verification results are
// keyed by content hash, which covers every signed field, so entries never
// go stale.
const sigCacheSize = 1024

var ErrNoEligibleMiner = errors.New("candidate miner list is empty")

// Account is the wallet registry state kept per public identity.
type Account struct {
	Name    string
	Key     *ecdsa.PublicKey
	Balance float64
}

// Params configures a ledger.
type Params struct {
	Difficulty   uint    // required leading zero hex digits in sealed hashes
	Reward       float64 // amount credited to the miner of each block
	MaxSealNonce uint64  // sealing nonce bound, 0 means unbounded
	Policy       Policy  // defaults to PolicyLenient
}

// DefaultParams returns the parameters used by the demo coordinator.
func DefaultParams() Params {
	return Params{
		Difficulty: 4,
		Reward:     50,
		Policy:     PolicyLenient,
	}
}

// Ledger owns the ordered sequence of sealed blocks and the wallet
// registry. All mutation goes through AddBlock and RegisterWallet, which
// are serialized by a single writer lock; readers observe either none or
// all of an AddBlock's effects.
type Ledger struct {
	mu       sync.Mutex
	params   Params
	blocks   []*Block
	wallets  map[signing.PublicIdentity]*Account
	sigCache *lru.Cache
	rng      *rand.Rand
}

// NewLedger seals the genesis block at the configured difficulty and
// returns a ledger containing it as block 0.
func NewLedger(ctx context.Context, params Params) (*Ledger, error) {
	if params.Policy == "" {
		params.Policy = PolicyLenient
	}
	sigCache, err := lru.New(sigCacheSize)
	if err != nil {
		return nil, err
	}
	l := &Ledger{
		params:   params,
		wallets:  make(map[signing.PublicIdentity]*Account),
		sigCache: sigCache,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	genesis := NewBlock(0, nil, GenesisPreviousHash, params.Difficulty, "")
	if _, err := Seal(ctx, genesis, params.Difficulty, params.MaxSealNonce); err != nil {
		return nil, fmt.Errorf("sealing genesis block: %w", err)
	}
	l.blocks = []*Block{genesis}

	logging.FromContext(ctx).Info("genesis block sealed",
		zap.String("hash", genesis.Hash),
		zap.Uint64("nonce", genesis.Nonce),
	)
	return l, nil
}

// RegisterWallet inserts or overwrites the registry entry for the
// account's key and returns the identity it was registered under.
// Registration is idempotent. The account key must be set.
func (l *Ledger) RegisterWallet(acct *Account) signing.PublicIdentity {
	id := signing.EncodePublicIdentity(acct.Key)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.wallets[id] = acct
	return id
}

// ResolveWallet looks up the account registered under id. Absence is a
// normal outcome, reported through the boolean.
func (l *Ledger) ResolveWallet(id signing.PublicIdentity) (*Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acct, ok := l.wallets[id]
	return acct, ok
}

// Balance returns the balance registered under id.
func (l *Ledger) Balance(id signing.PublicIdentity) (float64, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acct, ok := l.wallets[id]; ok {
		return acct.Balance, true
	}
	return 0, false
}

// Length returns the number of blocks in the chain.
func (l *Ledger) Length() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.blocks)
}

// Tip returns the most recently appended block.
func (l *Ledger) Tip() *Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.blocks[len(l.blocks)-1]
}

// Blocks returns a snapshot of the chain.
func (l *Ledger) Blocks() []*Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Block, len(l.blocks))
	copy(out, l.blocks)
	return out
}

// AddBlock validates the candidate transactions, selects a miner
// uniformly at random, seals a new block at the tip and applies balance
// deltas. Either all of its effects become visible or none: a sealing
// failure (bound exhausted or ctx cancelled) leaves chain and balances
// untouched.
func (l *Ledger) AddBlock(
	ctx context.Context,
	candidates []*Transaction,
	miners []signing.PublicIdentity,
) (*Block, error) {
	if len(miners) == 0 {
		return nil, ErrNoEligibleMiner
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	logger := logging.FromContext(ctx)

	miner := miners[l.rng.Intn(len(miners))]

	// Split candidates into those whose fees and balance deltas apply and,
	// depending on policy, the block body.
	var totalFees float64
	applicable := make([]*Transaction, 0, len(candidates))
	included := make([]*Transaction, 0, len(candidates))
	for _, tx := range candidates {
		if l.validLocked(tx) {
			totalFees += tx.Fee
			applicable = append(applicable, tx)
			included = append(included, tx)
			continue
		}
		logger.Warn("candidate transaction failed validation",
			zap.String("content_hash", tx.ContentHash()),
		)
		if l.params.Policy == PolicyLenient {
			included = append(included, tx)
		}
	}

	tip := l.blocks[len(l.blocks)-1]
	block := NewBlock(uint64(len(l.blocks)), included, tip.Hash, l.params.Difficulty, miner)
	if _, err := Seal(ctx, block, l.params.Difficulty, l.params.MaxSealNonce); err != nil {
		return nil, fmt.Errorf("sealing block %d: %w", block.Index, err)
	}

	l.blocks = append(l.blocks, block)

	if acct, ok := l.wallets[miner]; ok {
		acct.Balance += l.params.Reward + totalFees
	} else {
		logger.Warn("selected miner is not registered, reward burned")
	}

	for _, tx := range applicable {
		sender := l.wallets[tx.Sender] // resolution checked during validation
		sender.Balance -= tx.Amount + tx.Fee
		if recipient, ok := l.wallets[tx.Recipient]; ok {
			recipient.Balance += tx.Amount
		} else {
			logger.Warn("recipient is not registered, amount burned",
				zap.String("content_hash", tx.ContentHash()),
				zap.Float64("amount", tx.Amount),
			)
		}
	}

	logger.Info("block appended",
		zap.Uint64("index", block.Index),
		zap.String("hash", block.Hash),
		zap.Uint64("nonce", block.Nonce),
		zap.Int("transactions", len(block.Transactions)),
		zap.Float64("fees", totalFees),
	)
	return block, nil
}

// validLocked reports whether tx's sender resolves to a registered wallet
// and its signature verifies under that wallet's key. Signature results
// are cached by content hash; resolution is always checked fresh.
func (l *Ledger) validLocked(tx *Transaction) bool {
	acct, ok := l.wallets[tx.Sender]
	if !ok {
		return false
	}
	key := tx.ContentHash()
	if hit, ok := l.sigCache.Get(key); ok {
		return hit.(bool)
	}
	valid := tx.IsValid(acct.Key)
	l.sigCache.Add(key, valid)
	return valid
}
