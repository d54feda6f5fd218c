package chain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/minichain/minichain/hash"
	"github.com/minichain/minichain/signing"
)

const (
	// GenesisPreviousHash is the previous-hash sentinel of the genesis block.
	GenesisPreviousHash = "0"

	// GenesisMiner is the miner sentinel serialized for the genesis block,
	// which has no miner identity.
	GenesisMiner = "GENESIS_BLOCK"
)

// Block is an ordered container of transactions plus chain-linkage
// metadata. A freshly constructed block is unsealed: Nonce is zero and
// Hash is empty until the sealer finds a winning nonce. Once sealed and
// appended to the ledger it is never mutated again.
type Block struct {
	Index        uint64
	Timestamp    int64
	Transactions []*Transaction
	PreviousHash string
	Nonce        uint64
	Difficulty   uint
	Miner        signing.PublicIdentity // empty for the genesis block
	Hash         string                 // set by the sealer
}

// blockPayload fixes the canonical hashing serialization. Keys are kept
// in lexicographic order; transactions are rendered as their canonical
// payloads.
type blockPayload struct {
	Index        uint64            `json:"index"`
	Miner        string            `json:"miner"`
	Nonce        uint64            `json:"nonce"`
	PreviousHash string            `json:"previous_hash"`
	Timestamp    int64             `json:"timestamp"`
	Transactions []json.RawMessage `json:"transactions"`
}

// NewBlock constructs an unsealed block. An empty miner identity marks
// the genesis block.
func NewBlock(
	index uint64,
	txs []*Transaction,
	previousHash string,
	difficulty uint,
	miner signing.PublicIdentity,
) *Block {
	return &Block{
		Index:        index,
		Timestamp:    time.Now().UnixNano(),
		Transactions: txs,
		PreviousHash: previousHash,
		Difficulty:   difficulty,
		Miner:        miner,
	}
}

// CalculateHash returns the SHA-256 of the block's canonical
// serialization. It is pure: two calls on an unmutated block yield the
// same digest.
func (b *Block) CalculateHash() string {
	payloads := make([]json.RawMessage, len(b.Transactions))
	for i, tx := range b.Transactions {
		payloads[i] = tx.CanonicalPayload()
	}
	miner := GenesisMiner
	if b.Miner != "" {
		miner = string(b.Miner)
	}
	raw, err := json.Marshal(blockPayload{
		Index:        b.Index,
		Miner:        miner,
		Nonce:        b.Nonce,
		PreviousHash: b.PreviousHash,
		Timestamp:    b.Timestamp,
		Transactions: payloads,
	})
	if err != nil {
		panic(fmt.Sprintf("marshaling block payload: %v", err))
	}
	return hash.SumHex(raw)
}

// Sealed reports whether the sealer has set the block's hash.
func (b *Block) Sealed() bool {
	return b.Hash != ""
}
