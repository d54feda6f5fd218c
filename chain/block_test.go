package chain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minichain/minichain/chain"
)

func TestCalculateHashIsPure(t *testing.T) {
	r := require.New(t)

	alice := newKeypair(t)
	bob := newKeypair(t)
	tx, err := chain.NewTransaction(alice, bob.Identity(), 3)
	r.NoError(err)

	block := chain.NewBlock(1, []*chain.Transaction{tx}, "prevhash", 2, alice.Identity())
	r.Equal(block.CalculateHash(), block.CalculateHash())
	r.Len(block.CalculateHash(), 64)
}

func TestCalculateHashCoversEveryField(t *testing.T) {
	r := require.New(t)

	alice := newKeypair(t)
	block := chain.NewBlock(1, nil, "prevhash", 2, alice.Identity())
	base := block.CalculateHash()

	nonce := *block
	nonce.Nonce++
	r.NotEqual(base, nonce.CalculateHash())

	index := *block
	index.Index++
	r.NotEqual(base, index.CalculateHash())

	prev := *block
	prev.PreviousHash = "otherhash"
	r.NotEqual(base, prev.CalculateHash())

	miner := *block
	miner.Miner = ""
	r.NotEqual(base, miner.CalculateHash())
}

func TestNewBlockIsUnsealed(t *testing.T) {
	r := require.New(t)

	block := chain.NewBlock(0, nil, chain.GenesisPreviousHash, 2, "")
	r.Zero(block.Nonce)
	r.Empty(block.Hash)
	r.False(block.Sealed())
}
