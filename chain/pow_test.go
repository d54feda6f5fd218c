package chain_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minichain/minichain/chain"
)

func TestSealFindsWinningNonce(t *testing.T) {
	r := require.New(t)

	block := chain.NewBlock(1, nil, "prevhash", 2, "")
	digest, err := chain.Seal(context.Background(), block, 2, 0)
	r.NoError(err)

	r.True(strings.HasPrefix(digest, "00"))
	r.Equal(digest, block.Hash)
	r.True(block.Sealed())
	// The winning state is reproducible.
	r.Equal(digest, block.CalculateHash())
}

func TestSealZeroDifficulty(t *testing.T) {
	r := require.New(t)

	block := chain.NewBlock(1, nil, "prevhash", 0, "")
	digest, err := chain.Seal(context.Background(), block, 0, 0)
	r.NoError(err)
	r.Equal(digest, block.Hash)
	r.Zero(block.Nonce)
}

func TestSealNonceExhausted(t *testing.T) {
	r := require.New(t)

	block := chain.NewBlock(1, nil, "prevhash", 6, "")
	_, err := chain.Seal(context.Background(), block, 6, 4)
	r.ErrorIs(err, chain.ErrNonceExhausted)

	// The block is restored to its unsealed state.
	r.Empty(block.Hash)
	r.Zero(block.Nonce)
	r.False(block.Sealed())
}

func TestSealCancelled(t *testing.T) {
	r := require.New(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	block := chain.NewBlock(1, nil, "prevhash", 6, "")
	_, err := chain.Seal(ctx, block, 6, 0)
	r.ErrorIs(err, context.Canceled)
	r.False(block.Sealed())
}
