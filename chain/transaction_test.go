package chain_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minichain/minichain/chain"
	"github.com/minichain/minichain/signing"
)

func newKeypair(t *testing.T) *signing.Keypair {
	t.Helper()
	kp, err := signing.GenerateKeypair()
	require.NoError(t, err)
	return kp
}

func TestNewTransaction(t *testing.T) {
	r := require.New(t)

	alice := newKeypair(t)
	bob := newKeypair(t)

	tx, err := chain.NewTransaction(alice, bob.Identity(), 10)
	r.NoError(err)
	r.Equal(alice.Identity(), tx.Sender)
	r.Equal(bob.Identity(), tx.Recipient)
	r.InDelta(0.05, tx.Fee, 1e-12)
	r.NotEmpty(tx.Signature)

	r.True(tx.IsValid(alice.PublicKey()))
	r.False(tx.IsValid(bob.PublicKey()))
	r.False(tx.IsValid(nil))
}

func TestNewTransactionRejectsInvalidShapes(t *testing.T) {
	r := require.New(t)

	alice := newKeypair(t)
	bob := newKeypair(t)

	_, err := chain.NewTransaction(alice, bob.Identity(), 0)
	r.ErrorIs(err, chain.ErrInvalidAmount)

	_, err = chain.NewTransaction(alice, bob.Identity(), -5)
	r.ErrorIs(err, chain.ErrInvalidAmount)

	_, err = chain.NewTransaction(alice, alice.Identity(), 10)
	r.ErrorIs(err, chain.ErrSelfTransfer)
}

func TestFee(t *testing.T) {
	r := require.New(t)

	r.InDelta(0.05, chain.Fee(10), 1e-12)
	r.InDelta(0.5, chain.Fee(100), 1e-12)
	// Rounded to 8 fractional digits.
	r.InDelta(0.00000001, chain.Fee(0.000002), 1e-15)
	r.Zero(chain.Fee(0.0000001))
}

func TestTamperedTransactionFailsVerification(t *testing.T) {
	r := require.New(t)

	alice := newKeypair(t)
	bob := newKeypair(t)
	charlie := newKeypair(t)

	tx, err := chain.NewTransaction(alice, bob.Identity(), 10)
	r.NoError(err)
	r.True(tx.IsValid(alice.PublicKey()))

	amount := *tx
	amount.Amount = 11
	r.False(amount.IsValid(alice.PublicKey()))

	fee := *tx
	fee.Fee = 0
	r.False(fee.IsValid(alice.PublicKey()))

	recipient := *tx
	recipient.Recipient = charlie.Identity()
	r.False(recipient.IsValid(alice.PublicKey()))

	timestamp := *tx
	timestamp.Timestamp++
	r.False(timestamp.IsValid(alice.PublicKey()))
}

func TestContentHash(t *testing.T) {
	r := require.New(t)

	alice := newKeypair(t)
	bob := newKeypair(t)

	tx, err := chain.NewTransaction(alice, bob.Identity(), 10)
	r.NoError(err)

	r.Equal(tx.ContentHash(), tx.ContentHash())
	r.Len(tx.ContentHash(), 64)

	tampered := *tx
	tampered.Amount = 11
	r.NotEqual(tx.ContentHash(), tampered.ContentHash())
}
