package pool_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/minichain/minichain/chain"
	"github.com/minichain/minichain/pool"
	"github.com/minichain/minichain/signing"
)

func newKeypair(t *testing.T) *signing.Keypair {
	t.Helper()
	kp, err := signing.GenerateKeypair()
	require.NoError(t, err)
	return kp
}

func newTransfer(t *testing.T, amount float64) (*chain.Transaction, *chain.Account) {
	t.Helper()
	sender := newKeypair(t)
	recipient := newKeypair(t)
	tx, err := chain.NewTransaction(sender, recipient.Identity(), amount)
	require.NoError(t, err)
	return tx, &chain.Account{Name: "sender", Key: sender.PublicKey(), Balance: 100}
}

func TestAdmit(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx, sender := newTransfer(t, 10)

	r.True(p.Admit(tx, sender))
	r.Equal(1, p.Len())
	r.Equal([]*chain.Transaction{tx}, p.Pending())
}

func TestAdmitRejectsNonPositiveAmount(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	// The transaction constructor refuses negative amounts, so admission
	// is probed with a hand-built record.
	tx := &chain.Transaction{Sender: "a", Recipient: "b", Amount: -5}
	r.False(p.Admit(tx, &chain.Account{Balance: 100}))
	r.Zero(p.Len())
}

func TestAdmitRejectsSelfTransfer(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx := &chain.Transaction{Sender: "a", Recipient: "a", Amount: 5}
	r.False(p.Admit(tx, &chain.Account{Balance: 100}))
	r.Zero(p.Len())
}

func TestAdmitRejectsInsufficientBalance(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx, sender := newTransfer(t, 10)

	sender.Balance = 10 // amount alone is covered, amount+fee is not
	r.False(p.Admit(tx, sender))

	sender.Balance = 10.05
	r.True(p.Admit(tx, sender))
}

func TestAdmitRejectsNilArguments(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx, sender := newTransfer(t, 10)
	r.False(p.Admit(nil, sender))
	r.False(p.Admit(tx, nil))
	r.Zero(p.Len())
}

func TestPendingIsASnapshot(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx, sender := newTransfer(t, 10)
	r.True(p.Admit(tx, sender))

	snapshot := p.Pending()
	snapshot[0] = nil
	r.Equal([]*chain.Transaction{tx}, p.Pending())
}

func TestClear(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx1, sender1 := newTransfer(t, 10)
	tx2, sender2 := newTransfer(t, 20)
	r.True(p.Admit(tx1, sender1))
	r.True(p.Admit(tx2, sender2))
	r.Equal(2, p.Len())

	p.Clear()
	r.Zero(p.Len())
	r.Empty(p.Pending())
}

func TestRemoveKeepsUnconfirmedEntries(t *testing.T) {
	r := require.New(t)

	p := pool.New()
	tx1, sender1 := newTransfer(t, 10)
	tx2, sender2 := newTransfer(t, 20)
	r.True(p.Admit(tx1, sender1))
	r.True(p.Admit(tx2, sender2))

	p.Remove([]string{tx1.ContentHash()})
	r.Equal([]*chain.Transaction{tx2}, p.Pending())

	p.Remove(nil)
	r.Equal(1, p.Len())
}
