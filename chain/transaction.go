package chain

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/minichain/minichain/hash"
	"github.com/minichain/minichain/signing"
)

const (
	// FeeRate is the fraction of the transferred amount charged as a fee.
	FeeRate = 0.005

	// feeDigits is the number of fractional digits a fee is rounded to.
	feeDigits = 8
)

var (
	ErrInvalidAmount = errors.New("transaction amount must be positive")
	ErrSelfTransfer  = errors.New("sender and recipient are the same identity")
)

// Transaction is a signed value transfer. It is created and signed
// atomically by NewTransaction and immutable thereafter; a transaction
// without a valid signature cannot be constructed through the API.
type Transaction struct {
	Sender    signing.PublicIdentity
	Recipient signing.PublicIdentity
	Amount    float64
	Fee       float64
	Timestamp int64
	Signature []byte
}

// txPayload fixes the canonical serialization used for both signing and
// hashing. Keys are kept in lexicographic order; changing the field set,
// ordering or rendering is a protocol-breaking change.
type txPayload struct {
	Amount    float64                `json:"amount"`
	Fee       float64                `json:"fee"`
	Recipient signing.PublicIdentity `json:"recipient"`
	Sender    signing.PublicIdentity `json:"sender"`
	Timestamp int64                  `json:"timestamp"`
}

// NewTransaction builds a transfer of amount from sender to recipient,
// derives the fee and signs the canonical payload with the sender's key.
func NewTransaction(
	sender *signing.Keypair,
	recipient signing.PublicIdentity,
	amount float64,
) (*Transaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	senderID := sender.Identity()
	if senderID == recipient {
		return nil, ErrSelfTransfer
	}

	tx := &Transaction{
		Sender:    senderID,
		Recipient: recipient,
		Amount:    amount,
		Fee:       Fee(amount),
		Timestamp: time.Now().UnixNano(),
	}
	sig, err := sender.Sign(tx.CanonicalPayload())
	if err != nil {
		return nil, fmt.Errorf("signing transaction: %w", err)
	}
	tx.Signature = sig
	return tx, nil
}

// Fee derives the transfer fee for amount, rounded to feeDigits
// fractional digits.
func Fee(amount float64) float64 {
	scale := math.Pow10(feeDigits)
	return math.Round(amount*FeeRate*scale) / scale
}

// CanonicalPayload returns the deterministic serialization of all fields
// except the signature. This exact byte sequence is what gets signed and
// what block hashing consumes.
func (tx *Transaction) CanonicalPayload() []byte {
	raw, err := json.Marshal(txPayload{
		Amount:    tx.Amount,
		Fee:       tx.Fee,
		Recipient: tx.Recipient,
		Sender:    tx.Sender,
		Timestamp: tx.Timestamp,
	})
	if err != nil {
		// The payload contains only scalars and strings.
		panic(fmt.Sprintf("marshaling transaction payload: %v", err))
	}
	return raw
}

// ContentHash returns the SHA-256 of the canonical payload. It identifies
// the transaction for pool bookkeeping and logging; chain linkage does not
// use it directly.
func (tx *Transaction) ContentHash() string {
	return hash.SumHex(tx.CanonicalPayload())
}

// IsValid re-derives the canonical payload and checks the signature
// against claimedSender. The caller resolves the key from the wallet
// registry; a key embedded in the transaction itself is never trusted.
func (tx *Transaction) IsValid(claimedSender *ecdsa.PublicKey) bool {
	return signing.Verify(tx.CanonicalPayload(), tx.Signature, claimedSender)
}
