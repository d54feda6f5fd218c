package signing

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/minichain/minichain/hash"
)

var (
	ErrSigningFailed   = errors.New("couldn't sign")
	ErrInvalidIdentity = errors.New("identity is not a valid public key encoding")
)

// PublicIdentity is the canonical exported encoding of a public key:
// a PEM-encoded SubjectPublicKeyInfo block. It serves as the account
// address and as a registry map key throughout the ledger.
type PublicIdentity string

// Keypair holds a P-256 private scalar and its public point.
// The private key never leaves the struct; only signatures and the
// public encoding are handed out.
type Keypair struct {
	private *ecdsa.PrivateKey
}

// GenerateKeypair creates a fresh keypair over NIST P-256 using a
// cryptographically secure random source.
func GenerateKeypair() (*Keypair, error) {
	private, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generating P-256 key: %w", err)
	}
	return &Keypair{private: private}, nil
}

// PublicKey returns the public point of the keypair.
func (kp *Keypair) PublicKey() *ecdsa.PublicKey {
	return &kp.private.PublicKey
}

// Identity returns the keypair's public identity.
func (kp *Keypair) Identity() PublicIdentity {
	return EncodePublicIdentity(kp.PublicKey())
}

// Sign produces an ASN.1 DER encoded ECDSA signature over SHA-256(payload).
func (kp *Keypair) Sign(payload []byte) ([]byte, error) {
	digest := hash.Sum(payload)
	sig, err := ecdsa.SignASN1(rand.Reader, kp.private, digest[:])
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrSigningFailed, err)
	}
	return sig, nil
}

// Verify reports whether sig is a valid ECDSA signature over
// SHA-256(payload) under pub. Malformed signature bytes and mismatched
// keys are a normal false outcome, never an error.
func Verify(payload, sig []byte, pub *ecdsa.PublicKey) bool {
	if pub == nil || len(sig) == 0 {
		return false
	}
	digest := hash.Sum(payload)
	return ecdsa.VerifyASN1(pub, digest[:], sig)
}

// EncodePublicIdentity exports pub as PEM-encoded SubjectPublicKeyInfo.
// The encoding is stable and injective, so it is safe to compare and to
// key maps with.
func EncodePublicIdentity(pub *ecdsa.PublicKey) PublicIdentity {
	der, err := x509.MarshalPKIXPublicKey(pub)
	if err != nil {
		// A P-256 public point always marshals; reaching this means the
		// key was not produced by GenerateKeypair.
		panic(fmt.Sprintf("marshaling public key: %v", err))
	}
	return PublicIdentity(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

// DecodePublicIdentity parses a public identity back into a public key.
func DecodePublicIdentity(id PublicIdentity) (*ecdsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(id))
	if block == nil || block.Type != "PUBLIC KEY" {
		return nil, ErrInvalidIdentity
	}
	key, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("%w (%v)", ErrInvalidIdentity, err)
	}
	pub, ok := key.(*ecdsa.PublicKey)
	if !ok {
		return nil, ErrInvalidIdentity
	}
	return pub, nil
}
