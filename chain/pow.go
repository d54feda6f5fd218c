package chain

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sealAttempts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minichain_seal_attempts",
		Help: "Number of hashes computed while sealing blocks",
	})
	sealedBlocks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "minichain_sealed_blocks",
		Help: "Number of successfully sealed blocks",
	})
	sealDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "minichain_seal_duration_seconds",
		Help:    "Wall time spent finding a winning nonce",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	})
)

// ErrNonceExhausted is returned by Seal when no nonce within the
// configured bound satisfies the difficulty.
var ErrNonceExhausted = errors.New("nonce space exhausted before difficulty was met")

// Seal searches for a nonce such that the block's hash starts with
// difficulty leading '0' hex characters, starting from nonce 0. On
// success the block is left at the winning nonce with its hash set and
// the winning hash is returned.
//
// The search is bounded by maxNonce (0 means unbounded) and cancellable
// through ctx; on either failure the block is restored to its unsealed
// state and no other mutation is visible.
func Seal(ctx context.Context, b *Block, difficulty uint, maxNonce uint64) (string, error) {
	prefix := strings.Repeat("0", int(difficulty))
	started := time.Now()

	for nonce := uint64(0); ; nonce++ {
		select {
		case <-ctx.Done():
			b.Nonce, b.Hash = 0, ""
			return "", ctx.Err()
		default:
		}
		if maxNonce > 0 && nonce > maxNonce {
			b.Nonce, b.Hash = 0, ""
			return "", ErrNonceExhausted
		}

		b.Nonce = nonce
		digest := b.CalculateHash()
		sealAttempts.Inc()

		if strings.HasPrefix(digest, prefix) {
			b.Hash = digest
			sealedBlocks.Inc()
			sealDuration.Observe(time.Since(started).Seconds())
			return digest, nil
		}
	}
}
