package hash

import (
	"encoding/hex"

	"github.com/minio/sha256-simd"
)

// Sum returns the SHA-256 digest of data.
func Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// SumHex returns the lowercase hex encoding of the SHA-256 digest of data.
func SumHex(data []byte) string {
	digest := sha256.Sum256(data)
	return hex.EncodeToString(digest[:])
}
