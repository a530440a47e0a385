package fixture

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Algorithm names a digest algorithm supported by Hasher.
type Algorithm string

const (
	// AlgorithmSHA256 is the default digest algorithm.
	AlgorithmSHA256 Algorithm = "sha256"
	// AlgorithmBLAKE2b is BLAKE2b with a 256-bit output.
	AlgorithmBLAKE2b Algorithm = "blake2b"
)

// DigestLength is the length in hex characters of every digest a Hasher produces.
const DigestLength = 64

// Hasher computes content digests of raw fixtures.
// The zero value uses SHA-256.
type Hasher struct {
	algorithm Algorithm
}

// NewHasher returns a Hasher for the named algorithm.
// An empty name selects SHA-256.
func NewHasher(algorithm string) (Hasher, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(algorithm))) {
	case "", AlgorithmSHA256:
		return Hasher{algorithm: AlgorithmSHA256}, nil
	case AlgorithmBLAKE2b:
		return Hasher{algorithm: AlgorithmBLAKE2b}, nil
	default:
		return Hasher{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

// Algorithm returns the algorithm this Hasher uses.
func (h Hasher) Algorithm() Algorithm {
	if h.algorithm == "" {
		return AlgorithmSHA256
	}
	return h.algorithm
}

// Digest returns the lowercase hex digest of raw.
func (h Hasher) Digest(raw []byte) string {
	var sum [32]byte
	switch h.Algorithm() {
	case AlgorithmBLAKE2b:
		sum = blake2b.Sum256(raw)
	default:
		sum = sha256.Sum256(raw)
	}
	return hex.EncodeToString(sum[:])
}

// Verify compares the digest of f's content with its recorded digest.
// It returns ErrNoRecordedDigest when the manifest recorded nothing and
// ErrFixtureDrift when the digests differ.
func (h Hasher) Verify(f RawFixture) error {
	recorded := strings.ToLower(strings.TrimSpace(f.RecordedDigest))
	if recorded == "" {
		return ErrNoRecordedDigest
	}
	actual := h.Digest(f.raw)
	if actual != recorded {
		return fmt.Errorf("%w: recorded %s, computed %s", ErrFixtureDrift, shortDigest(recorded), shortDigest(actual))
	}
	return nil
}

// Digest hashes raw with SHA-256.
func Digest(raw []byte) string {
	return Hasher{}.Digest(raw)
}

func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
