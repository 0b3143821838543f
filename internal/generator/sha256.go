package generator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const (
	secretBytes = 32
	// cancelCheckEvery bounds how long a large batch ignores cancellation.
	cancelCheckEvery = 1024
)

// SHA256 derives each identifier as the hex SHA-256 digest of a random
// 32-byte secret. It exercises the pipeline at high rates in tests and
// benchmarks; use P2PKH against real address lists.
type SHA256 struct {
	read func([]byte) (int, error)
}

// NewSHA256 returns a generator backed by crypto/rand.
func NewSHA256() *SHA256 {
	return &SHA256{read: rand.Read}
}

// Name implements Generator.
func (g *SHA256) Name() string { return "sha256" }

// SampleEvery implements SampleHinter.
func (g *SHA256) SampleEvery() int { return 100 }

// GenerateBatch implements Generator.
func (g *SHA256) GenerateBatch(ctx context.Context, n int) ([]Candidate, error) {
	if n <= 0 {
		return nil, nil
	}
	raw := make([]byte, n*secretBytes)
	if _, err := g.read(raw); err != nil {
		return nil, fmt.Errorf("read entropy: %w", err)
	}

	out := make([]Candidate, 0, n)
	for i := 0; i < n; i++ {
		if i%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		secret := raw[i*secretBytes : (i+1)*secretBytes]
		out = append(out, Derive(secret))
	}
	return out, nil
}

// Derive computes the candidate for a raw secret.
func Derive(secret []byte) Candidate {
	sum := sha256.Sum256(secret)
	return Candidate{
		Identifier: hex.EncodeToString(sum[:]),
		Secret:     hex.EncodeToString(secret),
	}
}
