package generator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"golang.org/x/crypto/ripemd160"
)

// MainnetP2PKHVersion is the Base58Check version byte of a mainnet
// pay-to-pubkey-hash address.
const MainnetP2PKHVersion byte = 0x00

// ErrInvalidPrivateKey reports a secret outside [1, n-1] of the secp256k1
// group order.
var ErrInvalidPrivateKey = errors.New("invalid secp256k1 private key")

// P2PKH derives mainnet pay-to-pubkey-hash addresses from random secp256k1
// private keys. The secret is the 64-character hex private key and the
// identifier is the Base58Check address of the compressed public key.
type P2PKH struct {
	read func([]byte) (int, error)
}

// NewP2PKH returns a generator backed by crypto/rand.
func NewP2PKH() *P2PKH {
	return &P2PKH{read: rand.Read}
}

// Name implements Generator.
func (g *P2PKH) Name() string { return "p2pkh" }

// SampleEvery implements SampleHinter.
func (g *P2PKH) SampleEvery() int { return 10 }

// GenerateBatch implements Generator. Draws that fall outside the group
// order are discarded and redrawn.
func (g *P2PKH) GenerateBatch(ctx context.Context, n int) ([]Candidate, error) {
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
		key := raw[i*secretBytes : (i+1)*secretBytes]
		c, err := DeriveP2PKH(key)
		for errors.Is(err, ErrInvalidPrivateKey) {
			if _, rerr := g.read(key); rerr != nil {
				return nil, fmt.Errorf("read entropy: %w", rerr)
			}
			c, err = DeriveP2PKH(key)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DeriveP2PKH computes the address candidate for a 32-byte big-endian
// private key.
func DeriveP2PKH(privKey []byte) (Candidate, error) {
	if len(privKey) != secretBytes {
		return Candidate{}, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidPrivateKey, secretBytes, len(privKey))
	}
	var scalar secp256k1.ModNScalar
	if overflow := scalar.SetByteSlice(privKey); overflow || scalar.IsZero() {
		return Candidate{}, ErrInvalidPrivateKey
	}
	pub := secp256k1.NewPrivateKey(&scalar).PubKey().SerializeCompressed()
	return Candidate{
		Identifier: base58.CheckEncode(hash160(pub), MainnetP2PKHVersion),
		Secret:     hex.EncodeToString(privKey),
	}, nil
}

// ParsePrivateKeyHex derives the candidate for a hex-encoded private key as
// stored in the found file.
func ParsePrivateKeyHex(secret string) (Candidate, error) {
	key, err := hex.DecodeString(secret)
	if err != nil {
		return Candidate{}, fmt.Errorf("%w: %v", ErrInvalidPrivateKey, err)
	}
	return DeriveP2PKH(key)
}

func hash160(data []byte) []byte {
	sum := sha256.Sum256(data)
	h := ripemd160.New()
	h.Write(sum[:])
	return h.Sum(nil)
}
