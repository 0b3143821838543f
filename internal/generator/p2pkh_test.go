package generator

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"strings"
	"testing"
)

func privKey(t *testing.T, hexKey string) []byte {
	t.Helper()
	key, err := hex.DecodeString(strings.Repeat("0", 64-len(hexKey)) + hexKey)
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	return key
}

func TestDeriveP2PKHKnownVectors(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{key: "1", want: "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH"},
		{key: "3", want: "1CUNEBjYrCn2y1SdiUMohaKUi4wpP326Lb"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			c, err := DeriveP2PKH(privKey(t, tt.key))
			if err != nil {
				t.Fatalf("DeriveP2PKH returned error: %v", err)
			}
			if c.Identifier != tt.want {
				t.Fatalf("Identifier = %s, want %s", c.Identifier, tt.want)
			}
			if len(c.Secret) != 64 || !strings.HasSuffix(c.Secret, tt.key) {
				t.Fatalf("Secret = %q, want 64-char hex key", c.Secret)
			}
			again, err := ParsePrivateKeyHex(c.Secret)
			if err != nil || again != c {
				t.Fatalf("ParsePrivateKeyHex = %+v, %v; want %+v", again, err, c)
			}
		})
	}
}

func TestDeriveP2PKHRejectsOutOfRangeKeys(t *testing.T) {
	tests := map[string][]byte{
		"zero":        make([]byte, 32),
		"group order": privKey(t, "fffffffffffffffffffffffffffffffebaaedce6af48a03bbfd25e8cd0364141"),
		"short":       []byte{1, 2, 3},
	}
	for name, key := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := DeriveP2PKH(key); !errors.Is(err, ErrInvalidPrivateKey) {
				t.Fatalf("expected ErrInvalidPrivateKey, got %v", err)
			}
		})
	}
	if _, err := ParsePrivateKeyHex("not-hex"); !errors.Is(err, ErrInvalidPrivateKey) {
		t.Fatalf("expected ErrInvalidPrivateKey for bad hex, got %v", err)
	}
}

func TestP2PKHGenerateBatch(t *testing.T) {
	batch, err := NewP2PKH().GenerateBatch(context.Background(), 20)
	if err != nil {
		t.Fatalf("GenerateBatch returned error: %v", err)
	}
	if len(batch) != 20 {
		t.Fatalf("len(batch) = %d, want 20", len(batch))
	}
	for _, c := range batch {
		want, err := ParsePrivateKeyHex(c.Secret)
		if err != nil {
			t.Fatalf("secret %q: %v", c.Secret, err)
		}
		if c.Identifier != want.Identifier || !strings.HasPrefix(c.Identifier, "1") {
			t.Fatalf("identifier %q does not match secret %q", c.Identifier, c.Secret)
		}
	}
}

func TestP2PKHRedrawsInvalidKeys(t *testing.T) {
	one := privKey(t, "1")
	calls := 0
	g := &P2PKH{read: func(b []byte) (int, error) {
		calls++
		if calls == 1 {
			clear(b)
			return len(b), nil
		}
		return copy(b, one), nil
	}}

	batch, err := g.GenerateBatch(context.Background(), 1)
	if err != nil {
		t.Fatalf("GenerateBatch returned error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected one redraw, got %d reads", calls)
	}
	if batch[0].Identifier != "1BgGZ9tcN4rm9KBzDn7KprQz87SZ26SAMH" || !bytes.Equal(privKey(t, batch[0].Secret), one) {
		t.Fatalf("unexpected candidate %+v", batch[0])
	}
}

func TestP2PKHEntropyFailure(t *testing.T) {
	boom := errors.New("no entropy")
	g := &P2PKH{read: func([]byte) (int, error) { return 0, boom }}
	if _, err := g.GenerateBatch(context.Background(), 2); !errors.Is(err, boom) {
		t.Fatalf("expected entropy error, got %v", err)
	}
}

func TestDefaultKindIsRegistered(t *testing.T) {
	g, err := New(DefaultKind)
	if err != nil {
		t.Fatalf("New(%q) returned error: %v", DefaultKind, err)
	}
	if g.Name() != "p2pkh" {
		t.Fatalf("default generator = %q, want p2pkh", g.Name())
	}
}
