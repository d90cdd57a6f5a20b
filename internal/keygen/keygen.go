package keygen

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/google/uuid"

	apperrors "github.com/spec-kit/license-service/pkg/util"
)

const (
	codeLength = 3
	padRune    = 'X'

	// fallback code for empty product names
	unknownCode = "UNK"
)

// KeyStore answers uniqueness checks against already-issued keys.
type KeyStore interface {
	KeyExists(ctx context.Context, key string) (bool, error)
}

// Generator derives human-readable license keys prefixed with a product code.
type Generator struct {
	store    KeyStore
	attempts int
}

// NewGenerator builds a generator with bounded collision retries.
func NewGenerator(store KeyStore, attempts int) *Generator {
	if attempts <= 0 {
		attempts = 5
	}
	return &Generator{store: store, attempts: attempts}
}

// ProductCode derives the 3-character uppercase prefix for a product name.
// Whitespace is stripped before truncation; short names are right-padded
// with X and an empty name yields UNK.
func ProductCode(productName string) string {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, productName)

	if stripped == "" {
		return unknownCode
	}

	runes := []rune(strings.ToUpper(stripped))
	if len(runes) > codeLength {
		runes = runes[:codeLength]
	}
	for len(runes) < codeLength {
		runes = append(runes, padRune)
	}
	return string(runes)
}

// Generate produces a unique license key for the product, retrying on
// collision up to the configured attempt budget.
func (g *Generator) Generate(ctx context.Context, productName string) (string, error) {
	code := ProductCode(productName)

	for i := 0; i < g.attempts; i++ {
		key := code + "-" + entropyBlocks()
		exists, err := g.store.KeyExists(ctx, key)
		if err != nil {
			return "", apperrors.MapError(err)
		}
		if !exists {
			return key, nil
		}
	}
	return "", apperrors.NewKeyGenerationFailed(errors.New("exhausted key generation attempts"))
}

// entropyBlocks returns four dash-separated blocks of 4 uppercase hex chars.
func entropyBlocks() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return raw[0:4] + "-" + raw[4:8] + "-" + raw[8:12] + "-" + raw[12:16]
}
