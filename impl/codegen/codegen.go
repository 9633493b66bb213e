// Package codegen produces human-readable activation codes.
package codegen

import (
	"context"
	"crypto/rand"
	"strings"
)

// Alphabet excludes I, O, 0 and 1.
const Alphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	symbols     = 12
	groupSize   = 4
	MaxAttempts = 10
)

// Generate returns a code in the XXXX-XXXX-XXXX form.
func Generate() string {
	buf := make([]byte, symbols)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand.Read does not fail on supported platforms
		panic("codegen: random source: " + err.Error())
	}
	var sb strings.Builder
	sb.Grow(symbols + symbols/groupSize - 1)
	for i, b := range buf {
		if i > 0 && i%groupSize == 0 {
			sb.WriteByte('-')
		}
		// 256 is a multiple of 32, so the modulo is unbiased
		sb.WriteByte(Alphabet[int(b)%len(Alphabet)])
	}
	return sb.String()
}

// Unique generates candidates until exists reports a free one, giving up after
// MaxAttempts and returning the last candidate. The store's unique index decides
// in the end.
func Unique(ctx context.Context, exists func(ctx context.Context, code string) (bool, error)) (string, error) {
	var code string
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		code = Generate()
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			break
		}
	}
	return code, nil
}

// Normalize uppercases s and drops everything outside [A-Z0-9-].
func Normalize(s string) string {
	upper := strings.ToUpper(s)
	var sb strings.Builder
	sb.Grow(len(upper))
	for i := 0; i < len(upper); i++ {
		c := upper[i]
		if (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '-' {
			sb.WriteByte(c)
		}
	}
	return sb.String()
}

// IsWellFormed reports whether s is exactly a generated code.
func IsWellFormed(s string) bool {
	if len(s) != symbols+symbols/groupSize-1 {
		return false
	}
	for i := 0; i < len(s); i++ {
		if (i+1)%(groupSize+1) == 0 {
			if s[i] != '-' {
				return false
			}
			continue
		}
		if strings.IndexByte(Alphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
