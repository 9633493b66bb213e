package codegen

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_Format(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		code := Generate()
		require.Len(t, code, 14)
		require.True(t, IsWellFormed(code), "malformed code %q", code)
		assert.Equal(t, byte('-'), code[4])
		assert.Equal(t, byte('-'), code[9])
		assert.NotContains(t, code, "I")
		assert.NotContains(t, code, "O")
		assert.NotContains(t, code, "0")
		assert.NotContains(t, code, "1")
		seen[code] = true
	}
	assert.Greater(t, len(seen), 490)
}

func TestUnique_RetriesUntilFree(t *testing.T) {
	calls := 0
	code, err := Unique(context.Background(), func(_ context.Context, _ string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, IsWellFormed(code))
}

func TestUnique_GivesUpAfterMaxAttempts(t *testing.T) {
	calls := 0
	code, err := Unique(context.Background(), func(_ context.Context, _ string) (bool, error) {
		calls++
		return true, nil
	})
	require.NoError(t, err)
	assert.Equal(t, MaxAttempts, calls)
	assert.NotEmpty(t, code)
}

func TestUnique_PropagatesLookupError(t *testing.T) {
	boom := errors.New("store down")
	_, err := Unique(context.Background(), func(_ context.Context, _ string) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"abcd-efgh-jkmn":   "ABCD-EFGH-JKMN",
		" ab cd-ef_gh.jk ": "ABCD-EFGHJK",
		"ABCD-EFGH-JKMN\n": "ABCD-EFGH-JKMN",
		"çode-123":         "ODE-123",
		"":                 "",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), "input %q", in)
	}
}

func TestIsWellFormed(t *testing.T) {
	assert.True(t, IsWellFormed("ABCD-EFGH-JKMN"))
	assert.False(t, IsWellFormed("ABCD-EFGH-JKM"))
	assert.False(t, IsWellFormed("ABCDEFGHJKMNPQ"))
	assert.False(t, IsWellFormed("ABCD-EFGH-JK0N"))
	assert.False(t, IsWellFormed("abcd-efgh-jkmn"))
}
