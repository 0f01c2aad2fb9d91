package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIKeyService_Generate(t *testing.T) {
	svc := NewAPIKeyService()

	t.Run("generated keys are well formed", func(t *testing.T) {
		key, err := svc.Generate()
		assert.NoError(t, err)
		assert.True(t, strings.HasPrefix(key, KeyPrefix))
		assert.Len(t, key, len(KeyPrefix)+48)
		assert.True(t, svc.ValidateFormat(key))
	})

	t.Run("generated keys are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for i := 0; i < 100; i++ {
			key, err := svc.Generate()
			assert.NoError(t, err)
			assert.False(t, seen[key], "duplicate key generated")
			seen[key] = true
		}
	})
}

func TestAppendKeyChars_UnbiasedSampling(t *testing.T) {
	t.Run("bytes above the last full modulus cycle are dropped", func(t *testing.T) {
		rejected := make([]byte, 0, 256-maxRandomByte)
		for b := maxRandomByte; b < 256; b++ {
			rejected = append(rejected, byte(b))
		}
		assert.Empty(t, appendKeyChars(nil, rejected))
	})

	t.Run("accepted bytes cover the alphabet uniformly", func(t *testing.T) {
		accepted := make([]byte, maxRandomByte)
		for i := range accepted {
			accepted[i] = byte(i)
		}
		out := appendKeyChars(nil, accepted)
		assert.Len(t, out, maxRandomByte)

		counts := make(map[byte]int)
		for _, ch := range out {
			counts[ch]++
		}
		assert.Len(t, counts, len(keyAlphabet))
		want := maxRandomByte / len(keyAlphabet)
		for ch, n := range counts {
			assert.Equal(t, want, n, "character %q", ch)
		}
	})
}

func TestAPIKeyService_ValidateFormat(t *testing.T) {
	svc := NewAPIKeyService()

	tests := []struct {
		name  string
		token string
		valid bool
	}{
		{"valid key", "ak_" + strings.Repeat("a1B2c3D4", 6), true},
		{"missing prefix", strings.Repeat("a1B2c3D4", 6), false},
		{"wrong prefix", "sk_" + strings.Repeat("a1B2c3D4", 6), false},
		{"too short", "ak_abc", false},
		{"too long", "ak_" + strings.Repeat("a", 49), false},
		{"illegal characters", "ak_" + strings.Repeat("a", 47) + "!", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, svc.ValidateFormat(tt.token))
		})
	}
}

func TestAPIKeyService_Hash(t *testing.T) {
	svc := NewAPIKeyService()

	t.Run("hash is deterministic", func(t *testing.T) {
		key, err := svc.Generate()
		assert.NoError(t, err)
		assert.Equal(t, svc.Hash(key), svc.Hash(key))
	})

	t.Run("hash is hex encoded sha256", func(t *testing.T) {
		h := svc.Hash("ak_test")
		assert.Len(t, h, 64)
		assert.NotEqual(t, svc.Hash("ak_other"), h)
	})
}
