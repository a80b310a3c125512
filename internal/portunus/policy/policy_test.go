package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/Portunus/gate/internal/portunus/policy"
)

// =============================================================================
// BIOMETRIC MATCH
// =============================================================================

func TestBiometricMatches(t *testing.T) {
	cases := []struct {
		name     string
		sample   []byte
		template []byte
		want     bool
	}{
		{"equal", []byte{1, 2, 3, 4}, []byte{1, 2, 3, 4}, true},
		{"one byte differs", []byte{1, 2, 3, 5}, []byte{1, 2, 3, 4}, false},
		{"length differs", []byte{1, 2, 3}, []byte{1, 2, 3, 4}, false},
		{"sample absent", nil, []byte{1, 2, 3, 4}, false},
		{"template absent", []byte{1, 2, 3, 4}, nil, false},
		{"both absent", nil, nil, false},
		{"both empty", []byte{}, []byte{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, policy.BiometricMatches(tc.sample, tc.template))
			// Symmetric in its operands.
			assert.Equal(t, tc.want, policy.BiometricMatches(tc.template, tc.sample))
		})
	}
}

func TestBiometricMatches_EverySingleByteFlipFails(t *testing.T) {
	template := []byte{9, 9, 9, 9, 9, 9, 9, 9}
	for i := range template {
		sample := append([]byte(nil), template...)
		sample[i] ^= 0xFF
		require.False(t, policy.BiometricMatches(sample, template), "flip at %d", i)
	}
}

// =============================================================================
// ADDRESS DENYLIST
// =============================================================================

func TestIsAddressSuspicious_DefaultDenylist(t *testing.T) {
	assert.True(t, policy.IsAddressSuspicious("10.0.0.66"))
	assert.True(t, policy.IsAddressSuspicious("203.0.113.66"))
	assert.True(t, policy.IsAddressSuspicious(" 203.0.113.66 "))
	assert.False(t, policy.IsAddressSuspicious("203.0.113.5"))
	assert.False(t, policy.IsAddressSuspicious(""))
	assert.False(t, policy.IsAddressSuspicious("   "))
}

func TestAddressPolicy_Injected(t *testing.T) {
	p := policy.NewAddressPolicy("192.0.2.1", "", " ")
	require.Equal(t, 1, p.Len())

	assert.True(t, p.IsSuspicious("192.0.2.1"))
	assert.False(t, p.IsSuspicious("10.0.0.66"), "custom policy replaces the default set")
}

func TestAddressPolicy_NilUsesDefault(t *testing.T) {
	var p *policy.AddressPolicy
	assert.True(t, p.IsSuspicious("10.0.0.66"))
	assert.Equal(t, len(policy.DefaultDenylist), p.Len())
}

// =============================================================================
// TOKEN RECOGNIZERS
// =============================================================================

func TestIsServerKnownToken(t *testing.T) {
	assert.True(t, policy.IsServerKnownToken("TOKEN-ALICE-100"))
	assert.True(t, policy.IsServerKnownToken("token-alice-100"))
	assert.False(t, policy.IsServerKnownToken("TOKE"))
	assert.False(t, policy.IsServerKnownToken("CARD-100"))
	assert.False(t, policy.IsServerKnownToken(""))
}

func TestIsCardTokenSyntaxValid(t *testing.T) {
	assert.True(t, policy.IsCardTokenSyntaxValid("CARD-100"))
	assert.True(t, policy.IsCardTokenSyntaxValid("card-999"))
	assert.False(t, policy.IsCardTokenSyntaxValid("TOKEN-ALICE-100"))
	assert.False(t, policy.IsCardTokenSyntaxValid(""))
}
