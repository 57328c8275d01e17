package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"identity/config"
)

func newTestHasher(policy *config.PasswordStrengthConfig) *bcryptHasher {
	cfg := &config.Config{
		Auth:             &config.AuthConfig{BcryptCost: 4},
		PasswordStrength: policy,
	}

	return NewBcryptHasher(cfg).(*bcryptHasher)
}

func TestBcryptHasher_HashAndCheck(t *testing.T) {
	hasher := newTestHasher(nil)

	hash, err := hasher.Hash("Secret1.")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	assert.NotEqual(t, "Secret1.", hash)

	assert.True(t, hasher.Check("Secret1.", hash))
	assert.False(t, hasher.Check("wrong-password", hash))
	assert.False(t, hasher.Check("Secret1.", "not-a-bcrypt-hash"))
}

func TestBcryptHasher_ValidatePasswordStrength(t *testing.T) {
	policy := &config.PasswordStrengthConfig{
		MinLength:        8,
		MaxLength:        72,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSpecial:   true,
	}
	hasher := newTestHasher(policy)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{name: "valid", password: "Secret1.", wantErr: false},
		{name: "too short", password: "Se1.", wantErr: true},
		{name: "no uppercase", password: "secret1.", wantErr: true},
		{name: "no lowercase", password: "SECRET1.", wantErr: true},
		{name: "no number", password: "Secrets!.", wantErr: true},
		{name: "no special", password: "Secrets12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := hasher.ValidatePasswordStrength(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBcryptHasher_NoPolicyStillHasFloor(t *testing.T) {
	hasher := newTestHasher(nil)

	assert.Error(t, hasher.ValidatePasswordStrength("abc"))
	assert.NoError(t, hasher.ValidatePasswordStrength("abcdef"))
}
