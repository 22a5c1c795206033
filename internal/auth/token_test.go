package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey(t *testing.T) {
	a, err := DeriveKey("secret")
	require.NoError(t, err)
	assert.Len(t, a, 32)

	b, err := DeriveKey("secret")
	require.NoError(t, err)
	assert.Equal(t, a, b, "derivation is deterministic")

	c, err := DeriveKey("other")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)

	_, err = DeriveKey("")
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestSignVerify(t *testing.T) {
	v, err := NewVerifier("secret")
	require.NoError(t, err)

	token, err := v.Sign("user-1", "jti-1", time.Hour)
	require.NoError(t, err)

	userID, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}

func TestVerify_Rejects(t *testing.T) {
	v, err := NewVerifier("secret")
	require.NoError(t, err)
	other, err := NewVerifier("different")
	require.NoError(t, err)

	expired, err := v.Sign("user-1", "", -time.Minute)
	require.NoError(t, err)
	foreign, err := other.Sign("user-1", "", time.Hour)
	require.NoError(t, err)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong key", foreign},
		{"alg none", unsigned},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestSign_RequiresUser(t *testing.T) {
	v, err := NewVerifier("secret")
	require.NoError(t, err)
	_, err = v.Sign("", "", time.Hour)
	assert.ErrorIs(t, err, ErrMissingUser)
}
