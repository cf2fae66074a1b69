package testutil

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

// StaffTokenClaims mirror what the identity provider puts in a staff access token
type StaffTokenClaims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// MintStaffToken signs an HS256 access token the way Supabase does for a logged-in user.
// An empty email produces a token without the email claim.
func MintStaffToken(t *testing.T, secret, issuer, audience, subject, email string) string {
	t.Helper()

	now := time.Now()
	claims := StaffTokenClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err, "Failed to sign staff token")
	return token
}
