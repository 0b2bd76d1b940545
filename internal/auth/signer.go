// internal/auth/signer.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/unclebandit/crowdfund-backend/internal/address"
)

// ErrInvalidToken wraps every signer token rejection.
var ErrInvalidToken = errors.New("invalid signer token")

// Verifier authenticates self-signed request tokens. A token's subject is the
// caller's base58 ed25519 public key, and the token must be signed by the
// matching private key, so a verified subject is the signer identity.
type Verifier struct {
	Audience string
	MaxAge   time.Duration
	Now      func() time.Time
}

func (v Verifier) now() time.Time {
	if v.Now == nil {
		return time.Now()
	}
	return v.Now()
}

// Verify checks the token signature and claims and returns the signer.
func (v Verifier) Verify(token string) (address.Address, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return address.Zero, fmt.Errorf("%w: token is required", ErrInvalidToken)
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		signer, err := address.Parse(claims.Subject)
		if err != nil {
			return nil, fmt.Errorf("subject: %w", err)
		}
		return signer.PublicKey(), nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithAudience(v.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return address.Zero, mapJWTError(err)
	}

	if claims.IssuedAt == nil {
		return address.Zero, fmt.Errorf("%w: iat is required", ErrInvalidToken)
	}
	if v.MaxAge > 0 && claims.ExpiresAt.Sub(claims.IssuedAt.Time) > v.MaxAge {
		return address.Zero, fmt.Errorf("%w: token lifetime exceeds %s", ErrInvalidToken, v.MaxAge)
	}

	signer, err := address.Parse(claims.Subject)
	if err != nil {
		return address.Zero, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return signer, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrEd25519Verification):
		return fmt.Errorf("%w: signature is invalid", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: token is expired", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return fmt.Errorf("%w: audience mismatch", ErrInvalidToken)
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: token is unverifiable", ErrInvalidToken)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// Sign issues a token for the identity behind priv.
func Sign(priv ed25519.PrivateKey, audience string, issuedAt time.Time, ttl time.Duration) (string, error) {
	signer, err := address.FromPublicKey(priv.Public().(ed25519.PublicKey))
	if err != nil {
		return "", err
	}
	claims := jwt.RegisteredClaims{
		Subject:   signer.String(),
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(priv)
}
