// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// CookieName carries the token for browser clients.
const CookieName = "auth_token"

// GuestPrefix marks identities minted for players without a wallet.
const GuestPrefix = "GUEST_"

var ErrNoToken = errors.New("no auth token")

// Issuer signs and verifies identity tokens with an ed25519 key pair.
type Issuer struct {
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
	// ttl of zero issues tokens without an exp claim.
	ttl time.Duration
}

// ParseTokenExpireTime reads a TOKEN_EXPIRE_TIME style value. "never", "0" and
// the empty string all mean tokens do not expire.
func ParseTokenExpireTime(s string) (time.Duration, error) {
	if s == "" || s == "never" || s == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// NewIssuer generates a fresh key pair at runtime.
func NewIssuer(ttl time.Duration) (*Issuer, error) {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	return &Issuer{privateKey: priv, publicKey: pub, ttl: ttl}, nil
}

// NewIssuerFromPath reads raw ed25519 private/public keys from file.
func NewIssuerFromPath(privatePath, publicPath string, ttl time.Duration) (*Issuer, error) {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read public key file: %w", err)
	}
	return &Issuer{
		privateKey: ed25519.PrivateKey(privateKeyData),
		publicKey:  ed25519.PublicKey(publicKeyData),
		ttl:        ttl,
	}, nil
}

// NewGuestIdentity mints a fresh guest identity.
func NewGuestIdentity() string {
	return GuestPrefix + strings.ReplaceAll(uuid.NewString(), "-", "")
}

// CreateJWT signs a token with "sub" = identity and an optional nickname claim.
func (is *Issuer) CreateJWT(identity, nickname string) (string, error) {
	claims := jwt.MapClaims{
		"sub": identity,
		"iat": time.Now().Unix(),
	}
	if nickname != "" {
		claims["nick"] = nickname
	}
	if is.ttl > 0 {
		claims["exp"] = time.Now().Add(is.ttl).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(is.privateKey)
}

// AuthenticateJWT verifies a token string and returns its subject.
func (is *Issuer) AuthenticateJWT(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrNoToken
	}
	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return is.publicKey, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}
	identity, ok := claims["sub"].(string)
	if !ok || identity == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}
	return identity, nil
}
