package rye

import (
	"crypto/rsa"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rotisserie/eris"
)

// maxCredentialTTL is the marketplace's policy ceiling for bearer
// credentials. Longer lifetimes are rejected server-side, so the issuer
// clamps rather than erroring.
const maxCredentialTTL = time.Hour

// CredentialIssuer mints short-lived RS256 bearer credentials for the
// marketplace GraphQL API. Construct one at process start and pass it into
// the client; credentials themselves are request-scoped and must be minted
// fresh per call, never cached across requests.
type CredentialIssuer struct {
	key      *rsa.PrivateKey
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
}

// NewCredentialIssuer parses the PEM-encoded RSA private key and returns an
// issuer bound to the given account issuer id and GraphQL host audience.
// TTLs above one hour are clamped to one hour.
func NewCredentialIssuer(privateKeyPEM []byte, issuer, audience string, ttl time.Duration) (*CredentialIssuer, error) {
	key, err := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if err != nil {
		return nil, eris.Wrap(err, "rye: parse signing key")
	}
	if issuer == "" {
		return nil, eris.New("rye: issuer id is required")
	}
	if audience == "" {
		return nil, eris.New("rye: audience is required")
	}
	if ttl <= 0 || ttl > maxCredentialTTL {
		ttl = maxCredentialTTL
	}
	return &CredentialIssuer{
		key:      key,
		issuer:   issuer,
		audience: audience,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// Issue signs a fresh bearer credential.
func (ci *CredentialIssuer) Issue() (string, error) {
	now := ci.now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    ci.issuer,
		Audience:  jwt.ClaimStrings{ci.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ci.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(ci.key)
	if err != nil {
		return "", eris.Wrap(err, "rye: sign credential")
	}
	return signed, nil
}
