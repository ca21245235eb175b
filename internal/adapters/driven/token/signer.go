package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Purpose scopes a signed token to one use
type Purpose string

const (
	// PurposeDownload authorises a single file download
	PurposeDownload Purpose = "download"
	// PurposeAPI authorises API access
	PurposeAPI Purpose = "api"
)

// Claims is the payload carried by signed tokens
type Claims struct {
	Purpose Purpose `json:"purpose"`
	FileID  string  `json:"file_id,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HMAC-signed tokens
type Signer struct {
	secret []byte
	issuer string
}

// NewSigner creates a Signer. The secret must be non-empty.
func NewSigner(secret []byte, issuer string) (*Signer, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("token signer requires a secret")
	}
	return &Signer{secret: secret, issuer: issuer}, nil
}

// SignDownload issues a token granting download access to one file
func (s *Signer) SignDownload(fileID string, ttl time.Duration) (string, error) {
	return s.sign(Claims{
		Purpose: PurposeDownload,
		FileID:  fileID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   fileID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

// SignAPI issues an API access token for a subject
func (s *Signer) SignAPI(subject string, ttl time.Duration) (string, error) {
	return s.sign(Claims{
		Purpose: PurposeAPI,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	})
}

func (s *Signer) sign(claims Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks its signature, expiry and purpose
func (s *Signer) Verify(tokenString string, purpose Purpose) (*Claims, error) {
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Purpose != purpose {
		return nil, fmt.Errorf("token purpose %q, want %q", claims.Purpose, purpose)
	}
	return claims, nil
}
