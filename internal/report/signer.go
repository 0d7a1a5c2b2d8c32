package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for missing, expired or foreign download tokens.
var ErrInvalidToken = errors.New("invalid download token")

const tokenIssuer = "qsar-chat"

// Signer issues HS256 download tokens bound to a report id. A Signer with no
// secret is disabled: it issues empty tokens and accepts any token.
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewSigner(secret string, ttl time.Duration) *Signer {
	return &Signer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (s *Signer) Enabled() bool {
	return s != nil && len(s.secret) > 0
}

// Sign returns a token that authorises downloading reportID.
func (s *Signer) Sign(reportID string) (string, error) {
	if !s.Enabled() {
		return "", nil
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   reportID,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	if s.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(s.ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign download token: %w", err)
	}
	return signed, nil
}

// Verify checks that token was issued by s for reportID and has not expired.
func (s *Signer) Verify(token, reportID string) error {
	if !s.Enabled() {
		return nil
	}
	if token == "" {
		return fmt.Errorf("%w: missing", ErrInvalidToken)
	}

	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithTimeFunc(s.now))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject != reportID {
		return fmt.Errorf("%w: issued for another report", ErrInvalidToken)
	}
	return nil
}
