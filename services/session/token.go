package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// Claims is the payload of a bearer credential.
type Claims struct {
	AccountType  string `json:"accountType"`
	TokenVersion int64  `json:"tokenVersion"`
	jwt.RegisteredClaims
}

// AccountID returns the subject of the credential.
func (c *Claims) AccountID() string { return c.Subject }

// Signer issues and verifies HS256 bearer credentials.
type Signer struct {
	secret []byte
	now    func() time.Time
}

func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, errors.New("session: signing secret is empty")
	}
	return &Signer{secret: []byte(secret), now: time.Now}, nil
}

// Issue signs a credential for the session that expires after ttl.
func (s *Signer) Issue(sess Session, ttl time.Duration) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(ttl)
	claims := Claims{
		AccountType:  sess.AccountType,
		TokenVersion: sess.TokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sess.AccountID,
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign bearer: %w", err)
	}
	return signed, exp, nil
}

// Parse checks signature and expiry only; version is checked by the Authority.
func (s *Signer) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.Parser{
		ValidMethods: []string{jwt.SigningMethodHS256.Alg()},
	}
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Ensure that the token's signing method is HMAC.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if !token.Valid || claims.Subject == "" || claims.AccountType == "" || claims.ExpiresAt == nil {
		return nil, ErrSessionInvalid
	}
	return claims, nil
}
