package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultTokenTTL = time.Hour

var errNoSecret = errors.New("auth token secret is empty")

// Token issues and checks the HS256 bearer tokens that guard the admin API.
type Token struct {
	secret []byte
	ttl    time.Duration
}

func NewToken(secret string) *Token {
	return &Token{secret: []byte(secret), ttl: defaultTokenTTL}
}

// WithTTL overrides the default one hour expiry. Non-positive values are
// ignored.
func (t *Token) WithTTL(ttl time.Duration) *Token {
	if ttl > 0 {
		t.ttl = ttl
	}
	return t
}

// Generate signs a token carrying the client identity.
func (t *Token) Generate(clientID string) (string, error) {
	if t == nil || len(t.secret) == 0 {
		return "", errNoSecret
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"client_id": clientID,
		"iat":       now.Unix(),
		"exp":       now.Add(t.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a token and returns the client identity it
// carries. Expired, forged or malformed tokens all fail here.
func (t *Token) Verify(raw string) (bool, string, error) {
	if t == nil || len(t.secret) == 0 {
		return false, "", errNoSecret
	}

	parsed, err := jwt.Parse(raw, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return false, "", fmt.Errorf("parse token: %w", err)
	}
	if !parsed.Valid {
		return false, "", errors.New("token is not valid")
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return false, "", errors.New("unexpected claims type")
	}
	clientID, ok := claims["client_id"].(string)
	if !ok || clientID == "" {
		return false, "", errors.New("token carries no client_id")
	}
	return true, clientID, nil
}
