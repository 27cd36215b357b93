package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var TimeNow = time.Now

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrPayloadType  = errors.New("invalid payload: claims must be a non-nil map")
)

// TokenManager issues and verifies HMAC signed access tokens.
type TokenManager struct {
	method *jwt.SigningMethodHMAC
	secret []byte
	ttl    time.Duration
}

func NewTokenManager(algorithm, secret string, ttl time.Duration) (*TokenManager, error) {
	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TokenManager{
		method: method,
		secret: []byte(secret),
		ttl:    ttl,
	}, nil
}

func (m *TokenManager) TTL() time.Duration {
	return m.ttl
}

// Encode signs a token carrying payload plus exp and iat. The payload map is
// not modified.
func (m *TokenManager) Encode(payload map[string]any) (string, error) {
	if payload == nil {
		return "", ErrPayloadType
	}

	now := TimeNow()
	claims := jwt.MapClaims{}
	for k, v := range payload {
		claims[k] = v
	}
	claims["iat"] = now.Unix()
	claims["exp"] = now.Add(m.ttl).Unix()

	signed, err := jwt.NewWithClaims(m.method, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("get signing string: %w", err)
	}
	return signed, nil
}

// Decode verifies the token signature and expiry and returns its claims.
func (m *TokenManager) Decode(token string) (map[string]any, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(TimeNow),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("jwt parse: %w: %w", err, ErrInvalidToken)
	}
	if !parsed.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Subject returns the "sub" claim when it is a non-empty string.
func Subject(claims map[string]any) (string, bool) {
	sub, ok := claims["sub"].(string)
	return sub, ok && sub != ""
}
