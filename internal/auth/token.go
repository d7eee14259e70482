package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mitchellh/mapstructure"

	"github.com/workstack/workstack/internal/config"
	"github.com/workstack/workstack/internal/db/models"
)

// Claims is the decoded content of a session token.
type Claims struct {
	// Subject is the principal's user id.
	Subject string

	// Username mirrors the principal's username at issue time.
	Username string

	// Roles lists the principal's role names in issue order.
	Roles []string

	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenService issues and validates stateless HMAC-signed session tokens.
// Validity is purely a function of signature and expiry; nothing is persisted
// server-side, so the service is safe for unrestricted concurrent use.
type TokenService struct {
	secret   []byte
	lifetime time.Duration
	now      func() time.Time
}

// NewTokenService creates a token service from the loaded configuration.
func NewTokenService(cfg config.TokenConfig) *TokenService {
	return &TokenService{
		secret:   []byte(cfg.Secret),
		lifetime: cfg.Lifetime,
		now:      time.Now,
	}
}

// Issue encodes the user's identity and role claims into a signed token with
// the configured fixed lifetime. Pure; no side effects.
func (s *TokenService) Issue(user *models.User) (string, error) {
	if user == nil || user.ID == "" {
		return "", fmt.Errorf("issue token: user is required")
	}
	now := s.now()
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"username": user.Username,
		"roles":    []string(user.Roles),
		"iat":      jwt.NewNumericDate(now),
		"exp":      jwt.NewNumericDate(now.Add(s.lifetime)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies the token's signature and expiry and decodes its claims.
// Failures map onto the authentication taxonomy: ErrExpiredToken,
// ErrInvalidSignature, or ErrMalformedToken.
func (s *TokenService) Validate(tokenString string) (*Claims, error) {
	parsed, err := jwt.Parse(
		tokenString,
		func(t *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %v", ErrExpiredToken, err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		default:
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
	}

	mapClaims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrMalformedToken)
	}
	return decodeClaims(mapClaims)
}

// decodeClaims converts raw JWT map claims into the typed Claims struct.
func decodeClaims(mc jwt.MapClaims) (*Claims, error) {
	sub, ok := mc["sub"].(string)
	if !ok || sub == "" {
		return nil, fmt.Errorf("%w: missing sub claim", ErrMalformedToken)
	}
	username, _ := mc["username"].(string)

	var roles []string
	if raw, ok := mc["roles"]; ok {
		if err := mapstructure.Decode(raw, &roles); err != nil {
			return nil, fmt.Errorf("%w: roles claim: %v", ErrMalformedToken, err)
		}
	}
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: missing roles claim", ErrMalformedToken)
	}

	iat, err := mc.GetIssuedAt()
	if err != nil || iat == nil {
		return nil, fmt.Errorf("%w: missing iat claim", ErrMalformedToken)
	}
	exp, err := mc.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, fmt.Errorf("%w: missing exp claim", ErrMalformedToken)
	}

	return &Claims{
		Subject:   sub,
		Username:  username,
		Roles:     roles,
		IssuedAt:  iat.Time,
		ExpiresAt: exp.Time,
	}, nil
}
