package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mentor-match/internal/apperror"
	"github.com/mentor-match/internal/config"
	"github.com/mentor-match/internal/model"
)

// ErrInvalidToken is returned for every verification failure. The concrete
// reason is joined to it so callers can log it without exposing it.
var ErrInvalidToken = apperror.New(apperror.KindAuthentication, "INVALID_TOKEN", "invalid or expired token")

var (
	ErrTokenMalformed    = errors.New("token malformed")
	ErrTokenSignature    = errors.New("token signature invalid")
	ErrTokenAlgorithm    = errors.New("token signing algorithm not allowed")
	ErrTokenExpired      = errors.New("token expired")
	ErrTokenNotYetValid  = errors.New("token not valid yet")
	ErrTokenIssuer       = errors.New("token issuer mismatch")
	ErrTokenAudience     = errors.New("token audience mismatch")
	ErrTokenClaims       = errors.New("token claims invalid")
	errEmptySecret       = errors.New("jwt secret is empty")
	errEmptyIssuer       = errors.New("jwt issuer is empty")
	errEmptyAudience     = errors.New("jwt audience is empty")
	errNonPositiveExpiry = errors.New("jwt ttl must be positive")
)

var signingMethod = jwt.SigningMethodHS256

// Claims is the token payload.
type Claims struct {
	Name  string         `json:"name"`
	Email string         `json:"email"`
	Role  model.UserRole `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies HS256 bearer tokens.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
	now      func() time.Time
	parser   *jwt.Parser
}

type TokenOption func(*TokenIssuer)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(i *TokenIssuer) {
		i.now = now
	}
}

func NewTokenIssuer(cfg config.JWTConfig, opts ...TokenOption) (*TokenIssuer, error) {
	if cfg.Secret == "" {
		return nil, errEmptySecret
	}
	// jwt skips the iss and aud checks when the expected value is empty
	if cfg.Issuer == "" {
		return nil, errEmptyIssuer
	}
	if cfg.Audience == "" {
		return nil, errEmptyAudience
	}
	if cfg.TTL <= 0 {
		return nil, errNonPositiveExpiry
	}

	i := &TokenIssuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      cfg.TTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}

	i.parser = jwt.NewParser(
		jwt.WithIssuer(i.issuer),
		jwt.WithAudience(i.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	return i, nil
}

// Issue signs a token for id and returns it with its expiry.
func (i *TokenIssuer) Issue(id model.Identity) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := Claims{
		Name:  id.Name,
		Email: id.Email,
		Role:  id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.issuer,
			Subject:   strconv.FormatInt(id.UserID, 10),
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(signingMethod, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, algorithm, time window, issuer, audience and the
// identity claims. It never refreshes a token.
func (i *TokenIssuer) Verify(tokenStr string) (model.Identity, error) {
	if !hasThreeSegments(tokenStr) {
		return model.Identity{}, invalid(ErrTokenMalformed, nil)
	}

	claims := &Claims{}
	if _, err := i.parser.ParseWithClaims(tokenStr, claims, i.keyFunc); err != nil {
		return model.Identity{}, invalid(reasonFor(err), err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return model.Identity{}, invalid(ErrTokenClaims, fmt.Errorf("subject %q", claims.Subject))
	}
	if claims.Email == "" || claims.Name == "" {
		return model.Identity{}, invalid(ErrTokenClaims, errors.New("missing email or name"))
	}
	if !claims.Role.Valid() {
		return model.Identity{}, invalid(ErrTokenClaims, fmt.Errorf("role %q", claims.Role))
	}

	return model.Identity{
		UserID: userID,
		Email:  claims.Email,
		Role:   claims.Role,
		Name:   claims.Name,
	}, nil
}

// TTL returns the configured token lifetime.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

func (i *TokenIssuer) keyFunc(token *jwt.Token) (interface{}, error) {
	if token.Method == nil || token.Method.Alg() != signingMethod.Alg() {
		return nil, ErrTokenAlgorithm
	}
	return i.secret, nil
}

func hasThreeSegments(tokenStr string) bool {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" {
			return false
		}
	}
	return true
}

// reasonFor maps a jwt parse error to one of the ErrToken* reasons.
func reasonFor(err error) error {
	switch {
	case errors.Is(err, ErrTokenAlgorithm):
		return ErrTokenAlgorithm
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrTokenMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrTokenNotYetValid
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return ErrTokenIssuer
	case errors.Is(err, jwt.ErrTokenInvalidAudience):
		return ErrTokenAudience
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// unknown alg header
		return ErrTokenAlgorithm
	default:
		return ErrTokenClaims
	}
}

func invalid(reason, cause error) error {
	if cause == nil || errors.Is(cause, reason) {
		return fmt.Errorf("%w: %w", ErrInvalidToken, reason)
	}
	return fmt.Errorf("%w: %w: %v", ErrInvalidToken, reason, cause)
}
