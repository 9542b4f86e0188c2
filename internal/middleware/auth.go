package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mentor-match/internal/apperror"
	"github.com/mentor-match/internal/model"
)

type contextKey string

const IdentityContextKey contextKey = "identity"

var (
	ErrMissingToken  = apperror.New(apperror.KindAuthentication, "MISSING_TOKEN", "authentication required")
	ErrRoleForbidden = apperror.New(apperror.KindAuthorization, "ROLE_FORBIDDEN", "this action is not available for your role")
)

// ErrorWriter renders err as the API error envelope.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, err error)

// Authenticator verifies a raw bearer token.
type Authenticator interface {
	Authenticate(token string) (model.Identity, error)
}

// AuthMiddleware handles bearer token authentication
type AuthMiddleware struct {
	tokens   Authenticator
	writeErr ErrorWriter
	log      zerolog.Logger
}

func NewAuthMiddleware(tokens Authenticator, writeErr ErrorWriter, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:   tokens,
		writeErr: writeErr,
		log:      log.With().Str("component", "auth").Logger(),
	}
}

// Authenticate requires a valid "Authorization: Bearer <token>" header and
// stores the caller identity in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			m.writeErr(w, r, ErrMissingToken)
			return
		}

		identity, err := m.tokens.Authenticate(token)
		if err != nil {
			m.log.Warn().
				Err(err).
				Str("path", r.URL.Path).
				Str("remote_ip", r.RemoteAddr).
				Msg("token rejected")
			m.writeErr(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), IdentityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole allows only callers with one of roles. It must run after Authenticate.
func (m *AuthMiddleware) RequireRole(roles ...model.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := GetIdentity(r.Context())
			if !ok {
				m.writeErr(w, r, ErrMissingToken)
				return
			}
			if !slices.Contains(roles, identity.Role) {
				m.writeErr(w, r, ErrRoleForbidden.WithDetail("role", identity.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetIdentity extracts the caller identity from context
func GetIdentity(ctx context.Context) (model.Identity, bool) {
	identity, ok := ctx.Value(IdentityContextKey).(model.Identity)
	return identity, ok
}

// WithIdentity returns a copy of ctx carrying identity.
func WithIdentity(ctx context.Context, identity model.Identity) context.Context {
	return context.WithValue(ctx, IdentityContextKey, identity)
}

func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
