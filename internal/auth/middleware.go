package auth

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
)

const (
	// AuthorizationHeader is the HTTP header for authorization.
	AuthorizationHeader = "Authorization"

	// BearerScheme is the only accepted authorization scheme.
	BearerScheme = "Bearer"
)

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	Verify(token string) (*Claims, error)
}

// Middleware creates the authentication gate for protected routes.
// Requests without a valid bearer token are rejected with 401.
func Middleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := authenticate(r, verifier)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Str("path", r.URL.Path).Msg("authentication failed")
				writeAuthError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalMiddleware attaches an identity when a valid bearer token is present.
// Any other request proceeds anonymously.
func OptionalMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get(AuthorizationHeader) == "" {
				next.ServeHTTP(w, r)
				return
			}

			identity, err := authenticate(r, verifier)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("ignoring invalid optional credentials")
				next.ServeHTTP(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// authenticate runs the header and token checks for one request.
func authenticate(r *http.Request, verifier TokenVerifier) (*Identity, error) {
	token, err := ParseBearer(r.Header.Get(AuthorizationHeader))
	if err != nil {
		return nil, err
	}

	claims, err := verifier.Verify(token)
	if err != nil {
		return nil, err
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, ErrInvalidToken
	}

	return &Identity{UserID: userID, EmailAddress: claims.EmailAddress}, nil
}

// ParseBearer extracts the token from an Authorization header value.
// Format: Bearer <token>
func ParseBearer(header string) (string, error) {
	if header == "" {
		return "", ErrMissingAuthorization
	}

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, BearerScheme) {
		return "", ErrInvalidAuthorizationHeader
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidAuthorizationHeader
	}

	return token, nil
}

type errorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Error   bool   `json:"error"`
}

// writeAuthError writes the JSON error envelope for a failed authentication.
func writeAuthError(w http.ResponseWriter, err error) {
	authErr := NewAuthError(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(authErr.HTTPStatus)

	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Status:  authErr.HTTPStatus,
		Message: authErr.Message,
		Error:   true,
	})
}
