package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
)

var (
	ErrInvalidToken = errors.New("invalid token")

	errNoCredentials = errors.New("missing credentials")
	errBadScheme     = errors.New("invalid authorization format")
)

// Identity is the operator a request was made by.
type Identity struct {
	UserID      string
	DisplayName string
}

type contextKey int

const identityKey contextKey = iota

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the operator set by RequireOperator or
// OptionalOperator. Anonymous requests have none.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// UserIDFromContext returns the operator's user id, or "" when anonymous.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := IdentityFromContext(ctx); ok {
		return id.UserID
	}
	return ""
}

// bearerToken reads the token from an "Authorization: Bearer" header, or
// from the token query parameter. Browsers cannot set headers on websocket
// upgrades, so viewers pass it in the URL.
func bearerToken(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || scheme != "Bearer" || token == "" {
			return "", errBadScheme
		}
		return token, nil
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}
	return "", errNoCredentials
}

// Identify resolves the operator behind r. The user must still exist.
func (s *Service) Identify(r *http.Request) (*Identity, error) {
	token, err := bearerToken(r)
	if err != nil {
		return nil, err
	}
	userID, err := s.ValidateToken(token)
	if err != nil {
		return nil, errors.Join(ErrInvalidToken, err)
	}
	user, err := s.GetUser(r.Context(), userID)
	if err != nil {
		return nil, err
	}
	return &Identity{UserID: user.ID, DisplayName: user.DisplayName}, nil
}

// RequireOperator rejects requests without a valid operator token.
func (s *Service) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.Identify(r)
		if err != nil {
			rejectRequest(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalOperator lets anonymous requests through. Credentials that are
// present must be valid.
func (s *Service) OptionalOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := s.Identify(r)
		switch {
		case errors.Is(err, errNoCredentials):
			next.ServeHTTP(w, r)
		case err != nil:
			rejectRequest(w, err)
		default:
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		}
	})
}

func rejectRequest(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errNoCredentials), errors.Is(err, errBadScheme):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, ErrInvalidToken):
		writeError(w, http.StatusUnauthorized, ErrInvalidToken.Error())
	case errors.Is(err, ErrUserNotFound):
		writeError(w, http.StatusUnauthorized, "unknown operator")
	default:
		slog.Error("identify operator", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
