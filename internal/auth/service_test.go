package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/inamate/dynmap/internal/store"
	"github.com/inamate/dynmap/internal/typeid"
)

func newService(t *testing.T) *Service {
	t.Helper()
	st, err := store.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	svc := NewService(st, "test-secret")
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func TestRegisterAndLogin(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	res, err := svc.Register(ctx, "ops@example.com", "correct horse", "Ops")
	require.NoError(t, err)
	require.NoError(t, typeid.Validate(res.User.ID, typeid.PrefixUser))
	assert.Equal(t, "Ops", res.User.DisplayName)

	userID, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, userID)

	_, err = svc.Register(ctx, "ops@example.com", "another one", "Ops 2")
	assert.ErrorIs(t, err, ErrEmailTaken)

	login, err := svc.Login(ctx, "ops@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ops@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	user, err := svc.GetUser(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", user.Email)

	_, err = svc.GetUser(ctx, "user_missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	svc := newService(t)
	res, err := svc.Register(context.Background(), "a@example.com", "password1", "A")
	require.NoError(t, err)

	other := NewService(nil, "other-secret")
	_, err = other.ValidateToken(res.Token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("garbage")
	assert.Error(t, err)
}

func serve(h http.Handler, target, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequireOperator(t *testing.T) {
	svc := newService(t)
	res, err := svc.Register(context.Background(), "m@example.com", "password1", "M")
	require.NoError(t, err)

	var seen *Identity
	protected := svc.RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = IdentityFromContext(r.Context())
		assert.Equal(t, seen.UserID, UserIDFromContext(r.Context()))
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		target string
		header string
		want   int
	}{
		{"missing credentials", "/", "", http.StatusUnauthorized},
		{"wrong scheme", "/", "Basic abc", http.StatusUnauthorized},
		{"bad token", "/", "Bearer nope", http.StatusUnauthorized},
		{"bad query token", "/?token=nope", "", http.StatusUnauthorized},
		{"header", "/", "Bearer " + res.Token, http.StatusNoContent},
		{"query token", "/?token=" + res.Token, "", http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			rec := serve(protected, tt.target, tt.header)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNoContent {
				require.NotNil(t, seen)
				assert.Equal(t, Identity{UserID: res.User.ID, DisplayName: "M"}, *seen)
			} else {
				assert.Nil(t, seen)
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestRequireOperatorUnknownUser(t *testing.T) {
	svc := newService(t)
	token, err := svc.issueToken(typeid.NewUserID())
	require.NoError(t, err)

	rec := serve(svc.RequireOperator(http.NotFoundHandler()), "/", "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown operator")
}

func TestOptionalOperator(t *testing.T) {
	svc := newService(t)
	res, err := svc.Register(context.Background(), "o@example.com", "password1", "Ops")
	require.NoError(t, err)

	var (
		called bool
		seen   *Identity
	)
	handler := svc.OptionalOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		seen, _ = IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := serve(handler, "/ws/maps/map_1", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, called)
	assert.Nil(t, seen, "anonymous requests carry no identity")

	called = false
	rec = serve(handler, "/ws/maps/map_1?token="+res.Token, "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, Identity{UserID: res.User.ID, DisplayName: "Ops"}, *seen)

	called = false
	rec = serve(handler, "/ws/maps/map_1?token=forged", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)

	rec = serve(handler, "/ws/maps/map_1", "Token abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestHandlers(t *testing.T) {
	svc := newService(t)
	h := NewHandler(svc)

	post := func(handler http.HandlerFunc, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		handler(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusBadRequest, post(h.Register, `{`).Code)
	assert.Equal(t, http.StatusBadRequest, post(h.Register, `{"email":"x@example.com","password":"short","displayName":"X"}`).Code)

	rec := post(h.Register, `{"email":"x@example.com","password":"long enough","displayName":"X"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var result AuthResult
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&result))
	assert.NotEmpty(t, result.Token)

	assert.Equal(t, http.StatusConflict, post(h.Register, `{"email":"x@example.com","password":"long enough","displayName":"X"}`).Code)
	assert.Equal(t, http.StatusOK, post(h.Login, `{"email":"x@example.com","password":"long enough"}`).Code)
	assert.Equal(t, http.StatusUnauthorized, post(h.Login, `{"email":"x@example.com","password":"wrong pass"}`).Code)

	me := serve(svc.RequireOperator(http.HandlerFunc(h.Me)), "/auth/me", "Bearer "+result.Token)
	assert.Equal(t, http.StatusOK, me.Code)
	assert.Contains(t, me.Body.String(), "x@example.com")

	assert.Equal(t, http.StatusUnauthorized, serve(http.HandlerFunc(h.Me), "/auth/me", "").Code)
}
