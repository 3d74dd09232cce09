package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remedyops/findings-api/internal/app"
	"github.com/remedyops/findings-api/pkg/domain/accesscontrol"
	"github.com/remedyops/findings-api/pkg/logger"
)

const testSecret = "test-secret"

type noGrants struct{}

func (noGrants) GetAuthorizedAccounts(context.Context, string) ([]string, error) {
	return nil, accesscontrol.ErrGrantNotFound
}

func signToken(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func TestAuthAcceptsValidToken(t *testing.T) {
	auth := app.NewAuthService(noGrants{}, accesscontrol.DefaultClaimNames(), logger.NewNop())
	var captured *accesscontrol.AuthenticatedUser
	handler := Auth(auth, testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = UserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	token := signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{
		"username":      "alice",
		"custom:groups": []any{"Admin"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/findings/search", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, "alice", captured.Username)
	assert.Equal(t, []accesscontrol.Role{accesscontrol.RoleAdmin}, captured.Groups)
}

func TestAuthRejects(t *testing.T) {
	auth := app.NewAuthService(noGrants{}, accesscontrol.DefaultClaimNames(), logger.NewNop())
	handler := Auth(auth, testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer token", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong key", "Bearer " + func() string {
			raw, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"username": "x", "custom:groups": "Admin"}).SignedString([]byte("other-secret"))
			return raw
		}()},
		{"claims without groups", "Bearer " + signToken(t, jwt.SigningMethodHS256, jwt.MapClaims{"username": "alice"})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/findings/search", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuthRejectsUnsignedAlgorithm(t *testing.T) {
	auth := app.NewAuthService(noGrants{}, accesscontrol.DefaultClaimNames(), logger.NewNop())
	handler := Auth(auth, testSecret)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"username":      "alice",
		"custom:groups": "Admin",
	})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/findings/search", nil)
	req.Header.Set("Authorization", "Bearer "+raw)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
