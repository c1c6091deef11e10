package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, secret string, claims IdentityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims() IdentityClaims {
	return IdentityClaims{
		Email: "owner@shop.test",
		Admin: true,
		Role:  "merchant",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u1",
			Issuer:    "identity",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

type captured struct {
	userID string
	bearer string
	claims domain.Claims
	called bool
}

func captureHandler(c *captured) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.called = true
		c.userID = domain.GetUserIDFromContext(r.Context())
		c.bearer = domain.GetBearerTokenFromContext(r.Context())
		c.claims = domain.GetClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "identity", zerolog.Nop())
	token := signToken(t, testSecret, validClaims())
	var c captured

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	m.Handler(captureHandler(&c)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", c.userID)
	assert.Equal(t, token, c.bearer)
	assert.True(t, c.claims.Admin)
	assert.Equal(t, "owner@shop.test", c.claims.Email)
}

func TestAuthMiddleware_NoHeaderContinuesAnonymous(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "", zerolog.Nop())
	var c captured

	rec := httptest.NewRecorder()
	m.Handler(captureHandler(&c)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/access", nil))

	assert.True(t, c.called)
	assert.Empty(t, c.userID)
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	expired := validClaims()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	wrongIssuer := validClaims()
	wrongIssuer.Issuer = "someone-else"
	noSubject := validClaims()
	noSubject.Subject = ""

	tests := []struct {
		name   string
		header string
	}{
		{"malformed header", "Token abc"},
		{"empty bearer", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", validClaims())},
		{"expired", "Bearer " + signToken(t, testSecret, expired)},
		{"wrong issuer", "Bearer " + signToken(t, testSecret, wrongIssuer)},
		{"no subject", "Bearer " + signToken(t, testSecret, noSubject)},
	}
	m := NewAuthMiddleware(testSecret, "identity", zerolog.Nop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c captured
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			m.Handler(captureHandler(&c)).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.False(t, c.called)
		})
	}
}

func TestAuthMiddleware_UserIDClaimFallback(t *testing.T) {
	claims := validClaims()
	claims.Subject = ""
	claims.UserID = "legacy-user"
	m := NewAuthMiddleware(testSecret, "", zerolog.Nop())

	parsed, err := m.ValidateToken(signToken(t, testSecret, claims))

	require.NoError(t, err)
	assert.Equal(t, "legacy-user", parsed.ResolvedUserID())
}

func TestAuthMiddleware_RejectsOtherAlgorithms(t *testing.T) {
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS384, validClaims()).SignedString([]byte(testSecret))
	require.NoError(t, err)
	m := NewAuthMiddleware(testSecret, "", zerolog.Nop())

	_, err = m.ValidateToken(token)

	assert.Error(t, err)
}

func TestRequireUser(t *testing.T) {
	var c captured
	h := RequireUser(captureHandler(&c))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, c.called)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(domain.WithUserID(req.Context(), "u1"))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBearerSource(t *testing.T) {
	_, err := BearerSource{}.BearerToken(context.Background())
	assert.Error(t, err)

	token, err := BearerSource{}.BearerToken(domain.WithBearerToken(context.Background(), "id-token"))
	require.NoError(t, err)
	assert.Equal(t, "id-token", token)
}
