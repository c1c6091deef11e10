package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"archie-core-merchant-onboarding/internal/domain"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
)

var errMissingBearer = errors.New("missing bearer credential")

// IdentityClaims are the ID token claims the service reads
type IdentityClaims struct {
	UserID     string `json:"user_id,omitempty"`
	Email      string `json:"email,omitempty"`
	Admin      bool   `json:"admin,omitempty"`
	SuperAdmin bool   `json:"superAdmin,omitempty"`
	Role       string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// ResolvedUserID returns the user id, preferring the standard sub claim
func (c *IdentityClaims) ResolvedUserID() string {
	if c.RegisteredClaims.Subject != "" {
		return c.RegisteredClaims.Subject
	}
	return c.UserID
}

// AuthMiddleware verifies the identity provider's ID token.
// Requests without a token continue unauthenticated; a present but invalid token is rejected.
type AuthMiddleware struct {
	secret []byte
	issuer string
	logger zerolog.Logger
}

// NewAuthMiddleware creates a new authentication middleware for HS256 ID tokens
func NewAuthMiddleware(secret string, issuer string, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		issuer: issuer,
		logger: logger,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			next.ServeHTTP(w, r)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
			writeUnauthorized(w, "Invalid Authorization header format")
			return
		}

		claims, err := m.ValidateToken(parts[1])
		if err != nil {
			m.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Token validation failed")
			writeUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx := domain.WithUserID(r.Context(), claims.ResolvedUserID())
		ctx = domain.WithBearerToken(ctx, parts[1])
		ctx = domain.WithClaims(ctx, domain.Claims{
			Admin:      claims.Admin,
			SuperAdmin: claims.SuperAdmin,
			Role:       claims.Role,
			Email:      claims.Email,
		})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ValidateToken parses and verifies a token
func (m *AuthMiddleware) ValidateToken(tokenString string) (*IdentityClaims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if m.issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (interface{}, error) {
		return m.secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*IdentityClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.ResolvedUserID() == "" {
		return nil, jwt.ErrTokenInvalidSubject
	}
	return claims, nil
}

// RequireUser rejects requests that carry no verified identity
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if domain.GetUserIDFromContext(r.Context()) == "" {
			writeUnauthorized(w, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerSource forwards the caller's verified ID token to downstream calls
type BearerSource struct{}

// BearerToken returns the caller's raw ID token
func (BearerSource) BearerToken(ctx context.Context) (string, error) {
	token := domain.GetBearerTokenFromContext(ctx)
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
