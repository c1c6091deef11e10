package domain

import "context"

// contextKey is a type for context keys to avoid collisions
type contextKey string

const (
	userIDKey      contextKey = "user_id"
	bearerTokenKey contextKey = "bearer_token"
	claimsKey      contextKey = "claims"
)

// WithUserID stores the authenticated user id
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserIDFromContext returns the authenticated user id or ""
func GetUserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

// WithBearerToken stores the caller's raw ID token for forwarding to the backend
func WithBearerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, bearerTokenKey, token)
}

// GetBearerTokenFromContext returns the caller's raw ID token or ""
func GetBearerTokenFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(bearerTokenKey).(string); ok {
		return v
	}
	return ""
}

// WithClaims stores the display claims of the caller
func WithClaims(ctx context.Context, claims Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext returns the caller's display claims
func GetClaimsFromContext(ctx context.Context) Claims {
	if v, ok := ctx.Value(claimsKey).(Claims); ok {
		return v
	}
	return Claims{}
}

// SubjectFromContext builds the access engine subject for the caller
func SubjectFromContext(ctx context.Context) Subject {
	userID := GetUserIDFromContext(ctx)
	return Subject{UserID: userID, Authenticated: userID != ""}
}
