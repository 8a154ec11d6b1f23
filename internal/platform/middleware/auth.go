package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"vendorhub/pkg/requestcontext"
)

// Role distinguishes the two authenticated audiences.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleVendor Role = "vendor"
)

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	SubjectID string
	Role      Role
	Name      string
}

// JWTValidator defines the interface for validating bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

type contextKeySubjectID struct{}
type contextKeyRole struct{}

var (
	ContextKeySubjectID = contextKeySubjectID{}
	ContextKeyRole      = contextKeyRole{}
)

// GetSubjectID retrieves the authenticated principal's ID from the context.
// For vendor tokens this is the supplier ID; for admin tokens the admin ID.
func GetSubjectID(ctx context.Context) string {
	id, _ := ctx.Value(ContextKeySubjectID).(string)
	return id
}

// GetRole retrieves the authenticated role from the context.
func GetRole(ctx context.Context) Role {
	role, _ := ctx.Value(ContextKeyRole).(Role)
	return role
}

// RequireAuth validates the bearer token and requires one of the given roles.
func RequireAuth(validator JWTValidator, logger *slog.Logger, roles ...Role) func(http.Handler) http.Handler {
	allowed := make(map[Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			if len(allowed) > 0 && !allowed[claims.Role] {
				logger.WarnContext(ctx, "forbidden - role not allowed",
					"role", claims.Role,
					"request_id", requestID,
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden"}`))
				return
			}

			ctx = context.WithValue(ctx, ContextKeySubjectID, claims.SubjectID)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			ctx = requestcontext.WithActor(ctx, claims.SubjectID, claims.Name)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}
