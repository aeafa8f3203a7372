package auth

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/repository"
	"github.com/fizanakara/membership-engine/pkg/response"
)

type contextKey struct{}

// Principal is the authenticated admin attached to a request.
type Principal struct {
	AdminID string
	Email   string
	Role    domain.Role
}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

func PrincipalFrom(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(contextKey{}).(*Principal)
	return p, ok && p != nil
}

type Middleware struct {
	jwt    *JWTManager
	admins repository.AdminRepository
}

func NewMiddleware(jwt *JWTManager, admins repository.AdminRepository) *Middleware {
	return &Middleware{jwt: jwt, admins: admins}
}

// Authenticate verifies the bearer token and loads the admin it names.
func (m *Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			response.Unauthorized(w, "missing bearer token")
			return
		}

		claims, err := m.jwt.Parse(tokenString)
		if err != nil {
			slog.Debug("rejected access token", "error", err)
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		admin, err := m.admins.GetByID(r.Context(), claims.AdminID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				response.Unauthorized(w, "unknown admin")
				return
			}
			response.InternalServerError(w, "failed to load admin", err)
			return
		}
		if !strings.EqualFold(admin.Email, claims.Subject) {
			response.Unauthorized(w, "invalid or expired token")
			return
		}

		principal := &Principal{AdminID: admin.ID, Email: admin.Email, Role: admin.Role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// RequireRole rejects principals holding none of roles.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := PrincipalFrom(r.Context())
			if !ok {
				response.Unauthorized(w, "authentication required")
				return
			}
			for _, role := range roles {
				if principal.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			response.Forbidden(w, "insufficient role")
		})
	}
}
