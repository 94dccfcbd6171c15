package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"discovery/internal/model"
	"discovery/internal/service"
)

type contextKey string

const (
	IdentityKey  contextKey = "identity"
	RequestIDKey contextKey = "requestId"
)

// Gateway identity headers, honoured only when trusted headers are enabled
const (
	HeaderUserID    = "X-User-Id"
	HeaderUserEmail = "X-User-Email"
	HeaderUserName  = "X-User-Name"
)

// AuthMiddleware resolves the caller identity
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireUser resolves the identity from a bearer JWT, or from gateway
// headers when those are trusted
func (m *AuthMiddleware) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			id  *model.Identity
			err error
		)
		if token := extractBearerToken(r); token != "" && m.authSvc.TokensEnabled() {
			id, err = m.authSvc.ValidateToken(token)
		} else if m.authSvc.TrustHeaders() {
			id, err = service.ResolveIdentity(
				r.Header.Get(HeaderUserID),
				r.Header.Get(HeaderUserEmail),
				r.Header.Get(HeaderUserName),
			)
		} else {
			writeError(w, http.StatusUnauthorized, "missing authorization header")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		id.UserAgent = r.UserAgent()
		ctx := context.WithValue(r.Context(), IdentityKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin rejects identities outside the admin domains. It must run after RequireUser.
func (m *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := GetIdentity(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		if !m.authSvc.IsAdmin(id.Email) {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetIdentity extracts the caller identity from context
func GetIdentity(ctx context.Context) (*model.Identity, bool) {
	id, ok := ctx.Value(IdentityKey).(*model.Identity)
	return id, ok && id != nil
}

// GetRequestID extracts the request id from context
func GetRequestID(ctx context.Context) string {
	if v, ok := ctx.Value(RequestIDKey).(string); ok {
		return v
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
