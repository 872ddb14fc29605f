package auth

import (
	"context"
	"net/http"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
	CookieName     string     = "solarview_token"
)

// Middleware handles authentication for protected routes
type Middleware struct {
	jwtManager *JWTManager
}

// NewMiddleware creates new auth middleware
func NewMiddleware(jwtManager *JWTManager) *Middleware {
	return &Middleware{jwtManager: jwtManager}
}

// RequireAuth middleware checks for valid JWT token
func (m *Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(CookieName)
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		claims, err := m.jwtManager.ValidateToken(cookie.Value)
		if err != nil {
			ClearAuthCookie(w)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		user := &User{
			Username: claims.Username,
			UID:      claims.UID,
			Role:     claims.Role,
		}
		next.ServeHTTP(w, r.WithContext(SetUserContext(r.Context(), user)))
	})
}

// RequireAdmin middleware checks for admin role. Control settings can only
// be changed by admins; read-only users still see the dashboard.
func (m *Middleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := GetUserFromContext(r.Context())
		if user == nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		if !user.IsAdmin() {
			http.Error(w, "Forbidden: admin access required", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// GetUserFromContext extracts user from request context
func GetUserFromContext(ctx context.Context) *User {
	user, ok := ctx.Value(UserContextKey).(*User)
	if !ok {
		return nil
	}
	return user
}

// SetUserContext adds user to context
func SetUserContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// SetAuthCookie sets JWT token in HttpOnly cookie.
// The Secure flag follows how the request arrived (direct TLS or proxy).
func SetAuthCookie(w http.ResponseWriter, r *http.Request, token string, maxAge int) {
	secure := r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   secure,
	})
}

// ClearAuthCookie removes auth cookie
func ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
