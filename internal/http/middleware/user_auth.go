package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/wolfman30/doctorhome/internal/directory"
	"github.com/wolfman30/doctorhome/internal/identity"
)

// UserClaims are the claims carried by caller tokens. Subject is the user id.
type UserClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserJWT validates an HMAC-signed bearer token and stores the caller's
// principal in the request context.
func UserJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				http.Error(w, "user auth disabled", http.StatusUnauthorized)
				return
			}
			auth := r.Header.Get("Authorization")
			if auth == "" || !strings.HasPrefix(auth, "Bearer ") {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}
			claims := UserClaims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(auth, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			principal := identity.Principal{
				UserID: strings.TrimSpace(claims.Subject),
				Role:   directory.Role(strings.ToLower(strings.TrimSpace(claims.Role))),
			}
			ctx := identity.WithPrincipal(r.Context(), principal)
			if _, ok := identity.PrincipalFromContext(ctx); !ok {
				http.Error(w, "token missing subject or role", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
