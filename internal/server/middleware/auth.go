package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// IdentityClaims is the credential shape presented at connection time:
// registered claims (subject = user id, expiry) plus the email used for
// display fallback.
type IdentityClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// NewAuthMiddleware validates the short-lived credential presented with
// the upgrade request and attaches the identity to the request metadata.
// A bad, missing or expired token terminates the connection attempt; no
// partial connection state is created.
func NewAuthMiddleware(logger *slog.Logger, jwtSecret string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqMeta, ok := ReqMetadataFrom(r.Context())
			if !ok {
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			tokenString := bearerToken(r)
			if tokenString == "" {
				logger.Warn("missing credential token", slog.String("ip", reqMeta.IP))
				http.Error(w, "Missing token", http.StatusUnauthorized)
				return
			}

			token, err := jwt.ParseWithClaims(tokenString, &IdentityClaims{}, func(token *jwt.Token) (any, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, jwt.ErrSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !token.Valid {
				logger.Warn("invalid credential token", slog.String("ip", reqMeta.IP), slog.Any("error", err))
				http.Error(w, "Authentication failed", http.StatusUnauthorized)
				return
			}

			claims, ok := token.Claims.(*IdentityClaims)
			if !ok || claims.Subject == "" {
				logger.Warn("credential token missing subject", slog.String("ip", reqMeta.IP))
				http.Error(w, "Authentication failed", http.StatusUnauthorized)
				return
			}

			reqMeta.UserID = claims.Subject
			reqMeta.Email = claims.Email
			next.ServeHTTP(w, r)
		})
	}
}

// bearerToken extracts the credential from the `token` query parameter
// (the usual place for browser websocket clients) or an Authorization
// Bearer header.
func bearerToken(r *http.Request) string {
	if t := strings.TrimSpace(r.URL.Query().Get("token")); t != "" {
		return t
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}
