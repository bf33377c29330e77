package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"chatcore/pkg/config"
)

const testSecret = "test-secret"

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func signToken(t *testing.T, secret string, claims IdentityClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func validClaims(subject string) IdentityClaims {
	return IdentityClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

// authedChain runs metadata then auth, then hands the metadata to the
// callback so tests can inspect what auth resolved.
func authedChain(inspect func(*RequestMetadata)) http.Handler {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqMeta, _ := ReqMetadataFrom(r.Context())
		if inspect != nil {
			inspect(reqMeta)
		}
		w.WriteHeader(http.StatusOK)
	})
	return Chain(inner,
		RequestMetadataMiddleware(),
		NewAuthMiddleware(quietLogger(), testSecret),
	)
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	var seen *RequestMetadata
	h := authedChain(func(m *RequestMetadata) { seen = m })

	token := signToken(t, testSecret, validClaims("user-1"))
	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, seen)
	require.Equal(t, "user-1", seen.UserID)
	require.Equal(t, "user@example.com", seen.Email)
}

func TestAuthAcceptsBearerHeader(t *testing.T) {
	var seen *RequestMetadata
	h := authedChain(func(m *RequestMetadata) { seen = m })

	token := signToken(t, testSecret, validClaims("user-2"))
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user-2", seen.UserID)
}

func TestAuthRejectsMissingToken(t *testing.T) {
	h := authedChain(nil)
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	h := authedChain(nil)
	claims := validClaims("user-1")
	claims.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	token := signToken(t, testSecret, claims)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	h := authedChain(nil)
	token := signToken(t, "other-secret", validClaims("user-1"))

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsMissingSubject(t *testing.T) {
	h := authedChain(nil)
	token := signToken(t, testSecret, IdentityClaims{
		Email: "user@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAuthRejectsUnsignedToken(t *testing.T) {
	h := authedChain(nil)
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, validClaims("user-1")).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestConnectionLimiterModes(t *testing.T) {
	counts := map[string]int{"user-1": 2}
	cycled := ""

	limited := func(mode string) http.Handler {
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
		return Chain(inner,
			RequestMetadataMiddleware(),
			NewAuthMiddleware(quietLogger(), testSecret),
			NewConnectionLimiter(quietLogger(),
				func(userID string) int { return counts[userID] },
				func(userID string) { cycled = userID },
				config.ConnectionLimitConfig{MaxPerUser: 2, Mode: mode},
			),
		)
	}

	token := signToken(t, testSecret, validClaims("user-1"))

	rr := httptest.NewRecorder()
	limited("reject").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)

	rr = httptest.NewRecorder()
	limited("cycle").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "user-1", cycled)

	// Under the limit nothing is blocked.
	counts["user-1"] = 1
	rr = httptest.NewRecorder()
	limited("reject").ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil))
	require.Equal(t, http.StatusOK, rr.Code)
}
