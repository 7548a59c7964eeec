package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Dan9191/cofrinho-service/internal/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sign(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(method, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuthMiddleware(t *testing.T) {
	cfg := &config.Config{JWTSecret: "secret"}
	var subject string
	h := AuthMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = r.Context().Value(SubjectKey).(string)
		w.WriteHeader(http.StatusNoContent)
	}))

	cases := map[string]struct {
		header string
		status int
	}{
		"missing":      {"", http.StatusUnauthorized},
		"not bearer":   {"Basic abc", http.StatusUnauthorized},
		"garbage":      {"Bearer abc.def.ghi", http.StatusUnauthorized},
		"wrong secret": {"Bearer " + sign(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		"expired":      {"Bearer " + sign(t, "secret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour)), http.StatusUnauthorized},
		"wrong method": {"Bearer " + sign(t, "secret", jwt.SigningMethodHS512, time.Now().Add(time.Hour)), http.StatusUnauthorized},
		"valid":        {"Bearer " + sign(t, "secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour)), http.StatusNoContent},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/rates/refresh", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			assert.Equal(t, tc.status, w.Code)
		})
	}
	assert.Equal(t, "admin", subject)
}
