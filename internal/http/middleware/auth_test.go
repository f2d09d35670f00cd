package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/docqa-backend/internal/platform/logger"
)

func signed(t *testing.T, method jwt.SigningMethod, key any, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func authRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	r := gin.New()
	r.Use(NewAuthMiddleware(log, "s3cret").RequireAuth())
	r.GET("/whoami", func(c *gin.Context) { c.String(http.StatusOK, ActingUser(c).String()) })
	return r
}

func TestRequireAuth(t *testing.T) {
	user := uuid.New()
	valid := jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	expired := jwt.RegisteredClaims{
		Subject:   user.String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}

	cases := []struct {
		name   string
		header string
		status int
	}{
		{name: "missing", header: "", status: http.StatusUnauthorized},
		{name: "valid", header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("s3cret"), valid), status: http.StatusOK},
		{name: "wrong key", header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("other"), valid), status: http.StatusUnauthorized},
		{name: "expired", header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("s3cret"), expired), status: http.StatusUnauthorized},
		{name: "wrong alg", header: "Bearer " + signed(t, jwt.SigningMethodHS512, []byte("s3cret"), valid), status: http.StatusUnauthorized},
		{name: "bad subject", header: "Bearer " + signed(t, jwt.SigningMethodHS256, []byte("s3cret"), jwt.RegisteredClaims{Subject: "bob"}), status: http.StatusUnauthorized},
	}
	r := authRouter(t)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status: want=%d got=%d body=%s", tc.status, rec.Code, rec.Body.String())
			}
			if tc.status == http.StatusOK && rec.Body.String() != user.String() {
				t.Fatalf("acting user: want=%s got=%s", user, rec.Body.String())
			}
		})
	}
}
