package jwt_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/north-cloud/metadata-search/infrastructure/jwt"
)

const testSecret = "s3cret"

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter() *gin.Engine {
	router := gin.New()
	router.Use(jwt.Middleware(testSecret))
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/v1/metadata-items", func(c *gin.Context) {
		claims, ok := jwt.GetClaims(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, claims.Subject)
	})
	return router
}

func sign(t *testing.T, method gojwt.SigningMethod, key any, exp time.Time) string {
	t.Helper()

	token := gojwt.NewWithClaims(method, jwt.Claims{RegisteredClaims: gojwt.RegisteredClaims{
		Subject:   "portal",
		ExpiresAt: gojwt.NewNumericDate(exp),
	}})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	valid := sign(t, gojwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(time.Hour))
	expired := sign(t, gojwt.SigningMethodHS256, []byte(testSecret), time.Now().Add(-time.Hour))
	wrongKey := sign(t, gojwt.SigningMethodHS256, []byte("other"), time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "health is open", path: "/health", status: http.StatusOK},
		{name: "missing header", path: "/api/v1/metadata-items", status: http.StatusUnauthorized, body: "missing authorization header"},
		{name: "not bearer", path: "/api/v1/metadata-items", header: "Basic abc", status: http.StatusUnauthorized, body: "invalid authorization header format"},
		{name: "expired", path: "/api/v1/metadata-items", header: "Bearer " + expired, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "wrong key", path: "/api/v1/metadata-items", header: "Bearer " + wrongKey, status: http.StatusUnauthorized, body: "invalid token"},
		{name: "valid", path: "/api/v1/metadata-items", header: "Bearer " + valid, status: http.StatusOK, body: "portal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.path, http.NoBody)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			newRouter().ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}
