package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func sign(t *testing.T, method jwt.SigningMethod, key interface{}, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return s
}

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", AccessTokenMiddleware(secret), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userId": c.MustGet("userId").(uint)})
	})
	r.GET("/admin", AccessTokenMiddleware(secret), AdminMiddleware(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func call(r http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAccessTokenMiddleware(t *testing.T) {
	r := newRouter()
	valid := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{
		"userId": 42, "role": "user", "exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name  string
		token string
		code  int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"valid", valid, http.StatusOK},
		{"wrong secret", sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"userId": 42}), http.StatusForbidden},
		{"expired", sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": 42, "exp": time.Now().Add(-time.Hour).Unix()}), http.StatusForbidden},
		{"no user id", sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"role": "user"}), http.StatusUnauthorized},
		{"garbage", "not-a-jwt", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := call(r, "/me", tt.token)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	w := call(r, "/me", valid)
	assert.JSONEq(t, `{"userId":42}`, w.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	r := newRouter()

	user := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": 1, "role": "user"})
	assert.Equal(t, http.StatusForbidden, call(r, "/admin", user).Code)

	admin := sign(t, jwt.SigningMethodHS256, []byte(secret), jwt.MapClaims{"userId": 1, "role": "admin"})
	assert.Equal(t, http.StatusNoContent, call(r, "/admin", admin).Code)
}
