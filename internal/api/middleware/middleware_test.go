package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newEngine(cfg AuthConfig) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID(), APIKeyAuth(cfg, zap.NewNop()))
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, RequestIDFrom(c)) })
	return r
}

func TestAPIKeyAuth(t *testing.T) {
	cfg := AuthConfig{Enabled: true, APIKeys: []string{"sk_test_123456789"}}

	tests := []struct {
		name   string
		header map[string]string
		want   int
	}{
		{"缺少Key", nil, http.StatusUnauthorized},
		{"无效Key", map[string]string{"X-API-Key": "wrong"}, http.StatusForbidden},
		{"X-API-Key", map[string]string{"X-API-Key": "sk_test_123456789"}, http.StatusOK},
		{"Bearer", map[string]string{"Authorization": "Bearer sk_test_123456789"}, http.StatusOK},
	}
	r := newEngine(cfg)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)
			assert.Equal(t, tt.want, rr.Code)
		})
	}
}

func TestAPIKeyAuth_Disabled(t *testing.T) {
	r := newEngine(AuthConfig{})
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestID(t *testing.T) {
	r := newEngine(AuthConfig{})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set(RequestIDHeader, "req-1")
	r.ServeHTTP(rr, req)
	assert.Equal(t, "req-1", rr.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-1", rr.Body.String())

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/ping", nil))
	generated := rr.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, rr.Body.String())
}

func TestMaskAPIKey(t *testing.T) {
	assert.Equal(t, "****", maskAPIKey("short"))
	assert.Equal(t, "sk_t****6789", maskAPIKey("sk_test_123456789"))
}
