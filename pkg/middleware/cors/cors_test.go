package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/hostel-out-api/pkg/config"
)

func newRouter(origins ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(config.CORSConfig{AllowedOrigins: origins}))
	r.GET("/notices", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAllowedOriginIsEchoed(t *testing.T) {
	r := newRouter("https://hostel.example.com/")
	req := httptest.NewRequest(http.MethodGet, "/notices", nil)
	req.Header.Set("Origin", "https://hostel.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "https://hostel.example.com", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/notices", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestPreflightShortCircuits(t *testing.T) {
	r := newRouter()
	req := httptest.NewRequest(http.MethodOptions, "/notices", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
