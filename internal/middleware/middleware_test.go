package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-out-api/internal/models"
	"github.com/noah-isme/hostel-out-api/internal/service"
	appErrors "github.com/noah-isme/hostel-out-api/pkg/errors"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

type auditRecorder struct {
	logs []*models.AuditLog
}

func (a *auditRecorder) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func newRouter(tokens validatorStub) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(JWT(tokens))
	return r
}

func do(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTMiddleware(t *testing.T) {
	tokens := validatorStub{
		"good":  {UserID: "s1", Role: models.RoleStudent},
		"alien": {UserID: "x", Role: "ADMIN"},
	}
	r := newRouter(tokens)
	r.GET("/me", func(c *gin.Context) {
		claims, ok := Claims(c)
		require.True(t, ok)
		c.String(http.StatusOK, claims.UserID)
	})

	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "bad").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/me", "alien").Code)

	w := do(r, http.MethodGet, "/me", "good")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "s1", w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Token good")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRBACSelfAndRoles(t *testing.T) {
	tokens := validatorStub{
		"student": {UserID: "s1", Role: models.RoleStudent},
		"teacher": {UserID: "t1", Role: models.RoleTeacher},
	}
	r := newRouter(tokens)
	ok := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	r.GET("/students/:id", RBAC(string(models.RoleTeacher), string(models.RoleWarden), Self), ok)
	r.GET("/leaves/student/:studentId", RBACParam("studentId", string(models.RoleWarden), Self), ok)
	r.GET("/wardens-only", RequireRoles(models.RoleWarden), ok)

	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/students/s1", "student").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/students/s2", "student").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/students/s2", "teacher").Code)
	assert.Equal(t, http.StatusNoContent, do(r, http.MethodGet, "/leaves/student/s1", "student").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/leaves/student/s1", "teacher").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/wardens-only", "teacher").Code)
}

func TestAuditRecordsSuccessfulRequestsOnly(t *testing.T) {
	tokens := validatorStub{"warden": {UserID: "w1", Role: models.RoleWarden}}
	recorder := &auditRecorder{}
	r := newRouter(tokens)
	r.PATCH("/complaints/:id/status", Audit(recorder, "COMPLAINT_STATUS_UPDATE", "complaints", "id"), func(c *gin.Context) {
		if c.Param("id") == "bad" {
			c.Status(http.StatusNotFound)
			return
		}
		c.Status(http.StatusOK)
	})

	do(r, http.MethodPatch, "/complaints/c1/status", "warden")
	do(r, http.MethodPatch, "/complaints/bad/status", "warden")

	require.Len(t, recorder.logs, 1)
	assert.Equal(t, "w1", *recorder.logs[0].UserID)
	assert.Equal(t, "c1", *recorder.logs[0].ResourceID)
	assert.Equal(t, "complaints", recorder.logs[0].Resource)
}

func TestResponseMetaAndCacheHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(WithResponseMeta())
	var meta map[string]interface{}
	r.GET("/notices", func(c *gin.Context) {
		SetCacheHit(c, true)
		meta = ExtractMeta(c)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notices", nil))
	assert.Equal(t, "HIT", w.Header().Get(CacheHeader))
	assert.Equal(t, true, meta[cacheHitKey])
}

func TestMetricsMiddlewareLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	r := gin.New()
	r.Use(Metrics(metrics))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/random/123", nil))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `http_requests_total{method="GET",path="/health",status="200"} 1`)
	assert.Contains(t, w.Body.String(), `path="unmatched"`)
	assert.NotContains(t, w.Body.String(), "/random/123")
}
