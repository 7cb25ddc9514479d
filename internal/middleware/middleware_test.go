package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/siakad-krs-api/internal/models"
	"github.com/noah-isme/siakad-krs-api/internal/service"
	appErrors "github.com/noah-isme/siakad-krs-api/pkg/errors"
)

type stubValidator struct {
	claims *models.JWTClaims
}

func (s stubValidator) ValidateToken(token string) (*models.JWTClaims, error) {
	if token != "good" {
		return nil, appErrors.ErrUnauthorized
	}
	return s.claims, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	handlers = append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/students/:studentId/krs", handlers...)
	return r
}

func do(r http.Handler, path, auth string) int {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func TestJWT(t *testing.T) {
	r := newRouter(JWT(stubValidator{claims: &models.JWTClaims{UserID: "u1", Role: models.RoleAdmin}}))

	assert.Equal(t, http.StatusUnauthorized, do(r, "/students/stu-1/krs", ""))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/students/stu-1/krs", "Token good"))
	assert.Equal(t, http.StatusUnauthorized, do(r, "/students/stu-1/krs", "Bearer bad"))
	assert.Equal(t, http.StatusOK, do(r, "/students/stu-1/krs", "Bearer good"))
}

func TestRBACSelfAccess(t *testing.T) {
	student := &models.JWTClaims{UserID: "u2", Role: models.RoleStudent, StudentID: "stu-1"}
	r := newRouter(JWT(stubValidator{claims: student}), RBAC(string(models.RoleAdmin), SelfAccess))

	assert.Equal(t, http.StatusOK, do(r, "/students/stu-1/krs", "Bearer good"))
	assert.Equal(t, http.StatusForbidden, do(r, "/students/stu-2/krs", "Bearer good"))

	adminOnly := newRouter(JWT(stubValidator{claims: student}), RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, do(adminOnly, "/students/stu-1/krs", "Bearer good"))

	noClaims := newRouter(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, do(noClaims, "/students/stu-1/krs", ""))
}

func TestMetricsMiddleware(t *testing.T) {
	metrics := service.NewMetricsService()
	r := newRouter(Metrics(metrics))
	require.Equal(t, http.StatusOK, do(r, "/students/stu-1/krs", ""))

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `path="/students/:studentId/krs"`)

	nilRouter := newRouter(Metrics(nil))
	assert.Equal(t, http.StatusOK, do(nilRouter, "/students/stu-1/krs", ""))
}
