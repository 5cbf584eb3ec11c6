package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/hexacorn/hexacorn-api/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubMaintenance struct {
	enabled bool
	message string
	err     error
}

func (s *stubMaintenance) Maintenance(ctx context.Context) (bool, string, error) {
	return s.enabled, s.message, s.err
}

func performRequest(handlers ...gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	chain := append(handlers, func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST("/resource/:id", chain...)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/resource/target-1", nil)
	r.ServeHTTP(w, req)
	return w
}

func withClaims(claims *models.JWTClaims) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(ContextUserKey, claims)
		c.Next()
	}
}

func TestMaintenanceBlocksNonAdmin(t *testing.T) {
	settings := &stubMaintenance{enabled: true, message: "back soon"}

	w := performRequest(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleCR}), Maintenance(settings))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "back soon")
}

func TestMaintenanceAdminBypass(t *testing.T) {
	settings := &stubMaintenance{enabled: true}

	w := performRequest(withClaims(&models.JWTClaims{UserID: "a1", Role: models.RoleAdmin}), Maintenance(settings))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaintenanceFailsOpenOnError(t *testing.T) {
	settings := &stubMaintenance{err: errors.New("settings unavailable")}

	w := performRequest(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}), Maintenance(settings))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMaintenanceOff(t *testing.T) {
	w := performRequest(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}), Maintenance(&stubMaintenance{}))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequirePasswordChanged(t *testing.T) {
	w := performRequest(withClaims(&models.JWTClaims{UserID: "cr1", Role: models.RoleCR, MustChangePassword: true}), RequirePasswordChanged())
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "MUST_CHANGE_PASSWORD")

	w = performRequest(withClaims(&models.JWTClaims{UserID: "cr1", Role: models.RoleCR}), RequirePasswordChanged())
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireRoles(t *testing.T) {
	guard := RequireRoles(models.RoleAdmin, models.RoleCR)

	w := performRequest(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleStudent}), guard)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(withClaims(&models.JWTClaims{UserID: "u1", Role: models.RoleCR}), guard)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRBACSelfAccess(t *testing.T) {
	guard := RBAC("admin", "SELF")

	w := performRequest(withClaims(&models.JWTClaims{UserID: "target-1", Role: models.RoleStudent}), guard)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(withClaims(&models.JWTClaims{UserID: "someone-else", Role: models.RoleStudent}), guard)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGuardsRejectMissingClaims(t *testing.T) {
	w := performRequest(RequireRoles(models.RoleAdmin))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(RequirePasswordChanged())
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
