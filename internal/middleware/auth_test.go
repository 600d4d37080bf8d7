package middleware

import (
	"context"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/util"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type userTable map[uint]*model.User

func (u userTable) FindByID(ctx context.Context, id uint) (*model.User, error) {
	user, ok := u[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return user, nil
}

func newRouter(cfg *config.Config, users UserLookup, roles ...model.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/private", AuthMiddleware(cfg, users), RoleMiddleware(roles...), func(c *gin.Context) {
		util.Success(c, util.GetUserFromContext(c).UserID)
	})
	return r
}

func request(t *testing.T, r *gin.Engine, token string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/private", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w.Code
}

func signFor(t *testing.T, id uint, role model.UserRole, ttl time.Duration) string {
	t.Helper()
	tok, err := util.GenerateJWT(&model.User{BaseModel: model.BaseModel{ID: id}, Role: role}, "secret", ttl)
	require.NoError(t, err)
	return tok
}

func TestAuthAndRoleMiddleware(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "secret"}}
	users := userTable{
		1: {BaseModel: model.BaseModel{ID: 1}, Role: model.Student},
		2: {BaseModel: model.BaseModel{ID: 2}, Role: model.Mentor},
		3: {BaseModel: model.BaseModel{ID: 3}, Role: model.Admin},
	}
	r := newRouter(cfg, users, model.Mentor)

	assert.Equal(t, http.StatusUnauthorized, request(t, r, ""))
	assert.Equal(t, http.StatusUnauthorized, request(t, r, "garbage"))
	assert.Equal(t, http.StatusForbidden, request(t, r, signFor(t, 1, model.Student, time.Hour)))
	assert.Equal(t, http.StatusOK, request(t, r, signFor(t, 2, model.Mentor, time.Hour)))
	assert.Equal(t, http.StatusOK, request(t, r, signFor(t, 3, model.Admin, time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, request(t, r, signFor(t, 2, model.Mentor, -time.Minute)))
}

func TestAuthMiddlewareUsesCurrentAccountState(t *testing.T) {
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "secret"}}
	users := userTable{
		2: {BaseModel: model.BaseModel{ID: 2}, Role: model.Mentor},
	}
	r := newRouter(cfg, users, model.Mentor)
	token := signFor(t, 2, model.Mentor, time.Hour)
	require.Equal(t, http.StatusOK, request(t, r, token))

	users[2].Disabled = true
	assert.Equal(t, http.StatusForbidden, request(t, r, token), "token issued before disabling is refused")

	users[2].Disabled = false
	users[2].Role = model.Student
	assert.Equal(t, http.StatusForbidden, request(t, r, token), "role comes from the account, not the token")

	delete(users, 2)
	assert.Equal(t, http.StatusUnauthorized, request(t, r, token))
}
