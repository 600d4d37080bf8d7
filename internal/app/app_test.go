package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mentor_lms_backend/internal/config"
	"mentor_lms_backend/internal/model"
	"mentor_lms_backend/internal/testutil"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type apiResponse struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type client struct {
	t      *testing.T
	router *gin.Engine
}

func (c *client) do(method, path, token string, body interface{}) (int, apiResponse) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	c.router.ServeHTTP(w, req)

	var resp apiResponse
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "" {
		_ = json.Unmarshal(w.Body.Bytes(), &resp)
	}
	return w.Code, resp
}

func (c *client) login(email, password string) string {
	c.t.Helper()
	code, resp := c.do(http.MethodPost, "/api/login", "", gin.H{"email": email, "password": password})
	require.Equal(c.t, http.StatusOK, code, resp.Message)
	var data struct {
		Token string `json:"token"`
	}
	require.NoError(c.t, json.Unmarshal(resp.Data, &data))
	return data.Token
}

func decodeID(t *testing.T, raw json.RawMessage) uint {
	t.Helper()
	var v struct {
		ID uint `json:"id"`
	}
	require.NoError(t, json.Unmarshal(raw, &v))
	return v.ID
}

func newTestApp(t *testing.T) *client {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.OpenTestDB(t)

	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, db.Create(&model.User{Name: "Admin", Email: "admin@example.com", Password: string(hash), Role: model.Admin}).Error)

	cfg := &config.Config{
		Server:      config.ServerConfig{Mode: "debug"},
		JWT:         config.JWTConfig{Secret: "integration-secret", ExpireTime: time.Hour},
		Storage:     config.StorageConfig{Type: "local", LocalPath: t.TempDir()},
		RateLimit:   config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
		Certificate: config.CertificateConfig{NumberPrefix: "IT", IssuerName: "Mentor LMS"},
	}
	a := build(cfg, db, nil)
	return &client{t: t, router: a.Router}
}

func TestEndToEndCompletionFlow(t *testing.T) {
	c := newTestApp(t)
	admin := c.login("admin@example.com", "admin-pass")

	code, resp := c.do(http.MethodPost, "/api/admin/users", admin, gin.H{"name": "Mia", "email": "mia@example.com", "password": "mentor-pass", "role": "mentor"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	code, resp = c.do(http.MethodPost, "/api/admin/users", admin, gin.H{"name": "Sam", "email": "sam@example.com", "password": "student-pass", "role": "student"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	studentID := decodeID(t, resp.Data)

	mentor := c.login("mia@example.com", "mentor-pass")
	student := c.login("sam@example.com", "student-pass")

	code, resp = c.do(http.MethodPost, "/api/mentor/courses", mentor, gin.H{"title": "Go"})
	require.Equal(t, http.StatusCreated, code)
	courseID := decodeID(t, resp.Data)

	chapterIDs := make([]uint, 0, 3)
	for _, title := range []string{"intro", "types", "funcs"} {
		code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/mentor/courses/%d/chapters", courseID), mentor, gin.H{"title": title})
		require.Equal(t, http.StatusCreated, code)
		chapterIDs = append(chapterIDs, decodeID(t, resp.Data))
	}

	// 未分配课程
	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/student/chapters/%d/complete", chapterIDs[0]), student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/mentor/courses/%d/enrollments", courseID), mentor, gin.H{"studentId": studentID})
	require.Equal(t, http.StatusCreated, code)

	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/student/chapters/%d/complete", chapterIDs[1]), student, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "previous chapter not completed", resp.Message)
	var details map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &details))
	assert.EqualValues(t, chapterIDs[0], details["requiredChapterId"])

	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/student/courses/%d/certificate", courseID), student, nil)
	assert.Equal(t, http.StatusConflict, code)

	for i, id := range chapterIDs {
		code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/student/chapters/%d/complete", id), student, nil)
		require.Equal(t, http.StatusOK, code, resp.Message)
		var res struct {
			CompletedChapters int  `json:"completedChapters"`
			TotalChapters     int  `json:"totalChapters"`
			IsComplete        bool `json:"isComplete"`
		}
		require.NoError(t, json.Unmarshal(resp.Data, &res))
		assert.Equal(t, i+1, res.CompletedChapters)
		assert.Equal(t, 3, res.TotalChapters)
		assert.Equal(t, i == 2, res.IsComplete)
	}

	code, resp = c.do(http.MethodGet, fmt.Sprintf("/api/student/progress/%d", courseID), student, nil)
	require.Equal(t, http.StatusOK, code)
	var snapshot model.CompletionSnapshot
	require.NoError(t, json.Unmarshal(resp.Data, &snapshot))
	assert.Equal(t, 100, snapshot.CompletionPercentage)
	assert.Len(t, snapshot.Chapters, 3)

	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/student/courses/%d/certificate", courseID), student, nil)
	require.Equal(t, http.StatusCreated, code, resp.Message)
	var issued struct {
		Certificate model.Certificate `json:"certificate"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &issued))

	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/student/courses/%d/certificate", courseID), student, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = c.do(http.MethodGet, "/api/certificates/verify/"+issued.Certificate.CertificateNumber, "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, resp = c.do(http.MethodGet, fmt.Sprintf("/api/mentor/progress?courseId=%d", courseID), mentor, nil)
	require.Equal(t, http.StatusOK, code)
	var list []map[string]interface{}
	require.NoError(t, json.Unmarshal(resp.Data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, true, list[0]["isComplete"])

	code, _ = c.do(http.MethodDelete, fmt.Sprintf("/api/mentor/courses/%d/chapters/%d", courseID, chapterIDs[2]), mentor, nil)
	assert.Equal(t, http.StatusConflict, code)
}

func TestRoutesRequireAuthAndRole(t *testing.T) {
	c := newTestApp(t)

	code, _ := c.do(http.MethodGet, "/api/student/progress", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodGet, "/api/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	admin := c.login("admin@example.com", "admin-pass")
	code, _ = c.do(http.MethodPost, "/api/admin/users", admin, gin.H{"name": "S", "email": "s@example.com", "password": "student-pass", "role": "student"})
	require.Equal(t, http.StatusCreated, code)
	student := c.login("s@example.com", "student-pass")

	code, _ = c.do(http.MethodGet, "/api/mentor/courses", student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodPost, "/api/student/chapters/999/complete", student, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = c.do(http.MethodPost, "/api/login", "", gin.H{"email": "s@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestDisabledAccountLosesAccessWithExistingToken(t *testing.T) {
	c := newTestApp(t)
	admin := c.login("admin@example.com", "admin-pass")

	code, resp := c.do(http.MethodPost, "/api/admin/users", admin, gin.H{"name": "Mia", "email": "mia@example.com", "password": "mentor-pass", "role": "mentor"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	code, resp = c.do(http.MethodPost, "/api/admin/users", admin, gin.H{"name": "Sam", "email": "sam@example.com", "password": "student-pass", "role": "student"})
	require.Equal(t, http.StatusCreated, code, resp.Message)
	studentID := decodeID(t, resp.Data)

	mentor := c.login("mia@example.com", "mentor-pass")
	student := c.login("sam@example.com", "student-pass")

	code, resp = c.do(http.MethodPost, "/api/mentor/courses", mentor, gin.H{"title": "Go"})
	require.Equal(t, http.StatusCreated, code)
	courseID := decodeID(t, resp.Data)
	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/mentor/courses/%d/chapters", courseID), mentor, gin.H{"title": "intro"})
	require.Equal(t, http.StatusCreated, code)
	chapterID := decodeID(t, resp.Data)
	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/mentor/courses/%d/enrollments", courseID), mentor, gin.H{"studentId": studentID})
	require.Equal(t, http.StatusCreated, code)

	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/disable", studentID), admin, gin.H{"disabled": true})
	require.Equal(t, http.StatusOK, code, resp.Message)

	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/student/chapters/%d/complete", chapterID), student, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/student/courses/%d/certificate", courseID), student, nil)
	assert.Equal(t, http.StatusForbidden, code)
	code, _ = c.do(http.MethodGet, "/api/profile", student, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = c.do(http.MethodPost, fmt.Sprintf("/api/admin/users/%d/disable", studentID), admin, gin.H{"disabled": false})
	require.Equal(t, http.StatusOK, code)
	code, resp = c.do(http.MethodPost, fmt.Sprintf("/api/student/chapters/%d/complete", chapterID), student, nil)
	assert.Equal(t, http.StatusOK, code, resp.Message)
}
