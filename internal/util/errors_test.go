package util

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppErrorMatchesKind(t *testing.T) {
	err := InvalidStateError("gate.Complete", "previous chapter not completed").
		WithDetail("requiredChapterId", uint(7))

	wrapped := fmt.Errorf("complete chapter: %w", err)
	assert.True(t, errors.Is(wrapped, ErrInvalidState))
	assert.False(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, "gate.Complete: previous chapter not completed", err.Error())
	assert.Equal(t, uint(7), err.Details["requiredChapterId"])
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{NotFoundError("op", "chapter not found"), http.StatusNotFound},
		{ForbiddenError("op", "not assigned to this course"), http.StatusForbidden},
		{InvalidStateError("op", "course incomplete"), http.StatusConflict},
		{InvalidInputError("op", "bad"), http.StatusBadRequest},
		{ErrInvalidCredentials, http.StatusUnauthorized},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StatusFor(tc.err), tc.err.Error())
	}
}

func TestRespondErrorIncludesDetails(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	RespondError(c, InvalidStateError("op", "previous chapter not completed").
		WithDetail("requiredChapterId", 3))

	require.Equal(t, http.StatusConflict, w.Code)
	var resp struct {
		Code    int                    `json:"code"`
		Message string                 `json:"message"`
		Data    map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "previous chapter not completed", resp.Message)
	assert.Equal(t, float64(3), resp.Data["requiredChapterId"])
}
