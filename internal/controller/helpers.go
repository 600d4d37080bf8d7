package controller

import (
	"mentor_lms_backend/internal/service"
	"mentor_lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// currentActor 从 JWT claims 取当前用户，未登录时已写入 401
func currentActor(ctx *gin.Context) (service.Actor, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return service.Actor{}, false
	}
	return service.Actor{ID: claims.UserID, Role: claims.Role}, true
}

func pathID(ctx *gin.Context, name string) (uint, bool) {
	id, ok := util.ParamUint(ctx, name)
	if !ok {
		util.BadRequest(ctx, "invalid "+name)
	}
	return id, ok
}
