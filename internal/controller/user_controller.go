package controller

import (
	"mentor_lms_backend/internal/service"
	"mentor_lms_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// UserController 管理员维护账号
type UserController struct {
	AuthService *service.AuthService
	UserService *service.UserService
}

func NewUserController(authService *service.AuthService, userService *service.UserService) *UserController {
	return &UserController{
		AuthService: authService,
		UserService: userService,
	}
}

// CreateUser godoc
// @Summary 创建账号
// @Description 管理员创建学生、导师或管理员账号
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.CreateUserRequest true "账号信息"
// @Success 201 {object} util.Response{data=model.User}
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /admin/users [post]
func (c *UserController) CreateUser(ctx *gin.Context) {
	var req service.CreateUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.CreateUser(ctx.Request.Context(), req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Created(ctx, user)
}

// GetUsers godoc
// @Summary 用户列表
// @Tags 管理员
// @Produce  json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param pageSize query int false "每页数量"
// @Param role query string false "角色"
// @Param status query string false "active 或 disabled"
// @Param search query string false "姓名或邮箱"
// @Success 200 {object} util.Response{data=object}
// @Router /admin/users [get]
func (c *UserController) GetUsers(ctx *gin.Context) {
	page, _ := strconv.Atoi(ctx.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(ctx.DefaultQuery("pageSize", "20"))
	filter := service.UserFilter{
		Role:   ctx.Query("role"),
		Status: ctx.Query("status"),
		Search: ctx.Query("search"),
	}

	users, total, err := c.UserService.GetUsers(ctx.Request.Context(), page, pageSize, filter)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{
		"items": users,
		"total": total,
		"page":  page,
	})
}

// DisableUserRequest 禁用或启用
type DisableUserRequest struct {
	Disabled bool `json:"disabled"`
}

// DisableUser godoc
// @Summary 禁用/启用用户
// @Tags 管理员
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body DisableUserRequest true "是否禁用"
// @Success 200 {object} util.Response{data=model.User}
// @Failure 404 {object} util.Response "用户不存在"
// @Router /admin/users/{id}/disable [post]
func (c *UserController) DisableUser(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}

	var req DisableUserRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.UserService.DisableUser(ctx.Request.Context(), id, req.Disabled)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}

	util.Success(ctx, user)
}
