package controller

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// UserController 管理员账号维护
type UserController struct {
	UserService *service.UserService
}

func NewUserController(userService *service.UserService) *UserController {
	return &UserController{
		UserService: userService,
	}
}

// GetUsers godoc
// @Summary 获取用户列表
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   role query string false "角色筛选" Enums(student, teacher, admin)
// @Success 200 {object} util.Response{data=[]model.User} "成功"
// @Failure 400 {object} util.Response "角色无效"
// @Router /api/admin/users [get]
func (c *UserController) GetUsers(ctx *gin.Context) {
	users, err := c.UserService.GetUsers(ctx.Request.Context(), model.UserRole(ctx.Query("role")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, users)
}

// DisableUser godoc
// @Summary 禁用/启用用户
// @Tags 用户管理
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "用户ID"
// @Param   disable query bool true "是否禁用"
// @Success 200 {object} util.Response{data=model.User} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 404 {object} util.Response "用户不存在"
// @Router /api/admin/users/{id}/disable [post]
func (c *UserController) DisableUser(ctx *gin.Context) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	disable := ctx.Query("disable") == "true"

	user, err := c.UserService.DisableUser(ctx.Request.Context(), identity(ctx), id, disable)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
