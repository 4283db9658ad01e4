package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

func identity(ctx *gin.Context) service.Identity {
	return service.IdentityFromClaims(util.GetUserFromContext(ctx))
}

// examIDParam 读取 :id，失败时已写入响应
func examIDParam(ctx *gin.Context) (uint, bool) {
	id, err := util.ParamID(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return 0, false
	}
	return id, true
}
