package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AdminController struct {
	SubjectService *service.SubjectService
	SweepService   *service.SweepService
}

func NewAdminController(subjectService *service.SubjectService, sweepService *service.SweepService) *AdminController {
	return &AdminController{
		SubjectService: subjectService,
		SweepService:   sweepService,
	}
}

// SubjectRequest 创建科目
// swagger:model SubjectRequest
type SubjectRequest struct {
	Name string `json:"name" binding:"required,max=100"`
	Code string `json:"code" binding:"required,max=30"`
}

// CreateSubject godoc
// @Summary 创建科目
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body SubjectRequest true "科目"
// @Success 201 {object} util.Response{data=model.Subject}
// @Failure 409 {object} util.Response "科目代码已存在"
// @Router /api/admin/subjects [post]
func (c *AdminController) CreateSubject(ctx *gin.Context) {
	var req SubjectRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}
	subject, err := c.SubjectService.CreateSubject(ctx.Request.Context(), req.Name, req.Code)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, subject)
}

// ListSubjects godoc
// @Summary 科目列表
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Subject}
// @Router /api/admin/subjects [get]
func (c *AdminController) ListSubjects(ctx *gin.Context) {
	subjects, err := c.SubjectService.ListSubjects(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, subjects)
}

// AssignTeacher godoc
// @Summary 设置任教科目
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "科目ID"
// @Param teacherId path int true "教师ID"
// @Success 200 {object} util.Response
// @Router /api/admin/subjects/{id}/teachers/{teacherId} [post]
func (c *AdminController) AssignTeacher(ctx *gin.Context) {
	subjectID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	teacherID, err := util.ParamID(ctx, "teacherId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if err := c.SubjectService.AssignTeacher(ctx.Request.Context(), subjectID, teacherID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"subjectId": subjectID, "teacherId": teacherID})
}

// EnrollStudent godoc
// @Summary 学生选修科目
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "科目ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response
// @Router /api/admin/subjects/{id}/students/{studentId} [post]
func (c *AdminController) EnrollStudent(ctx *gin.Context) {
	subjectID, err := util.ParamID(ctx, "id")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	studentID, err := util.ParamID(ctx, "studentId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if err := c.SubjectService.EnrollStudent(ctx.Request.Context(), subjectID, studentID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"subjectId": subjectID, "studentId": studentID})
}

// RunExpirySweep godoc
// @Summary 手动执行到期交卷
// @Description 对已超过截止时间仍在作答的记录自动交卷，保留已保存的作答
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.SweepReport}
// @Router /api/admin/sweeps/expired [post]
func (c *AdminController) RunExpirySweep(ctx *gin.Context) {
	report, err := c.SweepService.SweepExpired(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
