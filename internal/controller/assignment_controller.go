package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// AssignRequest 分配考试
// swagger:model AssignRequest
type AssignRequest struct {
	StudentIDs []uint `json:"studentIds" binding:"required,min=1"`
}

// AssignExam godoc
// @Summary 分配考试给学生
// @Description 考试需已激活且编写完成；名单中有被封禁的学生时整体失败；已分配的学生会在结果中列出
// @Tags 考试分配
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body AssignRequest true "学生ID列表"
// @Success 200 {object} util.Response{data=service.AssignmentReport}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response "学生未选修该科目"
// @Failure 404 {object} util.Response "学生不存在"
// @Router /api/teacher/exams/{id}/assign [post]
func (c *AssignmentController) AssignExam(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req AssignRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	report, err := c.AssignmentService.AssignExamToStudents(ctx.Request.Context(), identity(ctx), examID, req.StudentIDs)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}

// ToggleBan godoc
// @Summary 封禁/解封学生
// @Description 未分配时直接创建封禁记录；作答中或已完成时不可操作
// @Tags 考试分配
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response{data=service.BanResult}
// @Failure 400 {object} util.Response "当前状态不可封禁"
// @Router /api/teacher/exams/{id}/students/{studentId}/ban [post]
func (c *AssignmentController) ToggleBan(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	studentID, err := util.ParamID(ctx, "studentId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.AssignmentService.ToggleStudentBan(ctx.Request.Context(), identity(ctx), examID, studentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// ListExamStudents godoc
// @Summary 考试的学生列表
// @Tags 考试分配
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]service.ExamStudent}
// @Router /api/teacher/exams/{id}/students [get]
func (c *AssignmentController) ListExamStudents(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	list, err := c.AssignmentService.ListExamStudents(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// ListMyExams godoc
// @Summary 我的考试
// @Tags 学生考试
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.StudentExam}
// @Router /api/student/exams [get]
func (c *AssignmentController) ListMyExams(ctx *gin.Context) {
	list, err := c.AssignmentService.ListAssignedExams(ctx.Request.Context(), identity(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Eligibility godoc
// @Summary 考试资格
// @Description 返回当前状态、是否被封禁以及能否开始作答
// @Tags 学生考试
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.Eligibility}
// @Router /api/student/exams/{id}/eligibility [get]
func (c *AssignmentController) Eligibility(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	result, err := c.AssignmentService.GetExamEligibility(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
