package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ExamController struct {
	ExamService *service.ExamService
}

func NewExamController(examService *service.ExamService) *ExamController {
	return &ExamController{ExamService: examService}
}

// ExamStatusRequest 激活/停用考试
// swagger:model ExamStatusRequest
type ExamStatusRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// CreateExam godoc
// @Summary 创建考试
// @Description 教师在自己任教的科目下创建考试，题目数和总分计数从 0 开始
// @Tags 考试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.ExamInput true "考试信息"
// @Success 201 {object} util.Response{data=service.ExamSummary}
// @Failure 400 {object} util.Response "参数错误"
// @Failure 403 {object} util.Response "未任教该科目"
// @Router /api/teacher/exams [post]
func (c *ExamController) CreateExam(ctx *gin.Context) {
	var req service.ExamInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	exam, err := c.ExamService.CreateExam(ctx.Request.Context(), identity(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, exam)
}

// UpdateExam godoc
// @Summary 修改考试
// @Description 已有完成作答时不可修改；开考后只能修改结束时间
// @Tags 考试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body service.ExamInput true "考试信息"
// @Success 200 {object} util.Response{data=service.ExamSummary}
// @Failure 400 {object} util.Response
// @Failure 403 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/teacher/exams/{id} [put]
func (c *ExamController) UpdateExam(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req service.ExamInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	exam, err := c.ExamService.UpdateExam(ctx.Request.Context(), identity(ctx), examID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// UpdateExamStatus godoc
// @Summary 激活或停用考试
// @Description 激活要求题目数和总分与声明值完全一致，否则返回差距明细
// @Tags 考试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body ExamStatusRequest true "状态"
// @Success 200 {object} util.Response{data=service.ExamSummary}
// @Failure 400 {object} util.Response "试卷未编写完成"
// @Router /api/teacher/exams/{id}/status [patch]
func (c *ExamController) UpdateExamStatus(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req ExamStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	exam, err := c.ExamService.UpdateExamStatus(ctx.Request.Context(), identity(ctx), examID, *req.IsActive)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// GetExam godoc
// @Summary 考试详情
// @Tags 考试
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.ExamSummary}
// @Router /api/teacher/exams/{id} [get]
func (c *ExamController) GetExam(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	exam, err := c.ExamService.GetExam(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exam)
}

// ListExams godoc
// @Summary 我的考试列表
// @Tags 考试
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]service.ExamSummary}
// @Router /api/teacher/exams [get]
func (c *ExamController) ListExams(ctx *gin.Context) {
	exams, err := c.ExamService.ListTeacherExams(ctx.Request.Context(), identity(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, exams)
}

// DeleteExam godoc
// @Summary 删除考试
// @Description 只能删除尚未分配给任何学生的考试
// @Tags 考试
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id} [delete]
func (c *ExamController) DeleteExam(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	if err := c.ExamService.DeleteExam(ctx.Request.Context(), identity(ctx), examID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": examID})
}
