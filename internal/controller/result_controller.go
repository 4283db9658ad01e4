package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ResultController struct {
	ResultService *service.ResultService
}

func NewResultController(resultService *service.ResultService) *ResultController {
	return &ResultController{ResultService: resultService}
}

func studentIDParam(ctx *gin.Context) (uint, bool) {
	id, err := util.ParamID(ctx, "studentId")
	if err != nil {
		util.HandleError(ctx, err)
		return 0, false
	}
	return id, true
}

// MyResult godoc
// @Summary 我的成绩
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=model.Result}
// @Router /api/student/exams/{id}/result [get]
func (c *ResultController) MyResult(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	result, err := c.ResultService.GetMyResult(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// MyAnswerSheet godoc
// @Summary 我的答题卡
// @Description 交卷后可查看，含正确答案和每题得分
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=service.AnswerSheetReview}
// @Router /api/student/exams/{id}/answer-sheet [get]
func (c *ResultController) MyAnswerSheet(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	review, err := c.ResultService.GetMyAnswerSheet(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// ExamResults godoc
// @Summary 考试成绩列表
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]repository.ExamResultRow}
// @Router /api/teacher/exams/{id}/results [get]
func (c *ResultController) ExamResults(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	rows, err := c.ResultService.ListExamResults(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// StudentResult godoc
// @Summary 学生成绩
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response{data=model.Result}
// @Router /api/teacher/exams/{id}/students/{studentId}/result [get]
func (c *ResultController) StudentResult(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	studentID, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	result, err := c.ResultService.GetStudentResult(ctx.Request.Context(), identity(ctx), examID, studentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// StudentAnswerSheet godoc
// @Summary 学生答题卡
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response{data=service.AnswerSheetReview}
// @Router /api/teacher/exams/{id}/students/{studentId}/answer-sheet [get]
func (c *ResultController) StudentAnswerSheet(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	studentID, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	review, err := c.ResultService.GetStudentAnswerSheet(ctx.Request.Context(), identity(ctx), examID, studentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, review)
}

// CheatLogs godoc
// @Summary 学生违规记录
// @Tags 成绩
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param studentId path int true "学生ID"
// @Success 200 {object} util.Response{data=[]model.AntiCheatingLog}
// @Router /api/teacher/exams/{id}/students/{studentId}/cheat-logs [get]
func (c *ResultController) CheatLogs(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	studentID, ok := studentIDParam(ctx)
	if !ok {
		return
	}
	logs, err := c.ResultService.GetCheatLogs(ctx.Request.Context(), identity(ctx), examID, studentID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}
