package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	AttemptService *service.AttemptService
	MonitorService *service.MonitorService
}

func NewAttemptController(attemptService *service.AttemptService, monitorService *service.MonitorService) *AttemptController {
	return &AttemptController{
		AttemptService: attemptService,
		MonitorService: monitorService,
	}
}

// ResponsesRequest 作答列表，保存时空数组表示清空
// swagger:model ResponsesRequest
type ResponsesRequest struct {
	Responses []service.ResponseInput `json:"responses"`
}

// StartExam godoc
// @Summary 开始考试
// @Description 返回截止时间和监考策略
// @Tags 学生考试
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=model.AttemptSession}
// @Failure 403 {object} util.Response "被封禁或不在考试时间内"
// @Router /api/student/exams/{id}/start [post]
func (c *AttemptController) StartExam(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	session, err := c.AttemptService.Start(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, session)
}

// GetQuestions godoc
// @Summary 获取考试题目
// @Description 不含正确答案，选项顺序随机
// @Tags 学生考试
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]model.QuestionView}
// @Router /api/student/exams/{id}/questions [get]
func (c *AttemptController) GetQuestions(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	views, err := c.AttemptService.GetExamQuestions(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// SaveResponses godoc
// @Summary 保存作答
// @Description 整体替换已保存的作答
// @Tags 学生考试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body ResponsesRequest true "作答"
// @Success 200 {object} util.Response{data=[]model.Response}
// @Router /api/student/exams/{id}/responses [put]
func (c *AttemptController) SaveResponses(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req ResponsesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	saved, err := c.AttemptService.SaveResponses(ctx.Request.Context(), identity(ctx), examID, req.Responses)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, saved)
}

// GetResponses godoc
// @Summary 获取已保存的作答
// @Tags 学生考试
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]model.Response}
// @Router /api/student/exams/{id}/responses [get]
func (c *AttemptController) GetResponses(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	saved, err := c.AttemptService.GetSavedResponses(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, saved)
}

// SubmitExam godoc
// @Summary 交卷
// @Description 超时交卷同样接受并标记 autoSubmitted；返回未作答的题目
// @Tags 学生考试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body ResponsesRequest true "作答"
// @Success 200 {object} util.Response{data=model.SubmissionResult}
// @Failure 409 {object} util.Response "重复交卷"
// @Router /api/student/exams/{id}/submit [post]
func (c *AttemptController) SubmitExam(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req ResponsesRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	result, err := c.AttemptService.Submit(ctx.Request.Context(), identity(ctx), examID, req.Responses)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// LogCheatingEvent godoc
// @Summary 上报违规事件
// @Description 累计 3 次违规时强制交卷，已保存的作答作废
// @Tags 学生考试
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body service.CheatEventInput true "事件类型 TAB_SWITCH / FULLSCREEN_EXIT"
// @Success 200 {object} util.Response{data=service.ViolationReport}
// @Router /api/student/exams/{id}/cheating-events [post]
func (c *AttemptController) LogCheatingEvent(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req service.CheatEventInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	report, err := c.MonitorService.LogEvent(ctx.Request.Context(), identity(ctx), examID, req.EventType)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
