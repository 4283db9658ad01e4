package controller

import (
	"exam_portal_backend/internal/service"
	"exam_portal_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// BulkQuestionRequest 批量添加题目
// swagger:model BulkQuestionRequest
type BulkQuestionRequest struct {
	Questions []service.QuestionInput `json:"questions" binding:"required,min=1,dive"`
}

// AddQuestion godoc
// @Summary 添加题目
// @Description 恰好一个选项 isCorrect=true；补齐最后一题时分值必须恰好等于剩余分数
// @Tags 题目
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body service.QuestionInput true "题目"
// @Success 201 {object} util.Response{data=model.Question}
// @Failure 400 {object} util.Response "题目或分值校验失败"
// @Router /api/teacher/exams/{id}/questions [post]
func (c *QuestionController) AddQuestion(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	q, err := c.QuestionService.AddQuestion(ctx.Request.Context(), identity(ctx), examID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, q)
}

// BulkAddQuestions godoc
// @Summary 批量添加题目
// @Description 按顺序写入，任一题失败则全部回滚
// @Tags 题目
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param body body BulkQuestionRequest true "题目列表"
// @Success 201 {object} util.Response{data=[]model.Question}
// @Router /api/teacher/exams/{id}/questions/bulk [post]
func (c *QuestionController) BulkAddQuestions(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	var req BulkQuestionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	qs, err := c.QuestionService.BulkAddQuestions(ctx.Request.Context(), identity(ctx), examID, req.Questions)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, qs)
}

// UpdateQuestion godoc
// @Summary 修改题目
// @Description 选项整体替换，考试总分按分值差调整
// @Tags 题目
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param questionId path int true "题目ID"
// @Param body body service.QuestionInput true "题目"
// @Success 200 {object} util.Response{data=model.Question}
// @Router /api/teacher/exams/{id}/questions/{questionId} [put]
func (c *QuestionController) UpdateQuestion(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	questionID, err := util.ParamID(ctx, "questionId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	var req service.QuestionInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BindError(ctx, err)
		return
	}

	q, err := c.QuestionService.UpdateQuestion(ctx.Request.Context(), identity(ctx), examID, questionID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, q)
}

// DeleteQuestion godoc
// @Summary 删除题目
// @Tags 题目
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param questionId path int true "题目ID"
// @Success 200 {object} util.Response
// @Router /api/teacher/exams/{id}/questions/{questionId} [delete]
func (c *QuestionController) DeleteQuestion(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	questionID, err := util.ParamID(ctx, "questionId")
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if err := c.QuestionService.DeleteQuestion(ctx.Request.Context(), identity(ctx), examID, questionID); err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"id": questionID})
}

// ListQuestions godoc
// @Summary 题目列表（含答案）
// @Tags 题目
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Success 200 {object} util.Response{data=[]model.Question}
// @Router /api/teacher/exams/{id}/questions [get]
func (c *QuestionController) ListQuestions(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	qs, err := c.QuestionService.ListQuestions(ctx.Request.Context(), identity(ctx), examID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, qs)
}

// UploadImage godoc
// @Summary 上传题目图片
// @Description 返回的地址用于题目的 images 字段
// @Tags 题目
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "考试ID"
// @Param file formData file true "图片"
// @Success 201 {object} util.Response{data=object}
// @Router /api/teacher/exams/{id}/questions/images [post]
func (c *QuestionController) UploadImage(ctx *gin.Context) {
	examID, ok := examIDParam(ctx)
	if !ok {
		return
	}
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	url, err := c.QuestionService.UploadQuestionImage(ctx.Request.Context(), identity(ctx), examID, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, gin.H{"url": url})
}
