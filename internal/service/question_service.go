package service

import (
	"context"
	"encoding/json"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"mime/multipart"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// OptionInput 入参用 isCorrect 标记正确选项，落库时转换为 Question.CorrectOptionID
type OptionInput struct {
	Text      string `json:"text" binding:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type QuestionInput struct {
	Text          string        `json:"text" binding:"required"`
	HasImage      bool          `json:"hasImage"`
	Images        []string      `json:"images"`
	Marks         int           `json:"marks" binding:"required,min=1"`
	NegativeMarks float64       `json:"negativeMarks" binding:"min=0"`
	Options       []OptionInput `json:"options" binding:"required,min=2,dive"`
}

type QuestionService struct {
	DB       *gorm.DB
	ExamRepo *repository.ExamRepository
	Repo     *repository.QuestionRepository
	Cache    *repository.QuestionCache
	Guard    *AccessGuard
	Storage  *StorageService
}

func NewQuestionService(db *gorm.DB, examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, cache *repository.QuestionCache, guard *AccessGuard, storage *StorageService) *QuestionService {
	return &QuestionService{
		DB:       db,
		ExamRepo: examRepo,
		Repo:     questionRepo,
		Cache:    cache,
		Guard:    guard,
		Storage:  storage,
	}
}

// validateQuestion 返回唯一正确选项的下标
func validateQuestion(in *QuestionInput) (int, error) {
	if strings.TrimSpace(in.Text) == "" {
		return -1, util.BadRequestError("question text is required")
	}
	if in.Marks <= 0 {
		return -1, util.BadRequestError("marks must be positive")
	}
	if in.NegativeMarks < 0 {
		return -1, util.BadRequestError("negative marks cannot be below zero")
	}
	if in.HasImage && len(in.Images) == 0 {
		return -1, util.BadRequestError("images are required when hasImage is set")
	}
	if !in.HasImage && len(in.Images) > 0 {
		return -1, util.BadRequestError("images provided but hasImage is not set")
	}
	if len(in.Options) < 2 {
		return -1, util.BadRequestError("a question needs at least 2 options, got %d", len(in.Options)).
			WithDetails(map[string]interface{}{"options": len(in.Options)})
	}

	correct := -1
	count := 0
	for i, o := range in.Options {
		if strings.TrimSpace(o.Text) == "" {
			return -1, util.BadRequestError("option %d has empty text", i+1)
		}
		if o.IsCorrect {
			correct = i
			count++
		}
	}
	if count != 1 {
		return -1, util.BadRequestError("exactly one option must be correct, got %d", count).
			WithDetails(map[string]interface{}{"correctOptions": count})
	}
	return correct, nil
}

func buildQuestion(examID uint, in *QuestionInput) (*model.Question, error) {
	q := &model.Question{
		ExamID:        examID,
		Text:          strings.TrimSpace(in.Text),
		HasImage:      in.HasImage,
		Marks:         in.Marks,
		NegativeMarks: in.NegativeMarks,
	}
	if in.HasImage {
		raw, err := json.Marshal(in.Images)
		if err != nil {
			return nil, err
		}
		q.Images = datatypes.JSON(raw)
	}
	for _, o := range in.Options {
		q.Options = append(q.Options, model.Option{Text: strings.TrimSpace(o.Text)})
	}
	return q, nil
}

// ensureEditable 激活中或已有完成作答的考试不能修改题目
func (s *QuestionService) ensureEditable(ctx context.Context, exam *model.Exam) error {
	if exam.IsActive {
		return util.BadRequestError("deactivate exam %d before editing its questions", exam.ID)
	}
	completed, err := s.ExamRepo.CountAttempts(ctx, exam.ID, model.StatusCompleted)
	if err != nil {
		return err
	}
	if completed > 0 {
		return util.BadRequestError("exam %d already has completed attempts", exam.ID).
			WithDetails(map[string]interface{}{"completedAttempts": completed})
	}
	return nil
}

// lockEditable 事务内锁住考试行并复核未激活，避免与激活并发时改动已冻结的计数
func (s *QuestionService) lockEditable(ctx context.Context, tx *gorm.DB, examID uint) (*model.Exam, error) {
	exam, err := s.ExamRepo.WithTx(tx).FindForUpdate(ctx, examID)
	if err != nil {
		return nil, notFoundOr(err, "exam %d not found", examID)
	}
	if exam.IsActive {
		return nil, util.BadRequestError("deactivate exam %d before editing its questions", exam.ID)
	}
	return exam, nil
}

// checkAddCapacity 题目数已满时拒绝；补齐最后一题时分值必须恰好等于剩余分数，否则不能超过剩余分数
func checkAddCapacity(exam *model.Exam, marks int) error {
	details := map[string]interface{}{
		"currentQuestionCount": exam.CurrentQuestionCount,
		"numQuestions":         exam.NumQuestions,
		"currentTotalMarks":    exam.CurrentTotalMarks,
		"totalMarks":           exam.TotalMarks,
		"remainingMarks":       exam.RemainingMarks(),
		"marks":                marks,
	}
	if exam.CurrentQuestionCount >= exam.NumQuestions {
		return util.BadRequestError("exam already has all %d questions", exam.NumQuestions).WithDetails(details)
	}
	if exam.CurrentQuestionCount+1 == exam.NumQuestions {
		if marks != exam.RemainingMarks() {
			return util.BadRequestError("the last question must carry exactly %d marks, got %d", exam.RemainingMarks(), marks).WithDetails(details)
		}
		return nil
	}
	if marks > exam.RemainingMarks() {
		return util.BadRequestError("marks %d exceed remaining capacity %d (current %d of %d)",
			marks, exam.RemainingMarks(), exam.CurrentTotalMarks, exam.TotalMarks).WithDetails(details)
	}
	return nil
}

// addOne 在事务内写入题目、选项和正确答案引用，并增量更新考试计数
func (s *QuestionService) addOne(ctx context.Context, tx *gorm.DB, examID uint, in *QuestionInput) (*model.Question, error) {
	correct, err := validateQuestion(in)
	if err != nil {
		return nil, err
	}
	exam, err := s.lockEditable(ctx, tx, examID)
	if err != nil {
		return nil, err
	}
	if err := checkAddCapacity(exam, in.Marks); err != nil {
		return nil, err
	}

	q, err := buildQuestion(examID, in)
	if err != nil {
		return nil, err
	}
	questions := s.Repo.WithTx(tx)
	if err := questions.Create(ctx, q); err != nil {
		return nil, err
	}
	correctID := q.Options[correct].ID
	if err := questions.SetCorrectOption(ctx, q.ID, correctID); err != nil {
		return nil, err
	}
	q.CorrectOptionID = &correctID

	ok, err := s.ExamRepo.WithTx(tx).AdjustCounters(ctx, examID, 1, in.Marks)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ConflictError("exam %d was modified concurrently, please retry", examID)
	}
	return q, nil
}

func (s *QuestionService) AddQuestion(ctx context.Context, id Identity, examID uint, in QuestionInput) (*model.Question, error) {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, exam); err != nil {
		return nil, err
	}

	var created *model.Question
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q, err := s.addOne(ctx, tx, examID, &in)
		created = q
		return err
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, examID)
	return created, nil
}

// BulkAddQuestions 按顺序逐题校验写入，任一题失败则整体回滚
func (s *QuestionService) BulkAddQuestions(ctx context.Context, id Identity, examID uint, inputs []QuestionInput) ([]model.Question, error) {
	if len(inputs) == 0 {
		return nil, util.BadRequestError("no questions provided")
	}
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, exam); err != nil {
		return nil, err
	}

	created := make([]model.Question, 0, len(inputs))
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range inputs {
			q, err := s.addOne(ctx, tx, examID, &inputs[i])
			if err != nil {
				var appErr *util.AppError
				if errors.As(err, &appErr) {
					appErr.Message = "question " + strconv.Itoa(i+1) + ": " + appErr.Message
					appErr.WithDetails(map[string]interface{}{"index": i})
				}
				return err
			}
			created = append(created, *q)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, examID)
	return created, nil
}

func (s *QuestionService) findOwned(ctx context.Context, examID, questionID uint) (*model.Question, error) {
	q, err := s.Repo.FindByID(ctx, questionID)
	if err != nil {
		return nil, notFoundOr(err, "question %d not found", questionID)
	}
	if q.ExamID != examID {
		return nil, util.NotFoundError("question %d not found in exam %d", questionID, examID)
	}
	return q, nil
}

// UpdateQuestion 整体替换选项，计数只按分值差调整
func (s *QuestionService) UpdateQuestion(ctx context.Context, id Identity, examID, questionID uint, in QuestionInput) (*model.Question, error) {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEditable(ctx, exam); err != nil {
		return nil, err
	}
	correct, err := validateQuestion(&in)
	if err != nil {
		return nil, err
	}
	existing, err := s.findOwned(ctx, examID, questionID)
	if err != nil {
		return nil, err
	}

	delta := in.Marks - existing.Marks
	q, err := buildQuestion(examID, &in)
	if err != nil {
		return nil, err
	}
	q.ID = questionID

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.lockEditable(ctx, tx, examID)
		if err != nil {
			return err
		}
		if delta > 0 && delta > locked.RemainingMarks() {
			return util.BadRequestError("raising marks by %d exceeds remaining capacity %d", delta, locked.RemainingMarks()).
				WithDetails(map[string]interface{}{
					"currentTotalMarks": locked.CurrentTotalMarks,
					"totalMarks":        locked.TotalMarks,
					"remainingMarks":    locked.RemainingMarks(),
					"delta":             delta,
				})
		}

		questions := s.Repo.WithTx(tx)
		if err := questions.UpdateFields(ctx, q); err != nil {
			return err
		}
		options, err := questions.ReplaceOptions(ctx, questionID, q.Options)
		if err != nil {
			return err
		}
		q.Options = options
		correctID := options[correct].ID
		if err := questions.SetCorrectOption(ctx, questionID, correctID); err != nil {
			return err
		}
		q.CorrectOptionID = &correctID

		if delta != 0 {
			ok, err := s.ExamRepo.WithTx(tx).AdjustCounters(ctx, examID, 0, delta)
			if err != nil {
				return err
			}
			if !ok {
				return util.ConflictError("exam %d was modified concurrently, please retry", examID)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.Cache.Invalidate(ctx, examID)
	s.removeImages(ctx, droppedImages(existing.ImageList(), in.Images))
	return s.Repo.FindByID(ctx, questionID)
}

// DeleteQuestion 硬删除，同时扣减题目数和总分
func (s *QuestionService) DeleteQuestion(ctx context.Context, id Identity, examID, questionID uint) error {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return err
	}
	if err := s.ensureEditable(ctx, exam); err != nil {
		return err
	}
	q, err := s.findOwned(ctx, examID, questionID)
	if err != nil {
		return err
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.lockEditable(ctx, tx, examID); err != nil {
			return err
		}
		if err := s.Repo.WithTx(tx).Delete(ctx, questionID); err != nil {
			return err
		}
		ok, err := s.ExamRepo.WithTx(tx).AdjustCounters(ctx, examID, -1, -q.Marks)
		if err != nil {
			return err
		}
		if !ok {
			return util.ConflictError("exam %d was modified concurrently, please retry", examID)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, examID)
	s.removeImages(ctx, q.ImageList())
	return nil
}

// droppedImages 返回更新后不再引用的旧图片
func droppedImages(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, u := range after {
		kept[u] = true
	}
	var dropped []string
	for _, u := range before {
		if !kept[u] {
			dropped = append(dropped, u)
		}
	}
	return dropped
}

// removeImages 删除本服务上传的题目图片，外部链接忽略；删除失败只记日志
func (s *QuestionService) removeImages(ctx context.Context, urls []string) {
	if s.Storage == nil {
		return
	}
	for _, u := range urls {
		key, ok := s.Storage.KeyFromURL(u)
		if !ok || !strings.HasPrefix(key, questionImagePrefix+"/") {
			continue
		}
		if err := s.Storage.Delete(ctx, key); err != nil {
			logger.Log.Warn("failed to delete question image",
				zap.String("key", key),
				zap.Error(err))
		}
	}
}

// ListQuestions 教师视图，包含正确答案
func (s *QuestionService) ListQuestions(ctx context.Context, id Identity, examID uint) ([]model.Question, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	return s.Repo.ListByExam(ctx, examID)
}

// UploadQuestionImage 上传题目图片，返回可写入 images 的地址
func (s *QuestionService) UploadQuestionImage(ctx context.Context, id Identity, examID uint, file *multipart.FileHeader) (string, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return "", err
	}
	if file.Size > util.MaxQuestionImageSize {
		return "", util.BadRequestError("image exceeds %d bytes", util.MaxQuestionImageSize)
	}
	if !util.HasAllowedExtension(file.Filename, util.AllowedImageExtensions) {
		return "", util.BadRequestError("unsupported image type %s", file.Filename)
	}

	src, err := file.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()

	mimeType, err := util.ValidateMimeType(src, []string{util.MimeImage})
	if err != nil {
		return "", util.BadRequestError("%s", err.Error())
	}
	if _, err := src.Seek(0, 0); err != nil {
		return "", err
	}

	return s.Storage.Upload(ctx, QuestionImageKey(examID, file.Filename), src, file.Size, mimeType)
}
