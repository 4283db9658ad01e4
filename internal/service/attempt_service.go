package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/tracing"
	"math/rand"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ResponseInput struct {
	QuestionID uint `json:"questionId"`
	OptionID   uint `json:"optionId"`
}

type AttemptService struct {
	DB              *gorm.DB
	ExamRepo        *repository.ExamRepository
	StudentExamRepo *repository.StudentExamRepository
	QuestionRepo    *repository.QuestionRepository
	AnswerSheetRepo *repository.AnswerSheetRepository
	Cache           *repository.QuestionCache
	Submitter       *Submitter
	Guard           *AccessGuard
	Clock           util.Clock
}

func NewAttemptService(
	db *gorm.DB,
	examRepo *repository.ExamRepository,
	studentExamRepo *repository.StudentExamRepository,
	questionRepo *repository.QuestionRepository,
	answerSheetRepo *repository.AnswerSheetRepository,
	cache *repository.QuestionCache,
	submitter *Submitter,
	guard *AccessGuard,
	clock util.Clock,
) *AttemptService {
	return &AttemptService{
		DB:              db,
		ExamRepo:        examRepo,
		StudentExamRepo: studentExamRepo,
		QuestionRepo:    questionRepo,
		AnswerSheetRepo: answerSheetRepo,
		Cache:           cache,
		Submitter:       submitter,
		Guard:           guard,
		Clock:           clock,
	}
}

// loadAttempt 返回调用者在该考试上的作答记录和考试本身
func (s *AttemptService) loadAttempt(ctx context.Context, id Identity, examID uint) (*model.StudentExam, *model.Exam, error) {
	studentID, err := s.Guard.StudentProfile(id)
	if err != nil {
		return nil, nil, err
	}
	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, nil, notFoundOr(err, "exam %d not found", examID)
	}
	se, err := s.StudentExamRepo.FindByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, nil, notFoundOr(err, "exam %d is not assigned to you", examID)
	}
	return se, exam, nil
}

func requireInProgress(se *model.StudentExam) error {
	if se.Status != model.StatusInProgress {
		return util.BadRequestError("exam attempt is %s, not in progress", se.Status).
			WithDetails(map[string]interface{}{"currentStatus": se.Status})
	}
	return nil
}

// Start 开始作答，截止时间为开始时间加考试时长
func (s *AttemptService) Start(ctx context.Context, id Identity, examID uint) (*model.AttemptSession, error) {
	se, exam, err := s.loadAttempt(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if err := checkStartable(se, exam, now); err != nil {
		return nil, err
	}

	endTime := now.Add(exam.DurationPeriod())
	ok, err := s.StudentExamRepo.Transition(ctx, se.ID, model.StatusNotStarted, map[string]interface{}{
		"status":     model.StatusInProgress,
		"start_time": now,
		"end_time":   endTime,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ConflictError("attempt %d changed concurrently, please retry", se.ID)
	}

	logger.Log.Info("exam attempt started",
		zap.Uint("studentExamId", se.ID),
		zap.Uint("examId", examID),
		zap.Uint("studentId", se.StudentID),
		zap.Time("endTime", endTime))

	return &model.AttemptSession{
		StudentExamID: se.ID,
		ExamID:        examID,
		Status:        model.StatusInProgress,
		StartTime:     now,
		EndTime:       endTime,
		Duration:      exam.Duration,
		AntiCheat:     model.DefaultAntiCheatPolicy(),
	}, nil
}

// GetExamQuestions 返回去掉正确答案的题目，选项顺序每次请求随机
func (s *AttemptService) GetExamQuestions(ctx context.Context, id Identity, examID uint) ([]model.QuestionView, error) {
	se, _, err := s.loadAttempt(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if err := requireInProgress(se); err != nil {
		return nil, err
	}

	views, ok := s.Cache.Get(ctx, examID)
	if !ok {
		questions, err := s.QuestionRepo.ListByExam(ctx, examID)
		if err != nil {
			return nil, err
		}
		views = SecureQuestionViews(questions)
		s.Cache.Set(ctx, examID, views)
	}

	for i := range views {
		opts := views[i].Options
		rand.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
	}
	return views, nil
}

// SecureQuestionViews 去掉正确答案引用
func SecureQuestionViews(questions []model.Question) []model.QuestionView {
	views := make([]model.QuestionView, 0, len(questions))
	for _, q := range questions {
		view := model.QuestionView{
			ID:            q.ID,
			Text:          q.Text,
			HasImage:      q.HasImage,
			Images:        q.ImageList(),
			Marks:         q.Marks,
			NegativeMarks: q.NegativeMarks,
			Options:       make([]model.OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			view.Options = append(view.Options, model.OptionView{ID: o.ID, Text: o.Text})
		}
		views = append(views, view)
	}
	return views
}

// validateResponses 每条作答必须同时有题目和选项，同一题不能出现两次
func validateResponses(inputs []ResponseInput) ([]model.Response, error) {
	seen := make(map[uint]bool, len(inputs))
	responses := make([]model.Response, 0, len(inputs))
	for i, in := range inputs {
		if in.QuestionID == 0 || in.OptionID == 0 {
			return nil, util.BadRequestError("response %d must include questionId and optionId", i+1).
				WithDetails(map[string]interface{}{"index": i})
		}
		if seen[in.QuestionID] {
			return nil, util.BadRequestError("question %d answered more than once", in.QuestionID).
				WithDetails(map[string]interface{}{"index": i, "questionId": in.QuestionID})
		}
		seen[in.QuestionID] = true
		responses = append(responses, model.Response{QuestionID: in.QuestionID, OptionID: in.OptionID})
	}
	return responses, nil
}

// SaveResponses 整体替换已保存的作答，空数组表示清空
func (s *AttemptService) SaveResponses(ctx context.Context, id Identity, examID uint, inputs []ResponseInput) ([]model.Response, error) {
	se, _, err := s.loadAttempt(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if err := requireInProgress(se); err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if se.EndTime != nil && now.After(*se.EndTime) {
		return nil, util.BadRequestError("exam time is over, submit instead").
			WithDetails(map[string]interface{}{"endTime": se.EndTime})
	}
	responses, err := validateResponses(inputs)
	if err != nil {
		return nil, err
	}

	var saved []model.Response
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 与交卷的状态更新互斥，交卷后不能再覆盖答题卡
		ok, err := s.StudentExamRepo.WithTx(tx).Transition(ctx, se.ID, model.StatusInProgress, map[string]interface{}{"updated_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return errAttemptClosed
		}
		sheets := s.AnswerSheetRepo.WithTx(tx)
		sheet, err := sheets.GetOrCreate(ctx, se.ID)
		if err != nil {
			return conflictOr(err, "answer sheet for attempt %d already exists", se.ID)
		}
		saved, err = sheets.ReplaceResponses(ctx, sheet.ID, responses)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (s *AttemptService) GetSavedResponses(ctx context.Context, id Identity, examID uint) ([]model.Response, error) {
	se, _, err := s.loadAttempt(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if err := requireInProgress(se); err != nil {
		return nil, err
	}
	sheet, err := s.AnswerSheetRepo.FindByStudentExam(ctx, se.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []model.Response{}, nil
	}
	if err != nil {
		return nil, err
	}
	return sheet.Responses, nil
}

// Submit 学生交卷。超时后交卷同样接受，记为 autoSubmitted
func (s *AttemptService) Submit(ctx context.Context, id Identity, examID uint, inputs []ResponseInput) (result *model.SubmissionResult, err error) {
	se, exam, err := s.loadAttempt(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	ctx, span := tracing.StartSpan(ctx, "attempt.submit", map[string]uint{"studentExamId": se.ID, "examId": examID})
	defer func() { tracing.EndSpan(span, err) }()

	if err := requireInProgress(se); err != nil {
		return nil, err
	}
	responses, err := validateResponses(inputs)
	if err != nil {
		return nil, err
	}

	mode := SubmitManual
	if se.EndTime != nil && s.Clock.Now().After(*se.EndTime) {
		mode = SubmitLate
	}

	var finalized *Finalized
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		f, err := s.Submitter.Finalize(ctx, tx, se, exam, mode, responses)
		finalized = f
		return err
	})
	if err != nil {
		return nil, err
	}

	monitoring.ExamSubmissions.WithLabelValues(string(mode)).Inc()
	logger.Log.Info("exam submitted",
		zap.Uint("studentExamId", se.ID),
		zap.String("mode", string(mode)),
		zap.Float64("marks", finalized.Result.Marks),
		zap.String("status", string(finalized.Result.Status)))

	return &model.SubmissionResult{
		StudentExamID:       se.ID,
		Marks:               finalized.Result.Marks,
		TotalMarks:          exam.TotalMarks,
		PassingMarks:        exam.PassingMarks,
		Status:              finalized.Result.Status,
		TimeTaken:           finalized.Result.TimeTaken,
		AutoSubmitted:       se.AutoSubmitted,
		UnansweredQuestions: finalized.Unanswered,
	}, nil
}
