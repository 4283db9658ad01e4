package service

import (
	"context"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// ExamInput 创建/修改考试的请求体
type ExamInput struct {
	Name         string    `json:"name" binding:"required,max=255"`
	SubjectID    uint      `json:"subjectId" binding:"required"`
	NumQuestions int       `json:"numQuestions" binding:"required,min=1"`
	TotalMarks   int       `json:"totalMarks" binding:"required,min=1"`
	PassingMarks int       `json:"passingMarks" binding:"min=0"`
	Duration     int       `json:"duration" binding:"required,min=1"`
	StartDate    time.Time `json:"startDate" binding:"required"`
	EndDate      time.Time `json:"endDate" binding:"required"`
}

// ExamSummary 考试及其编写进度
type ExamSummary struct {
	model.Exam
	IsComplete     bool `json:"isComplete"`
	RemainingMarks int  `json:"remainingMarks"`
}

func summarize(exam *model.Exam) ExamSummary {
	return ExamSummary{
		Exam:           *exam,
		IsComplete:     exam.IsAuthoringComplete(),
		RemainingMarks: exam.RemainingMarks(),
	}
}

type ExamService struct {
	DB       *gorm.DB
	ExamRepo *repository.ExamRepository
	Question *repository.QuestionRepository
	Cache    *repository.QuestionCache
	Guard    *AccessGuard
	Clock    util.Clock
}

func NewExamService(db *gorm.DB, examRepo *repository.ExamRepository, questionRepo *repository.QuestionRepository, cache *repository.QuestionCache, guard *AccessGuard, clock util.Clock) *ExamService {
	return &ExamService{
		DB:       db,
		ExamRepo: examRepo,
		Question: questionRepo,
		Cache:    cache,
		Guard:    guard,
		Clock:    clock,
	}
}

func validateExamInput(in *ExamInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return util.BadRequestError("exam name is required")
	}
	if in.NumQuestions <= 0 || in.TotalMarks <= 0 || in.Duration <= 0 {
		return util.BadRequestError("numQuestions, totalMarks and duration must be positive")
	}
	if in.PassingMarks < 0 || in.PassingMarks > in.TotalMarks {
		return util.BadRequestError("passing marks %d must be between 0 and total marks %d", in.PassingMarks, in.TotalMarks).
			WithDetails(map[string]interface{}{"passingMarks": in.PassingMarks, "totalMarks": in.TotalMarks})
	}
	if !in.StartDate.Before(in.EndDate) {
		return util.BadRequestError("start date must be before end date").
			WithDetails(map[string]interface{}{"startDate": in.StartDate, "endDate": in.EndDate})
	}
	return nil
}

func (s *ExamService) CreateExam(ctx context.Context, id Identity, in ExamInput) (*ExamSummary, error) {
	if id.TeacherID == 0 {
		return nil, util.ForbiddenError("only teachers can author exams")
	}
	if err := validateExamInput(&in); err != nil {
		return nil, err
	}
	if err := s.Guard.TeachesSubject(ctx, id, in.SubjectID); err != nil {
		return nil, err
	}

	exam := &model.Exam{
		Name:         strings.TrimSpace(in.Name),
		TeacherID:    id.TeacherID,
		SubjectID:    in.SubjectID,
		NumQuestions: in.NumQuestions,
		TotalMarks:   in.TotalMarks,
		PassingMarks: in.PassingMarks,
		Duration:     in.Duration,
		StartDate:    in.StartDate,
		EndDate:      in.EndDate,
	}
	if err := s.ExamRepo.Create(ctx, exam); err != nil {
		return nil, err
	}
	summary := summarize(exam)
	return &summary, nil
}

// UpdateExam 有已完成作答时拒绝；开考后只允许修改结束时间；
// 题目数和总分不能低于已编写的数量；考试激活期间不能修改题目数和总分
func (s *ExamService) UpdateExam(ctx context.Context, id Identity, examID uint, in ExamInput) (*ExamSummary, error) {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	completed, err := s.ExamRepo.CountAttempts(ctx, examID, model.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if completed > 0 {
		return nil, util.BadRequestError("exam %d already has %d completed attempts", examID, completed).
			WithDetails(map[string]interface{}{"completedAttempts": completed})
	}
	if err := validateExamInput(&in); err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	if !now.Before(exam.StartDate) {
		if changed := changedFields(exam, &in); len(changed) > 0 {
			return nil, util.BadRequestError("exam has already started, only the end date can be changed").
				WithDetails(map[string]interface{}{"changedFields": changed})
		}
	}

	if in.NumQuestions < exam.CurrentQuestionCount || in.TotalMarks < exam.CurrentTotalMarks {
		return nil, util.BadRequestError("cannot shrink below authored questions (%d) or marks (%d)", exam.CurrentQuestionCount, exam.CurrentTotalMarks).
			WithDetails(map[string]interface{}{
				"currentQuestionCount": exam.CurrentQuestionCount,
				"currentTotalMarks":    exam.CurrentTotalMarks,
				"numQuestions":         in.NumQuestions,
				"totalMarks":           in.TotalMarks,
			})
	}
	if exam.IsActive && (in.NumQuestions != exam.NumQuestions || in.TotalMarks != exam.TotalMarks) {
		return nil, util.BadRequestError("deactivate the exam before changing numQuestions or totalMarks")
	}
	if in.SubjectID != exam.SubjectID && !id.IsAdmin() {
		if err := s.Guard.TeachesSubject(ctx, id, in.SubjectID); err != nil {
			return nil, err
		}
	}

	exam.Name = strings.TrimSpace(in.Name)
	exam.SubjectID = in.SubjectID
	exam.NumQuestions = in.NumQuestions
	exam.TotalMarks = in.TotalMarks
	exam.PassingMarks = in.PassingMarks
	exam.Duration = in.Duration
	exam.StartDate = in.StartDate
	exam.EndDate = in.EndDate

	ok, err := s.ExamRepo.UpdateDefinition(ctx, exam)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ConflictError("exam %d was modified concurrently, please retry", examID)
	}
	s.Cache.Invalidate(ctx, examID)

	fresh, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, err
	}
	summary := summarize(fresh)
	return &summary, nil
}

func changedFields(exam *model.Exam, in *ExamInput) []string {
	var changed []string
	if strings.TrimSpace(in.Name) != exam.Name {
		changed = append(changed, "name")
	}
	if in.SubjectID != exam.SubjectID {
		changed = append(changed, "subjectId")
	}
	if in.NumQuestions != exam.NumQuestions {
		changed = append(changed, "numQuestions")
	}
	if in.TotalMarks != exam.TotalMarks {
		changed = append(changed, "totalMarks")
	}
	if in.PassingMarks != exam.PassingMarks {
		changed = append(changed, "passingMarks")
	}
	if in.Duration != exam.Duration {
		changed = append(changed, "duration")
	}
	if !in.StartDate.Equal(exam.StartDate) {
		changed = append(changed, "startDate")
	}
	return changed
}

// UpdateExamStatus 激活要求题目数和总分都与声明值一致，错误中列出每一项差距
func (s *ExamService) UpdateExamStatus(ctx context.Context, id Identity, examID uint, active bool) (*ExamSummary, error) {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}

	if !active {
		if err := s.ExamRepo.Deactivate(ctx, examID); err != nil {
			return nil, err
		}
		exam.IsActive = false
		summary := summarize(exam)
		return &summary, nil
	}

	if err := incompleteError(exam); err != nil {
		return nil, err
	}
	ok, err := s.ExamRepo.Activate(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 检查之后题目被并发修改
		fresh, err := s.ExamRepo.FindByID(ctx, examID)
		if err != nil {
			return nil, err
		}
		if err := incompleteError(fresh); err != nil {
			return nil, err
		}
		return nil, util.ConflictError("exam %d was modified concurrently, please retry", examID)
	}
	exam.IsActive = true
	summary := summarize(exam)
	return &summary, nil
}

// incompleteError 试卷未编写完成时返回带差距明细的错误
func incompleteError(exam *model.Exam) error {
	if exam.IsAuthoringComplete() {
		return nil
	}
	var problems []string
	if exam.CurrentQuestionCount != exam.NumQuestions {
		problems = append(problems, fmt.Sprintf("questions %d/%d (%d missing)",
			exam.CurrentQuestionCount, exam.NumQuestions, exam.NumQuestions-exam.CurrentQuestionCount))
	}
	if exam.CurrentTotalMarks != exam.TotalMarks {
		problems = append(problems, fmt.Sprintf("marks %d/%d (%d remaining)",
			exam.CurrentTotalMarks, exam.TotalMarks, exam.RemainingMarks()))
	}
	return util.BadRequestError("exam is incomplete: %s", strings.Join(problems, "; ")).
		WithDetails(map[string]interface{}{
			"currentQuestionCount": exam.CurrentQuestionCount,
			"numQuestions":         exam.NumQuestions,
			"currentTotalMarks":    exam.CurrentTotalMarks,
			"totalMarks":           exam.TotalMarks,
			"remainingMarks":       exam.RemainingMarks(),
			"problems":             problems,
		})
}

func (s *ExamService) GetExam(ctx context.Context, id Identity, examID uint) (*ExamSummary, error) {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	summary := summarize(exam)
	return &summary, nil
}

// ListTeacherExams 管理员看到全部考试
func (s *ExamService) ListTeacherExams(ctx context.Context, id Identity) ([]ExamSummary, error) {
	teacherID := id.TeacherID
	if id.IsAdmin() {
		teacherID = 0
	} else if teacherID == 0 {
		return nil, util.ForbiddenError("teacher profile required")
	}
	exams, err := s.ExamRepo.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, err
	}
	summaries := make([]ExamSummary, 0, len(exams))
	for i := range exams {
		summaries = append(summaries, summarize(&exams[i]))
	}
	return summaries, nil
}

// DeleteExam 只能删除没有任何分配记录的考试
func (s *ExamService) DeleteExam(ctx context.Context, id Identity, examID uint) error {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return err
	}
	attempts, err := s.ExamRepo.CountAttempts(ctx, examID)
	if err != nil {
		return err
	}
	if attempts > 0 {
		return util.BadRequestError("exam %d has %d assigned students and cannot be deleted", examID, attempts).
			WithDetails(map[string]interface{}{"assignments": attempts})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		questions := s.Question.WithTx(tx)
		list, err := questions.ListByExam(ctx, examID)
		if err != nil {
			return err
		}
		for _, q := range list {
			if err := questions.Delete(ctx, q.ID); err != nil {
				return err
			}
		}
		return s.ExamRepo.WithTx(tx).Delete(ctx, examID)
	})
	if err != nil {
		return err
	}
	s.Cache.Invalidate(ctx, examID)
	return nil
}
