package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"

	"gorm.io/gorm"
)

// ReviewItem 答题卡上一道题的批改情况
type ReviewItem struct {
	QuestionID       uint               `json:"questionId"`
	Text             string             `json:"text"`
	Images           []string           `json:"images,omitempty"`
	Marks            int                `json:"marks"`
	NegativeMarks    float64            `json:"negativeMarks"`
	Options          []model.OptionView `json:"options"`
	CorrectOptionID  *uint              `json:"correctOptionId"`
	SelectedOptionID *uint              `json:"selectedOptionId"`
	IsCorrect        bool               `json:"isCorrect"`
	Awarded          float64            `json:"awarded"`
}

type AnswerSheetReview struct {
	StudentExamID uint          `json:"studentExamId"`
	StudentID     uint          `json:"studentId"`
	ExamID        uint          `json:"examId"`
	AutoSubmitted bool          `json:"autoSubmitted"`
	Result        *model.Result `json:"result"`
	KeyHidden     bool          `json:"keyHidden"`
	Items         []ReviewItem  `json:"items"`
}

func (r *AnswerSheetReview) hideKey() {
	r.KeyHidden = true
	for i := range r.Items {
		r.Items[i].CorrectOptionID = nil
		r.Items[i].IsCorrect = false
		r.Items[i].Awarded = 0
	}
}

type ResultService struct {
	StudentExamRepo *repository.StudentExamRepository
	ResultRepo      *repository.ResultRepository
	AnswerSheetRepo *repository.AnswerSheetRepository
	QuestionRepo    *repository.QuestionRepository
	AntiCheatRepo   *repository.AntiCheatingRepository
	ExamRepo        *repository.ExamRepository
	Guard           *AccessGuard
	Clock           util.Clock
}

func NewResultService(
	studentExamRepo *repository.StudentExamRepository,
	resultRepo *repository.ResultRepository,
	answerSheetRepo *repository.AnswerSheetRepository,
	questionRepo *repository.QuestionRepository,
	antiCheatRepo *repository.AntiCheatingRepository,
	examRepo *repository.ExamRepository,
	guard *AccessGuard,
	clock util.Clock,
) *ResultService {
	return &ResultService{
		StudentExamRepo: studentExamRepo,
		ResultRepo:      resultRepo,
		AnswerSheetRepo: answerSheetRepo,
		QuestionRepo:    questionRepo,
		AntiCheatRepo:   antiCheatRepo,
		ExamRepo:        examRepo,
		Guard:           guard,
		Clock:           clock,
	}
}

func (s *ResultService) completedAttempt(ctx context.Context, studentID, examID uint) (*model.StudentExam, error) {
	se, err := s.StudentExamRepo.FindByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, notFoundOr(err, "no attempt of exam %d for student %d", examID, studentID)
	}
	if se.Status != model.StatusCompleted {
		return nil, util.BadRequestError("exam attempt is %s, results are available after completion", se.Status).
			WithDetails(map[string]interface{}{"currentStatus": se.Status})
	}
	return se, nil
}

func (s *ResultService) resultOf(ctx context.Context, se *model.StudentExam) (*model.Result, error) {
	result, err := s.ResultRepo.FindByStudentExam(ctx, se.ID)
	if err != nil {
		return nil, notFoundOr(err, "result for attempt %d not found", se.ID)
	}
	return result, nil
}

func (s *ResultService) GetMyResult(ctx context.Context, id Identity, examID uint) (*model.Result, error) {
	studentID, err := s.Guard.StudentProfile(id)
	if err != nil {
		return nil, err
	}
	se, err := s.completedAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	return s.resultOf(ctx, se)
}

func (s *ResultService) GetMyAnswerSheet(ctx context.Context, id Identity, examID uint) (*AnswerSheetReview, error) {
	studentID, err := s.Guard.StudentProfile(id)
	if err != nil {
		return nil, err
	}
	se, err := s.completedAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, notFoundOr(err, "exam %d not found", examID)
	}
	review, err := s.review(ctx, se)
	if err != nil {
		return nil, err
	}
	// 考试窗口结束前其他学生可能仍在作答，不下发答案和逐题批改
	if !s.Clock.Now().After(exam.EndDate) {
		review.hideKey()
	}
	return review, nil
}

func (s *ResultService) ListExamResults(ctx context.Context, id Identity, examID uint) ([]repository.ExamResultRow, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	return s.ResultRepo.ListByExam(ctx, examID)
}

func (s *ResultService) GetStudentResult(ctx context.Context, id Identity, examID, studentID uint) (*model.Result, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	se, err := s.completedAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	return s.resultOf(ctx, se)
}

func (s *ResultService) GetStudentAnswerSheet(ctx context.Context, id Identity, examID, studentID uint) (*AnswerSheetReview, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	se, err := s.completedAttempt(ctx, studentID, examID)
	if err != nil {
		return nil, err
	}
	return s.review(ctx, se)
}

// GetCheatLogs 任何状态下都可查看
func (s *ResultService) GetCheatLogs(ctx context.Context, id Identity, examID, studentID uint) ([]model.AntiCheatingLog, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	se, err := s.StudentExamRepo.FindByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, notFoundOr(err, "no attempt of exam %d for student %d", examID, studentID)
	}
	return s.AntiCheatRepo.ListByStudentExam(ctx, se.ID)
}

func (s *ResultService) review(ctx context.Context, se *model.StudentExam) (*AnswerSheetReview, error) {
	result, err := s.resultOf(ctx, se)
	if err != nil {
		return nil, err
	}
	questions, err := s.QuestionRepo.ListByExam(ctx, se.ExamID)
	if err != nil {
		return nil, err
	}

	selected := make(map[uint]uint)
	sheet, err := s.AnswerSheetRepo.FindByStudentExam(ctx, se.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if sheet != nil {
		for _, r := range sheet.Responses {
			if _, ok := selected[r.QuestionID]; !ok {
				selected[r.QuestionID] = r.OptionID
			}
		}
	}

	review := &AnswerSheetReview{
		StudentExamID: se.ID,
		StudentID:     se.StudentID,
		ExamID:        se.ExamID,
		AutoSubmitted: se.AutoSubmitted,
		Result:        result,
		Items:         make([]ReviewItem, 0, len(questions)),
	}
	for _, q := range questions {
		item := ReviewItem{
			QuestionID:      q.ID,
			Text:            q.Text,
			Images:          q.ImageList(),
			Marks:           q.Marks,
			NegativeMarks:   q.NegativeMarks,
			CorrectOptionID: q.CorrectOptionID,
			Options:         make([]model.OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			item.Options = append(item.Options, model.OptionView{ID: o.ID, Text: o.Text})
		}
		if optionID, ok := selected[q.ID]; ok {
			chosen := optionID
			item.SelectedOptionID = &chosen
			if q.CorrectOptionID != nil && chosen == *q.CorrectOptionID {
				item.IsCorrect = true
				item.Awarded = float64(q.Marks)
			} else {
				item.Awarded = -q.NegativeMarks
			}
		}
		review.Items = append(review.Items, item)
	}
	return review, nil
}
