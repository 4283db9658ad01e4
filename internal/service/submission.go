package service

import (
	"context"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// SubmissionMode 决定交卷时使用哪份作答
type SubmissionMode string

const (
	// SubmitManual 学生主动交卷，使用请求中的作答
	SubmitManual SubmissionMode = "manual"
	// SubmitLate 超时后学生仍主动交卷
	SubmitLate SubmissionMode = "late"
	// SubmitTimeout 到期自动交卷，保留已保存的作答
	SubmitTimeout SubmissionMode = "timeout"
	// SubmitViolation 违规达到上限，清空已保存的作答
	SubmitViolation SubmissionMode = "violation"
)

var errAttemptClosed = util.ConflictError("attempt is no longer in progress")

// Submitter 主动交卷、违规强制交卷和到期清扫共用的交卷路径
type Submitter struct {
	StudentExamRepo *repository.StudentExamRepository
	AnswerSheetRepo *repository.AnswerSheetRepository
	ResultRepo      *repository.ResultRepository
	QuestionRepo    *repository.QuestionRepository
	UserRepo        *repository.UserRepository
	Clock           util.Clock
}

func NewSubmitter(
	studentExamRepo *repository.StudentExamRepository,
	answerSheetRepo *repository.AnswerSheetRepository,
	resultRepo *repository.ResultRepository,
	questionRepo *repository.QuestionRepository,
	userRepo *repository.UserRepository,
	clock util.Clock,
) *Submitter {
	return &Submitter{
		StudentExamRepo: studentExamRepo,
		AnswerSheetRepo: answerSheetRepo,
		ResultRepo:      resultRepo,
		QuestionRepo:    questionRepo,
		UserRepo:        userRepo,
		Clock:           clock,
	}
}

type Finalized struct {
	Result     *model.Result
	Unanswered []uint
}

// Finalize 必须在事务内调用。状态从 IN_PROGRESS 到 COMPLETED 的条件更新放在最前，
// 并发的第二次交卷在这里返回 errAttemptClosed，不会产生第二个 Result
func (s *Submitter) Finalize(ctx context.Context, tx *gorm.DB, se *model.StudentExam, exam *model.Exam, mode SubmissionMode, provided []model.Response) (*Finalized, error) {
	now := s.Clock.Now()
	autoSubmitted := mode != SubmitManual

	ok, err := s.StudentExamRepo.WithTx(tx).Transition(ctx, se.ID, model.StatusInProgress, map[string]interface{}{
		"status":         model.StatusCompleted,
		"submitted_at":   now,
		"auto_submitted": autoSubmitted,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errAttemptClosed
	}

	sheets := s.AnswerSheetRepo.WithTx(tx)
	sheet, err := sheets.GetOrCreate(ctx, se.ID)
	if err != nil {
		return nil, conflictOr(err, "answer sheet for attempt %d already exists", se.ID)
	}

	var responses []model.Response
	switch mode {
	case SubmitTimeout:
		responses = sheet.Responses
	case SubmitViolation:
		if responses, err = sheets.ReplaceResponses(ctx, sheet.ID, nil); err != nil {
			return nil, err
		}
	default:
		if responses, err = sheets.ReplaceResponses(ctx, sheet.ID, provided); err != nil {
			return nil, err
		}
	}

	questions, err := s.QuestionRepo.WithTx(tx).ListByExam(ctx, exam.ID)
	if err != nil {
		return nil, err
	}
	score := ComputeScore(questions, responses, exam.PassingMarks)

	result := &model.Result{
		StudentExamID: se.ID,
		Marks:         score.Obtained,
		TimeTaken:     timeTaken(se, now),
		Status:        score.Status,
	}
	if err := s.ResultRepo.WithTx(tx).Create(ctx, result); err != nil {
		return nil, conflictOr(err, "result for attempt %d already exists", se.ID)
	}

	if err := s.UserRepo.WithTx(tx).IncrementCompletedExams(ctx, se.StudentID); err != nil {
		return nil, err
	}

	se.Status = model.StatusCompleted
	se.SubmittedAt = &now
	se.AutoSubmitted = autoSubmitted
	return &Finalized{Result: result, Unanswered: score.Unanswered}, nil
}

// timeTaken 以秒计，超时交卷最多计到截止时间
func timeTaken(se *model.StudentExam, now time.Time) int {
	if se.StartTime == nil {
		return 0
	}
	end := now
	if se.EndTime != nil && now.After(*se.EndTime) {
		end = *se.EndTime
	}
	secs := int(end.Sub(*se.StartTime).Seconds())
	if secs < 0 {
		return 0
	}
	return secs
}
