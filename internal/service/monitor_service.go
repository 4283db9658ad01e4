package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type CheatEventInput struct {
	EventType model.CheatEventType `json:"eventType" binding:"required,cheatevent"`
}

// ViolationReport 记录违规后的累计情况
type ViolationReport struct {
	StudentExamID  uint          `json:"studentExamId"`
	ViolationCount int64         `json:"violationCount"`
	MaxViolations  int           `json:"maxViolations"`
	Remaining      int64         `json:"remaining"`
	AutoSubmitted  bool          `json:"autoSubmitted"`
	Result         *model.Result `json:"result,omitempty"`
}

type MonitorService struct {
	DB              *gorm.DB
	AntiCheatRepo   *repository.AntiCheatingRepository
	StudentExamRepo *repository.StudentExamRepository
	ExamRepo        *repository.ExamRepository
	Submitter       *Submitter
	Guard           *AccessGuard
	Clock           util.Clock
}

func NewMonitorService(
	db *gorm.DB,
	antiCheatRepo *repository.AntiCheatingRepository,
	studentExamRepo *repository.StudentExamRepository,
	examRepo *repository.ExamRepository,
	submitter *Submitter,
	guard *AccessGuard,
	clock util.Clock,
) *MonitorService {
	return &MonitorService{
		DB:              db,
		AntiCheatRepo:   antiCheatRepo,
		StudentExamRepo: studentExamRepo,
		ExamRepo:        examRepo,
		Submitter:       submitter,
		Guard:           guard,
		Clock:           clock,
	}
}

// LogEvent 追加一条违规记录；累计达到上限时强制交卷，已保存的作答作废
func (s *MonitorService) LogEvent(ctx context.Context, id Identity, examID uint, eventType model.CheatEventType) (*ViolationReport, error) {
	if !eventType.Valid() {
		return nil, util.BadRequestError("unknown event type %q", eventType)
	}
	studentID, err := s.Guard.StudentProfile(id)
	if err != nil {
		return nil, err
	}
	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, notFoundOr(err, "exam %d not found", examID)
	}
	se, err := s.StudentExamRepo.FindByStudentAndExam(ctx, studentID, examID)
	if err != nil {
		return nil, notFoundOr(err, "exam %d is not assigned to you", examID)
	}
	if err := requireInProgress(se); err != nil {
		return nil, err
	}

	report := &ViolationReport{StudentExamID: se.ID, MaxViolations: model.MaxViolations}
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 先锁作答行，同一作答的违规记录串行计数，第 3 次一定能看到前两次
		locked, err := s.StudentExamRepo.WithTx(tx).FindForUpdate(ctx, se.ID)
		if err != nil {
			return err
		}
		logs := s.AntiCheatRepo.WithTx(tx)
		entry := &model.AntiCheatingLog{
			StudentExamID: se.ID,
			EventType:     eventType,
			Timestamp:     s.Clock.Now(),
		}
		if err := logs.Create(ctx, entry); err != nil {
			return err
		}
		count, err := logs.CountByStudentExam(ctx, se.ID)
		if err != nil {
			return err
		}
		report.ViolationCount = count
		if count < model.MaxViolations {
			return nil
		}

		if locked.Status != model.StatusInProgress {
			return nil
		}
		finalized, err := s.Submitter.Finalize(ctx, tx, locked, exam, SubmitViolation, nil)
		if errors.Is(err, errAttemptClosed) {
			// 已被其它路径交卷，只保留违规记录
			return nil
		}
		if err != nil {
			return err
		}
		report.AutoSubmitted = true
		report.Result = finalized.Result
		return nil
	})
	if err != nil {
		return nil, err
	}

	monitoring.CheatingEvents.WithLabelValues(string(eventType)).Inc()
	if remaining := int64(model.MaxViolations) - report.ViolationCount; remaining > 0 {
		report.Remaining = remaining
	}
	if report.AutoSubmitted {
		monitoring.ExamSubmissions.WithLabelValues(string(SubmitViolation)).Inc()
		logger.Log.Warn("attempt force-submitted after violations",
			zap.Uint("studentExamId", se.ID),
			zap.Int64("violations", report.ViolationCount))
	}
	return report, nil
}
