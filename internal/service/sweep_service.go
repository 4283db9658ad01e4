package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/lock"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/tracing"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const sweepLockKey = "exam:sweep:expired"

// SweepReport 一次清扫的统计
type SweepReport struct {
	Scanned       int  `json:"scanned"`
	Submitted     int  `json:"submitted"`
	AlreadyClosed int  `json:"alreadyClosed"`
	Failed        int  `json:"failed"`
	Skipped       bool `json:"skipped"`
}

// SweepService 把超过截止时间仍在作答的记录自动交卷，保留已保存的作答
type SweepService struct {
	DB              *gorm.DB
	StudentExamRepo *repository.StudentExamRepository
	ExamRepo        *repository.ExamRepository
	Submitter       *Submitter
	Locker          lock.Locker
	Clock           util.Clock

	mu       sync.Mutex
	interval time.Duration
	lockTTL  time.Duration
}

func NewSweepService(
	db *gorm.DB,
	studentExamRepo *repository.StudentExamRepository,
	examRepo *repository.ExamRepository,
	submitter *Submitter,
	locker lock.Locker,
	clock util.Clock,
	interval, lockTTL time.Duration,
) *SweepService {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &SweepService{
		DB:              db,
		StudentExamRepo: studentExamRepo,
		ExamRepo:        examRepo,
		Submitter:       submitter,
		Locker:          locker,
		Clock:           clock,
		interval:        interval,
		lockTTL:         lockTTL,
	}
}

// SetInterval 配置热更新时调整执行间隔，下一轮生效
func (s *SweepService) SetInterval(interval, lockTTL time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval > 0 {
		s.interval = interval
	}
	if lockTTL > 0 {
		s.lockTTL = lockTTL
	}
}

func (s *SweepService) settings() (time.Duration, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.interval, s.lockTTL
}

// Run 阻塞执行定时清扫直到 ctx 结束
func (s *SweepService) Run(ctx context.Context) {
	for {
		interval, _ := s.settings()
		timer := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		report, err := s.SweepExpired(ctx)
		if err != nil {
			logger.Log.Error("expiry sweep error", zap.Error(err))
			continue
		}
		if report.Scanned > 0 {
			logger.Log.Info("expiry sweep finished",
				zap.Int("scanned", report.Scanned),
				zap.Int("submitted", report.Submitted),
				zap.Int("failed", report.Failed))
		}
	}
}

// SweepExpired 逐条独立事务处理，单条失败记录日志后跳过
func (s *SweepService) SweepExpired(ctx context.Context) (report *SweepReport, err error) {
	report = &SweepReport{}
	_, lockTTL := s.settings()
	release, ok, err := s.Locker.TryLock(ctx, sweepLockKey, lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		report.Skipped = true
		return report, nil
	}
	defer release()

	started := time.Now()
	defer func() { monitoring.SweepDuration.Observe(time.Since(started).Seconds()) }()

	ctx, span := tracing.StartSpan(ctx, "sweep.expired", nil)
	defer func() { tracing.EndSpan(span, err) }()

	expired, err := s.StudentExamRepo.FindExpired(ctx, s.Clock.Now(), 0)
	if err != nil {
		return nil, err
	}
	report.Scanned = len(expired)

	exams := make(map[uint]*model.Exam)
	for i := range expired {
		se := &expired[i]
		err := s.sweepOne(ctx, se, exams)
		switch {
		case err == nil:
			report.Submitted++
			monitoring.SweepRuns.WithLabelValues("submitted").Inc()
			monitoring.ExamSubmissions.WithLabelValues(string(SubmitTimeout)).Inc()
		case errors.Is(err, errAttemptClosed):
			report.AlreadyClosed++
			monitoring.SweepRuns.WithLabelValues("already_closed").Inc()
		default:
			report.Failed++
			monitoring.SweepRuns.WithLabelValues("failed").Inc()
			logger.Log.Error("failed to auto-submit expired attempt",
				zap.Uint("studentExamId", se.ID),
				zap.Uint("examId", se.ExamID),
				zap.Error(err))
		}
	}
	return report, nil
}

func (s *SweepService) sweepOne(ctx context.Context, se *model.StudentExam, exams map[uint]*model.Exam) error {
	exam, ok := exams[se.ExamID]
	if !ok {
		var err error
		exam, err = s.ExamRepo.FindByID(ctx, se.ExamID)
		if err != nil {
			return notFoundOr(err, "exam %d not found", se.ExamID)
		}
		exams[se.ExamID] = exam
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		_, err := s.Submitter.Finalize(ctx, tx, se, exam, SubmitTimeout, nil)
		return err
	})
}
