package service

import (
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
	"sync"
	"testing"
	"time"
)

func countResults(f *fixture, studentExamID uint) int64 {
	f.t.Helper()
	var n int64
	if err := f.db.Model(&model.Result{}).Where("student_exam_id = ?", studentExamID).Count(&n).Error; err != nil {
		f.t.Fatalf("count results: %v", err)
	}
	return n
}

func TestConcurrentViolationsForceOneSubmission(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.readyExam()
	student := f.startedAttempt(examID)

	events := []model.CheatEventType{model.EventTabSwitch, model.EventFullscreenExit, model.EventTabSwitch}
	reports := make([]*ViolationReport, len(events))
	errs := make([]error, len(events))

	var wg sync.WaitGroup
	for i, ev := range events {
		wg.Add(1)
		go func(i int, ev model.CheatEventType) {
			defer wg.Done()
			reports[i], errs[i] = f.monitor.LogEvent(f.ctx, student, examID, ev)
		}(i, ev)
	}
	wg.Wait()

	forced := 0
	for i, err := range errs {
		if err != nil {
			t.Fatalf("event %d: %v", i, err)
		}
		if reports[i].AutoSubmitted {
			forced++
		}
	}
	if forced != 1 {
		t.Fatalf("forced submissions = %d, want 1", forced)
	}

	se := f.attempt(student, examID)
	if se.Status != model.StatusCompleted || !se.AutoSubmitted {
		t.Fatalf("attempt = %s auto=%v, want COMPLETED auto", se.Status, se.AutoSubmitted)
	}
	if n := countResults(f, se.ID); n != 1 {
		t.Fatalf("results = %d, want 1", n)
	}
}

func TestConcurrentFinalizationProducesOneResult(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)
	q1 := questions[0]

	for i := 0; i < model.MaxViolations-1; i++ {
		if _, err := f.monitor.LogEvent(f.ctx, student, examID, model.EventFullscreenExit); err != nil {
			t.Fatalf("log event: %v", err)
		}
	}
	if _, err := f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID},
	}); err != nil {
		t.Fatalf("save: %v", err)
	}
	// 超过作答截止时间，清扫、迟交和第三次违规同时到达
	f.clock.Advance(2 * time.Hour)

	var (
		wg        sync.WaitGroup
		submitErr error
		eventErr  error
		sweepErr  error
		report    *SweepReport
	)
	wg.Add(3)
	go func() {
		defer wg.Done()
		_, submitErr = f.attempts.Submit(f.ctx, student, examID, []ResponseInput{
			{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID},
		})
	}()
	go func() {
		defer wg.Done()
		_, eventErr = f.monitor.LogEvent(f.ctx, student, examID, model.EventTabSwitch)
	}()
	go func() {
		defer wg.Done()
		report, sweepErr = f.sweep.SweepExpired(f.ctx)
	}()
	wg.Wait()

	for name, err := range map[string]error{"submit": submitErr, "event": eventErr} {
		if err != nil && !errors.Is(err, util.ErrConflict) && !errors.Is(err, util.ErrBadRequest) {
			t.Fatalf("%s: unexpected error %v", name, err)
		}
	}
	if sweepErr != nil {
		t.Fatalf("sweep: %v", sweepErr)
	}
	if report.Failed != 0 {
		t.Fatalf("sweep report = %+v", report)
	}

	se := f.attempt(student, examID)
	if se.Status != model.StatusCompleted {
		t.Fatalf("attempt status = %s, want COMPLETED", se.Status)
	}
	if n := countResults(f, se.ID); n != 1 {
		t.Fatalf("results = %d, want exactly 1", n)
	}
	profile, err := f.repos.user.FindStudentByID(f.ctx, student.StudentID)
	if err != nil {
		t.Fatalf("student profile: %v", err)
	}
	if profile.CompletedExams != 1 {
		t.Fatalf("completedExams = %d, want 1", profile.CompletedExams)
	}
}
