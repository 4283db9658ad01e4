package service

import (
	"exam_portal_backend/internal/model"
	"testing"
	"time"
)

func TestAnswerKeyHiddenUntilExamEnds(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	cheater := f.startedAttempt(examID)
	peer := f.startedAttempt(examID)

	for i := 0; i < model.MaxViolations; i++ {
		if _, err := f.monitor.LogEvent(f.ctx, cheater, examID, model.EventTabSwitch); err != nil {
			t.Fatalf("log event %d: %v", i+1, err)
		}
	}
	if se := f.attempt(cheater, examID); se.Status != model.StatusCompleted {
		t.Fatalf("cheater status = %s, want COMPLETED", se.Status)
	}
	if se := f.attempt(peer, examID); se.Status != model.StatusInProgress {
		t.Fatalf("peer status = %s, want IN_PROGRESS", se.Status)
	}

	review, err := f.results.GetMyAnswerSheet(f.ctx, cheater, examID)
	if err != nil {
		t.Fatalf("answer sheet: %v", err)
	}
	if !review.KeyHidden {
		t.Fatal("answer key exposed while the exam window is open")
	}
	if len(review.Items) != len(questions) {
		t.Fatalf("items = %d, want %d", len(review.Items), len(questions))
	}
	for _, item := range review.Items {
		if item.CorrectOptionID != nil || item.IsCorrect || item.Awarded != 0 {
			t.Fatalf("item %d leaks grading: %+v", item.QuestionID, item)
		}
		if len(item.Options) == 0 {
			t.Fatalf("item %d lost its options", item.QuestionID)
		}
	}

	// 教师视图不受影响
	full, err := f.results.GetStudentAnswerSheet(f.ctx, f.teacher, examID, cheater.StudentID)
	if err != nil {
		t.Fatalf("teacher answer sheet: %v", err)
	}
	if full.KeyHidden || full.Items[0].CorrectOptionID == nil {
		t.Fatalf("teacher review redacted: %+v", full.Items[0])
	}

	// 结束时刻本身仍视为窗口内
	f.clock.T = f.exam(examID).EndDate
	review, err = f.results.GetMyAnswerSheet(f.ctx, cheater, examID)
	if err != nil || !review.KeyHidden {
		t.Fatalf("at end date: hidden=%v err=%v", review != nil && review.KeyHidden, err)
	}

	f.clock.Advance(time.Second)
	review, err = f.results.GetMyAnswerSheet(f.ctx, cheater, examID)
	if err != nil {
		t.Fatalf("answer sheet after end: %v", err)
	}
	if review.KeyHidden || review.Items[0].CorrectOptionID == nil {
		t.Fatalf("answer key still hidden after end: %+v", review.Items[0])
	}
}
