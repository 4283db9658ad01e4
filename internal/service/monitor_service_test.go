package service

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
	"testing"
)

func TestViolationsForceSubmissionAndForfeitAnswers(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)

	var inputs []ResponseInput
	for _, q := range questions {
		inputs = append(inputs, ResponseInput{QuestionID: q.ID, OptionID: *q.CorrectOptionID})
	}
	if _, err := f.attempts.SaveResponses(f.ctx, student, examID, inputs); err != nil {
		t.Fatalf("save responses: %v", err)
	}

	events := []model.CheatEventType{model.EventTabSwitch, model.EventFullscreenExit}
	for i, ev := range events {
		report, err := f.monitor.LogEvent(f.ctx, student, examID, ev)
		if err != nil {
			t.Fatalf("event %d: %v", i+1, err)
		}
		if report.AutoSubmitted || report.ViolationCount != int64(i+1) {
			t.Fatalf("event %d report = %+v", i+1, report)
		}
		if report.Remaining != int64(model.MaxViolations-i-1) {
			t.Fatalf("event %d remaining = %d", i+1, report.Remaining)
		}
	}

	report, err := f.monitor.LogEvent(f.ctx, student, examID, model.EventTabSwitch)
	if err != nil {
		t.Fatalf("third event: %v", err)
	}
	if !report.AutoSubmitted || report.ViolationCount != 3 || report.Result == nil {
		t.Fatalf("third event report = %+v", report)
	}
	if report.Result.Marks != 0 || report.Result.Status != model.ResultFail {
		t.Fatalf("forced result = %v %s, want 0 FAIL", report.Result.Marks, report.Result.Status)
	}

	se := f.attempt(student, examID)
	if se.Status != model.StatusCompleted || !se.AutoSubmitted {
		t.Fatalf("attempt after violations = %+v", se)
	}

	sheet, err := f.repos.answerSheet.FindByStudentExam(f.ctx, se.ID)
	if err != nil {
		t.Fatalf("answer sheet: %v", err)
	}
	if len(sheet.Responses) != 0 {
		t.Fatalf("forfeited sheet still holds %d responses", len(sheet.Responses))
	}

	logs, err := f.results.GetCheatLogs(f.ctx, f.teacher, examID, student.StudentID)
	if err != nil {
		t.Fatalf("cheat logs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("cheat logs = %d, want 3", len(logs))
	}
}

func TestLogEventValidation(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.readyExam()
	student := f.newStudent(true)
	f.assign(examID, student)

	_, err := f.monitor.LogEvent(f.ctx, student, examID, model.CheatEventType("COPY_PASTE"))
	assertKind(t, err, util.ErrBadRequest)

	_, err = f.monitor.LogEvent(f.ctx, student, examID, model.EventTabSwitch)
	assertKind(t, err, util.ErrBadRequest)

	_, err = f.monitor.LogEvent(f.ctx, f.teacher, examID, model.EventTabSwitch)
	assertKind(t, err, util.ErrForbidden)
}
