package service

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
	"testing"
	"time"
)

func TestStartAfterExamEnded(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.readyExam()
	student := f.newStudent(true)
	f.assign(examID, student)

	f.clock.Advance(48 * time.Hour)
	_, err := f.attempts.Start(f.ctx, student, examID)
	assertKind(t, err, util.ErrForbidden)
	if err.Error() != "exam has ended" {
		t.Fatalf("error = %q, want %q", err.Error(), "exam has ended")
	}
	if got := f.attempt(student, examID).Status; got != model.StatusNotStarted {
		t.Fatalf("status = %s, want NOT_STARTED", got)
	}
}

func TestStartPreconditions(t *testing.T) {
	f := newFixture(t)

	in := f.examInput(1, 5, 3)
	in.StartDate = testNow.Add(time.Hour)
	in.EndDate = testNow.Add(5 * time.Hour)
	future, err := f.exams.CreateExam(f.ctx, f.teacher, in)
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	f.addQuestion(future.ID, 5, 0)
	f.activate(future.ID)
	student := f.newStudent(true)
	f.assign(future.ID, student)

	_, err = f.attempts.Start(f.ctx, student, future.ID)
	assertKind(t, err, util.ErrForbidden)

	if _, err := f.exams.UpdateExamStatus(f.ctx, f.teacher, future.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	f.clock.Advance(2 * time.Hour)
	_, err = f.attempts.Start(f.ctx, student, future.ID)
	assertKind(t, err, util.ErrBadRequest)

	unassigned := f.newStudent(true)
	_, err = f.attempts.Start(f.ctx, unassigned, future.ID)
	assertKind(t, err, util.ErrNotFound)

	_, err = f.attempts.Start(f.ctx, f.teacher, future.ID)
	assertKind(t, err, util.ErrForbidden)
}

func TestStartOpensTimedSession(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.readyExam()
	student := f.newStudent(true)
	f.assign(examID, student)

	session, err := f.attempts.Start(f.ctx, student, examID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if !session.StartTime.Equal(testNow) || !session.EndTime.Equal(testNow.Add(60*time.Minute)) {
		t.Fatalf("session window %v - %v", session.StartTime, session.EndTime)
	}
	if session.AntiCheat.MaxViolations != model.MaxViolations {
		t.Fatalf("maxViolations = %d", session.AntiCheat.MaxViolations)
	}

	se := f.attempt(student, examID)
	if se.Status != model.StatusInProgress || se.EndTime == nil || !se.EndTime.Equal(session.EndTime) {
		t.Fatalf("stored attempt %+v", se)
	}

	_, err = f.attempts.Start(f.ctx, student, examID)
	assertKind(t, err, util.ErrBadRequest)
}

func TestGetExamQuestionsHidesAnswers(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.newStudent(true)
	f.assign(examID, student)

	_, err := f.attempts.GetExamQuestions(f.ctx, student, examID)
	assertKind(t, err, util.ErrBadRequest)

	if _, err := f.attempts.Start(f.ctx, student, examID); err != nil {
		t.Fatalf("start: %v", err)
	}
	views, err := f.attempts.GetExamQuestions(f.ctx, student, examID)
	if err != nil {
		t.Fatalf("get questions: %v", err)
	}
	if len(views) != len(questions) {
		t.Fatalf("got %d questions, want %d", len(views), len(questions))
	}
	for i, v := range views {
		if v.ID != questions[i].ID {
			t.Fatalf("question order changed: %d != %d", v.ID, questions[i].ID)
		}
		want := make(map[uint]bool)
		for _, o := range questions[i].Options {
			want[o.ID] = true
		}
		if len(v.Options) != len(want) {
			t.Fatalf("question %d has %d options, want %d", v.ID, len(v.Options), len(want))
		}
		for _, o := range v.Options {
			if !want[o.ID] {
				t.Fatalf("unexpected option %d on question %d", o.ID, v.ID)
			}
		}
	}
}

func TestSaveResponsesReplacesSheet(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)
	q1, q2 := questions[0], questions[1]

	if _, err := f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID},
		{QuestionID: q2.ID, OptionID: wrongOption(q2)},
	}); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if _, err := f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q2.ID, OptionID: *q2.CorrectOptionID},
	}); err != nil {
		t.Fatalf("second save: %v", err)
	}

	saved, err := f.attempts.GetSavedResponses(f.ctx, student, examID)
	if err != nil {
		t.Fatalf("get saved: %v", err)
	}
	if len(saved) != 1 || saved[0].QuestionID != q2.ID || saved[0].OptionID != *q2.CorrectOptionID {
		t.Fatalf("saved responses = %+v, want only q2", saved)
	}

	if _, err := f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{}); err != nil {
		t.Fatalf("clear save: %v", err)
	}
	saved, _ = f.attempts.GetSavedResponses(f.ctx, student, examID)
	if len(saved) != 0 {
		t.Fatalf("responses after clearing = %d", len(saved))
	}

	_, err = f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q1.ID, OptionID: q1.Options[0].ID},
		{QuestionID: q1.ID, OptionID: q1.Options[1].ID},
	})
	assertKind(t, err, util.ErrBadRequest)

	_, err = f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{{QuestionID: q1.ID}})
	assertKind(t, err, util.ErrBadRequest)

	f.clock.Advance(61 * time.Minute)
	_, err = f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID},
	})
	assertKind(t, err, util.ErrBadRequest)
}

func TestSubmitScoresWithNegativeMarking(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)
	q1, q2 := questions[0], questions[1]

	f.clock.Advance(10 * time.Minute)
	res, err := f.attempts.Submit(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID},
		{QuestionID: q2.ID, OptionID: wrongOption(q2)},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.Marks != 3 || res.Status != model.ResultFail {
		t.Fatalf("result marks=%v status=%s, want 3 FAIL", res.Marks, res.Status)
	}
	if res.AutoSubmitted {
		t.Fatal("manual submission marked as auto-submitted")
	}
	if res.TimeTaken != 600 {
		t.Fatalf("timeTaken = %d, want 600", res.TimeTaken)
	}
	if len(res.UnansweredQuestions) != 0 {
		t.Fatalf("unanswered = %v", res.UnansweredQuestions)
	}

	se := f.attempt(student, examID)
	if se.Status != model.StatusCompleted || se.SubmittedAt == nil {
		t.Fatalf("attempt after submit = %+v", se)
	}
	profile, err := f.repos.user.FindStudentByID(f.ctx, student.StudentID)
	if err != nil {
		t.Fatalf("student profile: %v", err)
	}
	if profile.CompletedExams != 1 {
		t.Fatalf("completedExams = %d, want 1", profile.CompletedExams)
	}

	// 答案在考试窗口关闭后才对学生可见
	f.clock.Advance(24 * time.Hour)
	review, err := f.results.GetMyAnswerSheet(f.ctx, student, examID)
	if err != nil {
		t.Fatalf("answer sheet: %v", err)
	}
	if review.KeyHidden {
		t.Fatal("answer key hidden after the exam window closed")
	}
	if len(review.Items) != 2 || !review.Items[0].IsCorrect || review.Items[1].IsCorrect {
		t.Fatalf("review items = %+v", review.Items)
	}
	if review.Items[1].Awarded != -2 {
		t.Fatalf("awarded on wrong answer = %v, want -2", review.Items[1].Awarded)
	}
}

func TestCompletedAttemptIsFinal(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)
	q1 := questions[0]

	if _, err := f.attempts.Submit(f.ctx, student, examID, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := f.attempts.Submit(f.ctx, student, examID, []ResponseInput{{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID}})
	assertKind(t, err, util.ErrBadRequest)
	_, err = f.attempts.SaveResponses(f.ctx, student, examID, []ResponseInput{{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID}})
	assertKind(t, err, util.ErrBadRequest)
	_, err = f.attempts.Start(f.ctx, student, examID)
	assertKind(t, err, util.ErrBadRequest)
	_, err = f.monitor.LogEvent(f.ctx, student, examID, model.EventTabSwitch)
	assertKind(t, err, util.ErrBadRequest)

	result, err := f.results.GetMyResult(f.ctx, student, examID)
	if err != nil {
		t.Fatalf("result: %v", err)
	}
	if result.Marks != 0 {
		t.Fatalf("marks changed after completion: %v", result.Marks)
	}

	var results int64
	f.db.Model(&model.Result{}).Count(&results)
	if results != 1 {
		t.Fatalf("results = %d, want exactly 1", results)
	}
}

func TestSubmitAfterDeadlineIsAutoSubmitted(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)
	q1 := questions[0]

	f.clock.Advance(2 * time.Hour)
	res, err := f.attempts.Submit(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q1.ID, OptionID: *q1.CorrectOptionID},
	})
	if err != nil {
		t.Fatalf("late submit: %v", err)
	}
	if !res.AutoSubmitted {
		t.Fatal("late submission should be auto-submitted")
	}
	if res.TimeTaken != 3600 {
		t.Fatalf("timeTaken = %d, want capped at 3600", res.TimeTaken)
	}
	if res.Marks != 5 || res.Status != model.ResultPass {
		t.Fatalf("late result %v %s, want 5 PASS", res.Marks, res.Status)
	}
	if len(res.UnansweredQuestions) != 1 || res.UnansweredQuestions[0] != questions[1].ID {
		t.Fatalf("unanswered = %v", res.UnansweredQuestions)
	}
}

func TestResultsVisibleToTeacher(t *testing.T) {
	f := newFixture(t)
	examID, questions := f.readyExam()
	student := f.startedAttempt(examID)

	_, err := f.results.GetMyResult(f.ctx, student, examID)
	assertKind(t, err, util.ErrBadRequest)

	q2 := questions[1]
	if _, err := f.attempts.Submit(f.ctx, student, examID, []ResponseInput{
		{QuestionID: q2.ID, OptionID: *q2.CorrectOptionID},
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	rows, err := f.results.ListExamResults(f.ctx, f.teacher, examID)
	if err != nil {
		t.Fatalf("list results: %v", err)
	}
	if len(rows) != 1 || rows[0].StudentID != student.StudentID || rows[0].Marks != 5 {
		t.Fatalf("result rows = %+v", rows)
	}
	if rows[0].StudentName == "" {
		t.Fatal("result row missing student name")
	}

	res, err := f.results.GetStudentResult(f.ctx, f.teacher, examID, student.StudentID)
	if err != nil || res.Status != model.ResultPass {
		t.Fatalf("student result = %+v, %v", res, err)
	}

	other := f.newTeacher(true)
	_, err = f.results.GetStudentAnswerSheet(f.ctx, other, examID, student.StudentID)
	assertKind(t, err, util.ErrForbidden)
}
