package service

import (
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/util"
	"testing"
	"time"
)

func TestActivationRequiresCompleteAuthoring(t *testing.T) {
	f := newFixture(t)
	examID := f.createExam(2, 10, 5)

	f.addQuestion(examID, 4, 0)
	_, err := f.exams.UpdateExamStatus(f.ctx, f.teacher, examID, true)
	assertKind(t, err, util.ErrBadRequest)
	details := util.DetailsOf(err)
	if details["remainingMarks"] != 6 {
		t.Fatalf("remainingMarks detail = %v, want 6", details["remainingMarks"])
	}
	if f.exam(examID).IsActive {
		t.Fatal("incomplete exam must stay inactive")
	}

	f.addQuestion(examID, 6, 0)
	summary, err := f.exams.UpdateExamStatus(f.ctx, f.teacher, examID, true)
	if err != nil {
		t.Fatalf("activate complete exam: %v", err)
	}
	if !summary.IsActive || !summary.IsComplete {
		t.Fatalf("summary active=%v complete=%v, want both true", summary.IsActive, summary.IsComplete)
	}

	if _, err := f.exams.UpdateExamStatus(f.ctx, f.teacher, examID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if f.exam(examID).IsActive {
		t.Fatal("exam should be inactive after deactivation")
	}
}

func TestCreateExamValidation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name   string
		mutate func(in *ExamInput)
	}{
		{"passing above total", func(in *ExamInput) { in.PassingMarks = in.TotalMarks + 1 }},
		{"negative passing", func(in *ExamInput) { in.PassingMarks = -1 }},
		{"zero duration", func(in *ExamInput) { in.Duration = 0 }},
		{"end before start", func(in *ExamInput) { in.EndDate = in.StartDate.Add(-time.Minute) }},
		{"blank name", func(in *ExamInput) { in.Name = "   " }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			in := f.examInput(2, 10, 5)
			tc.mutate(&in)
			_, err := f.exams.CreateExam(f.ctx, f.teacher, in)
			assertKind(t, err, util.ErrBadRequest)
		})
	}
}

func TestCreateExamRequiresSubjectTeacher(t *testing.T) {
	f := newFixture(t)
	outsider := f.newTeacher(false)

	_, err := f.exams.CreateExam(f.ctx, outsider, f.examInput(2, 10, 5))
	assertKind(t, err, util.ErrForbidden)

	student := f.newStudent(true)
	_, err = f.exams.CreateExam(f.ctx, student, f.examInput(2, 10, 5))
	assertKind(t, err, util.ErrForbidden)
}

func TestExamOwnership(t *testing.T) {
	f := newFixture(t)
	examID := f.createExam(2, 10, 5)
	other := f.newTeacher(true)

	_, err := f.exams.GetExam(f.ctx, other, examID)
	assertKind(t, err, util.ErrForbidden)

	_, err = f.exams.UpdateExamStatus(f.ctx, other, examID, false)
	assertKind(t, err, util.ErrForbidden)

	if _, err := f.exams.GetExam(f.ctx, f.admin, examID); err != nil {
		t.Fatalf("admin should read any exam: %v", err)
	}

	_, err = f.exams.GetExam(f.ctx, f.teacher, examID+100)
	assertKind(t, err, util.ErrNotFound)

	mine, err := f.exams.ListTeacherExams(f.ctx, f.teacher)
	if err != nil {
		t.Fatalf("list exams: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != examID {
		t.Fatalf("teacher exams = %+v, want only %d", mine, examID)
	}
	theirs, err := f.exams.ListTeacherExams(f.ctx, other)
	if err != nil {
		t.Fatalf("list exams: %v", err)
	}
	if len(theirs) != 0 {
		t.Fatalf("other teacher sees %d exams, want 0", len(theirs))
	}
}

func TestUpdateExamAfterStart(t *testing.T) {
	f := newFixture(t)
	examID := f.createExam(2, 10, 5)

	in := f.examInput(2, 10, 6)
	_, err := f.exams.UpdateExam(f.ctx, f.teacher, examID, in)
	assertKind(t, err, util.ErrBadRequest)
	changed, _ := util.DetailsOf(err)["changedFields"].([]string)
	if len(changed) != 1 || changed[0] != "passingMarks" {
		t.Fatalf("changedFields = %v, want [passingMarks]", changed)
	}

	in = f.examInput(2, 10, 5)
	in.EndDate = in.EndDate.Add(48 * time.Hour)
	summary, err := f.exams.UpdateExam(f.ctx, f.teacher, examID, in)
	if err != nil {
		t.Fatalf("extend end date: %v", err)
	}
	if !summary.EndDate.Equal(in.EndDate) {
		t.Fatalf("endDate = %v, want %v", summary.EndDate, in.EndDate)
	}
}

func TestUpdateExamBeforeStart(t *testing.T) {
	f := newFixture(t)
	in := f.examInput(3, 10, 5)
	in.StartDate = testNow.Add(24 * time.Hour)
	in.EndDate = testNow.Add(48 * time.Hour)
	created, err := f.exams.CreateExam(f.ctx, f.teacher, in)
	if err != nil {
		t.Fatalf("create exam: %v", err)
	}
	f.addQuestion(created.ID, 4, 0)

	shrink := in
	shrink.TotalMarks = 3
	shrink.PassingMarks = 2
	_, err = f.exams.UpdateExam(f.ctx, f.teacher, created.ID, shrink)
	assertKind(t, err, util.ErrBadRequest)

	grow := in
	grow.NumQuestions = 4
	grow.TotalMarks = 20
	grow.Name = "Algebra final"
	summary, err := f.exams.UpdateExam(f.ctx, f.teacher, created.ID, grow)
	if err != nil {
		t.Fatalf("update exam: %v", err)
	}
	if summary.NumQuestions != 4 || summary.TotalMarks != 20 || summary.Name != "Algebra final" {
		t.Fatalf("unexpected summary %+v", summary.Exam)
	}
	if summary.CurrentQuestionCount != 1 || summary.CurrentTotalMarks != 4 {
		t.Fatalf("counters changed by update: %d/%d", summary.CurrentQuestionCount, summary.CurrentTotalMarks)
	}
	if summary.RemainingMarks != 16 {
		t.Fatalf("remainingMarks = %d, want 16", summary.RemainingMarks)
	}
}

func TestUpdateExamRejectedAfterCompletedAttempt(t *testing.T) {
	f := newFixture(t)
	examID, _ := f.readyExam()
	student := f.startedAttempt(examID)
	if _, err := f.attempts.Submit(f.ctx, student, examID, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}

	in := f.examInput(2, 10, 5)
	in.EndDate = in.EndDate.Add(time.Hour)
	_, err := f.exams.UpdateExam(f.ctx, f.teacher, examID, in)
	assertKind(t, err, util.ErrBadRequest)
}

func TestDeleteExam(t *testing.T) {
	f := newFixture(t)

	examID := f.createExam(2, 10, 5)
	f.addQuestion(examID, 5, 0)
	if err := f.exams.DeleteExam(f.ctx, f.teacher, examID); err != nil {
		t.Fatalf("delete exam: %v", err)
	}
	_, err := f.exams.GetExam(f.ctx, f.teacher, examID)
	assertKind(t, err, util.ErrNotFound)

	assigned, _ := f.readyExam()
	f.assign(assigned, f.newStudent(true))
	err = f.exams.DeleteExam(f.ctx, f.teacher, assigned)
	assertKind(t, err, util.ErrBadRequest)
	if f.exam(assigned).ID != assigned {
		t.Fatal("assigned exam should survive")
	}
}

func TestExamSummaryReflectsModel(t *testing.T) {
	exam := &model.Exam{NumQuestions: 3, TotalMarks: 10, CurrentQuestionCount: 3, CurrentTotalMarks: 10}
	if s := summarize(exam); !s.IsComplete || s.RemainingMarks != 0 {
		t.Fatalf("complete exam summarized as %+v", s)
	}
	exam.CurrentTotalMarks = 7
	if s := summarize(exam); s.IsComplete || s.RemainingMarks != 3 {
		t.Fatalf("incomplete exam summarized as %+v", s)
	}
}
