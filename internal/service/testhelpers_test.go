package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"exam_portal_backend/pkg/database"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	db    *gorm.DB
	clock *util.FixedClock

	repos struct {
		user        *repository.UserRepository
		subject     *repository.SubjectRepository
		exam        *repository.ExamRepository
		question    *repository.QuestionRepository
		studentExam *repository.StudentExamRepository
		answerSheet *repository.AnswerSheetRepository
		result      *repository.ResultRepository
		antiCheat   *repository.AntiCheatingRepository
	}

	auth       *AuthService
	subjects   *SubjectService
	exams      *ExamService
	questions  *QuestionService
	assignment *AssignmentService
	attempts   *AttemptService
	monitor    *MonitorService
	sweep      *SweepService
	results    *ResultService
	storage    *StorageService

	admin     Identity
	teacher   Identity
	subjectID uint
	seq       int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), "exam.db") + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		db:    db,
		clock: &util.FixedClock{T: testNow},
		admin: Identity{UserID: 999, Role: model.RoleAdmin},
	}
	f.repos.user = repository.NewUserRepository(db)
	f.repos.subject = repository.NewSubjectRepository(db)
	f.repos.exam = repository.NewExamRepository(db)
	f.repos.question = repository.NewQuestionRepository(db)
	f.repos.studentExam = repository.NewStudentExamRepository(db)
	f.repos.answerSheet = repository.NewAnswerSheetRepository(db)
	f.repos.result = repository.NewResultRepository(db)
	f.repos.antiCheat = repository.NewAntiCheatingRepository(db)

	cache := repository.NewQuestionCache(nil)
	guard := NewAccessGuard(f.repos.exam, f.repos.subject, f.repos.user)
	submitter := NewSubmitter(f.repos.studentExam, f.repos.answerSheet, f.repos.result, f.repos.question, f.repos.user, f.clock)
	storage := &StorageService{Provider: &LocalStorageProvider{Config: &config.StorageConfig{LocalPath: t.TempDir()}}}
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "test-secret", ExpireTime: time.Hour}}

	f.storage = storage
	f.auth = NewAuthService(db, f.repos.user, cfg, f.clock)
	f.subjects = NewSubjectService(f.repos.subject, f.repos.user)
	f.exams = NewExamService(db, f.repos.exam, f.repos.question, cache, guard, f.clock)
	f.questions = NewQuestionService(db, f.repos.exam, f.repos.question, cache, guard, storage)
	f.assignment = NewAssignmentService(db, f.repos.exam, f.repos.studentExam, f.repos.subject, f.repos.user, guard, f.clock)
	f.attempts = NewAttemptService(db, f.repos.exam, f.repos.studentExam, f.repos.question, f.repos.answerSheet, cache, submitter, guard, f.clock)
	f.monitor = NewMonitorService(db, f.repos.antiCheat, f.repos.studentExam, f.repos.exam, submitter, guard, f.clock)
	f.sweep = NewSweepService(db, f.repos.studentExam, f.repos.exam, submitter, nil, f.clock, time.Minute, time.Minute)
	f.results = NewResultService(f.repos.studentExam, f.repos.result, f.repos.answerSheet, f.repos.question, f.repos.antiCheat, f.repos.exam, guard, f.clock)

	subject, err := f.subjects.CreateSubject(f.ctx, "Mathematics", "math101")
	if err != nil {
		t.Fatalf("create subject: %v", err)
	}
	f.subjectID = subject.ID
	f.teacher = f.newTeacher(true)
	return f
}

func (f *fixture) register(role model.UserRole) *model.User {
	f.t.Helper()
	f.seq++
	email := fmt.Sprintf("%s%d@example.com", role, f.seq)
	user, err := f.auth.Register(f.ctx, fmt.Sprintf("%s %d", role, f.seq), email, "password123", role)
	if err != nil {
		f.t.Fatalf("register %s: %v", email, err)
	}
	return user
}

// newTeacher 创建教师，teaches 为 true 时任教 fixture 的科目
func (f *fixture) newTeacher(teaches bool) Identity {
	f.t.Helper()
	user := f.register(model.RoleTeacher)
	teacher, err := f.repos.user.FindTeacherByUserID(f.ctx, user.ID)
	if err != nil {
		f.t.Fatalf("teacher profile: %v", err)
	}
	if teaches {
		if err := f.subjects.AssignTeacher(f.ctx, f.subjectID, teacher.ID); err != nil {
			f.t.Fatalf("assign teacher: %v", err)
		}
	}
	return Identity{UserID: user.ID, Role: model.RoleTeacher, TeacherID: teacher.ID}
}

// newStudent 创建学生，enrolled 为 true 时选修 fixture 的科目
func (f *fixture) newStudent(enrolled bool) Identity {
	f.t.Helper()
	user := f.register(model.RoleStudent)
	student, err := f.repos.user.FindStudentByUserID(f.ctx, user.ID)
	if err != nil {
		f.t.Fatalf("student profile: %v", err)
	}
	if enrolled {
		if err := f.subjects.EnrollStudent(f.ctx, f.subjectID, student.ID); err != nil {
			f.t.Fatalf("enroll student: %v", err)
		}
	}
	return Identity{UserID: user.ID, Role: model.RoleStudent, StudentID: student.ID}
}

func (f *fixture) examInput(numQuestions, totalMarks, passingMarks int) ExamInput {
	return ExamInput{
		Name:         "Algebra midterm",
		SubjectID:    f.subjectID,
		NumQuestions: numQuestions,
		TotalMarks:   totalMarks,
		PassingMarks: passingMarks,
		Duration:     60,
		StartDate:    testNow.Add(-time.Hour),
		EndDate:      testNow.Add(23 * time.Hour),
	}
}

func (f *fixture) createExam(numQuestions, totalMarks, passingMarks int) uint {
	f.t.Helper()
	exam, err := f.exams.CreateExam(f.ctx, f.teacher, f.examInput(numQuestions, totalMarks, passingMarks))
	if err != nil {
		f.t.Fatalf("create exam: %v", err)
	}
	return exam.ID
}

// questionInput 三个选项，correct 指定正确选项下标
func questionInput(marks int, negative float64, correct int) QuestionInput {
	in := QuestionInput{
		Text:          fmt.Sprintf("question worth %d", marks),
		Marks:         marks,
		NegativeMarks: negative,
	}
	for i := 0; i < 3; i++ {
		in.Options = append(in.Options, OptionInput{Text: fmt.Sprintf("option %d", i+1), IsCorrect: i == correct})
	}
	return in
}

func (f *fixture) addQuestion(examID uint, marks int, negative float64) *model.Question {
	f.t.Helper()
	q, err := f.questions.AddQuestion(f.ctx, f.teacher, examID, questionInput(marks, negative, 0))
	if err != nil {
		f.t.Fatalf("add question (%d marks): %v", marks, err)
	}
	return q
}

func (f *fixture) activate(examID uint) {
	f.t.Helper()
	if _, err := f.exams.UpdateExamStatus(f.ctx, f.teacher, examID, true); err != nil {
		f.t.Fatalf("activate exam: %v", err)
	}
}

func (f *fixture) assign(examID uint, students ...Identity) {
	f.t.Helper()
	ids := make([]uint, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.StudentID)
	}
	if _, err := f.assignment.AssignExamToStudents(f.ctx, f.teacher, examID, ids); err != nil {
		f.t.Fatalf("assign exam: %v", err)
	}
}

// readyExam 两道 5 分题，Q2 答错扣 2 分，及格线 5，已激活
func (f *fixture) readyExam() (uint, []*model.Question) {
	f.t.Helper()
	examID := f.createExam(2, 10, 5)
	q1 := f.addQuestion(examID, 5, 0)
	q2 := f.addQuestion(examID, 5, 2)
	f.activate(examID)
	return examID, []*model.Question{q1, q2}
}

// startedAttempt 分配并开始作答
func (f *fixture) startedAttempt(examID uint) Identity {
	f.t.Helper()
	student := f.newStudent(true)
	f.assign(examID, student)
	if _, err := f.attempts.Start(f.ctx, student, examID); err != nil {
		f.t.Fatalf("start attempt: %v", err)
	}
	return student
}

func (f *fixture) attempt(student Identity, examID uint) *model.StudentExam {
	f.t.Helper()
	se, err := f.repos.studentExam.FindByStudentAndExam(f.ctx, student.StudentID, examID)
	if err != nil {
		f.t.Fatalf("find attempt: %v", err)
	}
	return se
}

func (f *fixture) exam(examID uint) *model.Exam {
	f.t.Helper()
	exam, err := f.repos.exam.FindByID(f.ctx, examID)
	if err != nil {
		f.t.Fatalf("find exam: %v", err)
	}
	return exam
}

func wrongOption(q *model.Question) uint {
	for _, o := range q.Options {
		if q.CorrectOptionID == nil || o.ID != *q.CorrectOptionID {
			return o.ID
		}
	}
	return 0
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %v, got nil", kind)
	}
	if !errors.Is(err, kind) {
		t.Fatalf("expected %v, got %v", kind, err)
	}
}
