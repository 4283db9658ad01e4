package service

import (
	"context"
	"errors"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"sort"
	"time"

	"gorm.io/gorm"
)

type AssignmentReport struct {
	ExamID          uint   `json:"examId"`
	Assigned        []uint `json:"assigned"`
	AlreadyAssigned []uint `json:"alreadyAssigned"`
}

type BanResult struct {
	StudentExam *model.StudentExam `json:"studentExam"`
	Banned      bool               `json:"banned"`
}

// ExamStudent 教师查看的考生列表行
type ExamStudent struct {
	StudentExamID uint                    `json:"studentExamId"`
	StudentID     uint                    `json:"studentId"`
	Name          string                  `json:"name"`
	Email         string                  `json:"email"`
	Status        model.StudentExamStatus `json:"status"`
	StartTime     *time.Time              `json:"startTime,omitempty"`
	SubmittedAt   *time.Time              `json:"submittedAt,omitempty"`
	AutoSubmitted bool                    `json:"autoSubmitted"`
}

type Eligibility struct {
	ExamID   uint                    `json:"examId"`
	Status   model.StudentExamStatus `json:"status,omitempty"`
	Banned   bool                    `json:"banned"`
	CanStart bool                    `json:"canStart"`
	Reason   string                  `json:"reason,omitempty"`
}

type AssignmentService struct {
	DB              *gorm.DB
	ExamRepo        *repository.ExamRepository
	StudentExamRepo *repository.StudentExamRepository
	SubjectRepo     *repository.SubjectRepository
	UserRepo        *repository.UserRepository
	Guard           *AccessGuard
	Clock           util.Clock
}

func NewAssignmentService(
	db *gorm.DB,
	examRepo *repository.ExamRepository,
	studentExamRepo *repository.StudentExamRepository,
	subjectRepo *repository.SubjectRepository,
	userRepo *repository.UserRepository,
	guard *AccessGuard,
	clock util.Clock,
) *AssignmentService {
	return &AssignmentService{
		DB:              db,
		ExamRepo:        examRepo,
		StudentExamRepo: studentExamRepo,
		SubjectRepo:     subjectRepo,
		UserRepo:        userRepo,
		Guard:           guard,
		Clock:           clock,
	}
}

func dedupeIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AssignExamToStudents 全部校验通过才写入；名单中任何一个学生被封禁都会使整个调用失败
func (s *AssignmentService) AssignExamToStudents(ctx context.Context, id Identity, examID uint, studentIDs []uint) (*AssignmentReport, error) {
	exam, err := s.Guard.ManagedExam(ctx, id, examID)
	if err != nil {
		return nil, err
	}
	if !exam.IsActive {
		return nil, util.BadRequestError("exam %d is not active", examID)
	}
	if err := incompleteError(exam); err != nil {
		return nil, err
	}

	ids := dedupeIDs(studentIDs)
	if len(ids) == 0 {
		return nil, util.BadRequestError("no students provided")
	}

	students, err := s.UserRepo.FindStudentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[uint]bool, len(students))
	for _, st := range students {
		found[st.ID] = true
	}
	var missing []uint
	for _, sid := range ids {
		if !found[sid] {
			missing = append(missing, sid)
		}
	}
	if len(missing) > 0 {
		return nil, util.NotFoundError("%d students not found", len(missing)).
			WithDetails(map[string]interface{}{"missingStudentIds": missing})
	}

	enrolled, err := s.SubjectRepo.EnrolledStudentIDs(ctx, exam.SubjectID, ids)
	if err != nil {
		return nil, err
	}
	var notEnrolled []uint
	for _, sid := range ids {
		if !enrolled[sid] {
			notEnrolled = append(notEnrolled, sid)
		}
	}
	if len(notEnrolled) > 0 {
		return nil, util.ForbiddenError("%d students are not enrolled in subject %d", len(notEnrolled), exam.SubjectID).
			WithDetails(map[string]interface{}{"notEnrolledStudentIds": notEnrolled})
	}

	existing, err := s.StudentExamRepo.FindByExamAndStudents(ctx, examID, ids)
	if err != nil {
		return nil, err
	}
	var banned []uint
	assigned := make(map[uint]bool, len(existing))
	report := &AssignmentReport{ExamID: examID, Assigned: []uint{}, AlreadyAssigned: []uint{}}
	for _, se := range existing {
		if se.Status == model.StatusBanned {
			banned = append(banned, se.StudentID)
			continue
		}
		assigned[se.StudentID] = true
		report.AlreadyAssigned = append(report.AlreadyAssigned, se.StudentID)
	}
	if len(banned) > 0 {
		sort.Slice(banned, func(i, j int) bool { return banned[i] < banned[j] })
		return nil, util.BadRequestError("%d students are banned from exam %d", len(banned), examID).
			WithDetails(map[string]interface{}{"bannedStudentIds": banned})
	}

	rows := make([]model.StudentExam, 0, len(ids))
	for _, sid := range ids {
		if assigned[sid] {
			continue
		}
		rows = append(rows, model.StudentExam{StudentID: sid, ExamID: examID, Status: model.StatusNotStarted})
		report.Assigned = append(report.Assigned, sid)
	}
	if len(rows) == 0 {
		return nil, util.BadRequestError("all %d students are already assigned", len(ids)).
			WithDetails(map[string]interface{}{"alreadyAssigned": report.AlreadyAssigned})
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.StudentExamRepo.WithTx(tx).CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, conflictOr(err, "assignments for exam %d changed concurrently, please retry", examID)
	}
	sort.Slice(report.AlreadyAssigned, func(i, j int) bool { return report.AlreadyAssigned[i] < report.AlreadyAssigned[j] })
	return report, nil
}

// ToggleStudentBan 没有记录时直接创建 BANNED；NOT_STARTED 与 BANNED 互相切换；
// 作答中或已完成时拒绝并返回当前状态
func (s *AssignmentService) ToggleStudentBan(ctx context.Context, id Identity, examID, studentID uint) (*BanResult, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	if _, err := s.UserRepo.FindStudentByID(ctx, studentID); err != nil {
		return nil, notFoundOr(err, "student %d not found", studentID)
	}

	se, err := s.StudentExamRepo.FindByStudentAndExam(ctx, studentID, examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		se = &model.StudentExam{StudentID: studentID, ExamID: examID, Status: model.StatusBanned}
		if err := s.StudentExamRepo.Create(ctx, se); err != nil {
			return nil, conflictOr(err, "student %d was assigned concurrently, please retry", studentID)
		}
		return &BanResult{StudentExam: se, Banned: true}, nil
	}
	if err != nil {
		return nil, err
	}

	var next model.StudentExamStatus
	switch se.Status {
	case model.StatusNotStarted:
		next = model.StatusBanned
	case model.StatusBanned:
		next = model.StatusNotStarted
	default:
		return nil, util.BadRequestError("cannot change ban while attempt is %s", se.Status).
			WithDetails(map[string]interface{}{"currentStatus": se.Status})
	}

	ok, err := s.StudentExamRepo.Transition(ctx, se.ID, se.Status, map[string]interface{}{"status": next})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, util.ConflictError("attempt %d changed concurrently, please retry", se.ID)
	}
	se.Status = next
	return &BanResult{StudentExam: se, Banned: next == model.StatusBanned}, nil
}

func (s *AssignmentService) ListExamStudents(ctx context.Context, id Identity, examID uint) ([]ExamStudent, error) {
	if _, err := s.Guard.ManagedExam(ctx, id, examID); err != nil {
		return nil, err
	}
	rows, err := s.StudentExamRepo.ListByExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, se := range rows {
		ids = append(ids, se.StudentID)
	}
	students, err := s.UserRepo.FindStudentsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*model.Student, len(students))
	for i := range students {
		byID[students[i].ID] = &students[i]
	}

	list := make([]ExamStudent, 0, len(rows))
	for _, se := range rows {
		item := ExamStudent{
			StudentExamID: se.ID,
			StudentID:     se.StudentID,
			Status:        se.Status,
			StartTime:     se.StartTime,
			SubmittedAt:   se.SubmittedAt,
			AutoSubmitted: se.AutoSubmitted,
		}
		if st, ok := byID[se.StudentID]; ok && st.User != nil {
			item.Name = st.User.Name
			item.Email = st.User.Email
		}
		list = append(list, item)
	}
	return list, nil
}

// ListAssignedExams 学生看到的考试列表，含封禁记录
func (s *AssignmentService) ListAssignedExams(ctx context.Context, id Identity) ([]model.StudentExam, error) {
	studentID, err := s.Guard.StudentProfile(id)
	if err != nil {
		return nil, err
	}
	return s.StudentExamRepo.ListByStudent(ctx, studentID)
}

func (s *AssignmentService) GetExamEligibility(ctx context.Context, id Identity, examID uint) (*Eligibility, error) {
	studentID, err := s.Guard.StudentProfile(id)
	if err != nil {
		return nil, err
	}
	exam, err := s.ExamRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, notFoundOr(err, "exam %d not found", examID)
	}

	result := &Eligibility{ExamID: examID}
	se, err := s.StudentExamRepo.FindByStudentAndExam(ctx, studentID, examID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		result.Reason = "exam is not assigned to you"
		return result, nil
	}
	if err != nil {
		return nil, err
	}

	result.Status = se.Status
	result.Banned = se.Status == model.StatusBanned
	if err := checkStartable(se, exam, s.Clock.Now()); err != nil {
		result.Reason = err.Error()
		return result, nil
	}
	result.CanStart = true
	return result, nil
}

// checkStartable 开始考试的前置条件，资格查询复用同一套判断
func checkStartable(se *model.StudentExam, exam *model.Exam, now time.Time) error {
	if se.Status == model.StatusBanned {
		return util.ForbiddenError("you are banned from this exam").
			WithDetails(map[string]interface{}{"currentStatus": se.Status})
	}
	if se.Status != model.StatusNotStarted {
		return util.BadRequestError("exam attempt is already %s", se.Status).
			WithDetails(map[string]interface{}{"currentStatus": se.Status})
	}
	if !exam.IsActive {
		return util.BadRequestError("exam is not active")
	}
	if now.Before(exam.StartDate) {
		return util.ForbiddenError("exam has not started yet").
			WithDetails(map[string]interface{}{"startDate": exam.StartDate})
	}
	if now.After(exam.EndDate) {
		return util.ForbiddenError("exam has ended").
			WithDetails(map[string]interface{}{"endDate": exam.EndDate})
	}
	return nil
}
