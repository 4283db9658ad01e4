package model

import (
	"time"
)

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// swagger:model User
type User struct {
	BaseModel
	Name      string     `gorm:"size:100;not null" json:"name"`
	Email     string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password  string     `gorm:"size:100;not null" json:"-"`
	Role      UserRole   `gorm:"size:20;default:'student'" json:"role"`
	Disabled  bool       `gorm:"default:false" json:"disabled"`
	LastLogin *time.Time `json:"lastLogin,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// Teacher 教师档案，任教科目通过 teacher_subjects 关联
type Teacher struct {
	BaseModel
	UserID   uint      `gorm:"uniqueIndex;not null" json:"userId"`
	User     *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Subjects []Subject `gorm:"many2many:teacher_subjects" json:"subjects,omitempty"`
}

func (Teacher) TableName() string {
	return "teachers"
}

// Student 学生档案，选修科目通过 student_subjects 关联
type Student struct {
	BaseModel
	UserID         uint      `gorm:"uniqueIndex;not null" json:"userId"`
	User           *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	CompletedExams int       `gorm:"default:0" json:"completedExams"`
	Subjects       []Subject `gorm:"many2many:student_subjects" json:"subjects,omitempty"`
}

func (Student) TableName() string {
	return "students"
}
