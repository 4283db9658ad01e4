package model

import "time"

// QuestionView 学生端题目视图，不含正确答案
type QuestionView struct {
	ID            uint         `json:"id"`
	Text          string       `json:"text"`
	HasImage      bool         `json:"hasImage"`
	Images        []string     `json:"images,omitempty"`
	Marks         int          `json:"marks"`
	NegativeMarks float64      `json:"negativeMarks"`
	Options       []OptionView `json:"options"`
}

type OptionView struct {
	ID   uint   `json:"id"`
	Text string `json:"text"`
}

// AntiCheatPolicy 开始考试时下发给客户端的监考策略
type AntiCheatPolicy struct {
	FullscreenRequired    bool `json:"fullscreenRequired"`
	TabSwitchDetection    bool `json:"tabSwitchDetection"`
	AutoSubmitOnViolation bool `json:"autoSubmitOnViolation"`
	MaxViolations         int  `json:"maxViolations"`
}

// MaxViolations 达到该违规次数时强制交卷
const MaxViolations = 3

func DefaultAntiCheatPolicy() AntiCheatPolicy {
	return AntiCheatPolicy{
		FullscreenRequired:    true,
		TabSwitchDetection:    true,
		AutoSubmitOnViolation: true,
		MaxViolations:         MaxViolations,
	}
}

// AttemptSession 开始考试的返回
type AttemptSession struct {
	StudentExamID uint              `json:"studentExamId"`
	ExamID        uint              `json:"examId"`
	Status        StudentExamStatus `json:"status"`
	StartTime     time.Time         `json:"startTime"`
	EndTime       time.Time         `json:"endTime"`
	Duration      int               `json:"duration"`
	AntiCheat     AntiCheatPolicy   `json:"antiCheat"`
}

// SubmissionResult 交卷结果
type SubmissionResult struct {
	StudentExamID       uint         `json:"studentExamId"`
	Marks               float64      `json:"marks"`
	TotalMarks          int          `json:"totalMarks"`
	PassingMarks        int          `json:"passingMarks"`
	Status              ResultStatus `json:"status"`
	TimeTaken           int          `json:"timeTaken"`
	AutoSubmitted       bool         `json:"autoSubmitted"`
	UnansweredQuestions []uint       `json:"unansweredQuestions"`
}
