package model

type ResultStatus string

const (
	ResultPass ResultStatus = "PASS"
	ResultFail ResultStatus = "FAIL"
)

// swagger:model Result
type Result struct {
	Record
	StudentExamID uint         `gorm:"uniqueIndex;not null" json:"studentExamId"`
	Marks         float64      `gorm:"not null" json:"marks"`
	TimeTaken     int          `json:"timeTaken"` // Seconds
	Status        ResultStatus `gorm:"size:10;not null" json:"status"`
}

func (Result) TableName() string {
	return "results"
}
