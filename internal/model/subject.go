package model

// swagger:model Subject
type Subject struct {
	BaseModel
	Name string `gorm:"size:100;not null" json:"name"`
	Code string `gorm:"size:30;uniqueIndex;not null" json:"code"`
}

func (Subject) TableName() string {
	return "subjects"
}
