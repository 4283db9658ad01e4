package model

import "time"

type CheatEventType string

const (
	EventTabSwitch      CheatEventType = "TAB_SWITCH"
	EventFullscreenExit CheatEventType = "FULLSCREEN_EXIT"
)

func (t CheatEventType) Valid() bool {
	return t == EventTabSwitch || t == EventFullscreenExit
}

// AntiCheatingLog 只追加，行数即违规次数
// swagger:model AntiCheatingLog
type AntiCheatingLog struct {
	Record
	StudentExamID uint           `gorm:"index;not null" json:"studentExamId"`
	EventType     CheatEventType `gorm:"size:30;not null" json:"eventType"`
	Timestamp     time.Time      `json:"timestamp"`
}

func (AntiCheatingLog) TableName() string {
	return "anti_cheating_logs"
}
