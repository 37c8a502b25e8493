package db

import (
	"time"

	"gorm.io/gorm"
)

// Medication 定义了用户登记的药品
// 三个时段各用一列保存 HH:MM，空字符串表示未选择该时段
// ScheduleType 为空表示旧数据没有日程，视为每天服用
// RepeatDays 以 JSON 数组保存韩文星期简称
type Medication struct {
	gorm.Model
	UserID       uint     `gorm:"index;not null"`
	Name         string   `gorm:"size:200;not null"`
	Dosage       string   `gorm:"size:200"`
	Frequency    string   `gorm:"size:20;not null;default:once"`
	MorningTime  string   `gorm:"size:5"`
	LunchTime    string   `gorm:"size:5"`
	EveningTime  string   `gorm:"size:5"`
	Precautions  string   `gorm:"type:text"`
	ScheduleType string   `gorm:"size:20"`
	RepeatDays   []string `gorm:"serializer:json"`
	StartDate    string   `gorm:"size:10"`
	EndDate      string   `gorm:"size:10"`
}

// MedicationLog 记录服药打卡
// (medication_id, taken_date, period) 采用唯一索引，保证同一时段只有一条记录
// TakenAt 只在 Taken=true 时有值；取消打卡只翻转标记，不删除记录
type MedicationLog struct {
	ID            uint       `gorm:"primarykey"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	MedicationID  uint       `gorm:"not null;index;uniqueIndex:idx_medication_log_unique"`
	Medication    Medication `gorm:"constraint:OnDelete:CASCADE"`
	TakenDate     string     `gorm:"size:10;not null;index;uniqueIndex:idx_medication_log_unique"`
	Period        string     `gorm:"size:10;not null;uniqueIndex:idx_medication_log_unique"`
	ScheduledTime string     `gorm:"size:5"`
	Taken         bool       `gorm:"not null"`
	TakenAt       *time.Time
}

// TableName 重写确保唯一索引作用到 medication_id + taken_date + period
func (MedicationLog) TableName() string {
	return "medication_logs"
}
