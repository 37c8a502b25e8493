package db

import (
	"time"

	"gorm.io/gorm"
)

// Disease 是疾病参考信息
type Disease struct {
	gorm.Model
	Title          string   `gorm:"size:200;not null;index"`
	TitleKo        string   `gorm:"size:200;not null;index"`
	Description    string   `gorm:"type:text"`
	MedicalTerm    string   `gorm:"type:text"`
	CommonSymptoms []string `gorm:"serializer:json"`
	EmergencyHint  string   `gorm:"type:text"`
}

// Drug 是药品参考信息
type Drug struct {
	gorm.Model
	Title       string `gorm:"size:200;not null;index"`
	TitleKo     string `gorm:"size:200;not null;index"`
	Description string `gorm:"type:text"`
	Purpose     string `gorm:"type:text"`
	Precaution  string `gorm:"type:text"`
	MedicalTerm string `gorm:"type:text"`
}

const (
	// ReferenceTypeDisease 表示疾病
	ReferenceTypeDisease = "disease"
	// ReferenceTypeDrug 表示药品
	ReferenceTypeDrug = "drug"
)

// SavedItem 是用户收藏的参考信息，(user, type, target) 唯一
type SavedItem struct {
	ID        uint `gorm:"primarykey"`
	CreatedAt time.Time
	UserID    uint   `gorm:"not null;index;uniqueIndex:idx_saved_item_unique"`
	Type      string `gorm:"size:10;not null;uniqueIndex:idx_saved_item_unique"`
	TargetID  uint   `gorm:"not null;uniqueIndex:idx_saved_item_unique"`
}

// AIExplanation 缓存 AI 生成的通俗解释，按 (target_type, target_id) 唯一
type AIExplanation struct {
	ID         uint `gorm:"primarykey"`
	CreatedAt  time.Time
	TargetType string `gorm:"size:10;not null;uniqueIndex:idx_ai_explanation_target"`
	TargetID   uint   `gorm:"not null;uniqueIndex:idx_ai_explanation_target"`
	Content    string `gorm:"type:text;not null"`
	Model      string `gorm:"size:100"`
}

// TableName 自定义表名以保持命名一致。
func (AIExplanation) TableName() string {
	return "ai_explanations"
}
