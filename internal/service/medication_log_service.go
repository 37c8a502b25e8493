package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medilog/internal/adherence"
	"github.com/medilog/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MedicationLogService 负责服药打卡记录
// 写入按 (medication_id, taken_date, period) 自然键原子 upsert，实现 adherence.LogWriter
type MedicationLogService struct {
	db       *gorm.DB
	location *time.Location
}

// NewMedicationLogService 构造 MedicationLogService
func NewMedicationLogService(gdb *gorm.DB) *MedicationLogService {
	return &MedicationLogService{db: gdb, location: time.Local}
}

// SetLocation 指定服用时间格式化所用的时区
func (s *MedicationLogService) SetLocation(loc *time.Location) {
	if loc == nil {
		loc = time.Local
	}
	s.location = loc
}

var _ adherence.LogWriter = (*MedicationLogService)(nil)

// UpsertLog 写入一条服药状态：不存在则创建，存在则更新 taken/taken_at，记录本身从不删除
func (s *MedicationLogService) UpsertLog(ctx context.Context, write adherence.LogWrite) (adherence.Log, error) {
	medicationID, ok := ParseID(write.MedicationID)
	if !ok {
		return adherence.Log{}, ErrMedicationNotFound
	}

	tx := s.db.WithContext(ctx)

	var count int64
	if err := tx.Model(&db.Medication{}).Where("id = ?", medicationID).Count(&count).Error; err != nil {
		return adherence.Log{}, fmt.Errorf("check medication: %w", err)
	}
	if count == 0 {
		return adherence.Log{}, ErrMedicationNotFound
	}

	record := db.MedicationLog{
		MedicationID:  medicationID,
		TakenDate:     write.Date,
		Period:        string(write.Period),
		ScheduledTime: write.ScheduledTime,
		Taken:         write.Taken,
	}
	if write.Taken && !write.TakenAt.IsZero() {
		takenAt := write.TakenAt
		record.TakenAt = &takenAt
	}

	if err := tx.Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "medication_id"}, {Name: "taken_date"}, {Name: "period"}},
		DoUpdates: clause.AssignmentColumns([]string{"taken", "taken_at", "updated_at"}),
	}).Create(&record).Error; err != nil {
		return adherence.Log{}, fmt.Errorf("upsert medication log: %w", err)
	}

	var saved db.MedicationLog
	if err := tx.Where("medication_id = ? AND taken_date = ? AND period = ?", medicationID, write.Date, string(write.Period)).
		First(&saved).Error; err != nil {
		return adherence.Log{}, fmt.Errorf("reload medication log: %w", err)
	}

	return s.toAdherenceLog(saved), nil
}

// ListBetween 返回用户在闭区间 [start, end] 内的全部日志，日期为 YYYY-MM-DD
func (s *MedicationLogService) ListBetween(userID uint, start, end string) ([]adherence.Log, error) {
	if end < start {
		return nil, errors.New("invalid range: end before start")
	}

	var records []db.MedicationLog
	if err := s.db.Model(&db.MedicationLog{}).
		Joins("JOIN medications ON medications.id = medication_logs.medication_id AND medications.deleted_at IS NULL").
		Where("medications.user_id = ?", userID).
		Where("medication_logs.taken_date BETWEEN ? AND ?", start, end).
		Order("medication_logs.taken_date ASC, medication_logs.id ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("list medication logs: %w", err)
	}

	logs := make([]adherence.Log, 0, len(records))
	for _, record := range records {
		logs = append(logs, s.toAdherenceLog(record))
	}
	return logs, nil
}

// ListForDate 返回用户某一天的日志
func (s *MedicationLogService) ListForDate(userID uint, date string) ([]adherence.Log, error) {
	return s.ListBetween(userID, date, date)
}

func (s *MedicationLogService) toAdherenceLog(record db.MedicationLog) adherence.Log {
	log := adherence.Log{
		ID:            formatID(record.ID),
		MedicationID:  formatID(record.MedicationID),
		Date:          record.TakenDate,
		Period:        adherence.Period(record.Period),
		ScheduledTime: record.ScheduledTime,
		Taken:         record.Taken,
	}
	if record.Taken && record.TakenAt != nil {
		log.Time = record.TakenAt.In(s.location).Format(adherence.ClockLayout)
	}
	return log
}
