package service

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/medilog/internal/adherence"
	"github.com/medilog/internal/db"
	"gorm.io/gorm"
)

// ErrMedicationNotFound 与 adherence.ErrMedicationNotFound 相同，便于 handler 统一判断。
var ErrMedicationNotFound = adherence.ErrMedicationNotFound

// MedicationService 负责药品的增删改查
// 所有查询都按 userID 隔离，写入前统一通过 adherence.ValidateMedication 校验
type MedicationService struct {
	db *gorm.DB
}

// NewMedicationService 构造 MedicationService
func NewMedicationService(gdb *gorm.DB) *MedicationService {
	return &MedicationService{db: gdb}
}

// List 返回用户的全部药品，按创建顺序排列
func (s *MedicationService) List(userID uint) ([]db.Medication, error) {
	var meds []db.Medication
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&meds).Error; err != nil {
		return nil, fmt.Errorf("list medications: %w", err)
	}
	return meds, nil
}

// Snapshots 返回聚合计算使用的药品快照
func (s *MedicationService) Snapshots(userID uint) ([]adherence.Medication, error) {
	meds, err := s.List(userID)
	if err != nil {
		return nil, err
	}
	result := make([]adherence.Medication, 0, len(meds))
	for _, med := range meds {
		result = append(result, ToAdherenceMedication(med))
	}
	return result, nil
}

// Get 根据 ID 获取药品，不属于该用户时视为不存在
func (s *MedicationService) Get(userID, id uint) (*db.Medication, error) {
	var med db.Medication
	if err := s.db.Where("user_id = ?", userID).First(&med, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMedicationNotFound
		}
		return nil, fmt.Errorf("get medication: %w", err)
	}
	return &med, nil
}

// Create 新建药品
func (s *MedicationService) Create(userID uint, input adherence.Medication) (*db.Medication, error) {
	normalized, err := normalizeMedicationInput(input)
	if err != nil {
		return nil, err
	}

	med := db.Medication{UserID: userID}
	applyMedicationInput(&med, normalized)

	if err := s.db.Create(&med).Error; err != nil {
		return nil, fmt.Errorf("create medication: %w", err)
	}
	return &med, nil
}

// Update 整体替换药品配置，已有的服药日志保持不变
func (s *MedicationService) Update(userID, id uint, input adherence.Medication) (*db.Medication, error) {
	normalized, err := normalizeMedicationInput(input)
	if err != nil {
		return nil, err
	}

	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	applyMedicationInput(existing, normalized)
	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update medication: %w", err)
	}
	return existing, nil
}

// Delete 在同一事务内删除药品及其全部服药日志
func (s *MedicationService) Delete(userID, id uint) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("medication_id = ?", id).Delete(&db.MedicationLog{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Where("user_id = ?", userID).Delete(&db.Medication{}, id).Error
	})
	if err != nil {
		return fmt.Errorf("delete medication: %w", err)
	}
	return nil
}

// ToAdherenceMedication 把数据库模型转换为聚合快照，未填写的时段不会出现在 Times 中
func ToAdherenceMedication(med db.Medication) adherence.Medication {
	times := make(map[adherence.Period]string, 3)
	for period, value := range map[adherence.Period]string{
		adherence.PeriodMorning: med.MorningTime,
		adherence.PeriodLunch:   med.LunchTime,
		adherence.PeriodEvening: med.EveningTime,
	} {
		if value = strings.TrimSpace(value); value != "" {
			times[period] = value
		}
	}

	result := adherence.Medication{
		ID:          formatID(med.ID),
		Name:        med.Name,
		Dosage:      med.Dosage,
		Frequency:   adherence.Frequency(med.Frequency),
		Times:       times,
		Precautions: med.Precautions,
	}
	if med.ScheduleType != "" {
		result.Schedule = &adherence.Schedule{
			Type:       adherence.ScheduleType(med.ScheduleType),
			RepeatDays: slices.Clone(med.RepeatDays),
			StartDate:  med.StartDate,
			EndDate:    med.EndDate,
		}
	}
	return result
}

func normalizeMedicationInput(input adherence.Medication) (adherence.Medication, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Dosage = strings.TrimSpace(input.Dosage)
	input.Precautions = strings.TrimSpace(input.Precautions)

	times := make(map[adherence.Period]string, len(input.Times))
	for period, value := range input.Times {
		if value = strings.TrimSpace(value); value != "" {
			times[period] = value
		}
	}
	input.Times = times

	if input.Frequency == "" {
		input.Frequency = frequencyForCount(len(times))
	}

	if input.Schedule != nil {
		schedule := *input.Schedule
		schedule.StartDate = strings.TrimSpace(schedule.StartDate)
		schedule.EndDate = strings.TrimSpace(schedule.EndDate)
		input.Schedule = &schedule
	}

	if err := adherence.ValidateMedication(input); err != nil {
		return adherence.Medication{}, err
	}
	return input, nil
}

func applyMedicationInput(med *db.Medication, input adherence.Medication) {
	med.Name = input.Name
	med.Dosage = input.Dosage
	med.Frequency = string(input.Frequency)
	med.MorningTime = input.Times[adherence.PeriodMorning]
	med.LunchTime = input.Times[adherence.PeriodLunch]
	med.EveningTime = input.Times[adherence.PeriodEvening]
	med.Precautions = input.Precautions

	med.ScheduleType = ""
	med.RepeatDays = nil
	med.StartDate = ""
	med.EndDate = ""
	if input.Schedule != nil {
		med.ScheduleType = string(input.Schedule.Type)
		med.StartDate = input.Schedule.StartDate
		med.EndDate = input.Schedule.EndDate
		if input.Schedule.Type == adherence.ScheduleRepeat {
			med.RepeatDays = slices.Clone(input.Schedule.RepeatDays)
		}
	}
}

func frequencyForCount(count int) adherence.Frequency {
	switch count {
	case 2:
		return adherence.FrequencyTwice
	case 3:
		return adherence.FrequencyThreeTimes
	default:
		return adherence.FrequencyOnce
	}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseID 解析路径或快照中的数字 ID，非法值返回 false
func ParseID(value string) (uint, bool) {
	parsed, err := strconv.ParseUint(strings.TrimSpace(value), 10, 64)
	if err != nil || parsed == 0 {
		return 0, false
	}
	return uint(parsed), true
}
