package adherence

import (
	"fmt"
	"time"
)

// LogWrite 描述一次服药状态写入，持久化层按 (MedicationID, Date, Period) 原子 upsert。
type LogWrite struct {
	// ID 为已存在日志的持久化 ID，新建时为空
	ID            string
	MedicationID  string
	Date          string
	Period        Period
	ScheduledTime string
	Taken         bool
	// TakenAt 仅在 Taken=true 时非零
	TakenAt time.Time
}

// Log 把写入转换为日志快照，id 为空时沿用 w.ID。
func (w LogWrite) Log(id string) Log {
	if id == "" {
		id = w.ID
	}
	log := Log{
		ID:            id,
		MedicationID:  w.MedicationID,
		Date:          w.Date,
		Period:        w.Period,
		ScheduledTime: w.ScheduledTime,
		Taken:         w.Taken,
	}
	if w.Taken && !w.TakenAt.IsZero() {
		log.Time = w.TakenAt.Format(ClockLayout)
	}
	return log
}

// ToggleResult 是一次切换的计算结果：新状态以及需要交给持久化层的写入。
type ToggleResult struct {
	Taken      bool
	Medication Medication
	// Existing 为切换前的日志，首次打卡时为 nil
	Existing *Log
	Write    LogWrite
}

// Created 表示此次切换会新建日志
func (r ToggleResult) Created() bool {
	return r.Existing == nil
}

// Toggle 计算 (medicationID, period, date) 的服药状态切换。
// 存在日志时直接翻转 taken，即使该时段已从药品中移除；取消服用会清空服用时间但保留日志本身。
// 不存在日志时新建 taken=true，此时时段必须已配置。
// 快照中找不到药品时返回 ErrMedicationNotFound，不产生任何写入。
func Toggle(meds []Medication, logs []Log, medicationID string, period Period, date, now time.Time) (ToggleResult, error) {
	if !period.Valid() {
		return ToggleResult{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}

	med, ok := findMedication(meds, medicationID)
	if !ok {
		return ToggleResult{}, fmt.Errorf("%w: %s", ErrMedicationNotFound, medicationID)
	}

	dateStr := FormatDate(date)
	write := LogWrite{
		MedicationID:  medicationID,
		Date:          dateStr,
		Period:        period,
		ScheduledTime: med.ScheduledTime(period),
		Taken:         true,
		TakenAt:       now,
	}

	existing, found := findLog(logs, medicationID, dateStr, period)
	if !found {
		if !med.HasPeriod(period) {
			return ToggleResult{}, fmt.Errorf("%w: %s/%s", ErrPeriodNotConfigured, medicationID, period)
		}
		return ToggleResult{Taken: true, Medication: med, Write: write}, nil
	}

	write.ID = existing.ID
	if existing.ScheduledTime != "" {
		write.ScheduledTime = existing.ScheduledTime
	}
	write.Taken = !existing.Taken
	if !write.Taken {
		write.TakenAt = time.Time{}
	}

	return ToggleResult{Taken: write.Taken, Medication: med, Existing: &existing, Write: write}, nil
}

func findMedication(meds []Medication, id string) (Medication, bool) {
	for _, med := range meds {
		if med.ID == id {
			return med, true
		}
	}
	return Medication{}, false
}

func findLog(logs []Log, medicationID, date string, period Period) (Log, bool) {
	for _, log := range logs {
		if log.MedicationID == medicationID && log.Date == date && log.Period == period {
			return log, true
		}
	}
	return Log{}, false
}
