package adherence

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// weekdayLabels 以 time.Weekday 为下标（周日为 0）。
var weekdayLabels = [7]string{"일", "월", "화", "수", "목", "금", "토"}

// WeekLabels 按周一至周日顺序排列，供表单与校验使用。
var WeekLabels = []string{"월", "화", "수", "목", "금", "토", "일"}

var (
	// ErrInvalidSchedule 表示日程配置不合法（重复日为空、结束早于开始等）
	ErrInvalidSchedule = errors.New("invalid schedule")
	// ErrNoDoseTimes 表示没有选择任何服药时段
	ErrNoDoseTimes = errors.New("at least one dose time is required")
	// ErrInvalidMedication 表示药品基础字段不合法
	ErrInvalidMedication = errors.New("invalid medication")
)

// WeekdayLabel 返回日期对应的韩文星期简称。
func WeekdayLabel(date time.Time) string {
	return weekdayLabels[date.Weekday()]
}

// IsDue 判断药品在指定日历日是否需要服用。纯函数，可用于任意过去或未来的日期。
func IsDue(med Medication, date time.Time) bool {
	if med.Schedule == nil {
		// 日程功能上线前创建的药品没有 Schedule，视为每天服用
		return true
	}

	schedule := med.Schedule
	dateStr := FormatDate(date)

	switch schedule.Type {
	case ScheduleToday:
		return dateStr == schedule.StartDate
	case SchedulePeriod:
		// 缺少任一边界时退化为每天服用
		if schedule.StartDate == "" || schedule.EndDate == "" {
			return true
		}
		return dateStr >= schedule.StartDate && dateStr <= schedule.EndDate
	case ScheduleRepeat:
		if len(schedule.RepeatDays) == 0 {
			return true
		}
		return slices.Contains(schedule.RepeatDays, WeekdayLabel(date))
	default:
		return true
	}
}

// DuePeriods 返回药品在该日需要服用的时段，按 HH:MM 升序，时间相同时保持 morning/lunch/evening 顺序。
func DuePeriods(med Medication, date time.Time) []Period {
	if !IsDue(med, date) {
		return nil
	}

	periods := make([]Period, 0, len(Periods))
	for _, period := range Periods {
		if med.HasPeriod(period) {
			periods = append(periods, period)
		}
	}

	slices.SortStableFunc(periods, func(a, b Period) int {
		return strings.Compare(med.ScheduledTime(a), med.ScheduledTime(b))
	})

	return periods
}

// ValidateMedication 在写入前拒绝不合法的药品与日程，保证存储层只保存合法状态。
func ValidateMedication(med Medication) error {
	if strings.TrimSpace(med.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidMedication)
	}

	switch med.Frequency {
	case FrequencyOnce, FrequencyTwice, FrequencyThreeTimes:
	default:
		return fmt.Errorf("%w: unsupported frequency %q", ErrInvalidMedication, med.Frequency)
	}

	configured := 0
	for period, clock := range med.Times {
		if !period.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
		}
		clock = strings.TrimSpace(clock)
		if clock == "" {
			continue
		}
		if _, err := time.Parse(ClockLayout, clock); err != nil || len(clock) != len(ClockLayout) {
			return fmt.Errorf("%w: invalid time %q for %s", ErrInvalidMedication, clock, period)
		}
		configured++
	}
	if configured == 0 {
		return ErrNoDoseTimes
	}

	if med.Schedule != nil {
		return ValidateSchedule(*med.Schedule)
	}
	return nil
}

// ValidateSchedule 校验日程变体所需字段。
func ValidateSchedule(schedule Schedule) error {
	switch schedule.Type {
	case ScheduleToday:
		if _, err := time.Parse(DateLayout, schedule.StartDate); err != nil {
			return fmt.Errorf("%w: today schedule requires a start date", ErrInvalidSchedule)
		}
	case ScheduleRepeat:
		if len(schedule.RepeatDays) == 0 {
			return fmt.Errorf("%w: repeat schedule requires at least one day", ErrInvalidSchedule)
		}
		for _, day := range schedule.RepeatDays {
			if !slices.Contains(WeekLabels, day) {
				return fmt.Errorf("%w: unknown weekday %q", ErrInvalidSchedule, day)
			}
		}
	case SchedulePeriod:
		if _, err := time.Parse(DateLayout, schedule.StartDate); err != nil {
			return fmt.Errorf("%w: invalid start date", ErrInvalidSchedule)
		}
		if _, err := time.Parse(DateLayout, schedule.EndDate); err != nil {
			return fmt.Errorf("%w: invalid end date", ErrInvalidSchedule)
		}
		if schedule.EndDate < schedule.StartDate {
			return fmt.Errorf("%w: end date before start date", ErrInvalidSchedule)
		}
	default:
		return fmt.Errorf("%w: unsupported type %q", ErrInvalidSchedule, schedule.Type)
	}
	return nil
}
