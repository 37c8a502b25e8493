package adherence

import (
	"cmp"
	"math"
	"slices"
	"time"
)

// WeeklyWindow 是周统计覆盖的天数（含锚定日）。
const WeeklyWindow = 7

// DaySummary 汇总某一天的剂量列表与依从率，用于历史页。
type DaySummary struct {
	DayRate
	Entries []DoseEntry `json:"entries"`
}

// RateSummary 对一段依从率序列分档计数。
// Good: rate>=80，Fair: 50<=rate<80，Poor: rate<50。
// Average 按序列全部天数平均；ScheduledAverage 只统计有计划剂量的日期。
type RateSummary struct {
	Good             int `json:"good"`
	Fair             int `json:"fair"`
	Poor             int `json:"poor"`
	Average          int `json:"average"`
	ScheduledAverage int `json:"scheduled_average"`
}

type logKey struct {
	medicationID string
	date         string
	period       Period
}

// logIndex 按自然键索引日志，出现重复时保留第一条以保证输出确定。
func logIndex(logs []Log) map[logKey]Log {
	index := make(map[logKey]Log, len(logs))
	for _, log := range logs {
		key := logKey{medicationID: log.MedicationID, date: log.Date, period: log.Period}
		if _, exists := index[key]; exists {
			continue
		}
		index[key] = log
	}
	return index
}

// TodayAgenda 生成今日剂量清单。
func TodayAgenda(meds []Medication, logs []Log, today time.Time) []DoseEntry {
	return DayLog(meds, logs, today)
}

// DayLog 把指定日期的应服剂量与已记录日志做连接：已有日志原样输出，缺失的生成虚拟待服条目。
// 排序：计划时间升序，其次时段声明顺序，最后药品插入顺序。
func DayLog(meds []Medication, logs []Log, date time.Time) []DoseEntry {
	index := logIndex(logs)
	dateStr := FormatDate(date)

	entries := make([]DoseEntry, 0)
	for _, med := range meds {
		for _, period := range DuePeriods(med, date) {
			entry := DoseEntry{
				MedicationID:   med.ID,
				MedicationName: med.Name,
				Dosage:         med.Dosage,
				Date:           dateStr,
				Period:         period,
				ScheduledTime:  med.ScheduledTime(period),
			}

			if log, ok := index[logKey{medicationID: med.ID, date: dateStr, period: period}]; ok {
				entry.ID = log.ID
				entry.Taken = log.Taken
				entry.Time = log.Time
				if log.ScheduledTime != "" {
					entry.ScheduledTime = log.ScheduledTime
				}
			} else {
				entry.ID = PendingID(med.ID, period)
				entry.Pending = true
			}

			entries = append(entries, entry)
		}
	}

	slices.SortStableFunc(entries, func(a, b DoseEntry) int {
		if diff := cmp.Compare(a.ScheduledTime, b.ScheduledTime); diff != 0 {
			return diff
		}
		return cmp.Compare(a.Period.order(), b.Period.order())
	})

	return entries
}

// WeeklyStats 返回 anchor-6 .. anchor 共 7 天的依从率，最早的一天在前。
func WeeklyStats(meds []Medication, logs []Log, anchor time.Time) []DayRate {
	return RateSeries(meds, logs, anchor, WeeklyWindow)
}

// RateSeries 返回以 anchor 结尾、长度为 days 的依从率序列（升序）。
// taken 统计当天所有已服日志，不区分药品当前是否仍在计划内。
func RateSeries(meds []Medication, logs []Log, anchor time.Time, days int) []DayRate {
	if days <= 0 {
		return []DayRate{}
	}

	takenByDate := countTakenByDate(logs)
	start := normalizeDay(anchor).AddDate(0, 0, -(days - 1))

	series := make([]DayRate, 0, days)
	for i := 0; i < days; i++ {
		series = append(series, dayRate(meds, takenByDate, start.AddDate(0, 0, i)))
	}
	return series
}

// MonthCalendar 返回某月每一天的依从率。
func MonthCalendar(meds []Medication, logs []Log, year int, month time.Month, loc *time.Location) []DayRate {
	if loc == nil {
		loc = time.Local
	}

	takenByDate := countTakenByDate(logs)
	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	last := first.AddDate(0, 1, -1)

	cells := make([]DayRate, 0, last.Day())
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		cells = append(cells, dayRate(meds, takenByDate, day))
	}
	return cells
}

// RecentDays 返回最近 days 天的日志与依从率，最新的一天在前。
func RecentDays(meds []Medication, logs []Log, anchor time.Time, days int) []DaySummary {
	series := RateSeries(meds, logs, anchor, days)
	anchorDay := normalizeDay(anchor)

	summaries := make([]DaySummary, 0, len(series))
	for i := len(series) - 1; i >= 0; i-- {
		date := anchorDay.AddDate(0, 0, i-(len(series)-1))
		summaries = append(summaries, DaySummary{
			DayRate: series[i],
			Entries: DayLog(meds, logs, date),
		})
	}
	return summaries
}

// SummarizeRates 对依从率序列分档。
func SummarizeRates(series []DayRate) RateSummary {
	var (
		summary        RateSummary
		total          int
		scheduledTotal int
		scheduled      int
	)

	for _, day := range series {
		switch {
		case day.Rate >= 80:
			summary.Good++
		case day.Rate >= 50:
			summary.Fair++
		default:
			summary.Poor++
		}

		total += day.Rate
		if day.Expected > 0 {
			scheduledTotal += day.Rate
			scheduled++
		}
	}

	if len(series) > 0 {
		summary.Average = int(math.Round(float64(total) / float64(len(series))))
	}
	if scheduled > 0 {
		summary.ScheduledAverage = int(math.Round(float64(scheduledTotal) / float64(scheduled)))
	}
	return summary
}

func countTakenByDate(logs []Log) map[string]int {
	counts := make(map[string]int)
	for _, log := range logs {
		if log.Taken {
			counts[log.Date]++
		}
	}
	return counts
}

func dayRate(meds []Medication, takenByDate map[string]int, date time.Time) DayRate {
	dateStr := FormatDate(date)

	expected := 0
	for _, med := range meds {
		expected += len(DuePeriods(med, date))
	}

	taken := takenByDate[dateStr]
	return DayRate{
		Date:     dateStr,
		Day:      WeekdayLabel(date),
		Expected: expected,
		Taken:    taken,
		Rate:     adherenceRate(taken, expected),
	}
}

func adherenceRate(taken, expected int) int {
	if expected <= 0 {
		return 0
	}
	if taken >= expected {
		// 历史日志可能来自已改期的药品，taken 超出 expected 时截断为 100
		return 100
	}
	rate := int(math.Round(float64(taken) / float64(expected) * 100))
	// 未全部服用时不允许四舍五入到 100
	return min(max(rate, 0), 99)
}
