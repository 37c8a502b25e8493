package adherence

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func everyDay() *Schedule {
	return &Schedule{Type: ScheduleRepeat, RepeatDays: []string{"월", "화", "수", "목", "금", "토", "일"}}
}

func TestTodayAgendaVirtualPendingEntry(t *testing.T) {
	med := Medication{ID: "7", Name: "아스피린", Times: map[Period]string{PeriodMorning: "08:00"}, Schedule: everyDay()}
	today := day(t, "2024-05-08")

	agenda := TodayAgenda([]Medication{med}, nil, today)

	require.Len(t, agenda, 1)
	entry := agenda[0]
	assert.Equal(t, PeriodMorning, entry.Period)
	assert.Equal(t, "08:00", entry.ScheduledTime)
	assert.False(t, entry.Taken)
	assert.Empty(t, entry.Time)
	assert.True(t, entry.Pending)
	assert.Equal(t, "pending-7-morning", entry.ID)
	assert.True(t, IsPendingID(entry.ID))
	assert.Equal(t, "2024-05-08", entry.Date)
}

func TestTodayAgendaUsesExistingLog(t *testing.T) {
	med := Medication{ID: "7", Name: "아스피린", Times: map[Period]string{PeriodMorning: "08:00"}, Schedule: everyDay()}
	today := day(t, "2024-05-08")
	logs := []Log{{ID: "41", MedicationID: "7", Date: "2024-05-08", Period: PeriodMorning, ScheduledTime: "08:00", Taken: true, Time: "08:12"}}

	agenda := TodayAgenda([]Medication{med}, logs, today)

	require.Len(t, agenda, 1)
	assert.Equal(t, "41", agenda[0].ID)
	assert.True(t, agenda[0].Taken)
	assert.Equal(t, "08:12", agenda[0].Time)
	assert.False(t, agenda[0].Pending)
}

func TestTodayAgendaIgnoresLogsFromOtherDays(t *testing.T) {
	med := Medication{ID: "7", Times: map[Period]string{PeriodMorning: "08:00"}}
	logs := []Log{{ID: "1", MedicationID: "7", Date: "2024-05-07", Period: PeriodMorning, Taken: true}}

	agenda := TodayAgenda([]Medication{med}, logs, day(t, "2024-05-08"))

	require.Len(t, agenda, 1)
	assert.True(t, agenda[0].Pending)
}

func TestTodayAgendaOrdering(t *testing.T) {
	meds := []Medication{
		{ID: "a", Name: "A", Times: map[Period]string{PeriodMorning: "08:00", PeriodEvening: "20:00"}},
		{ID: "b", Name: "B", Times: map[Period]string{PeriodLunch: "08:00", PeriodMorning: "07:30"}},
		{ID: "c", Name: "C", Times: map[Period]string{PeriodMorning: "08:00"}},
		{ID: "d", Name: "D", Times: map[Period]string{PeriodMorning: "09:00"}, Schedule: &Schedule{Type: ScheduleToday, StartDate: "2000-01-01"}},
	}

	agenda := TodayAgenda(meds, nil, day(t, "2024-05-08"))

	got := make([]string, 0, len(agenda))
	for _, entry := range agenda {
		got = append(got, entry.MedicationID+"/"+string(entry.Period))
	}
	assert.Equal(t, []string{"b/morning", "a/morning", "c/morning", "b/lunch", "a/evening"}, got)
}

func TestTodayAgendaIsDeterministic(t *testing.T) {
	meds := []Medication{
		{ID: "1", Name: "A", Times: map[Period]string{PeriodMorning: "08:00", PeriodLunch: "12:00", PeriodEvening: "19:00"}},
		{ID: "2", Name: "B", Times: map[Period]string{PeriodMorning: "08:00", PeriodEvening: "19:00"}},
	}
	logs := []Log{{ID: "9", MedicationID: "2", Date: "2024-05-08", Period: PeriodEvening, ScheduledTime: "19:00", Taken: true, Time: "19:05"}}
	today := day(t, "2024-05-08")

	first, err := json.Marshal(TodayAgenda(meds, logs, today))
	require.NoError(t, err)
	second, err := json.Marshal(TodayAgenda(meds, logs, today))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Len(t, logs, 1)
}

func TestTodayAgendaEmptyInputs(t *testing.T) {
	agenda := TodayAgenda(nil, nil, day(t, "2024-05-08"))
	assert.NotNil(t, agenda)
	assert.Empty(t, agenda)
}

func TestWeeklyStatsWindowAndRates(t *testing.T) {
	meds := []Medication{
		{ID: "A", Times: map[Period]string{PeriodMorning: "08:00"}},
		{ID: "B", Times: map[Period]string{PeriodMorning: "08:30"}},
	}
	anchor := day(t, "2024-05-12")

	var logs []Log
	// A 在窗口内 5 天服用，B 从未服用
	for i := 0; i < 5; i++ {
		logs = append(logs, Log{
			ID:           string(rune('a' + i)),
			MedicationID: "A",
			Date:         FormatDate(anchor.AddDate(0, 0, -i)),
			Period:       PeriodMorning,
			Taken:        true,
		})
	}

	stats := WeeklyStats(meds, logs, anchor)

	require.Len(t, stats, 7)
	assert.Equal(t, "2024-05-06", stats[0].Date)
	assert.Equal(t, "월", stats[0].Day)
	assert.Equal(t, "2024-05-12", stats[6].Date)
	assert.Equal(t, "일", stats[6].Day)

	for i, rate := range stats {
		assert.Equal(t, 2, rate.Expected)
		if i >= 2 {
			assert.Equal(t, 1, rate.Taken)
			assert.Equal(t, 50, rate.Rate)
		} else {
			assert.Equal(t, 0, rate.Taken)
			assert.Equal(t, 0, rate.Rate)
		}
	}
}

func TestWeeklyStatsRateBounds(t *testing.T) {
	meds := []Medication{
		{ID: "A", Times: map[Period]string{PeriodMorning: "08:00", PeriodLunch: "12:00", PeriodEvening: "19:00"}},
		{ID: "B", Times: map[Period]string{PeriodMorning: "08:00"}, Schedule: &Schedule{Type: ScheduleToday, StartDate: "2024-05-10"}},
	}
	anchor := day(t, "2024-05-12")

	logs := []Log{
		{ID: "1", MedicationID: "A", Date: "2024-05-10", Period: PeriodMorning, Taken: true},
		{ID: "2", MedicationID: "A", Date: "2024-05-10", Period: PeriodLunch, Taken: true},
		{ID: "3", MedicationID: "A", Date: "2024-05-10", Period: PeriodEvening, Taken: true},
		{ID: "4", MedicationID: "B", Date: "2024-05-10", Period: PeriodMorning, Taken: true},
		{ID: "5", MedicationID: "A", Date: "2024-05-11", Period: PeriodMorning, Taken: true},
		{ID: "6", MedicationID: "A", Date: "2024-05-11", Period: PeriodLunch, Taken: false},
		// 已改期药品的历史日志
		{ID: "7", MedicationID: "B", Date: "2024-05-12", Period: PeriodMorning, Taken: true},
		{ID: "8", MedicationID: "A", Date: "2024-05-12", Period: PeriodMorning, Taken: true},
		{ID: "9", MedicationID: "A", Date: "2024-05-12", Period: PeriodLunch, Taken: true},
		{ID: "10", MedicationID: "A", Date: "2024-05-12", Period: PeriodEvening, Taken: true},
	}

	stats := WeeklyStats(meds, logs, anchor)
	byDate := make(map[string]DayRate, len(stats))
	for _, rate := range stats {
		assert.GreaterOrEqual(t, rate.Rate, 0)
		assert.LessOrEqual(t, rate.Rate, 100)
		byDate[rate.Date] = rate
	}

	assert.Equal(t, DayRate{Date: "2024-05-10", Day: "금", Expected: 4, Taken: 4, Rate: 100}, byDate["2024-05-10"])
	assert.Equal(t, 33, byDate["2024-05-11"].Rate)
	assert.Equal(t, 100, byDate["2024-05-12"].Rate)
	assert.Equal(t, 0, byDate["2024-05-08"].Rate)
}

func TestWeeklyStatsZeroExpected(t *testing.T) {
	meds := []Medication{{ID: "A", Times: map[Period]string{PeriodMorning: "08:00"}, Schedule: &Schedule{Type: ScheduleToday, StartDate: "2023-01-01"}}}
	logs := []Log{{ID: "1", MedicationID: "A", Date: "2024-05-12", Period: PeriodMorning, Taken: true}}

	for _, rate := range WeeklyStats(meds, logs, day(t, "2024-05-12")) {
		assert.Equal(t, 0, rate.Expected)
		assert.Equal(t, 0, rate.Rate)
	}
}

func TestAdherenceRateNeverRoundsUpToFull(t *testing.T) {
	assert.Equal(t, 99, adherenceRate(199, 200))
	assert.Equal(t, 100, adherenceRate(200, 200))
	assert.Equal(t, 67, adherenceRate(2, 3))
	assert.Equal(t, 0, adherenceRate(0, 3))
	assert.Equal(t, 0, adherenceRate(5, 0))
}

func TestWeeklyStatsAfterCascadeDelete(t *testing.T) {
	a := Medication{ID: "A", Times: map[Period]string{PeriodMorning: "08:00"}}
	b := Medication{ID: "B", Times: map[Period]string{PeriodMorning: "08:00", PeriodEvening: "20:00"}}
	anchor := day(t, "2024-05-12")
	logs := []Log{
		{ID: "1", MedicationID: "A", Date: "2024-05-12", Period: PeriodMorning, Taken: true},
		{ID: "2", MedicationID: "B", Date: "2024-05-12", Period: PeriodMorning, Taken: true},
		{ID: "3", MedicationID: "B", Date: "2024-05-11", Period: PeriodEvening, Taken: true},
	}

	before := WeeklyStats([]Medication{a, b}, logs, anchor)
	assert.Equal(t, 3, before[6].Expected)
	assert.Equal(t, 2, before[6].Taken)

	// 删除 B 时级联删除其日志
	var remaining []Log
	for _, log := range logs {
		if log.MedicationID != "B" {
			remaining = append(remaining, log)
		}
	}

	after := WeeklyStats([]Medication{a}, remaining, anchor)
	assert.Equal(t, 1, after[6].Expected)
	assert.Equal(t, 1, after[6].Taken)
	assert.Equal(t, 100, after[6].Rate)
	assert.Equal(t, 0, after[5].Taken)

	future := WeeklyStats([]Medication{a}, remaining, anchor.AddDate(0, 0, 14))
	for _, rate := range future {
		assert.Equal(t, 1, rate.Expected)
	}
}

func TestMonthCalendar(t *testing.T) {
	meds := []Medication{{ID: "A", Times: map[Period]string{PeriodMorning: "08:00"}, Schedule: &Schedule{Type: ScheduleRepeat, RepeatDays: []string{"토", "일"}}}}
	logs := []Log{{ID: "1", MedicationID: "A", Date: "2024-02-03", Period: PeriodMorning, Taken: true}}

	cells := MonthCalendar(meds, logs, 2024, time.February, time.UTC)

	require.Len(t, cells, 29)
	assert.Equal(t, "2024-02-01", cells[0].Date)
	assert.Equal(t, "2024-02-29", cells[28].Date)
	assert.Equal(t, 1, cells[2].Expected)
	assert.Equal(t, 100, cells[2].Rate)
	assert.Equal(t, 0, cells[0].Expected)
}

func TestRecentDaysNewestFirst(t *testing.T) {
	meds := []Medication{{ID: "A", Name: "A", Times: map[Period]string{PeriodMorning: "08:00"}}}
	logs := []Log{{ID: "1", MedicationID: "A", Date: "2024-05-11", Period: PeriodMorning, Taken: true, Time: "08:01"}}

	days := RecentDays(meds, logs, day(t, "2024-05-12"), 3)

	require.Len(t, days, 3)
	assert.Equal(t, "2024-05-12", days[0].Date)
	assert.Equal(t, "2024-05-10", days[2].Date)
	require.Len(t, days[1].Entries, 1)
	assert.Equal(t, "1", days[1].Entries[0].ID)
	assert.True(t, days[0].Entries[0].Pending)
	assert.Equal(t, 100, days[1].Rate)
}

func TestSummarizeRates(t *testing.T) {
	series := []DayRate{
		{Expected: 2, Rate: 100},
		{Expected: 2, Rate: 50},
		{Expected: 3, Rate: 33},
		{Expected: 0, Rate: 0},
		{Expected: 4, Rate: 80},
	}

	summary := SummarizeRates(series)

	// 无计划的日期按 0 计入 Average，但不计入 ScheduledAverage
	assert.Equal(t, RateSummary{Good: 2, Fair: 1, Poor: 2, Average: 53, ScheduledAverage: 66}, summary)
	assert.Equal(t, RateSummary{}, SummarizeRates(nil))
}
