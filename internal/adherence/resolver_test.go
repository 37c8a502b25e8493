package adherence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := ParseDate(value, time.UTC)
	require.NoError(t, err)
	return d
}

func TestIsDueWithoutScheduleAlwaysTrue(t *testing.T) {
	med := Medication{ID: "1", Name: "타이레놀", Times: map[Period]string{PeriodMorning: "08:00"}}

	start := day(t, "2023-12-25")
	for i := 0; i < 400; i += 13 {
		date := start.AddDate(0, 0, i)
		assert.True(t, IsDue(med, date), "expected due on %s", FormatDate(date))
	}
}

func TestIsDueTodaySchedule(t *testing.T) {
	med := Medication{ID: "1", Schedule: &Schedule{Type: ScheduleToday, StartDate: "2024-05-06"}}

	assert.True(t, IsDue(med, day(t, "2024-05-06")))
	assert.False(t, IsDue(med, day(t, "2024-05-05")))
	assert.False(t, IsDue(med, day(t, "2024-05-07")))
}

func TestIsDuePeriodBoundaries(t *testing.T) {
	med := Medication{ID: "1", Schedule: &Schedule{Type: SchedulePeriod, StartDate: "2024-02-28", EndDate: "2024-03-02"}}

	tests := []struct {
		date string
		want bool
	}{
		{"2024-02-27", false},
		{"2024-02-28", true},
		{"2024-02-29", true},
		{"2024-03-02", true},
		{"2024-03-03", false},
	}

	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDue(med, day(t, tt.date)))
		})
	}
}

func TestIsDuePeriodMissingBoundFallsBackToDaily(t *testing.T) {
	med := Medication{ID: "1", Schedule: &Schedule{Type: SchedulePeriod, StartDate: "2024-05-01"}}
	assert.True(t, IsDue(med, day(t, "2020-01-01")))
}

func TestIsDueRepeatWeekdays(t *testing.T) {
	med := Medication{ID: "1", Schedule: &Schedule{Type: ScheduleRepeat, RepeatDays: []string{"월", "수", "금"}}}

	start := day(t, "2024-05-06") // 월요일
	for i := 0; i < 14; i++ {
		date := start.AddDate(0, 0, i)
		wd := date.Weekday()
		want := wd == time.Monday || wd == time.Wednesday || wd == time.Friday
		assert.Equal(t, want, IsDue(med, date), "date %s (%s)", FormatDate(date), wd)
	}
}

func TestIsDueRepeatEmptyDaysFallsBackToDaily(t *testing.T) {
	med := Medication{ID: "1", Schedule: &Schedule{Type: ScheduleRepeat}}
	assert.True(t, IsDue(med, day(t, "2024-05-07")))
}

func TestWeekdayLabel(t *testing.T) {
	start := day(t, "2024-05-06")
	labels := make([]string, 0, 7)
	for i := 0; i < 7; i++ {
		labels = append(labels, WeekdayLabel(start.AddDate(0, 0, i)))
	}
	assert.Equal(t, WeekLabels, labels)
}

func TestDuePeriodsOrderedByClock(t *testing.T) {
	med := Medication{ID: "1", Times: map[Period]string{
		PeriodMorning: "09:30",
		PeriodLunch:   "07:00",
		PeriodEvening: "21:00",
	}}

	assert.Equal(t, []Period{PeriodLunch, PeriodMorning, PeriodEvening}, DuePeriods(med, day(t, "2024-05-06")))
}

func TestDuePeriodsTieKeepsDeclarationOrder(t *testing.T) {
	med := Medication{ID: "1", Times: map[Period]string{
		PeriodEvening: "08:00",
		PeriodMorning: "08:00",
		PeriodLunch:   "08:00",
	}}

	assert.Equal(t, []Period{PeriodMorning, PeriodLunch, PeriodEvening}, DuePeriods(med, day(t, "2024-05-06")))
}

func TestDuePeriodsEmptyWhenNotDue(t *testing.T) {
	med := Medication{
		ID:       "1",
		Times:    map[Period]string{PeriodMorning: "08:00"},
		Schedule: &Schedule{Type: ScheduleToday, StartDate: "2024-05-06"},
	}

	assert.Empty(t, DuePeriods(med, day(t, "2024-05-07")))
	assert.Equal(t, []Period{PeriodMorning}, DuePeriods(med, day(t, "2024-05-06")))
}

func TestValidateMedication(t *testing.T) {
	valid := Medication{
		Name:      "메트포르민",
		Frequency: FrequencyTwice,
		Times:     map[Period]string{PeriodMorning: "08:00", PeriodEvening: "19:00"},
		Schedule:  &Schedule{Type: SchedulePeriod, StartDate: "2024-05-01", EndDate: "2024-05-31"},
	}
	require.NoError(t, ValidateMedication(valid))

	tests := []struct {
		name   string
		mutate func(m *Medication)
		target error
	}{
		{"empty name", func(m *Medication) { m.Name = " " }, ErrInvalidMedication},
		{"bad frequency", func(m *Medication) { m.Frequency = "daily" }, ErrInvalidMedication},
		{"no times", func(m *Medication) { m.Times = map[Period]string{PeriodLunch: ""} }, ErrNoDoseTimes},
		{"bad clock", func(m *Medication) { m.Times = map[Period]string{PeriodLunch: "8:00"} }, ErrInvalidMedication},
		{"unknown period", func(m *Medication) { m.Times = map[Period]string{"night": "22:00"} }, ErrInvalidPeriod},
		{"empty repeat", func(m *Medication) { m.Schedule = &Schedule{Type: ScheduleRepeat} }, ErrInvalidSchedule},
		{"unknown weekday", func(m *Medication) { m.Schedule = &Schedule{Type: ScheduleRepeat, RepeatDays: []string{"Mon"}} }, ErrInvalidSchedule},
		{"reversed period", func(m *Medication) {
			m.Schedule = &Schedule{Type: SchedulePeriod, StartDate: "2024-05-10", EndDate: "2024-05-01"}
		}, ErrInvalidSchedule},
		{"today without date", func(m *Medication) { m.Schedule = &Schedule{Type: ScheduleToday} }, ErrInvalidSchedule},
		{"unknown type", func(m *Medication) { m.Schedule = &Schedule{Type: "monthly"} }, ErrInvalidSchedule},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			med := valid
			med.Times = map[Period]string{PeriodMorning: "08:00"}
			tt.mutate(&med)
			assert.ErrorIs(t, ValidateMedication(med), tt.target)
		})
	}
}
