// Package adherence 实现服药计划判定、依从率聚合与乐观切换，不依赖数据库与 HTTP。
// 纯计算包（adherence、locale、config、logging、metrics）的测试使用 testify 断言；
// handler、service、db、router 与 e2e 测试沿用 httptest 加标准 testing 的写法。
package adherence

import (
	"errors"
	"strings"
	"time"
)

// DateLayout 是日历日的统一字符串格式，零填充后可直接按字典序比较。
const DateLayout = "2006-01-02"

// ClockLayout 为服药时间 HH:MM（24 小时制）。
const ClockLayout = "15:04"

// Period 表示一天中的服药时段。
type Period string

const (
	PeriodMorning Period = "morning"
	PeriodLunch   Period = "lunch"
	PeriodEvening Period = "evening"
)

// Periods 按声明顺序列出全部时段，同时作为同一时间的排序依据。
var Periods = []Period{PeriodMorning, PeriodLunch, PeriodEvening}

// Valid 判断时段是否合法
func (p Period) Valid() bool {
	return p.order() >= 0
}

func (p Period) order() int {
	switch p {
	case PeriodMorning:
		return 0
	case PeriodLunch:
		return 1
	case PeriodEvening:
		return 2
	default:
		return -1
	}
}

// Frequency 仅作展示用途，不与 Times 做一致性校验。
type Frequency string

const (
	FrequencyOnce       Frequency = "once"
	FrequencyTwice      Frequency = "twice"
	FrequencyThreeTimes Frequency = "three_times"
)

// ScheduleType 是 Schedule 的变体标签。
type ScheduleType string

const (
	ScheduleToday  ScheduleType = "today"
	ScheduleRepeat ScheduleType = "repeat"
	SchedulePeriod ScheduleType = "period"
)

// Schedule 决定药品在哪些日期需要服用。
// today 只使用 StartDate；repeat 使用 RepeatDays（월화수목금토일）；period 使用闭区间 [StartDate, EndDate]。
type Schedule struct {
	Type       ScheduleType `json:"type"`
	RepeatDays []string     `json:"repeat_days,omitempty"`
	StartDate  string       `json:"start_date,omitempty"`
	EndDate    string       `json:"end_date,omitempty"`
}

// Medication 是聚合计算所需的药品快照。
type Medication struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Dosage      string            `json:"dosage,omitempty"`
	Frequency   Frequency         `json:"frequency"`
	Times       map[Period]string `json:"times"`
	Precautions string            `json:"precautions,omitempty"`
	Schedule    *Schedule         `json:"schedule,omitempty"`
}

// ScheduledTime 返回时段的计划时间，未配置时为空串
func (m Medication) ScheduledTime(period Period) string {
	return strings.TrimSpace(m.Times[period])
}

// HasPeriod 报告药品是否配置了该时段
func (m Medication) HasPeriod(period Period) bool {
	return m.ScheduledTime(period) != ""
}

// Log 记录某药品在某日某时段的服药状态，(MedicationID, Date, Period) 唯一。
type Log struct {
	ID            string `json:"id"`
	MedicationID  string `json:"medication_id"`
	Date          string `json:"date"`
	Period        Period `json:"period"`
	ScheduledTime string `json:"scheduled_time"`
	Taken         bool   `json:"taken"`
	Time          string `json:"time"`
}

// DoseEntry 是今日清单/历史日志中的单条记录，Pending 表示尚未落库的虚拟条目。
type DoseEntry struct {
	ID             string `json:"id"`
	MedicationID   string `json:"medication_id"`
	MedicationName string `json:"medication_name"`
	Dosage         string `json:"dosage,omitempty"`
	Date           string `json:"date"`
	Period         Period `json:"period"`
	ScheduledTime  string `json:"scheduled_time"`
	Taken          bool   `json:"taken"`
	Time           string `json:"time"`
	Pending        bool   `json:"pending"`
}

// DayRate 是某一天的依从率，Rate 为 0–100 的整数。
type DayRate struct {
	Date     string `json:"date"`
	Day      string `json:"day"`
	Expected int    `json:"expected"`
	Taken    int    `json:"taken"`
	Rate     int    `json:"rate"`
}

const (
	pendingIDPrefix = "pending-"
	tempIDPrefix    = "temp-"
)

var (
	// ErrMedicationNotFound 在快照中找不到药品时返回，调用方不得产生任何写入
	ErrMedicationNotFound = errors.New("medication not found")
	// ErrPeriodNotConfigured 当药品未配置该时段的服药时间时返回
	ErrPeriodNotConfigured = errors.New("period not configured for medication")
	// ErrInvalidPeriod 时段不在 morning/lunch/evening 之内
	ErrInvalidPeriod = errors.New("invalid period")
)

// FormatDate 把时间折叠为本地日历日字符串。
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate 以 loc 解析 YYYY-MM-DD。
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return time.ParseInLocation(DateLayout, value, loc)
}

// PendingID 为未落库的剂量生成确定性 ID，前缀保证不与数字形式的持久化 ID 冲突。
func PendingID(medicationID string, period Period) string {
	return pendingIDPrefix + medicationID + "-" + string(period)
}

// IsPendingID 判断是否为虚拟条目 ID
func IsPendingID(id string) bool {
	return strings.HasPrefix(id, pendingIDPrefix)
}

// IsTempID 判断是否为乐观更新阶段的临时 ID
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}

func normalizeDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
