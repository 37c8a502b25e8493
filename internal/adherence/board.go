package adherence

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ErrPersistFailed 表示持久化写入失败，Board 已回滚到写入前的快照。
var ErrPersistFailed = errors.New("persist dose log failed")

// LogWriter 是日志持久化协作方，需要按自然键原子 upsert。
type LogWriter interface {
	UpsertLog(ctx context.Context, write LogWrite) (Log, error)
}

// Board 持有调用方拥有的 (medications, logs) 快照，并实现“快照 → 乐观更新 → 持久化 → 对账/回滚”流程。
// 非并发安全，每个请求或会话各自持有一个 Board。
type Board struct {
	meds  []Medication
	logs  []Log
	newID func() string
}

// NewBoard 复制传入的快照，调用方之后的修改不会影响 Board。
func NewBoard(meds []Medication, logs []Log) *Board {
	return &Board{
		meds: slices.Clone(meds),
		logs: slices.Clone(logs),
		newID: func() string {
			return tempIDPrefix + uuid.NewString()
		},
	}
}

// Medications 返回药品快照副本
func (b *Board) Medications() []Medication {
	return slices.Clone(b.meds)
}

// Logs 返回日志快照副本
func (b *Board) Logs() []Log {
	return slices.Clone(b.logs)
}

// Agenda 基于当前快照计算指定日期的剂量清单
func (b *Board) Agenda(date time.Time) []DoseEntry {
	return DayLog(b.meds, b.logs, date)
}

// Weekly 基于当前快照计算 7 日依从率
func (b *Board) Weekly(anchor time.Time) []DayRate {
	return WeeklyStats(b.meds, b.logs, anchor)
}

// Toggle 切换服药状态：先乐观写入本地快照，再调用 writer；
// 成功时用权威记录替换乐观记录（先按临时 ID 匹配，再按真实 ID），失败时恢复到操作前的快照。
func (b *Board) Toggle(ctx context.Context, writer LogWriter, medicationID string, period Period, date, now time.Time) (Log, error) {
	result, err := Toggle(b.meds, b.logs, medicationID, period, date, now)
	if err != nil {
		return Log{}, err
	}

	snapshot := slices.Clone(b.logs)

	optimisticID := result.Write.ID
	if result.Created() {
		optimisticID = b.newID()
	}
	b.applyOptimistic(result, result.Write.Log(optimisticID))

	saved, err := writer.UpsertLog(ctx, result.Write)
	if err != nil {
		b.logs = snapshot
		return Log{}, fmt.Errorf("%w: %w", ErrPersistFailed, err)
	}

	b.reconcile(optimisticID, saved)
	return saved, nil
}

func (b *Board) applyOptimistic(result ToggleResult, optimistic Log) {
	if result.Existing == nil {
		b.logs = append(b.logs, optimistic)
		return
	}
	for i := range b.logs {
		if b.logs[i].ID == result.Existing.ID {
			b.logs[i] = optimistic
			return
		}
	}
	b.logs = append(b.logs, optimistic)
}

func (b *Board) reconcile(optimisticID string, saved Log) {
	replaced := false
	next := b.logs[:0]
	for _, log := range b.logs {
		if log.ID == optimisticID || log.ID == saved.ID {
			if replaced {
				continue
			}
			log = saved
			replaced = true
		}
		next = append(next, log)
	}
	if !replaced {
		next = append(next, saved)
	}
	b.logs = next
}
