// Package memstore 提供 adherence.LogWriter 的内存实现，用于开发与测试时替代数据库。
package memstore

import (
	"context"
	"slices"
	"strconv"
	"sync"

	"github.com/medilog/internal/adherence"
)

// Store 按 (medication, date, period) 自然键保存日志，ID 为递增数字字符串。
type Store struct {
	mu       sync.Mutex
	logs     []adherence.Log
	lastID   int
	failures []error
	writes   int
}

// New 以给定日志初始化 Store，已有日志的数字 ID 会推高后续分配的 ID。
func New(logs ...adherence.Log) *Store {
	s := &Store{logs: slices.Clone(logs)}
	for _, log := range logs {
		if id, err := strconv.Atoi(log.ID); err == nil && id > s.lastID {
			s.lastID = id
		}
	}
	return s
}

// FailNext 让接下来的一次写入返回 err。
func (s *Store) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, err)
}

// UpsertLog 实现 adherence.LogWriter。
func (s *Store) UpsertLog(ctx context.Context, write adherence.LogWrite) (adherence.Log, error) {
	if err := ctx.Err(); err != nil {
		return adherence.Log{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.failures) > 0 {
		err := s.failures[0]
		s.failures = s.failures[1:]
		return adherence.Log{}, err
	}
	s.writes++

	for i, existing := range s.logs {
		if existing.MedicationID == write.MedicationID && existing.Date == write.Date && existing.Period == write.Period {
			s.logs[i] = write.Log(existing.ID)
			return s.logs[i], nil
		}
	}

	s.lastID++
	log := write.Log(strconv.Itoa(s.lastID))
	s.logs = append(s.logs, log)
	return log, nil
}

// Logs 返回当前日志副本
func (s *Store) Logs() []adherence.Log {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.logs)
}

// Writes 返回成功写入次数
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
