// Package handler 提供 JSON API 的 gin 处理函数与中间件。
// 测试直接构造 gin 上下文或小型引擎，只用标准 testing 断言，与 service、db、router 保持一致。
package handler

import (
	"time"

	"github.com/medilog/internal/adherence"
	"github.com/medilog/internal/metrics"
	"github.com/medilog/internal/service"
	"gorm.io/gorm"
)

// Options 汇总构造 API 时可选的依赖
type Options struct {
	Location   *time.Location
	Metrics    *metrics.Collector
	Clock      func() time.Time
	AITimeout  time.Duration
	AIDefaults service.SystemSettings
}

// API bundles shared dependencies for HTTP handlers.
type API struct {
	db           *gorm.DB
	users        *service.UserService
	medications  *service.MedicationService
	doseLogs     *service.MedicationLogService
	references   *service.ReferenceService
	saved        *service.SavedItemService
	system       *service.SystemSettingService
	explanations service.ExplanationGenerator
	logWriter    adherence.LogWriter
	metrics      *metrics.Collector
	location     *time.Location
	now          func() time.Time
}

// NewAPI constructs a handler set with shared services.
func NewAPI(gdb *gorm.DB, opts Options) *API {
	registerValidators()

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	systemService := service.NewSystemSettingService(gdb)
	systemService.SetDefaults(opts.AIDefaults)

	explanationService := service.NewExplanationService(gdb, systemService, opts.Metrics)
	if opts.AITimeout > 0 {
		explanationService.SetTimeout(opts.AITimeout)
	}

	doseLogs := service.NewMedicationLogService(gdb)
	doseLogs.SetLocation(loc)

	references := service.NewReferenceService(gdb)

	return &API{
		db:           gdb,
		users:        service.NewUserService(gdb),
		medications:  service.NewMedicationService(gdb),
		doseLogs:     doseLogs,
		references:   references,
		saved:        service.NewSavedItemService(gdb, references),
		system:       systemService,
		explanations: explanationService,
		logWriter:    doseLogs,
		metrics:      opts.Metrics,
		location:     loc,
		now:          clock,
	}
}

// DB exposes the underlying gorm instance.
func (a *API) DB() *gorm.DB {
	return a.db
}

// Metrics 返回共享的指标采集器，可能为 nil
func (a *API) Metrics() *metrics.Collector {
	return a.metrics
}

// SetClock 固定当前时间，主要用于测试。
func (a *API) SetClock(clock func() time.Time) {
	if clock == nil {
		clock = time.Now
	}
	a.now = clock
}

// SetExplanationGenerator 替换解释生成器，nil 时忽略。
func (a *API) SetExplanationGenerator(generator service.ExplanationGenerator) {
	if generator != nil {
		a.explanations = generator
	}
}

// SetLogWriter 替换打卡写入方，nil 恢复为数据库实现。
func (a *API) SetLogWriter(writer adherence.LogWriter) {
	if writer == nil {
		writer = a.doseLogs
	}
	a.logWriter = writer
}

// today 返回服务时区下的当天零点
func (a *API) today() time.Time {
	now := a.now().In(a.location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.location)
}
