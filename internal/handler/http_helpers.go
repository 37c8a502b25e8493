package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/medilog/internal/adherence"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// dateQuery 读取 YYYY-MM-DD 查询参数，缺省为今天；格式错误时已写入 400 响应
func (a *API) dateQuery(c *gin.Context, key string) (time.Time, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return a.today(), true
	}
	date, err := adherence.ParseDate(raw, a.location)
	if err != nil {
		respondError(c, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)")
		return time.Time{}, false
	}
	return date, true
}

// intQuery 读取整数参数并夹在 [min, max] 内
func intQuery(c *gin.Context, key string, fallback, min, max int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

var validatorsOnce sync.Once

// registerValidators 向 gin 的校验引擎注册业务相关的 tag
func registerValidators() {
	validatorsOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = engine.RegisterValidation("clock", validateClock)
		_ = engine.RegisterValidation("isodate", validateISODate)
		_ = engine.RegisterValidation("period", validatePeriod)
	})
}

// 空值交给业务层丢弃
func validateClock(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	_, err := time.Parse(adherence.ClockLayout, value)
	return err == nil
}

func validateISODate(fl validator.FieldLevel) bool {
	value := strings.TrimSpace(fl.Field().String())
	if value == "" {
		return true
	}
	_, err := time.Parse(adherence.DateLayout, value)
	return err == nil
}

func validatePeriod(fl validator.FieldLevel) bool {
	return adherence.Period(strings.TrimSpace(fl.Field().String())).Valid()
}
