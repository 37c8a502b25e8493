package handler

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/adherence"
	"go.uber.org/zap"
)

type toggleDoseRequest struct {
	MedicationID string `json:"medication_id" binding:"required"`
	Period       string `json:"period" binding:"required,period"`
	Date         string `json:"date" binding:"isodate"`
}

// loadBoard 读取用户的药品快照与 [start, end] 区间内的日志
func (a *API) loadBoard(userID uint, start, end time.Time) (*adherence.Board, error) {
	meds, err := a.medications.Snapshots(userID)
	if err != nil {
		return nil, err
	}
	logs, err := a.doseLogs.ListBetween(userID, adherence.FormatDate(start), adherence.FormatDate(end))
	if err != nil {
		return nil, err
	}
	return adherence.NewBoard(meds, logs), nil
}

// boardWindow 覆盖目标日期与以今天结尾的 7 天
func (a *API) boardWindow(date time.Time) (time.Time, time.Time) {
	today := a.today()
	start := today.AddDate(0, 0, -(adherence.WeeklyWindow - 1))
	end := today
	if date.Before(start) {
		start = date
	}
	if date.After(end) {
		end = date
	}
	return start, end
}

// TodayDoses 返回某天（默认今天）的服药清单与最近 7 天依从率
func (a *API) TodayDoses(c *gin.Context) {
	date, ok := a.dateQuery(c, "date")
	if !ok {
		return
	}

	start, end := a.boardWindow(date)
	board, err := a.loadBoard(currentUserID(c), start, end)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용 목록을 불러오지 못했습니다")
		return
	}

	today := a.today()
	c.JSON(http.StatusOK, gin.H{
		"date":   adherence.FormatDate(date),
		"doses":  board.Agenda(date),
		"weekly": board.Weekly(today),
	})
}

// ToggleDose 切换某个时段的服药状态
func (a *API) ToggleDose(c *gin.Context) {
	var payload toggleDoseRequest
	if !bindJSON(c, &payload, "복용 정보를 확인해 주세요") {
		return
	}

	date := a.today()
	if raw := strings.TrimSpace(payload.Date); raw != "" {
		parsed, err := adherence.ParseDate(raw, a.location)
		if err != nil {
			respondError(c, http.StatusBadRequest, "날짜 형식이 올바르지 않습니다 (YYYY-MM-DD)")
			return
		}
		date = parsed
	}

	userID := currentUserID(c)
	start, end := a.boardWindow(date)
	board, err := a.loadBoard(userID, start, end)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용 목록을 불러오지 못했습니다")
		return
	}

	period := adherence.Period(strings.TrimSpace(payload.Period))
	saved, err := board.Toggle(c.Request.Context(), a.logWriter, strings.TrimSpace(payload.MedicationID), period, date, a.now().In(a.location))
	if err != nil {
		switch {
		case errors.Is(err, adherence.ErrPersistFailed):
			a.metrics.DoseToggled("failed")
			zap.L().Warn("dose toggle rolled back",
				zap.Uint("user_id", userID),
				zap.String("medication_id", payload.MedicationID),
				zap.String("period", string(period)),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "복용 기록을 저장하지 못했습니다. 잠시 후 다시 시도해 주세요",
				"doses": board.Agenda(date),
			})
		case errors.Is(err, adherence.ErrMedicationNotFound):
			respondError(c, http.StatusNotFound, "복용약을 찾을 수 없습니다")
		case errors.Is(err, adherence.ErrPeriodNotConfigured), errors.Is(err, adherence.ErrInvalidPeriod):
			respondError(c, http.StatusBadRequest, "해당 시간대는 복용 일정에 없습니다")
		default:
			c.Error(err)
			respondError(c, http.StatusInternalServerError, "복용 기록 처리 중 오류가 발생했습니다")
		}
		return
	}

	outcome := "untaken"
	if saved.Taken {
		outcome = "taken"
	}
	a.metrics.DoseToggled(outcome)

	c.JSON(http.StatusOK, gin.H{
		"log":    saved,
		"doses":  board.Agenda(date),
		"weekly": board.Weekly(a.today()),
	})
}

// WeeklyStats 返回以 anchor（默认今天）结尾的 7 天依从率与分档汇总
func (a *API) WeeklyStats(c *gin.Context) {
	anchor, ok := a.dateQuery(c, "anchor")
	if !ok {
		return
	}

	start := anchor.AddDate(0, 0, -(adherence.WeeklyWindow - 1))
	board, err := a.loadBoard(currentUserID(c), start, anchor)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "통계를 불러오지 못했습니다")
		return
	}

	series := board.Weekly(anchor)
	c.JSON(http.StatusOK, gin.H{
		"anchor":  adherence.FormatDate(anchor),
		"series":  series,
		"summary": adherence.SummarizeRates(series),
	})
}
