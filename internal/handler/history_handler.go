package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/adherence"
)

const (
	defaultRecentDays = 7
	maxRecentDays     = 90
	monthLayout       = "2006-01"
)

// RecentHistory 返回最近 N 天（新到旧）的服药记录
func (a *API) RecentHistory(c *gin.Context) {
	days := intQuery(c, "days", defaultRecentDays, 1, maxRecentDays)
	anchor := a.today()
	start := anchor.AddDate(0, 0, -(days - 1))

	board, err := a.loadBoard(currentUserID(c), start, anchor)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용 기록을 불러오지 못했습니다")
		return
	}

	summaries := adherence.RecentDays(board.Medications(), board.Logs(), anchor, days)
	series := make([]adherence.DayRate, 0, len(summaries))
	for _, day := range summaries {
		series = append(series, day.DayRate)
	}

	c.JSON(http.StatusOK, gin.H{
		"days":    summaries,
		"summary": adherence.SummarizeRates(series),
	})
}

// CalendarHistory 返回某月（默认本月）每天的依从率
func (a *API) CalendarHistory(c *gin.Context) {
	first := a.today()
	first = time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, a.location)
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := time.ParseInLocation(monthLayout, raw, a.location)
		if err != nil {
			respondError(c, http.StatusBadRequest, "월 형식이 올바르지 않습니다 (YYYY-MM)")
			return
		}
		first = parsed
	}
	last := first.AddDate(0, 1, -1)

	board, err := a.loadBoard(currentUserID(c), first, last)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용 기록을 불러오지 못했습니다")
		return
	}

	cells := adherence.MonthCalendar(board.Medications(), board.Logs(), first.Year(), first.Month(), a.location)
	c.JSON(http.StatusOK, gin.H{
		"month":   first.Format(monthLayout),
		"days":    cells,
		"summary": adherence.SummarizeRates(cells),
	})
}

// DayHistory 返回某一天的服药明细
func (a *API) DayHistory(c *gin.Context) {
	date, ok := a.dateQuery(c, "date")
	if !ok {
		return
	}

	board, err := a.loadBoard(currentUserID(c), date, date)
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용 기록을 불러오지 못했습니다")
		return
	}

	series := adherence.RateSeries(board.Medications(), board.Logs(), date, 1)
	c.JSON(http.StatusOK, gin.H{
		"date":  adherence.FormatDate(date),
		"rate":  series[0],
		"doses": adherence.DayLog(board.Medications(), board.Logs(), date),
	})
}
