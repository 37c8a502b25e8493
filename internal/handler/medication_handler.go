package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/adherence"
	"github.com/medilog/internal/service"
)

type scheduleRequest struct {
	Type       string   `json:"type" binding:"required,oneof=today repeat period"`
	RepeatDays []string `json:"repeat_days" binding:"max=7"`
	StartDate  string   `json:"start_date" binding:"isodate"`
	EndDate    string   `json:"end_date" binding:"isodate"`
}

type medicationRequest struct {
	Name        string            `json:"name" binding:"required,max=200"`
	Dosage      string            `json:"dosage" binding:"max=200"`
	Frequency   string            `json:"frequency" binding:"omitempty,oneof=once twice three_times"`
	Times       map[string]string `json:"times" binding:"dive,keys,period,endkeys,clock"`
	Precautions string            `json:"precautions" binding:"max=2000"`
	Schedule    *scheduleRequest  `json:"schedule"`
}

func (r medicationRequest) toInput() adherence.Medication {
	times := make(map[adherence.Period]string, len(r.Times))
	for period, clock := range r.Times {
		times[adherence.Period(strings.TrimSpace(period))] = clock
	}

	input := adherence.Medication{
		Name:        r.Name,
		Dosage:      r.Dosage,
		Frequency:   adherence.Frequency(r.Frequency),
		Times:       times,
		Precautions: r.Precautions,
	}
	if r.Schedule != nil {
		input.Schedule = &adherence.Schedule{
			Type:       adherence.ScheduleType(r.Schedule.Type),
			RepeatDays: r.Schedule.RepeatDays,
			StartDate:  strings.TrimSpace(r.Schedule.StartDate),
			EndDate:    strings.TrimSpace(r.Schedule.EndDate),
		}
	}
	return input
}

// ListMedications 返回当前用户的全部药品
func (a *API) ListMedications(c *gin.Context) {
	meds, err := a.medications.Snapshots(currentUserID(c))
	if err != nil {
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용약 목록을 불러오지 못했습니다")
		return
	}
	c.JSON(http.StatusOK, gin.H{"medications": meds})
}

// GetMedication 返回单个药品
func (a *API) GetMedication(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 복용약 ID입니다")
		return
	}

	med, err := a.medications.Get(currentUserID(c), id)
	if err != nil {
		handleMedicationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medication": service.ToAdherenceMedication(*med)})
}

// CreateMedication 登记新药品
func (a *API) CreateMedication(c *gin.Context) {
	var payload medicationRequest
	if !bindJSON(c, &payload, "복용약 정보를 확인해 주세요") {
		return
	}

	med, err := a.medications.Create(currentUserID(c), payload.toInput())
	if err != nil {
		handleMedicationError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"medication": service.ToAdherenceMedication(*med)})
}

// UpdateMedication 整体替换药品信息与日程
func (a *API) UpdateMedication(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 복용약 ID입니다")
		return
	}

	var payload medicationRequest
	if !bindJSON(c, &payload, "복용약 정보를 확인해 주세요") {
		return
	}

	med, err := a.medications.Update(currentUserID(c), id, payload.toInput())
	if err != nil {
		handleMedicationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"medication": service.ToAdherenceMedication(*med)})
}

// DeleteMedication 删除药品及其全部打卡记录
func (a *API) DeleteMedication(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "잘못된 복용약 ID입니다")
		return
	}

	if err := a.medications.Delete(currentUserID(c), id); err != nil {
		handleMedicationError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "복용약이 삭제되었습니다"})
}

func handleMedicationError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrMedicationNotFound):
		respondError(c, http.StatusNotFound, "복용약을 찾을 수 없습니다")
	case errors.Is(err, adherence.ErrNoDoseTimes):
		respondError(c, http.StatusBadRequest, "복용 시간을 하나 이상 선택해 주세요")
	case errors.Is(err, adherence.ErrInvalidSchedule):
		respondError(c, http.StatusBadRequest, "복용 일정이 올바르지 않습니다")
	case errors.Is(err, adherence.ErrInvalidMedication), errors.Is(err, adherence.ErrInvalidPeriod):
		respondError(c, http.StatusBadRequest, "복용약 정보를 확인해 주세요")
	default:
		c.Error(err)
		respondError(c, http.StatusInternalServerError, "복용약 처리 중 오류가 발생했습니다")
	}
}
