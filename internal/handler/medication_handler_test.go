package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/medilog/internal/adherence"
)

func TestCreateMedicationAndList(t *testing.T) {
	api, _ := setupTestDB(t)

	med := createMedication(t, api, 1)
	if med.ID == "" || med.Name != "아스피린" {
		t.Fatalf("unexpected medication %+v", med)
	}
	if med.Frequency != adherence.FrequencyTwice {
		t.Fatalf("expected frequency derived from two times, got %s", med.Frequency)
	}

	w := performRequest(t, api.ListMedications, http.MethodGet, "/api/medications", nil, 1)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	resp := decodeResponse[struct {
		Medications []adherence.Medication `json:"medications"`
	}](t, w)
	if len(resp.Medications) != 1 || resp.Medications[0].ID != med.ID {
		t.Fatalf("unexpected list %+v", resp.Medications)
	}

	w = performRequest(t, api.ListMedications, http.MethodGet, "/api/medications", nil, 2)
	other := decodeResponse[struct {
		Medications []adherence.Medication `json:"medications"`
	}](t, w)
	if len(other.Medications) != 0 {
		t.Fatalf("other user must not see medications, got %+v", other.Medications)
	}
}

func TestCreateMedicationValidation(t *testing.T) {
	api, _ := setupTestDB(t)

	cases := []struct {
		name    string
		payload map[string]any
		message string
	}{
		{
			name:    "missing name",
			payload: map[string]any{"times": map[string]string{"morning": "08:00"}},
		},
		{
			name:    "malformed clock",
			payload: map[string]any{"name": "타이레놀", "times": map[string]string{"morning": "25:00"}},
		},
		{
			name:    "unknown period",
			payload: map[string]any{"name": "타이레놀", "times": map[string]string{"night": "22:00"}},
		},
		{
			name:    "no dose times",
			payload: map[string]any{"name": "타이레놀", "times": map[string]string{"morning": " "}},
			message: "복용 시간을 하나 이상 선택해 주세요",
		},
		{
			name: "empty repeat days",
			payload: map[string]any{
				"name":     "타이레놀",
				"times":    map[string]string{"morning": "08:00"},
				"schedule": map[string]any{"type": "repeat", "repeat_days": []string{}},
			},
			message: "복용 일정이 올바르지 않습니다",
		},
		{
			name: "end before start",
			payload: map[string]any{
				"name":     "타이레놀",
				"times":    map[string]string{"morning": "08:00"},
				"schedule": map[string]any{"type": "period", "start_date": "2024-05-10", "end_date": "2024-05-01"},
			},
			message: "복용 일정이 올바르지 않습니다",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := performRequest(t, api.CreateMedication, http.MethodPost, "/api/medications", tc.payload, 1)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
			}
			if tc.message != "" {
				resp := decodeResponse[map[string]string](t, w)
				if resp["error"] != tc.message {
					t.Fatalf("expected %q, got %q", tc.message, resp["error"])
				}
			}
		})
	}

	meds, err := api.medications.List(1)
	if err != nil {
		t.Fatalf("list medications: %v", err)
	}
	if len(meds) != 0 {
		t.Fatalf("invalid payloads must not be stored, got %d", len(meds))
	}
}

func TestUpdateAndDeleteMedication(t *testing.T) {
	api, _ := setupTestDB(t)
	med := createMedication(t, api, 1)
	idParam := gin.Param{Key: "id", Value: med.ID}

	update := map[string]any{
		"name":     "아스피린 프로텍트",
		"times":    map[string]string{"lunch": "12:30"},
		"schedule": map[string]any{"type": "repeat", "repeat_days": []string{"월", "수"}},
	}
	w := performRequest(t, api.UpdateMedication, http.MethodPut, "/api/medications/"+med.ID, update, 1, idParam)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decodeResponse[struct {
		Medication adherence.Medication `json:"medication"`
	}](t, w).Medication
	if len(updated.Times) != 1 || updated.Times[adherence.PeriodLunch] != "12:30" {
		t.Fatalf("times should be replaced, got %#v", updated.Times)
	}
	if updated.Schedule == nil || updated.Schedule.Type != adherence.ScheduleRepeat {
		t.Fatalf("schedule should be replaced, got %#v", updated.Schedule)
	}

	w = performRequest(t, api.UpdateMedication, http.MethodPut, "/api/medications/"+med.ID, update, 2, idParam)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", w.Code)
	}

	w = performRequest(t, api.DeleteMedication, http.MethodDelete, "/api/medications/"+med.ID, nil, 1, idParam)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = performRequest(t, api.GetMedication, http.MethodGet, "/api/medications/"+med.ID, nil, 1, idParam)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", w.Code)
	}
}

func TestGetMedicationRejectsInvalidID(t *testing.T) {
	api, _ := setupTestDB(t)

	w := performRequest(t, api.GetMedication, http.MethodGet, "/api/medications/abc", nil, 1, gin.Param{Key: "id", Value: "abc"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
