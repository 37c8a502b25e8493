package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medilog/internal/adherence"
)

func TestMedicationLogServiceUpsertIsIdempotentOnNaturalKey(t *testing.T) {
	gdb := setupServiceTestDB(t)
	meds := NewMedicationService(gdb)
	logs := NewMedicationLogService(gdb)
	logs.SetLocation(time.UTC)

	med, err := meds.Create(1, validMedicationInput())
	if err != nil {
		t.Fatalf("create medication: %v", err)
	}
	medID := formatID(med.ID)
	takenAt := time.Date(2024, 5, 8, 8, 4, 0, 0, time.UTC)

	first, err := logs.UpsertLog(context.Background(), adherence.LogWrite{
		MedicationID: medID, Date: "2024-05-08", Period: adherence.PeriodMorning,
		ScheduledTime: "08:00", Taken: true, TakenAt: takenAt,
	})
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !first.Taken || first.Time != "08:04" || first.ScheduledTime != "08:00" {
		t.Fatalf("unexpected first log %+v", first)
	}

	second, err := logs.UpsertLog(context.Background(), adherence.LogWrite{
		ID: first.ID, MedicationID: medID, Date: "2024-05-08", Period: adherence.PeriodMorning,
		ScheduledTime: "09:00", Taken: false,
	})
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected same row, got %s vs %s", second.ID, first.ID)
	}
	if second.Taken || second.Time != "" {
		t.Fatalf("expected untaken log without time, got %+v", second)
	}
	if second.ScheduledTime != "08:00" {
		t.Fatalf("scheduled time must keep the value copied at creation, got %s", second.ScheduledTime)
	}

	listed, err := logs.ListForDate(1, "2024-05-08")
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	if len(listed) != 1 {
		t.Fatalf("expected a single log, got %d", len(listed))
	}
}

func TestMedicationLogServiceUnknownMedication(t *testing.T) {
	logs := NewMedicationLogService(setupServiceTestDB(t))

	for _, id := range []string{"999", "temp-1", ""} {
		_, err := logs.UpsertLog(context.Background(), adherence.LogWrite{MedicationID: id, Date: "2024-05-08", Period: adherence.PeriodMorning, Taken: true})
		if !errors.Is(err, ErrMedicationNotFound) {
			t.Fatalf("expected ErrMedicationNotFound for %q, got %v", id, err)
		}
	}
}

func TestMedicationLogServiceListBetweenScopesByUser(t *testing.T) {
	gdb := setupServiceTestDB(t)
	meds := NewMedicationService(gdb)
	logs := NewMedicationLogService(gdb)

	mine, _ := meds.Create(1, validMedicationInput())
	theirs, _ := meds.Create(2, validMedicationInput())

	for _, write := range []adherence.LogWrite{
		{MedicationID: formatID(mine.ID), Date: "2024-05-01", Period: adherence.PeriodMorning, Taken: true, TakenAt: time.Now()},
		{MedicationID: formatID(mine.ID), Date: "2024-05-07", Period: adherence.PeriodEvening, Taken: true, TakenAt: time.Now()},
		{MedicationID: formatID(mine.ID), Date: "2024-05-09", Period: adherence.PeriodMorning, Taken: true, TakenAt: time.Now()},
		{MedicationID: formatID(theirs.ID), Date: "2024-05-03", Period: adherence.PeriodMorning, Taken: true, TakenAt: time.Now()},
	} {
		if _, err := logs.UpsertLog(context.Background(), write); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	listed, err := logs.ListBetween(1, "2024-05-01", "2024-05-07")
	if err != nil {
		t.Fatalf("list between: %v", err)
	}
	if len(listed) != 2 || listed[0].Date != "2024-05-01" || listed[1].Date != "2024-05-07" {
		t.Fatalf("unexpected logs %+v", listed)
	}

	if _, err := logs.ListBetween(1, "2024-05-07", "2024-05-01"); err == nil {
		t.Fatal("expected error for reversed range")
	}
}

func TestMedicationLogServiceBacksBoardToggle(t *testing.T) {
	gdb := setupServiceTestDB(t)
	meds := NewMedicationService(gdb)
	logs := NewMedicationLogService(gdb)

	if _, err := meds.Create(1, validMedicationInput()); err != nil {
		t.Fatalf("create medication: %v", err)
	}
	snapshots, _ := meds.Snapshots(1)

	today := time.Date(2024, 5, 8, 0, 0, 0, 0, time.Local) // 수요일
	board := adherence.NewBoard(snapshots, nil)

	saved, err := board.Toggle(context.Background(), logs, snapshots[0].ID, adherence.PeriodEvening, today, today.Add(19*time.Hour+35*time.Minute))
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if adherence.IsTempID(saved.ID) || !saved.Taken || saved.ScheduledTime != "19:30" {
		t.Fatalf("unexpected saved log %+v", saved)
	}

	stored, _ := logs.ListForDate(1, "2024-05-08")
	if len(stored) != 1 || stored[0].ID != saved.ID {
		t.Fatalf("expected stored log to match board, got %+v", stored)
	}
}
