package service

import (
	"errors"
	"testing"

	"github.com/medilog/internal/db"
)

func TestSavedItemServiceToggleAndList(t *testing.T) {
	gdb := setupServiceTestDB(t)
	refs := NewReferenceService(gdb)
	if _, err := refs.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewSavedItemService(gdb, refs)

	saved, err := svc.Toggle(1, "drug", 2)
	if err != nil || !saved {
		t.Fatalf("expected saved, got %v err=%v", saved, err)
	}
	if _, err := svc.Toggle(1, "disease", 1); err != nil {
		t.Fatalf("toggle disease: %v", err)
	}

	isSaved, err := svc.IsSaved(1, "drug", 2)
	if err != nil || !isSaved {
		t.Fatalf("expected drug to be saved, got %v err=%v", isSaved, err)
	}

	entries, err := svc.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	saved, err = svc.Toggle(1, "drug", 2)
	if err != nil || saved {
		t.Fatalf("expected unsaved, got %v err=%v", saved, err)
	}

	others, _ := svc.List(2)
	if len(others) != 0 {
		t.Fatalf("expected no entries for other user, got %d", len(others))
	}
}

func TestSavedItemServiceValidatesTarget(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewSavedItemService(gdb, nil)

	if _, err := svc.Toggle(1, "drug", 1); !errors.Is(err, ErrReferenceNotFound) {
		t.Fatalf("expected ErrReferenceNotFound, got %v", err)
	}
	if _, err := svc.Toggle(1, "vitamin", 1); !errors.Is(err, ErrInvalidReferenceType) {
		t.Fatalf("expected ErrInvalidReferenceType, got %v", err)
	}
}

func TestSavedItemServiceListSkipsVanishedTargets(t *testing.T) {
	gdb := setupServiceTestDB(t)
	refs := NewReferenceService(gdb)
	if _, err := refs.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewSavedItemService(gdb, refs)

	if _, err := svc.Toggle(1, "drug", 3); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if err := gdb.Delete(&db.Drug{}, 3).Error; err != nil {
		t.Fatalf("delete drug: %v", err)
	}

	entries, err := svc.List(1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected vanished target to be skipped, got %+v", entries)
	}
}

func TestSavedItemServiceRemove(t *testing.T) {
	gdb := setupServiceTestDB(t)
	refs := NewReferenceService(gdb)
	if _, err := refs.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	svc := NewSavedItemService(gdb, refs)
	if _, err := svc.Toggle(1, "disease", 2); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	entries, _ := svc.List(1)

	if err := svc.Remove(2, entries[0].ID); !errors.Is(err, ErrSavedItemNotFound) {
		t.Fatalf("expected ErrSavedItemNotFound for other user, got %v", err)
	}
	if err := svc.Remove(1, entries[0].ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := svc.Remove(1, entries[0].ID); !errors.Is(err, ErrSavedItemNotFound) {
		t.Fatalf("expected ErrSavedItemNotFound on second remove, got %v", err)
	}
}
