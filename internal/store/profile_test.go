package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// newTestStore creates a new Store in a temporary directory for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "formcheck-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestProfileRepository_Create(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	profile := &Profile{
		ID:         "profile-1",
		Name:       "strict depth",
		Exercise:   "squat",
		Thresholds: json.RawMessage(`{"parallel_knee_max":85}`),
	}

	if err := repo.Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	// Verify CreatedAt and UpdatedAt are set
	if profile.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set after create")
	}
	if profile.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be set after create")
	}

	retrieved, err := repo.GetByID("profile-1")
	if err != nil {
		t.Fatalf("failed to get profile by ID: %v", err)
	}

	if retrieved.Name != profile.Name {
		t.Errorf("Name mismatch: got %q, want %q", retrieved.Name, profile.Name)
	}
	if retrieved.Exercise != "squat" {
		t.Errorf("Exercise mismatch: got %q, want %q", retrieved.Exercise, "squat")
	}
	if string(retrieved.Thresholds) != `{"parallel_knee_max":85}` {
		t.Errorf("Thresholds mismatch: got %s", retrieved.Thresholds)
	}
	if retrieved.Active {
		t.Error("profile should not be active")
	}

	byName, err := repo.GetByName("strict depth")
	if err != nil {
		t.Fatalf("failed to get profile by name: %v", err)
	}
	if byName.ID != "profile-1" {
		t.Errorf("ID mismatch: got %q, want %q", byName.ID, "profile-1")
	}
}

func TestProfileRepository_Create_EmptyThresholds(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	if err := repo.Create(&Profile{ID: "p", Name: "defaults", Exercise: "deadlift"}); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	retrieved, err := repo.GetByID("p")
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if string(retrieved.Thresholds) != "{}" {
		t.Errorf("expected empty object, got %s", retrieved.Thresholds)
	}
}

func TestProfileRepository_Create_Invalid(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	if err := repo.Create(&Profile{ID: "a", Name: "same", Exercise: "squat"}); err != nil {
		t.Fatalf("failed to create first profile: %v", err)
	}

	if err := repo.Create(&Profile{ID: "b", Name: "same", Exercise: "squat"}); err == nil {
		t.Error("creating profile with duplicate name should fail")
	}
	if err := repo.Create(&Profile{ID: "c", Name: "bench", Exercise: "bench"}); err == nil {
		t.Error("creating profile for an unknown exercise should fail")
	}
}

func TestProfileRepository_Activate(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	profiles := []*Profile{
		{ID: "squat-a", Name: "squat a", Exercise: "squat", Active: true},
		{ID: "squat-b", Name: "squat b", Exercise: "squat"},
		{ID: "dead-a", Name: "deadlift a", Exercise: "deadlift", Active: true},
	}
	for _, p := range profiles {
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create profile %q: %v", p.Name, err)
		}
	}

	active, err := repo.GetActive("squat")
	if err != nil {
		t.Fatalf("failed to get active profile: %v", err)
	}
	if active == nil || active.ID != "squat-a" {
		t.Fatalf("expected squat-a to be active, got %+v", active)
	}

	if err := repo.Activate("squat-b"); err != nil {
		t.Fatalf("failed to activate profile: %v", err)
	}

	active, err = repo.GetActive("squat")
	if err != nil {
		t.Fatalf("failed to get active profile: %v", err)
	}
	if active == nil || active.ID != "squat-b" {
		t.Fatalf("expected squat-b to be active, got %+v", active)
	}

	// Other exercises are untouched
	active, err = repo.GetActive("deadlift")
	if err != nil {
		t.Fatalf("failed to get active profile: %v", err)
	}
	if active == nil || active.ID != "dead-a" {
		t.Errorf("expected dead-a to stay active, got %+v", active)
	}

	// Creating an active profile takes over
	if err := repo.Create(&Profile{ID: "squat-c", Name: "squat c", Exercise: "squat", Active: true}); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}
	b, err := repo.GetByID("squat-b")
	if err != nil {
		t.Fatalf("failed to get profile: %v", err)
	}
	if b.Active {
		t.Error("squat-b should have been deactivated")
	}

	if err := repo.Deactivate("squat-c"); err != nil {
		t.Fatalf("failed to deactivate profile: %v", err)
	}
	active, err = repo.GetActive("squat")
	if err != nil {
		t.Fatalf("failed to get active profile: %v", err)
	}
	if active != nil {
		t.Errorf("expected no active squat profile, got %+v", active)
	}

	if err := repo.Activate("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
	if err := repo.Deactivate("missing"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}

func TestProfileRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	profiles := []*Profile{
		{ID: "p1", Name: "beginner", Exercise: "squat"},
		{ID: "p2", Name: "competition", Exercise: "squat"},
		{ID: "p3", Name: "conventional", Exercise: "deadlift"},
	}
	for _, p := range profiles {
		if err := repo.Create(p); err != nil {
			t.Fatalf("failed to create profile %q: %v", p.Name, err)
		}
	}

	list, err := repo.List()
	if err != nil {
		t.Fatalf("failed to list profiles: %v", err)
	}

	if len(list) != len(profiles) {
		t.Errorf("expected %d profiles, got %d", len(profiles), len(list))
	}

	nameMap := make(map[string]bool)
	for _, p := range list {
		nameMap[p.Name] = true
	}
	for _, p := range profiles {
		if !nameMap[p.Name] {
			t.Errorf("profile %q not found in list", p.Name)
		}
	}
}

func TestProfileRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	profile := &Profile{ID: "p1", Name: "beginner", Exercise: "squat"}
	if err := repo.Create(profile); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	originalUpdatedAt := profile.UpdatedAt

	// Wait a bit to ensure UpdatedAt changes
	time.Sleep(10 * time.Millisecond)

	profile.Name = "beginner v2"
	profile.Thresholds = json.RawMessage(`{"over_lean_trunk_max":45}`)
	if err := repo.Update(profile); err != nil {
		t.Fatalf("failed to update profile: %v", err)
	}

	retrieved, err := repo.GetByID("p1")
	if err != nil {
		t.Fatalf("failed to get profile after update: %v", err)
	}

	if retrieved.Name != "beginner v2" {
		t.Errorf("Name not updated: got %q, want %q", retrieved.Name, "beginner v2")
	}
	if string(retrieved.Thresholds) != `{"over_lean_trunk_max":45}` {
		t.Errorf("Thresholds not updated: got %s", retrieved.Thresholds)
	}
	if !retrieved.UpdatedAt.After(originalUpdatedAt) {
		t.Error("UpdatedAt should be updated after Update")
	}

	if err := repo.Update(&Profile{ID: "missing", Name: "x", Exercise: "squat"}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for non-existent profile, got: %v", err)
	}
}

func TestProfileRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Profiles()

	if err := repo.Create(&Profile{ID: "p1", Name: "beginner", Exercise: "squat"}); err != nil {
		t.Fatalf("failed to create profile: %v", err)
	}

	if err := repo.Delete("p1"); err != nil {
		t.Fatalf("failed to delete profile: %v", err)
	}

	if _, err := repo.GetByID("p1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound after delete, got: %v", err)
	}
	if err := repo.Delete("p1"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound for non-existent profile, got: %v", err)
	}
	if _, err := repo.GetByName("beginner"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got: %v", err)
	}
}
