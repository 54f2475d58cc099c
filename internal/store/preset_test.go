package store

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func testPreset(name string) *Preset {
	return &Preset{
		ID:                  uuid.New().String(),
		Name:                name,
		MaxFaces:            3,
		InferenceWidth:      640,
		ConfidenceThreshold: 0.30,
		SmoothingSeconds:    0.60,
	}
}

func TestPresetRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	p := testPreset("default")
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByID(p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Name != "default" {
		t.Errorf("Name = %q, want %q", got.Name, "default")
	}
	if got.MaxFaces != 3 || got.InferenceWidth != 640 {
		t.Errorf("values = (%d, %d), want (3, 640)", got.MaxFaces, got.InferenceWidth)
	}
	if got.ConfidenceThreshold != 0.30 || got.SmoothingSeconds != 0.60 {
		t.Errorf("thresholds = (%f, %f), want (0.30, 0.60)", got.ConfidenceThreshold, got.SmoothingSeconds)
	}
}

func TestPresetRepository_GetByName(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	p := testPreset("meeting-room")
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByName("meeting-room")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.ID != p.ID {
		t.Errorf("ID = %q, want %q", got.ID, p.ID)
	}
}

func TestPresetRepository_DuplicateNameRejected(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	if err := repo.Create(testPreset("default")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := repo.Create(testPreset("default")); err == nil {
		t.Error("duplicate preset name accepted, want error")
	}
}

func TestPresetRepository_List(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	for _, name := range []string{"bravo", "alpha", "charlie"} {
		if err := repo.Create(testPreset(name)); err != nil {
			t.Fatalf("Create(%q) error = %v", name, err)
		}
	}

	presets, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(presets) != 3 {
		t.Fatalf("List() returned %d presets, want 3", len(presets))
	}
	if presets[0].Name != "alpha" || presets[2].Name != "charlie" {
		t.Errorf("presets not ordered by name: %q, %q, %q", presets[0].Name, presets[1].Name, presets[2].Name)
	}
}

func TestPresetRepository_Update(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	p := testPreset("default")
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	p.MaxFaces = 1
	p.SmoothingSeconds = 0
	if err := repo.Update(p); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(p.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.MaxFaces != 1 || got.SmoothingSeconds != 0 {
		t.Errorf("updated values = (%d, %f), want (1, 0)", got.MaxFaces, got.SmoothingSeconds)
	}
}

func TestPresetRepository_UpdateMissing(t *testing.T) {
	s := newTestStore(t)

	p := testPreset("ghost")
	if err := s.Presets().Update(p); !errors.Is(err, ErrNotFound) {
		t.Errorf("Update() on missing preset error = %v, want ErrNotFound", err)
	}
}

func TestPresetRepository_Delete(t *testing.T) {
	s := newTestStore(t)
	repo := s.Presets()

	p := testPreset("default")
	if err := repo.Create(p); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := repo.GetByID(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrNotFound", err)
	}

	if err := repo.Delete(p.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
