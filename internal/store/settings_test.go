package store

import (
	"errors"
	"testing"
)

func TestSettings_GetSet(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Settings().Get("detection_enabled"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get missing key error = %v, want ErrNotFound", err)
	}

	if err := s.Settings().Set("detection_enabled", "false"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	value, err := s.Settings().Get("detection_enabled")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if value != "false" {
		t.Errorf("value = %q, want %q", value, "false")
	}

	// Overwrite
	if err := s.Settings().Set("detection_enabled", "true"); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	value, _ = s.Settings().Get("detection_enabled")
	if value != "true" {
		t.Errorf("value after overwrite = %q, want %q", value, "true")
	}
}
