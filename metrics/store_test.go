package metrics

import (
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndList(t *testing.T) {
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()

	id1, err := s.Save("place", "gcd", map[string]float64{"hpwl": 123456, "overflow": 0.08})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	id2, err := s.Save("power", "gcd", map[string]float64{"worst_drop": 0.012})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id1 == id2 || id1 == "" {
		t.Fatalf("run ids not unique: %q %q", id1, id2)
	}

	recs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d", len(recs))
	}

	byID := make(map[string]Record)
	for _, r := range recs {
		byID[r.ID] = r
	}
	place := byID[id1]
	if place.Command != "place" || place.Design != "gcd" {
		t.Fatalf("run = %+v", place)
	}
	if place.Values["hpwl"] != 123456 || place.Values["overflow"] != 0.08 {
		t.Fatalf("values = %+v", place.Values)
	}
	if time.Since(place.Stamp) > time.Minute {
		t.Fatalf("stamp too old: %v", place.Stamp)
	}
	if byID[id2].Values["worst_drop"] != 0.012 {
		t.Fatalf("values = %+v", byID[id2].Values)
	}
}

func TestOpenCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "metrics.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Save("pins", "top", nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// reopen and read back
	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	recs, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(recs) != 1 || recs[0].Command != "pins" {
		t.Fatalf("records = %+v", recs)
	}
}
