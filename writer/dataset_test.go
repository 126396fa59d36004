package writer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"wallaflow/config"
	"wallaflow/models"
)

func testWriter(t *testing.T) (*DatasetWriter, string) {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Dataset.Dir = dir
	return NewDatasetWriter(cfg), dir
}

func enrichedFromJSON(t *testing.T, raw string) models.EnrichedListing {
	t.Helper()
	var l models.Listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("parse listing: %v", err)
	}
	return models.EnrichedListing{
		Listing: l,
		Enrichment: models.Enrichment{
			CrawlTimestamp:     "2026-03-05T10:00:00Z",
			RelativePriceIndex: 1.0,
			SuspiciousKeywords: []string{},
		},
	}
}

func TestDailyPathUsesUTCDay(t *testing.T) {
	w, dir := testWriter(t)

	// 01:00 in UTC+3 is still the previous UTC calendar day.
	local := time.Date(2026, 3, 5, 1, 0, 0, 0, time.FixedZone("EAT", 3*3600))
	got := w.DailyPath(local)
	want := filepath.Join(dir, "wallapop_motos_20260304.json")
	if got != want {
		t.Errorf("DailyPath = %q, want %q", got, want)
	}
}

func TestLoadExistingIDsMissingFile(t *testing.T) {
	w, dir := testWriter(t)
	ids := w.LoadExistingIDs(filepath.Join(dir, "nope.json"))
	if len(ids) != 0 {
		t.Fatalf("missing file produced %d ids", len(ids))
	}
}

func TestLoadExistingIDsSkipsMalformedLines(t *testing.T) {
	w, dir := testWriter(t)
	path := filepath.Join(dir, "wallapop_motos_20260305.json")

	content := strings.Join([]string{
		`{"id": "a"}`,
		`not json at all`,
		``,
		`{"id": 42}`,
		`{"title": "no id"}`,
	}, "\n") + "\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	ids := w.LoadExistingIDs(path)
	if len(ids) != 2 {
		t.Fatalf("got %d ids: %v", len(ids), ids)
	}
	if _, ok := ids["a"]; !ok {
		t.Error(`missing id "a"`)
	}
	if _, ok := ids["42"]; !ok {
		t.Error("numeric id not collected in textual form")
	}
}

func TestAppendRoundTrip(t *testing.T) {
	w, _ := testWriter(t)
	path := w.DailyPath(time.Now())

	batch := []models.EnrichedListing{
		enrichedFromJSON(t, `{"id": "1", "title": "Montesa Cota 4RT & repuestos", "description": "pequeña reseña"}`),
		enrichedFromJSON(t, `{"id": "2", "title": "Bultaco"}`),
	}
	if err := w.Append(path, batch); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := w.Append(path, []models.EnrichedListing{enrichedFromJSON(t, `{"id": "3"}`)}); err != nil {
		t.Fatalf("second Append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[0], "& repuestos") || !strings.Contains(lines[0], "pequeña") {
		t.Errorf("text not written literally: %s", lines[0])
	}
	if strings.Contains(lines[0], `\u0026`) {
		t.Errorf("ampersand HTML-escaped: %s", lines[0])
	}

	for i, line := range lines {
		var decoded map[string]any
		if err := json.Unmarshal([]byte(line), &decoded); err != nil {
			t.Fatalf("line %d not valid JSON: %v", i, err)
		}
		if _, ok := decoded["crawl_timestamp"]; !ok {
			t.Errorf("line %d missing crawl_timestamp", i)
		}
		if _, ok := decoded["enrichment"]; !ok {
			t.Errorf("line %d missing enrichment record", i)
		}
	}

	ids := w.LoadExistingIDs(path)
	if len(ids) != 3 {
		t.Fatalf("round trip lost ids: %v", ids)
	}
}
