package writer

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"wallaflow/config"
	"wallaflow/logger"
	"wallaflow/models"
)

// DatasetWriter appends enriched listings to the per-day NDJSON dataset
// file and reads back the identifiers already recorded there. The file is
// append-only; existing lines are never rewritten.
type DatasetWriter struct {
	config *config.Config
	log    *logger.Log
}

func NewDatasetWriter(cfg *config.Config) *DatasetWriter {
	return &DatasetWriter{
		config: cfg,
		log:    logger.GetLogger(),
	}
}

// DailyPath returns the dataset file for the given instant's UTC calendar
// day, named wallapop_<tag>_<YYYYMMDD>.json.
func (w *DatasetWriter) DailyPath(now time.Time) string {
	name := fmt.Sprintf("wallapop_%s_%s.json", w.config.Dataset.Tag, now.UTC().Format("20060102"))
	return filepath.Join(w.config.Dataset.Dir, name)
}

// LoadExistingIDs collects the listing ids already present in the dataset
// file. A missing file yields an empty set and malformed lines are skipped
// individually; neither is fatal.
func (w *DatasetWriter) LoadExistingIDs(path string) map[string]struct{} {
	log := w.log.WithComponent("dataset_writer").WithFields(logger.Fields{"path": path})

	ids := make(map[string]struct{})
	f, err := os.Open(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.WithError(err).Warn("failed to open dataset file; starting from an empty id set")
		}
		return ids
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Listings carry full image descriptor lists; lines can get long.
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	skipped := 0
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var item models.Listing
		if err := json.Unmarshal(line, &item); err != nil {
			skipped++
			continue
		}
		if id := item.ID(); id != "" {
			ids[id] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		log.WithError(err).Warn("stopped reading dataset file early")
	}
	if skipped > 0 {
		log.WithFields(logger.Fields{"lines": skipped}).Warn("skipped malformed dataset lines")
	}

	return ids
}

// Append writes each listing as one JSON line in insertion order. A
// sidecar flock guards the file so overlapping runs cannot interleave
// writes.
func (w *DatasetWriter) Append(path string, items []models.EnrichedListing) error {
	log := w.log.WithComponent("dataset_writer").WithFields(logger.Fields{"path": path})
	start := time.Now()

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock dataset file: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open dataset file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return fmt.Errorf("append listing %s: %w", item.ID(), err)
		}
	}

	logger.LogPerformanceEntry(w.log.WithComponent("dataset_writer"), "dataset_writer", "append", time.Since(start), logger.Fields{
		"listings": len(items),
	})
	log.WithFields(logger.Fields{"listings": len(items)}).Info("dataset appended")
	return nil
}
