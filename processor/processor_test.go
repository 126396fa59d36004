package processor

import (
	"encoding/json"
	"testing"

	"wallaflow/config"
	"wallaflow/models"
)

// listingFromJSON builds a Listing the same way the reader does: by
// decoding the raw API object.
func listingFromJSON(t *testing.T, raw string) models.Listing {
	t.Helper()
	var l models.Listing
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		t.Fatalf("parse listing: %v", err)
	}
	return l
}

func testConfig() *config.Config {
	return config.Default()
}
