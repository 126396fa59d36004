package processor

import (
	"fmt"
	"math"
	"testing"

	"wallaflow/models"
)

func enrichedFixture(t *testing.T, price float64, score int) models.EnrichedListing {
	t.Helper()
	raw := fmt.Sprintf(`{"id": "x", "price": {"amount": %g}}`, price)
	return models.EnrichedListing{
		Listing:    listingFromJSON(t, raw),
		Enrichment: models.Enrichment{RiskScore: score},
	}
}

func TestSummarizePrices(t *testing.T) {
	batch := []models.EnrichedListing{
		enrichedFixture(t, 10, 0),
		enrichedFixture(t, 20, 0),
		enrichedFixture(t, 30, 0),
		enrichedFixture(t, 40, 0),
	}

	s := Summarize(batch)
	if s.Listings != 4 || s.PricedCount != 4 {
		t.Fatalf("counts = %d listings, %d priced", s.Listings, s.PricedCount)
	}
	if s.PriceMin != 10 || s.PriceMax != 40 || s.PriceMean != 25 || s.PriceMedian != 25 {
		t.Errorf("min/max/mean/median = %v/%v/%v/%v", s.PriceMin, s.PriceMax, s.PriceMean, s.PriceMedian)
	}
	want := math.Sqrt(500.0 / 3.0)
	if math.Abs(s.PriceStdDev-want) > 1e-9 {
		t.Errorf("stddev = %v, want %v", s.PriceStdDev, want)
	}
}

func TestSummarizeRiskBuckets(t *testing.T) {
	batch := []models.EnrichedListing{
		enrichedFixture(t, 100, 80),
		enrichedFixture(t, 100, 70),
		enrichedFixture(t, 100, 50),
		enrichedFixture(t, 100, 40),
		enrichedFixture(t, 100, 10),
	}

	s := Summarize(batch)
	if s.HighRisk != 2 || s.MediumRisk != 2 || s.LowRisk != 1 {
		t.Errorf("buckets = %d/%d/%d, want 2/2/1", s.HighRisk, s.MediumRisk, s.LowRisk)
	}
	if s.RiskMin != 10 || s.RiskMax != 80 {
		t.Errorf("risk min/max = %d/%d", s.RiskMin, s.RiskMax)
	}
	if s.RiskMean != 50 {
		t.Errorf("risk mean = %v", s.RiskMean)
	}
}

func TestSummarizeEmptyBatch(t *testing.T) {
	s := Summarize(nil)
	if s.Listings != 0 || s.PricedCount != 0 || s.HighRisk != 0 {
		t.Fatalf("empty batch produced %+v", s)
	}
	if len(s.Fields()) == 0 {
		t.Error("Fields must render even for an empty run")
	}
}

func TestSummarizeSingleListing(t *testing.T) {
	s := Summarize([]models.EnrichedListing{enrichedFixture(t, 75, 30)})
	if s.PriceMin != 75 || s.PriceMax != 75 || s.PriceMedian != 75 {
		t.Errorf("single price stats = %v/%v/%v", s.PriceMin, s.PriceMax, s.PriceMedian)
	}
	if s.PriceStdDev != 0 {
		t.Errorf("stddev of one price = %v, want 0", s.PriceStdDev)
	}
}
