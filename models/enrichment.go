package models

// Enrichment carries the derived signals computed for one new listing.
type Enrichment struct {
	CrawlTimestamp          string   `json:"crawl_timestamp"`
	RelativePriceIndex      float64  `json:"relative_price_index"`
	SuspiciousKeywords      []string `json:"suspicious_keywords"`
	SuspiciousKeywordsCount int      `json:"suspicious_keywords_count"`
	RiskScore               int      `json:"risk_score"`
	SellerItemsToday        int      `json:"seller_items_today"`
	DescriptionLength       int      `json:"description_length"`
	HasImages               bool     `json:"has_images"`
	ImageCount              int      `json:"image_count"`
}

// EnrichedListing is a Listing plus its enrichment record.
type EnrichedListing struct {
	Listing
	Enrichment Enrichment
}

// MarshalJSON emits the raw listing with crawl_timestamp and
// relative_price_index mirrored at the top level and the full enrichment
// record nested under "enrichment". This is the daily dataset line format.
func (e EnrichedListing) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Listing.raw)+3)
	for k, v := range e.Listing.raw {
		out[k] = v
	}
	out["crawl_timestamp"] = e.Enrichment.CrawlTimestamp
	out["relative_price_index"] = e.Enrichment.RelativePriceIndex
	out["enrichment"] = e.Enrichment
	return marshalUnescaped(out)
}
