package processor

import (
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"wallaflow/config"
	"wallaflow/logger"
	"wallaflow/models"
)

// Enricher computes the derived signals for a batch of new listings: the
// relative price index, suspicious-keyword matches, seller cardinality and
// the aggregate risk score. It is pure given the batch and the current
// UTC time.
type Enricher struct {
	config     *config.Config
	log        *logger.Log
	categories []string
}

func NewEnricher(cfg *config.Config) *Enricher {
	names := make([]string, 0, len(cfg.Risk.Categories))
	for name := range cfg.Risk.Categories {
		names = append(names, name)
	}
	// Map order is random; fix the category walk so keyword output is
	// deterministic.
	sort.Strings(names)

	return &Enricher{
		config:     cfg,
		log:        logger.GetLogger(),
		categories: names,
	}
}

// Enrich annotates every listing of the batch. The batch itself is the
// statistical population: price mean and seller cardinality are computed
// over exactly these listings.
func (e *Enricher) Enrich(items []models.Listing) []models.EnrichedListing {
	prices := batchPrices(items)
	mean := 0.0
	if len(prices) > 0 {
		mean = meanOf(prices)
	}
	sellers := sellerCardinality(items)

	enriched := make([]models.EnrichedListing, 0, len(items))
	for _, item := range items {
		text := item.Text()
		keywords, categories := e.DetectKeywords(text)

		sellerCount := 0
		if seller := item.UserID(); seller != "" {
			sellerCount = sellers[seller]
		}

		rpi := 1.0
		if price, ok := item.Price(); ok && price > 0 && mean > 0 {
			rpi = math.Round(price/mean*100) / 100
		}

		score := e.riskScore(item, mean, categories, strings.ToLower(text), sellerCount)

		enriched = append(enriched, models.EnrichedListing{
			Listing: item,
			Enrichment: models.Enrichment{
				CrawlTimestamp:          time.Now().UTC().Format(time.RFC3339Nano),
				RelativePriceIndex:      rpi,
				SuspiciousKeywords:      keywords,
				SuspiciousKeywordsCount: len(keywords),
				RiskScore:               score,
				SellerItemsToday:        sellerCount,
				DescriptionLength:       utf8.RuneCountInString(item.Description()),
				HasImages:               item.ImageCount() > 0,
				ImageCount:              item.ImageCount(),
			},
		})
	}

	e.log.WithComponent("enricher").WithFields(logger.Fields{
		"listings":   len(enriched),
		"priced":     len(prices),
		"price_mean": mean,
		"sellers":    len(sellers),
	}).Debug("batch enriched")

	return enriched
}

// DetectKeywords runs the case-insensitive substring search of the risk
// taxonomy over the given text. It returns the matched keywords in first
// match order, deduplicated, and the set of activated categories.
func (e *Enricher) DetectKeywords(text string) ([]string, map[string]bool) {
	found := []string{}
	categories := make(map[string]bool)
	if text == "" {
		return found, categories
	}

	lower := strings.ToLower(text)
	seen := make(map[string]bool)
	for _, name := range e.categories {
		for _, keyword := range e.config.Risk.Categories[name] {
			if !strings.Contains(lower, strings.ToLower(keyword)) {
				continue
			}
			categories[name] = true
			if !seen[keyword] {
				seen[keyword] = true
				found = append(found, keyword)
			}
		}
	}
	return found, categories
}

// riskScore applies the additive point table and clamps the result to
// [0, max_score].
func (e *Enricher) riskScore(item models.Listing, mean float64, categories map[string]bool, textLower string, sellerCount int) int {
	scoring := e.config.Risk.Scoring
	score := 0

	critical, general := false, false
	for name := range categories {
		if strings.HasPrefix(name, "CRITICAL") {
			critical = true
		} else {
			general = true
		}
	}
	if critical {
		score += scoring.CriticalCategory
	}
	if general {
		score += scoring.GeneralCategory
	}

	if mean > 0 {
		if price, ok := item.Price(); ok && price > 0 {
			switch {
			case price < mean*scoring.DeepDiscountRatio:
				score += scoring.DeepDiscount
			case price < mean*scoring.ModerateDiscountRatio:
				score += scoring.ModerateDiscount
			}

			// A suspiciously low price next to "like new" wording is its
			// own signal, on top of the discount tier.
			if price < mean*scoring.ConditionMismatchRatio {
				for _, kw := range e.config.Risk.ConditionKeywords {
					if strings.Contains(textLower, strings.ToLower(kw)) {
						score += scoring.ConditionMismatch
						break
					}
				}
			}
		}
	}

	if n := utf8.RuneCountInString(item.Description()); n > 0 && n < scoring.ShortDescriptionLength {
		score += scoring.ShortDescription
	}

	if sellerCount > scoring.ProlificSellerMinItems {
		score += scoring.ProlificSeller
	}

	if item.ImageCount() == 0 {
		score += scoring.NoImages
	}

	// Listings pinned to the search reference coordinate most likely never
	// set a real location.
	if lat, lon, ok := item.Coordinates(); ok && lat == e.config.Search.Latitude && lon == e.config.Search.Longitude {
		score += scoring.GenericLocation
	}

	if score > scoring.MaxScore {
		score = scoring.MaxScore
	}
	if score < 0 {
		score = 0
	}
	return score
}

// batchPrices collects the positive prices of the batch.
func batchPrices(items []models.Listing) []float64 {
	prices := make([]float64, 0, len(items))
	for _, item := range items {
		if price, ok := item.Price(); ok && price > 0 {
			prices = append(prices, price)
		}
	}
	return prices
}

// sellerCardinality counts the listings per seller within the batch.
func sellerCardinality(items []models.Listing) map[string]int {
	counts := make(map[string]int)
	for _, item := range items {
		if seller := item.UserID(); seller != "" {
			counts[seller]++
		}
	}
	return counts
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
