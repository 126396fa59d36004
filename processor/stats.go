package processor

import (
	"math"
	"sort"

	"wallaflow/logger"
	"wallaflow/models"
)

// Risk buckets reported after every run.
const (
	highRiskThreshold   = 70
	mediumRiskThreshold = 40
)

// Summary holds the aggregate descriptive statistics of one enriched
// batch.
type Summary struct {
	Listings int

	PricedCount int
	PriceMin    float64
	PriceMax    float64
	PriceMean   float64
	PriceMedian float64
	PriceStdDev float64

	RiskMin  int
	RiskMax  int
	RiskMean float64

	HighRisk   int
	MediumRisk int
	LowRisk    int
}

// Summarize computes the run statistics over an enriched batch.
func Summarize(items []models.EnrichedListing) Summary {
	s := Summary{Listings: len(items)}
	if len(items) == 0 {
		return s
	}

	prices := make([]float64, 0, len(items))
	for _, item := range items {
		if price, ok := item.Price(); ok && price > 0 {
			prices = append(prices, price)
		}
	}
	s.PricedCount = len(prices)
	if len(prices) > 0 {
		sort.Float64s(prices)
		s.PriceMin = prices[0]
		s.PriceMax = prices[len(prices)-1]
		s.PriceMean = meanOf(prices)
		s.PriceMedian = medianOf(prices)
		if len(prices) > 1 {
			s.PriceStdDev = stdDevOf(prices, s.PriceMean)
		}
	}

	s.RiskMin = items[0].Enrichment.RiskScore
	s.RiskMax = items[0].Enrichment.RiskScore
	riskSum := 0
	for _, item := range items {
		score := item.Enrichment.RiskScore
		riskSum += score
		if score < s.RiskMin {
			s.RiskMin = score
		}
		if score > s.RiskMax {
			s.RiskMax = score
		}
		switch {
		case score >= highRiskThreshold:
			s.HighRisk++
		case score >= mediumRiskThreshold:
			s.MediumRisk++
		default:
			s.LowRisk++
		}
	}
	s.RiskMean = float64(riskSum) / float64(len(items))

	return s
}

// Fields renders the summary for the structured logger.
func (s Summary) Fields() logger.Fields {
	return logger.Fields{
		"listings":     s.Listings,
		"priced":       s.PricedCount,
		"price_min":    s.PriceMin,
		"price_max":    s.PriceMax,
		"price_mean":   s.PriceMean,
		"price_median": s.PriceMedian,
		"price_stddev": s.PriceStdDev,
		"risk_min":     s.RiskMin,
		"risk_max":     s.RiskMax,
		"risk_mean":    s.RiskMean,
		"risk_high":    s.HighRisk,
		"risk_medium":  s.MediumRisk,
		"risk_low":     s.LowRisk,
	}
}

// medianOf expects values to be sorted.
func medianOf(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return values[n/2]
	}
	return (values[n/2-1] + values[n/2]) / 2
}

// stdDevOf is the sample standard deviation; callers guard len > 1.
func stdDevOf(values []float64, mean float64) float64 {
	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
