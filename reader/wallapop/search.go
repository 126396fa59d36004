package wallapop

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"wallaflow/config"
	"wallaflow/logger"
	"wallaflow/models"
)

// SearchReader pulls paginated search results from the marketplace search
// API. One reader serves all queries of a run and shares a single HTTP
// client and inter-page limiter.
type SearchReader struct {
	config  *config.Config
	client  *http.Client
	log     *logger.Log
	limiter *rate.Limiter
}

// NewSearchReader creates a SearchReader with the configured connection
// pool, request timeout and page throttle.
func NewSearchReader(cfg *config.Config) *SearchReader {
	log := logger.GetLogger()

	pool := cfg.Reader.ConnectionPool
	transport := &http.Transport{
		MaxIdleConns:        pool.MaxIdleConns,
		MaxIdleConnsPerHost: pool.MaxIdleConns,
		MaxConnsPerHost:     pool.MaxConnsPerHost,
		IdleConnTimeout:     time.Duration(pool.IdleConnTimeoutMs) * time.Millisecond,
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Reader.Timeout(),
	}

	delay := cfg.Search.PageDelay()
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	log.WithComponent("wallapop_reader").WithFields(logger.Fields{
		"max_idle_conns":     pool.MaxIdleConns,
		"max_conns_per_host": pool.MaxConnsPerHost,
		"timeout":            cfg.Reader.Timeout(),
		"page_delay":         delay,
	}).Info("search reader initialized")

	return &SearchReader{
		config:  cfg,
		client:  client,
		log:     log,
		limiter: limiter,
	}
}

// searchResponse mirrors the nested payload path of the search API.
type searchResponse struct {
	Data struct {
		Section struct {
			Payload struct {
				Items []models.Listing `json:"items"`
			} `json:"payload"`
		} `json:"section"`
	} `json:"data"`
}

// FetchAll walks the paginated results for one query until the API reports
// a short or empty page. On any transport or decode failure it returns
// whatever was accumulated so far together with the error, so the caller
// can tell "no more pages" from "request failed". No retries.
func (r *SearchReader) FetchAll(ctx context.Context, query config.SearchQuery) ([]models.Listing, error) {
	log := r.log.WithComponent("wallapop_reader").WithFields(logger.Fields{
		"keywords":    query.Keywords,
		"category_id": query.CategoryID,
	})

	pageSize := r.config.Search.PageSize
	var all []models.Listing
	offset := 0

	for page := 1; ; page++ {
		if err := r.limiter.Wait(ctx); err != nil {
			return all, err
		}

		items, err := r.fetchPage(ctx, query, offset)
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"page": page, "offset": offset}).Warn("pagination aborted")
			return all, err
		}
		if len(items) == 0 {
			break
		}

		all = append(all, items...)
		logger.IncrementPageRead(len(items))
		logger.LogDataFlowEntry(log, "wallapop_api", "run_batch", len(items), "listings")

		if len(items) < pageSize {
			break
		}
		offset += pageSize
	}

	log.WithFields(logger.Fields{"listings": len(all)}).Info("pagination complete")
	return all, nil
}

// fetchPage issues a single search request at the given offset.
func (r *SearchReader) fetchPage(ctx context.Context, query config.SearchQuery, offset int) ([]models.Listing, error) {
	search := r.config.Search

	params := url.Values{}
	params.Set("source", search.Source)
	params.Set("keywords", query.Keywords)
	params.Set("category_id", query.CategoryID)
	params.Set("latitude", search.Latitude)
	params.Set("longitude", search.Longitude)
	params.Set("time_filter", search.TimeFilter)
	params.Set("order_by", search.OrderBy)
	params.Set("offset", strconv.Itoa(offset))
	params.Set("limit", strconv.Itoa(search.PageSize))
	if search.DistanceKM > 0 {
		params.Set("distance_in_km", strconv.Itoa(search.DistanceKM))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, search.URL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	for k, v := range r.config.Reader.Headers {
		// The Host header lives on the request, not in the header map.
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}

	var decoded searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return decoded.Data.Section.Payload.Items, nil
}
