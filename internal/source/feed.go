package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wonny/trendscore/internal/contracts"
	"github.com/wonny/trendscore/pkg/httputil"
	"github.com/wonny/trendscore/pkg/logger"
)

// Feed fetches raw counters from the external analytics feed
// ⭐ SSOT: 외부 분석 피드 연동은 여기서만
type Feed struct {
	client  *httputil.Client
	baseURL string
	logger  *logger.Logger
}

// feedRecord is the wire format of one feed entry
type feedRecord struct {
	EntityID    int64    `json:"entity_id"`
	OrderCount  int64    `json:"order_count"`
	TotalPoints *float64 `json:"total_points"`
}

// NewFeed creates a new feed client. apiKey is sent as X-Api-Key when set.
func NewFeed(client *httputil.Client, baseURL, apiKey string, log *logger.Logger) *Feed {
	if apiKey != "" {
		client = client.WithHeader("X-Api-Key", apiKey)
	}
	return &Feed{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log.WithField("module", "feed"),
	}
}

// FetchRawStats GETs /v1/raw-stats?category=C&date=YYYY-MM-DD
func (f *Feed) FetchRawStats(ctx context.Context, category contracts.Category, date time.Time) ([]contracts.RawStat, error) {
	params := url.Values{}
	params.Set("category", category.String())
	params.Set("date", contracts.DateString(date))
	endpoint := fmt.Sprintf("%s/v1/raw-stats?%s", f.baseURL, params.Encode())

	resp, err := f.client.Get(ctx, endpoint)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, &contracts.SourceUnavailableError{Category: category, Date: date, Err: err}
	}
	defer resp.Body.Close()

	if httputil.IsRetryableError(resp.StatusCode) {
		return nil, &contracts.SourceUnavailableError{
			Category: category,
			Date:     date,
			Err:      fmt.Errorf("feed returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		// No data published for this date
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var records []feedRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &contracts.SourceUnavailableError{Category: category, Date: date, Err: fmt.Errorf("decode feed: %w", err)}
	}

	raws := make([]contracts.RawStat, 0, len(records))
	for _, r := range records {
		raws = append(raws, contracts.RawStat{
			EntityID:    r.EntityID,
			OrderCount:  r.OrderCount,
			TotalPoints: r.TotalPoints,
		})
	}

	f.logger.WithFields(map[string]interface{}{
		"category": category,
		"date":     contracts.DateString(date),
		"records":  len(raws),
	}).Debug("Fetched raw stats from feed")

	return raws, nil
}
