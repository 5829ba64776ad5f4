package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"CoinPulse/internal/model"
)

const requestTimeout = 10 * time.Second

// CoinGeckoClient implements Client against the CoinGecko REST API.
type CoinGeckoClient struct {
	baseURL  string
	currency string
	client   *http.Client
	limiter  *rate.Limiter
	log      *zap.Logger
}

// NewCoinGeckoClient creates a client with a bounded per-request timeout and
// a conservative rate limit for the free API tier.
func NewCoinGeckoClient(baseURL, currency, proxyURL string, log *zap.Logger) *CoinGeckoClient {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CoinGeckoClient{
		baseURL:  baseURL,
		currency: currency,
		client: &http.Client{
			Timeout:   requestTimeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(rate.Every(150*time.Millisecond), 10),
		log:     log,
	}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// marketRow is one element of the /coins/markets response.
type marketRow struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Symbol        string   `json:"symbol"`
	Image         string   `json:"image"`
	CurrentPrice  float64  `json:"current_price"`
	MarketCap     float64  `json:"market_cap"`
	MarketCapRank *int     `json:"market_cap_rank"`
	TotalVolume   float64  `json:"total_volume"`
	Change24h     *float64 `json:"price_change_percentage_24h"`
	Sparkline     *struct {
		Price []float64 `json:"price"`
	} `json:"sparkline_in_7d"`
}

// Snapshot fetches one ranked page of the market. Malformed payloads and
// non-200 statuses are TransportErrors; the caller does not retry within a
// cycle.
func (c *CoinGeckoClient) Snapshot(ctx context.Context, order model.SortOrder, pageSize int) ([]model.AssetSnapshot, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("order", string(order))
	q.Set("per_page", strconv.Itoa(pageSize))
	q.Set("page", "1")
	q.Set("sparkline", "true")
	q.Set("price_change_percentage", "24h")

	body, err := c.get(ctx, "/coins/markets", q)
	if err != nil {
		return nil, &TransportError{Op: "snapshot", Err: err}
	}

	var rows []marketRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, &TransportError{Op: "snapshot", Err: errors.Wrap(err, "decode")}
	}

	snaps := make([]model.AssetSnapshot, 0, len(rows))
	for i, r := range rows {
		rank := i + 1 // provider may omit the rank; fall back to list position
		if r.MarketCapRank != nil && *r.MarketCapRank > 0 {
			rank = *r.MarketCapRank
		}
		snap := model.AssetSnapshot{
			ID:        r.ID,
			Name:      r.Name,
			Symbol:    r.Symbol,
			Image:     r.Image,
			Rank:      rank,
			Price:     r.CurrentPrice,
			MarketCap: r.MarketCap,
			Volume24h: r.TotalVolume,
			Change24h: r.Change24h,
		}
		if r.Sparkline != nil {
			snap.Sparkline7d = r.Sparkline.Price
		}
		snaps = append(snaps, snap)
	}
	return snaps, nil
}

// chartResponse is the /coins/{id}/market_chart response; prices are
// [timestampMs, price] pairs.
type chartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// History fetches the daily closing series for one asset. An empty but
// well-formed prices array yields an empty series, not an error.
func (c *CoinGeckoClient) History(ctx context.Context, assetID string, lookbackDays int) (model.HistorySeries, error) {
	q := url.Values{}
	q.Set("vs_currency", c.currency)
	q.Set("days", strconv.Itoa(lookbackDays))
	q.Set("interval", "daily")

	path := fmt.Sprintf("/coins/%s/market_chart", url.PathEscape(assetID))
	body, err := c.get(ctx, path, q)
	if err != nil {
		return nil, &TransportError{Op: "history " + assetID, Err: err}
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, &TransportError{Op: "history " + assetID, Err: errors.Wrap(err, "decode")}
	}

	sort.Slice(chart.Prices, func(i, j int) bool { return chart.Prices[i][0] < chart.Prices[j][0] })
	series := make(model.HistorySeries, 0, len(chart.Prices))
	for _, p := range chart.Prices {
		series = append(series, p[1])
	}
	return series, nil
}

func (c *CoinGeckoClient) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("status %d: %s", resp.StatusCode, string(body))
	}
	c.log.Debug("provider request", zap.String("path", path), zap.Int("bytes", len(body)))
	return body, nil
}
