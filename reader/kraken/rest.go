package kraken

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	appconfig "krakenflow/config"
	"krakenflow/internal/symbols"
	"krakenflow/logger"
	"krakenflow/models"
	"krakenflow/models/rest"
)

// RestClient calls the public Kraken REST endpoints.
type RestClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        *logger.Log
}

func NewRestClient(cfg *appconfig.Config, localIP string) *RestClient {
	rc := cfg.Source.Kraken.Rest
	rps := cfg.Reader.RateLimit.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	burst := cfg.Reader.RateLimit.BurstSize
	if burst <= 0 {
		burst = 1
	}
	return &RestClient{
		baseURL:    rc.BaseURL,
		httpClient: newHTTPClient(localIP, rc.UserAgent, rc.Timeout),
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		log:        logger.GetLogger(),
	}
}

func (c *RestClient) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	logger.IncrementRestCall(endpoint, len(body))
	logger.LogPerformanceEntry(c.log.WithComponent("kraken_rest"), "kraken_rest", endpoint, time.Since(start), logger.Fields{
		"status": resp.StatusCode,
		"bytes":  len(body),
	})

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned status %d", endpoint, resp.StatusCode)
	}
	return body, nil
}

// AssetPairs lists the tradable pairs without dark pool entries.
func (c *RestClient) AssetPairs(ctx context.Context) (*rest.AssetPairsResult, error) {
	body, err := c.get(ctx, "AssetPairs", rest.AssetPairsURL(c.baseURL))
	if err != nil {
		return nil, err
	}
	res, err := rest.Decode[rest.AssetPairsResult](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AssetPairs: %w", err)
	}
	if len(res.Skipped) > 0 {
		c.log.WithComponent("kraken_rest").WithFields(logger.Fields{"skipped": res.Skipped}).Warn("undecodable asset pairs skipped")
	}
	return res, nil
}

// TradeHistory fetches one page of trades.
func (c *RestClient) TradeHistory(ctx context.Context, req rest.TradeHistoryRequest) (*rest.TradeHistoryResult, error) {
	body, err := c.get(ctx, "Trades", req.URL(c.baseURL))
	if err != nil {
		return nil, err
	}
	res, err := rest.Decode[rest.TradeHistoryResult](body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode Trades for %s: %w", req.Pair, err)
	}
	// the result is keyed by the legacy name, e.g. XXBTZUSD for XBT/USD
	if got, want := symbols.Normalize("kraken", res.Data.Pair), symbols.Normalize("kraken", symbols.ToRest(req.Pair)); got != want {
		return nil, fmt.Errorf("unexpected pair %s in Trades for %s", res.Data.Pair, req.Pair)
	}
	return res, nil
}

// TradeHistoryPager walks trade pages by feeding each page's "last" cursor
// into the next request.
type TradeHistoryPager struct {
	client   *RestClient
	req      rest.TradeHistoryRequest
	maxPages int
	pages    int
	done     bool
}

// NewTradeHistoryPager stops after maxPages pages. maxPages <= 0 walks until
// a page comes back empty.
func (c *RestClient) NewTradeHistoryPager(pair models.CurrencyPair, since time.Time, maxPages int) *TradeHistoryPager {
	req := rest.NewTradeHistoryRequest(pair)
	if !since.IsZero() {
		req = req.WithSince(since)
	}
	return &TradeHistoryPager{client: c, req: req, maxPages: maxPages}
}

// Next returns the next page, or io.EOF when the walk is over.
func (p *TradeHistoryPager) Next(ctx context.Context) (*rest.TradeHistoryResult, error) {
	if p.done || (p.maxPages > 0 && p.pages >= p.maxPages) {
		return nil, io.EOF
	}
	res, err := p.client.TradeHistory(ctx, p.req)
	if err != nil {
		return nil, err
	}
	p.pages++
	if len(res.Data.Trades) == 0 || res.Last == "" || res.Last == p.req.Cursor {
		p.done = true
	}
	p.req = p.req.WithCursor(res.Last)
	return res, nil
}

// Cursor is the "since" value the next page will be requested with.
func (p *TradeHistoryPager) Cursor() string { return p.req.Cursor }
