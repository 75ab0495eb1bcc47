// Package market implements domain.MarketDataProvider on top of the Yahoo Finance chart API.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/net/publicsuffix"

	"github.com/simaogato/wealthwise-backend/internal/domain"
)

const (
	// DefaultBaseURL is the Yahoo chart endpoint host
	DefaultBaseURL = "https://query2.finance.yahoo.com"

	// ProviderName is stored as the source of every bar this provider returns
	ProviderName = "yahoo"

	defaultTimeout   = 20 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

	// pricePlaces is the precision kept when converting the API's floats
	pricePlaces = 6
)

// Config configures the Yahoo client
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// YahooProvider fetches daily bars and quotes from the Yahoo chart API
type YahooProvider struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
	now        func() time.Time
}

// NewYahooProvider creates a Yahoo client with a cookie jar so that consent
// cookies set by Yahoo are replayed on later requests.
func NewYahooProvider(cfg Config, logger *slog.Logger) (*YahooProvider, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &YahooProvider{
		httpClient: &http.Client{Jar: jar, Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// Name implements domain.MarketDataProvider
func (p *YahooProvider) Name() string {
	return ProviderName
}

// chartResponse mirrors the parts of /v8/finance/chart we read.
// Indicator arrays contain nulls for days without trading data.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol               string   `json:"symbol"`
				GMTOffset            int64    `json:"gmtoffset"`
				RegularMarketPrice   *float64 `json:"regularMarketPrice"`
				RegularMarketDayHigh *float64 `json:"regularMarketDayHigh"`
				RegularMarketDayLow  *float64 `json:"regularMarketDayLow"`
				RegularMarketVolume  *int64   `json:"regularMarketVolume"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetHistoricalBars returns the daily bars of the last lookbackDays days.
// Days where Yahoo reports no close are skipped.
func (p *YahooProvider) GetHistoricalBars(ctx context.Context, symbol string, lookbackDays int) ([]domain.DailyBar, error) {
	symbol = domain.NormalizeSymbol(symbol)
	if lookbackDays <= 0 {
		lookbackDays = 1
	}

	end := p.now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("period1", strconv.FormatInt(start.Unix(), 10))
	params.Set("period2", strconv.FormatInt(end.Unix(), 10))
	params.Set("events", "history")

	payload, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	result := payload.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return []domain.DailyBar{}, nil
	}
	quote := result.Indicators.Quote[0]

	bars := make([]domain.DailyBar, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		closePrice := floatAt(quote.Close, i)
		if closePrice == nil {
			continue
		}

		// Timestamps are the exchange open; shift by the exchange offset to get its calendar day
		day := domain.DateOf(time.Unix(ts+result.Meta.GMTOffset, 0).UTC())

		bar := domain.DailyBar{
			Symbol: symbol,
			Date:   day,
			Open:   toDecimal(floatAt(quote.Open, i)),
			High:   toDecimal(floatAt(quote.High, i)),
			Low:    toDecimal(floatAt(quote.Low, i)),
			Close:  toDecimal(closePrice),
			Source: ProviderName,
		}
		if i < len(quote.Volume) && quote.Volume[i] != nil {
			bar.Volume = *quote.Volume[i]
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// GetQuote returns the latest regular market price for a symbol.
// The chart meta carries no opening price, so Quote.Open is left zero.
func (p *YahooProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = domain.NormalizeSymbol(symbol)

	params := url.Values{}
	params.Set("interval", "1d")
	params.Set("range", "1d")

	payload, err := p.fetchChart(ctx, symbol, params)
	if err != nil {
		return nil, err
	}

	meta := payload.Chart.Result[0].Meta
	if meta.RegularMarketPrice == nil || *meta.RegularMarketPrice <= 0 {
		return nil, fmt.Errorf("failed to get quote for %s: no market price in response", symbol)
	}

	quote := &domain.Quote{
		Symbol: symbol,
		Price:  toDecimal(meta.RegularMarketPrice),
		High:   toDecimal(meta.RegularMarketDayHigh),
		Low:    toDecimal(meta.RegularMarketDayLow),
	}
	if meta.RegularMarketVolume != nil {
		quote.Volume = *meta.RegularMarketVolume
	}

	return quote, nil
}

// fetchChart calls the chart endpoint and returns a payload with at least one result.
// Unknown symbols yield domain.ErrSymbolNotFound.
func (p *YahooProvider) fetchChart(ctx context.Context, symbol string, params url.Values) (*chartResponse, error) {
	if symbol == "" {
		return nil, fmt.Errorf("failed to fetch chart: empty symbol: %w", domain.ErrSymbolNotFound)
	}

	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", p.baseURL, url.PathEscape(symbol), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart request for %s: %w", symbol, err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, domain.ErrSymbolNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to fetch chart for %s: status %d: %s", symbol, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode chart for %s: %w", symbol, err)
	}

	if payload.Chart.Error != nil {
		if strings.EqualFold(payload.Chart.Error.Code, "Not Found") {
			return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, domain.ErrSymbolNotFound)
		}
		return nil, fmt.Errorf("failed to fetch chart for %s: %s: %s", symbol, payload.Chart.Error.Code, payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("failed to fetch chart for %s: %w", symbol, domain.ErrSymbolNotFound)
	}

	p.logger.Debug("fetched chart", "symbol", symbol, "points", len(payload.Chart.Result[0].Timestamp))
	return &payload, nil
}

func floatAt(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}

func toDecimal(v *float64) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromFloat(*v).Round(pricePlaces)
}
