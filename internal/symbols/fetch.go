// Package symbols fetches the tradable-symbol catalog per venue at
// startup. Fetch failures are never fatal: a venue with no symbols
// simply contributes no subscriptions.
package symbols

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/exchange"
	"perpspread-scanner/internal/metrics"
)

// Fetcher resolves each venue's symbol list over HTTP
type Fetcher struct {
	client *http.Client

	bitgetURL string
	gateURL   string
	bybitURL  string
	okxURL    string
	lbankURL  string
}

// NewFetcher creates a fetcher against the production endpoints
func NewFetcher() *Fetcher {
	return &Fetcher{
		client:    &http.Client{Timeout: 15 * time.Second},
		bitgetURL: "https://api.bitget.com",
		gateURL:   "https://api.gateio.ws",
		bybitURL:  "https://api.bybit.com",
		okxURL:    "https://www.okx.com",
		lbankURL:  "https://api.lbkex.com",
	}
}

// FetchAll returns the venue-to-symbols catalog. A nil slice means
// "subscribe to everything the adapter knows how to request" (MEXC's
// all-tickers channel; BingX has neither a catalog endpoint nor a
// wildcard and ends up with no subscriptions).
func (f *Fetcher) FetchAll(ctx context.Context) map[exchange.Venue][]string {
	return map[exchange.Venue][]string{
		exchange.MEXC:   nil,
		exchange.Bitget: f.FetchBitget(ctx),
		exchange.Gate:   f.FetchGate(ctx),
		exchange.Bybit:  f.FetchBybit(ctx),
		exchange.OKX:    f.FetchOKX(ctx),
		exchange.LBank:  f.FetchLBank(ctx),
		exchange.BingX:  nil,
	}
}

// FetchBitget lists USDT-margined contracts as BASE_QUOTE pairs
func (f *Fetcher) FetchBitget(ctx context.Context) []string {
	var body struct {
		Code string `json:"code"`
		Data []struct {
			BaseCoin  string `json:"baseCoin"`
			QuoteCoin string `json:"quoteCoin"`
		} `json:"data"`
	}
	url := f.bitgetURL + "/api/mix/v1/market/contracts?productType=umcbl"
	if err := f.getJSON(ctx, url, &body); err != nil {
		return f.fail(exchange.Bitget, err)
	}
	if body.Code != "00000" {
		return f.fail(exchange.Bitget, fmt.Errorf("api code %s", body.Code))
	}

	symbols := make([]string, 0, len(body.Data))
	for _, item := range body.Data {
		if item.BaseCoin == "" || item.QuoteCoin == "" {
			continue
		}
		symbols = append(symbols, item.BaseCoin+"_"+item.QuoteCoin)
	}
	return f.done(exchange.Bitget, symbols)
}

// FetchGate lists USDT futures contracts (BASE_QUOTE form)
func (f *Fetcher) FetchGate(ctx context.Context) []string {
	var body []struct {
		Name string `json:"name"`
	}
	url := f.gateURL + "/api/v4/futures/usdt/contracts"
	if err := f.getJSON(ctx, url, &body); err != nil {
		return f.fail(exchange.Gate, err)
	}

	symbols := make([]string, 0, len(body))
	for _, item := range body {
		if item.Name == "" {
			continue
		}
		symbols = append(symbols, item.Name)
	}
	return f.done(exchange.Gate, symbols)
}

// FetchBybit lists linear tickers (BASEQUOTE form)
func (f *Fetcher) FetchBybit(ctx context.Context) []string {
	var body struct {
		Result struct {
			List []struct {
				Symbol string `json:"symbol"`
			} `json:"list"`
		} `json:"result"`
	}
	url := f.bybitURL + "/v5/market/tickers?category=linear"
	if err := f.getJSON(ctx, url, &body); err != nil {
		return f.fail(exchange.Bybit, err)
	}

	symbols := make([]string, 0, len(body.Result.List))
	for _, item := range body.Result.List {
		if item.Symbol == "" {
			continue
		}
		symbols = append(symbols, item.Symbol)
	}
	return f.done(exchange.Bybit, symbols)
}

// FetchOKX lists swap instruments (BASE-QUOTE-SWAP form)
func (f *Fetcher) FetchOKX(ctx context.Context) []string {
	var body struct {
		Data []struct {
			InstID string `json:"instId"`
		} `json:"data"`
	}
	url := f.okxURL + "/api/v5/public/mark-price?instType=SWAP"
	if err := f.getJSON(ctx, url, &body); err != nil {
		return f.fail(exchange.OKX, err)
	}

	symbols := make([]string, 0, len(body.Data))
	for _, item := range body.Data {
		if item.InstID == "" {
			continue
		}
		symbols = append(symbols, item.InstID)
	}
	return f.done(exchange.OKX, symbols)
}

// FetchLBank lists currency pairs (base_quote form)
func (f *Fetcher) FetchLBank(ctx context.Context) []string {
	var body struct {
		Data []string `json:"data"`
	}
	url := f.lbankURL + "/v2/currencyPairs.do"
	if err := f.getJSON(ctx, url, &body); err != nil {
		return f.fail(exchange.LBank, err)
	}
	return f.done(exchange.LBank, body.Data)
}

func (f *Fetcher) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (f *Fetcher) fail(venue exchange.Venue, err error) []string {
	log.Error().Err(err).Str("exchange", string(venue)).Msg("Catalog fetch failed")
	metrics.CatalogFetchErrors.WithLabelValues(string(venue)).Inc()
	return []string{}
}

func (f *Fetcher) done(venue exchange.Venue, symbols []string) []string {
	log.Info().Str("exchange", string(venue)).Int("symbols", len(symbols)).Msg("Catalog fetched")
	metrics.CatalogSymbols.WithLabelValues(string(venue)).Set(float64(len(symbols)))
	return symbols
}
