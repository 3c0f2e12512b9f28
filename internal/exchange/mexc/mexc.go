// Package mexc implements the MEXC perpetual-futures codec.
package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/credentials"
	"perpspread-scanner/internal/exchange"
	"perpspread-scanner/internal/normalizer"
)

const (
	// WSPublicURL is the contract market data endpoint
	WSPublicURL = "wss://contract.mexc.com/edge"

	spotBaseURL     = "https://api.mexc.com"
	contractBaseURL = "https://contract.mexc.com"
)

// Codec encodes and decodes the MEXC futures ticker stream
type Codec struct {
	creds       credentials.Credentials
	client      *http.Client
	spotURL     string
	contractURL string
}

// NewCodec creates a MEXC codec. Credentials are only needed for the
// deposit/withdraw status call; a zero value degrades to (false, false).
func NewCodec(creds credentials.Credentials) *Codec {
	return &Codec{
		creds:       creds,
		client:      &http.Client{Timeout: 10 * time.Second},
		spotURL:     spotBaseURL,
		contractURL: contractBaseURL,
	}
}

// New creates a ready-to-wire MEXC adapter
func New(creds credentials.Credentials) *exchange.Adapter {
	return exchange.NewAdapter(NewCodec(creds), exchange.Options{})
}

// Venue returns the MEXC venue tag
func (c *Codec) Venue() exchange.Venue {
	return exchange.MEXC
}

// URL returns the websocket endpoint
func (c *Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the MEXC application-level ping
func (c *Codec) PingFrame() []byte {
	return []byte(`{"method":"ping"}`)
}

type subRequest struct {
	Method string         `json:"method"`
	Param  map[string]any `json:"param"`
}

// SubscribeFrames encodes sub.tickers frames. A nil symbol list
// subscribes to the all-tickers channel.
func (c *Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		payload, err := json.Marshal(subRequest{Method: "sub.tickers", Param: map[string]any{}})
		if err != nil {
			return nil, err
		}
		return []exchange.SubFrame{{Payload: payload}}, nil
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for _, symbol := range symbols {
		payload, err := json.Marshal(subRequest{
			Method: "sub.tickers",
			Param:  map[string]any{"symbol": symbol},
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, exchange.SubFrame{Payload: payload, Symbol: symbol})
	}
	return frames, nil
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
	Ts      int64           `json:"ts"` // ms
}

type wsTicker struct {
	Symbol    string  `json:"symbol"`
	LastPrice float64 `json:"lastPrice"`
}

// Decode parses a push.tickers frame. Pongs and subscription acks
// (data == "success") decode to nothing.
func (c *Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("mexc: parse frame: %w", err)
	}

	if msg.Channel == "pong" {
		return nil, nil
	}
	var ack string
	if json.Unmarshal(msg.Data, &ack) == nil && ack == "success" {
		return nil, nil
	}
	if msg.Channel != "push.tickers" {
		return nil, nil
	}

	var entries []wsTicker
	if err := json.Unmarshal(msg.Data, &entries); err != nil {
		return nil, fmt.Errorf("mexc: parse tickers: %w", err)
	}

	tickers := make([]exchange.Ticker, 0, len(entries))
	for _, e := range entries {
		tickers = append(tickers, exchange.Ticker{
			Symbol:       e.Symbol,
			Price:        e.LastPrice,
			Timestamp:    float64(msg.Ts) / 1000,
			HasTimestamp: msg.Ts > 0,
		})
	}
	return tickers, nil
}

// DepositWithdrawStatus checks the authenticated capital config endpoint
// and ORs chain statuses for the symbol's base token. Missing
// credentials or any request failure report (false, false).
func (c *Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	if !c.creds.Configured() {
		log.Warn().Str("exchange", "MEXC").Msg("API credentials not configured, reporting deposits/withdrawals closed")
		return false, false
	}

	coins, err := c.capitalConfig(ctx)
	if err != nil {
		log.Error().Err(err).Str("exchange", "MEXC").Msg("Deposit/withdraw status fetch failed")
		return false, false
	}

	return coinStatus(coins, symbol)
}

// TokenExists probes the spot ticker endpoint to check the symbol is
// tradable on MEXC. Error code -1121 means an invalid symbol.
func (c *Codec) TokenExists(ctx context.Context, symbol string) bool {
	url := fmt.Sprintf("%s/api/v3/ticker/price?symbol=%s", c.spotURL, normalizer.Canonical("MEXC", symbol))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("MEXC token existence check failed")
		return false
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			Price string `json:"price"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Price != "" {
			return true
		}
		return false
	case http.StatusBadRequest:
		var body struct {
			Code int `json:"code"`
		}
		if json.NewDecoder(resp.Body).Decode(&body) == nil && body.Code == -1121 {
			return false
		}
	}

	log.Warn().Str("symbol", symbol).Int("status", resp.StatusCode).Msg("MEXC token check inconclusive")
	return false
}

// LastPrice fetches the contract last-trade price for a venue-native
// symbol (e.g. BTC_USDT). Returns 0 on failure.
func (c *Codec) LastPrice(ctx context.Context, symbol string) float64 {
	url := fmt.Sprintf("%s/api/v1/contract/ticker?symbol=%s", c.contractURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("MEXC price fetch failed")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var body struct {
		Data struct {
			LastPrice float64 `json:"lastPrice"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0
	}
	return body.Data.LastPrice
}
