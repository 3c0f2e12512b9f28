// Package gate implements the Gate.io USDT-futures codec.
package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/exchange"
	"perpspread-scanner/internal/normalizer"
)

const (
	// WSPublicURL is the Gate.io USDT futures websocket endpoint
	WSPublicURL = "wss://fx-ws.gateio.ws/v4/ws/usdt"

	restBaseURL = "https://api.gateio.ws"
)

// Codec encodes and decodes the futures.tickers channel
type Codec struct {
	client  *http.Client
	restURL string
	now     func() time.Time
}

// NewCodec creates a Gate codec
func NewCodec() *Codec {
	return &Codec{
		client:  &http.Client{Timeout: 10 * time.Second},
		restURL: restBaseURL,
		now:     time.Now,
	}
}

// New creates a ready-to-wire Gate adapter
func New() *exchange.Adapter {
	return exchange.NewAdapter(NewCodec(), exchange.Options{})
}

// Venue returns the Gate venue tag
func (c *Codec) Venue() exchange.Venue {
	return exchange.Gate
}

// URL returns the websocket endpoint
func (c *Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the Gate application-level ping
func (c *Codec) PingFrame() []byte {
	return []byte(`{"method":"ping"}`)
}

type subRequest struct {
	Time    int64    `json:"time"`
	Channel string   `json:"channel"`
	Event   string   `json:"event"`
	Payload []string `json:"payload"`
}

// SubscribeFrames encodes a single futures.tickers subscription carrying
// the whole symbol list. Gate has no wildcard subscription.
func (c *Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		return nil, exchange.ErrAllTickersUnsupported
	}

	payload, err := json.Marshal(subRequest{
		Time:    c.now().Unix(),
		Channel: "futures.tickers",
		Event:   "subscribe",
		Payload: symbols,
	})
	if err != nil {
		return nil, err
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for i, symbol := range symbols {
		f := exchange.SubFrame{Symbol: symbol}
		if i == 0 {
			f.Payload = payload
		}
		frames = append(frames, f)
	}
	return frames, nil
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Event   string          `json:"event"`
	TimeMs  int64           `json:"time_ms"`
	Result  json.RawMessage `json:"result"` // array on updates, object on acks
}

// Decode parses a futures.tickers update frame
func (c *Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("gate: parse frame: %w", err)
	}

	if msg.Channel != "futures.tickers" || msg.Event != "update" {
		return nil, nil
	}

	var entries []struct {
		Contract string `json:"contract"`
		Last     string `json:"last"`
	}
	if err := json.Unmarshal(msg.Result, &entries); err != nil {
		return nil, fmt.Errorf("gate: parse tickers: %w", err)
	}

	tickers := make([]exchange.Ticker, 0, len(entries))
	for _, e := range entries {
		price, err := strconv.ParseFloat(e.Last, 64)
		if err != nil {
			return nil, fmt.Errorf("gate: parse last %q: %w", e.Last, err)
		}
		tickers = append(tickers, exchange.Ticker{
			Symbol:       e.Contract,
			Price:        price,
			Timestamp:    float64(msg.TimeMs) / 1000,
			HasTimestamp: msg.TimeMs > 0,
		})
	}
	return tickers, nil
}

// DepositWithdrawStatus queries the public currency_chains endpoint and
// ORs per-chain statuses for the symbol's base token
func (c *Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	base := normalizer.BaseToken(normalizer.Canonical("GATE", symbol))
	url := fmt.Sprintf("%s/api/v4/wallet/currency_chains?currency=%s", c.restURL, base)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("currency", base).Msg("Gate deposit/withdraw status fetch failed")
		return false, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Error().Int("status", resp.StatusCode).Str("currency", base).Msg("Gate deposit/withdraw status error")
		return false, false
	}

	var chains []struct {
		IsDepositDisabled  int `json:"is_deposit_disabled"`
		IsWithdrawDisabled int `json:"is_withdraw_disabled"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&chains); err != nil {
		return false, false
	}

	var deposit, withdraw bool
	for _, chain := range chains {
		if chain.IsDepositDisabled == 0 {
			deposit = true
		}
		if chain.IsWithdrawDisabled == 0 {
			withdraw = true
		}
		if deposit && withdraw {
			break
		}
	}
	return deposit, withdraw
}

// LastPrice fetches the latest futures trade price via REST. Returns 0
// on failure.
func (c *Codec) LastPrice(ctx context.Context, symbol string) float64 {
	url := fmt.Sprintf("%s/api/v4/futures/usdt/tickers?contract=%s", c.restURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Gate price fetch failed")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var body []struct {
		Last string `json:"last"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body) == 0 {
		return 0
	}
	price, _ := strconv.ParseFloat(body[0].Last, 64)
	return price
}
