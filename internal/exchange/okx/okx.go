// Package okx implements the OKX swap-tickers codec.
package okx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/exchange"
)

const (
	// WSPublicURL is the OKX v5 public websocket endpoint
	WSPublicURL = "wss://ws.okx.com:8443/ws/v5/public"

	restBaseURL = "https://www.okx.com"
)

// Codec encodes and decodes the OKX tickers channel
type Codec struct {
	client  *http.Client
	restURL string
}

// NewCodec creates an OKX codec
func NewCodec() *Codec {
	return &Codec{
		client:  &http.Client{Timeout: 10 * time.Second},
		restURL: restBaseURL,
	}
}

// New creates a ready-to-wire OKX adapter
func New() *exchange.Adapter {
	return exchange.NewAdapter(NewCodec(), exchange.Options{})
}

// Venue returns the OKX venue tag
func (c *Codec) Venue() exchange.Venue {
	return exchange.OKX
}

// URL returns the websocket endpoint
func (c *Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the OKX op-style ping
func (c *Codec) PingFrame() []byte {
	return []byte(`{"op":"ping"}`)
}

type subArg struct {
	Channel string `json:"channel"`
	InstID  string `json:"instId"`
}

type subRequest struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

// SubscribeFrames encodes one tickers subscription per instrument. OKX
// has no all-tickers channel.
func (c *Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		return nil, exchange.ErrAllTickersUnsupported
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for _, symbol := range symbols {
		payload, err := json.Marshal(subRequest{
			Op:   "subscribe",
			Args: []subArg{{Channel: "tickers", InstID: symbol}},
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, exchange.SubFrame{Payload: payload, Symbol: symbol})
	}
	return frames, nil
}

type wsMessage struct {
	Event string `json:"event"`
	Arg   struct {
		Channel string `json:"channel"`
	} `json:"arg"`
	Data []struct {
		InstID string `json:"instId"`
		Last   string `json:"last"`
		Ts     string `json:"ts"` // ms
	} `json:"data"`
}

// Decode parses a tickers channel frame. Event frames (subscribe acks,
// errors) decode to nothing.
func (c *Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("okx: parse frame: %w", err)
	}

	if msg.Event != "" || msg.Arg.Channel != "tickers" {
		return nil, nil
	}

	tickers := make([]exchange.Ticker, 0, len(msg.Data))
	for _, e := range msg.Data {
		price, err := strconv.ParseFloat(e.Last, 64)
		if err != nil {
			return nil, fmt.Errorf("okx: parse last %q: %w", e.Last, err)
		}
		tsMillis, _ := strconv.ParseInt(e.Ts, 10, 64)
		tickers = append(tickers, exchange.Ticker{
			Symbol:       e.InstID,
			Price:        price,
			Timestamp:    float64(tsMillis) / 1000,
			HasTimestamp: tsMillis > 0,
		})
	}
	return tickers, nil
}

// DepositWithdrawStatus is not gated on OKX swap listings
func (c *Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	return true, true
}

// LastPrice fetches the latest trade price via REST. Returns 0 on failure.
func (c *Codec) LastPrice(ctx context.Context, symbol string) float64 {
	url := fmt.Sprintf("%s/api/v5/market/ticker?instId=%s", c.restURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("OKX price fetch failed")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var body struct {
		Data []struct {
			Last string `json:"last"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Data) == 0 {
		return 0
	}
	price, _ := strconv.ParseFloat(body.Data[0].Last, 64)
	return price
}
