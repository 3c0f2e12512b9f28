// Package bybit implements the Bybit linear-perpetuals codec.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/exchange"
)

const (
	// WSPublicURL is the Bybit v5 linear public stream
	WSPublicURL = "wss://stream.bybit.com/v5/public/linear"

	restBaseURL = "https://api.bybit.com"
)

// Codec encodes and decodes the Bybit tickers topic. Bybit ticker
// frames carry no server timestamp; the session substitutes wall clock
// at receipt.
type Codec struct {
	client  *http.Client
	restURL string
}

// NewCodec creates a Bybit codec
func NewCodec() *Codec {
	return &Codec{
		client:  &http.Client{Timeout: 10 * time.Second},
		restURL: restBaseURL,
	}
}

// New creates a ready-to-wire Bybit adapter
func New() *exchange.Adapter {
	return exchange.NewAdapter(NewCodec(), exchange.Options{})
}

// Venue returns the Bybit venue tag
func (c *Codec) Venue() exchange.Venue {
	return exchange.Bybit
}

// URL returns the websocket endpoint
func (c *Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the Bybit op-style ping
func (c *Codec) PingFrame() []byte {
	return []byte(`{"op":"ping"}`)
}

type subRequest struct {
	Op   string   `json:"op"`
	Args []string `json:"args"`
}

// SubscribeFrames encodes one tickers.<symbol> subscription per symbol.
// Bybit has no all-tickers channel on the public linear stream.
func (c *Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		return nil, exchange.ErrAllTickersUnsupported
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for _, symbol := range symbols {
		payload, err := json.Marshal(subRequest{
			Op:   "subscribe",
			Args: []string{"tickers." + symbol},
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, exchange.SubFrame{Payload: payload, Symbol: symbol})
	}
	return frames, nil
}

type wsMessage struct {
	Topic string `json:"topic"`
	Data  struct {
		Symbol    string `json:"symbol"`
		LastPrice string `json:"lastPrice"`
	} `json:"data"`
}

// Decode parses a tickers topic frame. Ticker deltas may omit
// lastPrice; those frames decode to nothing.
func (c *Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("bybit: parse frame: %w", err)
	}

	if !strings.HasPrefix(msg.Topic, "tickers.") {
		return nil, nil
	}
	if msg.Data.LastPrice == "" {
		return nil, nil
	}

	price, err := strconv.ParseFloat(msg.Data.LastPrice, 64)
	if err != nil {
		return nil, fmt.Errorf("bybit: parse lastPrice %q: %w", msg.Data.LastPrice, err)
	}

	return []exchange.Ticker{{
		Symbol: msg.Data.Symbol,
		Price:  price,
	}}, nil
}

// DepositWithdrawStatus is not gated on Bybit linear listings
func (c *Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	return true, true
}

// LastPrice fetches the latest trade price via REST. Returns 0 on failure.
func (c *Codec) LastPrice(ctx context.Context, symbol string) float64 {
	url := fmt.Sprintf("%s/v5/market/tickers?category=linear&symbol=%s", c.restURL, symbol)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("symbol", symbol).Msg("Bybit price fetch failed")
		return 0
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0
	}

	var body struct {
		Result struct {
			List []struct {
				LastPrice string `json:"lastPrice"`
			} `json:"list"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || len(body.Result.List) == 0 {
		return 0
	}
	price, _ := strconv.ParseFloat(body.Result.List[0].LastPrice, 64)
	return price
}
