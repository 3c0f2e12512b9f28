// Package bitget implements the Bitget USDT-futures codec.
package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"perpspread-scanner/internal/exchange"
)

// WSPublicURL is the Bitget public v2 websocket endpoint
const WSPublicURL = "wss://ws.bitget.com/v2/ws/public"

// Codec encodes and decodes the Bitget ticker channel
type Codec struct{}

// New creates a ready-to-wire Bitget adapter
func New() *exchange.Adapter {
	return exchange.NewAdapter(Codec{}, exchange.Options{})
}

// Venue returns the Bitget venue tag
func (Codec) Venue() exchange.Venue {
	return exchange.Bitget
}

// URL returns the websocket endpoint
func (Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the literal "ping" string Bitget expects
func (Codec) PingFrame() []byte {
	return []byte("ping")
}

type subArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

type subRequest struct {
	Op   string   `json:"op"`
	Args []subArg `json:"args"`
}

// SubscribeFrames encodes one ticker subscription per symbol. Bitget
// has no all-tickers channel.
func (Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		return nil, exchange.ErrAllTickersUnsupported
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for _, symbol := range symbols {
		instID := strings.ToUpper(strings.ReplaceAll(symbol, "_", ""))
		payload, err := json.Marshal(subRequest{
			Op: "subscribe",
			Args: []subArg{{
				InstType: "USDT-FUTURES",
				Channel:  "ticker",
				InstID:   instID,
			}},
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, exchange.SubFrame{Payload: payload, Symbol: instID})
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
		LastPr string `json:"lastPr"`
		Ts     string `json:"ts"` // ms
	} `json:"data"`
}

// Decode parses a ticker snapshot/update frame. Subscribe acks carry an
// event field and no data.
func (Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("bitget: parse frame: %w", err)
	}

	if msg.Event != "" || len(msg.Data) == 0 {
		return nil, nil
	}
	if msg.Arg.Channel != "ticker" {
		return nil, nil
	}

	tickers := make([]exchange.Ticker, 0, len(msg.Data))
	for _, e := range msg.Data {
		price, err := strconv.ParseFloat(e.LastPr, 64)
		if err != nil {
			return nil, fmt.Errorf("bitget: parse lastPr %q: %w", e.LastPr, err)
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

// DepositWithdrawStatus is not gated on Bitget futures listings
func (Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	return true, true
}
