// Package bingx implements the BingX swap lastPrice codec.
package bingx

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"

	"perpspread-scanner/internal/exchange"
)

// WSPublicURL is the BingX swap market websocket endpoint
const WSPublicURL = "wss://open-api-swap.bingx.com/swap-market"

// Codec encodes and decodes the BingX lastPrice data type
type Codec struct{}

// New creates a ready-to-wire BingX adapter
func New() *exchange.Adapter {
	return exchange.NewAdapter(Codec{}, exchange.Options{})
}

// Venue returns the BingX venue tag
func (Codec) Venue() exchange.Venue {
	return exchange.BingX
}

// URL returns the websocket endpoint
func (Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the BingX application-level ping
func (Codec) PingFrame() []byte {
	return []byte(`{"method":"ping"}`)
}

type subRequest struct {
	ID       string `json:"id"`
	ReqType  string `json:"reqType"`
	DataType string `json:"dataType"`
}

// SubscribeFrames encodes one <symbol>@lastPrice subscription per
// symbol, each with a fresh request id. BingX has no wildcard channel.
func (Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		return nil, exchange.ErrAllTickersUnsupported
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for _, symbol := range symbols {
		payload, err := json.Marshal(subRequest{
			ID:       uuid.NewString(),
			ReqType:  "sub",
			DataType: symbol + "@lastPrice",
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, exchange.SubFrame{Payload: payload, Symbol: symbol})
	}
	return frames, nil
}

type wsMessage struct {
	EventType string      `json:"e"`
	Symbol    string      `json:"s"`
	Price     json.Number `json:"p"`
	EventTime int64       `json:"E"` // ms
}

// Decode parses a lastPrice event. Subscription acks and other event
// types decode to nothing.
func (Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("bingx: parse frame: %w", err)
	}

	if msg.EventType != "lastPrice" {
		return nil, nil
	}

	price, err := strconv.ParseFloat(msg.Price.String(), 64)
	if err != nil {
		return nil, fmt.Errorf("bingx: parse price %q: %w", msg.Price, err)
	}

	return []exchange.Ticker{{
		Symbol:       msg.Symbol,
		Price:        price,
		Timestamp:    float64(msg.EventTime) / 1000,
		HasTimestamp: msg.EventTime > 0,
	}}, nil
}

// DepositWithdrawStatus is not gated on BingX swap listings
func (Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	return true, true
}
