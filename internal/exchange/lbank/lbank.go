// Package lbank implements the LBank tick codec.
package lbank

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"perpspread-scanner/internal/exchange"
)

// WSPublicURL is the LBank v2 websocket endpoint
const WSPublicURL = "wss://www.lbkex.net/ws/V2/"

// tsLayout matches LBank's ISO-8601 TS field (no zone designator)
const tsLayout = "2006-01-02T15:04:05.999999"

// Codec encodes and decodes the LBank tick subscription
type Codec struct{}

// New creates a ready-to-wire LBank adapter
func New() *exchange.Adapter {
	return exchange.NewAdapter(Codec{}, exchange.Options{})
}

// Venue returns the LBank venue tag
func (Codec) Venue() exchange.Venue {
	return exchange.LBank
}

// URL returns the websocket endpoint
func (Codec) URL() string {
	return WSPublicURL
}

// PingFrame returns the LBank action-style ping
func (Codec) PingFrame() []byte {
	return []byte(`{"action":"ping"}`)
}

type subRequest struct {
	Action    string `json:"action"`
	Subscribe string `json:"subscribe"`
	Pair      string `json:"pair"`
}

// SubscribeFrames encodes one tick subscription per pair, in LBank's
// BASE_QUOTE form. LBank has no all-tickers channel.
func (Codec) SubscribeFrames(symbols []string) ([]exchange.SubFrame, error) {
	if symbols == nil {
		return nil, exchange.ErrAllTickersUnsupported
	}

	frames := make([]exchange.SubFrame, 0, len(symbols))
	for _, symbol := range symbols {
		pair := strings.ToUpper(strings.ReplaceAll(symbol, "-", "_"))
		payload, err := json.Marshal(subRequest{
			Action:    "subscribe",
			Subscribe: "tick",
			Pair:      pair,
		})
		if err != nil {
			return nil, err
		}
		frames = append(frames, exchange.SubFrame{Payload: payload, Symbol: pair})
	}
	return frames, nil
}

type wsMessage struct {
	Action string `json:"action"`
	Type   string `json:"type"`
	Pair   string `json:"pair"`
	Tick   struct {
		Latest float64 `json:"latest"`
	} `json:"tick"`
	TS string `json:"TS"`
}

// Decode parses a tick frame. Application pongs decode to nothing. A TS
// that fails to parse falls back to wall clock at receipt.
func (Codec) Decode(frame []byte) ([]exchange.Ticker, error) {
	var msg wsMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("lbank: parse frame: %w", err)
	}

	if msg.Action == "pong" || msg.Type != "tick" {
		return nil, nil
	}

	ts, hasTS := parseTS(msg.TS)
	return []exchange.Ticker{{
		Symbol:       msg.Pair,
		Price:        msg.Tick.Latest,
		Timestamp:    ts,
		HasTimestamp: hasTS,
	}}, nil
}

func parseTS(value string) (float64, bool) {
	t, err := time.Parse(tsLayout, value)
	if err != nil {
		log.Debug().Str("ts", value).Msg("LBank timestamp parse failed, using receipt time")
		return 0, false
	}
	return float64(t.UnixNano()) / 1e9, true
}

// DepositWithdrawStatus is not implemented for LBank; report closed so
// consumers treat transfers as unavailable
func (Codec) DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool) {
	return false, false
}
