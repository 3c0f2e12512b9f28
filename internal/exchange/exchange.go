// Package exchange provides the shared websocket session driving one
// streaming connection per venue. Venue-specific behavior (URL,
// subscription frames, message schema, ping payload) lives in a Codec
// implemented by the per-venue subpackages.
package exchange

import (
	"context"
	"errors"
)

// Venue identifies a supported exchange
type Venue string

const (
	MEXC   Venue = "MEXC"
	Bitget Venue = "BITGET"
	Bybit  Venue = "BYBIT"
	Gate   Venue = "GATE"
	OKX    Venue = "OKX"
	LBank  Venue = "LBANK"
	BingX  Venue = "BINGX"
)

// PriceUpdate is a normalized last-trade price event
type PriceUpdate struct {
	Venue     Venue   `json:"venue"`
	Symbol    string  `json:"symbol"` // canonical, e.g. BTCUSDT
	Price     float64 `json:"price"`
	Timestamp float64 `json:"timestamp"` // seconds since Unix epoch
}

// PriceCallback is invoked for every decoded price update
type PriceCallback func(PriceUpdate)

// Ticker is a single decoded ticker entry with the venue-native symbol.
// HasTimestamp is false when the venue payload carries no usable server
// timestamp; the session substitutes wall clock at receipt.
type Ticker struct {
	Symbol       string
	Price        float64
	Timestamp    float64
	HasTimestamp bool
}

// SubFrame is one subscription frame to send. Symbol is the venue-native
// symbol being subscribed, empty for an all-tickers subscription.
type SubFrame struct {
	Payload []byte
	Symbol  string
}

// ErrAllTickersUnsupported is returned by SubscribeFrames when a nil
// symbol list is requested on a venue without a wildcard channel.
var ErrAllTickersUnsupported = errors.New("exchange: venue has no all-tickers channel")

// ErrClosed is returned by operations on a closed adapter
var ErrClosed = errors.New("exchange: adapter closed")

// Codec captures the per-venue variation points of a streaming session
type Codec interface {
	// Venue returns the stable uppercase venue tag
	Venue() Venue

	// URL returns the websocket endpoint
	URL() string

	// SubscribeFrames encodes subscription frames for the given symbols.
	// A nil list requests the venue's all-tickers channel where one
	// exists, ErrAllTickersUnsupported otherwise.
	SubscribeFrames(symbols []string) ([]SubFrame, error)

	// Decode parses one raw frame into zero or more tickers. Control
	// frames (pongs, subscription acks) decode to an empty slice.
	Decode(frame []byte) ([]Ticker, error)

	// PingFrame returns the application-level keep-alive payload, or
	// nil for venues that rely on transport-level ping/pong.
	PingFrame() []byte

	// DepositWithdrawStatus reports whether deposits and withdrawals
	// are open for the symbol's base token. Failures report (false, false).
	DepositWithdrawStatus(ctx context.Context, symbol string) (bool, bool)
}
