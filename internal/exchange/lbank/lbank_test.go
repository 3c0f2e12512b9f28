package lbank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpspread-scanner/internal/exchange"
)

func TestSubscribeFrames(t *testing.T) {
	frames, err := Codec{}.SubscribeFrames([]string{"btc-usdt"})
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.JSONEq(t, `{"action":"subscribe","subscribe":"tick","pair":"BTC_USDT"}`, string(frames[0].Payload))
	assert.Equal(t, "BTC_USDT", frames[0].Symbol)
}

func TestSubscribeFramesNilList(t *testing.T) {
	_, err := Codec{}.SubscribeFrames(nil)
	assert.ErrorIs(t, err, exchange.ErrAllTickersUnsupported)
}

func TestDecodeTick(t *testing.T) {
	frame := []byte(`{"tick":{"latest":50000.5,"high":51000,"low":49000},"type":"tick","pair":"btc_usdt","TS":"2023-11-14T22:13:20.123456"}`)
	tickers, err := Codec{}.Decode(frame)
	require.NoError(t, err)
	require.Len(t, tickers, 1)

	assert.Equal(t, "btc_usdt", tickers[0].Symbol)
	assert.Equal(t, 50000.5, tickers[0].Price)
	assert.True(t, tickers[0].HasTimestamp)
	assert.Greater(t, tickers[0].Timestamp, 0.0)
}

func TestDecodeBadTimestampFallsBack(t *testing.T) {
	frame := []byte(`{"tick":{"latest":50000.5},"type":"tick","pair":"btc_usdt","TS":"not-a-time"}`)
	tickers, err := Codec{}.Decode(frame)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.False(t, tickers[0].HasTimestamp)
}

func TestDecodePong(t *testing.T) {
	frame := []byte(`{"action":"pong","pong":"some-id"}`)
	tickers, err := Codec{}.Decode(frame)
	assert.NoError(t, err)
	assert.Empty(t, tickers)
}

func TestParseTS(t *testing.T) {
	ts, ok := parseTS("2023-11-14T22:13:20.123456")
	require.True(t, ok)
	assert.InDelta(t, 1700000000.123456, ts, 1e-6)

	_, ok = parseTS("")
	assert.False(t, ok)
}
