package bingx

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perpspread-scanner/internal/exchange"
)

func TestSubscribeFrames(t *testing.T) {
	frames, err := Codec{}.SubscribeFrames([]string{"BTC-USDT", "ETH-USDT"})
	require.NoError(t, err)
	require.Len(t, frames, 2)

	var req struct {
		ID       string `json:"id"`
		ReqType  string `json:"reqType"`
		DataType string `json:"dataType"`
	}
	require.NoError(t, json.Unmarshal(frames[0].Payload, &req))
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, "sub", req.ReqType)
	assert.Equal(t, "BTC-USDT@lastPrice", req.DataType)
	assert.Equal(t, "BTC-USDT", frames[0].Symbol)

	// Each frame carries a fresh request id
	var req2 struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(frames[1].Payload, &req2))
	assert.NotEqual(t, req.ID, req2.ID)
}

func TestSubscribeFramesNilList(t *testing.T) {
	_, err := Codec{}.SubscribeFrames(nil)
	assert.ErrorIs(t, err, exchange.ErrAllTickersUnsupported)
}

func TestDecodeLastPrice(t *testing.T) {
	frame := []byte(`{"e":"lastPrice","s":"BTC-USDT","p":"50000.5","E":1700000000123}`)
	tickers, err := Codec{}.Decode(frame)
	require.NoError(t, err)
	require.Len(t, tickers, 1)

	assert.Equal(t, "BTC-USDT", tickers[0].Symbol)
	assert.Equal(t, 50000.5, tickers[0].Price)
	assert.InDelta(t, 1700000000.123, tickers[0].Timestamp, 1e-6)
	assert.True(t, tickers[0].HasTimestamp)
}

func TestDecodeNumericPrice(t *testing.T) {
	frame := []byte(`{"e":"lastPrice","s":"BTC-USDT","p":50000.5,"E":1700000000123}`)
	tickers, err := Codec{}.Decode(frame)
	require.NoError(t, err)
	require.Len(t, tickers, 1)
	assert.Equal(t, 50000.5, tickers[0].Price)
}

func TestDecodeAck(t *testing.T) {
	frame := []byte(`{"id":"some-uuid","code":0,"msg":""}`)
	tickers, err := Codec{}.Decode(frame)
	assert.NoError(t, err)
	assert.Empty(t, tickers)
}
