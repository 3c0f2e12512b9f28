package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonical(t *testing.T) {
	tests := []struct {
		venue  string
		symbol string
		want   string
	}{
		{"MEXC", "BTC_USDT", "BTCUSDT"},
		{"GATE", "BTC_USDT", "BTCUSDT"},
		{"OKX", "BTC-USDT-SWAP", "BTCUSDTSWAP"},
		{"LBANK", "btc_usdt", "BTCUSDT"},
		{"BYBIT", "BTCUSDT", "BTCUSDT"},
		{"BINGX", "BTC-USDT", "BTCUSDT"},
		{"BITGET", "", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Canonical(tt.venue, tt.symbol), "venue=%s symbol=%s", tt.venue, tt.symbol)
	}
}

func TestBaseToken(t *testing.T) {
	assert.Equal(t, "BTC", BaseToken("BTCUSDT"))
	assert.Equal(t, "ETH", BaseToken("ethusdt"))
	assert.Equal(t, "BTCUSD", BaseToken("BTCUSD"))
	assert.Equal(t, "", BaseToken("USDT"))
}
