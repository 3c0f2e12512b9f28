package mexc

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"perpspread-scanner/internal/normalizer"
)

type coinNetwork struct {
	DepositEnable  bool `json:"depositEnable"`
	WithdrawEnable bool `json:"withdrawEnable"`
}

type coinConfig struct {
	Coin        string        `json:"coin"`
	NetworkList []coinNetwork `json:"networkList"`
}

// capitalConfig fetches the signed per-coin network configuration
func (c *Codec) capitalConfig(ctx context.Context) ([]coinConfig, error) {
	query := fmt.Sprintf("timestamp=%d", time.Now().UnixMilli())
	url := fmt.Sprintf("%s/api/v3/capital/config/getall?%s&signature=%s", c.spotURL, query, c.sign(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-MEXC-APIKEY", c.creds.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("mexc: capital config: HTTP %d", resp.StatusCode)
	}

	var coins []coinConfig
	if err := json.NewDecoder(resp.Body).Decode(&coins); err != nil {
		return nil, fmt.Errorf("mexc: capital config: %w", err)
	}
	return coins, nil
}

// sign produces the hex HMAC-SHA256 signature over the query string
func (c *Codec) sign(query string) string {
	mac := hmac.New(sha256.New, []byte(c.creds.APISecret))
	mac.Write([]byte(query))
	return hex.EncodeToString(mac.Sum(nil))
}

// coinStatus ORs deposit/withdraw flags across the base token's chains
func coinStatus(coins []coinConfig, symbol string) (bool, bool) {
	base := normalizer.BaseToken(normalizer.Canonical("MEXC", symbol))
	for _, coin := range coins {
		if !strings.EqualFold(coin.Coin, base) {
			continue
		}
		var deposit, withdraw bool
		for _, net := range coin.NetworkList {
			deposit = deposit || net.DepositEnable
			withdraw = withdraw || net.WithdrawEnable
		}
		return deposit, withdraw
	}
	return false, false
}
