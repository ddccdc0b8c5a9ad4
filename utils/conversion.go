package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"innkeep/config"
)

// RateFunc resolves a conversion factor between two currencies. It is a pure
// lookup from the engine's point of view; sourcing is an external concern.
type RateFunc func(from, to string) (float64, error)

type ExchangeRateAPIResponse struct {
	Result string             `json:"result"`
	Base   string             `json:"base_code"`
	Rates  map[string]float64 `json:"conversion_rates"`
}

// fetchExchangeRate fetches exchange rate from base to target using ExchangeRate-API.
func fetchExchangeRate(from, to string) (float64, error) {
	url := fmt.Sprintf("https://v6.exchangerate-api.com/v6/%s/latest/%s", config.AppConfig.ExchangeRateAPIKey, from)

	client := http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return 0, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	var rateResp ExchangeRateAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&rateResp); err != nil {
		return 0, fmt.Errorf("decoding response failed: %w", err)
	}

	if rateResp.Result != "success" {
		return 0, fmt.Errorf("exchange API returned failure result")
	}

	rate, ok := rateResp.Rates[to]
	if !ok {
		return 0, fmt.Errorf("exchange rate for %s not found", to)
	}
	return rate, nil
}

// ExchangeRate returns the live conversion factor, caching each pair in Redis
// for an hour. Fetching has no ordering dependency on the reservation path.
func ExchangeRate(from, to string) (float64, error) {
	if from == to {
		return 1, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	key := "fx:" + from + ":" + to
	cache := GetRatesCacheClient()
	if cached, err := cache.Get(ctx, key).Result(); err == nil {
		if rate, perr := strconv.ParseFloat(cached, 64); perr == nil {
			return rate, nil
		}
	}

	rate, err := fetchExchangeRate(from, to)
	if err != nil {
		return 0, err
	}
	if err := cache.Set(ctx, key, strconv.FormatFloat(rate, 'f', -1, 64), time.Hour).Err(); err != nil {
		GetLogger().Warn("failed to cache exchange rate: " + err.Error())
	}
	return rate, nil
}

// ConvertCents converts a minor-unit amount with round-half-to-even, the only
// place rounding happens; the stored breakdown stays exact in base currency.
func ConvertCents(amountCents int64, rate float64) int64 {
	return int64(math.RoundToEven(float64(amountCents) * rate))
}

// FormatCents renders a minor-unit amount as a major-unit string, e.g. "450.00".
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
