package config

import (
	"strconv"
	"time"
)

type APIConfig interface {
	GetBaseURL() string
	GetRequestTimeout() time.Duration
	GetRateLimit() float64
	GetRateBurst() int
}

type API struct{}

var _ APIConfig = API{}

// GetBaseURL returns the base URL of the ReceiptTracker backend
// (e.g. "https://receipts.example.com"). All endpoint paths are relative to it.
func (API) GetBaseURL() string {
	return GetEnv("BASE_URL", "http://localhost:8000")
}

func (API) GetRequestTimeout() time.Duration {
	return durationEnv("REQUEST_TIMEOUT", 30*time.Second)
}

func (API) GetRateLimit() float64 {
	if v, err := strconv.ParseFloat(GetEnv("RATE_LIMIT", ""), 64); err == nil && v > 0 {
		return v
	}
	return 10 // requests per second
}

func (API) GetRateBurst() int {
	if v, err := strconv.Atoi(GetEnv("RATE_BURST", "")); err == nil && v > 0 {
		return v
	}
	return 20
}

func durationEnv(envVar string, defaultValue time.Duration) time.Duration {
	if v, err := time.ParseDuration(GetEnv(envVar, "")); err == nil && v > 0 {
		return v
	}
	return defaultValue
}
