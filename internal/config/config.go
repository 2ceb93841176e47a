package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port        string
	DatabaseURL string
	// Provider selects a non-default quote source ("fake" for dev runs
	// without credentials).
	Provider string
	// Provider credentials; an empty key disables that provider.
	FinnhubKey       string
	AlphaVantageKey  string
	MarketauxKey     string
	FMPKey           string
	FinnhubBase      string
	AlphaVantageBase string
	MarketauxBase    string
	FMPBase          string
	RequestTimeout   time.Duration
	// Refresh pacing
	Tickers      []string
	ChunkSize    int
	RequestDelay time.Duration
	ChunkWait    time.Duration
	// Read surface defaults
	MaxQuoteAge         time.Duration
	VolatilityThreshold float64
	NewsLookback        time.Duration
	NewsLimit           int
	// Redis (single-flight refresh lock)
	LockBackend   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	LockTTL       time.Duration
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func floatDef(s string, def float64) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return def
	}
	return f
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Load reads environment variables and applies defaults.
//
// The pacing defaults (chunk of 58 tickers, 1050ms between requests, 60s
// between chunks) keep a full chunk under a 60 requests/minute vendor quota
// with headroom.
func Load() Config {
	return Config{
		Env:      getEnv("ENV", "local"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnv("PORT", "8080"),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		Provider:         getEnv("PROVIDER", ""),
		FinnhubKey:       getEnv("FINNHUB_API_KEY", ""),
		AlphaVantageKey:  getEnv("ALPHA_VANTAGE_KEY", ""),
		MarketauxKey:     getEnv("MARKETAUX_KEY", ""),
		FMPKey:           getEnv("FMP_API_KEY", ""),
		FinnhubBase:      getEnv("FINNHUB_API_BASE", "https://finnhub.io/api/v1"),
		AlphaVantageBase: getEnv("ALPHA_VANTAGE_BASE", "https://www.alphavantage.co/query"),
		MarketauxBase:    getEnv("MARKETAUX_BASE", "https://api.marketaux.com/v1/news/all"),
		FMPBase:          getEnv("FMP_API_BASE", "https://financialmodelingprep.com/api/v3"),
		RequestTimeout:   time.Duration(atoiDef(getEnv("REQUEST_TIMEOUT_MS", "10000"), 10000)) * time.Millisecond,

		Tickers:      splitCSV(getEnv("TICKERS", "")),
		ChunkSize:    atoiDef(getEnv("REFRESH_CHUNK_SIZE", "58"), 58),
		RequestDelay: time.Duration(atoiDef(getEnv("REFRESH_REQUEST_DELAY_MS", "1050"), 1050)) * time.Millisecond,
		ChunkWait:    time.Duration(atoiDef(getEnv("REFRESH_CHUNK_WAIT_MS", "60000"), 60000)) * time.Millisecond,

		MaxQuoteAge:         time.Duration(atoiDef(getEnv("QUOTE_MAX_AGE_MIN", "15"), 15)) * time.Minute,
		VolatilityThreshold: floatDef(getEnv("VOLATILITY_THRESHOLD", "2.0"), 2.0),
		NewsLookback:        time.Duration(atoiDef(getEnv("NEWS_LOOKBACK_DAYS", "3"), 3)) * 24 * time.Hour,
		NewsLimit:           atoiDef(getEnv("NEWS_LIMIT", "50"), 50),

		LockBackend:   getEnv("REFRESH_LOCK_BACKEND", "redis"), // or "none"
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       atoiDef(getEnv("REDIS_DB", "0"), 0),
		LockTTL:       time.Duration(atoiDef(getEnv("REFRESH_LOCK_TTL_MS", "600000"), 600000)) * time.Millisecond,
	}
}
