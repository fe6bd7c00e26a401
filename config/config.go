package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Fetch     FetchConfig
	Proxy     ProxyConfig
	Browser   BrowserConfig
	Batch     BatchConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"

	// TrustedProxies are the reverse proxies whose X-Forwarded-For is
	// honoured when deriving the client IP for rate limiting.
	TrustedProxies []string

	// MaxUploadBytes caps the size of an uploaded workbook.
	MaxUploadBytes int64 // default: 8 MB
}

// FetchConfig controls the shared outbound HTTP client.
type FetchConfig struct {
	// Timeout applies to calls whose extractor does not set its own.
	Timeout time.Duration // default: 20s

	// UserAgent overrides the built-in desktop Chrome User-Agent.
	UserAgent string

	// ChromeTLS presents a Chrome TLS fingerprint on HTTPS connections.
	ChromeTLS bool // default: true

	// MaxBodyBytes caps how much of a response is read.
	MaxBodyBytes int64 // default: 10 MB
}

// ProxyConfig controls the third-party fetch/render proxy used for sites
// that block direct requests.
type ProxyConfig struct {
	Endpoint string        // default: "https://api.webscrapingapi.com/v2"
	APIKey   string        // empty disables the proxy
	Timeout  time.Duration // default: 30s
}

// BrowserConfig controls the optional headless Chromium renderer. It is
// only used when no fetch proxy key is configured.
type BrowserConfig struct {
	// Enabled launches a local browser at startup.
	Enabled bool // default: false

	// Headless controls whether the browser runs headless.
	Headless bool // default: true

	// MaxPages is the page pool capacity.
	MaxPages int // default: 2

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string

	// NavigationTimeout is the max time for one page render.
	NavigationTimeout time.Duration // default: 25s

	// BlockResources skips images, stylesheets, fonts and trackers.
	BlockResources bool // default: true
}

// BatchConfig controls batch invocations.
type BatchConfig struct {
	// Deadline is the wall-clock budget of one batch call. It must stay
	// below the hosting proxy's request timeout.
	Deadline time.Duration // default: 45s

	// MaxProducts caps the product list accepted by one request.
	MaxProducts int // default: 5000
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per client IP.
	RequestsPerSecond float64 // default: 2

	// Burst is the maximum burst size per client IP.
	Burst int // default: 5
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// LoadEnvFiles loads .env.local and then .env from the working directory,
// without overriding variables already set. PRICEWATCH_ENV_FILE, when set,
// names the only file loaded. Missing files are ignored.
func LoadEnvFiles() error {
	if envFile := os.Getenv("PRICEWATCH_ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load env file %s: %w", envFile, err)
		}
		return nil
	}
	for _, name := range []string{".env.local", ".env"} {
		if err := godotenv.Load(name); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           envOr("PRICEWATCH_HOST", "0.0.0.0"),
			Port:           envIntOr("PRICEWATCH_PORT", 8080),
			Mode:           envOr("PRICEWATCH_MODE", "release"),
			TrustedProxies: envSliceOr("PRICEWATCH_TRUSTED_PROXIES", nil),
			MaxUploadBytes: int64(envIntOr("PRICEWATCH_MAX_UPLOAD_BYTES", 8<<20)),
		},
		Fetch: FetchConfig{
			Timeout:      envDurationOr("PRICEWATCH_FETCH_TIMEOUT", 20*time.Second),
			UserAgent:    os.Getenv("PRICEWATCH_USER_AGENT"),
			ChromeTLS:    envBoolOr("PRICEWATCH_CHROME_TLS", true),
			MaxBodyBytes: int64(envIntOr("PRICEWATCH_MAX_BODY_BYTES", 10<<20)),
		},
		Proxy: ProxyConfig{
			Endpoint: envOr("PRICEWATCH_PROXY_ENDPOINT", "https://api.webscrapingapi.com/v2"),
			APIKey:   os.Getenv("PRICEWATCH_PROXY_API_KEY"),
			Timeout:  envDurationOr("PRICEWATCH_PROXY_TIMEOUT", 30*time.Second),
		},
		Browser: BrowserConfig{
			Enabled:           envBoolOr("PRICEWATCH_BROWSER", false),
			Headless:          envBoolOr("PRICEWATCH_HEADLESS", true),
			MaxPages:          envIntOr("PRICEWATCH_MAX_PAGES", 2),
			NoSandbox:         envBoolOr("PRICEWATCH_NO_SANDBOX", false),
			BrowserBin:        os.Getenv("PRICEWATCH_BROWSER_BIN"),
			NavigationTimeout: envDurationOr("PRICEWATCH_NAV_TIMEOUT", 25*time.Second),
			BlockResources:    envBoolOr("PRICEWATCH_BLOCK_RESOURCES", true),
		},
		Batch: BatchConfig{
			Deadline:    envDurationOr("PRICEWATCH_BATCH_DEADLINE", 45*time.Second),
			MaxProducts: envIntOr("PRICEWATCH_MAX_PRODUCTS", 5000),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PRICEWATCH_RATE_RPS", 2.0),
			Burst:             envIntOr("PRICEWATCH_RATE_BURST", 5),
		},
		Log: LogConfig{
			Level:  envOr("PRICEWATCH_LOG_LEVEL", "info"),
			Format: envOr("PRICEWATCH_LOG_FORMAT", "json"),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
