// package config loads application configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	// host page & browser
	ChatURL           string
	ChromeDebuggerURL string
	ChromeHeadless    bool
	ChromeUserDataDir string
	SelectorsFile     string

	// observer timing
	InitialScanDelay   time.Duration
	ProfileSettleDelay time.Duration
	ClosePanelTimeout  time.Duration
	CloseSettleDelay   time.Duration
	PollInterval       time.Duration
	RescanDropped      bool

	// ledger storage
	DatabaseURL string

	// nats
	NatsURL         string
	DispatchSubject string
	ResultsStream   string
	ResultsSubject  string
	DispatchTimeout time.Duration

	// ingestion endpoint
	IngestURL string
	IngestRPS float64

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		ChatURL:            getEnv("CHAT_URL", "https://web.telegram.org/k/"),
		ChromeDebuggerURL:  getEnv("CHROME_DEBUGGER_URL", ""),
		ChromeHeadless:     getEnvBool("CHROME_HEADLESS", false),
		ChromeUserDataDir:  getEnv("CHROME_USER_DATA_DIR", "./data/chrome"),
		SelectorsFile:      getEnv("SELECTORS_FILE", ""),
		InitialScanDelay:   getEnvDuration("INITIAL_SCAN_DELAY", 2*time.Second),
		ProfileSettleDelay: getEnvDuration("PROFILE_SETTLE_DELAY", 2*time.Second),
		ClosePanelTimeout:  getEnvDuration("CLOSE_PANEL_TIMEOUT", 2*time.Second),
		CloseSettleDelay:   getEnvDuration("CLOSE_SETTLE_DELAY", 300*time.Millisecond),
		PollInterval:       getEnvDuration("POLL_INTERVAL", 100*time.Millisecond),
		RescanDropped:      getEnvBool("RESCAN_DROPPED", false),
		DatabaseURL:        getEnv("DATABASE_URL", "sqlite://./data/observer.db"),
		NatsURL:            getEnv("NATS_URL", ""),
		DispatchSubject:    getEnv("DISPATCH_SUBJECT", "observer.messages"),
		ResultsStream:      getEnv("RESULTS_STREAM", "OBSERVER"),
		ResultsSubject:     getEnv("RESULTS_SUBJECT", "observer.results"),
		DispatchTimeout:    getEnvDuration("DISPATCH_TIMEOUT", 15*time.Second),
		IngestURL:          getEnv("INGEST_URL", "https://parser.kyna.one/parse"),
		IngestRPS:          getEnvFloat("INGEST_RPS", 2.0),
		HTTPPort:           getEnvInt("HTTP_PORT", 3100),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFile:            getEnv("LOG_FILE", "./logs/observer.log"),
	}

	return cfg, nil
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

// getEnvBool accepts anything strconv.ParseBool does, plus yes/no.
func getEnvBool(key string, defaultVal bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch val {
	case "":
		return defaultVal
	case "yes", "y", "on":
		return true
	case "no", "n", "off":
		return false
	}
	if b, err := strconv.ParseBool(val); err == nil {
		return b
	}
	return defaultVal
}

// getEnvDuration parses Go duration strings ("300ms", "2s").
// A bare integer is read as milliseconds.
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil && d >= 0 {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil && ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
