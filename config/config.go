package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"plantprice/models"
	"plantprice/scraper"
)

// Config holds the service settings read from the environment
type Config struct {
	Host           string
	Port           string
	AllowedOrigins []string
	APIKey         string
	APIRateLimit   float64
	DatabaseURL    string

	Method             models.Method
	PauseOnCaptcha     bool
	ExcludedSources    []string
	ResultCount        int
	Selection          models.Selection
	MarketplaceTimeout time.Duration

	HTTP    scraper.HTTPTransportConfig
	Browser scraper.BrowserConfig
	Pacing  scraper.Pacing

	CaptchaExtraPhrases   []string
	CaptchaExtraSelectors []string

	ScheduleEnabled bool
	ScheduleSpec    string
	PlantListFile   string

	ExportColumns string
}

// Load reads the configuration, falling back to defaults for unset variables
func Load() *Config {
	pacing := scraper.DefaultPacing()
	httpDefaults := scraper.DefaultHTTPTransportConfig()

	cfg := &Config{
		Host:           getEnv("HOST", "0.0.0.0"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		APIKey:         getEnv("API_KEY", ""),
		APIRateLimit:   getEnvFloat("API_RATE_LIMIT", 5),
		DatabaseURL:    getEnv("DATABASE_URL", ""),

		Method:             models.Method(getEnv("SCRAPE_METHOD", string(models.MethodDirectHTTP))),
		PauseOnCaptcha:     getEnvBool("PAUSE_ON_CAPTCHA", true),
		ExcludedSources:    getEnvList("EXCLUDED_SOURCES", scraper.DefaultExcludedSources),
		ResultCount:        getEnvInt("RESULT_COUNT", models.DefaultResultCount),
		Selection:          models.Selection(getEnv("RESULT_SELECTION", string(models.SelectionDiverse))),
		MarketplaceTimeout: getEnvDuration("MARKETPLACE_TIMEOUT", 15*time.Second),

		HTTP: scraper.HTTPTransportConfig{
			Timeout:    getEnvDuration("REQUEST_TIMEOUT", httpDefaults.Timeout),
			RateLimit:  getEnvFloat("DOMAIN_RATE_LIMIT", httpDefaults.RateLimit),
			Burst:      getEnvInt("DOMAIN_BURST", httpDefaults.Burst),
			MaxRetries: getEnvInt("HTTP_MAX_RETRIES", httpDefaults.MaxRetries),
			RetryDelay: getEnvDuration("HTTP_RETRY_DELAY", httpDefaults.RetryDelay),
		},
		Browser: scraper.BrowserConfig{
			Bin:         getEnv("BROWSER_BIN", ""),
			Headless:    getEnvBool("BROWSER_HEADLESS", false),
			PageTimeout: getEnvDuration("BROWSER_PAGE_TIMEOUT", 30*time.Second),
		},
		Pacing: scraper.Pacing{
			Search:  getEnvWindow("SEARCH_DELAY", pacing.Search),
			Browser: getEnvWindow("BROWSER_DELAY", pacing.Browser),
			Source:  getEnvWindow("SOURCE_DELAY", pacing.Source),
		},

		CaptchaExtraPhrases:   getEnvList("CAPTCHA_EXTRA_PHRASES", nil),
		CaptchaExtraSelectors: getEnvList("CAPTCHA_EXTRA_SELECTORS", nil),

		ScheduleEnabled: getEnvBool("SCHEDULE_ENABLED", false),
		ScheduleSpec:    getEnv("SCHEDULE_SPEC", "0 0 3 * * *"),
		PlantListFile:   getEnv("PLANT_LIST_FILE", "plants.txt"),

		ExportColumns: getEnv("EXPORT_COLUMNS", ""),
	}

	if !cfg.Method.Valid() {
		cfg.Method = models.MethodDirectHTTP
	}
	if !cfg.Selection.Valid() {
		cfg.Selection = models.SelectionDiverse
	}
	if cfg.ResultCount <= 0 {
		cfg.ResultCount = models.DefaultResultCount
	}
	return cfg
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// getEnvWindow reads <prefix>_MIN and <prefix>_MAX; a swapped pair is reordered
func getEnvWindow(prefix string, defaultValue scraper.DelayWindow) scraper.DelayWindow {
	w := scraper.DelayWindow{
		Min: getEnvDuration(prefix+"_MIN", defaultValue.Min),
		Max: getEnvDuration(prefix+"_MAX", defaultValue.Max),
	}
	if w.Max < w.Min {
		w.Min, w.Max = w.Max, w.Min
	}
	return w
}
