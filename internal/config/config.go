package config

import (
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	// Crawl target
	BaseDomain    string `mapstructure:"BASE_DOMAIN"`
	SearchAPIBase string `mapstructure:"SEARCH_API_BASE"`
	Keywords      string `mapstructure:"KEYWORDS"`
	Cookies       string `mapstructure:"COOKIES"`
	UserAgent     string `mapstructure:"USER_AGENT"`

	// Pagination / politeness
	SearchMaxPages        int `mapstructure:"SEARCH_MAX_PAGES"`
	RepostMaxPages        int `mapstructure:"REPOST_MAX_PAGES"`
	FailureStreakLimit    int `mapstructure:"FAILURE_STREAK_LIMIT"`
	EmptyStreakLimit      int `mapstructure:"EMPTY_STREAK_LIMIT"`
	PersistBatchPages     int `mapstructure:"PERSIST_BATCH_PAGES"`
	DelayMinMs            int `mapstructure:"DELAY_MIN_MS"`
	DelayMaxMs            int `mapstructure:"DELAY_MAX_MS"`
	HotPostsPerTask       int `mapstructure:"HOT_POSTS_PER_TASK"`
	TaskStalenessSec      int `mapstructure:"TASK_STALENESS_SEC"`
	AnalysisMaxHotReposts int `mapstructure:"ANALYSIS_MAX_HOT_REPOSTS"`

	// HTTP
	HttpTimeoutSec       int `mapstructure:"HTTP_TIMEOUT_SEC"`
	HttpRetryCount       int `mapstructure:"HTTP_RETRY_COUNT"`
	HttpRetryBaseDelayMs int `mapstructure:"HTTP_RETRY_BASE_DELAY_MS"`
	HttpRetryMaxDelayMs  int `mapstructure:"HTTP_RETRY_MAX_DELAY_MS"`

	// Browser-rendered fetch (PC search page)
	EnableBrowserFetch   bool   `mapstructure:"ENABLE_BROWSER_FETCH"`
	BrowserHeadless      bool   `mapstructure:"BROWSER_HEADLESS"`
	BrowserNavTimeoutSec int    `mapstructure:"BROWSER_NAV_TIMEOUT_SEC"`
	CustomBrowserPath    string `mapstructure:"CUSTOM_BROWSER_PATH"`

	// Store
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	SQLitePath   string `mapstructure:"SQLITE_PATH"`
	MySQLDSN     string `mapstructure:"MYSQL_DSN"`
	PostgresDSN  string `mapstructure:"POSTGRES_DSN"`
	MongoURI     string `mapstructure:"MONGO_URI"`
	MongoDB      string `mapstructure:"MONGO_DB"`

	// Cache
	CacheBackend       string `mapstructure:"CACHE_BACKEND"`
	CacheDefaultTTLSec int    `mapstructure:"CACHE_DEFAULT_TTL_SEC"`
	RedisAddr          string `mapstructure:"REDIS_ADDR"`
	RedisPassword      string `mapstructure:"REDIS_PASSWORD"`
	RedisDB            int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix     string `mapstructure:"REDIS_KEY_PREFIX"`

	// Logging
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`
}

var AppConfig Config

func LoadConfig(path string) error {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetDefault("BASE_DOMAIN", "https://weibo.cn")
	viper.SetDefault("SEARCH_API_BASE", "http://127.0.0.1:8001")
	viper.SetDefault("KEYWORDS", "")
	viper.SetDefault("COOKIES", "")
	viper.SetDefault("USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	viper.SetDefault("SEARCH_MAX_PAGES", 24)
	viper.SetDefault("REPOST_MAX_PAGES", 300)
	viper.SetDefault("FAILURE_STREAK_LIMIT", 5)
	viper.SetDefault("EMPTY_STREAK_LIMIT", 3)
	viper.SetDefault("PERSIST_BATCH_PAGES", 10)
	viper.SetDefault("DELAY_MIN_MS", 1000)
	viper.SetDefault("DELAY_MAX_MS", 10000)
	viper.SetDefault("HOT_POSTS_PER_TASK", 10)
	viper.SetDefault("TASK_STALENESS_SEC", 3600)
	viper.SetDefault("ANALYSIS_MAX_HOT_REPOSTS", 10)
	viper.SetDefault("HTTP_TIMEOUT_SEC", 30)
	viper.SetDefault("HTTP_RETRY_COUNT", 3)
	viper.SetDefault("HTTP_RETRY_BASE_DELAY_MS", 500)
	viper.SetDefault("HTTP_RETRY_MAX_DELAY_MS", 4000)
	viper.SetDefault("ENABLE_BROWSER_FETCH", false)
	viper.SetDefault("BROWSER_HEADLESS", true)
	viper.SetDefault("BROWSER_NAV_TIMEOUT_SEC", 60)
	viper.SetDefault("CUSTOM_BROWSER_PATH", "")
	viper.SetDefault("STORE_BACKEND", "memory")
	viper.SetDefault("SQLITE_PATH", "data/weibo_insight.db")
	viper.SetDefault("MYSQL_DSN", "")
	viper.SetDefault("POSTGRES_DSN", "")
	viper.SetDefault("MONGO_URI", "")
	viper.SetDefault("MONGO_DB", "weibo_insight")
	viper.SetDefault("CACHE_BACKEND", "memory")
	viper.SetDefault("CACHE_DEFAULT_TTL_SEC", 600)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_KEY_PREFIX", "weibo_insight:")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	viper.SetEnvPrefix("WEIBO_INSIGHT")
	viper.AutomaticEnv()

	// If no config file found, just use defaults/env
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return err
	}
	Normalize(&AppConfig)
	return nil
}

func GetKeywords() []string {
	v := strings.TrimSpace(AppConfig.Keywords)
	if v == "" {
		return []string{}
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.CacheBackend = strings.ToLower(strings.TrimSpace(cfg.CacheBackend))
	cfg.BaseDomain = strings.TrimRight(strings.TrimSpace(cfg.BaseDomain), "/")
	cfg.SearchAPIBase = strings.TrimRight(strings.TrimSpace(cfg.SearchAPIBase), "/")
	if cfg.DelayMaxMs < cfg.DelayMinMs {
		cfg.DelayMaxMs = cfg.DelayMinMs
	}
}
