package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Broker   BrokerConfig
	Trading  TradingConfig
	Schedule ScheduleConfig
	Analysis AnalysisConfig
	Journal  JournalConfig
	Runtime  RuntimeConfig
}

type BrokerConfig struct {
	Host           string
	Port           int
	ClientID       int
	ConnectTimeout time.Duration
	QuoteTimeout   time.Duration
}

type TradingConfig struct {
	Currency        string
	Exchange        string
	InitialCash     float64
	MaxPositionSize float64
	Watchlist       []string
	WindowDays      int
}

type ScheduleConfig struct {
	TriggerTime  string
	Timezone     string
	PollInterval time.Duration
}

type AnalysisConfig struct {
	URL     string
	Timeout time.Duration
}

type JournalConfig struct {
	Path string
}

type RuntimeConfig struct {
	Log LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load(dir string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}

	cfg.Broker = BrokerConfig{
		Host:           envSub(v, "broker.host"),
		Port:           v.GetInt("broker.port"),
		ClientID:       v.GetInt("broker.client_id"),
		ConnectTimeout: v.GetDuration("broker.connect_timeout"),
		QuoteTimeout:   v.GetDuration("broker.quote_timeout"),
	}

	cfg.Trading = TradingConfig{
		Currency:        v.GetString("trading.currency"),
		Exchange:        v.GetString("trading.exchange"),
		InitialCash:     v.GetFloat64("trading.initial_cash"),
		MaxPositionSize: v.GetFloat64("trading.max_position_size"),
		Watchlist:       v.GetStringSlice("trading.watchlist"),
		WindowDays:      v.GetInt("trading.window_days"),
	}

	cfg.Schedule = ScheduleConfig{
		TriggerTime:  v.GetString("schedule.trigger_time"),
		Timezone:     v.GetString("schedule.timezone"),
		PollInterval: v.GetDuration("schedule.poll_interval"),
	}

	cfg.Analysis = AnalysisConfig{
		URL:     envSub(v, "analysis.url"),
		Timeout: v.GetDuration("analysis.timeout"),
	}

	cfg.Journal = JournalConfig{
		Path: v.GetString("journal.path"),
	}

	cfg.Runtime = RuntimeConfig{
		Log: LogConfig{
			Level:      v.GetString("runtime.log.level"),
			Format:     v.GetString("runtime.log.format"),
			File:       v.GetString("runtime.log.file"),
			MaxSize:    v.GetInt("runtime.log.max_size"),
			MaxBackups: v.GetInt("runtime.log.max_backups"),
			MaxAge:     v.GetInt("runtime.log.max_age"),
			Compress:   v.GetBool("runtime.log.compress"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("broker.host", "127.0.0.1")
	v.SetDefault("broker.port", 7497)
	v.SetDefault("broker.client_id", 123)
	v.SetDefault("broker.connect_timeout", "10s")
	v.SetDefault("broker.quote_timeout", "30s")

	v.SetDefault("trading.currency", "AUD")
	v.SetDefault("trading.exchange", "ASX")
	v.SetDefault("trading.initial_cash", 200.0)
	v.SetDefault("trading.max_position_size", 0.2)
	v.SetDefault("trading.watchlist", []string{
		"CBA", "BHP", "CSL", "WBC", "ANZ", "NAB", "WOW", "TLS", "RIO", "MQG",
	})
	v.SetDefault("trading.window_days", 30)

	v.SetDefault("schedule.trigger_time", "09:00")
	v.SetDefault("schedule.timezone", "Australia/Sydney")
	v.SetDefault("schedule.poll_interval", "60s")

	v.SetDefault("analysis.timeout", "5m")

	v.SetDefault("journal.path", "trades.db")

	v.SetDefault("runtime.log.level", "info")
	v.SetDefault("runtime.log.format", "json")
	v.SetDefault("runtime.log.file", "stdout")
	v.SetDefault("runtime.log.max_size", 50)
	v.SetDefault("runtime.log.max_backups", 5)
	v.SetDefault("runtime.log.max_age", 30)
}

func (c *Config) Validate() error {
	if c.Trading.InitialCash <= 0 {
		return fmt.Errorf("trading.initial_cash must be positive, got %f", c.Trading.InitialCash)
	}
	if c.Trading.MaxPositionSize <= 0 || c.Trading.MaxPositionSize > 1 {
		return fmt.Errorf("trading.max_position_size must be in (0, 1], got %f", c.Trading.MaxPositionSize)
	}
	if len(c.Trading.Watchlist) == 0 {
		return fmt.Errorf("trading.watchlist must not be empty")
	}
	if _, err := time.Parse("15:04", c.Schedule.TriggerTime); err != nil {
		return fmt.Errorf("schedule.trigger_time must be HH:MM, got %q", c.Schedule.TriggerTime)
	}
	if _, err := time.LoadLocation(c.Schedule.Timezone); err != nil {
		return fmt.Errorf("schedule.timezone: %w", err)
	}
	return nil
}

func envSub(v *viper.Viper, key string) string {
	val := v.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
