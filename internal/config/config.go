package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"sol-price-alerts/internal/alert"
	"sol-price-alerts/internal/card"
	"sol-price-alerts/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	State    StateConfig    `mapstructure:"state"`
	Quote    QuoteConfig    `mapstructure:"quote"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Card     CardConfig     `mapstructure:"card"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	History  HistoryConfig  `mapstructure:"history"`
	Watch    WatchConfig    `mapstructure:"watch"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// StateConfig locates the persisted alert baseline.
type StateConfig struct {
	Path string `mapstructure:"path"`
}

// QuoteConfig covers the upstream ticker endpoint.
type QuoteConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	Symbol         string        `mapstructure:"symbol"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	UserAgent      string        `mapstructure:"user_agent"`
}

// AlertConfig selects the alert policy.
type AlertConfig struct {
	Mode      string `mapstructure:"mode"`      // "delta" or "bucket"
	Threshold string `mapstructure:"threshold"` // delta mode, absolute dollars
	Step      int64  `mapstructure:"step"`      // bucket mode, dollars per level
}

// CardConfig shapes the rendered notification image.
type CardConfig struct {
	Width           int      `mapstructure:"width"`
	Height          int      `mapstructure:"height"`
	Background      string   `mapstructure:"background"` // gradient, solid, image
	BackgroundImage string   `mapstructure:"background_image"`
	CornerRadius    int      `mapstructure:"corner_radius"`
	Header          string   `mapstructure:"header"`
	FooterText      string   `mapstructure:"footer_text"`
	MaxLabelWidth   int      `mapstructure:"max_label_width"`
	MaxFontSize     float64  `mapstructure:"max_font_size"`
	MinFontSize     float64  `mapstructure:"min_font_size"`
	FontSizeStep    float64  `mapstructure:"font_size_step"`
	BoldFonts       []string `mapstructure:"bold_fonts"`
	RegularFonts    []string `mapstructure:"regular_fonts"`
}

// TelegramConfig describes the notification transport.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// HistoryConfig locates the optional alert audit database.
type HistoryConfig struct {
	Path string `mapstructure:"path"`
}

// WatchConfig governs the optional internal loop.
type WatchConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Load builds configuration from .env, file, environment, and defaults.
func Load(path string) (*Config, error) {
	// Optional .env next to the binary, matching the upstream cron
	// deployments; a missing file is not an error.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SOLNOTIFIER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The transport credentials also answer to their conventional
	// unprefixed names.
	_ = v.BindEnv("telegram.bot_token", "SOLNOTIFIER_TELEGRAM_BOT_TOKEN", "TELEGRAM_BOT_TOKEN")
	_ = v.BindEnv("telegram.chat_id", "SOLNOTIFIER_TELEGRAM_CHAT_ID", "TELEGRAM_CHAT_ID")

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "solnotifier")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("state.path", "state.json")

	v.SetDefault("quote.base_url", "https://api.binance.com")
	v.SetDefault("quote.symbol", "SOLUSDT")
	v.SetDefault("quote.request_timeout", "15s")
	v.SetDefault("quote.user_agent", "solnotifier/1.0")

	v.SetDefault("alert.mode", "delta")
	v.SetDefault("alert.threshold", "0.01")
	v.SetDefault("alert.step", int64(10))

	v.SetDefault("card.width", 1200)
	v.SetDefault("card.height", 628)
	v.SetDefault("card.background", "gradient")
	v.SetDefault("card.max_font_size", 150.0)
	v.SetDefault("card.min_font_size", 40.0)
	v.SetDefault("card.font_size_step", 10.0)
	v.SetDefault("card.footer_text", "Auto Update")
	v.SetDefault("card.bold_fonts", []string{"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf"})
	v.SetDefault("card.regular_fonts", []string{"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf"})

	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.api_base", "")

	v.SetDefault("watch.interval", "5m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.State.Path == "" {
		return fmt.Errorf("state.path must be set")
	}
	if c.Quote.Symbol == "" {
		return fmt.Errorf("quote.symbol must be set")
	}

	switch alert.Mode(c.Alert.Mode) {
	case alert.ModeDelta:
		threshold, err := decimal.NewFromString(c.Alert.Threshold)
		if err != nil {
			return fmt.Errorf("alert.threshold is not a decimal: %w", err)
		}
		if threshold.IsNegative() {
			return fmt.Errorf("alert.threshold cannot be negative")
		}
	case alert.ModeBucket:
		if c.Alert.Step <= 0 {
			return fmt.Errorf("alert.step must be greater than zero")
		}
	default:
		return fmt.Errorf("alert.mode must be %q or %q", alert.ModeDelta, alert.ModeBucket)
	}

	if c.Card.Width < 0 || c.Card.Height < 0 {
		return fmt.Errorf("card dimensions cannot be negative")
	}

	if c.Telegram.Enabled {
		if c.Telegram.BotToken == "" {
			return fmt.Errorf("telegram.bot_token must be set when telegram is enabled")
		}
		if c.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id must be set when telegram is enabled")
		}
	}

	if c.Watch.Interval <= 0 {
		return fmt.Errorf("watch.interval must be greater than zero")
	}

	return nil
}

// Policy materialises the alert policy from configuration. Validate
// must have accepted the config first.
func (c *Config) Policy() (alert.Policy, error) {
	switch alert.Mode(c.Alert.Mode) {
	case alert.ModeDelta:
		threshold, err := decimal.NewFromString(c.Alert.Threshold)
		if err != nil {
			return alert.Policy{}, fmt.Errorf("alert.threshold is not a decimal: %w", err)
		}
		return alert.Policy{Mode: alert.ModeDelta, Threshold: threshold}, nil
	case alert.ModeBucket:
		return alert.Policy{Mode: alert.ModeBucket, Step: c.Alert.Step}, nil
	default:
		return alert.Policy{}, fmt.Errorf("unknown alert.mode %q", c.Alert.Mode)
	}
}

// CardOptions materialises renderer options. The header defaults to the
// tracked symbol when not explicitly configured.
func (c *Config) CardOptions() card.Options {
	header := c.Card.Header
	if header == "" {
		header = c.Quote.Symbol
	}
	return card.Options{
		Width:            c.Card.Width,
		Height:           c.Card.Height,
		Background:       card.BackgroundStyle(c.Card.Background),
		ImagePath:        c.Card.BackgroundImage,
		CornerRadius:     c.Card.CornerRadius,
		Header:           header,
		FooterText:       c.Card.FooterText,
		MaxLabelWidth:    c.Card.MaxLabelWidth,
		MaxFontSize:      c.Card.MaxFontSize,
		MinFontSize:      c.Card.MinFontSize,
		FontSizeStep:     c.Card.FontSizeStep,
		BoldFontPaths:    c.Card.BoldFonts,
		RegularFontPaths: c.Card.RegularFonts,
	}
}
