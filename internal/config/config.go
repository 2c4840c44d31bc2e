// Package config loads Social Pulse configuration from a .env file, the
// process environment and command-line flags.
//
// Precedence, highest first: flags, environment, .env file, defaults.
// The credential variables keep their historical lower-case names
// (youtube_data_api, ig_user_id, ...); upper-case spellings are accepted too.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Resend policies for the re-notification sweep.
const (
	// PolicyRecent re-runs accounts summarized within the threshold.
	PolicyRecent = "recent"
	// PolicyOverdue re-runs accounts whose last summary is at least the threshold old.
	PolicyOverdue = "overdue"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	YouTube   YouTubeConfig   `mapstructure:"youtube"`
	Instagram InstagramConfig `mapstructure:"instagram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Logging   LoggingConfig   `mapstructure:"logging"`

	// HTTPTimeout bounds every outbound API call.
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
}

// ServerConfig contains HTTP server and storage settings.
type ServerConfig struct {
	Port          int           `mapstructure:"port"`
	DBPath        string        `mapstructure:"db_path"`
	JWTSecret     string        `mapstructure:"jwt_secret"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	SecureCookies bool          `mapstructure:"secure_cookies"`
}

// YouTubeConfig contains YouTube Data API settings.
type YouTubeConfig struct {
	APIKey   string `mapstructure:"api_key"`
	PageSize int    `mapstructure:"page_size"`
	// BaseURL overrides the API endpoint; empty means Google's default.
	BaseURL string `mapstructure:"base_url"`
}

// InstagramConfig contains Graph API credentials.
type InstagramConfig struct {
	UserID          string `mapstructure:"user_id"`
	LongAccessToken string `mapstructure:"long_access_token"`
	AppID           string `mapstructure:"app_id"`
	AppSecret       string `mapstructure:"app_secret"`
	UserAccessToken string `mapstructure:"user_access_token"`
	BaseURL         string `mapstructure:"base_url"`
}

// GeminiConfig contains generative model settings.
type GeminiConfig struct {
	APIKey  string `mapstructure:"api_key"`
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
}

// SMTPConfig contains outbound mail settings. Username is also the From address.
type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	// ConfirmSignups sends a confirmation email at registration and rejects
	// the signup when it cannot be delivered.
	ConfirmSignups bool `mapstructure:"confirm_signups"`
}

// PipelineConfig contains summary cycle and sweep settings.
type PipelineConfig struct {
	FetchWindowHours     int    `mapstructure:"fetch_window_hours"`
	ResendPolicy         string `mapstructure:"resend_policy"`
	ResendThresholdHours int    `mapstructure:"resend_threshold_hours"`
	// SweepSchedule is a cron expression; empty disables the scheduled sweep.
	SweepSchedule string `mapstructure:"sweep_schedule"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// envBindings maps config keys to the environment variables that set them,
// checked in order.
var envBindings = map[string][]string{
	"server.port":           {"PORT"},
	"server.db_path":        {"DB_PATH"},
	"server.jwt_secret":     {"JWT_SECRET"},
	"server.session_ttl":    {"SESSION_TTL"},
	"server.secure_cookies": {"SECURE_COOKIES"},

	"youtube.api_key":   {"youtube_data_api", "YOUTUBE_DATA_API"},
	"youtube.page_size": {"YOUTUBE_PAGE_SIZE"},
	"youtube.base_url":  {"YOUTUBE_BASE_URL"},

	"instagram.user_id":           {"ig_user_id", "IG_USER_ID"},
	"instagram.long_access_token": {"long_access_token", "LONG_ACCESS_TOKEN"},
	"instagram.app_id":            {"app_id", "APP_ID"},
	"instagram.app_secret":        {"app_secret", "APP_SECRET"},
	"instagram.user_access_token": {"user_access_token", "USER_ACCESS_TOKEN"},
	"instagram.base_url":          {"INSTAGRAM_BASE_URL"},

	"gemini.api_key":  {"gemini_api_key", "GEMINI_API_KEY"},
	"gemini.model":    {"GEMINI_MODEL"},
	"gemini.base_url": {"GEMINI_BASE_URL"},

	"smtp.host":            {"SMTP_HOST"},
	"smtp.port":            {"SMTP_PORT"},
	"smtp.username":        {"sender_email_id", "SENDER_EMAIL_ID"},
	"smtp.password":        {"sender_email_id_password", "SENDER_EMAIL_ID_PASSWORD"},
	"smtp.confirm_signups": {"CONFIRM_SIGNUP_EMAIL"},

	"pipeline.fetch_window_hours":     {"FETCH_WINDOW_HOURS"},
	"pipeline.resend_policy":          {"RESEND_POLICY"},
	"pipeline.resend_threshold_hours": {"RESEND_THRESHOLD_HOURS"},
	"pipeline.sweep_schedule":         {"SWEEP_SCHEDULE"},

	"logging.level": {"LOG_LEVEL"},
	"http_timeout":  {"HTTP_TIMEOUT"},
}

// flagBindings maps command-line flag names to config keys.
var flagBindings = map[string]string{
	"port": "server.port",
	"db":   "server.db_path",
}

// Load reads configuration.
//
// envFile is loaded with godotenv if it exists; a missing file is not an
// error. Variables already set in the process environment win over the file.
// flags may be nil; when set, any of --port and --db that were changed on the
// command line override everything else.
func Load(envFile string, flags *pflag.FlagSet) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	v := viper.New()
	// SWEEP_SCHEDULE="" must be able to switch the sweep off
	v.AllowEmptyEnv(true)
	setDefaults(v)

	for key, envs := range envBindings {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	if flags != nil {
		for name, key := range flagBindings {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("binding flag --%s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Pipeline.ResendPolicy = strings.ToLower(strings.TrimSpace(cfg.Pipeline.ResendPolicy))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.db_path", "data/socialpulse.db")
	v.SetDefault("server.session_ttl", 12*time.Hour)
	v.SetDefault("server.secure_cookies", false)

	v.SetDefault("youtube.page_size", 50)

	v.SetDefault("instagram.base_url", "https://graph.facebook.com/v17.0")

	v.SetDefault("gemini.model", "gemini-1.5-flash")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")

	v.SetDefault("smtp.host", "smtp.gmail.com")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.confirm_signups", true)

	v.SetDefault("pipeline.fetch_window_hours", 48)
	v.SetDefault("pipeline.resend_policy", PolicyRecent)
	v.SetDefault("pipeline.resend_threshold_hours", 48)
	v.SetDefault("pipeline.sweep_schedule", "0 */6 * * *")

	v.SetDefault("logging.level", "info")
	v.SetDefault("http_timeout", 30*time.Second)
}

// Validate checks ranges and enumerations. Credentials are not required
// here: a missing key only disables the feature that needs it.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&c.Server.DBPath, validation.Required),
		validation.Field(&c.Server.SessionTTL, validation.Required, validation.Min(time.Minute)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := validation.ValidateStruct(&c.YouTube,
		// the playlistItems endpoint caps maxResults at 50
		validation.Field(&c.YouTube.PageSize, validation.Required, validation.Min(1), validation.Max(50)),
	); err != nil {
		return fmt.Errorf("youtube: %w", err)
	}
	if err := validation.ValidateStruct(&c.SMTP,
		validation.Field(&c.SMTP.Host, validation.Required),
		validation.Field(&c.SMTP.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("smtp: %w", err)
	}
	if err := validation.ValidateStruct(&c.Pipeline,
		validation.Field(&c.Pipeline.FetchWindowHours, validation.Required, validation.Min(1)),
		validation.Field(&c.Pipeline.ResendPolicy, validation.Required, validation.In(PolicyRecent, PolicyOverdue)),
		validation.Field(&c.Pipeline.ResendThresholdHours, validation.Required, validation.Min(1)),
	); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if err := validation.ValidateStruct(&c.Logging,
		validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
	); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.HTTPTimeout, validation.Required, validation.Min(time.Second)),
	)
}

// FetchWindow is the recency window applied to fetched content.
func (c *Config) FetchWindow() time.Duration {
	return time.Duration(c.Pipeline.FetchWindowHours) * time.Hour
}

// ResendThreshold is the sweep's elapsed-time threshold.
func (c *Config) ResendThreshold() time.Duration {
	return time.Duration(c.Pipeline.ResendThresholdHours) * time.Hour
}

// SlogLevel converts the configured level name.
func (c *Config) SlogLevel() slog.Level {
	switch c.Logging.Level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
