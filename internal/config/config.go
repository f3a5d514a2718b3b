package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where init writes and run looks when --config is not set.
const DefaultPath = "deadticker.yaml"

// Config is the bot's configuration.
type Config struct {
	App         AppConfig         `yaml:"app" mapstructure:"app"`
	Credentials CredentialsConfig `yaml:"credentials" mapstructure:"credentials"`
	API         APIConfig         `yaml:"api" mapstructure:"api"`
	Store       StoreConfig       `yaml:"store" mapstructure:"store"`
	Limits      LimitsConfig      `yaml:"limits" mapstructure:"limits"`
	Poll        PollConfig        `yaml:"poll" mapstructure:"poll"`
	Render      RenderConfig      `yaml:"render" mapstructure:"render"`
	Market      MarketConfig      `yaml:"market" mapstructure:"market"`
	Moderation  ModerationConfig  `yaml:"moderation" mapstructure:"moderation"`
	Replies     RepliesConfig     `yaml:"replies" mapstructure:"replies"`
}

type AppConfig struct {
	// "production" selects JSON logs
	Env         string `yaml:"env" mapstructure:"env"`
	LogLevel    string `yaml:"logLevel" mapstructure:"logLevel"`
	MetricsAddr string `yaml:"metricsAddr" mapstructure:"metricsAddr"`
}

type CredentialsConfig struct {
	// App-only bearer for reads. If empty, read from env X_BEARER_TOKEN
	BearerToken string `yaml:"bearerToken" mapstructure:"bearerToken"`
	// OAuth1.0a user keys, required for uploads and replies
	ConsumerKey    string `yaml:"consumerKey" mapstructure:"consumerKey"`
	ConsumerSecret string `yaml:"consumerSecret" mapstructure:"consumerSecret"`
	AccessToken    string `yaml:"accessToken" mapstructure:"accessToken"`
	AccessSecret   string `yaml:"accessSecret" mapstructure:"accessSecret"`
}

type APIConfig struct {
	BaseURL     string        `yaml:"baseURL" mapstructure:"baseURL"`
	UploadURL   string        `yaml:"uploadURL" mapstructure:"uploadURL"`
	RPS         float64       `yaml:"rps" mapstructure:"rps"`
	Burst       int           `yaml:"burst" mapstructure:"burst"`
	MaxAttempts int           `yaml:"maxAttempts" mapstructure:"maxAttempts"`
	BaseBackoff time.Duration `yaml:"baseBackoff" mapstructure:"baseBackoff"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type StoreConfig struct {
	// "redis" or "sqlite"
	Driver string `yaml:"driver" mapstructure:"driver"`
	// If empty, read from env REDIS_URL
	RedisURL   string `yaml:"redisURL" mapstructure:"redisURL"`
	SQLitePath string `yaml:"sqlitePath" mapstructure:"sqlitePath"`
	// Every key is stored as "<prefix>:<key>"
	Prefix string `yaml:"prefix" mapstructure:"prefix"`
}

type LimitsConfig struct {
	GlobalPerMinute     int           `yaml:"globalPerMinute" mapstructure:"globalPerMinute"`
	ImageCooldown       time.Duration `yaml:"imageCooldown" mapstructure:"imageCooldown"`
	InstructionCooldown time.Duration `yaml:"instructionCooldown" mapstructure:"instructionCooldown"`
}

type PollConfig struct {
	BaseInterval time.Duration `yaml:"baseInterval" mapstructure:"baseInterval"`
	MaxInterval  time.Duration `yaml:"maxInterval" mapstructure:"maxInterval"`
	// Pause after every reply and between mentions of a batch
	ReplyInterval time.Duration `yaml:"replyInterval" mapstructure:"replyInterval"`
	ErrorBackoff  time.Duration `yaml:"errorBackoff" mapstructure:"errorBackoff"`
}

type RenderConfig struct {
	TemplateDir string `yaml:"templateDir" mapstructure:"templateDir"`
	// Optional TTF paths; the bundled Go fonts are used when empty
	RegularFont string `yaml:"regularFont" mapstructure:"regularFont"`
	BoldFont    string `yaml:"boldFont" mapstructure:"boldFont"`
}

type MarketConfig struct {
	BaseURL string        `yaml:"baseURL" mapstructure:"baseURL"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

type ModerationConfig struct {
	// Extra case-insensitive substrings on top of the built-in list
	Blocklist []string `yaml:"blocklist" mapstructure:"blocklist"`
}

type RepliesConfig struct {
	InstructOnMissingSubject bool `yaml:"instructOnMissingSubject" mapstructure:"instructOnMissingSubject"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		App: AppConfig{Env: "development", LogLevel: "info", MetricsAddr: ""},
		API: APIConfig{
			BaseURL:     "https://api.twitter.com/2",
			UploadURL:   "https://upload.twitter.com/1.1/media/upload.json",
			RPS:         2,
			Burst:       10,
			MaxAttempts: 5,
			BaseBackoff: 500 * time.Millisecond,
			Timeout:     15 * time.Second,
		},
		Store: StoreConfig{Driver: "redis", RedisURL: "", SQLitePath: "./deadticker.db", Prefix: "deadticker"},
		Limits: LimitsConfig{
			GlobalPerMinute:     20,
			ImageCooldown:       2 * time.Minute,
			InstructionCooldown: 24 * time.Hour,
		},
		Poll: PollConfig{
			BaseInterval:  30 * time.Second,
			MaxInterval:   5 * time.Minute,
			ReplyInterval: 2 * time.Second,
			ErrorBackoff:  10 * time.Second,
		},
		Render:     RenderConfig{TemplateDir: "assets/templates"},
		Market:     MarketConfig{BaseURL: "https://api.dexscreener.com", Timeout: 10 * time.Second},
		Moderation: ModerationConfig{Blocklist: []string{}},
	}
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("app.env", d.App.Env)
	v.SetDefault("app.logLevel", d.App.LogLevel)
	v.SetDefault("app.metricsAddr", d.App.MetricsAddr)
	v.SetDefault("credentials.bearerToken", "")
	v.SetDefault("credentials.consumerKey", "")
	v.SetDefault("credentials.consumerSecret", "")
	v.SetDefault("credentials.accessToken", "")
	v.SetDefault("credentials.accessSecret", "")
	v.SetDefault("api.baseURL", d.API.BaseURL)
	v.SetDefault("api.uploadURL", d.API.UploadURL)
	v.SetDefault("api.rps", d.API.RPS)
	v.SetDefault("api.burst", d.API.Burst)
	v.SetDefault("api.maxAttempts", d.API.MaxAttempts)
	v.SetDefault("api.baseBackoff", d.API.BaseBackoff)
	v.SetDefault("api.timeout", d.API.Timeout)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.redisURL", d.Store.RedisURL)
	v.SetDefault("store.sqlitePath", d.Store.SQLitePath)
	v.SetDefault("store.prefix", d.Store.Prefix)
	v.SetDefault("limits.globalPerMinute", d.Limits.GlobalPerMinute)
	v.SetDefault("limits.imageCooldown", d.Limits.ImageCooldown)
	v.SetDefault("limits.instructionCooldown", d.Limits.InstructionCooldown)
	v.SetDefault("poll.baseInterval", d.Poll.BaseInterval)
	v.SetDefault("poll.maxInterval", d.Poll.MaxInterval)
	v.SetDefault("poll.replyInterval", d.Poll.ReplyInterval)
	v.SetDefault("poll.errorBackoff", d.Poll.ErrorBackoff)
	v.SetDefault("render.templateDir", d.Render.TemplateDir)
	v.SetDefault("render.regularFont", d.Render.RegularFont)
	v.SetDefault("render.boldFont", d.Render.BoldFont)
	v.SetDefault("market.baseURL", d.Market.BaseURL)
	v.SetDefault("market.timeout", d.Market.Timeout)
	v.SetDefault("moderation.blocklist", d.Moderation.Blocklist)
	v.SetDefault("replies.instructOnMissingSubject", d.Replies.InstructOnMissingSubject)
}

// ResolveEnv fills in config fields from environment variables if not set.
func (c *Config) ResolveEnv() {
	if c.Credentials.BearerToken == "" {
		c.Credentials.BearerToken = os.Getenv("X_BEARER_TOKEN")
	}
	if c.Credentials.ConsumerKey == "" {
		c.Credentials.ConsumerKey = os.Getenv("X_CONSUMER_KEY")
	}
	if c.Credentials.ConsumerSecret == "" {
		c.Credentials.ConsumerSecret = os.Getenv("X_CONSUMER_SECRET")
	}
	if c.Credentials.AccessToken == "" {
		c.Credentials.AccessToken = os.Getenv("X_ACCESS_TOKEN")
	}
	if c.Credentials.AccessSecret == "" {
		c.Credentials.AccessSecret = os.Getenv("X_ACCESS_SECRET")
	}
	if c.Store.RedisURL == "" {
		c.Store.RedisURL = os.Getenv("REDIS_URL")
	}
}

// Load reads YAML config from path (or DefaultPath in . and ./config when
// path is empty), applies DEADTICKER_* env overrides such as
// DEADTICKER_LIMITS_GLOBALPERMINUTE, then the credential fallbacks. A missing
// file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultPath, filepath.Ext(DefaultPath)))
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}
	v.SetEnvPrefix("DEADTICKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, Default())

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.ResolveEnv()
	return cfg, nil
}

// Save writes YAML config to path, creating directories as needed.
func Save(path string, cfg Config) error {
	if path == "" {
		return errors.New("empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// Validate reports every setting the bot cannot run without.
func (c Config) Validate() error {
	var errs []error
	need := func(v, name string) {
		if strings.TrimSpace(v) == "" {
			errs = append(errs, fmt.Errorf("%s is required", name))
		}
	}
	need(c.Credentials.ConsumerKey, "credentials.consumerKey")
	need(c.Credentials.ConsumerSecret, "credentials.consumerSecret")
	need(c.Credentials.AccessToken, "credentials.accessToken")
	need(c.Credentials.AccessSecret, "credentials.accessSecret")
	switch c.Store.Driver {
	case "redis":
		need(c.Store.RedisURL, "store.redisURL")
	case "sqlite":
		need(c.Store.SQLitePath, "store.sqlitePath")
	default:
		errs = append(errs, fmt.Errorf("store.driver %q must be redis or sqlite", c.Store.Driver))
	}
	if c.Limits.GlobalPerMinute <= 0 {
		errs = append(errs, errors.New("limits.globalPerMinute must be positive"))
	}
	if c.Poll.BaseInterval <= 0 || c.Poll.MaxInterval < c.Poll.BaseInterval {
		errs = append(errs, errors.New("poll intervals must be positive with maxInterval >= baseInterval"))
	}
	return errors.Join(errs...)
}
