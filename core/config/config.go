package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings that are common for all bots.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Stacks      string `yaml:"stacks"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	ErrorsFile  string `yaml:"errors_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// UpdateCallback identifies callback updates for rate limit exclusions.
	UpdateCallback = "callback"
	// UpdateMessage identifies message updates for rate limit exclusions.
	UpdateMessage = "message"
	// UpdateInlineQuery identifies inline query updates for rate limit exclusions.
	UpdateInlineQuery = "inline_query"
)

// RateLimitConfig holds settings for rate limiting.
// ExcludeUpdates accepts update types to bypass limiting:
// - "callback": Telegram callback button presses
// - "message": standard text messages
// - "inline_query": inline query updates
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// ConversationConfig controls how long the bot waits for user input.
type ConversationConfig struct {
	InputTimeoutSeconds int `yaml:"input_timeout_seconds" envconfig:"CONVERSATION_INPUT_TIMEOUT_SECONDS"`
	// DispatchResolved routes a message to its handler even when it already
	// answered a pending prompt.
	DispatchResolved bool `yaml:"dispatch_resolved" envconfig:"CONVERSATION_DISPATCH_RESOLVED"`
}

// InputTimeout returns the prompt timeout as a duration.
func (c ConversationConfig) InputTimeout() time.Duration {
	return time.Duration(c.InputTimeoutSeconds) * time.Second
}

// SessionsConfig controls the per-user wallet session cache.
type SessionsConfig struct {
	SlidingSeconds  int `yaml:"sliding_seconds" envconfig:"SESSIONS_SLIDING_SECONDS"`
	AbsoluteSeconds int `yaml:"absolute_seconds" envconfig:"SESSIONS_ABSOLUTE_SECONDS"`
	SweepSeconds    int `yaml:"sweep_seconds" envconfig:"SESSIONS_SWEEP_SECONDS"`
}

// Sliding returns the sliding TTL.
func (c SessionsConfig) Sliding() time.Duration {
	return time.Duration(c.SlidingSeconds) * time.Second
}

// Absolute returns the absolute TTL; zero disables it.
func (c SessionsConfig) Absolute() time.Duration {
	return time.Duration(c.AbsoluteSeconds) * time.Second
}

// SweepInterval returns the minimum time between background sweeps.
func (c SessionsConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepSeconds) * time.Second
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// SQLiteConfig holds the SQLite database location.
type SQLiteConfig struct {
	Path string `yaml:"path" envconfig:"SQLITE_PATH"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB"`
}

const (
	// StorageMemory keeps session state in process memory.
	StorageMemory = "memory"
	// StoragePostgres keeps session state in PostgreSQL.
	StoragePostgres = "postgres"
	// StorageSQLite keeps session state in a SQLite file.
	StorageSQLite = "sqlite"
	// StorageRedis keeps session state in Redis.
	StorageRedis = "redis"
)

// StorageConfig selects the key-value backend for wallet session state.
type StorageConfig struct {
	Driver   string         `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Postgres DatabaseConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Redis    RedisConfig    `yaml:"redis"`
}

// StakingConfig describes the staking contract and the token it accepts.
type StakingConfig struct {
	ManifestURL    string  `yaml:"manifest_url" envconfig:"TONCONNECT_MANIFEST_URL"`
	StakingAddress string  `yaml:"staking_address" envconfig:"STAKING_ADDRESS"`
	TokenAddress   string  `yaml:"token_address" envconfig:"TOKEN_ADDRESS"`
	TokenSymbol    string  `yaml:"token_symbol" envconfig:"TOKEN_SYMBOL"`
	TokenDecimals  int     `yaml:"token_decimals" envconfig:"TOKEN_DECIMALS"`
	MinLockupDays  int     `yaml:"min_lockup_days" envconfig:"STAKING_MIN_LOCKUP_DAYS"`
	MaxLockupDays  int     `yaml:"max_lockup_days" envconfig:"STAKING_MAX_LOCKUP_DAYS"`
	MinStake       float64 `yaml:"min_stake" envconfig:"STAKING_MIN_STAKE"`
	// MaxAPY is the yearly reward in percent paid while the reward pool
	// holds at least BaseRewardPool tokens.
	MaxAPY         float64 `yaml:"max_apy" envconfig:"STAKING_MAX_APY"`
	RewardPool     float64 `yaml:"reward_pool" envconfig:"STAKING_REWARD_POOL"`
	BaseRewardPool float64 `yaml:"base_reward_pool" envconfig:"STAKING_BASE_REWARD_POOL"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram     TelegramConfig     `yaml:"telegram"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Logging      LoggingConfig      `yaml:"logging"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Conversation ConversationConfig `yaml:"conversation"`
	Sessions     SessionsConfig     `yaml:"sessions"`
	Storage      StorageConfig      `yaml:"storage"`
	Staking      StakingConfig      `yaml:"staking"`
}

// CoreConfig returns c itself so the runner can accept wrapping configs.
func (c *Config) CoreConfig() *Config { return c }

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	allowed := map[string]struct{}{
		UpdateCallback:    {},
		UpdateMessage:     {},
		UpdateInlineQuery: {},
	}
	for i, v := range cfg.RateLimit.ExcludeUpdates {
		key := strings.ToLower(strings.TrimSpace(v))
		if key == "" {
			continue
		}
		if _, ok := allowed[key]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_updates value %q; allowed: callback, message, inline_query", v)
		}
		cfg.RateLimit.ExcludeUpdates[i] = key
	}

	if err := normalizeConversation(&cfg.Conversation); err != nil {
		return err
	}
	if err := normalizeSessions(&cfg.Sessions); err != nil {
		return err
	}
	if err := normalizeStorage(&cfg.Storage); err != nil {
		return err
	}
	return normalizeStaking(&cfg.Staking)
}

func normalizeConversation(c *ConversationConfig) error {
	if c.InputTimeoutSeconds < 0 {
		return fmt.Errorf("conversation.input_timeout_seconds must be >= 0")
	}
	if c.InputTimeoutSeconds == 0 {
		c.InputTimeoutSeconds = 300
	}
	return nil
}

func normalizeSessions(c *SessionsConfig) error {
	if c.SlidingSeconds < 0 || c.AbsoluteSeconds < 0 || c.SweepSeconds < 0 {
		return fmt.Errorf("sessions durations must be >= 0")
	}
	if c.SlidingSeconds == 0 {
		c.SlidingSeconds = 120
	}
	if c.SweepSeconds == 0 {
		c.SweepSeconds = 600
	}
	return nil
}

func normalizeStorage(c *StorageConfig) error {
	driver := strings.ToLower(strings.TrimSpace(c.Driver))
	if driver == "" {
		driver = StorageMemory
	}
	switch driver {
	case StorageMemory:
	case StoragePostgres:
		if strings.TrimSpace(c.Postgres.Host) == "" || strings.TrimSpace(c.Postgres.Name) == "" {
			return fmt.Errorf("storage.postgres.host and storage.postgres.name are required for driver 'postgres'")
		}
		if c.Postgres.Port == "" {
			c.Postgres.Port = "5432"
		}
		if c.Postgres.SSLMode == "" {
			c.Postgres.SSLMode = "disable"
		}
		if c.Postgres.MaxConnections <= 0 {
			c.Postgres.MaxConnections = 5
		}
	case StorageSQLite:
		if strings.TrimSpace(c.SQLite.Path) == "" {
			c.SQLite.Path = "openspace.db"
		}
	case StorageRedis:
		if strings.TrimSpace(c.Redis.Addr) == "" {
			return fmt.Errorf("storage.redis.addr is required for driver 'redis'")
		}
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: memory, postgres, sqlite, redis", c.Driver)
	}
	c.Driver = driver
	return nil
}

func normalizeStaking(c *StakingConfig) error {
	if strings.TrimSpace(c.StakingAddress) == "" {
		return fmt.Errorf("staking.staking_address is required")
	}
	if c.TokenDecimals < 0 || c.TokenDecimals > 18 {
		return fmt.Errorf("staking.token_decimals must be within [0, 18]")
	}
	if c.TokenDecimals == 0 {
		c.TokenDecimals = 9
	}
	if c.TokenSymbol == "" {
		c.TokenSymbol = "OPEN"
	}
	if c.MinLockupDays <= 0 {
		c.MinLockupDays = 1
	}
	if c.MaxLockupDays == 0 {
		c.MaxLockupDays = 365
	}
	if c.MaxLockupDays < c.MinLockupDays {
		return fmt.Errorf("staking.max_lockup_days must be >= staking.min_lockup_days")
	}
	if c.MinStake < 0 {
		return fmt.Errorf("staking.min_stake must be >= 0")
	}
	if c.MaxAPY < 0 || c.RewardPool < 0 || c.BaseRewardPool < 0 {
		return fmt.Errorf("staking.max_apy and reward pools must be >= 0")
	}
	return nil
}
