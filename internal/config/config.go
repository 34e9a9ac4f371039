package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ArowuTest/etherlotto-backend/internal/models"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/exp/slog"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	MongoDB  MongoDBConfig
	JWT      JWTConfig
	Lottery  LotteryConfig
	Store    string // mongo or memory
	LogLevel string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	AllowedOrigins []string
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn int // seconds
}

// LotteryConfig selects the game and who runs it
type LotteryConfig struct {
	Variant    string
	EntryFee   string // decimal ether, e.g. "0.003"
	Operator   string
	Randomness RandomnessConfig
}

// RandomnessConfig selects the randomness source
type RandomnessConfig struct {
	Source  string // crypto or hashchain
	Seed    string // hex, hashchain only
	Timeout time.Duration
	Retries int
}

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	SourceCrypto    = "crypto"
	SourceHashChain = "hashchain"

	envPrefix = "LOTTERY"
)

// Load reads .env (if present), an optional config.yaml and LOTTERY_* environment variables.
// Extra search paths for config.yaml may be given.
func Load(paths ...string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets default values for configuration.
// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "4000")
	v.SetDefault("Server.AllowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017")
	v.SetDefault("MongoDB.Database", "etherlotto")
	v.SetDefault("MongoDB.Timeout", 10*time.Second)
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*60*60) // 24 hours
	v.SetDefault("Lottery.Variant", string(models.VariantClosest))
	v.SetDefault("Lottery.EntryFee", "0.003")
	v.SetDefault("Lottery.Operator", "")
	v.SetDefault("Lottery.Randomness.Source", SourceCrypto)
	v.SetDefault("Lottery.Randomness.Seed", "")
	v.SetDefault("Lottery.Randomness.Timeout", 2*time.Second)
	v.SetDefault("Lottery.Randomness.Retries", 3)
	v.SetDefault("Store", StoreMongo)
	v.SetDefault("LogLevel", "info")
}

// Validate rejects configurations the service cannot start with
func (c *Config) Validate() error {
	switch models.Variant(c.Lottery.Variant) {
	case models.VariantExact, models.VariantClosest, models.VariantPartial:
	default:
		return fmt.Errorf("config: unknown lottery variant %q (want exact, closest or partial)", c.Lottery.Variant)
	}
	if strings.TrimSpace(c.Lottery.Operator) == "" {
		return errors.New("config: Lottery.Operator is required")
	}
	fee, err := c.EntryFeeWei()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if fee <= 0 {
		return fmt.Errorf("config: entry fee must be positive, got %s", c.Lottery.EntryFee)
	}
	switch c.Store {
	case StoreMongo, StoreMemory:
	default:
		return fmt.Errorf("config: unknown store %q (want mongo or memory)", c.Store)
	}
	switch c.Lottery.Randomness.Source {
	case SourceCrypto:
	case SourceHashChain:
		if c.Lottery.Randomness.Seed == "" {
			return errors.New("config: hashchain randomness needs Lottery.Randomness.Seed")
		}
	default:
		return fmt.Errorf("config: unknown randomness source %q (want crypto or hashchain)", c.Lottery.Randomness.Source)
	}
	if c.Lottery.Randomness.Retries < 0 {
		return errors.New("config: randomness retries cannot be negative")
	}
	return nil
}

// EntryFeeWei returns the entry fee in wei
func (c *Config) EntryFeeWei() (models.Amount, error) {
	return models.ParseEther(c.Lottery.EntryFee)
}

// TokenTTL is the lifetime of issued bearer tokens
func (c *Config) TokenTTL() time.Duration {
	return time.Duration(c.JWT.ExpiresIn) * time.Second
}

// SlogLevel maps LogLevel onto a slog level, defaulting to info
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
