// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/rovshanmuradov/launchpad/internal/curve"
	"github.com/rovshanmuradov/launchpad/internal/domain"
	"github.com/rovshanmuradov/launchpad/internal/fixedpoint"
	"github.com/rovshanmuradov/launchpad/internal/registry"
	"github.com/rovshanmuradov/launchpad/internal/utils/logger"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Store  StoreConfig  `mapstructure:"store"`
	Launch LaunchConfig `mapstructure:"launch"`
	AMM    AMMConfig    `mapstructure:"amm"`
	Log    LogConfig    `mapstructure:"log"`
	Events EventsConfig `mapstructure:"events"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	Path       string `mapstructure:"path"`
	SyncWrites bool   `mapstructure:"sync_writes"`
}

// LaunchConfig holds launch terms. Amounts are base-10 integers in base
// units so no float ever reaches the curve.
type LaunchConfig struct {
	CreationFee       string `mapstructure:"creation_fee"`
	InitialAllocation string `mapstructure:"initial_allocation"`
	CurveCap          string `mapstructure:"curve_cap"`
	FundingGoal       string `mapstructure:"funding_goal"`
	BasePrice         string `mapstructure:"base_price"`
	SlopeNumerator    string `mapstructure:"slope_numerator"`
	SlopeDenominator  string `mapstructure:"slope_denominator"`
	FeeBps            uint32 `mapstructure:"fee_bps"`
	CurrencyDecimals  uint8  `mapstructure:"currency_decimals"`
	ProgramID         string `mapstructure:"program_id"`
	BurnAddress       string `mapstructure:"burn_address"`
}

type AMMConfig struct {
	Driver     string        `mapstructure:"driver"`
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
	FeeBps     uint32        `mapstructure:"fee_bps"`
}

type LogConfig struct {
	File        string `mapstructure:"file"`
	Development bool   `mapstructure:"development"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxBackups  int    `mapstructure:"max_backups"`
}

type EventsConfig struct {
	BufferSize int `mapstructure:"buffer_size"`
	// JournalFile, when set, receives every settled trade as a CSV row.
	JournalFile  string        `mapstructure:"journal_file"`
	JournalFlush time.Duration `mapstructure:"journal_flush"`
}

const (
	StoreMemory = "memory"
	StoreBadger = "badger"
	StoreSQLite = "sqlite"

	AMMLocal  = "local"
	AMMRemote = "remote"

	EnvPrefix = "LAUNCHPAD"

	DefaultAddr            = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultStorePath       = "data/launchpad"
	DefaultProgramID       = "6EF8rrecthR5Dkzon8Nwu78hRvfCKubJ14M5uBEwF6P"
	DefaultFeeBps          = 100
	DefaultAMMFeeBps       = 25
	DefaultAMMTimeout      = 10 * time.Second
	DefaultAMMRetries      = 3
	DefaultBufferSize      = 256
	DefaultJournalFlush    = 5 * time.Second
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"server.addr":             DefaultAddr,
		"server.cors_origins":     []string{"*"},
		"server.shutdown_timeout": DefaultShutdownTimeout,

		"store.driver":      StoreBadger,
		"store.path":        DefaultStorePath,
		"store.sync_writes": true,

		"launch.creation_fee":       "500000000000000000",
		"launch.initial_allocation": "200000",
		"launch.curve_cap":          "800000",
		"launch.funding_goal":       "90000000000000000000000",
		"launch.base_price":         "10000000000000",
		"launch.slope_numerator":    "600000",
		"launch.slope_denominator":  "1",
		"launch.fee_bps":            DefaultFeeBps,
		"launch.currency_decimals":  18,
		"launch.program_id":         DefaultProgramID,
		"launch.burn_address":       domain.BurnAddress.String(),

		"amm.driver":      AMMLocal,
		"amm.url":         "",
		"amm.timeout":     DefaultAMMTimeout,
		"amm.max_retries": DefaultAMMRetries,
		"amm.fee_bps":     DefaultAMMFeeBps,

		"log.file":        "launchpad.log",
		"log.development": false,
		"log.max_size":    100,
		"log.max_age":     7,
		"log.max_backups": 3,

		"events.buffer_size":   DefaultBufferSize,
		"events.journal_file":  "",
		"events.journal_flush": DefaultJournalFlush,
	}
}

// LoadConfig reads path (if non-empty), applies defaults and LAUNCHPAD_*
// environment overrides, and validates the result. A .env file in the
// working directory is loaded first when present.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	loadEnvironmentVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Server.CORSOrigins = cleanList(cfg.Server.CORSOrigins)

	return &cfg, cfg.Validate()
}

func loadEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

func cleanList(items []string) []string {
	var out []string
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if clean := strings.TrimSpace(part); clean != "" {
				out = append(out, clean)
			}
		}
	}
	return out
}

// Validate checks every section and that the launch terms describe a
// reachable funding goal.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is empty")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("invalid server.shutdown_timeout")
	}
	switch c.Store.Driver {
	case StoreMemory:
	case StoreBadger, StoreSQLite:
		if c.Store.Path == "" {
			return fmt.Errorf("store.path is required for the %s driver", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.AMM.Driver {
	case AMMLocal:
	case AMMRemote:
		if err := validateURLWithCache(c.AMM.URL, "http"); err != nil {
			return fmt.Errorf("amm.url: %w", err)
		}
	default:
		return fmt.Errorf("unknown amm.driver %q", c.AMM.Driver)
	}
	if err := validateNumericParams(c); err != nil {
		return err
	}
	if _, err := c.BurnAddress(); err != nil {
		return fmt.Errorf("launch.burn_address: %w", err)
	}
	params, err := c.LaunchParams()
	if err != nil {
		return err
	}
	return params.Validate()
}

func validateNumericParams(c *Config) error {
	if c.Launch.FeeBps >= curve.BasisPoints {
		return errors.New("launch.fee_bps must be below 10000")
	}
	if c.AMM.FeeBps >= curve.BasisPoints {
		return errors.New("amm.fee_bps must be below 10000")
	}
	if c.AMM.Timeout <= 0 {
		return errors.New("invalid amm.timeout")
	}
	if c.AMM.MaxRetries < 0 {
		return errors.New("invalid amm.max_retries")
	}
	if c.Events.BufferSize <= 0 {
		return errors.New("invalid events.buffer_size")
	}
	if c.Events.JournalFile != "" && c.Events.JournalFlush <= 0 {
		return errors.New("invalid events.journal_flush")
	}
	if c.Log.MaxSize < 0 || c.Log.MaxAge < 0 || c.Log.MaxBackups < 0 {
		return errors.New("invalid log rotation settings")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

// LaunchParams parses the launch section into registry terms.
func (c *Config) LaunchParams() (registry.Params, error) {
	l := c.Launch
	var p registry.Params
	fields := []struct {
		key   string
		value string
		dst   *fixedpoint.Amount
	}{
		{"creation_fee", l.CreationFee, &p.CreationFee},
		{"initial_allocation", l.InitialAllocation, &p.InitialAllocation},
		{"funding_goal", l.FundingGoal, &p.FundingGoal},
		{"curve_cap", l.CurveCap, &p.Curve.Cap},
		{"base_price", l.BasePrice, &p.Curve.BasePrice},
		{"slope_numerator", l.SlopeNumerator, &p.Curve.SlopeNumerator},
		{"slope_denominator", l.SlopeDenominator, &p.Curve.SlopeDenominator},
	}

	for _, f := range fields {
		amount, err := fixedpoint.Parse(f.value)
		if err != nil {
			return registry.Params{}, fmt.Errorf("launch.%s: %w", f.key, err)
		}
		*f.dst = amount
	}
	p.Curve.FeeBps = l.FeeBps

	programID, err := domain.ParseAddress(l.ProgramID)
	if err != nil {
		return registry.Params{}, fmt.Errorf("launch.program_id: %w", err)
	}
	p.ProgramID = programID
	return p, nil
}

// BurnAddress is where graduated LP stakes are sent.
func (c *Config) BurnAddress() (solana.PublicKey, error) {
	return domain.ParseAddress(c.Launch.BurnAddress)
}

// LoggerConfig maps the log section onto the logger package.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		LogFile:     c.Log.File,
		MaxSize:     c.Log.MaxSize,
		MaxAge:      c.Log.MaxAge,
		MaxBackups:  c.Log.MaxBackups,
		Compress:    true,
		Development: c.Log.Development,
	}
}
