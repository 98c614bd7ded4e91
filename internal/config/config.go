package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type AppConfig struct {
	ENV string `default:"production"`
}

type LogConfig struct {
	Level     string `default:"info"`
	Format    string `default:"text"`
	Component string `default:"match_engine"`
	Source    bool   `default:"false"`
}

// DBConfig selects the ledger backend. DSN wins over the host parts when set.
type DBConfig struct {
	Driver   string `default:"mysql"`
	DSN      string
	Host     string `default:"localhost"`
	Port     string `default:"3306"`
	User     string `default:"root"`
	Password string `default:"root"`
	Name     string `default:"match_engine"`
	LogSQL   bool   `split_words:"true" default:"false"`
}

type RedisConfig struct {
	Addr     string `default:"localhost:6379"`
	Password string
	DB       int `default:"0"`
}

type GRPCConfig struct {
	Host string `default:"127.0.0.1"`
	Port string `default:"50051"`
}

type MatchConfig struct {
	TxTimeout            time.Duration `split_words:"true" default:"5s"`
	FreeLikesPerDay      int           `split_words:"true" default:"10"`
	FreeSuperLikesPerDay int           `split_words:"true" default:"1"`
	QuotaTimezone        string        `split_words:"true" default:"Local"`
}

type DiscoveryConfig struct {
	CacheTTL     time.Duration `split_words:"true" default:"60s"`
	CacheWindow  int           `split_words:"true" default:"200"`
	DefaultLimit int           `split_words:"true" default:"20"`
	MaxLimit     int           `split_words:"true" default:"50"`
}

type NotifyConfig struct {
	Sink      string `default:"redis"`
	Workers   int    `default:"4"`
	QueueSize int    `split_words:"true" default:"1024"`
}

type Config struct {
	App       AppConfig       `envconfig:"APP"`
	Log       LogConfig       `envconfig:"LOG"`
	DB        DBConfig        `envconfig:"DB"`
	Redis     RedisConfig     `envconfig:"REDIS"`
	GRPC      GRPCConfig      `envconfig:"GRPC"`
	Match     MatchConfig     `envconfig:"MATCH"`
	Discovery DiscoveryConfig `envconfig:"DISCOVERY"`
	Notify    NotifyConfig    `envconfig:"NOTIFY"`
}

// Load reads the environment into Config and resolves derived values.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	cfg.DB.Driver = strings.ToLower(strings.TrimSpace(cfg.DB.Driver))
	if cfg.DB.DSN == "" {
		switch cfg.DB.Driver {
		case "sqlite":
			cfg.DB.DSN = "file:match_engine.db?_foreign_keys=on"
		default:
			cfg.DB.DSN = fmt.Sprintf(
				"%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
				cfg.DB.User, cfg.DB.Password, cfg.DB.Host, cfg.DB.Port, cfg.DB.Name,
			)
		}
	}

	if cfg.Discovery.DefaultLimit <= 0 {
		cfg.Discovery.DefaultLimit = 20
	}
	if cfg.Discovery.MaxLimit < cfg.Discovery.DefaultLimit {
		cfg.Discovery.MaxLimit = cfg.Discovery.DefaultLimit
	}
	if cfg.Discovery.CacheWindow < cfg.Discovery.MaxLimit {
		cfg.Discovery.CacheWindow = cfg.Discovery.MaxLimit
	}

	return cfg, nil
}

// MustLoad is Load for entrypoints with nothing better to do than exit.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// QuotaLocation resolves the calendar used for daily quota boundaries.
func (c *Config) QuotaLocation() *time.Location {
	name := strings.TrimSpace(c.Match.QuotaTimezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.Local
	}
	return loc
}

// IsDevelopment reports whether demo data should be seeded on start.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.App.ENV, "development")
}
