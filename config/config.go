package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. RMCS_SERVER_HTTP_ADDRESS.
const EnvPrefix = "RMCS"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string        `mapstructure:"http_address"`
	RPCAddress     string        `mapstructure:"rpc_address"`
	PublicURL      string        `mapstructure:"public_url"`
	MetricsRefresh time.Duration `mapstructure:"metrics_refresh"`
}

type DatabaseConfig struct {
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type RedisConfig struct {
	Addr  string `mapstructure:"addr"`
	DB    int    `mapstructure:"db"`
	Queue string `mapstructure:"queue"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// flagKeys maps command line flags onto config keys.
var flagKeys = map[string]string{
	"http":       "server.http_address",
	"rpc":        "server.rpc_address",
	"public-url": "server.public_url",
	"db-driver":  "database.driver",
	"redis":      "redis.addr",
	"log-level":  "log.level",
	"dev":        "log.development",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":9090")
	v.SetDefault("server.public_url", "http://localhost:8080")
	v.SetDefault("server.metrics_refresh", 15*time.Second)

	v.SetDefault("database.driver", "memory")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "rajamantri")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.queue", "rmcs_events")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}

// LoadConfig reads config.yaml from path if present, then environment overrides,
// then any flags in fs that were set explicitly.
func LoadConfig(path string, fs *pflag.FlagSet) (config *Config, err error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	if fs != nil {
		for name, key := range flagKeys {
			if f := fs.Lookup(name); f != nil {
				if err = v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "memory", "gorm", "postgres":
	default:
		return fmt.Errorf("invalid database driver %q (want memory, gorm or postgres)", c.Database.Driver)
	}
	if c.Database.Driver != "memory" && (c.Database.Postgres.Port < 1 || c.Database.Postgres.Port > 65535) {
		return fmt.Errorf("invalid postgres port: %d", c.Database.Postgres.Port)
	}
	if c.Server.HTTPAddress == "" {
		return errors.New("server.http_address is required")
	}
	if c.Server.MetricsRefresh <= 0 {
		return fmt.Errorf("server.metrics_refresh must be positive, got %s", c.Server.MetricsRefresh)
	}
	return nil
}

// RegisterFlags adds the flags LoadConfig understands to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", ".", "directory containing config.yaml")
	fs.String("http", ":8080", "HTTP listen address (env: RMCS_SERVER_HTTP_ADDRESS)")
	fs.String("rpc", ":9090", "gRPC listen address, empty to disable (env: RMCS_SERVER_RPC_ADDRESS)")
	fs.String("public-url", "http://localhost:8080", "base URL used in room QR codes (env: RMCS_SERVER_PUBLIC_URL)")
	fs.String("db-driver", "memory", "storage driver: memory, gorm or postgres (env: RMCS_DATABASE_DRIVER)")
	fs.String("redis", "", "redis address for the event queue, empty to disable (env: RMCS_REDIS_ADDR)")
	fs.String("log-level", "info", "log level (env: RMCS_LOG_LEVEL)")
	fs.Bool("dev", false, "development logging (env: RMCS_LOG_DEVELOPMENT)")
}
