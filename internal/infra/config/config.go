package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

type Config struct {
	App struct {
		Env      string
		Timezone string
	} `mapstructure:"app"`

	Log struct {
		Level string
	} `mapstructure:"log"`

	HTTP struct {
		Addr string
	} `mapstructure:"http"`

	GRPC struct {
		Addr string
	} `mapstructure:"grpc"`

	Storage struct {
		// Driver is "mysql" or "memory"
		Driver string
	} `mapstructure:"storage"`

	MySQL struct {
		DSN             string
		MaxOpenConns    int           `mapstructure:"max_open_conns"`
		MaxIdleConns    int           `mapstructure:"max_idle_conns"`
		ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
		Migrate         bool
	} `mapstructure:"mysql"`

	Redis struct {
		Enabled  bool
		Addr     string
		PoolSize int           `mapstructure:"pool_size"`
		StatsTTL time.Duration `mapstructure:"stats_ttl"`
	} `mapstructure:"redis"`

	Kafka struct {
		Enabled bool
		Brokers []string
		Topic   string
	} `mapstructure:"kafka"`

	Promotion struct {
		FailurePolicy string `mapstructure:"failure_policy"`
	} `mapstructure:"promotion"`

	Reminders struct {
		Enabled  bool
		Interval time.Duration
	} `mapstructure:"reminders"`

	Metrics struct {
		Enabled bool
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.env", "prod")
	v.SetDefault("app.timezone", "UTC")
	v.SetDefault("log.level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("grpc.addr", ":50051")
	v.SetDefault("storage.driver", "mysql")
	v.SetDefault("mysql.dsn", "root:root@tcp(localhost:3306)/maintenance?parseTime=true")
	v.SetDefault("mysql.max_open_conns", 50)
	v.SetDefault("mysql.max_idle_conns", 25)
	v.SetDefault("mysql.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("mysql.migrate", true)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 100)
	v.SetDefault("redis.stats_ttl", time.Minute)
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "maintenance-events")
	v.SetDefault("promotion.failure_policy", "atomic")
	v.SetDefault("reminders.enabled", true)
	v.SetDefault("reminders.interval", time.Hour)
	v.SetDefault("metrics.enabled", true)
}

// Load reads the YAML file at path, then lets APP_* environment variables
// (optionally from a .env file next to the binary) override it. A missing
// file is not an error; defaults apply.
func Load(path string) (Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := gotenv.Load(".env"); err != nil {
			return Config{}, fmt.Errorf("load .env: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return c, err
		}
	}
	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}
	return c, c.validate()
}

func (c Config) validate() error {
	switch c.Storage.Driver {
	case "mysql", "memory":
	default:
		return fmt.Errorf("storage.driver must be mysql or memory, got %q", c.Storage.Driver)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("app.timezone: %w", err)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers is required when kafka is enabled")
	}
	return nil
}

func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
