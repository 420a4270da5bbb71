package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap/zapcore"

	"github.com/mtiunov/library-service-project/library/internal/notifier"
	"github.com/mtiunov/library-service-project/library/internal/server"
	"github.com/mtiunov/library-service-project/pkg/kafka"
	"github.com/mtiunov/library-service-project/pkg/logger"
	"github.com/mtiunov/library-service-project/pkg/postgres"
)

type Overdue struct {
	CheckInterval time.Duration `yaml:"checkInterval" envconfig:"OVERDUE_CHECK_INTERVAL" default:"24h"`
}

type Config struct {
	Server   server.Config `yaml:"server"`
	Database postgres.Config
	Kafka    kafka.Config
	Telegram notifier.TelegramConfig
	Overdue  Overdue
	Log      logger.Log `yaml:"log"`
}

type Option func(*Config)

func WithLogLevel(level zapcore.Level) Option {
	return func(c *Config) {
		c.Log.LogLevel = level
	}
}

func WithWriteTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Server.WriteTimeout = timeout
	}
}

var (
	once sync.Once
	cfg  Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = config
		printConfig(cfg)
	})

	return &cfg
}

func printConfig(cfg Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
