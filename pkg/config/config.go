package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Auth          AuthConfig
	Logging       LoggingConfig
	Scheduler     SchedulerConfig
	Assignment    AssignmentConfig
	Notifications NotificationConfig
}

type ServerConfig struct {
	HTTPPort    int           `mapstructure:"http_port"`
	MetricsPort int           `mapstructure:"metrics_port"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
}

type DatabaseConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SSLMode      string `mapstructure:"ssl_mode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Addresses   []string `mapstructure:"addresses"`
	Password    string   `mapstructure:"password"`
	DB          int      `mapstructure:"db"`
	PoolSize    int      `mapstructure:"pool_size"`
	ClusterMode bool     `mapstructure:"cluster_mode"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json or console
}

type SchedulerConfig struct {
	EscalationCron      string        `mapstructure:"escalation_cron"`
	ReminderCron        string        `mapstructure:"reminder_cron"`
	AutoTransitionEvery time.Duration `mapstructure:"auto_transition_every"`
}

type AssignmentConfig struct {
	ServiceURL string        `mapstructure:"service_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type NotificationConfig struct {
	Driver string `mapstructure:"driver"` // bus or log
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("/etc/caseflow/")
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("CASEFLOW")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_port", 8080)
	viper.SetDefault("server.metrics_port", 9091)
	viper.SetDefault("server.read_timeout", "30s")
	viper.SetDefault("database.max_open_conns", 25)
	viper.SetDefault("database.max_idle_conns", 5)
	viper.SetDefault("redis.pool_size", 100)
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("scheduler.escalation_cron", "0 * * * *")
	viper.SetDefault("scheduler.reminder_cron", "0 8 * * *")
	viper.SetDefault("scheduler.auto_transition_every", "5m")
	viper.SetDefault("assignment.timeout", "10s")
	viper.SetDefault("notifications.driver", "bus")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}
