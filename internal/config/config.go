package config

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	DriverMongo = "mongo"
	DriverMySQL = "mysql"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
}

type Database struct {
	Driver string `yaml:"driver" env:"DB_DRIVER" env-default:"mongo"`
}

type MongoConfig struct {
	Host     string `yaml:"host" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env:"MONGO_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"codegate"`
}

type MySQLConfig struct {
	HostName string `yaml:"hostname" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"username" env-default:""`
	Password string `yaml:"password" env:"MYSQL_PASSWORD" env-default:""`
	Database string `yaml:"database" env-default:"codegate"`
	// Migrate applies embedded schema migrations on startup
	Migrate bool `yaml:"migrate" env-default:"true"`
}

type AdminConfig struct {
	// Password is compared as plain text when PasswordHash is empty
	Password     string `yaml:"password" env:"ADMIN_PASSWORD" env-default:""`
	PasswordHash string `yaml:"password_hash" env:"ADMIN_PASSWORD_HASH" env-default:""`
	JwtSecret    string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:""`
	SessionHours int    `yaml:"session_hours" env-default:"24"`
	SecureCookie bool   `yaml:"secure_cookie" env-default:"false"`
}

type RateLimitConfig struct {
	MaxAttempts int     `yaml:"max_attempts" env-default:"5"`
	WindowSec   int     `yaml:"window_sec" env-default:"60"`
	BlockSec    int     `yaml:"block_sec" env-default:"900"`
	DeviceRps   float64 `yaml:"device_rps" env-default:"5"`
	DeviceBurst int     `yaml:"device_burst" env-default:"20"`
}

type TelegramConfig struct {
	Enabled  bool    `yaml:"enabled" env-default:"false"`
	ApiKey   string  `yaml:"api_key" env:"TELEGRAM_API_KEY" env-default:""`
	Admins   []int64 `yaml:"admins"`
	LogLevel string  `yaml:"log_level" env-default:"warn"`
	// DigestMinutes batches notifications below error level; zero sends them at once
	DigestMinutes int `yaml:"digest_minutes" env-default:"0"`
}

type HousekeepingConfig struct {
	SweepSchedule string `yaml:"sweep_schedule" env-default:"@every 5m"`
	// PurgeSchedule is empty to keep expired sessions, which Extend can still revive
	PurgeSchedule  string `yaml:"purge_schedule" env-default:""`
	PurgeGraceDays int    `yaml:"purge_grace_days" env-default:"30"`
}

type CorsConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type Config struct {
	Env          string             `yaml:"env" env-default:"local"`
	LogPath      string             `yaml:"log_path" env-default:"/var/log/codegate.log"`
	Listen       Listen             `yaml:"listen"`
	Database     Database           `yaml:"database"`
	Mongo        MongoConfig        `yaml:"mongo"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Admin        AdminConfig        `yaml:"admin"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Telegram     TelegramConfig     `yaml:"telegram"`
	Housekeeping HousekeepingConfig `yaml:"housekeeping"`
	Cors         CorsConfig         `yaml:"cors"`
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMongo, DriverMySQL:
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverMongo, DriverMySQL, c.Database.Driver)
	}
	if c.Admin.JwtSecret == "" {
		return fmt.Errorf("admin.jwt_secret is required")
	}
	if c.Admin.Password == "" && c.Admin.PasswordHash == "" {
		return fmt.Errorf("admin.password or admin.password_hash is required")
	}
	if c.Telegram.Enabled && c.Telegram.ApiKey == "" {
		return fmt.Errorf("telegram.api_key is required when telegram is enabled")
	}
	return nil
}

func (c *Config) SessionTTL() time.Duration {
	if c.Admin.SessionHours < 1 {
		return 24 * time.Hour
	}
	return time.Duration(c.Admin.SessionHours) * time.Hour
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
		if err = instance.Validate(); err != nil {
			log.Fatalf("config: %v", err)
		}
	})
	return instance
}
