package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config — полная конфигурация сервиса
type Config struct {
	Database DBConfig
	RabbitMQ MQConfig
	Redis    RedisConfig
	Services ServicesConfig
	JWT      JWTConfig
	GeoIP    GeoIPConfig
	Geo      GeoConfig
}

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

type MQConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	VHost    string `yaml:"vhost"`
}

type RedisConfig struct {
	Address  string        `yaml:"address"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ServicesConfig struct {
	MarketServicePort int `yaml:"market_service"`
	GeoServicePort    int `yaml:"geo_service"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret"`
	ExpiryMinutes int    `yaml:"expiry_minutes"`
}

// GeoIPConfig — внешний сервис определения страны по IP
type GeoIPConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// StageConfig — один шаг каскада геолокации
type StageConfig struct {
	HighAccuracy bool          `yaml:"high_accuracy"`
	Timeout      time.Duration `yaml:"timeout"`
	MaximumAge   time.Duration `yaml:"maximum_age"`
}

type GeoConfig struct {
	Quick         StageConfig   `yaml:"quick"`
	GPS           StageConfig   `yaml:"gps"`
	Fallback      StageConfig   `yaml:"fallback"`
	ShareInterval time.Duration `yaml:"share_interval"`
	PresenceTTL   time.Duration `yaml:"presence_ttl"`
}

// Default — значения по умолчанию, поверх которых применяются файлы и ENV
func Default() Config {
	return Config{
		Database: DBConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "una_user",
			Password: "una_pass",
			Database: "una_db",
			SSLMode:  "disable",
		},
		RabbitMQ: MQConfig{
			Host:     "localhost",
			Port:     5672,
			User:     "guest",
			Password: "guest",
			VHost:    "/",
		},
		Redis: RedisConfig{
			Address: "localhost:6379",
			TTL:     180 * 24 * time.Hour,
		},
		Services: ServicesConfig{
			MarketServicePort: 3000,
			GeoServicePort:    3001,
		},
		JWT: JWTConfig{
			Secret:        "dev_secret",
			ExpiryMinutes: 60,
		},
		GeoIP: GeoIPConfig{
			BaseURL: "https://ipapi.co",
			Timeout: 8 * time.Second,
		},
		Geo: GeoConfig{
			Quick:         StageConfig{HighAccuracy: false, Timeout: 5 * time.Second, MaximumAge: 10 * time.Minute},
			GPS:           StageConfig{HighAccuracy: true, Timeout: 20 * time.Second, MaximumAge: 5 * time.Minute},
			Fallback:      StageConfig{HighAccuracy: false, Timeout: 30 * time.Second, MaximumAge: 15 * time.Minute},
			ShareInterval: time.Hour,
			PresenceTTL:   2 * time.Hour,
		},
	}
}

// Load — .env, затем YAML из CONFIG_DIR (по умолчанию ./config), затем ENV перекрывает.
// Отсутствующие файлы не ошибка; ошибка разбора существующего файла — ошибка.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	configDir := getEnv("CONFIG_DIR", "./config")
	cfg := Default()

	files := []struct {
		name string
		dst  any
	}{
		{"db.yaml", &cfg.Database},
		{"mq.yaml", &cfg.RabbitMQ},
		{"redis.yaml", &cfg.Redis},
		{"service.yaml", &cfg.Services},
		{"jwt.yaml", &cfg.JWT},
		{"geoip.yaml", &cfg.GeoIP},
		{"geo.yaml", &cfg.Geo},
	}
	for _, f := range files {
		if err := parseYAML(filepath.Join(configDir, f.name), f.dst); err != nil {
			return Config{}, err
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

func parseYAML(path string, dst any) error {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, dst); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	c.Database.Port = getEnvInt("DB_PORT", c.Database.Port)
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.Database = getEnv("DB_NAME", c.Database.Database)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)

	c.RabbitMQ.Host = getEnv("RABBITMQ_HOST", c.RabbitMQ.Host)
	c.RabbitMQ.Port = getEnvInt("RABBITMQ_PORT", c.RabbitMQ.Port)
	c.RabbitMQ.User = getEnv("RABBITMQ_USER", c.RabbitMQ.User)
	c.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", c.RabbitMQ.Password)
	c.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", c.RabbitMQ.VHost)

	c.Redis.Address = getEnv("REDIS_ADDRESS", c.Redis.Address)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getEnvInt("REDIS_DB", c.Redis.DB)

	c.Services.MarketServicePort = getEnvInt("MARKET_SERVICE_PORT", c.Services.MarketServicePort)
	c.Services.GeoServicePort = getEnvInt("GEO_SERVICE_PORT", c.Services.GeoServicePort)

	c.JWT.Secret = getEnv("JWT_SECRET", c.JWT.Secret)
	c.JWT.ExpiryMinutes = getEnvInt("JWT_EXPIRY_MINUTES", c.JWT.ExpiryMinutes)

	c.GeoIP.BaseURL = getEnv("GEOIP_BASE_URL", c.GeoIP.BaseURL)
	c.GeoIP.Timeout = getEnvDuration("GEOIP_TIMEOUT", c.GeoIP.Timeout)
}

func getEnv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// DSN возвращает строку подключения к БД
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// AMQPURL возвращает URL подключения к RabbitMQ
func (c MQConfig) AMQPURL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}
