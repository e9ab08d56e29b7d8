package config

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	LinkToken LinkTokenConfig `mapstructure:"link_token"`
	Admin     AdminConfig
	Email     EmailConfig
	Session   SessionConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// LinkTokenConfig содержит настройки токенов ссылок доступа
type LinkTokenConfig struct {
	// Secret — ключ подписи токенов ссылок (HS256)
	Secret string `mapstructure:"secret"`
	// DefaultTTLHours — срок жизни токена для бессрочных ссылок
	DefaultTTLHours int `mapstructure:"default_ttl_hours"`
}

// AdminConfig содержит настройки административного API
type AdminConfig struct {
	// APIKey — ключ доступа к административным endpoints (заголовок X-Admin-Key)
	APIKey string `mapstructure:"api_key"`
}

// EmailConfig содержит настройки отправки писем через Resend
type EmailConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	From         string `mapstructure:"from"`
}

// SessionConfig содержит настройки сессий прохождения
type SessionConfig struct {
	// TickIntervalSec — период тика часов обратного отсчета в секундах
	TickIntervalSec int `mapstructure:"tick_interval_sec"`
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("link_token.default_ttl_hours", 720)
	vip.SetDefault("session.tick_interval_sec", 1)

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции LinkToken
	vip.BindEnv("link_token.secret", "LINK_TOKEN_SECRET")
	vip.BindEnv("link_token.default_ttl_hours", "LINK_TOKEN_DEFAULT_TTL_HOURS")

	// Привязка для секции Admin
	vip.BindEnv("admin.api_key", "ADMIN_API_KEY")

	// Привязка для секции Email
	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from", "EMAIL_FROM")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")
	vip.BindEnv("server.allowed_origins", "SERVER_ALLOWED_ORIGINS")

	// Привязка для Session
	vip.BindEnv("session.tick_interval_sec", "SESSION_TICK_INTERVAL_SEC")

	// 3. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 4. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 5. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Логирование конфигурации (только в debug режиме)
	if os.Getenv("GIN_MODE") != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Port: %s", cfg.Database.Port)
		log.Printf("Database User: %s", cfg.Database.User)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Database SSLMode: %s", cfg.Database.SSLMode)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("Link Token Secret Set: %t", cfg.LinkToken.Secret != "")
		log.Printf("Admin API Key Set: %t", cfg.Admin.APIKey != "")
		log.Printf("Email Enabled: %t", cfg.Email.Enabled)
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("-----------------------------------------")
	}

	// 7. Проверка обязательных параметров
	if cfg.LinkToken.Secret == "" {
		return nil, fmt.Errorf("link token secret is required in config (check LINK_TOKEN_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	ginMode := vip.GetString("GIN_MODE")
	if ginMode != "debug" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in production mode (check DATABASE_PASSWORD env var)")
		}
		isRedisConfigured := len(cfg.Redis.Addrs) > 0 || cfg.Redis.Addr != ""
		if isRedisConfigured && cfg.Redis.Password == "" {
			log.Println("Warning: Redis is configured but REDIS_PASSWORD is not set in a non-debug environment.")
		}
	}
	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" {
		return nil, fmt.Errorf("Resend API key is required when email is enabled (check RESEND_API_KEY env var)")
	}

	return &cfg, nil
}
