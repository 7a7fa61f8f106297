package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config stores the application configuration.
type Config struct {
	Namespace string // 本地缓存键前缀，例如 bt1q.database
	HTTPAddr  string

	LogLevel      string
	LogPath       string
	LogMaxSize    int
	LogMaxBackups int
	LogMaxAge     int

	// 本地缓存: sqlite, redis, mysql, memory
	CacheBackend string
	CachePath    string

	// Redis配置（本地缓存使用）
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// MySQL配置（本地缓存使用）
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// 远程同步: none, chat, minio, redis
	RemoteBackend string

	ChatAPIBaseURL  string
	ChatAPIKey      string
	ChatModel       string
	ChatMaxTokens   int
	ChatTemperature float64

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MinioRegion    string

	RemoteRedisAddr     string
	RemoteRedisPassword string
	RemoteRedisDB       int

	SyncTimeout       time.Duration
	SyncMaxRetries    int
	SyncBaseBackoff   time.Duration
	SyncMaxBackoff    time.Duration
	SyncPushPerMinute int
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings ("500ms", "10s").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override existing env vars.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading .env, relying on existing environment variables and defaults.")
	}
	return FromEnv()
}

// FromEnv builds a Config from the current process environment only.
func FromEnv() *Config {
	return &Config{
		Namespace: getEnv("APP_NAMESPACE", "bt1q"),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),

		LogLevel:      getEnv("LOG_LEVEL", "info"),
		LogPath:       getEnv("LOG_PATH", "logs/app.log"),
		LogMaxSize:    getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups: getEnvInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:     getEnvInt("LOG_MAX_AGE_DAYS", 30),

		CacheBackend: strings.ToLower(getEnv("CACHE_BACKEND", "sqlite")),
		CachePath:    getEnv("CACHE_PATH", "data/local.db"),

		RedisHost:     getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""), // 默认无密码
		RedisDB:       getEnvInt("REDIS_DB", 0),

		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"), // For password, better not to have a hardcoded default
		DBName:     getEnv("DB_NAME", "bt1q"),

		RemoteBackend: strings.ToLower(getEnv("REMOTE_BACKEND", "none")),

		ChatAPIBaseURL:  getEnv("CHAT_API_BASE_URL", "https://api.openai.com/v1"),
		ChatAPIKey:      os.Getenv("CHAT_API_KEY"),
		ChatModel:       getEnv("CHAT_MODEL", "gpt-4o-mini"),
		ChatMaxTokens:   getEnvInt("CHAT_MAX_TOKENS", 16000),
		ChatTemperature: getEnvFloat("CHAT_TEMPERATURE", 0),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "127.0.0.1:9000"),
		MinioAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:    getEnv("MINIO_BUCKET", "bt1q-sync"),
		MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
		MinioRegion:    getEnv("MINIO_REGION", "us-east-1"),

		RemoteRedisAddr:     getEnv("REMOTE_REDIS_ADDR", "127.0.0.1:6380"),
		RemoteRedisPassword: os.Getenv("REMOTE_REDIS_PASSWORD"),
		RemoteRedisDB:       getEnvInt("REMOTE_REDIS_DB", 0),

		SyncTimeout:       getEnvDuration("SYNC_TIMEOUT", 10*time.Second),
		SyncMaxRetries:    getEnvInt("SYNC_MAX_RETRIES", 3),
		SyncBaseBackoff:   getEnvDuration("SYNC_BASE_BACKOFF", 500*time.Millisecond),
		SyncMaxBackoff:    getEnvDuration("SYNC_MAX_BACKOFF", 30*time.Second),
		SyncPushPerMinute: getEnvInt("SYNC_PUSH_PER_MINUTE", 60),
	}
}
