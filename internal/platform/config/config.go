package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIPort string
	AppEnv  string
	JWTKey  []byte

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string
	DBConnStr  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	JudgeURL          string
	JudgeAuthToken    string
	JudgeBatchSize    int
	JudgePollInterval time.Duration
	JudgePollTimeout  time.Duration
}

// Load reads configuration from the environment, falling back to a local
// .env file when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		APIPort: getEnv("API_PORT", "8080"),
		AppEnv:  getEnv("APP_ENV", "development"),
		JWTKey:  []byte(getEnv("JWT_SECRET", "defaultsecret")),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "user"),
		DBPassword: getEnv("DB_PASSWORD", "password"),
		DBName:     getEnv("DB_NAME", "algoarena_db"),
		DBSslMode:  getEnv("DB_SSLMODE", "disable"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),
		CacheTTL:      time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,

		JudgeURL:          getEnv("JUDGE_API_URL", "http://localhost:2358"),
		JudgeAuthToken:    getEnv("JUDGE_AUTH_TOKEN", ""),
		JudgeBatchSize:    getEnvAsInt("JUDGE_BATCH_SIZE", 20),
		JudgePollInterval: time.Duration(getEnvAsInt("JUDGE_POLL_INTERVAL_MS", 1000)) * time.Millisecond,
		JudgePollTimeout:  time.Duration(getEnvAsInt("JUDGE_POLL_TIMEOUT_MS", 60000)) * time.Millisecond,
	}

	if url := getEnv("DATABASE_URL", ""); url != "" {
		cfg.DBConnStr = url
	} else {
		cfg.DBConnStr = "host=" + cfg.DBHost +
			" port=" + cfg.DBPort +
			" user=" + cfg.DBUser +
			" password=" + cfg.DBPassword +
			" dbname=" + cfg.DBName +
			" sslmode=" + cfg.DBSslMode
	}

	return cfg
}

// IsDevelopment reports whether the service runs in a development
// environment; session cookies drop the Secure flag in that case.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}
