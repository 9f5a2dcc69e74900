package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Timezone       string

	DatabaseURL string
	SQLitePath  string

	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	SubmissionGuardTTL time.Duration

	AuthSecret               string
	AccessTokenTTLMinutes    int
	BootstrapManagerUsername string
	BootstrapManagerPassword string
}

// Load reads the process environment. A .env file in the working directory
// is applied first when present; real environment variables win.
func Load() Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	guardSeconds, err := strconv.Atoi(getEnv("SUBMISSION_GUARD_TTL_SECONDS", "120"))
	if err != nil || guardSeconds < 1 {
		guardSeconds = 120
	}
	tokenTTL, err := strconv.Atoi(getEnv("ACCESS_TOKEN_TTL_MINUTES", "720"))
	if err != nil || tokenTTL < 1 {
		tokenTTL = 720
	}

	cfg := Config{
		Port:                     getEnv("PORT", "8080"),
		AllowedOrigins:           splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,null")),
		LogLevel:                 getEnv("LOG_LEVEL", "info"),
		Timezone:                 getEnv("TIMEZONE", "Asia/Karachi"),
		DatabaseURL:              strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SQLitePath:               strings.TrimSpace(os.Getenv("SQLITE_PATH")),
		RedisAddr:                os.Getenv("REDIS_ADDR"),
		RedisPassword:            os.Getenv("REDIS_PASSWORD"),
		RedisDB:                  redisDB,
		SubmissionGuardTTL:       time.Duration(guardSeconds) * time.Second,
		AuthSecret:               strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes:    tokenTTL,
		BootstrapManagerUsername: strings.TrimSpace(os.Getenv("BOOTSTRAP_MANAGER_USERNAME")),
		BootstrapManagerPassword: os.Getenv("BOOTSTRAP_MANAGER_PASSWORD"),
	}

	return cfg
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// StoreKind names the repository backend the config selects.
func (c Config) StoreKind() string {
	switch {
	case c.DatabaseURL != "":
		return "postgres"
	case c.SQLitePath != "":
		return "sqlite"
	default:
		return "memory"
	}
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
