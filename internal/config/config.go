package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath       string
	RawDir       string
	OutputDir    string
	DatasetsPath string

	SourceTimeoutMs int
	CacheTTLMinutes int

	InactivityThresholdDays int
	TopN                    int

	ListenAddr   string
	DemoUser     string
	DemoPassword string
	JWTSecret    string
	JWTTTLHours  int
	RefreshCron  string

	LogLevel string
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:       getEnv("DB_PATH", filepath.Join(cwd, "data", "app.db")),
		RawDir:       getEnv("RAW_DIR", filepath.Join(cwd, "data", "raw")),
		OutputDir:    getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		DatasetsPath: getEnv("DATASETS_PATH", ""),

		SourceTimeoutMs: getEnvInt("SOURCE_TIMEOUT_MS", 30000),
		CacheTTLMinutes: getEnvInt("CACHE_TTL_MINUTES", 60),

		InactivityThresholdDays: getEnvInt("INACTIVITY_THRESHOLD_DAYS", 30),
		TopN:                    getEnvInt("TOP_N", 10),

		ListenAddr:   getEnv("LISTEN_ADDR", ":8080"),
		DemoUser:     getEnv("DEMO_USER", "admin"),
		DemoPassword: getEnv("DEMO_PASSWORD", ""),
		JWTSecret:    getEnv("JWT_SECRET", ""),
		JWTTTLHours:  getEnvInt("JWT_TTL_HOURS", 12),
		RefreshCron:  getEnv("REFRESH_CRON", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
