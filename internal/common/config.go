// Package common provides shared utilities for the KI7MT BIA applications.
package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds common configuration for all applications.
type Config struct {
	Scenario     string // Scenario directory (inputs/ and outputs/)
	SettingsFile string // YAML settings file
	Workers      int    // Building workers, 0 = runtime.NumCPU()

	ClickHouseHost     string
	ClickHousePort     int
	ClickHouseDatabase string
	ClickHouseUser     string
	ClickHousePassword string
	DataDir            string
}

// LoadEnv loads a .env file from the working directory when present.
// Variables already set in the environment win.
func LoadEnv() {
	_ = godotenv.Load()
}

// DefaultConfig returns configuration with sensible defaults, overridden by
// environment variables.
func DefaultConfig() *Config {
	dataDir := getEnv("KI7MT_DATA_DIR", "/var/lib/ki7mt-ai-lab")
	return &Config{
		Scenario:           getEnv("BIA_SCENARIO", filepath.Join(dataDir, "bia", "scenario")),
		SettingsFile:       getEnv("BIA_SETTINGS", filepath.Join(dataDir, "bia", "bia.yml")),
		Workers:            getEnvAsInt("BIA_WORKERS", 0),
		ClickHouseHost:     getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort:     getEnvAsInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDatabase: getEnv("CLICKHOUSE_DATABASE", "bia"),
		ClickHouseUser:     getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePassword: getEnv("CLICKHOUSE_PASSWORD", ""),
		DataDir:            dataDir,
	}
}

// ClickHouseAddr returns host:port of the native ClickHouse interface.
func (c *Config) ClickHouseAddr() string {
	return fmt.Sprintf("%s:%d", c.ClickHouseHost, c.ClickHousePort)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return value
	}
	return defaultValue
}
