package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all runtime settings loaded from the environment.
type Config struct {
	Port          string
	MongoURI      string
	MongoDBName   string
	JWTSecret     string
	SweepSchedule string
	AllowedOrigin string
	MetricsUser   string
	MetricsPass   string
}

// LoadConfig reads configuration from a .env file if present, falling back
// to process environment variables.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("No .env file found, using environment variables")
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:   getEnv("MONGO_DB", "ecoleta"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		SweepSchedule: getEnv("SWEEP_SCHEDULE", "@hourly"),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		MetricsUser:   getEnv("METRICS_USER", "metrics"),
		MetricsPass:   getEnv("METRICS_PASS", ""),
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
