package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerPort  string
	DatabaseURL string
	LogLevel    string

	// Crawl target. The list page is legacy EUC-KR encoded; detail pages
	// are reached through relative links in the name column.
	CrawlBaseURL    string
	CrawlListURL    string
	PolitenessDelay time.Duration
	CrawlMaxRetries int

	// Outbound mail (weekly digest + verification codes).
	SMTPServer   string
	SMTPPort     int
	SMTPEmail    string
	SMTPPassword string

	// Public base URL used in unsubscribe links.
	AppBaseURL string
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	return &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CrawlBaseURL:    getEnv("CRAWL_BASE_URL", "http://www.38.co.kr"),
		CrawlListURL:    getEnv("CRAWL_LIST_URL", "http://www.38.co.kr/html/fund/index.htm?o=k"),
		PolitenessDelay: getEnvDuration("CRAWL_POLITENESS_DELAY", 500*time.Millisecond),
		CrawlMaxRetries: getEnvInt("CRAWL_MAX_RETRIES", 2),
		SMTPServer:      getEnv("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:        getEnvInt("SMTP_PORT", 587),
		SMTPEmail:       getEnv("SMTP_EMAIL", ""),
		SMTPPassword:    getEnv("SMTP_PASSWORD", ""),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("Invalid %s value: %s, using default %v", key, value, fallback)
		return fallback
	}
	return parsed
}
