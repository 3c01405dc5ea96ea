// Package config loads the runtime settings of the reciclo client, CLI and stub API from a
// .env file and the environment. Values are resolved once at package initialization.
package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

var (
	LogLevel       string
	APIBaseURL     string
	RequestTimeout time.Duration
	SearchDebounce time.Duration

	SessionDSN    string
	DatabaseURI   string
	SessionSecret string

	DownloadDir    string
	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioSecure    bool

	SentryDSN string

	StubRunAddress string
	StubJWTSecret  string
)

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using default values")
	}

	LogLevel = stringEnv("LOG_LEVEL", "info")
	APIBaseURL = stringEnv("API_BASE_URL", "http://127.0.0.1:8000")
	RequestTimeout = durationEnv("REQUEST_TIMEOUT", 10*time.Second)
	SearchDebounce = durationEnv("SEARCH_DEBOUNCE", 500*time.Millisecond)

	SessionDSN = stringEnv("SESSION_DSN", defaultSessionDSN())
	DatabaseURI = os.Getenv("DATABASE_URI")
	SessionSecret = os.Getenv("SESSION_SECRET")

	DownloadDir = stringEnv("DOWNLOAD_DIR", ".")
	MinioEndpoint = os.Getenv("MINIO_ENDPOINT")
	MinioAccessKey = os.Getenv("MINIO_ACCESS_KEY")
	MinioSecretKey = os.Getenv("MINIO_SECRET_KEY")
	MinioBucket = stringEnv("MINIO_BUCKET", "models")
	MinioSecure = os.Getenv("MINIO_SECURE") == "1"

	SentryDSN = os.Getenv("SENTRY_DSN")

	StubRunAddress = stringEnv("STUB_RUN_ADDRESS", "127.0.0.1:8000")
	StubJWTSecret = stringEnv("STUB_JWT_SECRET", "supersecretkey")
}

func stringEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// durationEnv accepts Go durations ("750ms") or a bare number of milliseconds.
func durationEnv(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	log.Printf("Invalid %s value %q, using %s", key, v, fallback)
	return fallback
}

func defaultSessionDSN() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "reciclo-session.db"
	}
	return filepath.Join(home, ".reciclo", "session.db")
}
