package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort     string
	DBDriver       string
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	JWTSecret      string
	TokenTTL       time.Duration
	AllowedOrigins []string
	PresenceWindow time.Duration

	StorageDriver    string
	UploadDir        string
	UploadURL        string
	MaxFileSize      int64
	CloudinaryURL    string
	CloudinaryFolder string

	LogLevel  string
	LogFormat string
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		DBDriver:       getEnv("DB_DRIVER", "postgres"),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "chat"),
		DBPassword:     getEnv("DB_PASSWORD", "chat_dev_password"),
		DBName:         getEnv("DB_NAME", "chat"),
		JWTSecret:      getEnv("JWT_SECRET", "dev-secret-change-me"),
		TokenTTL:       getEnvDuration("TOKEN_TTL", 24*time.Hour),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		PresenceWindow: getEnvDuration("PRESENCE_WINDOW", 5*time.Minute),

		StorageDriver:    getEnv("STORAGE_DRIVER", "local"),
		UploadDir:        getEnv("UPLOAD_DIR", "./uploads"),
		UploadURL:        getEnv("UPLOAD_URL", "/uploads/"),
		MaxFileSize:      getEnvInt64("MAX_FILE_SIZE", 20*1024*1024),
		CloudinaryURL:    getEnv("CLOUDINARY_URL", ""),
		CloudinaryFolder: getEnv("CLOUDINARY_FOLDER", "chat"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
