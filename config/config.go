package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	Environment    string
	AllowedOrigins []string
	JWTSecret      string
	SessionTTL     time.Duration
	LogLevel       string
	LogFormat      string
	Redis          RedisConfig
	Admin          AdminConfig
	Game           GameConfig
	Chat           ChatConfig
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

type AdminConfig struct {
	// SuperAdmins maps username to password.
	SuperAdmins map[string]string
	// SeedCodes maps admin code to its room quota.
	SeedCodes map[string]int
}

type GameConfig struct {
	AdminGracePeriod    time.Duration
	InactivityTimeout   time.Duration
	ReapInterval        time.Duration
	AutoExtractInterval time.Duration
	MaxPlayers          int
}

type ChatConfig struct {
	Rate  float64
	Burst int
}

// Load reads the environment, after merging an optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	originsStr := getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:5173")
	origins := strings.Split(originsStr, ",")

	return &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "development"),
		AllowedOrigins: origins,
		JWTSecret:      getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 12*time.Hour),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "console"),
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Admin: AdminConfig{
			SuperAdmins: parsePairs(getEnv("SUPER_ADMINS", "")),
			SeedCodes:   parseQuotas(getEnv("ADMIN_CODES", "")),
		},
		Game: GameConfig{
			AdminGracePeriod:    getEnvDuration("ADMIN_GRACE_PERIOD", 5*time.Minute),
			InactivityTimeout:   getEnvDuration("INACTIVITY_TIMEOUT", 2*time.Hour),
			ReapInterval:        getEnvDuration("REAP_INTERVAL", time.Hour),
			AutoExtractInterval: getEnvDuration("AUTO_EXTRACT_INTERVAL", 6*time.Second),
			MaxPlayers:          getEnvInt("MAX_PLAYERS", 50),
		},
		Chat: ChatConfig{
			Rate:  getEnvFloat("CHAT_RATE", 1),
			Burst: getEnvInt("CHAT_BURST", 5),
		},
	}
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if f, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return f
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

// parsePairs reads "user:secret,user2:secret2".
func parsePairs(s string) map[string]string {
	out := make(map[string]string)
	for _, item := range strings.Split(s, ",") {
		user, secret, ok := strings.Cut(strings.TrimSpace(item), ":")
		if !ok || user == "" || secret == "" {
			continue
		}
		out[user] = secret
	}
	return out
}

// parseQuotas reads "CODE:5,OTHER:2". A missing quota defaults to 5.
func parseQuotas(s string) map[string]int {
	out := make(map[string]int)
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		code, quota, _ := strings.Cut(item, ":")
		n, err := strconv.Atoi(quota)
		if err != nil || n <= 0 {
			n = 5
		}
		out[strings.ToUpper(code)] = n
	}
	return out
}
