package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// App holds the runtime configuration loaded from environment variables.
type App struct {
	Env             string
	BaseURL         string
	FaceAPIURL      string
	GeocodeURL      string
	StateFile       string
	RedisAddr       string
	KioskLat        float64
	KioskLng        float64
	PingAttempts    int
	PingDelay       time.Duration
	HTTPPort        string
	DatabaseURL     string
	JWTIssuer       string
	JWTSigningKey   string
	AccessTTL       time.Duration
	RateLimitPerMin int
}

// Load returns application config populated from environment variables
// with sensible defaults. A .env file in the working directory is applied
// first when present.
func Load() App {
	_ = godotenv.Load()

	home, _ := os.UserHomeDir()
	return App{
		Env:             getEnv("APP_ENV", "dev"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:8082"),
		FaceAPIURL:      getEnv("FACE_API_URL", "http://localhost:8000"),
		GeocodeURL:      getEnv("GEOCODE_URL", "https://nominatim.openstreetmap.org/reverse"),
		StateFile:       getEnv("STATE_FILE", home+"/.clockin/session.json"),
		RedisAddr:       getEnv("REDIS_ADDR", ""),
		KioskLat:        floatEnv("KIOSK_LAT", 0),
		KioskLng:        floatEnv("KIOSK_LNG", 0),
		PingAttempts:    intEnv("PING_ATTEMPTS", 3),
		PingDelay:       durationEnv("PING_DELAY", 3*time.Second),
		HTTPPort:        getEnv("HTTP_PORT", "8082"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTIssuer:       getEnv("JWT_ISSUER", "clockin-dev"),
		JWTSigningKey:   getEnv("JWT_SIGNING_KEY", "dev-signing-secret-change"),
		AccessTTL:       durationEnv("ACCESS_TTL", 12*time.Hour),
		RateLimitPerMin: intEnv("RATE_LIMIT_PER_MIN", 120),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}

func floatEnv(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var parsed float64
		if _, err := fmt.Sscanf(val, "%g", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid float for %s, using fallback %g", key, fallback)
	}
	return fallback
}
