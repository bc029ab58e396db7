package config

import (
	"errors"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	GinMode string

	// Firebase
	FirebaseProjectID string
	FirebaseCredJSON  string

	// Push Notifications
	PushNotificationsEnabled bool          // Disable to log payloads instead of calling FCM.
	PushDebugCurl            bool          // Log a replayable curl command when FCM rejects a message.
	NotificationTimeout      time.Duration // Deadline for lookups plus delivery of one event.

	// NATS ingress
	NatsURL     string
	NatsSubject string
	NatsQueue   string

	// Firestore snapshot ingress
	FirestoreWatchEnabled bool

	// Metrics
	MetricsEnabled bool

	// Server
	ServerShutdownTimeoutSeconds int

	// Logging
	LogLevel  string
	LogFormat string

	// Per-trigger switches, loaded from the config file.
	Triggers TriggersConfig `yaml:"triggers"`
}

var (
	AppConfig *Config

	DefaultNotificationTimeout = 10 * time.Second
)

// LoadConfig populates AppConfig from the environment and the optional config file.
func LoadConfig() {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg

	if AppConfig.FirebaseProjectID == "" {
		log.Println("Warning: Firebase project ID is missing. Please set FIREBASE_PROJECT_ID environment variable.")
	}

	if AppConfig.FirebaseCredJSON == "" {
		log.Println("Warning: FIREBASE_CRED_JSON is empty, falling back to application default credentials.")
	}

	if !AppConfig.PushNotificationsEnabled {
		log.Println("Push notifications disabled, payloads will only be logged")
	}

	log.Println("Firebase project ID: ", AppConfig.FirebaseProjectID)
}

// Load reads the configuration from environment variables and, when present,
// the YAML file named by CONFIG_FILE.
func Load() (*Config, error) {
	cfg := &Config{
		Port:    getEnvOrDefault("PORT", "8080"),
		GinMode: getEnvOrDefault("GIN_MODE", "release"),

		// Firebase
		FirebaseProjectID: getEnvOrDefault("FIREBASE_PROJECT_ID", ""),
		FirebaseCredJSON:  getEnvOrDefault("FIREBASE_CRED_JSON", ""),

		// Push Notifications
		PushNotificationsEnabled: getEnvOrDefault("PUSH_NOTIFICATIONS_ENABLED", "true") == "true",
		PushDebugCurl:            getEnvOrDefault("PUSH_DEBUG_CURL", "false") == "true",
		NotificationTimeout:      getEnvAsDuration("NOTIFICATION_TIMEOUT", DefaultNotificationTimeout),

		// NATS
		NatsURL:     getEnvOrDefault("NATS_URL", ""),
		NatsSubject: getEnvOrDefault("NATS_SUBJECT", "firestore.changes"),
		NatsQueue:   getEnvOrDefault("NATS_QUEUE", "social-push"),

		// Firestore watcher
		FirestoreWatchEnabled: getEnvOrDefault("FIRESTORE_WATCH_ENABLED", "false") == "true",

		// Metrics
		MetricsEnabled: getEnvOrDefault("METRICS_ENABLED", "true") == "true",

		// Server
		ServerShutdownTimeoutSeconds: getEnvAsInt("SERVER_SHUTDOWN_TIMEOUT_SECONDS", 30),

		// Logging
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),

		Triggers: DefaultTriggers(),
	}

	configFilePath := getEnvOrDefault("CONFIG_FILE", "config.yaml")
	configFile, err := os.Open(configFilePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	defer configFile.Close()

	log.Printf("Loading config file: %v", configFilePath)
	if err := LoadConfigFile(configFile, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as time.Duration, using default %v: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		} else {
			log.Printf("Warning: Failed to parse environment variable %s='%s' as int, using default %d: %v", key, value, defaultValue, err)
		}
	}
	return defaultValue
}

// LoadConfigFile decodes YAML settings on top of config.
func LoadConfigFile(reader io.Reader, config *Config) error {
	decoder := yaml.NewDecoder(reader, yaml.DisallowUnknownField())

	if err := decoder.Decode(config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	return nil
}
