package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/gsu-cloud/turbine-cloud/internal/protocol"
)

type Config struct {
	HTTP     HTTPConfig
	Storage  StorageConfig
	State    StateConfig
	Analysis AnalysisConfig
	Hotspot  HotspotConfig
	Defaults protocol.RemoteConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig
}

type HTTPConfig struct {
	Port            int
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

type StorageConfig struct {
	Dir string
}

type StateConfig struct {
	StaleAfter   time.Duration
	AlertHistory int
	MaxTurbines  int
}

type AnalysisConfig struct {
	Workers   int
	QueueSize int
}

type HotspotConfig struct {
	// ConfirmCaptures is how many consecutive hot captures raise a hotspot.
	ConfirmCaptures int
}

// RedisConfig is optional; an empty Addr disables the status mirror.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (r RedisConfig) Enabled() bool {
	return r.Addr != ""
}

// KafkaConfig is optional; no brokers disables event publishing.
type KafkaConfig struct {
	Brokers       []string
	TopicAlerts   string
	TopicHotspots string
}

func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	config := &Config{
		HTTP: HTTPConfig{
			Port:            getEnvAsInt("HTTP_PORT", 8080),
			MaxUploadBytes:  int64(getEnvAsInt("MAX_UPLOAD_BYTES", 64<<20)),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", "cloud_storage"),
		},
		State: StateConfig{
			StaleAfter:   getEnvAsDuration("STALE_AFTER", 5*time.Second),
			AlertHistory: getEnvAsInt("ALERT_HISTORY", 50),
			MaxTurbines:  getEnvAsInt("FLEET_MAX_TURBINES", 1000),
		},
		Analysis: AnalysisConfig{
			Workers:   getEnvAsInt("ANALYSIS_WORKERS", runtime.NumCPU()),
			QueueSize: getEnvAsInt("ANALYSIS_QUEUE_SIZE", 64),
		},
		Hotspot: HotspotConfig{
			ConfirmCaptures: getEnvAsInt("HOTSPOT_CONFIRM_CAPTURES", 1),
		},
		Defaults: protocol.RemoteConfig{
			MaxTempTrigger:  getEnvAsFloat("DEFAULT_MAX_TEMP_TRIGGER", 80.0),
			ScanWaitTimeSec: uint32(getEnvAsInt("DEFAULT_SCAN_WAIT_SEC", 10)),
			SystemEnabled:   getEnvAsBool("DEFAULT_SYSTEM_ENABLED", true),
			PanStepDegrees:  getEnvAsFloat("DEFAULT_PAN_STEP_DEGREES", 15.0),
			APIKey:          lookupEnv("DEFAULT_API_KEY"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			TTL:      getEnvAsDuration("REDIS_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("KAFKA_BROKERS", "")),
			TopicAlerts:   getEnv("KAFKA_TOPIC_ALERTS", "turbine.alerts"),
			TopicHotspots: getEnv("KAFKA_TOPIC_HOTSPOTS", "turbine.hotspots"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "gsu-cloud@example.com"),
			To:       getEnv("SMTP_TO", "operator@example.com"),
		},
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv distinguishes an unset variable (nil) from an empty one.
func lookupEnv(key string) *string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return nil
	}
	return &value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
