package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

type ReportServiceConfig struct {
	Port         string
	LogDir       string
	ReportCfg    ReportConfig
	ImageryCfg   ImageryConfig
	RabbitMQCfg  RabbitMQConfig
	GeminiAPICfg GeminiAPIConfig
	WorkerCfg    WorkerConfig
}

type ReportConfig struct {
	ProductName   string
	Title         string
	Subtitle      string
	ReportBaseURL string
}

type ImageryConfig struct {
	FetchTimeout         time.Duration
	MaxBytes             int64
	AllowedHosts         []string
	AllowPrivateNetworks bool
}

type RabbitMQConfig struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
	Queue    string
}

type GeminiAPIConfig struct {
	APIKeys        string
	FlashName      string
	ProName        string
	ClientCooldown time.Duration
}

type WorkerConfig struct {
	Workers   int
	QueueSize int
}

func New() *ReportServiceConfig {
	return &ReportServiceConfig{
		Port:   getEnvOrDefault("PORT", "8090"),
		LogDir: getEnvOrDefault("LOG_DIR", "/agrisa/log/report_service"),
		ReportCfg: ReportConfig{
			ProductName:   getEnvOrDefault("REPORT_PRODUCT_NAME", "CropHealthReport"),
			Title:         getEnvOrDefault("REPORT_TITLE", "Crop Health Situation Report"),
			Subtitle:      getEnvOrDefault("REPORT_SUBTITLE", "Satellite, soil and weather assessment"),
			ReportBaseURL: getEnvOrDefault("REPORT_BASE_URL", ""),
		},
		ImageryCfg: ImageryConfig{
			FetchTimeout:         getDurationOrDefault("IMAGE_FETCH_TIMEOUT", 10*time.Second),
			MaxBytes:             int64(getIntOrDefault("IMAGE_MAX_BYTES", 8<<20)),
			AllowedHosts:         getListOrDefault("IMAGERY_ALLOWED_HOSTS", nil),
			AllowPrivateNetworks: getBoolOrDefault("IMAGERY_ALLOW_PRIVATE_NETWORKS", false),
		},
		RabbitMQCfg: RabbitMQConfig{
			Enabled:  getBoolOrDefault("RABBITMQ_ENABLED", false),
			Username: getEnvOrDefault("RABBITMQ_USER", "admin"),
			Password: getEnvOrDefault("RABBITMQ_PWD", "admin"),
			Host:     getEnvOrDefault("RABBITMQ_HOST", "rabbitmq"),
			Port:     getEnvOrDefault("RABBITMQ_PORT", "5672"),
			Queue:    getEnvOrDefault("RABBITMQ_EXPORT_QUEUE", "report_exports"),
		},
		GeminiAPICfg: GeminiAPIConfig{
			APIKeys:        getEnvOrDefault("GEMINI_KEYS", getEnvOrDefault("GEMINI_KEY", "")),
			FlashName:      getEnvOrDefault("GEMINI_FLASH_MODEL", "gemini-2.5-flash"),
			ProName:        getEnvOrDefault("GEMINI_PRO_MODEL", "gemini-2.5-pro"),
			ClientCooldown: getDurationOrDefault("GEMINI_CLIENT_COOLDOWN", time.Minute),
		},
		WorkerCfg: WorkerConfig{
			Workers:   getIntOrDefault("WORKER_COUNT", 4),
			QueueSize: getIntOrDefault("WORKER_QUEUE_SIZE", 100),
		},
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListOrDefault reads a comma-separated list.
func getListOrDefault(key string, defaultValue []string) []string {
	var list []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	if len(list) == 0 {
		return defaultValue
	}
	return list
}

func getIntOrDefault(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}
