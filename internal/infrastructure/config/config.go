package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	config     *Config
	configOnce sync.Once
)

// Config stores all configuration of the application
type Config struct {
	// Environment type
	EnvType string

	// Database
	DBHost          string
	DBUser          string
	DBPassword      string
	DBName          string
	DBPort          string
	DBMigrationMode string // 数据库迁移模式: "auto"(默认), "drop"(删除重建)
	DBMaxIdleConns  int
	DBMaxOpenConns  int

	// Server
	ServerPort      string
	CORSAllowOrigin string

	// Logging
	LogLevel  string
	LogFormat string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Tencent Cloud RTC
	TencentSDKAppID   int    // 腾讯云 SDKAppID
	TencentSecretKey  string // 腾讯云 SDKAppID 对应的密钥
	TencentRTCEnabled bool

	// MQTT配置
	MQTTBrokerURL  string // MQTT服务器地址，如 tcp://broker.example.com:1883
	MQTTClientID   string
	MQTTUsername   string
	MQTTPassword   string
	MQTTQoS        int // 服务质量 (0, 1, 2)
	MQTTSSLEnabled bool
	MQTTEnabled    bool

	// JWT Authentication
	JWTSecretKey   string
	JWTExpireHours int

	// Admin
	DefaultAdminEmail    string
	DefaultAdminPassword string

	// OpenAI
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OpenAIModel   string

	// Tuya cloud
	TuyaAccessID     string
	TuyaAccessSecret string
	TuyaEndpoint     string

	// Doorbell
	DoorbellScanSpec       string
	DoorbellRingDedupe     time.Duration
	DefaultDoorbellTimeout int
}

// LoadConfig loads config from environment variables based on ENV_TYPE
func LoadConfig() *Config {
	envType := getEnv("ENV_TYPE", "LOCAL")
	prefix := ""

	if strings.ToUpper(envType) == "LOCAL" {
		prefix = "LOCAL_"
	} else if strings.ToUpper(envType) == "SERVER" {
		prefix = "SERVER_"
	} else {
		fmt.Printf("Warning: Unknown ENV_TYPE '%s', defaulting to LOCAL environment\n", envType)
		prefix = "LOCAL_"
		envType = "LOCAL"
	}

	fmt.Printf("Loading configuration for environment: %s\n", envType)

	return &Config{
		EnvType: envType,

		// Database config - use environment-specific variables if available
		DBHost:          getEnvRequired(prefix + "DB_HOST"),
		DBUser:          getEnvRequired(prefix + "DB_USER"),
		DBPassword:      getEnv(prefix+"DB_PASSWORD", ""),
		DBName:          getEnvRequired(prefix + "DB_NAME"),
		DBPort:          getEnv(prefix+"DB_PORT", "3306"),
		DBMigrationMode: getEnv(prefix+"DB_MIGRATION_MODE", "auto"),
		DBMaxIdleConns:  getEnvAsInt(prefix+"DB_MAX_IDLE_CONNS", 10),
		DBMaxOpenConns:  getEnvAsInt(prefix+"DB_MAX_OPEN_CONNS", 100),

		ServerPort:      getEnv(prefix+"SERVER_PORT", getEnv("SERVER_PORT", "8080")),
		CORSAllowOrigin: getEnv("CORS_ALLOW_ORIGIN", "*"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		RedisHost:     getEnv(prefix+"REDIS_HOST", getEnv("REDIS_HOST", "localhost")),
		RedisPort:     getEnv(prefix+"REDIS_PORT", getEnv("REDIS_PORT", "6379")),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		TencentSDKAppID:   getEnvAsInt("TENCENT_SDKAPPID", 0),
		TencentSecretKey:  getEnv("TENCENT_SECRET_KEY", ""),
		TencentRTCEnabled: getEnvAsBool("TENCENT_RTC_ENABLED", false),

		MQTTBrokerURL:  getEnv("MQTT_BROKER_URL", "tcp://localhost:1883"),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "estatehub_server"),
		MQTTUsername:   getEnv("MQTT_USERNAME", ""),
		MQTTPassword:   getEnv("MQTT_PASSWORD", ""),
		MQTTQoS:        getEnvAsInt("MQTT_QOS", 1),
		MQTTSSLEnabled: getEnvAsBool("MQTT_SSL_ENABLED", false),
		MQTTEnabled:    getEnvAsBool("MQTT_ENABLED", true),

		JWTSecretKey:   getEnv("JWT_SECRET_KEY", "estatehub-secret-key-change-in-production"),
		JWTExpireHours: getEnvAsInt("JWT_EXPIRE_HOURS", 24),

		DefaultAdminEmail:    getEnv("DEFAULT_ADMIN_EMAIL", "admin@estatehub.local"),
		DefaultAdminPassword: getEnvRequired("DEFAULT_ADMIN_PASSWORD"),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		TuyaAccessID:     getEnv("TUYA_ACCESS_ID", ""),
		TuyaAccessSecret: getEnv("TUYA_ACCESS_SECRET", ""),
		TuyaEndpoint:     getEnv("TUYA_ENDPOINT", "https://openapi.tuyaus.com"),

		DoorbellScanSpec:       getEnv("DOORBELL_SCAN_SPEC", "@every 10s"),
		DoorbellRingDedupe:     time.Duration(getEnvAsInt("DOORBELL_RING_DEDUPE_SECONDS", 5)) * time.Second,
		DefaultDoorbellTimeout: getEnvAsInt("DOORBELL_DEFAULT_TIMEOUT_SECONDS", 30),
	}
}

// GetConfig returns the application configuration as a singleton
func GetConfig() *Config {
	configOnce.Do(func() {
		config = LoadConfig()
	})
	return config
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return c.DBUser + ":" + c.DBPassword + "@tcp(" + c.DBHost + ":" + c.DBPort + ")/" + c.DBName + "?charset=utf8mb4&parseTime=True&loc=Local&allowNativePasswords=true"
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// TuyaCloudEnabled reports whether Tuya devices should be driven through the cloud API
func (c *Config) TuyaCloudEnabled() bool {
	return c.TuyaAccessID != "" && c.TuyaAccessSecret != ""
}

// Helper function to get environment variable with default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as integer with default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// 要求必须提供环境变量的辅助函数
func getEnvRequired(key string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	panic(fmt.Sprintf("Required environment variable %s is not set", key))
}
