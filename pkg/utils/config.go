package utils

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Payment  PaymentConfig
	Gateway  GatewayConfig
}

type AppConfig struct {
	Name    string
	Port    string
	Debug   bool
	LogPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type RedisConfig struct {
	Host                  string
	Port                  string
	StatusCacheTTLSeconds int
}

func (c RedisConfig) StatusCacheTTL() time.Duration {
	return time.Duration(c.StatusCacheTTLSeconds) * time.Second
}

// PaymentConfig holds the reconciliation knobs. The validity window is one
// constant shared by attempt expiry, local-expiry retry and the deletion
// guard's functional-expiry tolerance.
type PaymentConfig struct {
	ValidityWindowSeconds int
	SweepIntervalSeconds  int
	PollIntervalSeconds   int
	PollMaxAttempts       int
}

func (c PaymentConfig) ValidityWindow() time.Duration {
	return time.Duration(c.ValidityWindowSeconds) * time.Second
}

func (c PaymentConfig) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalSeconds) * time.Second
}

func (c PaymentConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}

type GatewayConfig struct {
	Provider          string
	TimeoutSeconds    int
	MidtransBaseURL   string
	MidtransServerKey string
	XenditBaseURL     string
	XenditAPIKey      string
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetConfigType("env")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("STATUS_CACHE_TTL_SECONDS", 5)
	viper.SetDefault("PAYMENT_VALIDITY_SECONDS", 900)
	viper.SetDefault("SWEEP_INTERVAL_SECONDS", 60)
	viper.SetDefault("POLL_INTERVAL_SECONDS", 5)
	viper.SetDefault("POLL_MAX_ATTEMPTS", 12)
	viper.SetDefault("PAYMENT_GATEWAY", "midtrans")
	viper.SetDefault("GATEWAY_TIMEOUT_SECONDS", 10)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:    viper.GetString("APP_NAME"),
			Port:    viper.GetString("PORT"),
			Debug:   viper.GetBool("DEBUG"),
			LogPath: viper.GetString("LOG_PATH"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Host:                  viper.GetString("REDIS_HOST"),
			Port:                  viper.GetString("REDIS_PORT"),
			StatusCacheTTLSeconds: viper.GetInt("STATUS_CACHE_TTL_SECONDS"),
		},
		Payment: PaymentConfig{
			ValidityWindowSeconds: viper.GetInt("PAYMENT_VALIDITY_SECONDS"),
			SweepIntervalSeconds:  viper.GetInt("SWEEP_INTERVAL_SECONDS"),
			PollIntervalSeconds:   viper.GetInt("POLL_INTERVAL_SECONDS"),
			PollMaxAttempts:       viper.GetInt("POLL_MAX_ATTEMPTS"),
		},
		Gateway: GatewayConfig{
			Provider:          viper.GetString("PAYMENT_GATEWAY"),
			TimeoutSeconds:    viper.GetInt("GATEWAY_TIMEOUT_SECONDS"),
			MidtransBaseURL:   viper.GetString("MIDTRANS_BASE_URL"),
			MidtransServerKey: viper.GetString("MIDTRANS_SERVER_KEY"),
			XenditBaseURL:     viper.GetString("XENDIT_BASE_URL"),
			XenditAPIKey:      viper.GetString("XENDIT_API_KEY"),
		},
	}

	return config, nil
}
