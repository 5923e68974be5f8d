/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the sendmestickers service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort          string `mapstructure:"SERVER_PORT"`
	DatabaseURL         string `mapstructure:"DATABASE_URL"`
	StripeSecretKey     string `mapstructure:"STRIPE_SECRET_KEY"`
	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
	TestDiscountCode    string `mapstructure:"TEST_DISCOUNT_CODE"`
	StickerPriceCents   int64  `mapstructure:"STICKER_PRICE_CENTS"`
	PublicBaseURL       string `mapstructure:"PUBLIC_BASE_URL"`
	StorageEndpoint     string `mapstructure:"STORAGE_ENDPOINT"`
	StorageRegion       string `mapstructure:"STORAGE_REGION"`
	StorageAccessKey    string `mapstructure:"STORAGE_ACCESS_KEY"`
	StorageSecretKey    string `mapstructure:"STORAGE_SECRET_KEY"`
	StorageBucket       string `mapstructure:"STORAGE_BUCKET"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	EventExchange       string `mapstructure:"STICKER_EVENT_EXCHANGE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("STICKER_PRICE_CENTS", 1500)
	viper.SetDefault("PUBLIC_BASE_URL", "http://localhost:3000")
	viper.SetDefault("STICKER_EVENT_EXCHANGE", "stickers.events")

	// Bind environment variables explicitly to ensure they appear in Unmarshal.
	// The HETZNER_* aliases match the names used by the original deployment.
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("STRIPE_SECRET_KEY")
	_ = viper.BindEnv("STRIPE_WEBHOOK_SECRET")
	_ = viper.BindEnv("TEST_DISCOUNT_CODE")
	_ = viper.BindEnv("STICKER_PRICE_CENTS")
	_ = viper.BindEnv("PUBLIC_BASE_URL")
	_ = viper.BindEnv("STORAGE_ENDPOINT", "STORAGE_ENDPOINT", "HETZNER_ENDPOINT")
	_ = viper.BindEnv("STORAGE_REGION", "STORAGE_REGION", "HETZNER_REGION")
	_ = viper.BindEnv("STORAGE_ACCESS_KEY", "STORAGE_ACCESS_KEY", "HETZNER_ACCESS_KEY")
	_ = viper.BindEnv("STORAGE_SECRET_KEY", "STORAGE_SECRET_KEY", "HETZNER_SECRET_KEY")
	_ = viper.BindEnv("STORAGE_BUCKET", "STORAGE_BUCKET", "HETZNER_BUCKET")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("STICKER_EVENT_EXCHANGE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}

	config.TestDiscountCode = strings.TrimSpace(config.TestDiscountCode)
	config.PublicBaseURL = strings.TrimSuffix(strings.TrimSpace(config.PublicBaseURL), "/")
	config.StorageEndpoint = strings.TrimSpace(config.StorageEndpoint)

	if config.StickerPriceCents < 0 {
		log.Printf("level=warn component=config msg=\"negative sticker price configured; using default\" price_cents=%d", config.StickerPriceCents)
		config.StickerPriceCents = 1500
	}

	return
}
