// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr  string `mapstructure:"LISTEN_ADDR"`
	BaseURL     string `mapstructure:"BASE_URL"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`
	Environment string `mapstructure:"ENVIRONMENT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBName     string `mapstructure:"DB_NAME"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPort     string `mapstructure:"DB_PORT"`
	DBPassword string `mapstructure:"DB_PASSWORD"`

	GoogleClientID     string `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `mapstructure:"GOOGLE_CALLBACK_URL"`

	JWTSecret        string `mapstructure:"JWT_SECRET"`
	JWTExpiresIn     int    `mapstructure:"JWT_EXPIRES_IN"`      // seconds
	SignupTokenTTL   int    `mapstructure:"SIGNUP_TOKEN_TTL"`    // seconds
	RecoveryTokenTTL int    `mapstructure:"RECOVERY_TOKEN_TTL"`  // seconds

	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	MailFrom     string `mapstructure:"MAIL_FROM"`

	StorageBucket string `mapstructure:"STORAGE_BUCKET"`
}

var envs = []string{
	"LISTEN_ADDR", "BASE_URL", "LOG_LEVEL", "ENVIRONMENT",
	"DB_HOST", "DB_NAME", "DB_USER", "DB_PORT", "DB_PASSWORD",
	"GOOGLE_CLIENT_ID", "GOOGLE_CLIENT_SECRET", "GOOGLE_CALLBACK_URL",
	"JWT_SECRET", "JWT_EXPIRES_IN", "SIGNUP_TOKEN_TTL", "RECOVERY_TOKEN_TTL",
	"SMTP_HOST", "SMTP_PORT", "SMTP_USERNAME", "SMTP_PASSWORD", "MAIL_FROM",
	"STORAGE_BUCKET",
}

// Load reads configuration from the environment. A .env file in the working
// directory is picked up when present; real environment variables win.
func Load() (Config, error) {
	var config Config
	v := viper.New()
	v.AddConfigPath("./")
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig()
	for _, env := range envs {
		if err := v.BindEnv(env); err != nil {
			return config, err
		}
	}

	v.SetDefault("LISTEN_ADDR", ":8000")
	v.SetDefault("BASE_URL", "http://localhost:8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("ENVIRONMENT", "development")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("JWT_EXPIRES_IN", 86400)
	v.SetDefault("SIGNUP_TOKEN_TTL", 86400)
	v.SetDefault("RECOVERY_TOKEN_TTL", 3600)
	v.SetDefault("SMTP_PORT", 587)

	if err := v.Unmarshal(&config); err != nil {
		return config, err
	}
	if config.JWTSecret == "" {
		return config, fmt.Errorf("JWT_SECRET must be set")
	}
	if config.GoogleClientID == "" || config.GoogleClientSecret == "" {
		return config, fmt.Errorf("GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET must be set")
	}
	return config, nil
}

// DSN returns the postgres connection string for gorm.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s dbname=%s port=%s password=%s",
		c.DBHost, c.DBUser, c.DBName, c.DBPort, c.DBPassword)
}

// JWTExpiry returns the configured JWT lifetime as a duration.
func (c Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiresIn) * time.Second
}

// SignupTTL returns how long signup confirmation tokens stay valid.
func (c Config) SignupTTL() time.Duration {
	return time.Duration(c.SignupTokenTTL) * time.Second
}

// RecoveryTTL returns how long password recovery tokens stay valid.
func (c Config) RecoveryTTL() time.Duration {
	return time.Duration(c.RecoveryTokenTTL) * time.Second
}
