package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendSQL       = "sql"
	BackendFirestore = "firestore"
)

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type FirebaseConfig struct {
	CredentialsFile string
	ProjectID       string
}

type SchedulerConfig struct {
	DigestSchedule  string
	RefreshSchedule string
}

type Config struct {
	Port         string
	DSN          string
	StoreBackend string
	JWTSecret    string
	Timezone     string
	AppBaseURL   string
	PushEnabled  bool

	SMTP      SMTPConfig
	Firebase  FirebaseConfig
	Scheduler SchedulerConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("STORE_BACKEND", BackendSQL)
	v.SetDefault("REMINDER_TIMEZONE", "Asia/Bangkok")
	v.SetDefault("DIGEST_SCHEDULE", "0 0 8 * * *")
	v.SetDefault("REFRESH_SCHEDULE", "@every 30m")
	v.SetDefault("SMTP_PORT", "587")
	v.SetDefault("SMTP_TIMEOUT", "30s")
	v.SetDefault("PUSH_ENABLED", false)
	v.SetDefault("APP_BASE_URL", "http://localhost:5173")
}

// Load reads .env (when present) into the process environment and resolves
// the configuration from environment variables on top of defaults.
func Load() (*Config, error) {
	if os.Getenv("RENDER") == "" {
		if err := godotenv.Load(); err != nil {
			log.Println("Warning: .env file not loaded, fallback to OS env vars")
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:         v.GetString("PORT"),
		DSN:          v.GetString("DB_DSN"),
		StoreBackend: strings.ToLower(strings.TrimSpace(v.GetString("STORE_BACKEND"))),
		JWTSecret:    v.GetString("JWT_SECRET_KEY"),
		Timezone:     v.GetString("REMINDER_TIMEZONE"),
		AppBaseURL:   strings.TrimRight(v.GetString("APP_BASE_URL"), "/"),
		PushEnabled:  v.GetBool("PUSH_ENABLED"),
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetString("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
			Timeout:  v.GetDuration("SMTP_TIMEOUT"),
		},
		Firebase: FirebaseConfig{
			CredentialsFile: v.GetString("GOOGLE_APPLICATION_CREDENTIALS_1"),
			ProjectID:       v.GetString("FIREBASE_PROJECT_ID"),
		},
		Scheduler: SchedulerConfig{
			DigestSchedule:  v.GetString("DIGEST_SCHEDULE"),
			RefreshSchedule: v.GetString("REFRESH_SCHEDULE"),
		},
	}
	if cfg.SMTP.From == "" {
		cfg.SMTP.From = cfg.SMTP.Username
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.DSN == "" {
		return fmt.Errorf("DB_DSN is required")
	}
	switch c.StoreBackend {
	case BackendSQL, BackendFirestore:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.StoreBackend == BackendFirestore || c.PushEnabled {
		if c.Firebase.CredentialsFile == "" {
			return fmt.Errorf("firebase credentials not configured")
		}
	}
	return nil
}

// Location resolves REMINDER_TIMEZONE. Every deadline computation uses this
// location instead of the host default.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// MailEnabled reports whether enough SMTP settings exist to send digests.
func (c *Config) MailEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.Port != "" && c.SMTP.From != ""
}
