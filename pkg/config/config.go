package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Port                    string        `yaml:"port"`
	Env                     string        `yaml:"env"`
	DBDriver                string        `yaml:"db_driver"` // postgres, mysql or sqlite
	DatabaseURL             string        `yaml:"database_url"`
	MongoURI                string        `yaml:"mongo_uri"` // enables GridFS media storage
	MongoDatabase           string        `yaml:"mongo_database"`
	NatsURL                 string        `yaml:"nats_url"` // enables event publishing
	JWTSecret               string        `yaml:"jwt_secret"`
	JWTLifetime             time.Duration `yaml:"jwt_lifetime" validate:"gt=0"`
	JWTRefreshWindow        time.Duration `yaml:"jwt_refresh_window" validate:"gt=0"`
	SessionSecret           string        `yaml:"session_secret"`
	PostsPerPage            int           `yaml:"posts_per_page" validate:"gt=0"`
	APIPageSize             int           `yaml:"api_page_size" validate:"gt=0"`
	FeedCacheTTL            time.Duration `yaml:"feed_cache_ttl" validate:"gt=0"`
	MediaRoot               string        `yaml:"media_root"`
	MaxUploadSize           int64         `yaml:"max_upload_size" validate:"gt=0"`
	OperatorToken           string        `yaml:"operator_token"`
	FirebaseCredentialsPath string        `yaml:"firebase_credentials_path"`
	LogLevel                string        `yaml:"log_level"`
	LogFormat               string        `yaml:"log_format"` // json or text
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		Port:             "8080",
		Env:              "development",
		DBDriver:         "postgres",
		DatabaseURL:      "host=localhost port=5432 user=postgres password=postgres dbname=concordance sslmode=disable",
		MongoDatabase:    "concordance",
		JWTSecret:        "supersecretjwtkey",
		JWTLifetime:      6 * time.Hour,
		JWTRefreshWindow: 5 * 24 * time.Hour,
		SessionSecret:    "development-session-key",
		PostsPerPage:     10,
		APIPageSize:      5,
		FeedCacheTTL:     20 * time.Second,
		MediaRoot:        "./media",
		MaxUploadSize:    5 * 1024 * 1024,
		LogLevel:         "info",
		LogFormat:        "text",
	}
}

// Load layers defaults, the YAML file named by CONFIG_FILE, then environment variables (.env included)
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, assuming environment variables are set.")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.loadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate runs after every layer is applied, so zero values from YAML are caught too
func (c *Config) validate() error {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})
	err := v.Struct(c)
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		fields := make([]string, len(verrs))
		for i, fe := range verrs {
			fields[i] = fe.Field()
		}
		return fmt.Errorf("invalid configuration: %s must be positive", strings.Join(fields, ", "))
	}
	return err
}

func (c *Config) loadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	c.Port = getEnv("PORT", c.Port)
	c.Env = getEnv("ENV", c.Env)
	c.DBDriver = getEnv("DB_DRIVER", c.DBDriver)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.MongoURI = getEnv("MONGO_URI", c.MongoURI)
	c.MongoDatabase = getEnv("MONGO_DATABASE", c.MongoDatabase)
	c.NatsURL = getEnv("NATS_URL", c.NatsURL)
	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.SessionSecret = getEnv("SESSION_SECRET", c.SessionSecret)
	c.MediaRoot = getEnv("MEDIA_ROOT", c.MediaRoot)
	c.OperatorToken = getEnv("OPERATOR_TOKEN", c.OperatorToken)
	c.FirebaseCredentialsPath = getEnv("FIREBASE_CREDENTIALS_PATH", c.FirebaseCredentialsPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	var err error
	if c.PostsPerPage, err = getEnvInt("POSTS_PER_PAGE", c.PostsPerPage); err != nil {
		return err
	}
	if c.APIPageSize, err = getEnvInt("API_PAGE_SIZE", c.APIPageSize); err != nil {
		return err
	}
	if c.FeedCacheTTL, err = getEnvDuration("FEED_CACHE_TTL", c.FeedCacheTTL); err != nil {
		return err
	}
	if c.JWTLifetime, err = getEnvDuration("JWT_LIFETIME", c.JWTLifetime); err != nil {
		return err
	}
	if c.JWTRefreshWindow, err = getEnvDuration("JWT_REFRESH_WINDOW", c.JWTRefreshWindow); err != nil {
		return err
	}
	maxUpload, err := getEnvInt("MAX_UPLOAD_SIZE", int(c.MaxUploadSize))
	if err != nil {
		return err
	}
	c.MaxUploadSize = int64(maxUpload)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, value)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
