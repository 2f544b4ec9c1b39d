package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/SrFlag/Melos-Company/internal/domain"
)

type Config struct {
	Env             string        `mapstructure:"APP_ENV"`
	LogLevel        string        `mapstructure:"LOG_LEVEL"`
	HTTPPort        string        `mapstructure:"HTTP_PORT"`
	GRPCPort        string        `mapstructure:"GRPC_PORT"`
	RequestTimeout  time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	ShutdownTimeout time.Duration `mapstructure:"SHUTDOWN_TIMEOUT"`
	CORSOrigins     []string      `mapstructure:"CORS_ALLOWED_ORIGINS"`

	DBDriver   string `mapstructure:"DB_DRIVER"`
	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBPath     string `mapstructure:"DB_PATH"`

	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	MongoURI      string `mapstructure:"MONGO_URI"`
	MongoDBName   string `mapstructure:"MONGO_DB_NAME"`

	SessionIdleTTL time.Duration `mapstructure:"SESSION_IDLE_TTL"`

	KafkaBrokers []string `mapstructure:"KAFKA_BROKERS"`
	KafkaTopic   string   `mapstructure:"KAFKA_TOPIC"`

	CheckoutMode   string `mapstructure:"CHECKOUT_MODE"`
	PublicBaseURL  string `mapstructure:"PUBLIC_BASE_URL"`
	WhatsAppNumber string `mapstructure:"WHATSAPP_NUMBER"`
	MPAccessToken  string `mapstructure:"MP_ACCESS_TOKEN"`
	MPBaseURL      string `mapstructure:"MP_BASE_URL"`
	ViaCEPBaseURL  string `mapstructure:"VIACEP_BASE_URL"`

	GCSBucket          string `mapstructure:"GCS_BUCKET"`
	GCSPublicBaseURL   string `mapstructure:"GCS_PUBLIC_BASE_URL"`
	GCSCredentialsFile string `mapstructure:"GCS_CREDENTIALS_FILE"`

	SendGridAPIKey string `mapstructure:"SENDGRID_API_KEY"`
	MailFrom       string `mapstructure:"MAIL_FROM"`

	AdminEmail        string        `mapstructure:"ADMIN_EMAIL"`
	AdminPasswordHash string        `mapstructure:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string        `mapstructure:"JWT_SECRET"`
	JWTTTL            time.Duration `mapstructure:"JWT_TTL"`
}

var defaults = map[string]any{
	"APP_ENV":              "development",
	"LOG_LEVEL":            "info",
	"HTTP_PORT":            "8080",
	"GRPC_PORT":            "50056",
	"REQUEST_TIMEOUT":      "30s",
	"SHUTDOWN_TIMEOUT":     "10s",
	"CORS_ALLOWED_ORIGINS": "http://localhost:3000",
	"DB_DRIVER":            "postgres",
	"DB_HOST":              "localhost",
	"DB_PORT":              5432,
	"DB_USER":              "postgres",
	"DB_PASSWORD":          "postgres",
	"DB_NAME":              "melos",
	"DB_PATH":              "./melos.db",
	"REDIS_ADDR":           "localhost:6379",
	"REDIS_PASSWORD":       "",
	"REDIS_DB":             0,
	"MONGO_URI":            "mongodb://localhost:27017",
	"MONGO_DB_NAME":        "cartdb",
	"SESSION_IDLE_TTL":     "30m",
	"KAFKA_BROKERS":        "localhost:9092",
	"KAFKA_TOPIC":          "order-events",
	"CHECKOUT_MODE":        string(domain.ModeMessageHandoff),
	"PUBLIC_BASE_URL":      "http://localhost:3000",
	"WHATSAPP_NUMBER":      "",
	"MP_ACCESS_TOKEN":      "",
	"MP_BASE_URL":          "https://api.mercadopago.com",
	"VIACEP_BASE_URL":      "https://viacep.com.br",
	"GCS_BUCKET":           "images",
	"GCS_PUBLIC_BASE_URL":  "https://storage.googleapis.com",
	"GCS_CREDENTIALS_FILE": "",
	"SENDGRID_API_KEY":     "",
	"MAIL_FROM":            "pedidos@melos.co",
	"ADMIN_EMAIL":          "",
	"ADMIN_PASSWORD_HASH":  "",
	"JWT_SECRET":           "",
	"JWT_TTL":              "12h",
}

// Load reads configuration from the optional file at path, then environment
// variables. Environment always wins.
func Load(path string) (*Config, error) {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Mode() domain.FulfillmentMode {
	m, _ := domain.ParseFulfillmentMode(c.CheckoutMode)
	return m
}

func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.Env, "development")
}

// Validate reports every missing setting required by the selected checkout mode
// and by the admin surface.
func (c *Config) Validate() error {
	var errs []error
	mode, err := domain.ParseFulfillmentMode(c.CheckoutMode)
	if err != nil {
		errs = append(errs, err)
	}
	switch mode {
	case domain.ModeMessageHandoff:
		if c.WhatsAppNumber == "" {
			errs = append(errs, errors.New("WHATSAPP_NUMBER is required for message-handoff checkout"))
		}
	case domain.ModeHostedRedirect:
		if c.MPAccessToken == "" {
			errs = append(errs, errors.New("MP_ACCESS_TOKEN is required for hosted-redirect checkout"))
		}
	}
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite" {
		errs = append(errs, fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.AdminEmail == "" || c.AdminPasswordHash == "" {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD_HASH are required"))
	}
	return errors.Join(errs...)
}
