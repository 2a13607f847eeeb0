package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	MailProviderSMTP     = "smtp"
	MailProviderSendGrid = "sendgrid"

	DBDriverPostgres = "postgres"
	DBDriverMemory   = "memory"

	MQBackendRabbitMQ = "rabbitmq"
	MQBackendPubSub   = "pubsub"
)

// Config is built once at startup and treated as read-only afterwards.
type Config struct {
	Env         string
	ServerPort  int
	JWTSecret   string
	FrontendURL string
	MFAIssuer   string
	Database    DatabaseConfig
	Mail        MailConfig
	Redis       RedisConfig
	MQ          MQConfig
}

type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	UseSSL   bool
}

type MailConfig struct {
	Provider       string
	From           string
	SMTPHost       string
	SMTPPort       int
	Username       string
	Password       string
	SendGridAPIKey string
	// SendGridEndpoint overrides the SendGrid API url, mainly for tests.
	SendGridEndpoint string
}

type RedisConfig struct {
	URL string
}

type MQConfig struct {
	Backend  string
	Channel  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	QueueDurable    bool
	QueueAutoDelete bool
	PrefetchCount   int
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

func LoadConfig() Config {
	if getEnv("ENV", "dev") == "dev" {
		godotenv.Load()
	}

	dbConfig := DatabaseConfig{
		Driver:   getEnv("DB_DRIVER", DBDriverPostgres),
		URL:      getEnv("DB_URL", ""),
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnvInt("DB_PORT", 5432),
		User:     getEnv("DB_USER", "finance"),
		Password: getEnv("DB_PASSWORD", "password"),
		DBName:   getEnv("DB_NAME", "finance_db"),
		UseSSL:   getEnvBool("DB_USE_SSL", false),
	}

	emailUser := getEnv("EMAIL_USER", "")
	mailConfig := MailConfig{
		Provider:         strings.ToLower(getEnv("MAIL_PROVIDER", MailProviderSMTP)),
		From:             getEnv("MAIL_FROM", emailUser),
		SMTPHost:         getEnv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:         getEnvInt("SMTP_PORT", 587),
		Username:         emailUser,
		Password:         getEnv("EMAIL_PASS", ""),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		SendGridEndpoint: getEnv("SENDGRID_ENDPOINT", ""),
	}

	mqConfig := MQConfig{
		Backend: strings.ToLower(getEnv("MQ_BACKEND", "")),
		Channel: getEnv("EVENTS_CHANNEL", "auth-events"),
		RabbitMQ: RabbitMQConfig{
			URL:             getEnv("RABBITMQ_URL", ""),
			QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
			QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 0),
		},
		PubSub: PubSubConfig{
			ProjectID:          getEnv("PUBSUB_PROJECT_ID", ""),
			CredentialsFile:    getEnv("PUBSUB_CREDENTIALS_FILE", ""),
			SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
		},
	}

	return Config{
		Env:         getEnv("ENV", "dev"),
		ServerPort:  getEnvInt("SERVER_PORT", 5000),
		JWTSecret:   strings.TrimSpace(getEnv("JWT_SECRET", "")),
		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		MFAIssuer:   getEnv("MFA_ISSUER", "FinanceAdmin"),
		Database:    dbConfig,
		Mail:        mailConfig,
		Redis:       RedisConfig{URL: getEnv("REDIS_URL", "")},
		MQ:          mqConfig,
	}
}

// Validate reports settings the server cannot start without.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if _, err := url.Parse(c.FrontendURL); err != nil || c.FrontendURL == "" {
		return errors.New("FRONTEND_URL must be a valid url")
	}

	switch c.Database.Driver {
	case DBDriverPostgres, DBDriverMemory:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}

	switch c.Mail.Provider {
	case MailProviderSMTP:
		if c.Mail.Username == "" || c.Mail.Password == "" {
			return errors.New("EMAIL_USER and EMAIL_PASS are required for smtp mail")
		}
	case MailProviderSendGrid:
		if c.Mail.SendGridAPIKey == "" {
			return errors.New("SENDGRID_API_KEY is required for sendgrid mail")
		}
	default:
		return fmt.Errorf("unsupported MAIL_PROVIDER %q", c.Mail.Provider)
	}
	if c.Mail.From == "" {
		return errors.New("MAIL_FROM or EMAIL_USER is required")
	}

	switch c.MQ.Backend {
	case "", MQBackendRabbitMQ, MQBackendPubSub:
	default:
		return fmt.Errorf("unsupported MQ_BACKEND %q", c.MQ.Backend)
	}
	return nil
}

// PostgresURL returns DB_URL when set, otherwise a DSN assembled from the parts.
func (c Config) PostgresURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}

	sslmode := "disable"
	if c.Database.UseSSL {
		sslmode = "require"
	}

	u := &url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Database.Host, c.Database.Port),
		User:   url.UserPassword(c.Database.User, c.Database.Password),
		Path:   c.Database.DBName,
	}
	q := u.Query()
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		var value int
		if _, err := fmt.Sscanf(valueStr, "%d", &value); err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	switch strings.ToLower(strings.TrimSpace(valueStr)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return defaultValue
	}
}
