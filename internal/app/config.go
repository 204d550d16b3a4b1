package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/airrecover/storefront/internal/messaging/kafka"
)

// Платёжные провайдеры.
const (
	PaymentProviderStripe = "stripe"
	PaymentProviderMollie = "mollie"
	PaymentProviderMock   = "mock"
)

// Почтовые транспорты.
const (
	MailTransportSMTP = "smtp"
	MailTransportAPI  = "api"
	MailTransportMock = "mock"
)

// Config описывает настройки запуска витрины.
type Config struct {
	Addr        string
	MetricsAddr string
	PublicURL   string
	PublicDir   string

	PaymentProvider     string
	StripeSecretKey     string
	StripeWebhookSecret string
	MollieAPIKey        string

	MailTransport        string
	SMTPHost             string
	SMTPPort             int
	SMTPSecure           bool
	SMTPUser             string
	SMTPPass             string
	SMTPFamily           int
	MailAPIKey           string
	MailFrom             string
	ContactReceiverEmail string

	KafkaBrokers []string
	KafkaTopic   string

	// WebhookDedupTTL задаёт, сколько помнить обработанные события провайдера.
	WebhookDedupTTL time.Duration

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// DefaultConfig возвращает настройки для локального запуска.
func DefaultConfig() Config {
	return Config{
		Addr:                 ":3000",
		MetricsAddr:          ":9090",
		PublicURL:            "http://localhost:3000",
		PublicDir:            "public",
		PaymentProvider:      PaymentProviderStripe,
		MailTransport:        MailTransportSMTP,
		SMTPHost:             "smtp.gmail.com",
		SMTPPort:             465,
		SMTPSecure:           true,
		SMTPFamily:           4,
		ContactReceiverEmail: "airrecover@gmail.com",
		KafkaTopic:           kafka.TopicCheckoutEvents,
		WebhookDedupTTL:      72 * time.Hour,
		LogLevel:             "info",
		LogFormat:            "text",
		ShutdownTimeout:      5 * time.Second,
	}
}

// LoadConfig читает необязательный .env-файл и переменные окружения.
// Окружение имеет приоритет над файлом.
func LoadConfig(envFile string) (Config, error) {
	def := DefaultConfig()

	v := viper.New()
	v.SetDefault("PORT", strings.TrimPrefix(def.Addr, ":"))
	v.SetDefault("METRICS_ADDR", def.MetricsAddr)
	v.SetDefault("PUBLIC_DIR", def.PublicDir)
	v.SetDefault("PAYMENT_PROVIDER", def.PaymentProvider)
	v.SetDefault("MAIL_TRANSPORT", def.MailTransport)
	v.SetDefault("SMTP_HOST", def.SMTPHost)
	v.SetDefault("SMTP_PORT", def.SMTPPort)
	v.SetDefault("SMTP_SECURE", def.SMTPSecure)
	v.SetDefault("SMTP_FAMILY", def.SMTPFamily)
	v.SetDefault("CONTACT_RECEIVER_EMAIL", def.ContactReceiverEmail)
	v.SetDefault("KAFKA_TOPIC", def.KafkaTopic)
	v.SetDefault("WEBHOOK_DEDUP_TTL", def.WebhookDedupTTL)
	v.SetDefault("LOG_LEVEL", def.LogLevel)
	v.SetDefault("LOG_FORMAT", def.LogFormat)
	v.SetDefault("SHUTDOWN_TIMEOUT", def.ShutdownTimeout)

	if envFile != "" {
		v.SetConfigFile(envFile)
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read %s: %w", envFile, err)
		}
	}
	v.AutomaticEnv()

	port := v.GetString("PORT")
	cfg := Config{
		Addr:        net.JoinHostPort("", port),
		MetricsAddr: v.GetString("METRICS_ADDR"),
		PublicURL:   strings.TrimRight(v.GetString("PUBLIC_URL"), "/"),
		PublicDir:   v.GetString("PUBLIC_DIR"),

		PaymentProvider:     strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
		StripeSecretKey:     v.GetString("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		MollieAPIKey:        v.GetString("MOLLIE_API_KEY"),

		MailTransport:        strings.ToLower(v.GetString("MAIL_TRANSPORT")),
		SMTPHost:             v.GetString("SMTP_HOST"),
		SMTPPort:             v.GetInt("SMTP_PORT"),
		SMTPSecure:           v.GetBool("SMTP_SECURE"),
		SMTPUser:             v.GetString("SMTP_USER"),
		SMTPPass:             v.GetString("SMTP_PASS"),
		SMTPFamily:           v.GetInt("SMTP_FAMILY"),
		MailAPIKey:           v.GetString("MAIL_API_KEY"),
		MailFrom:             v.GetString("MAIL_FROM"),
		ContactReceiverEmail: v.GetString("CONTACT_RECEIVER_EMAIL"),

		KafkaBrokers: splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:   v.GetString("KAFKA_TOPIC"),

		WebhookDedupTTL: v.GetDuration("WEBHOOK_DEDUP_TTL"),

		LogLevel:        v.GetString("LOG_LEVEL"),
		LogFormat:       v.GetString("LOG_FORMAT"),
		ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + port
	}
	if cfg.MailFrom == "" {
		cfg.MailFrom = cfg.SMTPUser
	}

	return cfg, cfg.Validate()
}

// Validate проверяет значения, которые нельзя исправить молча.
func (c Config) Validate() error {
	switch c.PaymentProvider {
	case PaymentProviderStripe, PaymentProviderMollie, PaymentProviderMock:
	default:
		return fmt.Errorf("unknown PAYMENT_PROVIDER %q", c.PaymentProvider)
	}
	switch c.MailTransport {
	case MailTransportSMTP, MailTransportAPI, MailTransportMock:
	default:
		return fmt.Errorf("unknown MAIL_TRANSPORT %q", c.MailTransport)
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return fmt.Errorf("invalid SMTP_PORT %d", c.SMTPPort)
	}
	if err := validateListenAddr(c.Addr); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}
	if err := validateListenAddr(c.MetricsAddr); err != nil {
		return fmt.Errorf("invalid METRICS_ADDR: %w", err)
	}
	return nil
}

// validateListenAddr принимает host:port с числовым портом 0..65535.
func validateListenAddr(addr string) error {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 0 || n > 65535 {
		return fmt.Errorf("port %q is not a number in 0..65535", port)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
