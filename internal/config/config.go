package config

import (
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Database struct {
	URL           string `mapstructure:"url" validate:"required,url"`
	User          string `mapstructure:"user" validate:"required"`
	Password      string `mapstructure:"password" validate:"required"`
	CallTimeoutMs int    `mapstructure:"call-timeout-ms" validate:"min=1,max=5000"`
	MaxConns      int32  `mapstructure:"max-conns" validate:"min=1"`
}

type Stripe struct {
	SigningSecret    string `mapstructure:"signing-secret" validate:"required"`
	ToleranceSeconds int    `mapstructure:"tolerance-seconds" validate:"min=1"`
}

type Flutterwave struct {
	SecretHash string `mapstructure:"secret-hash"`
	SecretKey  string `mapstructure:"secret-key" validate:"required_with=SecretHash"`
	BaseURL    string `mapstructure:"base-url" validate:"required_with=SecretHash,omitempty,url"`
	TimeoutMs  int    `mapstructure:"timeout-ms" validate:"min=1"`
}

// Enabled reports whether the Flutterwave route should be served.
func (f Flutterwave) Enabled() bool {
	return f.SecretHash != ""
}

type KafkaWriter struct {
	BatchSize      int `mapstructure:"batch-size" validate:"min=1"`
	BatchTimeoutMs int `mapstructure:"batch-timeout-ms" validate:"min=1"`
}

type KafkaBroker struct {
	URL string `mapstructure:"url"`
}

type KafkaTopic struct {
	PaymentOutcomes string `mapstructure:"payment-outcomes"`
	Replay          string `mapstructure:"replay"`
}

type KafkaReader struct {
	GroupID string `mapstructure:"group-id"`
}

type Kafka struct {
	Writer KafkaWriter `mapstructure:"writer"`
	Broker KafkaBroker `mapstructure:"broker"`
	Topic  KafkaTopic  `mapstructure:"topic"`
	Reader KafkaReader `mapstructure:"reader"`
}

type Server struct {
	Port           string `mapstructure:"port" validate:"required,numeric"`
	ReadTimeoutMs  int    `mapstructure:"read-timeout-ms" validate:"min=1"`
	WriteTimeoutMs int    `mapstructure:"write-timeout-ms" validate:"min=1"`
	MaxBodyBytes   int64  `mapstructure:"max-body-bytes" validate:"min=1"`
}

type Ledger struct {
	Enabled bool `mapstructure:"enabled"`
}

type Metrics struct {
	URL          string `mapstructure:"url"`
	IntervalMs   int    `mapstructure:"interval-ms"`
	CommonLabels string `mapstructure:"common-labels"`
}

type Logs struct {
	URL string `mapstructure:"url"`
}

type Config struct {
	Database    Database    `mapstructure:"database"`
	Stripe      Stripe      `mapstructure:"stripe"`
	Flutterwave Flutterwave `mapstructure:"flutterwave"`
	Kafka       Kafka       `mapstructure:"kafka"`
	Server      Server      `mapstructure:"server"`
	Ledger      Ledger      `mapstructure:"ledger"`
	Metrics     Metrics     `mapstructure:"metrics"`
	Logs        Logs        `mapstructure:"logs"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.url", "")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.call-timeout-ms", 5000)
	v.SetDefault("database.max-conns", 20)

	v.SetDefault("stripe.signing-secret", "")
	v.SetDefault("stripe.tolerance-seconds", 300)

	v.SetDefault("flutterwave.secret-hash", "")
	v.SetDefault("flutterwave.secret-key", "")
	v.SetDefault("flutterwave.base-url", "https://api.flutterwave.com")
	v.SetDefault("flutterwave.timeout-ms", 5000)

	v.SetDefault("kafka.writer.batch-size", 100)
	v.SetDefault("kafka.writer.batch-timeout-ms", 100)
	v.SetDefault("kafka.broker.url", "")
	v.SetDefault("kafka.topic.payment-outcomes", "payment-outcomes")
	v.SetDefault("kafka.topic.replay", "")
	v.SetDefault("kafka.reader.group-id", "payment-webhook-service")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read-timeout-ms", 10000)
	v.SetDefault("server.write-timeout-ms", 10000)
	v.SetDefault("server.max-body-bytes", 64*1024)

	v.SetDefault("ledger.enabled", true)

	v.SetDefault("metrics.url", "")
	v.SetDefault("metrics.interval-ms", 10000)
	v.SetDefault("metrics.common-labels", "")

	v.SetDefault("logs.url", "")
}

// LoadConfig reads config.yaml from path when present and overlays environment
// variables, e.g. STRIPE_SIGNING_SECRET for stripe.signing-secret.
func LoadConfig(path string) (*Config, error) {
	// a missing .env is the normal case outside local development
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, "read config file")
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &config, nil
}

func MustLoadConfig(path string) *Config {
	config, err := LoadConfig(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	return config
}
