package config

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/couchcryptid/air-quality-etl/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Upstream station API.
	StationAPIURL     string        `envconfig:"STATION_API_URL" default:"https://api.svivaaqm.net/v1/envista" validate:"required,url"`
	StationID         int           `envconfig:"STATION_ID" default:"375" validate:"gt=0"`
	StationAPIToken   string        `envconfig:"STATION_API_TOKEN" validate:"required"`
	StationDataSource string        `envconfig:"STATION_DATA_SOURCE" default:"MANA"`
	StationTimeout    time.Duration `envconfig:"STATION_TIMEOUT" default:"10s" validate:"gt=0"`
	PollInterval      time.Duration `envconfig:"POLL_INTERVAL" default:"5m" validate:"gt=0"`

	// Scoring.
	IndexTableFile string            `envconfig:"INDEX_TABLE_FILE"`
	ScoreSelector  string            `envconfig:"SCORE_SELECTOR" default:"second_smallest" validate:"oneof=second_smallest minimum"`
	IndexTable     domain.IndexTable `ignored:"true"`

	// Sinks.
	KafkaEnabled    bool     `envconfig:"KAFKA_ENABLED" default:"true"`
	KafkaBrokers    []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	KafkaSinkTopic  string   `envconfig:"KAFKA_SINK_TOPIC" default:"air-quality-assessments"`
	MQTTBroker      string   `envconfig:"MQTT_BROKER"`
	MQTTPort        int      `envconfig:"MQTT_PORT" default:"1883" validate:"gt=0,lte=65535"`
	MQTTClientID    string   `envconfig:"MQTT_CLIENT_ID" default:"air-quality-etl"`
	MQTTTopicPrefix string   `envconfig:"MQTT_TOPIC_PREFIX" default:"airquality" validate:"required"`

	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	LogFormat       string        `envconfig:"LOG_FORMAT" default:"json" validate:"oneof=json text"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
}

// MQTTEnabled reports whether the MQTT sink is configured.
func (c *Config) MQTTEnabled() bool {
	return c.MQTTBroker != ""
}

// SlogLevel converts LogLevel to a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads configuration from environment variables (and a .env file when
// present), applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env file is fine; real environment variables take precedence.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	cfg.KafkaBrokers = trimBrokers(cfg.KafkaBrokers)
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
	}
	if cfg.KafkaEnabled && cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required when KAFKA_ENABLED is true")
	}

	cfg.IndexTable = domain.DefaultIndexTable
	if cfg.IndexTableFile != "" {
		table, err := LoadIndexTable(cfg.IndexTableFile)
		if err != nil {
			return nil, fmt.Errorf("INDEX_TABLE_FILE: %w", err)
		}
		cfg.IndexTable = table
	}

	return &cfg, nil
}

// validate runs struct-tag validation and reports failures by environment
// variable name.
func validate(cfg *Config) error {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("envconfig"); name != "" {
			return name
		}
		return f.Name
	})

	err := v.Struct(cfg)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("invalid %s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("invalid %s: %s", fe.Field(), fe.Tag()))
	}
	return errors.New(strings.Join(msgs, "; "))
}

func trimBrokers(brokers []string) []string {
	out := make([]string, 0, len(brokers))
	for _, b := range brokers {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
