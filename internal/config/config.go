// Package config loads service settings from environment variables.
// Defaults come from a struct provider; the environment overlays them; the
// result is validated explicitly so a bad value names the offending key.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// Config holds all service settings.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string

	// PublishCleaned republishes cleaned records to the sink topic in
	// addition to folding them into the running aggregates.
	PublishCleaned bool

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration
}

// rawConfig is the koanf-shaped view of the settings. Durations stay strings
// here and are parsed during validation so errors can name the env key.
type rawConfig struct {
	KafkaBrokers       string `koanf:"kafka_brokers"`
	KafkaSourceTopic   string `koanf:"kafka_source_topic"`
	KafkaSinkTopic     string `koanf:"kafka_sink_topic"`
	KafkaGroupID       string `koanf:"kafka_group_id"`
	PublishCleaned     bool   `koanf:"publish_cleaned"`
	HTTPAddr           string `koanf:"http_addr"`
	LogLevel           string `koanf:"log_level"`
	LogFormat          string `koanf:"log_format"`
	ShutdownTimeout    string `koanf:"shutdown_timeout"`
	BatchSize          int    `koanf:"batch_size"`
	BatchFlushInterval string `koanf:"batch_flush_interval"`
}

var defaults = rawConfig{
	KafkaBrokers:       "localhost:9092",
	KafkaSourceTopic:   "raw-storm-records",
	KafkaSinkTopic:     "cleaned-storm-records",
	KafkaGroupID:       "storm-damage-aggregator",
	HTTPAddr:           ":8080",
	LogLevel:           "info",
	LogFormat:          "json",
	ShutdownTimeout:    "10s",
	BatchSize:          50,
	BatchFlushInterval: "500ms",
}

// envKeys maps recognized environment variables to koanf paths. Unlisted
// variables are ignored rather than folded into the config tree.
var envKeys = map[string]string{
	"KAFKA_BROKERS":        "kafka_brokers",
	"KAFKA_SOURCE_TOPIC":   "kafka_source_topic",
	"KAFKA_SINK_TOPIC":     "kafka_sink_topic",
	"KAFKA_GROUP_ID":       "kafka_group_id",
	"PUBLISH_CLEANED":      "publish_cleaned",
	"HTTP_ADDR":            "http_addr",
	"LOG_LEVEL":            "log_level",
	"LOG_FORMAT":           "log_format",
	"SHUTDOWN_TIMEOUT":     "shutdown_timeout",
	"BATCH_SIZE":           "batch_size",
	"BATCH_FLUSH_INTERVAL": "batch_flush_interval",
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("load config defaults: %w", err)
	}

	envProvider := env.Provider(".", env.Opt{
		TransformFunc: func(key, value string) (string, any) {
			path, ok := envKeys[key]
			if !ok {
				return "", nil
			}
			return path, value
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}

	var raw rawConfig
	if err := k.Unmarshal("", &raw); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return validate(raw)
}

func validate(raw rawConfig) (*Config, error) {
	shutdownTimeout, err := time.ParseDuration(raw.ShutdownTimeout)
	if err != nil || shutdownTimeout <= 0 {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT %q", raw.ShutdownTimeout)
	}

	flushInterval, err := time.ParseDuration(raw.BatchFlushInterval)
	if err != nil || flushInterval <= 0 {
		return nil, fmt.Errorf("invalid BATCH_FLUSH_INTERVAL %q", raw.BatchFlushInterval)
	}

	if raw.BatchSize < 1 || raw.BatchSize > 1000 {
		return nil, fmt.Errorf("BATCH_SIZE must be between 1 and 1000, got %d", raw.BatchSize)
	}

	brokers := splitBrokers(raw.KafkaBrokers)
	if len(brokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS is required")
	}
	if raw.KafkaSourceTopic == "" {
		return nil, fmt.Errorf("KAFKA_SOURCE_TOPIC is required")
	}
	if raw.KafkaSinkTopic == "" {
		return nil, fmt.Errorf("KAFKA_SINK_TOPIC is required")
	}

	switch raw.LogFormat {
	case "json", "text":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text, got %q", raw.LogFormat)
	}

	return &Config{
		KafkaBrokers:       brokers,
		KafkaSourceTopic:   raw.KafkaSourceTopic,
		KafkaSinkTopic:     raw.KafkaSinkTopic,
		KafkaGroupID:       raw.KafkaGroupID,
		PublishCleaned:     raw.PublishCleaned,
		HTTPAddr:           raw.HTTPAddr,
		LogLevel:           raw.LogLevel,
		LogFormat:          raw.LogFormat,
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          raw.BatchSize,
		BatchFlushInterval: flushInterval,
	}, nil
}

func splitBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
