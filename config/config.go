package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Lookup   LookupConfig   `yaml:"lookup"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Redis    RedisConfig    `yaml:"redis"`
	ScanDesk ScanDeskConfig `yaml:"scandesk"`
}

type LookupConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	Mode           string `yaml:"mode"` // "http" | "fake"
}

type KafkaConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ScanResolvedTopicName  string `yaml:"scan_resolved_topic_name"`
	ScanRequestedTopicName string `yaml:"scan_requested_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ScanDeskConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	TokenizerMaxKeyGapMillis  int `yaml:"tokenizer_max_key_gap_millis"`
	TokenizerMinLength        int `yaml:"tokenizer_min_length"`
	TokenizerFlushAfterMillis int `yaml:"tokenizer_flush_after_millis"`

	ToastDisplayMillis int `yaml:"toast_display_millis"`
	HistoryCapacity    int `yaml:"history_capacity"`

	DispatcherMaxInFlight        int `yaml:"dispatcher_max_in_flight"`
	DispatcherRateLimitPerMinute int `yaml:"dispatcher_rate_limit_per_minute"`

	TrainingStatsTTLSeconds int `yaml:"training_stats_ttl_seconds"`

	AudioPlayerCommand string `yaml:"audio_player_command"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
