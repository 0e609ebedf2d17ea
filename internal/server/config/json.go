package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/abroadportal/internal/flagx"
	"github.com/dmitrijs2005/abroadportal/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15m" and integer nanoseconds.
//
// Only fields present in the file override the current Config.
type JsonConfig struct {
	GRPCAddr            string         `json:"grpc_addr"`
	HTTPAddr            string         `json:"http_addr"`
	DatabaseDSN         string         `json:"database_dsn"`
	SecretKey           string         `json:"secret_key"`
	AccessTokenValidity timex.Duration `json:"access_token_validity"`
	LoginLinkValidity   timex.Duration `json:"login_link_validity"`
	LoginLinkBaseURL    string         `json:"login_link_base_url"`

	S3AccessKey     string         `json:"s3_access_key"`
	S3SecretKey     string         `json:"s3_secret_key"`
	S3Bucket        string         `json:"s3_bucket"`
	S3Region        string         `json:"s3_region"`
	S3Endpoint      string         `json:"s3_endpoint"`
	S3PresignExpiry timex.Duration `json:"s3_presign_expiry"`

	KafkaBrokers       []string `json:"kafka_brokers"`
	KafkaUsername      string   `json:"kafka_username"`
	KafkaPassword      string   `json:"kafka_password"`
	KafkaTLS           *bool    `json:"kafka_tls"`
	OutboundTopic      string   `json:"outbound_topic"`
	InboundTopic       string   `json:"inbound_topic"`
	ConsumerGroup      string   `json:"consumer_group"`
	RelayQueueSize     int      `json:"relay_queue_size"`
	RelayWebhookSecret string   `json:"relay_webhook_secret"`

	StepCatalogPath     string `json:"step_catalog_path"`
	LogLevel            string `json:"log_level"`
	BootstrapAdminEmail string `json:"bootstrap_admin_email"`
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}

// parseJson loads configuration values from the JSON file named by the -c
// or -config flag. Without the flag nothing is loaded.
func parseJson(config *Config) error {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	setString(&config.GRPCAddr, c.GRPCAddr)
	setString(&config.HTTPAddr, c.HTTPAddr)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidity, c.AccessTokenValidity)
	setDuration(&config.LoginLinkValidity, c.LoginLinkValidity)
	setString(&config.LoginLinkBaseURL, c.LoginLinkBaseURL)

	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3Endpoint, c.S3Endpoint)
	setDuration(&config.S3PresignExpiry, c.S3PresignExpiry)

	if len(c.KafkaBrokers) > 0 {
		config.KafkaBrokers = c.KafkaBrokers
	}
	setString(&config.KafkaUsername, c.KafkaUsername)
	setString(&config.KafkaPassword, c.KafkaPassword)
	if c.KafkaTLS != nil {
		config.KafkaTLS = *c.KafkaTLS
	}
	setString(&config.OutboundTopic, c.OutboundTopic)
	setString(&config.InboundTopic, c.InboundTopic)
	setString(&config.ConsumerGroup, c.ConsumerGroup)
	if c.RelayQueueSize != 0 {
		config.RelayQueueSize = c.RelayQueueSize
	}
	setString(&config.RelayWebhookSecret, c.RelayWebhookSecret)

	setString(&config.StepCatalogPath, c.StepCatalogPath)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.BootstrapAdminEmail, c.BootstrapAdminEmail)
	return nil
}
