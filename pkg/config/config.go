// Package config loads process configuration from environment
// variables, once, at startup.
package config

import (
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Exchange holds the exchange-side process configuration.
type Exchange struct {
	OrderGatewayIface string `env:"HERMES_ORDER_GATEWAY_IFACE" envDefault:"lo"`
	OrderGatewayPort  int    `env:"HERMES_ORDER_GATEWAY_PORT" envDefault:"9000"`

	MarketDataIface string `env:"HERMES_MARKET_DATA_IFACE" envDefault:"lo"`
	IncrementalIP   string `env:"HERMES_MARKET_DATA_INCREMENTAL_IP" envDefault:"239.0.0.1"`
	IncrementalPort int    `env:"HERMES_MARKET_DATA_INCREMENTAL_PORT" envDefault:"9001"`
	SnapshotIP      string `env:"HERMES_MARKET_DATA_SNAPSHOT_IP" envDefault:"239.0.0.2"`
	SnapshotPort    int    `env:"HERMES_MARKET_DATA_SNAPSHOT_PORT" envDefault:"9002"`

	KafkaBrokers    []string `env:"HERMES_KAFKA_BROKERS"`
	KafkaTradeTopic string   `env:"HERMES_KAFKA_TRADE_TOPIC" envDefault:"hermes.trades"`
	KafkaAuditTopic string   `env:"HERMES_KAFKA_AUDIT_TOPIC" envDefault:"hermes.orderflow"`

	LogLevel string `env:"HERMES_LOG_LEVEL" envDefault:"info"`
}

// Trader holds the client-side process configuration.
type Trader struct {
	ClientID uint32 `env:"HERMES_CLIENT_ID" envDefault:"0"`
	Algo     string `env:"HERMES_TRADE_ALGO" envDefault:"MARKET_MAKER"`

	OrderGatewayAddr string `env:"HERMES_ORDER_GATEWAY_ADDR" envDefault:"127.0.0.1:9000"`

	MarketDataIface string `env:"HERMES_MARKET_DATA_IFACE" envDefault:"lo"`
	IncrementalIP   string `env:"HERMES_MARKET_DATA_INCREMENTAL_IP" envDefault:"239.0.0.1"`
	IncrementalPort int    `env:"HERMES_MARKET_DATA_INCREMENTAL_PORT" envDefault:"9001"`
	SnapshotIP      string `env:"HERMES_MARKET_DATA_SNAPSHOT_IP" envDefault:"239.0.0.2"`
	SnapshotPort    int    `env:"HERMES_MARKET_DATA_SNAPSHOT_PORT" envDefault:"9002"`

	TradeSize        uint32  `env:"HERMES_TRADE_SIZE" envDefault:"10"`
	FeatureThreshold float64 `env:"HERMES_FEATURE_THRESHOLD" envDefault:"0.6"`
	MaxOrderSize     uint32  `env:"HERMES_RISK_MAX_ORDER_SIZE" envDefault:"100"`
	MaxPosition      uint32  `env:"HERMES_RISK_MAX_POSITION" envDefault:"1000"`
	MaxLoss          float64 `env:"HERMES_RISK_MAX_LOSS" envDefault:"10000"`

	LogLevel string `env:"HERMES_LOG_LEVEL" envDefault:"info"`
}

// MustLoad parses cfg from a .env file (if present) and the process
// environment, and dies on malformed values.
func MustLoad[T any](cfg *T) {
	_ = godotenv.Load()
	env.Must(cfg, env.Parse(cfg))
}
