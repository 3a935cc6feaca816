package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/gateway"
	"hermes/infra/memory"
	"hermes/marketdata"
	"hermes/pkg/config"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
	"hermes/trader"
)

func main() {
	var cfg config.Trader
	config.MustLoad(&cfg)

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	met := metrics.New(prometheus.NewRegistry())

	algo := trader.ParseAlgoType(cfg.Algo)
	if algo == trader.AlgoInvalid {
		log.Fatal("unknown trading algorithm", zap.String("algo", cfg.Algo))
	}

	// ---------------- Rings ----------------

	requests := memory.NewRing[message.ClientRequest](message.MaxClientUpdates)
	responses := memory.NewRing[message.ClientResponse](message.MaxClientUpdates)
	updates := memory.NewRing[message.MarketUpdate](message.MaxMarketUpdates)

	// ---------------- Market data consumer ----------------

	consumer, err := marketdata.NewConsumer(marketdata.ConsumerConfig{
		Iface:           cfg.MarketDataIface,
		IncrementalIP:   cfg.IncrementalIP,
		IncrementalPort: cfg.IncrementalPort,
		SnapshotIP:      cfg.SnapshotIP,
		SnapshotPort:    cfg.SnapshotPort,
	}, updates, log.Named("consumer"), met)
	if err != nil {
		log.Fatal("market data consumer init failed", zap.Error(err))
	}

	// ---------------- Order gateway client ----------------

	ogc, err := gateway.Dial(cfg.OrderGatewayAddr, message.ClientID(cfg.ClientID),
		requests, responses, log.Named("gateway"))
	if err != nil {
		log.Fatal("order gateway dial failed", zap.Error(err))
	}

	// ---------------- Trading engine ----------------

	algoConfigs := make([]trader.AlgoConfig, message.MaxTickers)
	riskConfigs := make([]trader.RiskConfig, message.MaxTickers)
	for i := range algoConfigs {
		algoConfigs[i] = trader.AlgoConfig{
			TradeSize: message.Qty(cfg.TradeSize),
			Threshold: cfg.FeatureThreshold,
		}
		riskConfigs[i] = trader.RiskConfig{
			MaxOrderSize: message.Qty(cfg.MaxOrderSize),
			MaxPosition:  message.Qty(cfg.MaxPosition),
			MaxLoss:      decimal.NewFromFloat(cfg.MaxLoss),
		}
	}
	te := trader.NewEngine(trader.EngineConfig{
		ClientID:   message.ClientID(cfg.ClientID),
		NumTickers: message.MaxTickers,
		MaxOrders:  message.MaxOrderIDs,
		Algo:       algo,
		AlgoSeed:   time.Now().UnixNano(),
		Configs:    algoConfigs,
		Risk:       riskConfigs,
	}, updates, responses, requests, log.Named("trader"))

	// ---------------- Run ----------------

	te.Start()
	ogc.Start()
	consumer.Start()
	log.Info("trader up",
		zap.Uint32("client", cfg.ClientID),
		zap.String("algo", cfg.Algo),
		zap.String("gateway", cfg.OrderGatewayAddr))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	consumer.Stop()
	ogc.Stop()
	te.Stop()
}
