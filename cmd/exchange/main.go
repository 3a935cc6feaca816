package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"hermes/domain/message"
	"hermes/engine"
	"hermes/gateway"
	"hermes/infra/kafka"
	"hermes/infra/memory"
	"hermes/infra/sockets"
	"hermes/jobs/dropcopy"
	"hermes/marketdata"
	"hermes/pkg/config"
	"hermes/pkg/logger"
	"hermes/pkg/metrics"
)

const snapshotInterval = 60 * time.Second

func main() {
	var cfg config.Exchange
	config.MustLoad(&cfg)

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init failed:", err)
		os.Exit(1)
	}
	defer log.Sync()

	met := metrics.New(prometheus.NewRegistry())

	// ---------------- Rings ----------------

	requests := memory.NewRing[message.ClientRequest](message.MaxClientUpdates)
	responses := memory.NewRing[message.ClientResponse](message.MaxClientUpdates)
	updates := memory.NewRing[message.MarketUpdate](message.MaxMarketUpdates)
	synthFork := memory.NewRing[message.SequencedUpdate](message.MaxMarketUpdates)

	var tradeTap *memory.Ring[message.SequencedUpdate]
	if len(cfg.KafkaBrokers) > 0 {
		tradeTap = memory.NewRing[message.SequencedUpdate](message.MaxMarketUpdates)
	}

	// ---------------- Matching engine ----------------

	ome := engine.New(engine.DefaultConfig(), requests, responses, updates,
		log.Named("engine"), met)

	// ---------------- Market data ----------------

	incWriter, err := sockets.NewMulticastWriter(cfg.MarketDataIface, cfg.IncrementalIP, cfg.IncrementalPort)
	if err != nil {
		log.Fatal("incremental multicast init failed", zap.Error(err))
	}
	defer incWriter.Close()
	snapWriter, err := sockets.NewMulticastWriter(cfg.MarketDataIface, cfg.SnapshotIP, cfg.SnapshotPort)
	if err != nil {
		log.Fatal("snapshot multicast init failed", zap.Error(err))
	}
	defer snapWriter.Close()

	publisher := marketdata.NewPublisher(updates, synthFork, tradeTap, incWriter,
		log.Named("publisher"), met)
	synthesizer := marketdata.NewSynthesizer(message.MaxTickers, message.MaxOrderIDs,
		synthFork, snapWriter, snapshotInterval, log.Named("synthesizer"), met)

	// ---------------- Order gateway ----------------

	var audit gateway.AuditFeed
	if len(cfg.KafkaBrokers) > 0 {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaAuditTopic, log.Named("audit"))
		defer producer.Close()
		audit = producer
	}

	addr := fmt.Sprintf("%s:%d", listenHost(cfg.OrderGatewayIface), cfg.OrderGatewayPort)
	ogs, err := gateway.NewServer(addr, message.MaxNumClients, requests, responses,
		audit, log.Named("gateway"), met)
	if err != nil {
		log.Fatal("order gateway init failed", zap.Error(err))
	}

	// ---------------- Jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if tradeTap != nil {
		dc, err := dropcopy.New(tradeTap, cfg.KafkaBrokers, cfg.KafkaTradeTopic,
			250*time.Millisecond, log.Named("dropcopy"))
		if err != nil {
			log.Fatal("drop-copy init failed", zap.Error(err))
		}
		defer dc.Close()
		go dc.Run(ctx)
	}

	// ---------------- Run ----------------

	ome.Start()
	publisher.Start()
	synthesizer.Start()
	ogs.Start()
	log.Info("exchange up",
		zap.String("order_gateway", addr),
		zap.String("incremental", fmt.Sprintf("%s:%d", cfg.IncrementalIP, cfg.IncrementalPort)),
		zap.String("snapshot", fmt.Sprintf("%s:%d", cfg.SnapshotIP, cfg.SnapshotPort)))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	ogs.Stop()
	ome.Stop()
	publisher.Stop()
	synthesizer.Stop()
	cancel()
}

// listenHost maps the configured interface to a bind address; the
// loopback shorthand used in development becomes 127.0.0.1, anything
// else binds every interface.
func listenHost(iface string) string {
	if iface == "lo" || iface == "localhost" {
		return "127.0.0.1"
	}
	return "0.0.0.0"
}
