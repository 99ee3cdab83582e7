package main

import (
	"context"
	"flag"
	"net"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	grpcapi "bondbook/api/grpc"
	"bondbook/config"
	"bondbook/domain/matching"
	"bondbook/infra/kafka"
	"bondbook/infra/outbox"
	"bondbook/infra/sequence"
	"bondbook/infra/wal"
	"bondbook/jobs/broadcaster"
	"bondbook/jobs/quotes"
	"bondbook/service"
)

func main() {
	configPath := flag.String("config", "", "path to TOML config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	// ---------------- Durable stores ----------------

	commandLog, err := wal.Open(wal.Config{
		Dir:         cfg.WAL.Dir,
		SegmentSize: cfg.WAL.SegmentSize,
	})
	if err != nil {
		log.Fatal("wal init failed", zap.Error(err))
	}
	defer commandLog.Close()

	ob, err := outbox.Open(cfg.Outbox.Dir)
	if err != nil {
		log.Fatal("outbox init failed", zap.Error(err))
	}
	defer ob.Close()

	// ---------------- Domain ----------------

	engine := matching.NewEngine()
	seqGen := sequence.New(0)

	// ---------------- Recovery ----------------

	if err := service.Restore(log, engine, seqGen, cfg.WAL.Dir, cfg.Snapshot.Dir); err != nil {
		log.Fatal("state restore failed", zap.Error(err))
	}

	// ---------------- Service ----------------

	svc := service.NewOrderService(log, engine, seqGen, commandLog, ob)

	// ---------------- Background jobs ----------------

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartSnapshotJob(ctx, cfg.Snapshot.Dir, cfg.Snapshot.Interval.Get())

	if cfg.Kafka.Enabled {
		bc, err := broadcaster.New(log, ob, cfg.Kafka.Brokers, cfg.Kafka.TradesTopic, cfg.Kafka.DrainInterval.Get())
		if err != nil {
			log.Fatal("broadcaster init failed", zap.Error(err))
		}
		defer bc.Close()
		bc.Start(ctx)

		qp := kafka.NewQuoteProducer(cfg.Kafka.Brokers, cfg.Kafka.QuotesTopic)
		defer qp.Close()
		quotes.New(log, svc, qp, cfg.MarketData.Depth, cfg.MarketData.Interval.Get()).Start(ctx)
	}

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.Server.ListenAddr)
	if err != nil {
		log.Fatal("listen failed", zap.Error(err))
	}

	grpcSrv := grpc.NewServer(grpc.ForceServerCodec(grpcapi.Codec{}))
	grpcapi.RegisterOrderAPIServer(grpcSrv, grpcapi.NewServer(log, svc))

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		cancel()
		grpcSrv.GracefulStop()
	}()

	log.Info("engine listening", zap.String("addr", cfg.Server.ListenAddr))
	if err := grpcSrv.Serve(lis); err != nil {
		log.Fatal("grpc server exited", zap.Error(err))
	}
}
