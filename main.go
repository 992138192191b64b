package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"krakenflow/config"
	"krakenflow/internal/channel"
	"krakenflow/internal/monitor"
	"krakenflow/logger"
	"krakenflow/models"
	"krakenflow/processor"
	"krakenflow/reader/kraken"
	"krakenflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	shardPath := flag.String("shards", "", "Path to pair shard file (defaults to source.kraken.websocket.shards_file)")
	backfill := flag.Duration("backfill", 0, "Fetch REST trade history for this far back before streaming")
	backfillPages := flag.Int("backfill-pages", 10, "Maximum trade history pages per pair")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	env := config.AppEnvironment()
	log.WithFields(logger.Fields{
		"service":     cfg.Krakenflow.Name,
		"version":     cfg.Krakenflow.Version,
		"environment": env,
	}).Info("starting krakenflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Metrics.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace, cfg.Metrics.CloudWatch.Dashboard)
	}
	if cfg.Metrics.ReportInterval > 0 {
		logger.StartReport(ctx, log, cfg.Metrics.ReportInterval)
	}

	channels := channel.NewChannels(cfg.Channels.PubBuffer, cfg.Channels.NormBuffer)
	defer channels.Close()
	if cfg.Metrics.ChannelSize && cfg.Metrics.ReportInterval > 0 {
		channels.StartMetricsReporting(ctx, cfg.Metrics.ReportInterval)
	}

	shards, err := loadShards(cfg, *shardPath, env)
	if err != nil {
		log.WithError(err).Error("failed to load shard configuration")
		os.Exit(1)
	}

	readers := make([]*kraken.Kraken_WS_Reader, 0, len(shards.Shards))
	var allPairs []models.CurrencyPair
	for _, shard := range shards.Shards {
		pairs, err := shard.CurrencyPairs()
		if err != nil {
			log.WithError(err).WithFields(logger.Fields{"ip": shard.IP}).Error("invalid shard pairs")
			os.Exit(1)
		}
		allPairs = append(allPairs, pairs...)
		readers = append(readers, kraken.Kraken_WS_NewReader(cfg, channels, pairs, shard.IP))
	}

	normalizer := processor.NewNormalizer(cfg, channels)

	// Every enabled sink gets its own copy of the normalized batches.
	sinks := 0
	if cfg.Storage.S3.Enabled {
		sinks++
	}
	if cfg.Storage.Kafka.Enabled {
		sinks++
	}
	var sinkChans []chan models.BatchMessage
	var fanOutDone <-chan struct{}
	if sinks > 0 {
		sinkChans, fanOutDone = channels.FanOut(sinks, cfg.Channels.NormBuffer)
	} else {
		log.WithComponent("main").Warn("no storage sink enabled; normalized batches are dropped")
	}

	var s3Writer *writer.Writer
	var kafkaWriter *writer.KafkaWriter
	next := 0
	if cfg.Storage.S3.Enabled {
		s3Writer, err = writer.NewWriter(cfg, sinkChans[next])
		if err != nil {
			log.WithError(err).Error("failed to create S3 writer")
			os.Exit(1)
		}
		next++
	}
	if cfg.Storage.Kafka.Enabled {
		kafkaWriter, err = writer.NewKafkaWriter(cfg, sinkChans[next])
		if err != nil {
			log.WithError(err).Error("failed to create kafka writer")
			os.Exit(1)
		}
	}

	if err := normalizer.Start(ctx); err != nil {
		log.WithError(err).Error("normalizer failed to start")
		os.Exit(1)
	}
	if s3Writer != nil {
		if err := s3Writer.Start(ctx); err != nil {
			log.WithError(err).Error("s3 writer failed to start")
			os.Exit(1)
		}
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Start(ctx); err != nil {
			log.WithError(err).Error("kafka writer failed to start")
			os.Exit(1)
		}
	}

	var wg sync.WaitGroup

	if srv := monitor.NewServer(cfg.Monitor, log, normalizer, channels); srv != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := srv.Run(ctx, cfg.Krakenflow.Name); err != nil {
				log.WithError(err).Error("monitor server failed")
			}
		}()
	}

	if *backfill > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backfillTrades(ctx, cfg, normalizer, allPairs, time.Now().Add(-*backfill), *backfillPages)
		}()
	}

	for _, r := range readers {
		if err := r.Kraken_WS_Start(ctx); err != nil {
			log.WithError(err).Warn("kraken reader failed to start")
		}
	}

	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")
	cancel()

	done := make(chan struct{})
	go func() {
		log.Info("stopping kraken readers")
		for _, r := range readers {
			r.Kraken_WS_Stop()
		}
		wg.Wait()

		log.Info("stopping normalizer")
		normalizer.Stop()
		channels.Close()
		if fanOutDone != nil {
			<-fanOutDone
		}

		if s3Writer != nil {
			log.Info("stopping S3 writer")
			s3Writer.Stop()
		}
		if kafkaWriter != nil {
			log.Info("stopping kafka writer")
			kafkaWriter.Stop()
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("krakenflow stopped")
}

// loadShards reads the shard file. Outside production a missing file falls
// back to one shard holding the configured pairs.
func loadShards(cfg *config.Config, flagPath, env string) (*config.PairShards, error) {
	path := flagPath
	if path == "" {
		path = cfg.Source.Kraken.Websocket.ShardsFile
	}
	path = config.ResolveShardsPath(path)

	shards, err := config.LoadPairShards(path)
	if err == nil {
		return shards, nil
	}
	if config.IsProductionLike(env) || len(cfg.Source.Kraken.Websocket.Pairs) == 0 {
		return nil, err
	}
	logger.GetLogger().WithComponent("main").WithFields(logger.Fields{"path": path}).
		Warn("shard file unavailable, using configured pairs")
	return config.SingleShard(cfg.Source.Kraken.Websocket.Pairs), nil
}

func backfillTrades(ctx context.Context, cfg *config.Config, n *processor.Normalizer, pairs []models.CurrencyPair, since time.Time, maxPages int) {
	log := logger.GetLogger().WithComponent("backfill")
	client := kraken.NewRestClient(cfg, "")

	for _, pair := range pairs {
		pager := client.NewTradeHistoryPager(pair, since, maxPages)
		total := 0
		for {
			res, err := pager.Next(ctx)
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).WithFields(logger.Fields{"pair": pair.String()}).Warn("trade history page failed")
				}
				break
			}
			total += n.AddTradeHistory(pair, res.Data.Trades, time.Now())
		}
		log.WithFields(logger.Fields{"pair": pair.String(), "entries": total, "cursor": pager.Cursor()}).Info("trade history backfilled")
		if ctx.Err() != nil {
			return
		}
	}
}
