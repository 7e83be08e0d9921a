package main

import (
	"context"
	"errors"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"google.golang.org/grpc"

	"lobfeed/api/grpcserver"
	"lobfeed/domain/feed"
	"lobfeed/infra/config"
	"lobfeed/infra/database"
	"lobfeed/infra/journal"
	"lobfeed/infra/kafka"
	applog "lobfeed/infra/log"
	"lobfeed/infra/market"
	"lobfeed/infra/metrics"
	"lobfeed/infra/outbox"
	"lobfeed/infra/ws"
	"lobfeed/jobs/broadcaster"
	"lobfeed/jobs/printer"
	"lobfeed/jobs/reporter"
	"lobfeed/service"
	"lobfeed/snapshot"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	// ---------------- Config ----------------

	cfg, err := config.Load(*configPath)
	logger := applog.NewLogger(cfg.Logging)
	if err != nil {
		logger.Fatal().Err(err).Msg("config")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// ---------------- Market metadata ----------------

	markets, err := market.NewClient(cfg.IndexerAPI).Query(ctx)
	if err != nil {
		logger.Warn().Err(err).Msg("market metadata unavailable, printing raw units")
	}

	// ---------------- Metrics ----------------

	m := metrics.New(logger)
	takers := metrics.NewTakerOrders(m, logger, cfg.Print.TakerOrders)

	newHandler := func() *feed.Handler {
		opts := []feed.Option{
			feed.WithLogger(logger.With().Str("component", "feed").Logger()),
			feed.WithObserver(m),
			feed.WithTakerOrderSink(takers),
		}
		if cfg.Feed.PerInstrumentSnapshot {
			opts = append(opts, feed.WithPerInstrumentSnapshots())
		}
		return feed.New(opts...)
	}

	// ---------------- Journal ----------------

	var jnl *journal.Journal
	if cfg.Storage.JournalDir != "" {
		jnl, err = journal.Open(journal.Config{
			Dir:         cfg.Storage.JournalDir,
			SegmentSize: cfg.Storage.JournalSegment,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("journal init failed")
		}
		defer jnl.Close()
	}

	// ---------------- Outbox + sinks ----------------

	// The outbox only exists when something drains it.
	publishKafka, persistFills := cfg.PublishesFills(), cfg.PersistsFills()

	var ob *outbox.Outbox
	var bc *broadcaster.Broadcaster
	if publishKafka || persistFills {
		ob, err = outbox.Open(cfg.Storage.OutboxDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("outbox init failed")
		}
		defer ob.Close()

		var sink broadcaster.FillSink
		if persistFills {
			db, err := database.ConnectWithRetries(ctx, cfg.Storage.PostgresDSN, logger)
			if err != nil {
				logger.Fatal().Err(err).Msg("postgres")
			}
			store := database.NewFillStore(db, logger)
			if err := store.EnsureTableExists(ctx); err != nil {
				logger.Fatal().Err(err).Msg("create fills table")
			}
			defer store.Close()
			sink = store
		}

		var producer sarama.SyncProducer
		if publishKafka {
			producer, err = broadcaster.NewSyncProducer(cfg.Kafka.Brokers)
			if err != nil {
				logger.Fatal().Err(err).Msg("kafka producer")
			}
		}
		bc = broadcaster.New(ob, producer, cfg.Kafka.FillsTopic, sink, m, logger)
		defer bc.Close()
	}

	// ---------------- Reporter ----------------

	var rep *reporter.Reporter
	if len(cfg.Kafka.Brokers) > 0 && cfg.Kafka.SubaccountTopic != "" && len(cfg.Feed.SubaccountIDs) > 0 {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.SubaccountTopic)
		defer producer.Close()
		rep = reporter.New(producer, 1024, logger)
	}

	// ---------------- Service ----------------

	prn := printer.New(os.Stdout, markets, printer.Options{
		Books:    cfg.Print.Books,
		Fills:    cfg.Print.Fills,
		Accounts: cfg.Print.Accounts,
		Depth:    cfg.Print.Depth,
	}, logger)

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithMetrics(m),
		service.WithMarkets(markets),
		service.WithPrinter(prn),
		service.WithDumps(&snapshot.Writer{Dir: cfg.Storage.DumpDir}),
	}
	if jnl != nil {
		opts = append(opts, service.WithJournal(jnl))
	}
	if ob != nil {
		opts = append(opts, service.WithOutbox(ob))
	}
	if rep != nil {
		opts = append(opts, service.WithReporter(rep))
	}
	svc := service.New(newHandler, opts...)

	// ---------------- Background Jobs ----------------

	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	if bc != nil {
		spawn(func() { bc.Run(ctx) })
	}
	if rep != nil {
		spawn(func() { rep.Run(ctx) })
	}
	spawn(func() { prn.Run(ctx, svc, cfg.PrintInterval()) })

	// ---------------- Metrics HTTP ----------------

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	metricsSrv := &http.Server{Addr: cfg.Server.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	spawn(func() {
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server exited")
		}
	})

	// ---------------- gRPC ----------------

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Fatal().Err(err).Msg("listen failed")
	}
	grpcSrv := grpc.NewServer(grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(logger)))
	grpcserver.RegisterBookQueryServer(grpcSrv, grpcserver.NewServer(svc, markets, cfg.Print.Depth))
	spawn(func() {
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error().Err(err).Msg("gRPC server exited")
		}
	})

	// ---------------- Feed ----------------

	logger.Info().
		Str("transport", cfg.Feed.Transport).
		Uints32("clob_pair_ids", cfg.Feed.ClobPairIDs).
		Str("grpc", cfg.Server.GRPCAddr).
		Msg("lobfeed running")

	if err := runFeed(ctx, cfg, svc, m, logger); err != nil {
		logger.Error().Err(err).Msg("feed stopped")
	}

	// ---------------- Shutdown ----------------

	cancel()
	grpcSrv.GracefulStop()
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	_ = metricsSrv.Shutdown(shutdownCtx)
	wg.Wait()
	logger.Info().Msg("stopped")
}

func runFeed(ctx context.Context, cfg config.Config, svc *service.FeedService, m *metrics.Metrics, logger applog.Logger) error {
	switch cfg.Feed.Transport {
	case "kafka":
		src := kafka.NewSource(cfg.Kafka.Brokers, cfg.Kafka.SourceTopic, cfg.Kafka.SourceGroup, logger)
		defer src.Close()
		return src.Run(ctx, func(ctx context.Context, raw []byte) error {
			// The relay resubscribes on its own; the next snapshot on the
			// topic rebuilds the reset handler.
			if err := svc.IngestRetrying(ctx, raw, ws.Backoff); err != nil && !errors.Is(err, service.ErrHandlerReset) {
				return err
			}
			return nil
		})

	default:
		w := ws.NewWorker(cfg.StreamURL(), logger)
		connected := false
		w.OnConnect = func(context.Context) error {
			if connected {
				m.WSReconnects.Inc()
			}
			connected = true
			return svc.Reset("subscribed")
		}
		return w.Run(ctx, func(ctx context.Context, raw []byte) error {
			return svc.IngestRetrying(ctx, raw, ws.Backoff)
		})
	}
}
