package app

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"tickerflow/internal/broker"
	"tickerflow/internal/config"
	"tickerflow/internal/consumer"
	"tickerflow/internal/exchange"
	"tickerflow/internal/model"
	"tickerflow/internal/publish"
	"tickerflow/internal/ring"
	"tickerflow/internal/server"
	"tickerflow/internal/telemetry"
	"tickerflow/internal/worker"
	"tickerflow/pkg/conn"
	"tickerflow/pkg/httpx"
)

// RunCollector consumes schedule tasks, fetches tickers and publishes the
// results until ctx is done or the shutdown endpoint is called.
func RunCollector(ctx context.Context, cfg config.FileConfig, exit func()) error {
	stopProfiling, err := startProfiling(cfg.Profiling, "collector")
	if err != nil {
		logs.Errorf("profiling disabled, err: %+v", err)
	}
	defer stopProfiling()

	metrics := telemetry.NewMetrics()

	sink, closeStore, err := newSink(ctx, cfg, metrics)
	if err != nil {
		return err
	}
	defer closeStore()
	if err := sink.Start(ctx); err != nil {
		return err
	}
	defer sink.Close()

	resultProducer, err := broker.NewKafkaProducer(broker.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ResultTopic,
		ClientID:     cfg.Kafka.ClientID + "-result",
		Async:        true,
		BatchTimeout: cfg.Kafka.BatchTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "result producer")
	}
	defer resultProducer.Close()

	publisher, err := publish.NewPublisher(resultProducer, publish.WithMetrics(metrics))
	if err != nil {
		return err
	}

	registry, err := exchange.DefaultRegistry(exchange.Deps{
		HTTP: httpx.New(httpx.Config{
			Timeout:  cfg.HTTP.Timeout,
			Attempts: cfg.HTTP.Attempts,
			ProxyURL: cfg.HTTP.ProxyURL,
			Region:   cfg.HTTP.Region,
		}),
		UseProxy: cfg.HTTP.UseProxy,
	})
	if err != nil {
		return err
	}
	logs.Infof("exchange adapters registered: %v", registry.IDs())

	w, err := worker.New(registry, publisher, sink, worker.WithMetrics(metrics))
	if err != nil {
		return err
	}

	buf, err := ring.NewBuffer[model.ScheduleTask](cfg.Ring.Size)
	if err != nil {
		return err
	}
	pool := ring.NewPool(buf, cfg.Ring.Workers, w.Handle)
	// workers finish in-flight tasks after ctx is done
	if err := pool.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	register, err := consumer.NewRegister(pool, consumer.KafkaFactory, metrics, cfg.Kafka.PollTimeout)
	if err != nil {
		pool.Shutdown()
		return err
	}
	if err := register.Start(ctx, consumerDefinitions(cfg)...); err != nil {
		pool.Shutdown()
		return err
	}
	defer register.Destroy()

	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		ShutdownGrace: cfg.Server.ShutdownGrace,
	}, exit, register.Destroy)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		metrics.Report(gctx, cfg.Telemetry.ReportInterval)
		return nil
	})
	logs.Infof("collector started, ring: %d, workers: %d", cfg.Ring.Size, cfg.Ring.Workers)
	return g.Wait()
}

func consumerDefinitions(cfg config.FileConfig) []consumer.Definition {
	defs := make([]consumer.Definition, 0, len(cfg.Kafka.Consumers))
	for _, c := range cfg.Kafka.Consumers {
		defs = append(defs, consumer.Definition{
			Name:  c.Name,
			Count: c.Count,
			Config: broker.ConsumerConfig{
				Brokers:  cfg.Kafka.Brokers,
				Topic:    c.Topic,
				GroupID:  c.GroupID,
				ClientID: c.ClientID,
			},
		})
	}
	return defs
}

// newSink builds the log sink, opening Postgres only when persistence is on.
func newSink(ctx context.Context, cfg config.FileConfig, metrics *telemetry.Metrics) (*telemetry.Sink, func(), error) {
	sinkCfg := telemetry.Config{
		Enable:        cfg.Telemetry.Enable,
		QueueSize:     cfg.Telemetry.QueueSize,
		BatchSize:     cfg.Telemetry.BatchSize,
		FlushInterval: cfg.Telemetry.FlushInterval,
	}
	if !sinkCfg.Enable {
		sink, err := telemetry.NewSink(sinkCfg, nil, metrics)
		return sink, func() {}, err
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	pg, err := conn.NewPostgres(connectCtx, conn.PostgresOption{
		Host:       cfg.Postgres.Host,
		Port:       cfg.Postgres.Port,
		User:       cfg.Postgres.User,
		Password:   cfg.Postgres.Password,
		Database:   cfg.Postgres.Database,
		SSLMode:    cfg.Postgres.SSLMode,
		ConnString: cfg.Postgres.ConnString,
	})
	if err != nil {
		return nil, nil, err
	}
	store := telemetry.NewPGStore(pg.DB())
	if err := store.Migrate(connectCtx); err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	sink, err := telemetry.NewSink(sinkCfg, store, metrics)
	if err != nil {
		_ = pg.Close()
		return nil, nil, err
	}
	return sink, func() { _ = pg.Close() }, nil
}
