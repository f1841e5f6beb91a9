package app

import (
	"context"
	"time"

	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"golang.org/x/sync/errgroup"

	"tickerflow/internal/broker"
	"tickerflow/internal/cache"
	"tickerflow/internal/config"
	"tickerflow/internal/dispatch"
	"tickerflow/internal/metadata"
	"tickerflow/internal/server"
	"tickerflow/pkg/conn"
)

const connectTimeout = 10 * time.Second

// RunScheduler dispatches schedule tasks on the configured cron specs until
// ctx is done or the shutdown endpoint is called.
func RunScheduler(ctx context.Context, cfg config.FileConfig, exit func()) error {
	schedules, err := cfg.Dispatch.Categories()
	if err != nil {
		return err
	}
	if len(schedules) == 0 {
		return errors.New("no dispatch schedule configured")
	}

	stopProfiling, err := startProfiling(cfg.Profiling, "scheduler")
	if err != nil {
		logs.Errorf("profiling disabled, err: %+v", err)
	}
	defer stopProfiling()

	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	mongo, err := conn.NewMongo(connectCtx, conn.MongoOption{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		AppName:  cfg.Kafka.ClientID,
	})
	if err != nil {
		return err
	}
	defer mongo.Close(context.Background())

	exchanges := cache.NewExchangeCache(metadata.NewMongoStore(mongo.Database()), cache.Config{
		MinTTL:        cfg.Cache.MinTTL,
		MaxTTL:        cfg.Cache.MaxTTL,
		ReloadWorkers: cfg.Cache.ReloadWorkers,
		ReloadBacklog: cfg.Cache.ReloadBacklog,
	})
	defer exchanges.Close()
	if err := exchanges.Preload(connectCtx); err != nil {
		logs.Errorf("preload exchanges, err: %+v", err)
	}

	producer, err := broker.NewKafkaProducer(broker.ProducerConfig{
		Brokers:      cfg.Kafka.Brokers,
		Topic:        cfg.Kafka.ScheduleTopic,
		ClientID:     cfg.Kafka.ClientID + "-schedule",
		BatchTimeout: cfg.Kafka.BatchTimeout,
	})
	if err != nil {
		return errors.Wrap(err, "schedule producer")
	}
	defer producer.Close()

	var opts []dispatch.Option
	if cfg.Redis.Addr != "" {
		client, err := conn.NewRedis(connectCtx, conn.RedisOption{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, dispatch.WithLocker(dispatch.NewRedisLocker(client)))
	}

	dispatcher, err := dispatch.New(exchanges, producer, dispatch.Config{
		Topic:        cfg.Kafka.ScheduleTopic,
		SendInterval: cfg.Dispatch.SendInterval,
		LockTTL:      cfg.Dispatch.LockTTL,
	}, opts...)
	if err != nil {
		return err
	}

	scheduler := dispatch.NewScheduler(dispatcher)
	for category, spec := range schedules {
		if err := scheduler.Add(ctx, spec, category); err != nil {
			return err
		}
	}
	scheduler.Start()
	stopScheduler := func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
		defer cancel()
		scheduler.Stop(stopCtx)
	}
	defer stopScheduler()

	srv := server.New(server.Config{
		Addr:          cfg.Server.Addr,
		ShutdownGrace: cfg.Server.ShutdownGrace,
	}, exit, stopScheduler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	logs.Infof("scheduler started, categories: %d", len(schedules))
	return g.Wait()
}
