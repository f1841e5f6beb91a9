package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/yanun0323/errors"

	"tickerflow/internal/model/enum"
)

const envPrefix = "TICKERFLOW"

// FileConfig mirrors the config file layout.
type FileConfig struct {
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Ring      RingConfig      `mapstructure:"ring"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Dispatch  DispatchConfig  `mapstructure:"dispatch"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Redis     RedisConfig     `mapstructure:"redis"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Server    ServerConfig    `mapstructure:"server"`
	Profiling ProfilingConfig `mapstructure:"profiling"`
}

// KafkaConfig describes the broker cluster and its topics.
type KafkaConfig struct {
	Brokers       []string         `mapstructure:"brokers"`
	ClientID      string           `mapstructure:"clientId"`
	ScheduleTopic string           `mapstructure:"scheduleTopic"`
	ResultTopic   string           `mapstructure:"resultTopic"`
	PollTimeout   time.Duration    `mapstructure:"pollTimeout"`
	BatchTimeout  time.Duration    `mapstructure:"batchTimeout"`
	Consumers     []ConsumerConfig `mapstructure:"consumers"`
}

// ConsumerConfig declares Count consumers of one topic.
type ConsumerConfig struct {
	Name     string `mapstructure:"name"`
	Topic    string `mapstructure:"topic"`
	GroupID  string `mapstructure:"groupId"`
	ClientID string `mapstructure:"clientId"`
	Count    int    `mapstructure:"count"`
}

// RingConfig sizes the work buffer.
type RingConfig struct {
	Size    int `mapstructure:"size"`
	Workers int `mapstructure:"workers"`
}

// CacheConfig bounds the exchange cache refresh.
type CacheConfig struct {
	MinTTL        time.Duration `mapstructure:"minTTL"`
	MaxTTL        time.Duration `mapstructure:"maxTTL"`
	ReloadWorkers int           `mapstructure:"reloadWorkers"`
	ReloadBacklog int           `mapstructure:"reloadBacklog"`
}

// DispatchConfig maps categories to cron specs.
type DispatchConfig struct {
	Schedules    map[string]string `mapstructure:"schedules"`
	SendInterval time.Duration     `mapstructure:"sendInterval"`
	LockTTL      time.Duration     `mapstructure:"lockTTL"`
}

// TelemetryConfig controls the execution log sink.
type TelemetryConfig struct {
	Enable         bool          `mapstructure:"enable"`
	BatchSize      int           `mapstructure:"batchSize"`
	QueueSize      int           `mapstructure:"queueSize"`
	FlushInterval  time.Duration `mapstructure:"flushInterval"`
	ReportInterval time.Duration `mapstructure:"reportInterval"`
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type PostgresConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Database   string `mapstructure:"database"`
	SSLMode    string `mapstructure:"sslMode"`
	ConnString string `mapstructure:"connString"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// HTTPConfig controls the exchange transport.
type HTTPConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	Attempts int           `mapstructure:"attempts"`
	ProxyURL string        `mapstructure:"proxyUrl"`
	Region   string        `mapstructure:"region"`
	UseProxy bool          `mapstructure:"useProxy"`
}

type ServerConfig struct {
	Addr          string        `mapstructure:"addr"`
	ShutdownGrace time.Duration `mapstructure:"shutdownGrace"`
}

type ProfilingConfig struct {
	Enable     bool   `mapstructure:"enable"`
	ServerAddr string `mapstructure:"serverAddr"`
	App        string `mapstructure:"app"`
}

// Default returns the baseline configuration.
func Default() FileConfig {
	return FileConfig{
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ClientID:      "tickerflow",
			ScheduleTopic: "ticker-schedule",
			ResultTopic:   "ticker-result",
			PollTimeout:   500 * time.Millisecond,
			BatchTimeout:  10 * time.Millisecond,
		},
		Ring: RingConfig{
			Size:    1024,
			Workers: 8,
		},
		Cache: CacheConfig{
			MinTTL:        10 * time.Minute,
			MaxTTL:        20 * time.Minute,
			ReloadWorkers: 4,
			ReloadBacklog: 2000,
		},
		Dispatch: DispatchConfig{
			Schedules:    map[string]string{},
			SendInterval: 7 * time.Millisecond,
			LockTTL:      4 * time.Minute,
		},
		Telemetry: TelemetryConfig{
			BatchSize:      100,
			QueueSize:      2000,
			FlushInterval:  time.Second,
			ReportInterval: time.Minute,
		},
		Mongo: MongoConfig{
			Database: "tickerflow",
		},
		HTTP: HTTPConfig{
			Timeout:  30 * time.Second,
			Attempts: 3,
		},
		Server: ServerConfig{
			Addr:          ":8080",
			ShutdownGrace: 15 * time.Second,
		},
		Profiling: ProfilingConfig{
			ServerAddr: "http://localhost:4040",
			App:        "tickerflow",
		},
	}
}

// Load reads path (optional) and applies TICKERFLOW_ environment overrides,
// e.g. TICKERFLOW_KAFKA_RESULTTOPIC.
func Load(path string) (FileConfig, error) {
	cfg := Default()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return FileConfig{}, errors.Wrap(err, "read config").With("path", path)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return FileConfig{}, errors.Wrap(err, "decode config")
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg FileConfig) {
	v.SetDefault("kafka.brokers", cfg.Kafka.Brokers)
	v.SetDefault("kafka.clientId", cfg.Kafka.ClientID)
	v.SetDefault("kafka.scheduleTopic", cfg.Kafka.ScheduleTopic)
	v.SetDefault("kafka.resultTopic", cfg.Kafka.ResultTopic)
	v.SetDefault("kafka.pollTimeout", cfg.Kafka.PollTimeout)
	v.SetDefault("kafka.batchTimeout", cfg.Kafka.BatchTimeout)
	v.SetDefault("ring.size", cfg.Ring.Size)
	v.SetDefault("ring.workers", cfg.Ring.Workers)
	v.SetDefault("cache.minTTL", cfg.Cache.MinTTL)
	v.SetDefault("cache.maxTTL", cfg.Cache.MaxTTL)
	v.SetDefault("cache.reloadWorkers", cfg.Cache.ReloadWorkers)
	v.SetDefault("cache.reloadBacklog", cfg.Cache.ReloadBacklog)
	v.SetDefault("dispatch.sendInterval", cfg.Dispatch.SendInterval)
	v.SetDefault("dispatch.lockTTL", cfg.Dispatch.LockTTL)
	v.SetDefault("telemetry.enable", cfg.Telemetry.Enable)
	v.SetDefault("telemetry.batchSize", cfg.Telemetry.BatchSize)
	v.SetDefault("telemetry.queueSize", cfg.Telemetry.QueueSize)
	v.SetDefault("telemetry.flushInterval", cfg.Telemetry.FlushInterval)
	v.SetDefault("telemetry.reportInterval", cfg.Telemetry.ReportInterval)
	v.SetDefault("mongo.uri", cfg.Mongo.URI)
	v.SetDefault("mongo.database", cfg.Mongo.Database)
	v.SetDefault("postgres.host", cfg.Postgres.Host)
	v.SetDefault("postgres.port", cfg.Postgres.Port)
	v.SetDefault("postgres.user", cfg.Postgres.User)
	v.SetDefault("postgres.password", cfg.Postgres.Password)
	v.SetDefault("postgres.database", cfg.Postgres.Database)
	v.SetDefault("postgres.sslMode", cfg.Postgres.SSLMode)
	v.SetDefault("postgres.connString", cfg.Postgres.ConnString)
	v.SetDefault("redis.addr", cfg.Redis.Addr)
	v.SetDefault("redis.password", cfg.Redis.Password)
	v.SetDefault("redis.db", cfg.Redis.DB)
	v.SetDefault("http.timeout", cfg.HTTP.Timeout)
	v.SetDefault("http.attempts", cfg.HTTP.Attempts)
	v.SetDefault("http.proxyUrl", cfg.HTTP.ProxyURL)
	v.SetDefault("http.region", cfg.HTTP.Region)
	v.SetDefault("http.useProxy", cfg.HTTP.UseProxy)
	v.SetDefault("server.addr", cfg.Server.Addr)
	v.SetDefault("server.shutdownGrace", cfg.Server.ShutdownGrace)
	v.SetDefault("profiling.enable", cfg.Profiling.Enable)
	v.SetDefault("profiling.serverAddr", cfg.Profiling.ServerAddr)
	v.SetDefault("profiling.app", cfg.Profiling.App)
}

func (c FileConfig) withDefaults() FileConfig {
	d := Default()
	if c.Kafka.PollTimeout <= 0 {
		c.Kafka.PollTimeout = d.Kafka.PollTimeout
	}
	if c.Ring.Size <= 0 {
		c.Ring.Size = d.Ring.Size
	}
	if c.Ring.Workers <= 0 {
		c.Ring.Workers = d.Ring.Workers
	}
	if c.Server.ShutdownGrace <= 0 {
		c.Server.ShutdownGrace = d.Server.ShutdownGrace
	}
	if len(c.Kafka.Consumers) == 0 {
		c.Kafka.Consumers = []ConsumerConfig{{
			Name:    "schedule",
			GroupID: c.Kafka.ClientID + "-collector",
		}}
	}
	for i := range c.Kafka.Consumers {
		cc := &c.Kafka.Consumers[i]
		if cc.Topic == "" {
			cc.Topic = c.Kafka.ScheduleTopic
		}
		if cc.ClientID == "" {
			cc.ClientID = c.Kafka.ClientID
		}
		if cc.Count <= 0 {
			cc.Count = 1
		}
		if cc.Name == "" {
			cc.Name = cc.GroupID
		}
	}
	return c
}

// Validate checks if the configuration is usable.
func (c FileConfig) Validate() error {
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("invalid config: kafka.brokers is empty")
	}
	if c.Ring.Size&(c.Ring.Size-1) != 0 {
		return fmt.Errorf("invalid config: ring.size must be a power of two, got %d", c.Ring.Size)
	}
	if c.Cache.MaxTTL > 0 && c.Cache.MaxTTL < c.Cache.MinTTL {
		return fmt.Errorf("invalid config: cache.maxTTL must be >= cache.minTTL")
	}
	for i, cc := range c.Kafka.Consumers {
		if cc.GroupID == "" {
			return fmt.Errorf("invalid config: kafka.consumers[%d].groupId is empty", i)
		}
		if cc.Topic == "" {
			return fmt.Errorf("invalid config: kafka.consumers[%d].topic is empty", i)
		}
	}
	if _, err := c.Dispatch.Categories(); err != nil {
		return err
	}
	return nil
}

// Categories resolves the schedule keys into categories.
func (c DispatchConfig) Categories() (map[enum.DataCategory]string, error) {
	out := make(map[enum.DataCategory]string, len(c.Schedules))
	for name, spec := range c.Schedules {
		category, ok := enum.ParseCategory(name)
		if !ok {
			return nil, fmt.Errorf("invalid config: unknown dispatch category %q", name)
		}
		if strings.TrimSpace(spec) == "" {
			return nil, fmt.Errorf("invalid config: empty schedule for %s", category)
		}
		out[category] = spec
	}
	return out, nil
}
