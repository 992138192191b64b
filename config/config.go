package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"krakenflow/models"
)

type Config struct {
	Krakenflow KrakenflowConfig `yaml:"krakenflow"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Reader     ReaderConfig     `yaml:"reader"`
	Processor  ProcessorConfig  `yaml:"processor"`
	Writer     WriterConfig     `yaml:"writer"`
	Source     SourceConfig     `yaml:"source"`
	Storage    StorageConfig    `yaml:"storage"`
	Monitor    MonitorConfig    `yaml:"monitor"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type KrakenflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type MetricsConfig struct {
	ChannelSize    bool             `yaml:"channel_size"`
	ReportInterval time.Duration    `yaml:"report_interval"`
	CloudWatch     CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

// MonitorConfig controls the JSON status server.
type MonitorConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Address         string        `yaml:"address"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	LogHistory      int           `yaml:"log_history"`
	CounterHistory  int           `yaml:"counter_history"`
}

type ChannelsConfig struct {
	PubBuffer  int `yaml:"pub_buffer"`
	NormBuffer int `yaml:"norm_buffer"`
}

type ReaderConfig struct {
	Timeout        time.Duration   `yaml:"timeout"`
	PingInterval   time.Duration   `yaml:"ping_interval"`
	ReconnectDelay time.Duration   `yaml:"reconnect_delay"`
	RateLimit      RateLimitConfig `yaml:"rate_limit"`
	ValidatePairs  bool            `yaml:"validate_pairs"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

type ProcessorConfig struct {
	MaxWorkers   int           `yaml:"max_workers"`
	BatchSize    int           `yaml:"batch_size"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	BookDepth    int           `yaml:"book_depth"`
}

type WriterConfig struct {
	MaxWorkers    int                `yaml:"max_workers"`
	FlushInterval time.Duration      `yaml:"flush_interval"`
	Partitioning  PartitioningConfig `yaml:"partitioning"`
	Parquet       ParquetConfig      `yaml:"parquet"`
}

type PartitioningConfig struct {
	Prefix     string `yaml:"prefix"`
	TimeFormat string `yaml:"time_format"`
}

type ParquetConfig struct {
	Compression  string `yaml:"compression"`
	RowGroupSize int64  `yaml:"row_group_size"`
	PageSize     int64  `yaml:"page_size"`
}

type SourceConfig struct {
	Kraken KrakenSourceConfig `yaml:"kraken"`
}

type KrakenSourceConfig struct {
	Websocket KrakenWebsocketConfig `yaml:"websocket"`
	Rest      KrakenRestConfig      `yaml:"rest"`
}

// SubscriptionConfig is one public channel subscription. Depth applies to
// book, Interval (minutes) to ohlc.
type SubscriptionConfig struct {
	Name     string `yaml:"name"`
	Depth    int64  `yaml:"depth"`
	Interval int64  `yaml:"interval"`
}

type KrakenWebsocketConfig struct {
	Enabled       bool                 `yaml:"enabled"`
	URL           string               `yaml:"url"`
	Token         string               `yaml:"token"`
	Pairs         []string             `yaml:"pairs"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	ShardsFile    string               `yaml:"shards_file"`
}

type KrakenRestConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	UserAgent string        `yaml:"user_agent"`
}

type StorageConfig struct {
	S3    S3Config    `yaml:"s3"`
	Kafka KafkaConfig `yaml:"kafka"`
}

// KafkaConfig publishes every normalized batch as one JSON message keyed by
// pair.
type KafkaConfig struct {
	Enabled      bool          `yaml:"enabled"`
	Brokers      []string      `yaml:"brokers"`
	Topic        string        `yaml:"topic"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

const (
	defaultWebsocketURL = "wss://ws.kraken.com"
	defaultRestURL      = "https://api.kraken.com"
)

var validSubscriptions = map[string]bool{
	"ticker":     true,
	"ohlc":       true,
	"trade":      true,
	"spread":     true,
	"book":       true,
	"ownTrades":  true,
	"openOrders": true,
}

// IsPrivateChannel reports whether the channel needs a websocket token.
func IsPrivateChannel(name string) bool {
	return name == "ownTrades" || name == "openOrders"
}

var validBookDepths = map[int64]bool{10: true, 25: true, 100: true, 500: true, 1000: true}

func defaultConfig() Config {
	return Config{
		Metrics: MetricsConfig{
			ChannelSize:    true,
			ReportInterval: time.Minute,
		},
		Channels: ChannelsConfig{PubBuffer: 1024, NormBuffer: 256},
		Reader: ReaderConfig{
			Timeout:        30 * time.Second,
			PingInterval:   30 * time.Second,
			ReconnectDelay: 5 * time.Second,
			RateLimit:      RateLimitConfig{RequestsPerSecond: 1, BurstSize: 5},
		},
		Processor: ProcessorConfig{BookDepth: 10},
		Writer: WriterConfig{
			MaxWorkers:    1,
			FlushInterval: time.Minute,
			Partitioning:  PartitioningConfig{Prefix: "kraken", TimeFormat: "{year}/{month}/{day}/{hour}"},
			Parquet:       ParquetConfig{Compression: "snappy", RowGroupSize: 128 * 1024 * 1024, PageSize: 8 * 1024},
		},
		Source: SourceConfig{Kraken: KrakenSourceConfig{
			Websocket: KrakenWebsocketConfig{URL: defaultWebsocketURL},
			Rest:      KrakenRestConfig{BaseURL: defaultRestURL, Timeout: 15 * time.Second, UserAgent: "krakenflow"},
		}},
		Monitor: MonitorConfig{Address: ":8080", RefreshInterval: 5 * time.Second, LogHistory: 200, CounterHistory: 200},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if v := os.Getenv("KRAKEN_WS_TOKEN"); v != "" {
		config.Source.Kraken.Websocket.Token = strings.TrimSpace(v)
	}

	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// WebsocketPairs parses the configured websocket pairs.
func (c *Config) WebsocketPairs() ([]models.CurrencyPair, error) {
	return models.ParsePairs(c.Source.Kraken.Websocket.Pairs)
}

func validateConfig(cfg *Config) error {
	if cfg.Krakenflow.Name == "" {
		return fmt.Errorf("krakenflow.name is required")
	}
	if cfg.Krakenflow.Version == "" {
		return fmt.Errorf("krakenflow.version is required")
	}

	if cfg.Channels.PubBuffer <= 0 {
		return fmt.Errorf("channels.pub_buffer must be greater than 0")
	}
	if cfg.Channels.NormBuffer <= 0 {
		return fmt.Errorf("channels.norm_buffer must be greater than 0")
	}

	if cfg.Reader.PingInterval <= 0 {
		return fmt.Errorf("reader.ping_interval must be greater than 0")
	}
	if cfg.Reader.RateLimit.RequestsPerSecond <= 0 {
		return fmt.Errorf("reader.rate_limit.requests_per_second must be greater than 0")
	}

	if cfg.Processor.MaxWorkers <= 0 {
		return fmt.Errorf("processor.max_workers must be greater than 0")
	}
	if cfg.Processor.BatchSize <= 0 {
		return fmt.Errorf("processor.batch_size must be greater than 0")
	}
	if cfg.Processor.BatchTimeout <= 0 {
		return fmt.Errorf("processor.batch_timeout must be greater than 0")
	}
	if cfg.Processor.BookDepth < 0 {
		return fmt.Errorf("processor.book_depth must not be negative")
	}

	if cfg.Writer.FlushInterval <= 0 {
		return fmt.Errorf("writer.flush_interval must be greater than 0")
	}

	ws := cfg.Source.Kraken.Websocket
	if ws.Enabled {
		if ws.URL == "" {
			return fmt.Errorf("source.kraken.websocket.url is required")
		}
		if len(ws.Pairs) == 0 && ws.ShardsFile == "" {
			return fmt.Errorf("source.kraken.websocket.pairs or shards_file is required")
		}
		if _, err := cfg.WebsocketPairs(); err != nil {
			return fmt.Errorf("source.kraken.websocket.pairs: %w", err)
		}
		if len(ws.Subscriptions) == 0 {
			return fmt.Errorf("source.kraken.websocket.subscriptions is required")
		}
		for _, sub := range ws.Subscriptions {
			if !validSubscriptions[sub.Name] {
				return fmt.Errorf("source.kraken.websocket.subscriptions: unknown channel '%s'", sub.Name)
			}
			if sub.Name == "book" && sub.Depth != 0 && !validBookDepths[sub.Depth] {
				return fmt.Errorf("source.kraken.websocket.subscriptions: invalid book depth %d", sub.Depth)
			}
			if IsPrivateChannel(sub.Name) && ws.Token == "" {
				return fmt.Errorf("source.kraken.websocket.token is required for '%s'", sub.Name)
			}
		}
	}

	if cfg.Source.Kraken.Rest.BaseURL == "" {
		return fmt.Errorf("source.kraken.rest.base_url is required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if cfg.Storage.S3.AccessKeyID == "" || cfg.Storage.S3.SecretAccessKey == "" {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key are required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	if cfg.Storage.Kafka.Enabled {
		if len(cfg.Storage.Kafka.Brokers) == 0 {
			return fmt.Errorf("storage.kafka.brokers is required when Kafka is enabled")
		}
		if cfg.Storage.Kafka.Topic == "" {
			return fmt.Errorf("storage.kafka.topic is required when Kafka is enabled")
		}
	}

	if cfg.Monitor.Enabled && cfg.Monitor.RefreshInterval <= 0 {
		return fmt.Errorf("monitor.refresh_interval must be greater than 0")
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
