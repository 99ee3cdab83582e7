package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Duration wraps time.Duration so intervals read naturally from TOML
// ("30s", "2m").
type Duration time.Duration

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

func (d Duration) Get() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	WAL        WALConfig        `toml:"wal"`
	Outbox     OutboxConfig     `toml:"outbox"`
	Snapshot   SnapshotConfig   `toml:"snapshot"`
	Kafka      KafkaConfig      `toml:"kafka"`
	MarketData MarketDataConfig `toml:"market_data"`
}

type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
}

type WALConfig struct {
	Dir         string `toml:"dir"`
	SegmentSize int64  `toml:"segment_size"`
}

type OutboxConfig struct {
	Dir string `toml:"dir"`
}

type SnapshotConfig struct {
	Dir      string   `toml:"dir"`
	Interval Duration `toml:"interval"`
}

type KafkaConfig struct {
	Enabled       bool     `toml:"enabled"`
	Brokers       []string `toml:"brokers"`
	TradesTopic   string   `toml:"trades_topic"`
	QuotesTopic   string   `toml:"quotes_topic"`
	DrainInterval Duration `toml:"drain_interval"`
}

type MarketDataConfig struct {
	Depth    int      `toml:"depth"`
	Interval Duration `toml:"interval"`
}

func Default() Config {
	return Config{
		Server:   ServerConfig{ListenAddr: ":50051"},
		WAL:      WALConfig{Dir: "./data/wal", SegmentSize: 16 << 20},
		Outbox:   OutboxConfig{Dir: "./data/outbox"},
		Snapshot: SnapshotConfig{Dir: "./data/snapshot", Interval: Duration(30 * time.Second)},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			TradesTopic:   "bondbook.trades",
			QuotesTopic:   "bondbook.quotes",
			DrainInterval: Duration(250 * time.Millisecond),
		},
		MarketData: MarketDataConfig{Depth: 5, Interval: Duration(time.Second)},
	}
}

// Load reads a TOML config file over the defaults. A missing file is fine;
// the defaults stand.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}
