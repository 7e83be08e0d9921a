package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"lobfeed/domain/subaccount"
)

type Logging struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

type Feed struct {
	// Transport is "websocket" or "kafka".
	Transport     string   `yaml:"transport"`
	FullNodeHost  string   `yaml:"full_node_host"`
	WebsocketPort int      `yaml:"websocket_port"`
	ClobPairIDs   []uint32 `yaml:"clob_pair_ids"`
	// SubaccountIDs are "owner/number" pairs.
	SubaccountIDs         []string `yaml:"subaccount_ids"`
	PerInstrumentSnapshot bool     `yaml:"per_instrument_snapshot"`
}

type Print struct {
	IntervalMS  int  `yaml:"interval_ms"`
	Books       bool `yaml:"books"`
	Fills       bool `yaml:"fills"`
	Accounts    bool `yaml:"accounts"`
	TakerOrders bool `yaml:"taker_orders"`
	Depth       int  `yaml:"depth"`
}

type Kafka struct {
	Brokers         []string `yaml:"brokers"`
	FillsTopic      string   `yaml:"fills_topic"`
	SubaccountTopic string   `yaml:"subaccount_topic"`
	SourceTopic     string   `yaml:"source_topic"`
	SourceGroup     string   `yaml:"source_group"`
}

type Storage struct {
	OutboxDir      string `yaml:"outbox_dir"`
	JournalDir     string `yaml:"journal_dir"`
	JournalSegment int64  `yaml:"journal_segment_bytes"`
	DumpDir        string `yaml:"dump_dir"`
	PostgresDSN    string `yaml:"postgres_dsn"`
}

type Server struct {
	GRPCAddr    string `yaml:"grpc_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type Config struct {
	IndexerAPI string  `yaml:"indexer_api"`
	Feed       Feed    `yaml:"feed"`
	Print      Print   `yaml:"print"`
	Kafka      Kafka   `yaml:"kafka"`
	Storage    Storage `yaml:"storage"`
	Server     Server  `yaml:"server"`
	Logging    Logging `yaml:"logging"`
}

func defaultConfig() Config {
	var c Config
	c.IndexerAPI = "https://indexer.dydx.trade"
	c.Feed.Transport = "websocket"
	c.Feed.FullNodeHost = "localhost"
	c.Feed.WebsocketPort = 9092
	c.Feed.ClobPairIDs = []uint32{0, 1}
	c.Print.IntervalMS = 1000
	c.Print.Depth = 5
	c.Kafka.FillsTopic = "lobfeed.fills"
	c.Kafka.SubaccountTopic = "lobfeed.subaccounts"
	c.Kafka.SourceTopic = "lobfeed.stream"
	c.Kafka.SourceGroup = "lobfeed"
	c.Storage.OutboxDir = "./data/outbox"
	c.Storage.JournalSegment = 64 * 1024 * 1024
	c.Storage.DumpDir = "./data/dumps"
	c.Server.GRPCAddr = ":50051"
	c.Server.MetricsAddr = ":9100"
	c.Logging.Level = "info"
	return c
}

// Load layers the YAML file at path (optional) and then the environment
// over the defaults.
func Load(path string) (Config, error) {
	c := defaultConfig()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return c, fmt.Errorf("parse config: %w", err)
		}
	}
	if err := overrideWithEnv(&c); err != nil {
		return c, err
	}
	return c, c.Validate()
}

func overrideWithEnv(c *Config) error {
	var errs []error
	str := func(key string, dst *string) {
		v, err := GetEnv(key, *dst)
		errs = append(errs, err)
		*dst = v
	}
	num := func(key string, dst *int) {
		v, err := GetEnv(key, *dst)
		errs = append(errs, err)
		*dst = v
	}
	flag := func(key string, dst *bool) {
		v, err := GetEnv(key, *dst)
		errs = append(errs, err)
		*dst = v
	}
	list := func(key string, dst *[]string) {
		v, err := GetEnv(key, *dst)
		errs = append(errs, err)
		*dst = v
	}

	str("INDEXER_API", &c.IndexerAPI)
	str("FULL_NODE_HOST", &c.Feed.FullNodeHost)
	num("WEBSOCKET_PORT", &c.Feed.WebsocketPort)
	list("SUBACCOUNT_IDS", &c.Feed.SubaccountIDs)
	num("INTERVAL_MS", &c.Print.IntervalMS)
	flag("PRINT_BOOKS", &c.Print.Books)
	flag("PRINT_FILLS", &c.Print.Fills)
	flag("PRINT_ACCOUNTS", &c.Print.Accounts)
	flag("PRINT_TAKER_ORDERS", &c.Print.TakerOrders)

	str("LOBFEED_TRANSPORT", &c.Feed.Transport)
	list("LOBFEED_KAFKA_BROKERS", &c.Kafka.Brokers)
	str("LOBFEED_OUTBOX_DIR", &c.Storage.OutboxDir)
	str("LOBFEED_JOURNAL_DIR", &c.Storage.JournalDir)
	str("LOBFEED_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("LOBFEED_GRPC_ADDR", &c.Server.GRPCAddr)
	str("LOBFEED_METRICS_ADDR", &c.Server.MetricsAddr)
	str("LOBFEED_LOG_LEVEL", &c.Logging.Level)
	flag("LOBFEED_LOG_PRETTY", &c.Logging.Pretty)

	if v, ok := os.LookupEnv("CLOB_PAIR_IDS"); ok {
		ids, err := parseClobPairIDs(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			c.Feed.ClobPairIDs = ids
		}
	}
	return errors.Join(errs...)
}

func parseClobPairIDs(v string) ([]uint32, error) {
	var out []uint32
	for _, f := range strings.Fields(strings.ReplaceAll(v, ",", " ")) {
		id, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("CLOB_PAIR_IDS: %w", err)
		}
		out = append(out, uint32(id))
	}
	return out, nil
}

func (c Config) Validate() error {
	if len(c.Feed.ClobPairIDs) == 0 {
		return errors.New("config: at least one clob pair id is required")
	}
	switch c.Feed.Transport {
	case "websocket":
		if c.Feed.FullNodeHost == "" || c.Feed.WebsocketPort <= 0 {
			return errors.New("config: websocket transport needs full_node_host and websocket_port")
		}
	case "kafka":
		if len(c.Kafka.Brokers) == 0 || c.Kafka.SourceTopic == "" {
			return errors.New("config: kafka transport needs brokers and source_topic")
		}
	default:
		return fmt.Errorf("config: unknown transport %q", c.Feed.Transport)
	}
	for _, s := range c.Feed.SubaccountIDs {
		if _, err := subaccount.ParseID(s); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if c.Print.IntervalMS <= 0 {
		return errors.New("config: interval_ms must be positive")
	}
	return nil
}

// PublishesFills reports whether fills are sent to a kafka topic.
func (c Config) PublishesFills() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.FillsTopic != ""
}

// PersistsFills reports whether fills are written to postgres.
func (c Config) PersistsFills() bool {
	return c.Storage.PostgresDSN != ""
}

func (c Config) PrintInterval() time.Duration {
	return time.Duration(c.Print.IntervalMS) * time.Millisecond
}

// StreamURL is the full node websocket endpoint with the configured
// subscriptions.
func (c Config) StreamURL() string {
	ids := make([]string, len(c.Feed.ClobPairIDs))
	for i, id := range c.Feed.ClobPairIDs {
		ids[i] = strconv.FormatUint(uint64(id), 10)
	}
	q := url.Values{}
	q.Set("clobPairIds", strings.Join(ids, ","))
	if len(c.Feed.SubaccountIDs) > 0 {
		q.Set("subaccountIds", strings.Join(c.Feed.SubaccountIDs, ","))
	}
	u := url.URL{
		Scheme:   "ws",
		Host:     fmt.Sprintf("%s:%d", c.Feed.FullNodeHost, c.Feed.WebsocketPort),
		Path:     "/ws",
		RawQuery: q.Encode(),
	}
	return u.String()
}
