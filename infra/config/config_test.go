package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Feed.Transport != "websocket" || c.Print.Depth != 5 {
		t.Fatalf("unexpected defaults %+v", c)
	}
}

func TestYAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobfeed.yaml")
	yml := `
indexer_api: http://indexer.local
feed:
  full_node_host: node.local
  clob_pair_ids: [3]
print:
  books: true
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("CLOB_PAIR_IDS", "0 1 2")
	t.Setenv("SUBACCOUNT_IDS", "dydx1abc/0 dydx1def/1")
	t.Setenv("PRINT_FILLS", "true")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.IndexerAPI != "http://indexer.local" || c.Feed.FullNodeHost != "node.local" {
		t.Fatalf("yaml not applied: %+v", c)
	}
	if !slices.Equal(c.Feed.ClobPairIDs, []uint32{0, 1, 2}) {
		t.Fatalf("env did not override clob pairs: %v", c.Feed.ClobPairIDs)
	}
	if !c.Print.Books || !c.Print.Fills {
		t.Fatalf("print flags %+v", c.Print)
	}
	if len(c.Feed.SubaccountIDs) != 2 {
		t.Fatalf("want 2 subaccounts, got %v", c.Feed.SubaccountIDs)
	}
}

func TestBadEnvRejected(t *testing.T) {
	t.Setenv("WEBSOCKET_PORT", "not-a-port")
	if _, err := Load(""); err == nil {
		t.Fatal("want error for bad WEBSOCKET_PORT")
	}
}

func TestValidate(t *testing.T) {
	c := defaultConfig()
	c.Feed.Transport = "carrier-pigeon"
	if err := c.Validate(); err == nil {
		t.Fatal("want error for unknown transport")
	}

	c = defaultConfig()
	c.Feed.Transport = "kafka"
	if err := c.Validate(); err == nil {
		t.Fatal("want error for kafka without brokers")
	}

	c = defaultConfig()
	c.Feed.SubaccountIDs = []string{"nonumber"}
	if err := c.Validate(); err == nil {
		t.Fatal("want error for malformed subaccount id")
	}
}

func TestStreamURL(t *testing.T) {
	c := defaultConfig()
	c.Feed.FullNodeHost = "node"
	c.Feed.WebsocketPort = 9092
	c.Feed.ClobPairIDs = []uint32{0, 1}
	c.Feed.SubaccountIDs = []string{"dydx1abc/0"}

	got := c.StreamURL()
	if !strings.HasPrefix(got, "ws://node:9092/ws?") {
		t.Fatalf("unexpected url %s", got)
	}
	if !strings.Contains(got, "clobPairIds=0%2C1") || !strings.Contains(got, "subaccountIds=dydx1abc%2F0") {
		t.Fatalf("missing subscriptions in %s", got)
	}
}

func TestFillSinks(t *testing.T) {
	c := defaultConfig()
	c.Kafka.FillsTopic = ""
	c.Kafka.Brokers = []string{"kafka:9092"}
	c.Kafka.SourceTopic = "stream"
	if c.PublishesFills() || c.PersistsFills() {
		t.Fatal("source brokers alone must not enable a fill sink")
	}

	c.Kafka.FillsTopic = "fills"
	if !c.PublishesFills() {
		t.Fatal("brokers and a fills topic publish fills")
	}

	c = defaultConfig()
	c.Storage.PostgresDSN = "postgres://localhost/lobfeed"
	if c.PublishesFills() || !c.PersistsFills() {
		t.Fatal("a DSN alone persists fills without publishing them")
	}
}
