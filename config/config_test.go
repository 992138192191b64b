package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const minimalConfig = `krakenflow:
  name: "TestApp"
  version: "1.0"
processor:
  max_workers: 1
  batch_size: 1
  batch_timeout: 1s
source:
  kraken:
    websocket:
      enabled: true
      pairs: ["XBT/USD", "ETH/EUR"]
      subscriptions:
        - name: trade
        - name: book
          depth: 25
storage:
  s3:
    enabled: false
`

// writeTempFile writes content to a file in a per-test directory and returns
// its path.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("KRAKEN_WS_TOKEN", "")
	path := writeTempFile(t, "cfg.yml", minimalConfig)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Krakenflow.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Krakenflow.Name)
	}
	if cfg.Source.Kraken.Websocket.URL != "wss://ws.kraken.com" {
		t.Errorf("default websocket url not applied: %s", cfg.Source.Kraken.Websocket.URL)
	}
	if cfg.Reader.PingInterval != 30*time.Second {
		t.Errorf("unexpected ping interval: %v", cfg.Reader.PingInterval)
	}
	pairs, err := cfg.WebsocketPairs()
	if err != nil || len(pairs) != 2 || pairs[0].String() != "XBT/USD" {
		t.Errorf("pairs = %v, %v", pairs, err)
	}
	if subs := cfg.Source.Kraken.Websocket.Subscriptions; len(subs) != 2 || subs[1].Depth != 25 {
		t.Errorf("subscriptions = %+v", subs)
	}
}

func TestLoadConfigTokenOverride(t *testing.T) {
	t.Setenv("KRAKEN_WS_TOKEN", " secret ")
	cfg, err := LoadConfig(writeTempFile(t, "cfg.yml", minimalConfig))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Source.Kraken.Websocket.Token != "secret" {
		t.Errorf("token = %q", cfg.Source.Kraken.Websocket.Token)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name    string
		from    string
		to      string
		wantErr string
	}{
		{"missing name", `name: "TestApp"`, `name: ""`, "krakenflow.name"},
		{"bad pair", `"ETH/EUR"`, `"ETHEUR"`, "pairs"},
		{"unknown pair half", `"ETH/EUR"`, `"ETH/XYZ"`, "pairs"},
		{"unknown channel", `name: trade`, `name: orders`, "unknown channel"},
		{"bad depth", `depth: 25`, `depth: 7`, "book depth"},
		{"no workers", `max_workers: 1`, `max_workers: 0`, "processor.max_workers"},
		{"kafka without brokers", "storage:\n", "storage:\n  kafka:\n    enabled: true\n    topic: kraken\n", "storage.kafka.brokers"},
		{"kafka without topic", "storage:\n", "storage:\n  kafka:\n    enabled: true\n    brokers: [\"localhost:9092\"]\n", "storage.kafka.topic"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			content := strings.Replace(minimalConfig, c.from, c.to, 1)
			_, err := LoadConfig(writeTempFile(t, "cfg.yml", content))
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("error = %v, want %q", err, c.wantErr)
			}
		})
	}
}

func TestLoadConfigS3RequiresCredentials(t *testing.T) {
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")
	t.Setenv("AWS_REGION", "")
	t.Setenv("S3_BUCKET", "")
	content := strings.Replace(minimalConfig, "    enabled: false", "    enabled: true\n    bucket: kraken-data\n    region: eu-west-1", 1)
	if _, err := LoadConfig(writeTempFile(t, "cfg.yml", content)); err == nil {
		t.Fatal("expected missing credentials error")
	}

	t.Setenv("AWS_ACCESS_KEY_ID", "id")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "key")
	cfg, err := LoadConfig(writeTempFile(t, "cfg.yml", content))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.S3.AccessKeyID != "id" {
		t.Errorf("access key = %q", cfg.Storage.S3.AccessKeyID)
	}
}

func TestLoadPairShards(t *testing.T) {
	content := `shards:
- ip: "10.0.0.1"
  pairs: ["XBT/USD", "ETH/USD"]
- ip: "10.0.0.2"
  pairs: ["XBT/EUR"]
`
	shards, err := LoadPairShards(writeTempFile(t, "shards.yml", content))
	if err != nil {
		t.Fatalf("LoadPairShards failed: %v", err)
	}
	if len(shards.Shards) != 2 {
		t.Fatalf("expected 2 shards, got %d", len(shards.Shards))
	}
	if shards.Shards[0].IP != "10.0.0.1" {
		t.Errorf("unexpected IP: %s", shards.Shards[0].IP)
	}
	pairs, err := shards.Shards[1].CurrencyPairs()
	if err != nil || len(pairs) != 1 || pairs[0].String() != "XBT/EUR" {
		t.Errorf("pairs = %v, %v", pairs, err)
	}
}

func TestLoadPairShardsRejectsDuplicates(t *testing.T) {
	content := `shards:
- ip: "10.0.0.1"
  pairs: ["XBT/USD"]
- ip: "10.0.0.2"
  pairs: ["XBT/USD"]
`
	if _, err := LoadPairShards(writeTempFile(t, "shards.yml", content)); err == nil {
		t.Fatal("expected duplicate pair error")
	}
}

func TestResolveConfigPath(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	if got := ResolveConfigPath(""); got != "config/config.production.yml" {
		t.Errorf("production path = %s", got)
	}
	if got := ResolveConfigPath("custom.yml"); got != "custom.yml" {
		t.Errorf("explicit path = %s", got)
	}
	t.Setenv("APP_ENV", "")
	if got := ResolveShardsPath(""); got != DefaultShardsPath {
		t.Errorf("development shards path = %s", got)
	}
	if !IsProductionLike(EnvironmentStaging) || IsProductionLike(AppEnvironment()) {
		t.Error("unexpected production-like classification")
	}
}

func TestAppEnvironmentAliases(t *testing.T) {
	cases := map[string]string{
		"":           EnvironmentDevelopment,
		"local":      EnvironmentDevelopment,
		" Stage ":    EnvironmentStaging,
		"PRODUCTION": EnvironmentProduction,
		"qa":         "qa",
	}
	for in, want := range cases {
		t.Setenv("APP_ENV", in)
		if got := AppEnvironment(); got != want {
			t.Errorf("APP_ENV=%q: got %s, want %s", in, got, want)
		}
	}

	t.Setenv("APP_ENV", "stage")
	if got := ResolveShardsPath(""); got != "config/pair_shards.staging.yml" {
		t.Errorf("staging shards path = %s", got)
	}
	if IsProductionLike("qa") {
		t.Error("unknown environment treated as deployed")
	}
}

func TestIsValidS3Bucket(t *testing.T) {
	cases := []struct {
		name  string
		valid bool
	}{
		{"valid-bucket", true},
		{"Invalid", false},
		{"ab", false},
		{"my..bucket", false},
	}
	for _, c := range cases {
		if got := isValidS3Bucket(c.name); got != c.valid {
			t.Errorf("isValidS3Bucket(%q) = %v, want %v", c.name, got, c.valid)
		}
	}
}

func TestSampleFilesLoad(t *testing.T) {
	t.Setenv("KRAKEN_WS_TOKEN", "")
	cfg, err := LoadConfig("config.yml")
	if err != nil {
		t.Fatalf("LoadConfig(config.yml): %v", err)
	}
	if len(cfg.Source.Kraken.Websocket.Subscriptions) != 3 {
		t.Errorf("subscriptions = %+v", cfg.Source.Kraken.Websocket.Subscriptions)
	}
	shards, err := LoadPairShards("pair_shards.yml")
	if err != nil {
		t.Fatalf("LoadPairShards(pair_shards.yml): %v", err)
	}
	if len(shards.Shards) != 2 {
		t.Errorf("shards = %+v", shards.Shards)
	}
}
