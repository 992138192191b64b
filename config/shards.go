package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"krakenflow/models"
)

// PairShard binds a set of websocket pairs to one local source IP. An empty
// IP lets the OS pick the address.
type PairShard struct {
	IP    string   `yaml:"ip"`
	Pairs []string `yaml:"pairs"`
}

// CurrencyPairs parses the shard's pairs.
func (s PairShard) CurrencyPairs() ([]models.CurrencyPair, error) {
	return models.ParsePairs(s.Pairs)
}

type PairShards struct {
	Shards []PairShard `yaml:"shards"`
}

// LoadPairShards loads and validates the shard file at path. A pair may only
// appear in one shard.
func LoadPairShards(path string) (*PairShards, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read shards file: %w", err)
	}
	var cfg PairShards
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse shards file: %w", err)
	}
	seen := make(map[models.CurrencyPair]string)
	for i, shard := range cfg.Shards {
		pairs, err := shard.CurrencyPairs()
		if err != nil {
			return nil, fmt.Errorf("shard %d (%s): %w", i, shard.IP, err)
		}
		for _, p := range pairs {
			if ip, dup := seen[p]; dup {
				return nil, fmt.Errorf("pair %s assigned to shards %q and %q", p, ip, shard.IP)
			}
			seen[p] = shard.IP
		}
	}
	return &cfg, nil
}

// SingleShard wraps the configured pairs in one shard without a bound IP.
func SingleShard(pairs []string) *PairShards {
	return &PairShards{Shards: []PairShard{{Pairs: pairs}}}
}
