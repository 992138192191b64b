// Command assetpairs lists the tradable Kraken pairs, or prints a pair shard
// file that spreads them over the given source IPs.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"krakenflow/config"
	"krakenflow/logger"
	"krakenflow/models/rest"
	"krakenflow/reader/kraken"
)

func main() {
	log := logger.GetLogger()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", config.DefaultConfigPath, "Path to configuration file")
	quote := flag.String("quote", "", "Only keep pairs quoted in this currency, e.g. USD")
	ips := flag.String("shards", "", "Comma separated source IPs; prints a shard file instead of a table")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	res, err := kraken.NewRestClient(cfg, "").AssetPairs(ctx)
	if err != nil {
		log.WithError(err).Error("failed to fetch asset pairs")
		os.Exit(1)
	}

	names := wsNames(res, *quote)

	if *ips == "" {
		for _, name := range res.Names() {
			info := res.Pairs[name]
			if info.WSName == nil || !keep(*info.WSName, *quote) {
				continue
			}
			fmt.Printf("%-12s %-12s %-6s %s\n", info.Altname, *info.WSName, info.Base, info.Quote)
		}
		return
	}

	out, err := yaml.Marshal(shardFile(names, strings.Split(*ips, ",")))
	if err != nil {
		log.WithError(err).Error("failed to encode shards")
		os.Exit(1)
	}
	os.Stdout.Write(out)
}

// wsNames returns the sorted websocket names the pair codec understands.
func wsNames(res *rest.AssetPairsResult, quote string) []string {
	var names []string
	for _, info := range res.Pairs {
		p, ok := info.Pair()
		if !ok || !keep(p.String(), quote) {
			continue
		}
		names = append(names, p.String())
	}
	sort.Strings(names)
	return names
}

func keep(wsname, quote string) bool {
	return quote == "" || strings.HasSuffix(wsname, "/"+strings.ToUpper(quote))
}

// shardFile deals names round robin over ips.
func shardFile(names, ips []string) config.PairShards {
	shards := make([]config.PairShard, len(ips))
	for i, ip := range ips {
		shards[i].IP = strings.TrimSpace(ip)
	}
	for i, name := range names {
		s := &shards[i%len(shards)]
		s.Pairs = append(s.Pairs, name)
	}
	return config.PairShards{Shards: shards}
}
