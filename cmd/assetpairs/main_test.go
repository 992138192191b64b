package main

import (
	"reflect"
	"testing"
)

func TestShardFileRoundRobin(t *testing.T) {
	got := shardFile([]string{"ETH/USD", "LTC/USD", "XBT/USD"}, []string{"10.0.0.1", " 10.0.0.2"})
	if len(got.Shards) != 2 {
		t.Fatalf("shards = %+v", got.Shards)
	}
	if got.Shards[1].IP != "10.0.0.2" {
		t.Errorf("ip = %q", got.Shards[1].IP)
	}
	if !reflect.DeepEqual(got.Shards[0].Pairs, []string{"ETH/USD", "XBT/USD"}) || !reflect.DeepEqual(got.Shards[1].Pairs, []string{"LTC/USD"}) {
		t.Errorf("shards = %+v", got.Shards)
	}
}

func TestKeepQuote(t *testing.T) {
	if !keep("XBT/USD", "") || !keep("XBT/USD", "usd") || keep("XBT/EUR", "USD") {
		t.Error("quote filter")
	}
}
