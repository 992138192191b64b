package rest

import (
	"encoding/json"
	"sort"
	"strings"

	"krakenflow/internal/wire"
	"krakenflow/models"
)

// darkSuffix marks dark pool pairs in the AssetPairs listing.
const darkSuffix = ".d"

// FeeTier is a [volume, percent fee] schedule entry.
type FeeTier struct {
	Volume  int64
	Percent float64
}

func (f *FeeTier) UnmarshalJSON(data []byte) error {
	return wire.Tuple("FeeTier", data, &f.Volume, &f.Percent)
}

func (f FeeTier) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{f.Volume, f.Percent})
}

// AssetPairInfo is the metadata of one tradable pair.
type AssetPairInfo struct {
	Altname           string       `json:"altname"`
	WSName            *string      `json:"wsname,omitempty"`
	AclassBase        string       `json:"aclass_base"`
	Base              string       `json:"base"`
	AclassQuote       string       `json:"aclass_quote"`
	Quote             string       `json:"quote"`
	Lot               string       `json:"lot"`
	PairDecimals      int64        `json:"pair_decimals"`
	LotDecimals       int64        `json:"lot_decimals"`
	LotMultiplier     int64        `json:"lot_multiplier"`
	LeverageBuy       []int64      `json:"leverage_buy"`
	LeverageSell      []int64      `json:"leverage_sell"`
	Fees              []FeeTier    `json:"fees"`
	FeesMaker         []FeeTier    `json:"fees_maker,omitempty"`
	FeeVolumeCurrency string       `json:"fee_volume_currency"`
	MarginCall        int64        `json:"margin_call"`
	MarginStop        int64        `json:"margin_stop"`
	OrderMin          models.Float `json:"ordermin"`
}

var assetPairRequired = []string{
	"altname", "aclass_base", "base", "aclass_quote", "quote", "lot",
	"pair_decimals", "lot_decimals", "lot_multiplier", "leverage_buy", "leverage_sell",
	"fees", "fee_volume_currency", "margin_call", "margin_stop", "ordermin",
}

func (a *AssetPairInfo) UnmarshalJSON(data []byte) error {
	m, err := wire.Object("AssetPairInfo", data)
	if err != nil {
		return err
	}
	if err := wire.RequireKeys("AssetPairInfo", m, assetPairRequired...); err != nil {
		return err
	}
	type plain AssetPairInfo
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return &models.SchemaViolationError{Type: "AssetPairInfo", Reason: "decode failed", Err: err}
	}
	*a = AssetPairInfo(p)
	return nil
}

// Pair resolves the websocket name of the pair, if it has one and both halves
// are known.
func (a AssetPairInfo) Pair() (models.CurrencyPair, bool) {
	if a.WSName == nil {
		return models.CurrencyPair{}, false
	}
	p, err := models.ParsePair(*a.WSName)
	if err != nil {
		return models.CurrencyPair{}, false
	}
	return p, true
}

// AssetPairsResult is the result of /0/public/AssetPairs with dark pool pairs
// removed. Skipped lists the keys whose metadata did not decode.
type AssetPairsResult struct {
	Pairs   map[string]AssetPairInfo
	Skipped []string
}

func (r *AssetPairsResult) UnmarshalJSON(data []byte) error {
	m, err := wire.Object("AssetPairsResult", data)
	if err != nil {
		return err
	}
	v := AssetPairsResult{Pairs: make(map[string]AssetPairInfo, len(m))}
	for name, raw := range m {
		if strings.HasSuffix(name, darkSuffix) {
			continue
		}
		var info AssetPairInfo
		if err := info.UnmarshalJSON(raw); err != nil {
			v.Skipped = append(v.Skipped, name)
			continue
		}
		v.Pairs[name] = info
	}
	if len(v.Pairs) == 0 {
		return &models.EmptyResultError{What: "AssetPairs"}
	}
	sort.Strings(v.Skipped)
	*r = v
	return nil
}

func (r AssetPairsResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Pairs)
}

// Names returns the pair keys in sorted order.
func (r AssetPairsResult) Names() []string {
	names := make([]string, 0, len(r.Pairs))
	for k := range r.Pairs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// WSNames maps every websocket pair name to its REST key.
func (r AssetPairsResult) WSNames() map[string]string {
	out := make(map[string]string, len(r.Pairs))
	for k, info := range r.Pairs {
		if info.WSName != nil {
			out[*info.WSName] = k
		}
	}
	return out
}

// AssetPairs is the full /0/public/AssetPairs envelope.
type AssetPairs = Response[AssetPairsResult]
