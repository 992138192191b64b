package models

import (
	"fmt"
)

// Cryptocurrency is an index into the supported cryptocurrency table.
// The zero value is not a valid cryptocurrency.
type Cryptocurrency uint8

const (
	ZRX Cryptocurrency = iota + 1
	LEND
	ALGO
	AR
	REP
	BAL
	BNT
	BAT
	BTC
	XBT
	BCH
	BRICK
	ADA
	LINK
	COMP
	ATOM
	CRV
	DAI
	DASH
	DOGE
	ENJ
	EOS
	ETH
	ETC
	FIL
	FLOW
	GNO
	HNS
	HBAR
	ICX
	KAVA
	KSM
	KNC
	LSK
	LTC
	MKR
	MLN
	XMR
	MOON
	NANO
	OMG
	OXT
	PAXG
	DOT
	QTUM
	XRP
	SC
	XLM
	STORJ
	SNX
	USDT
	XTZ
	TRX
	WAVES
	YFI
	ZEC
)

type cryptoInfo struct {
	index        Cryptocurrency
	abbreviation string
	name         string
}

var cryptocurrencies = [...]cryptoInfo{
	{ZRX, "ZRX", "0x"},
	{LEND, "LEND", "Aave"},
	{ALGO, "ALGO", "Algorand"},
	{AR, "AR", "Arweave"},
	{REP, "REP", "Augur"},
	{BAL, "BAL", "Balancer"},
	{BNT, "BNT", "Bancor"},
	{BAT, "BAT", "Basic Attention Token"},
	{BTC, "BTC", "Bitcoin"},
	{XBT, "XBT", "Bitcoin"},
	{BCH, "BCH", "Bitcoin Cash"},
	{BRICK, "BRICK", "Brick"},
	{ADA, "ADA", "Cardano"},
	{LINK, "LINK", "Chainlink"},
	{COMP, "COMP", "Compound"},
	{ATOM, "ATOM", "Cosmos"},
	{CRV, "CRV", "Curve"},
	{DAI, "DAI", "Dai"},
	{DASH, "DASH", "Dash"},
	{DOGE, "DOGE", "Dogecoin"},
	{ENJ, "ENJ", "Enjin"},
	{EOS, "EOS", "EOSIO"},
	{ETH, "ETH", "Ethereum"},
	{ETC, "ETC", "Ethereum Classic"},
	{FIL, "FIL", "Filecoin"},
	{FLOW, "FLOW", "Flow"},
	{GNO, "GNO", "Gnosis"},
	{HNS, "HNS", "Handshake"},
	{HBAR, "HBAR", "Hedera Hashgraph"},
	{ICX, "ICX", "Icon"},
	{KAVA, "KAVA", "Kava"},
	{KSM, "KSM", "Kusama"},
	{KNC, "KNC", "Kyber Network"},
	{LSK, "LSK", "Lisk"},
	{LTC, "LTC", "Litecoin"},
	{MKR, "MKR", "MakerDAO"},
	{MLN, "MLN", "Melon"},
	{XMR, "XMR", "Monero"},
	{MOON, "MOON", "Moon"},
	{NANO, "NANO", "Nano"},
	{OMG, "OMG", "OmiseGo"},
	{OXT, "OXT", "Orchid"},
	{PAXG, "PAXG", "PAX Gold"},
	{DOT, "DOT", "Polkadot"},
	{QTUM, "QTUM", "Qtum"},
	{XRP, "XRP", "Ripple"},
	{SC, "SC", "Siacoin"},
	{XLM, "XLM", "Stellar"},
	{STORJ, "STORJ", "Storj"},
	{SNX, "SNX", "Synthetix"},
	{USDT, "USDT", "Tether"},
	{XTZ, "XTZ", "Tezos"},
	{TRX, "TRX", "Tron"},
	{WAVES, "WAVES", "Waves"},
	{YFI, "YFI", "yEarn"},
	{ZEC, "ZEC", "Zcash"},
}

func init() {
	for i, c := range cryptocurrencies {
		if int(c.index) != i+1 {
			panic(fmt.Sprintf("models: cryptocurrency table entry %d (%s) has index %d", i, c.abbreviation, c.index))
		}
	}
}

// Cryptocurrencies returns every supported cryptocurrency in table order.
func Cryptocurrencies() []Cryptocurrency {
	out := make([]Cryptocurrency, len(cryptocurrencies))
	for i, c := range cryptocurrencies {
		out[i] = c.index
	}
	return out
}

// ParseCryptocurrency resolves an abbreviation such as "XBT" or "ETH".
func ParseCryptocurrency(code string) (Cryptocurrency, error) {
	for _, c := range cryptocurrencies {
		if c.abbreviation == code {
			return c.index, nil
		}
	}
	return 0, &CryptocurrencyParseError{Code: code}
}

// MustCryptocurrency panics on an unknown code. Only use it on codes that
// came out of Abbreviation or on literals.
func MustCryptocurrency(code string) Cryptocurrency {
	c, err := ParseCryptocurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Cryptocurrency) IsValid() bool {
	return c >= 1 && int(c) <= len(cryptocurrencies)
}

func (c Cryptocurrency) info() cryptoInfo {
	if !c.IsValid() {
		return cryptoInfo{}
	}
	return cryptocurrencies[c-1]
}

func (c Cryptocurrency) Abbreviation() string { return c.info().abbreviation }

func (c Cryptocurrency) Name() string { return c.info().name }

func (c Cryptocurrency) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("Cryptocurrency(%d)", uint8(c))
	}
	return c.Abbreviation()
}

func (c Cryptocurrency) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("cannot encode invalid cryptocurrency %d", uint8(c))
	}
	return []byte(c.Abbreviation()), nil
}

func (c *Cryptocurrency) UnmarshalText(text []byte) error {
	parsed, err := ParseCryptocurrency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
