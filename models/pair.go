package models

import (
	"strings"
)

// CurrencyPair is a cryptocurrency quoted in a currency, "ETH/USD" on the
// websocket API.
type CurrencyPair struct {
	Cryptocurrency Cryptocurrency
	Currency       Currency
}

// NewPair builds a pair from already resolved halves.
func NewPair(crypto Cryptocurrency, currency Currency) CurrencyPair {
	return CurrencyPair{Cryptocurrency: crypto, Currency: currency}
}

// ParsePair parses "{CRYPTO}/{FIAT}". The text is split on the first "/" only,
// so "ETH/USD/X" fails on the currency half.
func ParsePair(text string) (CurrencyPair, error) {
	cryptoPart, currencyPart, _ := strings.Cut(text, "/")
	if cryptoPart == "" {
		return CurrencyPair{}, &PairParseError{Text: text, Reason: "missing cryptocurrency"}
	}
	if currencyPart == "" {
		return CurrencyPair{}, &PairParseError{Text: text, Reason: "missing currency"}
	}
	crypto, err := ParseCryptocurrency(cryptoPart)
	if err != nil {
		return CurrencyPair{}, &PairParseError{Text: text, Reason: "invalid cryptocurrency", Err: err}
	}
	currency, err := ParseCurrency(currencyPart)
	if err != nil {
		return CurrencyPair{}, &PairParseError{Text: text, Reason: "invalid currency", Err: err}
	}
	return CurrencyPair{Cryptocurrency: crypto, Currency: currency}, nil
}

// MustPair panics if text does not parse. Use it for literals and for text
// produced by String.
func MustPair(text string) CurrencyPair {
	p, err := ParsePair(text)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePairs parses a list of pairs, stopping at the first failure.
func ParsePairs(texts []string) ([]CurrencyPair, error) {
	out := make([]CurrencyPair, 0, len(texts))
	for _, t := range texts {
		p, err := ParsePair(t)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (p CurrencyPair) IsValid() bool {
	return p.Cryptocurrency.IsValid() && p.Currency.IsValid()
}

func (p CurrencyPair) String() string {
	return p.Cryptocurrency.Abbreviation() + "/" + p.Currency.Alpha3()
}

// RestSymbol is the pair without separator, as the REST endpoints expect it.
func (p CurrencyPair) RestSymbol() string {
	return p.Cryptocurrency.Abbreviation() + p.Currency.Alpha3()
}

func (p CurrencyPair) MarshalText() ([]byte, error) {
	if !p.IsValid() {
		return nil, &PairParseError{Text: p.String(), Reason: "invalid pair"}
	}
	return []byte(p.String()), nil
}

func (p *CurrencyPair) UnmarshalText(text []byte) error {
	parsed, err := ParsePair(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
