package models

import (
	"fmt"
)

// Currency is an index into the ISO 4217 table. The zero value is not a valid
// currency.
type Currency uint8

type currencyInfo struct {
	index     Currency
	alpha3    string
	num       uint16
	exp       int8
	name      string
	countries []string
}

var currencies = [...]currencyInfo{
	{1, "AED", 784, 2, "UAE Dirham", []string{"AE"}},
	{2, "AFN", 971, 2, "Afghani", []string{"AF"}},
	{3, "ALL", 8, 2, "Lek", []string{"AL"}},
	{4, "AMD", 51, 2, "Armenian Dram", []string{"AM"}},
	{5, "ANG", 532, 2, "Netherlands Antillean Guilder", []string{"CW", "SX"}},
	{6, "AOA", 973, 2, "Kwanza", []string{"AO"}},
	{7, "ARS", 32, 2, "Argentine Peso", []string{"AR"}},
	{8, "AUD", 36, 2, "Australian Dollar", []string{"AU", "CX", "CC", "HM", "KI", "NR", "NF", "TV"}},
	{9, "AWG", 533, 2, "Aruban Florin", []string{"AW"}},
	{10, "AZN", 944, 2, "Azerbaijan Manat", []string{"AZ"}},
	{11, "BAM", 977, 2, "Convertible Mark", []string{"BA"}},
	{12, "BBD", 52, 2, "Barbados Dollar", []string{"BB"}},
	{13, "BDT", 50, 2, "Taka", []string{"BD"}},
	{14, "BGN", 975, 2, "Bulgarian Lev", []string{"BG"}},
	{15, "BHD", 48, 3, "Bahraini Dinar", []string{"BH"}},
	{16, "BIF", 108, 0, "Burundi Franc", []string{"BI"}},
	{17, "BMD", 60, 2, "Bermudian Dollar", []string{"BM"}},
	{18, "BND", 96, 2, "Brunei Dollar", []string{"BN"}},
	{19, "BOB", 68, 2, "Boliviano", []string{"BO"}},
	{20, "BOV", 984, 2, "Mvdol", []string{"BO"}},
	{21, "BRL", 986, 2, "Brazilian Real", []string{"BR"}},
	{22, "BSD", 44, 2, "Bahamian Dollar", []string{"BS"}},
	{23, "BTN", 64, 2, "Ngultrum", []string{"BT"}},
	{24, "BWP", 72, 2, "Pula", []string{"BW"}},
	{25, "BYN", 933, 2, "Belarusian Ruble", []string{"BY"}},
	{26, "BZD", 84, 2, "Belize Dollar", []string{"BZ"}},
	{27, "CAD", 124, 2, "Canadian Dollar", []string{"CA"}},
	{28, "CDF", 976, 2, "Congolese Franc", []string{"CD"}},
	{29, "CHE", 947, 2, "WIR Euro", []string{"CH"}},
	{30, "CHF", 756, 2, "Swiss Franc", []string{"CH", "LI"}},
	{31, "CHW", 948, 2, "WIR Franc", []string{"CH"}},
	{32, "CLF", 990, 4, "Unidad de Fomento", []string{"CL"}},
	{33, "CLP", 152, 0, "Chilean Peso", []string{"CL"}},
	{34, "CNY", 156, 2, "Yuan Renminbi", []string{"CN"}},
	{35, "COP", 170, 2, "Colombian Peso", []string{"CO"}},
	{36, "COU", 970, 2, "Unidad de Valor Real", []string{"CO"}},
	{37, "CRC", 188, 2, "Costa Rican Colon", []string{"CR"}},
	{38, "CUC", 931, 2, "Peso Convertible", []string{"CU"}},
	{39, "CUP", 192, 2, "Cuban Peso", []string{"CU"}},
	{40, "CVE", 132, 2, "Cabo Verde Escudo", []string{"CV"}},
	{41, "CZK", 203, 2, "Czech Koruna", []string{"CZ"}},
	{42, "DJF", 262, 0, "Djibouti Franc", []string{"DJ"}},
	{43, "DKK", 208, 2, "Danish Krone", []string{"DK", "FO", "GL"}},
	{44, "DOP", 214, 2, "Dominican Peso", []string{"DO"}},
	{45, "DZD", 12, 2, "Algerian Dinar", []string{"DZ"}},
	{46, "EGP", 818, 2, "Egyptian Pound", []string{"EG"}},
	{47, "ERN", 232, 2, "Nakfa", []string{"ER"}},
	{48, "ETB", 230, 2, "Ethiopian Birr", []string{"ET"}},
	{49, "EUR", 978, 2, "Euro", []string{"AD", "AT", "BE", "CY", "DE", "EE", "ES", "FI", "FR", "GR", "HR", "IE", "IT", "LT", "LU", "LV", "MC", "ME", "MT", "NL", "PT", "SI", "SK", "SM", "VA"}},
	{50, "FJD", 242, 2, "Fiji Dollar", []string{"FJ"}},
	{51, "FKP", 238, 2, "Falkland Islands Pound", []string{"FK"}},
	{52, "GBP", 826, 2, "Pound Sterling", []string{"GB", "GG", "IM", "JE"}},
	{53, "GEL", 981, 2, "Lari", []string{"GE"}},
	{54, "GHS", 936, 2, "Ghana Cedi", []string{"GH"}},
	{55, "GIP", 292, 2, "Gibraltar Pound", []string{"GI"}},
	{56, "GMD", 270, 2, "Dalasi", []string{"GM"}},
	{57, "GNF", 324, 0, "Guinean Franc", []string{"GN"}},
	{58, "GTQ", 320, 2, "Quetzal", []string{"GT"}},
	{59, "GYD", 328, 2, "Guyana Dollar", []string{"GY"}},
	{60, "HKD", 344, 2, "Hong Kong Dollar", []string{"HK"}},
	{61, "HNL", 340, 2, "Lempira", []string{"HN"}},
	{62, "HTG", 332, 2, "Gourde", []string{"HT"}},
	{63, "HUF", 348, 2, "Forint", []string{"HU"}},
	{64, "IDR", 360, 2, "Rupiah", []string{"ID"}},
	{65, "ILS", 376, 2, "New Israeli Sheqel", []string{"IL"}},
	{66, "INR", 356, 2, "Indian Rupee", []string{"IN", "BT"}},
	{67, "IQD", 368, 3, "Iraqi Dinar", []string{"IQ"}},
	{68, "IRR", 364, 2, "Iranian Rial", []string{"IR"}},
	{69, "ISK", 352, 0, "Iceland Krona", []string{"IS"}},
	{70, "JMD", 388, 2, "Jamaican Dollar", []string{"JM"}},
	{71, "JOD", 400, 3, "Jordanian Dinar", []string{"JO"}},
	{72, "JPY", 392, 0, "Yen", []string{"JP"}},
	{73, "KES", 404, 2, "Kenyan Shilling", []string{"KE"}},
	{74, "KGS", 417, 2, "Som", []string{"KG"}},
	{75, "KHR", 116, 2, "Riel", []string{"KH"}},
	{76, "KMF", 174, 0, "Comorian Franc", []string{"KM"}},
	{77, "KPW", 408, 2, "North Korean Won", []string{"KP"}},
	{78, "KRW", 410, 0, "Won", []string{"KR"}},
	{79, "KWD", 414, 3, "Kuwaiti Dinar", []string{"KW"}},
	{80, "KYD", 136, 2, "Cayman Islands Dollar", []string{"KY"}},
	{81, "KZT", 398, 2, "Tenge", []string{"KZ"}},
	{82, "LAK", 418, 2, "Lao Kip", []string{"LA"}},
	{83, "LBP", 422, 2, "Lebanese Pound", []string{"LB"}},
	{84, "LKR", 144, 2, "Sri Lanka Rupee", []string{"LK"}},
	{85, "LRD", 430, 2, "Liberian Dollar", []string{"LR"}},
	{86, "LSL", 426, 2, "Loti", []string{"LS"}},
	{87, "LYD", 434, 3, "Libyan Dinar", []string{"LY"}},
	{88, "MAD", 504, 2, "Moroccan Dirham", []string{"MA", "EH"}},
	{89, "MDL", 498, 2, "Moldovan Leu", []string{"MD"}},
	{90, "MGA", 969, 2, "Malagasy Ariary", []string{"MG"}},
	{91, "MKD", 807, 2, "Denar", []string{"MK"}},
	{92, "MMK", 104, 2, "Kyat", []string{"MM"}},
	{93, "MNT", 496, 2, "Tugrik", []string{"MN"}},
	{94, "MOP", 446, 2, "Pataca", []string{"MO"}},
	{95, "MRU", 929, 2, "Ouguiya", []string{"MR"}},
	{96, "MUR", 480, 2, "Mauritius Rupee", []string{"MU"}},
	{97, "MVR", 462, 2, "Rufiyaa", []string{"MV"}},
	{98, "MWK", 454, 2, "Malawi Kwacha", []string{"MW"}},
	{99, "MXN", 484, 2, "Mexican Peso", []string{"MX"}},
	{100, "MXV", 979, 2, "Mexican Unidad de Inversion", []string{"MX"}},
	{101, "MYR", 458, 2, "Malaysian Ringgit", []string{"MY"}},
	{102, "MZN", 943, 2, "Mozambique Metical", []string{"MZ"}},
	{103, "NAD", 516, 2, "Namibia Dollar", []string{"NA"}},
	{104, "NGN", 566, 2, "Naira", []string{"NG"}},
	{105, "NIO", 558, 2, "Cordoba Oro", []string{"NI"}},
	{106, "NOK", 578, 2, "Norwegian Krone", []string{"NO", "SJ", "BV"}},
	{107, "NPR", 524, 2, "Nepalese Rupee", []string{"NP"}},
	{108, "NZD", 554, 2, "New Zealand Dollar", []string{"NZ", "CK", "NU", "PN", "TK"}},
	{109, "OMR", 512, 3, "Rial Omani", []string{"OM"}},
	{110, "PAB", 590, 2, "Balboa", []string{"PA"}},
	{111, "PEN", 604, 2, "Sol", []string{"PE"}},
	{112, "PGK", 598, 2, "Kina", []string{"PG"}},
	{113, "PHP", 608, 2, "Philippine Peso", []string{"PH"}},
	{114, "PKR", 586, 2, "Pakistan Rupee", []string{"PK"}},
	{115, "PLN", 985, 2, "Zloty", []string{"PL"}},
	{116, "PYG", 600, 0, "Guarani", []string{"PY"}},
	{117, "QAR", 634, 2, "Qatari Rial", []string{"QA"}},
	{118, "RON", 946, 2, "Romanian Leu", []string{"RO"}},
	{119, "RSD", 941, 2, "Serbian Dinar", []string{"RS"}},
	{120, "RUB", 643, 2, "Russian Ruble", []string{"RU"}},
	{121, "RWF", 646, 0, "Rwanda Franc", []string{"RW"}},
	{122, "SAR", 682, 2, "Saudi Riyal", []string{"SA"}},
	{123, "SBD", 90, 2, "Solomon Islands Dollar", []string{"SB"}},
	{124, "SCR", 690, 2, "Seychelles Rupee", []string{"SC"}},
	{125, "SDG", 938, 2, "Sudanese Pound", []string{"SD"}},
	{126, "SEK", 752, 2, "Swedish Krona", []string{"SE"}},
	{127, "SGD", 702, 2, "Singapore Dollar", []string{"SG"}},
	{128, "SHP", 654, 2, "Saint Helena Pound", []string{"SH"}},
	{129, "SLL", 694, 2, "Leone", []string{"SL"}},
	{130, "SOS", 706, 2, "Somali Shilling", []string{"SO"}},
	{131, "SRD", 968, 2, "Surinam Dollar", []string{"SR"}},
	{132, "SSP", 728, 2, "South Sudanese Pound", []string{"SS"}},
	{133, "STN", 930, 2, "Dobra", []string{"ST"}},
	{134, "SVC", 222, 2, "El Salvador Colon", []string{"SV"}},
	{135, "SYP", 760, 2, "Syrian Pound", []string{"SY"}},
	{136, "SZL", 748, 2, "Lilangeni", []string{"SZ"}},
	{137, "THB", 764, 2, "Baht", []string{"TH"}},
	{138, "TJS", 972, 2, "Somoni", []string{"TJ"}},
	{139, "TMT", 934, 2, "Turkmenistan New Manat", []string{"TM"}},
	{140, "TND", 788, 3, "Tunisian Dinar", []string{"TN"}},
	{141, "TOP", 776, 2, "Pa'anga", []string{"TO"}},
	{142, "TRY", 949, 2, "Turkish Lira", []string{"TR"}},
	{143, "TTD", 780, 2, "Trinidad and Tobago Dollar", []string{"TT"}},
	{144, "TWD", 901, 2, "New Taiwan Dollar", []string{"TW"}},
	{145, "TZS", 834, 2, "Tanzanian Shilling", []string{"TZ"}},
	{146, "UAH", 980, 2, "Hryvnia", []string{"UA"}},
	{147, "UGX", 800, 0, "Uganda Shilling", []string{"UG"}},
	{148, "USD", 840, 2, "US Dollar", []string{"US", "AS", "EC", "GU", "MH", "FM", "MP", "PW", "PR", "TL", "TC", "VG", "VI", "UM"}},
	{149, "USN", 997, 2, "US Dollar (Next day)", []string{"US"}},
	{150, "UYI", 940, 0, "Uruguay Peso en Unidades Indexadas", []string{"UY"}},
	{151, "UYU", 858, 2, "Peso Uruguayo", []string{"UY"}},
	{152, "UZS", 860, 2, "Uzbekistan Sum", []string{"UZ"}},
	{153, "VES", 928, 2, "Bolivar Soberano", []string{"VE"}},
	{154, "VND", 704, 0, "Dong", []string{"VN"}},
	{155, "VUV", 548, 0, "Vatu", []string{"VU"}},
	{156, "WST", 882, 2, "Tala", []string{"WS"}},
	{157, "XAF", 950, 0, "CFA Franc BEAC", []string{"CM", "CF", "CG", "GA", "GQ", "TD"}},
	{158, "XCD", 951, 2, "East Caribbean Dollar", []string{"AG", "AI", "DM", "GD", "KN", "LC", "MS", "VC"}},
	{159, "XOF", 952, 0, "CFA Franc BCEAO", []string{"BJ", "BF", "CI", "GW", "ML", "NE", "SN", "TG"}},
	{160, "XPF", 953, 0, "CFP Franc", []string{"NC", "PF", "WF"}},
	{161, "YER", 886, 2, "Yemeni Rial", []string{"YE"}},
	{162, "ZAR", 710, 2, "Rand", []string{"ZA", "LS", "NA"}},
	{163, "ZMW", 967, 2, "Zambian Kwacha", []string{"ZM"}},
	{164, "ZWL", 932, 2, "Zimbabwe Dollar", []string{"ZW"}},
}

// Frequently quoted fiat currencies.
var (
	USD = MustCurrency("USD")
	EUR = MustCurrency("EUR")
	GBP = MustCurrency("GBP")
	JPY = MustCurrency("JPY")
	CAD = MustCurrency("CAD")
	CHF = MustCurrency("CHF")
	AUD = MustCurrency("AUD")
)

func init() {
	for i, c := range currencies {
		if int(c.index) != i+1 {
			panic(fmt.Sprintf("models: currency table entry %d (%s) has index %d", i, c.alpha3, c.index))
		}
	}
}

// ParseCurrency resolves an ISO 4217 alphabetic code such as "USD".
func ParseCurrency(code string) (Currency, error) {
	for _, c := range currencies {
		if c.alpha3 == code {
			return c.index, nil
		}
	}
	return 0, &CurrencyParseError{Code: code}
}

// MustCurrency panics on an unknown code.
func MustCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// Currencies returns every currency in table order.
func Currencies() []Currency {
	out := make([]Currency, len(currencies))
	for i, c := range currencies {
		out[i] = c.index
	}
	return out
}

func (c Currency) IsValid() bool {
	return c >= 1 && int(c) <= len(currencies)
}

func (c Currency) info() currencyInfo {
	if !c.IsValid() {
		return currencyInfo{}
	}
	return currencies[c-1]
}

func (c Currency) Alpha3() string { return c.info().alpha3 }

// Num is the ISO numeric code.
func (c Currency) Num() uint16 { return c.info().num }

// Exp is the number of minor unit digits.
func (c Currency) Exp() int8 { return c.info().exp }

func (c Currency) Name() string { return c.info().name }

// Countries lists the ISO 3166 alpha-2 codes of the countries using the
// currency. The returned slice is a copy.
func (c Currency) Countries() []string {
	return append([]string(nil), c.info().countries...)
}

func (c Currency) String() string {
	if !c.IsValid() {
		return fmt.Sprintf("Currency(%d)", uint8(c))
	}
	return c.Alpha3()
}

func (c Currency) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("cannot encode invalid currency %d", uint8(c))
	}
	return []byte(c.Alpha3()), nil
}

func (c *Currency) UnmarshalText(text []byte) error {
	parsed, err := ParseCurrency(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
