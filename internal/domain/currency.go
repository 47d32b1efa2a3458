package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency describes an ISO-4217 currency the service can convert.
// Decimals is the number of minor-unit digits used when presenting amounts.
type Currency struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int32  `json:"decimals"`
}

var currencies = map[string]Currency{
	"AED": {Code: "AED", Name: "UAE Dirham", Symbol: "د.إ", Decimals: 2},
	"ARS": {Code: "ARS", Name: "Argentine Peso", Symbol: "$", Decimals: 2},
	"AUD": {Code: "AUD", Name: "Australian Dollar", Symbol: "A$", Decimals: 2},
	"BGN": {Code: "BGN", Name: "Bulgarian Lev", Symbol: "лв", Decimals: 2},
	"BHD": {Code: "BHD", Name: "Bahraini Dinar", Symbol: "BD", Decimals: 3},
	"BRL": {Code: "BRL", Name: "Brazilian Real", Symbol: "R$", Decimals: 2},
	"CAD": {Code: "CAD", Name: "Canadian Dollar", Symbol: "C$", Decimals: 2},
	"CHF": {Code: "CHF", Name: "Swiss Franc", Symbol: "Fr", Decimals: 2},
	"CLP": {Code: "CLP", Name: "Chilean Peso", Symbol: "$", Decimals: 0},
	"CNY": {Code: "CNY", Name: "Chinese Yuan", Symbol: "¥", Decimals: 2},
	"COP": {Code: "COP", Name: "Colombian Peso", Symbol: "$", Decimals: 2},
	"CZK": {Code: "CZK", Name: "Czech Koruna", Symbol: "Kč", Decimals: 2},
	"DKK": {Code: "DKK", Name: "Danish Krone", Symbol: "kr", Decimals: 2},
	"EGP": {Code: "EGP", Name: "Egyptian Pound", Symbol: "E£", Decimals: 2},
	"EUR": {Code: "EUR", Name: "Euro", Symbol: "€", Decimals: 2},
	"GBP": {Code: "GBP", Name: "British Pound", Symbol: "£", Decimals: 2},
	"HKD": {Code: "HKD", Name: "Hong Kong Dollar", Symbol: "HK$", Decimals: 2},
	"HUF": {Code: "HUF", Name: "Hungarian Forint", Symbol: "Ft", Decimals: 2},
	"IDR": {Code: "IDR", Name: "Indonesian Rupiah", Symbol: "Rp", Decimals: 2},
	"ILS": {Code: "ILS", Name: "Israeli New Shekel", Symbol: "₪", Decimals: 2},
	"INR": {Code: "INR", Name: "Indian Rupee", Symbol: "₹", Decimals: 2},
	"ISK": {Code: "ISK", Name: "Icelandic Krona", Symbol: "kr", Decimals: 0},
	"JOD": {Code: "JOD", Name: "Jordanian Dinar", Symbol: "JD", Decimals: 3},
	"JPY": {Code: "JPY", Name: "Japanese Yen", Symbol: "¥", Decimals: 0},
	"KRW": {Code: "KRW", Name: "South Korean Won", Symbol: "₩", Decimals: 0},
	"KWD": {Code: "KWD", Name: "Kuwaiti Dinar", Symbol: "KD", Decimals: 3},
	"MXN": {Code: "MXN", Name: "Mexican Peso", Symbol: "MX$", Decimals: 2},
	"MYR": {Code: "MYR", Name: "Malaysian Ringgit", Symbol: "RM", Decimals: 2},
	"NGN": {Code: "NGN", Name: "Nigerian Naira", Symbol: "₦", Decimals: 2},
	"NOK": {Code: "NOK", Name: "Norwegian Krone", Symbol: "kr", Decimals: 2},
	"NZD": {Code: "NZD", Name: "New Zealand Dollar", Symbol: "NZ$", Decimals: 2},
	"OMR": {Code: "OMR", Name: "Omani Rial", Symbol: "ر.ع.", Decimals: 3},
	"PHP": {Code: "PHP", Name: "Philippine Peso", Symbol: "₱", Decimals: 2},
	"PKR": {Code: "PKR", Name: "Pakistani Rupee", Symbol: "₨", Decimals: 2},
	"PLN": {Code: "PLN", Name: "Polish Zloty", Symbol: "zł", Decimals: 2},
	"RON": {Code: "RON", Name: "Romanian Leu", Symbol: "lei", Decimals: 2},
	"RUB": {Code: "RUB", Name: "Russian Ruble", Symbol: "₽", Decimals: 2},
	"SAR": {Code: "SAR", Name: "Saudi Riyal", Symbol: "﷼", Decimals: 2},
	"SEK": {Code: "SEK", Name: "Swedish Krona", Symbol: "kr", Decimals: 2},
	"SGD": {Code: "SGD", Name: "Singapore Dollar", Symbol: "S$", Decimals: 2},
	"THB": {Code: "THB", Name: "Thai Baht", Symbol: "฿", Decimals: 2},
	"TND": {Code: "TND", Name: "Tunisian Dinar", Symbol: "DT", Decimals: 3},
	"TRY": {Code: "TRY", Name: "Turkish Lira", Symbol: "₺", Decimals: 2},
	"TWD": {Code: "TWD", Name: "New Taiwan Dollar", Symbol: "NT$", Decimals: 2},
	"UAH": {Code: "UAH", Name: "Ukrainian Hryvnia", Symbol: "₴", Decimals: 2},
	"USD": {Code: "USD", Name: "US Dollar", Symbol: "$", Decimals: 2},
	"VND": {Code: "VND", Name: "Vietnamese Dong", Symbol: "₫", Decimals: 0},
	"ZAR": {Code: "ZAR", Name: "South African Rand", Symbol: "R", Decimals: 2},
}

// NormalizeCode upper-cases and trims a currency code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func LookupCurrency(code string) (Currency, bool) {
	c, ok := currencies[NormalizeCode(code)]
	return c, ok
}

func IsKnownCurrency(code string) bool {
	_, ok := currencies[NormalizeCode(code)]
	return ok
}

// KnownCurrencies returns the catalogue sorted by code.
func KnownCurrencies() []Currency {
	out := make([]Currency, 0, len(currencies))
	for _, c := range currencies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CurrencyDecimals returns the minor-unit precision for code, 2 when unknown.
func CurrencyDecimals(code string) int32 {
	if c, ok := LookupCurrency(code); ok {
		return c.Decimals
	}
	return 2
}

// RoundForDisplay rounds amount to the conventional precision of code.
// Stored and returned values keep full precision; only presentation rounds.
func RoundForDisplay(code string, amount decimal.Decimal) decimal.Decimal {
	return amount.Round(CurrencyDecimals(code))
}

// FormatAmount renders amount with a fixed number of decimals. A nil places
// means the currency convention.
func FormatAmount(code string, amount decimal.Decimal, places *int) string {
	p := CurrencyDecimals(code)
	if places != nil {
		p = int32(*places)
	}
	return amount.StringFixed(p)
}
