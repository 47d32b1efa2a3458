package parser

import (
	"regexp"
	"sort"
	"strings"
)

// symbolTable maps a currency symbol to the ISO codes it may denote. The
// first code is the default when the caller expresses no preference.
var symbolTable = map[string][]string{
	"$":   {"USD", "CAD", "AUD", "NZD", "SGD", "HKD", "MXN", "TWD", "ARS", "CLP", "COP"},
	"US$": {"USD"},
	"C$":  {"CAD"},
	"CA$": {"CAD"},
	"A$":  {"AUD"},
	"AU$": {"AUD"},
	"NZ$": {"NZD"},
	"HK$": {"HKD"},
	"S$":  {"SGD"},
	"SG$": {"SGD"},
	"MX$": {"MXN"},
	"NT$": {"TWD"},
	"R$":  {"BRL"},
	"€":   {"EUR"},
	"£":   {"GBP"},
	"E£":  {"EGP"},
	"¥":   {"JPY", "CNY"},
	"JP¥": {"JPY"},
	"CN¥": {"CNY"},
	"円":   {"JPY"},
	"元":   {"CNY"},
	"₹":   {"INR"},
	"₽":   {"RUB"},
	"₩":   {"KRW"},
	"₺":   {"TRY"},
	"₪":   {"ILS"},
	"₱":   {"PHP"},
	"₫":   {"VND"},
	"฿":   {"THB"},
	"₴":   {"UAH"},
	"₦":   {"NGN"},
	"₨":   {"PKR"},
	"kr":  {"SEK", "NOK", "DKK", "ISK"},
	"Kč":  {"CZK"},
	"zł":  {"PLN"},
	"Ft":  {"HUF"},
	"lei": {"RON"},
	"лв":  {"BGN"},
	"RM":  {"MYR"},
	"Rp":  {"IDR"},
	"R":   {"ZAR"},
	"Fr.": {"CHF"},
	"Fr":  {"CHF"},
}

// numberRun matches a digit run whose separators are always followed by a
// digit, so the run never ends on a separator.
const numberRun = `\d(?:\d|[.,\x{00A0}\x{202F}\x{2009} ]\d)*`

const gap = `[ \x{00A0}]?`

var (
	symbolPrefixRe *regexp.Regexp
	symbolSuffixRe *regexp.Regexp
	codePrefixRe   = regexp.MustCompile(`\b([A-Z]{3})` + gap + `(` + numberRun + `)`)
	codeSuffixRe   = regexp.MustCompile(`(` + numberRun + `)` + gap + `([A-Z]{3})\b`)
)

func init() {
	syms := make([]string, 0, len(symbolTable))
	for s := range symbolTable {
		syms = append(syms, s)
	}
	// longest first so "HK$" wins over "$"
	sort.Slice(syms, func(i, j int) bool {
		if len(syms[i]) != len(syms[j]) {
			return len(syms[i]) > len(syms[j])
		}
		return syms[i] < syms[j]
	})
	quoted := make([]string, len(syms))
	for i, s := range syms {
		quoted[i] = regexp.QuoteMeta(s)
	}
	alt := `(` + strings.Join(quoted, "|") + `)`
	symbolPrefixRe = regexp.MustCompile(alt + gap + `(` + numberRun + `)`)
	symbolSuffixRe = regexp.MustCompile(`(` + numberRun + `)` + gap + alt)
}

// SymbolCandidates returns the codes a symbol may denote, default first.
func SymbolCandidates(symbol string) []string {
	return append([]string(nil), symbolTable[symbol]...)
}
