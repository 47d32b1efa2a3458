// Package parser finds currency amounts in free-form selected text.
package parser

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"fxconvert/internal/domain"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// MaxInputBytes bounds the text inspected per call.
const MaxInputBytes = 10_000

const (
	confSymbolPrefix = 0.90
	confSymbolSuffix = 0.85
	confCode         = 0.90
	penaltyAmbiguous = 0.10
	penaltyPreferred = 0.05
)

type Parser struct {
	preferred []string
}

type Option func(*Parser)

// WithPreferred re-ranks ambiguous symbols: the first preferred code that a
// symbol can denote wins over the static table default.
func WithPreferred(codes ...string) Option {
	return func(p *Parser) {
		for _, c := range codes {
			if c = domain.NormalizeCode(c); c != "" {
				p.preferred = append(p.preferred, c)
			}
		}
		p.preferred = lo.Uniq(p.preferred)
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Detect returns the first validated detection, trying symbol-prefix,
// symbol-suffix and code-adjacent patterns in that order.
func (p *Parser) Detect(text string) (domain.DetectedAmount, bool) {
	all := p.detect(text, true)
	if len(all) == 0 {
		return domain.DetectedAmount{}, false
	}
	return all[0], true
}

// DetectAll returns every validated detection in priority order.
func (p *Parser) DetectAll(text string) []domain.DetectedAmount {
	return p.detect(text, false)
}

func (p *Parser) detect(text string, firstOnly bool) []domain.DetectedAmount {
	text = clamp(text)
	if !strings.ContainsFunc(text, unicode.IsDigit) {
		return nil
	}
	var out []domain.DetectedAmount
	families := []func(string) []domain.DetectedAmount{
		p.symbolPrefix,
		p.symbolSuffix,
		p.codeAdjacent,
	}
	for _, f := range families {
		found := f(text)
		if firstOnly && len(found) > 0 {
			return found[:1]
		}
		out = append(out, found...)
	}
	return out
}

func (p *Parser) symbolPrefix(text string) []domain.DetectedAmount {
	var out []domain.DetectedAmount
	for _, m := range symbolPrefixRe.FindAllStringSubmatchIndex(text, -1) {
		sym := text[m[2]:m[3]]
		if startsWithLetter(sym) && letterBefore(text, m[2]) {
			continue
		}
		run := text[m[4]:m[5]]
		amount, runLen, ok := parseLeading(run)
		if !ok || signed(text, m[0]) || exponentAfter(text, m[4]+runLen) {
			continue
		}
		d, ok := p.fromSymbol(sym, amount, text[m[0]:m[4]+runLen], domain.FormatSymbolPrefix, confSymbolPrefix)
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func (p *Parser) symbolSuffix(text string) []domain.DetectedAmount {
	var out []domain.DetectedAmount
	for _, m := range symbolSuffixRe.FindAllStringSubmatchIndex(text, -1) {
		sym := text[m[4]:m[5]]
		if endsWithLetter(sym) && letterAfter(text, m[5]) {
			continue
		}
		if numberBefore(text, m[2]) {
			continue
		}
		run := text[m[2]:m[3]]
		amount, skip, ok := parseTrailing(run)
		if !ok || signed(text, m[2]+skip) || exponentBefore(text, m[2]+skip) {
			continue
		}
		d, ok := p.fromSymbol(sym, amount, text[m[2]+skip:m[1]], domain.FormatSymbolSuffix, confSymbolSuffix)
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func (p *Parser) codeAdjacent(text string) []domain.DetectedAmount {
	type hit struct {
		pos int
		d   domain.DetectedAmount
	}
	var hits []hit
	for _, m := range codePrefixRe.FindAllStringSubmatchIndex(text, -1) {
		code := text[m[2]:m[3]]
		if !domain.IsKnownCurrency(code) {
			continue
		}
		amount, runLen, ok := parseLeading(text[m[4]:m[5]])
		if !ok || !amount.IsPositive() || signed(text, m[0]) || exponentAfter(text, m[4]+runLen) {
			continue
		}
		hits = append(hits, hit{pos: m[0], d: domain.DetectedAmount{
			Amount:       amount,
			CurrencyCode: code,
			MatchedText:  text[m[0] : m[4]+runLen],
			Format:       domain.FormatCodePrefix,
			Confidence:   confCode,
		}})
	}
	for _, m := range codeSuffixRe.FindAllStringSubmatchIndex(text, -1) {
		code := text[m[4]:m[5]]
		if !domain.IsKnownCurrency(code) || numberBefore(text, m[2]) {
			continue
		}
		amount, skip, ok := parseTrailing(text[m[2]:m[3]])
		if !ok || !amount.IsPositive() || signed(text, m[2]+skip) || exponentBefore(text, m[2]+skip) {
			continue
		}
		hits = append(hits, hit{pos: m[2] + skip, d: domain.DetectedAmount{
			Amount:       amount,
			CurrencyCode: code,
			MatchedText:  text[m[2]+skip : m[1]],
			Format:       domain.FormatCodeSuffix,
			Confidence:   confCode,
		}})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	return lo.Map(hits, func(h hit, _ int) domain.DetectedAmount { return h.d })
}

func (p *Parser) fromSymbol(sym string, amount decimal.Decimal, matched string, format domain.AmountFormat, conf float64) (domain.DetectedAmount, bool) {
	if !amount.IsPositive() {
		return domain.DetectedAmount{}, false
	}
	candidates := SymbolCandidates(sym)
	if len(candidates) == 0 {
		return domain.DetectedAmount{}, false
	}
	code := candidates[0]
	if len(candidates) > 1 {
		if pref, ok := lo.Find(p.preferred, func(c string) bool { return lo.Contains(candidates, c) }); ok {
			code = pref
			conf -= penaltyPreferred
		} else {
			conf -= penaltyAmbiguous
		}
		candidates = append([]string{code}, lo.Without(candidates, code)...)
	}
	return domain.DetectedAmount{
		Amount:       amount,
		CurrencyCode: code,
		MatchedText:  strings.TrimSpace(matched),
		Format:       format,
		Confidence:   math.Round(conf*100) / 100,
		Symbol:       sym,
		Candidates:   candidates,
	}, true
}

// parseLeading parses a run that follows a symbol or code. When the whole run
// is not a valid amount the part before the first space is tried, so "$5 2"
// yields 5. It returns the byte length of the consumed prefix.
func parseLeading(run string) (decimal.Decimal, int, bool) {
	if d, ok := parseAmount(run); ok {
		return d, len(run), true
	}
	if i := strings.IndexFunc(run, isSpaceSep); i > 0 {
		if d, ok := parseAmount(run[:i]); ok {
			return d, i, true
		}
	}
	return decimal.Decimal{}, 0, false
}

// parseTrailing is parseLeading for runs that precede a symbol or code; it
// falls back to the part after the last space and returns the skipped bytes.
func parseTrailing(run string) (decimal.Decimal, int, bool) {
	if d, ok := parseAmount(run); ok {
		return d, 0, true
	}
	if i := strings.LastIndexFunc(run, isSpaceSep); i >= 0 {
		_, size := utf8.DecodeRuneInString(run[i:])
		if d, ok := parseAmount(run[i+size:]); ok {
			return d, i + size, true
		}
	}
	return decimal.Decimal{}, 0, false
}

func clamp(text string) string {
	if len(text) <= MaxInputBytes {
		return text
	}
	text = text[:MaxInputBytes]
	for len(text) > 0 && !utf8.ValidString(text) {
		text = text[:len(text)-1]
	}
	return text
}

func startsWithLetter(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsLetter(r)
}

// endsWithLetter treats a trailing period as part of a word ("Fr.").
func endsWithLetter(s string) bool {
	r, _ := utf8.DecodeLastRuneInString(s)
	return unicode.IsLetter(r) || r == '.'
}

func letterBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsLetter(r)
}

func letterAfter(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsLetter(r)
}

// numberBefore reports whether the run starting at i continues an earlier
// number, e.g. the "56789" in "1234.56789".
func numberBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, size := utf8.DecodeLastRuneInString(text[:i])
	if unicode.IsDigit(r) {
		return true
	}
	if r == '.' || r == ',' {
		prev, _ := utf8.DecodeLastRuneInString(text[:i-size])
		return unicode.IsDigit(prev)
	}
	return false
}

// signed reports whether the match starting at i carries a minus sign, as in
// "-5 USD" or "−$5". A hyphen right after a digit reads as a range ("10-20").
func signed(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, size := utf8.DecodeLastRuneInString(text[:i])
	if r != '-' && r != '\u2212' {
		return false
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i-size])
	return !unicode.IsDigit(prev)
}

// exponentAfter reports whether the number ending at i continues in
// scientific notation, e.g. "1e5" or "2E-3".
func exponentAfter(text string, i int) bool {
	rest := text[i:]
	if rest == "" || (rest[0] != 'e' && rest[0] != 'E') {
		return false
	}
	rest = rest[1:]
	if rest != "" && (rest[0] == '+' || rest[0] == '-') {
		rest = rest[1:]
	}
	return rest != "" && isASCIIDigit(rest[0])
}

// exponentBefore reports whether the number starting at i is the exponent of
// an earlier one, e.g. the "5" in "1e5".
func exponentBefore(text string, i int) bool {
	if i > 0 && (text[i-1] == '+' || text[i-1] == '-') {
		i--
	}
	if i < 2 || (text[i-1] != 'e' && text[i-1] != 'E') {
		return false
	}
	return isASCIIDigit(text[i-2])
}

func isASCIIDigit(b byte) bool { return b >= '0' && b <= '9' }
