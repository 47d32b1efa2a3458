package parser

import (
	"strings"

	"github.com/shopspring/decimal"
)

const maxFractionDigits = 4

func isSpaceSep(r rune) bool {
	return r == ' ' || r == '\u00a0' || r == '\u202f' || r == '\u2009'
}

// parseAmount turns a numeric run such as "1,234.56", "1.234,56" or
// "1 234.56" into a decimal.
func parseAmount(run string) (decimal.Decimal, bool) {
	var (
		digits     []rune
		groups     []int
		seps       []rune
		cur        int
		dots, coms int
	)
	for _, r := range run {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, r)
			cur++
		case r == '.' || r == ',' || isSpaceSep(r):
			if isSpaceSep(r) {
				r = ' '
			}
			if r == '.' {
				dots++
			} else if r == ',' {
				coms++
			}
			groups = append(groups, cur)
			seps = append(seps, r)
			cur = 0
		default:
			return decimal.Decimal{}, false
		}
	}
	groups = append(groups, cur)
	if len(digits) == 0 {
		return decimal.Decimal{}, false
	}

	decimalSep := rune(0)
	switch {
	case dots > 0 && coms > 0:
		decimalSep = seps[len(seps)-1]
		if decimalSep == ' ' {
			return decimal.Decimal{}, false
		}
		if (decimalSep == '.' && dots != 1) || (decimalSep == ',' && coms != 1) {
			return decimal.Decimal{}, false
		}
	case dots == 1 && seps[len(seps)-1] == '.':
		decimalSep = '.'
	case coms == 1 && seps[len(seps)-1] == ',':
		// "1,234" is grouping, "12,5" is a decimal comma
		if !(groups[len(groups)-1] == 3 && groups[0] <= 3) {
			decimalSep = ','
		}
	}

	intGroups := groups
	fraction := 0
	if decimalSep != 0 {
		intGroups = groups[:len(groups)-1]
		fraction = groups[len(groups)-1]
		if fraction < 1 || fraction > maxFractionDigits {
			return decimal.Decimal{}, false
		}
	}
	// grouping: leading group 1-3 digits, the rest exactly 3
	if len(intGroups) > 1 {
		if intGroups[0] < 1 || intGroups[0] > 3 {
			return decimal.Decimal{}, false
		}
		for _, g := range intGroups[1:] {
			if g != 3 {
				return decimal.Decimal{}, false
			}
		}
		var groupSep rune
		limit := len(seps)
		if decimalSep != 0 {
			limit--
		}
		for _, s := range seps[:limit] {
			if groupSep == 0 {
				groupSep = s
			} else if s != groupSep {
				return decimal.Decimal{}, false
			}
		}
	}

	intLen := len(digits) - fraction
	var b strings.Builder
	b.WriteString(string(digits[:intLen]))
	if fraction > 0 {
		b.WriteByte('.')
		b.WriteString(string(digits[intLen:]))
	}
	d, err := decimal.NewFromString(b.String())
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
