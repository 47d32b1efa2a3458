package domain

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// DailyStat is the per-day bucket of ConversionStatistics.
type DailyStat struct {
	Count       int             `json:"count"`
	TotalAmount decimal.Decimal `json:"totalAmount"`
	Currencies  []string        `json:"currencies"`
}

// ConversionStatistics is a projection over the conversion log. Counters are
// lifetime totals: evicting old records does not decrement them.
type ConversionStatistics struct {
	TotalConversions       int                  `json:"totalConversions"`
	TodayConversions       int                  `json:"todayConversions"`
	LastConversionDate     *int64               `json:"lastConversionDate"`
	MostUsedFromCurrency   string               `json:"mostUsedFromCurrency"`
	MostUsedToCurrency     string               `json:"mostUsedToCurrency"`
	MostUsedPair           string               `json:"mostUsedPair"`
	AverageAmountConverted decimal.Decimal      `json:"averageAmountConverted"`
	TotalAmountConverted   decimal.Decimal      `json:"totalAmountConverted"`
	CurrencyUsageCount     map[string]int       `json:"currencyUsageCount"`
	FromUsageCount         map[string]int       `json:"fromCurrencyUsageCount"`
	ToUsageCount           map[string]int       `json:"toCurrencyUsageCount"`
	PairUsageCount         map[string]int       `json:"pairUsageCount"`
	DailyStats             map[string]DailyStat `json:"dailyStats"`
}

func NewStatistics() ConversionStatistics {
	return ConversionStatistics{
		CurrencyUsageCount: map[string]int{},
		FromUsageCount:     map[string]int{},
		ToUsageCount:       map[string]int{},
		PairUsageCount:     map[string]int{},
		DailyStats:         map[string]DailyStat{},
	}
}

// Normalize replaces nil maps, e.g. after decoding a partial document.
func (s *ConversionStatistics) Normalize() {
	if s.CurrencyUsageCount == nil {
		s.CurrencyUsageCount = map[string]int{}
	}
	if s.FromUsageCount == nil {
		s.FromUsageCount = map[string]int{}
	}
	if s.ToUsageCount == nil {
		s.ToUsageCount = map[string]int{}
	}
	if s.PairUsageCount == nil {
		s.PairUsageCount = map[string]int{}
	}
	if s.DailyStats == nil {
		s.DailyStats = map[string]DailyStat{}
	}
}

// Apply folds one record into the aggregate.
func (s *ConversionStatistics) Apply(rec ConversionRecord) {
	s.Normalize()
	s.TotalConversions++
	s.TotalAmountConverted = s.TotalAmountConverted.Add(rec.OriginalAmount)
	s.CurrencyUsageCount[rec.FromCurrency]++
	s.CurrencyUsageCount[rec.ToCurrency]++
	s.FromUsageCount[rec.FromCurrency]++
	s.ToUsageCount[rec.ToCurrency]++
	s.PairUsageCount[rec.Pair().Key()]++

	date := rec.Date
	if date == "" {
		date = DateOf(rec.Timestamp)
	}
	day := s.DailyStats[date]
	day.Count++
	day.TotalAmount = day.TotalAmount.Add(rec.OriginalAmount)
	day.Currencies = mergeCurrencies(day.Currencies, rec.FromCurrency, rec.ToCurrency)
	s.DailyStats[date] = day

	if s.LastConversionDate == nil || rec.Timestamp > *s.LastConversionDate {
		ts := rec.Timestamp
		s.LastConversionDate = &ts
	}
	s.recompute()
}

// Merge adds other into s.
func (s *ConversionStatistics) Merge(other ConversionStatistics) {
	s.Normalize()
	other.Normalize()
	s.TotalConversions += other.TotalConversions
	s.TotalAmountConverted = s.TotalAmountConverted.Add(other.TotalAmountConverted)
	addCounts(s.CurrencyUsageCount, other.CurrencyUsageCount)
	addCounts(s.FromUsageCount, other.FromUsageCount)
	addCounts(s.ToUsageCount, other.ToUsageCount)
	addCounts(s.PairUsageCount, other.PairUsageCount)
	for date, od := range other.DailyStats {
		day := s.DailyStats[date]
		day.Count += od.Count
		day.TotalAmount = day.TotalAmount.Add(od.TotalAmount)
		day.Currencies = mergeCurrencies(day.Currencies, od.Currencies...)
		s.DailyStats[date] = day
	}
	if other.LastConversionDate != nil && (s.LastConversionDate == nil || *other.LastConversionDate > *s.LastConversionDate) {
		ts := *other.LastConversionDate
		s.LastConversionDate = &ts
	}
	s.recompute()
}

// WithToday returns a copy whose TodayConversions reflects the given date.
func (s ConversionStatistics) WithToday(today string) ConversionStatistics {
	out := s.Clone()
	out.TodayConversions = out.DailyStats[today].Count
	return out
}

// Clone deep-copies the maps so callers cannot mutate store state.
func (s ConversionStatistics) Clone() ConversionStatistics {
	out := s
	out.CurrencyUsageCount = lo.Assign(s.CurrencyUsageCount)
	out.FromUsageCount = lo.Assign(s.FromUsageCount)
	out.ToUsageCount = lo.Assign(s.ToUsageCount)
	out.PairUsageCount = lo.Assign(s.PairUsageCount)
	out.DailyStats = make(map[string]DailyStat, len(s.DailyStats))
	for k, v := range s.DailyStats {
		v.Currencies = append([]string(nil), v.Currencies...)
		out.DailyStats[k] = v
	}
	if s.LastConversionDate != nil {
		ts := *s.LastConversionDate
		out.LastConversionDate = &ts
	}
	return out
}

// ConsistentWith reports whether the aggregate can describe the given log.
// Lifetime totals may exceed the retained window but never fall below it,
// and no retained record may be newer than the last counted conversion.
func (s ConversionStatistics) ConsistentWith(history []ConversionRecord) bool {
	if s.TotalConversions < len(history) {
		return false
	}
	for _, rec := range history {
		if s.LastConversionDate == nil || rec.Timestamp > *s.LastConversionDate {
			return false
		}
	}
	return true
}

// RebuildStatistics recomputes the aggregate from a record log.
func RebuildStatistics(history []ConversionRecord) ConversionStatistics {
	st := NewStatistics()
	for i := len(history) - 1; i >= 0; i-- {
		st.Apply(history[i])
	}
	return st
}

func (s *ConversionStatistics) recompute() {
	s.MostUsedFromCurrency = mostUsed(s.FromUsageCount)
	s.MostUsedToCurrency = mostUsed(s.ToUsageCount)
	s.MostUsedPair = mostUsed(s.PairUsageCount)
	if s.TotalConversions > 0 {
		s.AverageAmountConverted = s.TotalAmountConverted.Div(decimal.NewFromInt(int64(s.TotalConversions)))
	} else {
		s.AverageAmountConverted = decimal.Zero
	}
}

// PairCount is one entry of the popular-pairs ranking.
type PairCount struct {
	Pair  string `json:"pair"`
	From  string `json:"from"`
	To    string `json:"to"`
	Count int    `json:"count"`
}

// PopularPairs ranks pairs by usage, ties broken by key.
func (s ConversionStatistics) PopularPairs(limit int) []PairCount {
	out := make([]PairCount, 0, len(s.PairUsageCount))
	for key, n := range s.PairUsageCount {
		pc := PairCount{Pair: key, Count: n}
		if p, err := ParsePair(key); err == nil {
			pc.From, pc.To = p.From, p.To
		}
		out = append(out, pc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pair < out[j].Pair
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func mostUsed(m map[string]int) string {
	best, bestN := "", 0
	for k, n := range m {
		if n > bestN || (n == bestN && k < best) {
			best, bestN = k, n
		}
	}
	return best
}

func addCounts(dst, src map[string]int) {
	for k, n := range src {
		dst[k] += n
	}
}

func mergeCurrencies(set []string, codes ...string) []string {
	out := lo.Uniq(append(append([]string(nil), set...), codes...))
	sort.Strings(out)
	return out
}
