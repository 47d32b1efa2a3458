package application

import (
	"fxconvert/internal/domain"

	"github.com/samber/lo"
)

// WarmPairs lists the pairs worth keeping in the rate cache: the most used
// pairs from history, then base↔secondary and base→each additional currency.
// At most limit pairs are returned; identity pairs are dropped.
func WarmPairs(h *HistoryStore, s *SettingsStore, limit int) []domain.Pair {
	if limit <= 0 {
		return nil
	}
	var pairs []domain.Pair
	for _, pc := range h.GetPopularPairs(limit) {
		pairs = append(pairs, domain.NewPair(pc.From, pc.To))
	}
	st := s.GetSettings()
	if st.SecondaryCurrency != "" {
		pairs = append(pairs,
			domain.NewPair(st.BaseCurrency, st.SecondaryCurrency),
			domain.NewPair(st.SecondaryCurrency, st.BaseCurrency))
	}
	for _, c := range st.AdditionalCurrencies {
		pairs = append(pairs, domain.NewPair(c, st.BaseCurrency))
	}
	pairs = lo.Uniq(lo.Filter(pairs, func(p domain.Pair, _ int) bool { return p.From != p.To }))
	if len(pairs) > limit {
		pairs = pairs[:limit]
	}
	return pairs
}
