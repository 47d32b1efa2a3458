package application

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"fxconvert/internal/domain"

	"github.com/stretchr/testify/require"
)

func newTestHistory(kv KeyValueStore, clock Clock, opts ...HistoryOption) *HistoryStore {
	opts = append([]HistoryOption{WithHistoryClock(clock), WithHistoryIDGen(&seqIDGen{})}, opts...)
	return NewHistoryStore(kv, opts...)
}

func conversion(from, to, amount, rate string, at time.Time, src domain.ConversionSource) domain.ConversionRecord {
	a, r := dec(amount), dec(rate)
	return domain.ConversionRecord{
		FromCurrency:    from,
		ToCurrency:      to,
		OriginalAmount:  a,
		ConvertedAmount: a.Mul(r),
		ExchangeRate:    r,
		Timestamp:       at.UnixMilli(),
		Source:          src,
	}
}

func jsonOf(t *testing.T, v any) string {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return string(raw)
}

func Test_History_AddConversion(t *testing.T) {
	t.Parallel()
	kv := newFakeKV()
	h := newTestHistory(kv, newFakeClock(t0))
	ctx := context.Background()

	rec, err := h.AddConversion(ctx, conversion("USD", "EUR", "100", "0.855", t0, domain.SourceManual))
	require.NoError(t, err)
	require.Equal(t, "id-1", rec.ID)
	require.Equal(t, "2025-03-01", rec.Date)
	require.True(t, rec.ConvertedAmount.Equal(dec("85.5")))

	st := h.GetStats()
	require.Equal(t, 1, st.TotalConversions)
	require.Equal(t, 1, st.TodayConversions)
	require.Equal(t, 1, st.CurrencyUsageCount["USD"])
	require.Equal(t, 1, st.CurrencyUsageCount["EUR"])

	// history and stats land in the same write
	require.Equal(t, 1, kv.sets)
	require.Contains(t, kv.data, KeyConversionHistory)
	require.Contains(t, kv.data, KeyConversionStats)

	_, err = h.AddConversion(ctx, conversion("USD", "XXX", "1", "1", t0, domain.SourceManual))
	require.ErrorIs(t, err, domain.ErrUnknownCurrency)
	_, err = h.AddConversion(ctx, conversion("USD", "EUR", "-1", "1", t0, domain.SourceManual))
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
	require.Equal(t, 1, h.GetStats().TotalConversions)
}

func Test_History_BoundedButLifetimeStats(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	h := newTestHistory(newFakeKV(), clock)
	ctx := context.Background()

	const extra = 25
	for i := 0; i < MaxHistoryEntries+extra; i++ {
		_, err := h.AddConversion(ctx, conversion("USD", "EUR", "1", "0.9", t0.Add(time.Duration(i)*time.Second), domain.SourceAPI))
		require.NoError(t, err)
	}
	all := h.GetHistory(HistoryFilter{Limit: 10000})
	require.Len(t, all, MaxHistoryEntries)
	require.Equal(t, MaxHistoryEntries+extra, h.GetStats().TotalConversions)
	// newest first, oldest evicted
	require.Equal(t, fmt.Sprintf("id-%d", MaxHistoryEntries+extra), all[0].ID)
	require.Equal(t, fmt.Sprintf("id-%d", extra+1), all[len(all)-1].ID)
}

func Test_History_GetHistoryFilters(t *testing.T) {
	t.Parallel()
	h := newTestHistory(newFakeKV(), newFakeClock(t0))
	ctx := context.Background()
	day2 := t0.Add(24 * time.Hour)
	for _, rec := range []domain.ConversionRecord{
		conversion("USD", "EUR", "10", "0.9", t0, domain.SourceManual),
		conversion("USD", "EUR", "500", "0.9", t0.Add(time.Hour), domain.SourceContextMenu),
		conversion("GBP", "USD", "20", "1.27", day2, domain.SourceContextMenu),
		conversion("EUR", "JPY", "30", "160", day2.Add(time.Hour), domain.SourceAPI),
	} {
		_, err := h.AddConversion(ctx, rec)
		require.NoError(t, err)
	}
	pair := domain.NewPair("USD", "EUR")

	cases := []struct {
		name string
		f    HistoryFilter
		want []string
	}{
		{name: "default", f: HistoryFilter{}, want: []string{"id-4", "id-3", "id-2", "id-1"}},
		{name: "pair", f: HistoryFilter{Pair: &pair}, want: []string{"id-2", "id-1"}},
		{name: "from", f: HistoryFilter{FromCurrency: "gbp"}, want: []string{"id-3"}},
		{name: "to", f: HistoryFilter{ToCurrency: "USD"}, want: []string{"id-3"}},
		{name: "date range", f: HistoryFilter{DateFrom: "2025-03-02", DateTo: "2025-03-02"}, want: []string{"id-4", "id-3"}},
		{name: "since", f: HistoryFilter{Since: t0.Add(30 * time.Minute)}, want: []string{"id-4", "id-3", "id-2"}},
		{name: "source and amount", f: HistoryFilter{Source: domain.SourceContextMenu, MaxAmount: decPtr("100")}, want: []string{"id-3"}},
		{name: "min amount", f: HistoryFilter{MinAmount: decPtr("30")}, want: []string{"id-4", "id-2"}},
		{name: "limit", f: HistoryFilter{Limit: 1}, want: []string{"id-4"}},
	}
	for _, c := range cases {
		got := h.GetHistory(c.f)
		ids := make([]string, len(got))
		for i, r := range got {
			ids[i] = r.ID
		}
		require.Equal(t, c.want, ids, c.name)
	}

	rec, err := h.GetRecord("id-3")
	require.NoError(t, err)
	require.Equal(t, "GBP", rec.FromCurrency)
	_, err = h.GetRecord("nope")
	require.ErrorIs(t, err, ErrNotFound)

	popular := h.GetPopularPairs(1)
	require.Len(t, popular, 1)
	require.Equal(t, "USD→EUR", popular[0].Pair)
	require.Equal(t, 2, popular[0].Count)
}

func Test_History_PersistenceFailureKeepsMemory(t *testing.T) {
	t.Parallel()
	kv := newFakeKV()
	h := newTestHistory(kv, newFakeClock(t0))
	kv.setFailing(true)

	rec, err := h.AddConversion(context.Background(), conversion("USD", "EUR", "1", "0.9", t0, domain.SourceManual))
	require.ErrorIs(t, err, domain.ErrPersistence)
	require.NotEmpty(t, rec.ID)
	require.Len(t, h.GetHistory(HistoryFilter{}), 1)
	require.Equal(t, 1, h.GetStats().TotalConversions)
}

func Test_History_LoadRebuildsInconsistentStats(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()
	writer := newTestHistory(kv, newFakeClock(t0))
	for i := 0; i < 3; i++ {
		_, err := writer.AddConversion(ctx, conversion("USD", "EUR", "1", "0.9", t0.Add(time.Duration(i)*time.Minute), domain.SourceManual))
		require.NoError(t, err)
	}

	// stats written by an older run that missed the last two records
	stale := domain.RebuildStatistics(writer.GetHistory(HistoryFilter{})[2:])
	kv.data[KeyConversionStats] = []byte(jsonOf(t, stale))

	reader := newTestHistory(kv, newFakeClock(t0))
	require.NoError(t, reader.Load(ctx))
	require.Equal(t, 3, reader.GetStats().TotalConversions)
	require.Len(t, reader.GetHistory(HistoryFilter{}), 3)

	var persisted domain.ConversionStatistics
	require.NoError(t, json.Unmarshal(kv.data[KeyConversionStats], &persisted))
	require.Equal(t, 3, persisted.TotalConversions)

	// consistent lifetime stats survive a reload untouched
	delete(kv.data, KeyConversionHistory)
	again := newTestHistory(kv, newFakeClock(t0))
	require.NoError(t, again.Load(ctx))
	require.Equal(t, 3, again.GetStats().TotalConversions)
	require.Empty(t, again.GetHistory(HistoryFilter{}))
}

func Test_History_LoadKeepsStateWhenWriteBackFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	kv := newFakeKV()
	writer := newTestHistory(kv, newFakeClock(t0))
	_, err := writer.AddConversion(ctx, conversion("USD", "EUR", "10", "0.9", t0, domain.SourceManual))
	require.NoError(t, err)
	delete(kv.data, KeyConversionStats)
	kv.setFailing(true)

	h := newTestHistory(kv, newFakeClock(t0))
	require.NoError(t, h.Load(ctx))
	require.Len(t, h.GetHistory(HistoryFilter{}), 1)
	require.Equal(t, 1, h.GetStats().TotalConversions)
	_, stored := kv.data[KeyConversionStats]
	require.False(t, stored)
}

func Test_History_LoadFailure(t *testing.T) {
	t.Parallel()
	kv := newFakeKV()
	kv.failGet = true
	h := newTestHistory(kv, newFakeClock(t0))
	require.ErrorIs(t, h.Load(context.Background()), domain.ErrPersistence)
	require.Empty(t, h.GetHistory(HistoryFilter{}))
}

func Test_History_Favorites(t *testing.T) {
	t.Parallel()
	clock := newFakeClock(t0)
	h := newTestHistory(newFakeKV(), clock, WithHistoryLimits(0, 3))
	ctx := context.Background()

	first, err := h.AddToFavorites(ctx, "usd", "EUR", decPtr("100"), "")
	require.NoError(t, err)
	require.Equal(t, "100 USD → EUR", first.Label)

	_, err = h.AddToFavorites(ctx, "USD", "EUR", decPtr("100.00"), "again")
	require.ErrorIs(t, err, domain.ErrDuplicateFavorite)
	require.Contains(t, err.Error(), "already in favorites")
	favs := h.GetFavorites(SortCreated)
	require.Len(t, favs, 1)
	require.Equal(t, first, favs[0])

	clock.Advance(time.Second)
	noAmount, err := h.AddToFavorites(ctx, "USD", "EUR", nil, "Quick")
	require.NoError(t, err)
	clock.Advance(time.Second)
	zeta, err := h.AddToFavorites(ctx, "GBP", "JPY", nil, "alpha")
	require.NoError(t, err)

	_, err = h.AddToFavorites(ctx, "CHF", "EUR", nil, "")
	require.ErrorIs(t, err, domain.ErrFavoritesFull)

	clock.Advance(time.Second)
	used, err := h.UseFavorite(ctx, first.ID)
	require.NoError(t, err)
	require.Equal(t, 1, used.UsageCount)
	require.NotNil(t, used.LastUsed)

	ids := func(fs []domain.FavoritePair) []string {
		out := make([]string, len(fs))
		for i, f := range fs {
			out[i] = f.ID
		}
		return out
	}
	require.Equal(t, []string{zeta.ID, noAmount.ID, first.ID}, ids(h.GetFavorites(SortCreated)))
	require.Equal(t, first.ID, h.GetFavorites(SortUsage)[0].ID)
	require.Equal(t, first.ID, h.GetFavorites(SortRecent)[0].ID)
	require.Equal(t, []string{first.ID, zeta.ID, noAmount.ID}, ids(h.GetFavorites(SortLabel)))

	require.NoError(t, h.RemoveFromFavorites(ctx, noAmount.ID))
	require.ErrorIs(t, h.RemoveFromFavorites(ctx, noAmount.ID), ErrNotFound)
	_, err = h.UseFavorite(ctx, "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.Len(t, h.GetFavorites(""), 2)

	_, err = h.AddToFavorites(ctx, "USD", "EUR", decPtr("0"), "")
	require.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func Test_History_ClearScopes(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	h := newTestHistory(newFakeKV(), newFakeClock(t0))
	_, err := h.AddConversion(ctx, conversion("USD", "EUR", "1", "0.9", t0, domain.SourceManual))
	require.NoError(t, err)
	_, err = h.AddToFavorites(ctx, "USD", "EUR", nil, "")
	require.NoError(t, err)

	require.NoError(t, h.ClearHistory(ctx, ClearHistory))
	require.Empty(t, h.GetHistory(HistoryFilter{}))
	require.Equal(t, 1, h.GetStats().TotalConversions)

	require.NoError(t, h.ClearHistory(ctx, ClearStats))
	require.Zero(t, h.GetStats().TotalConversions)
	require.Len(t, h.GetFavorites(SortCreated), 1)

	require.NoError(t, h.ClearHistory(ctx, ClearFavorites))
	require.Empty(t, h.GetFavorites(SortCreated))

	require.Error(t, h.ClearHistory(ctx, ClearScope("bogus")))
	_, err = ParseClearScope("bogus")
	require.ErrorIs(t, err, ErrBadRequest)
}

func seedHistory(t *testing.T, h *HistoryStore) {
	t.Helper()
	ctx := context.Background()
	for i, rec := range []domain.ConversionRecord{
		conversion("USD", "EUR", "100", "0.855", t0, domain.SourceContextMenu),
		conversion("GBP", "USD", "20.5", "1.27", t0.Add(time.Hour), domain.SourceManual),
		conversion("EUR", "JPY", "3", "161.25", t0.Add(25*time.Hour), domain.SourceAPI),
	} {
		if i == 0 {
			conf, page := 0.8, "https://shop.example/item"
			rec.Confidence, rec.Webpage = &conf, &page
		}
		_, err := h.AddConversion(ctx, rec)
		require.NoError(t, err)
	}
	_, err := h.AddToFavorites(ctx, "USD", "EUR", decPtr("50"), "lunch")
	require.NoError(t, err)
}

func Test_History_ExportImportRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	clock := newFakeClock(t0.Add(48 * time.Hour))
	src := newTestHistory(newFakeKV(), clock)
	seedHistory(t, src)

	for _, format := range []ExportFormat{FormatJSON, FormatYAML} {
		data, err := src.ExportHistory(format)
		require.NoError(t, err)

		dst := newTestHistory(newFakeKV(), clock)
		res, err := dst.ImportHistory(ctx, data, ImportReplace)
		require.NoError(t, err, format)
		require.Equal(t, 3, res.HistoryAdded)
		require.Equal(t, 1, res.FavoritesAdded)

		require.JSONEq(t, jsonOf(t, src.GetHistory(HistoryFilter{})), jsonOf(t, dst.GetHistory(HistoryFilter{})), format)
		require.JSONEq(t, jsonOf(t, src.GetStats()), jsonOf(t, dst.GetStats()), format)
		require.JSONEq(t, jsonOf(t, src.GetFavorites(SortCreated)), jsonOf(t, dst.GetFavorites(SortCreated)), format)
	}
}

func Test_History_ExportDocumentShape(t *testing.T) {
	t.Parallel()
	h := newTestHistory(newFakeKV(), newFakeClock(t0))
	seedHistory(t, h)

	data, err := h.ExportHistory(FormatJSON)
	require.NoError(t, err)
	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	for _, k := range []string{"history", "favorites", "stats", "exportDate", "version"} {
		require.Contains(t, doc, k)
	}
	require.JSONEq(t, `"1.0"`, string(doc["version"]))

	yml, err := h.ExportHistory(FormatYAML)
	require.NoError(t, err)
	require.Contains(t, string(yml), "history:")
	require.Contains(t, string(yml), "fromCurrency: USD")
}

func Test_History_ExportCSV(t *testing.T) {
	t.Parallel()
	h := newTestHistory(newFakeKV(), newFakeClock(t0))
	seedHistory(t, h)

	data, err := h.ExportHistory(FormatCSV)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "Date,Time,From Currency,To Currency,Original Amount,Converted Amount,Exchange Rate,Source,Confidence,Webpage", lines[0])
	require.Equal(t, "2025-03-01,12:00:00,USD,EUR,100,85.5,0.855,context-menu,0.8,https://shop.example/item", lines[3])
	require.Equal(t, "2025-03-02,13:00:00,EUR,JPY,3,483.75,161.25,api,,", lines[1])

	_, err = h.ExportHistory(ExportFormat("xml"))
	require.ErrorIs(t, err, ErrBadRequest)
}

func Test_History_ImportAppend(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	src := newTestHistory(newFakeKV(), newFakeClock(t0))
	seedHistory(t, src)
	data, err := src.ExportHistory(FormatJSON)
	require.NoError(t, err)

	dst := newTestHistory(newFakeKV(), newFakeClock(t0), WithHistoryIDGen(&seqIDGen{}))
	local, err := dst.AddConversion(ctx, conversion("CHF", "EUR", "5", "1.05", t0.Add(30*time.Minute), domain.SourceManual))
	require.NoError(t, err)
	// shares id-1 with an imported record; the local one must win
	require.Equal(t, "id-1", local.ID)

	res, err := dst.ImportHistory(ctx, data, ImportAppend)
	require.NoError(t, err)
	require.Equal(t, 2, res.HistoryAdded)
	require.Equal(t, 1, res.HistorySkipped)
	require.Equal(t, 1, res.FavoritesAdded)

	got := dst.GetHistory(HistoryFilter{})
	require.Len(t, got, 3)
	require.Equal(t, "EUR", got[0].FromCurrency)
	rec, err := dst.GetRecord("id-1")
	require.NoError(t, err)
	require.Equal(t, "CHF", rec.FromCurrency)

	st := dst.GetStats()
	require.Equal(t, 3, st.TotalConversions)
	require.True(t, st.ConsistentWith(got))
	require.JSONEq(t, jsonOf(t, domain.RebuildStatistics(got).WithToday("2025-03-01")), jsonOf(t, st))

	// importing the same document again adds nothing
	res, err = dst.ImportHistory(ctx, data, ImportAppend)
	require.NoError(t, err)
	require.Zero(t, res.HistoryAdded)
	require.Zero(t, res.FavoritesAdded)
	require.Equal(t, 3, dst.GetStats().TotalConversions)
}

func Test_History_ImportRejectsGarbage(t *testing.T) {
	t.Parallel()
	h := newTestHistory(newFakeKV(), newFakeClock(t0))
	_, err := h.ImportHistory(context.Background(), []byte("{not json"), ImportReplace)
	require.ErrorIs(t, err, domain.ErrInvalidImport)
	_, err = h.ImportHistory(context.Background(), nil, ImportReplace)
	require.ErrorIs(t, err, domain.ErrInvalidImport)
}

func Test_History_RebuildStatsFromHistory(t *testing.T) {
	t.Parallel()
	h := newTestHistory(newFakeKV(), newFakeClock(t0), WithHistoryLimits(2, 0))
	seedHistory(t, h)
	require.Equal(t, 3, h.GetStats().TotalConversions)

	st, err := h.RebuildStatsFromHistory(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, st.TotalConversions)
	require.JSONEq(t, jsonOf(t, st), jsonOf(t, h.GetStats()))
}
