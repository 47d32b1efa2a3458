package application

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"fxconvert/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	MaxHistoryEntries  = 1000
	MaxFavorites       = 50
	DefaultHistoryPage = 50
	DefaultPopularPair = 5
)

// HistoryStore owns the conversion log, the statistics projection over it and
// the favorites list. Reads are served from memory; every mutation is written
// through to the KeyValueStore.
type HistoryStore struct {
	kv           KeyValueStore
	clock        Clock
	idgen        IDGen
	log          *zap.Logger
	maxHistory   int
	maxFavorites int

	mu        sync.RWMutex
	history   []domain.ConversionRecord
	favorites []domain.FavoritePair
	stats     domain.ConversionStatistics
}

type HistoryOption func(*HistoryStore)

func WithHistoryClock(c Clock) HistoryOption { return func(h *HistoryStore) { h.clock = c } }
func WithHistoryIDGen(g IDGen) HistoryOption { return func(h *HistoryStore) { h.idgen = g } }
func WithHistoryLogger(l *zap.Logger) HistoryOption { return func(h *HistoryStore) { h.log = l } }

// WithHistoryLimits overrides the history and favorites caps. Non-positive
// values keep the defaults.
func WithHistoryLimits(maxHistory, maxFavorites int) HistoryOption {
	return func(h *HistoryStore) {
		if maxHistory > 0 {
			h.maxHistory = maxHistory
		}
		if maxFavorites > 0 {
			h.maxFavorites = maxFavorites
		}
	}
}

func NewHistoryStore(kv KeyValueStore, opts ...HistoryOption) *HistoryStore {
	h := &HistoryStore{
		kv:           kv,
		maxHistory:   MaxHistoryEntries,
		maxFavorites: MaxFavorites,
		stats:        domain.NewStatistics(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.clock == nil {
		h.clock = realClock{}
	}
	if h.idgen == nil {
		h.idgen = defaultIDGen{}
	}
	if h.log == nil {
		h.log = zap.NewNop()
	}
	return h
}

// Load hydrates the store. Statistics that are missing or cannot describe the
// loaded history are rebuilt and written back; a failed write-back is logged
// and the rebuilt statistics stay in memory. Only a failed read is returned.
func (h *HistoryStore) Load(ctx context.Context) error {
	vals, err := h.kv.Get(ctx, KeyConversionHistory, KeyConversionStats, KeyFavoritePairs)
	if err != nil {
		h.log.Error("history.load_failed", zap.Error(err))
		return fmt.Errorf("%w: load history: %w", domain.ErrPersistence, err)
	}

	var history []domain.ConversionRecord
	if raw, ok := vals[KeyConversionHistory]; ok {
		if err := json.Unmarshal(raw, &history); err != nil {
			h.log.Warn("history.decode_failed", zap.String("key", KeyConversionHistory), zap.Error(err))
			history = nil
		}
	}
	var favorites []domain.FavoritePair
	if raw, ok := vals[KeyFavoritePairs]; ok {
		if err := json.Unmarshal(raw, &favorites); err != nil {
			h.log.Warn("history.decode_failed", zap.String("key", KeyFavoritePairs), zap.Error(err))
			favorites = nil
		}
	}
	stats := domain.NewStatistics()
	rawStats, haveStats := vals[KeyConversionStats]
	if haveStats {
		if err := json.Unmarshal(rawStats, &stats); err != nil {
			h.log.Warn("history.decode_failed", zap.String("key", KeyConversionStats), zap.Error(err))
			haveStats = false
		}
		stats.Normalize()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = h.trim(sortRecent(history))
	h.favorites = favorites
	if haveStats && stats.ConsistentWith(h.history) {
		h.stats = stats
		return nil
	}
	h.log.Info("history.stats_rebuilt", zap.Int("records", len(h.history)), zap.Bool("had_stats", haveStats))
	h.stats = domain.RebuildStatistics(h.history)
	if err := h.persist(ctx, KeyConversionStats); err != nil {
		h.log.Warn("history.stats_writeback_failed", zap.Error(err))
	}
	return nil
}

// AddConversion assigns an id and date to rec, prepends it and folds it into
// the statistics. History and statistics are written in one Set. On a write
// failure the record is kept in memory and returned with an error wrapping
// domain.ErrPersistence.
func (h *HistoryStore) AddConversion(ctx context.Context, rec domain.ConversionRecord) (domain.ConversionRecord, error) {
	if err := validateRecord(rec); err != nil {
		return domain.ConversionRecord{}, err
	}
	if rec.Source == "" {
		rec.Source = domain.SourceManual
	}
	if rec.Timestamp == 0 {
		rec.Timestamp = h.clock.Now().UnixMilli()
	}
	rec.ID = h.idgen.NewID()
	rec.Date = domain.DateOf(rec.Timestamp)

	h.mu.Lock()
	defer h.mu.Unlock()
	h.history = h.trim(append([]domain.ConversionRecord{rec}, h.history...))
	h.stats.Apply(rec)
	return rec, h.persist(ctx, KeyConversionHistory, KeyConversionStats)
}

func validateRecord(rec domain.ConversionRecord) error {
	if err := rec.Pair().Validate(); err != nil {
		return err
	}
	if rec.OriginalAmount.IsNegative() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidAmount, rec.OriginalAmount)
	}
	if rec.Source != "" && !rec.Source.Valid() {
		return fmt.Errorf("%w: source %q", ErrBadRequest, rec.Source)
	}
	return nil
}

// HistoryFilter narrows GetHistory. Zero fields do not filter; set fields
// combine with AND.
type HistoryFilter struct {
	Pair         *domain.Pair
	FromCurrency string
	ToCurrency   string
	// DateFrom and DateTo are inclusive YYYY-MM-DD bounds.
	DateFrom  string
	DateTo    string
	Since     time.Time
	Until     time.Time
	Source    domain.ConversionSource
	MinAmount *decimal.Decimal
	MaxAmount *decimal.Decimal
	// Limit defaults to DefaultHistoryPage.
	Limit int
}

func (f HistoryFilter) match(rec domain.ConversionRecord) bool {
	switch {
	case f.Pair != nil && (rec.FromCurrency != f.Pair.From || rec.ToCurrency != f.Pair.To):
		return false
	case f.FromCurrency != "" && rec.FromCurrency != domain.NormalizeCode(f.FromCurrency):
		return false
	case f.ToCurrency != "" && rec.ToCurrency != domain.NormalizeCode(f.ToCurrency):
		return false
	case f.DateFrom != "" && rec.Date < f.DateFrom:
		return false
	case f.DateTo != "" && rec.Date > f.DateTo:
		return false
	case !f.Since.IsZero() && rec.Timestamp < f.Since.UnixMilli():
		return false
	case !f.Until.IsZero() && rec.Timestamp > f.Until.UnixMilli():
		return false
	case f.Source != "" && rec.Source != f.Source:
		return false
	case f.MinAmount != nil && rec.OriginalAmount.LessThan(*f.MinAmount):
		return false
	case f.MaxAmount != nil && rec.OriginalAmount.GreaterThan(*f.MaxAmount):
		return false
	}
	return true
}

// GetHistory returns matching records, most recent first.
func (h *HistoryStore) GetHistory(f HistoryFilter) []domain.ConversionRecord {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultHistoryPage
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]domain.ConversionRecord, 0, min(limit, len(h.history)))
	for _, rec := range h.history {
		if len(out) == limit {
			break
		}
		if f.match(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func (h *HistoryStore) GetRecord(id string) (domain.ConversionRecord, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, rec := range h.history {
		if rec.ID == id {
			return rec, nil
		}
	}
	return domain.ConversionRecord{}, fmt.Errorf("conversion %q: %w", id, ErrNotFound)
}

// GetStats returns a copy of the statistics with TodayConversions set for the
// current UTC date.
func (h *HistoryStore) GetStats() domain.ConversionStatistics {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats.WithToday(h.clock.Now().UTC().Format(domain.DateLayout))
}

func (h *HistoryStore) GetPopularPairs(limit int) []domain.PairCount {
	if limit <= 0 {
		limit = DefaultPopularPair
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.stats.PopularPairs(limit)
}

// RebuildStatsFromHistory recomputes the statistics from the retained log.
// Lifetime totals that exceeded the retained window are lost.
func (h *HistoryStore) RebuildStatsFromHistory(ctx context.Context) (domain.ConversionStatistics, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stats = domain.RebuildStatistics(h.history)
	err := h.persist(ctx, KeyConversionStats)
	return h.stats.WithToday(h.clock.Now().UTC().Format(domain.DateLayout)), err
}

type ClearScope string

const (
	ClearHistory   ClearScope = "history"
	ClearStats     ClearScope = "stats"
	ClearFavorites ClearScope = "favorites"
	ClearAll       ClearScope = "all"
)

func ParseClearScope(s string) (ClearScope, error) {
	switch sc := ClearScope(s); sc {
	case ClearHistory, ClearStats, ClearFavorites, ClearAll:
		return sc, nil
	case "":
		return ClearHistory, nil
	}
	return "", fmt.Errorf("%w: unknown clear scope %q", ErrBadRequest, s)
}

// ClearHistory drops state for the given scope. Clearing history keeps the
// lifetime statistics; clearing stats recomputes them from the retained log.
func (h *HistoryStore) ClearHistory(ctx context.Context, scope ClearScope) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch scope {
	case ClearHistory:
		h.history = nil
		return h.persist(ctx, KeyConversionHistory)
	case ClearStats:
		h.stats = domain.RebuildStatistics(h.history)
		return h.persist(ctx, KeyConversionStats)
	case ClearFavorites:
		h.favorites = nil
		return h.persist(ctx, KeyFavoritePairs)
	case ClearAll:
		h.history = nil
		h.favorites = nil
		h.stats = domain.NewStatistics()
		return h.persist(ctx, KeyConversionHistory, KeyConversionStats, KeyFavoritePairs)
	}
	return fmt.Errorf("%w: unknown clear scope %q", ErrBadRequest, scope)
}

// persist writes the named keys from current state. Callers hold h.mu.
func (h *HistoryStore) persist(ctx context.Context, keys ...string) error {
	values := make(map[string][]byte, len(keys))
	for _, k := range keys {
		var (
			raw []byte
			err error
		)
		switch k {
		case KeyConversionHistory:
			raw, err = json.Marshal(nonNil(h.history))
		case KeyConversionStats:
			raw, err = json.Marshal(h.stats)
		case KeyFavoritePairs:
			raw, err = json.Marshal(nonNil(h.favorites))
		}
		if err != nil {
			return fmt.Errorf("%w: encode %s: %w", domain.ErrPersistence, k, err)
		}
		values[k] = raw
	}
	if err := h.kv.Set(ctx, values); err != nil {
		h.log.Error("history.persist_failed", zap.Strings("keys", keys), zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func (h *HistoryStore) trim(history []domain.ConversionRecord) []domain.ConversionRecord {
	if len(history) > h.maxHistory {
		return history[:h.maxHistory]
	}
	return history
}

// sortRecent orders records most recent first; equal timestamps keep their
// relative order.
func sortRecent(history []domain.ConversionRecord) []domain.ConversionRecord {
	sort.SliceStable(history, func(i, j int) bool { return history[i].Timestamp > history[j].Timestamp })
	return history
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
