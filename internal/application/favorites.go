package application

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"fxconvert/internal/domain"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type FavoriteSort string

const (
	SortCreated FavoriteSort = "created"
	SortUsage   FavoriteSort = "usage"
	SortRecent  FavoriteSort = "recent"
	SortLabel   FavoriteSort = "label"
)

func ParseFavoriteSort(s string) (FavoriteSort, error) {
	switch fs := FavoriteSort(s); fs {
	case SortCreated, SortUsage, SortRecent, SortLabel:
		return fs, nil
	case "":
		return SortCreated, nil
	}
	return "", fmt.Errorf("%w: unknown favorites sort %q", ErrBadRequest, s)
}

// AddToFavorites saves a (from, to, amount) shortcut. A second favorite with
// the same triple fails with domain.ErrDuplicateFavorite and a full list with
// domain.ErrFavoritesFull.
func (h *HistoryStore) AddToFavorites(ctx context.Context, from, to string, amount *decimal.Decimal, label string) (domain.FavoritePair, error) {
	pair := domain.NewPair(from, to)
	if err := pair.Validate(); err != nil {
		return domain.FavoritePair{}, err
	}
	if amount != nil && !amount.IsPositive() {
		return domain.FavoritePair{}, fmt.Errorf("%w: %s", domain.ErrInvalidAmount, amount)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = domain.DefaultFavoriteLabel(pair.From, pair.To, amount)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if _, dup := lo.Find(h.favorites, func(f domain.FavoritePair) bool {
		return f.SameTriple(pair.From, pair.To, amount)
	}); dup {
		return domain.FavoritePair{}, fmt.Errorf("%s: %w", domain.DefaultFavoriteLabel(pair.From, pair.To, amount), domain.ErrDuplicateFavorite)
	}
	if len(h.favorites) >= h.maxFavorites {
		return domain.FavoritePair{}, fmt.Errorf("%w (%d)", domain.ErrFavoritesFull, h.maxFavorites)
	}

	fav := domain.FavoritePair{
		ID:           h.idgen.NewID(),
		FromCurrency: pair.From,
		ToCurrency:   pair.To,
		Label:        label,
		CreatedAt:    h.clock.Now().UnixMilli(),
	}
	if amount != nil {
		a := *amount
		fav.Amount = &a
	}
	h.favorites = append(h.favorites, fav)
	return fav, h.persist(ctx, KeyFavoritePairs)
}

func (h *HistoryStore) RemoveFromFavorites(ctx context.Context, id string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, idx, ok := lo.FindIndexOf(h.favorites, func(f domain.FavoritePair) bool { return f.ID == id })
	if !ok {
		return fmt.Errorf("favorite %q: %w", id, ErrNotFound)
	}
	h.favorites = append(h.favorites[:idx:idx], h.favorites[idx+1:]...)
	return h.persist(ctx, KeyFavoritePairs)
}

// GetFavorite returns the favorite with the given id.
func (h *HistoryStore) GetFavorite(id string) (domain.FavoritePair, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fav, ok := lo.Find(h.favorites, func(f domain.FavoritePair) bool { return f.ID == id })
	if !ok {
		return domain.FavoritePair{}, fmt.Errorf("favorite %q: %w", id, ErrNotFound)
	}
	return fav, nil
}

// UseFavorite bumps the usage counter and returns the updated favorite.
func (h *HistoryStore) UseFavorite(ctx context.Context, id string) (domain.FavoritePair, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, idx, ok := lo.FindIndexOf(h.favorites, func(f domain.FavoritePair) bool { return f.ID == id })
	if !ok {
		return domain.FavoritePair{}, fmt.Errorf("favorite %q: %w", id, ErrNotFound)
	}
	now := h.clock.Now().UnixMilli()
	h.favorites[idx].UsageCount++
	h.favorites[idx].LastUsed = &now
	return h.favorites[idx], h.persist(ctx, KeyFavoritePairs)
}

// GetFavorites returns a sorted copy of the favorites list.
func (h *HistoryStore) GetFavorites(by FavoriteSort) []domain.FavoritePair {
	h.mu.RLock()
	out := append([]domain.FavoritePair{}, h.favorites...)
	h.mu.RUnlock()

	lastUsed := func(f domain.FavoritePair) int64 {
		if f.LastUsed == nil {
			return 0
		}
		return *f.LastUsed
	}
	var less func(a, b domain.FavoritePair) bool
	switch by {
	case SortUsage:
		less = func(a, b domain.FavoritePair) bool {
			if a.UsageCount != b.UsageCount {
				return a.UsageCount > b.UsageCount
			}
			return lastUsed(a) > lastUsed(b)
		}
	case SortRecent:
		less = func(a, b domain.FavoritePair) bool {
			if lastUsed(a) != lastUsed(b) {
				return lastUsed(a) > lastUsed(b)
			}
			return a.CreatedAt > b.CreatedAt
		}
	case SortLabel:
		less = func(a, b domain.FavoritePair) bool {
			return strings.ToLower(a.Label) < strings.ToLower(b.Label)
		}
	default:
		less = func(a, b domain.FavoritePair) bool { return a.CreatedAt > b.CreatedAt }
	}
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}
