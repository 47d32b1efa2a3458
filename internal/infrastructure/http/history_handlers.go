package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	infraconfig "fxconvert/internal/infrastructure/config"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func pathParam(r *http.Request, name string) string { return chi.URLParam(r, name) }

// historyFilter reads GET /history query parameters.
func historyFilter(r *http.Request) (application.HistoryFilter, error) {
	q := r.URL.Query()
	f := application.HistoryFilter{
		FromCurrency: q.Get("from"),
		ToCurrency:   q.Get("to"),
		DateFrom:     q.Get("dateFrom"),
		DateTo:       q.Get("dateTo"),
		Source:       domain.ConversionSource(q.Get("source")),
	}
	if v := q.Get("pair"); v != "" {
		p, err := domain.ParsePair(v)
		if err != nil {
			return f, fmt.Errorf("%w: pair: %w", application.ErrBadRequest, err)
		}
		f.Pair = &p
	}
	for _, d := range []string{f.DateFrom, f.DateTo} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, d); err != nil {
			return f, fmt.Errorf("%w: date %q, want YYYY-MM-DD", application.ErrBadRequest, d)
		}
	}
	if f.Source != "" && !f.Source.Valid() {
		return f, fmt.Errorf("%w: source %q", application.ErrBadRequest, f.Source)
	}
	for name, dst := range map[string]**decimal.Decimal{"minAmount": &f.MinAmount, "maxAmount": &f.MaxAmount} {
		if v := q.Get(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, fmt.Errorf("%w: %s %q", application.ErrBadRequest, name, v)
			}
			*dst = &d
		}
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("%w: limit %q", application.ErrBadRequest, v)
		}
		f.Limit = n
	}
	return f, nil
}

func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	f, err := historyFilter(r)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.history.GetHistory(f))
}

func (s *Server) ClearHistory(w http.ResponseWriter, r *http.Request) {
	scope, err := application.ParseClearScope(r.URL.Query().Get("scope"))
	if err != nil {
		fail(w, err)
		return
	}
	if err := s.history.ClearHistory(r.Context(), scope); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) ExportHistory(w http.ResponseWriter, r *http.Request) {
	format, err := application.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, err)
		return
	}
	data, err := s.history.ExportHistory(format)
	if err != nil {
		fail(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="fxconvert-history.%s"`, format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) ImportHistory(w http.ResponseWriter, r *http.Request) {
	mode, err := application.ParseImportMode(r.URL.Query().Get("mode"))
	if err != nil {
		fail(w, err)
		return
	}
	data, ok := readAll(w, r, infraconfig.DefaultImportBodyBytes)
	if !ok {
		return
	}
	res, err := s.history.ImportHistory(r.Context(), data, mode)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) GetStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.history.GetStats())
}

func (s *Server) RebuildStats(w http.ResponseWriter, r *http.Request) {
	st, err := s.history.RebuildStatsFromHistory(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) GetPopularPairs(w http.ResponseWriter, r *http.Request) {
	limit := application.DefaultPopularPair
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			badRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, s.history.GetPopularPairs(limit))
}

func (s *Server) GetFavorites(w http.ResponseWriter, r *http.Request) {
	by, err := application.ParseFavoriteSort(r.URL.Query().Get("sort"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.history.GetFavorites(by))
}

type favoriteRequest struct {
	From   string           `json:"from"`
	To     string           `json:"to"`
	Amount *decimal.Decimal `json:"amount"`
	Label  string           `json:"label"`
}

func (s *Server) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var body favoriteRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.From == "" || body.To == "" {
		badRequest(w, "from and to are required")
		return
	}
	fav, err := s.history.AddToFavorites(r.Context(), body.From, body.To, body.Amount, body.Label)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, fav)
}

func (s *Server) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	if err := s.history.RemoveFromFavorites(r.Context(), pathParam(r, "id")); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) UseFavorite(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ConvertFavorite(r.Context(), pathParam(r, "id"))
	writeOutcome(w, out, err)
}
