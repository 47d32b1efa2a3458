package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"fxconvert/internal/application"
	"fxconvert/internal/domain"
	infraconfig "fxconvert/internal/infrastructure/config"
	"fxconvert/internal/infrastructure/metrics"

	"github.com/shopspring/decimal"
)

type Server struct {
	svc      *application.ConversionService
	history  *application.HistoryStore
	settings *application.SettingsStore
	resolver *application.Resolver
	ping     func(context.Context) error
	metrics  *metrics.Metrics
}

type ServerOption func(*Server)

// WithReadiness sets the check behind /readyz.
func WithReadiness(ping func(context.Context) error) ServerOption {
	return func(s *Server) { s.ping = ping }
}

// WithMetrics instruments the router and serves /metrics.
func WithMetrics(m *metrics.Metrics) ServerOption { return func(s *Server) { s.metrics = m } }

func NewServer(svc *application.ConversionService, history *application.HistoryStore, settings *application.SettingsStore, resolver *application.Resolver, opts ...ServerOption) *Server {
	s := &Server{svc: svc, history: history, settings: settings, resolver: resolver}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, infraconfig.DefaultMaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		badRequest(w, "invalid JSON body")
		return false
	}
	return true
}

func (s *Server) ListCurrencies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, domain.KnownCurrencies())
}

func (s *Server) ListProviders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.resolver.Providers())
}

type detectRequest struct {
	Text string `json:"text"`
}

func (s *Server) Detect(w http.ResponseWriter, r *http.Request) {
	var body detectRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	found := s.svc.Detect(body.Text)
	if found == nil {
		found = []domain.DetectedAmount{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"detected": found})
}

type convertRequest struct {
	Amount  *decimal.Decimal        `json:"amount"`
	From    string                  `json:"from"`
	To      string                  `json:"to"`
	Source  domain.ConversionSource `json:"source"`
	Webpage string                  `json:"webpage"`
	Record  bool                    `json:"record"`
}

func (s *Server) Convert(w http.ResponseWriter, r *http.Request) {
	var body convertRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Amount == nil || body.From == "" || body.To == "" {
		badRequest(w, "amount, from and to are required")
		return
	}
	out, err := s.svc.Convert(r.Context(), application.ConvertRequest{
		Amount:  *body.Amount,
		From:    body.From,
		To:      body.To,
		Source:  body.Source,
		Webpage: body.Webpage,
		Record:  body.Record,
	})
	writeOutcome(w, out, err)
}

type selectionRequest struct {
	Text           string                  `json:"text"`
	Webpage        string                  `json:"webpage"`
	Source         domain.ConversionSource `json:"source"`
	TargetCurrency string                  `json:"targetCurrency"`
	Auto           bool                    `json:"auto"`
}

type selectionResponse struct {
	Found bool `json:"found"`
	*application.ConversionOutcome
}

func (s *Server) ConvertSelection(w http.ResponseWriter, r *http.Request) {
	var body selectionRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Source != "" && !body.Source.Valid() {
		badRequest(w, "unknown source")
		return
	}
	out, err := s.svc.ConvertSelection(r.Context(), application.Selection{
		Text:           body.Text,
		Webpage:        body.Webpage,
		Source:         body.Source,
		TargetCurrency: body.TargetCurrency,
		IdempotencyKey: r.Header.Get("X-Idempotency-Key"),
		Auto:           body.Auto,
	})
	if err != nil && !(errors.Is(err, domain.ErrPersistence) && out != nil) {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, selectionResponse{Found: out != nil, ConversionOutcome: out})
}

func (s *Server) RepeatConversion(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.RepeatConversion(r.Context(), pathParam(r, "id"))
	writeOutcome(w, out, err)
}

// writeOutcome reports a conversion whose history write failed as a success
// with persisted=false.
func writeOutcome(w http.ResponseWriter, out *application.ConversionOutcome, err error) {
	if err != nil && !(errors.Is(err, domain.ErrPersistence) && out != nil) {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func readAll(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, bool) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
			return nil, false
		}
		badRequest(w, "unreadable body")
		return nil, false
	}
	return data, true
}
