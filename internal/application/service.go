package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fxconvert/internal/domain"
	"fxconvert/internal/parser"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateConverter is the resolver capability the service needs.
type RateConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (domain.ConversionResult, error)
}

// ConversionObserver is told about every conversion that reached the history
// store.
type ConversionObserver interface {
	Conversion(source string, persisted bool)
}

// ConversionService wires selection text through the parser, the resolver
// and the history store.
type ConversionService struct {
	resolver RateConverter
	history  *HistoryStore
	settings *SettingsStore
	idem     IdempotencyStore
	clock    Clock
	log      *zap.Logger
	observer ConversionObserver
}

type Option func(*ConversionService)

func WithClock(c Clock) Option        { return func(s *ConversionService) { s.clock = c } }
func WithLogger(l *zap.Logger) Option { return func(s *ConversionService) { s.log = l } }

func WithObserver(o ConversionObserver) Option {
	return func(s *ConversionService) { s.observer = o }
}

func NewConversionService(resolver RateConverter, history *HistoryStore, settings *SettingsStore, idem IdempotencyStore, opts ...Option) *ConversionService {
	s := &ConversionService{
		resolver: resolver,
		history:  history,
		settings: settings,
		idem:     idem,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = realClock{}
	}
	if s.idem == nil {
		s.idem = NoopIdempotency{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// Selection is a block of text picked by the user.
type Selection struct {
	Text    string
	Webpage string
	Source  domain.ConversionSource
	// TargetCurrency overrides the settings-derived target.
	TargetCurrency string
	// IdempotencyKey, when set, makes a repeated submission fail with ErrConflict.
	IdempotencyKey string
	// Auto marks text captured without an explicit user action. Such
	// selections are ignored while autoDetect is off.
	Auto bool
}

type ConvertRequest struct {
	Amount  decimal.Decimal
	From    string
	To      string
	Source  domain.ConversionSource
	Webpage string
	// Record appends the conversion to history.
	Record bool
}

// ConversionOutcome is what presentation layers render. Persisted is false
// when the history write failed; the conversion itself is still valid.
type ConversionOutcome struct {
	Detected  *domain.DetectedAmount   `json:"detected,omitempty"`
	Result    domain.ConversionResult  `json:"result"`
	Display   string                   `json:"display"`
	Record    *domain.ConversionRecord `json:"record,omitempty"`
	Persisted bool                     `json:"persisted"`
}

// Detect runs the parser with the user's preferred currencies.
func (s *ConversionService) Detect(text string) []domain.DetectedAmount {
	return s.parser().DetectAll(text)
}

func (s *ConversionService) parser() *parser.Parser {
	return parser.New(parser.WithPreferred(s.settings.PreferredCurrencies()...))
}

// ConvertSelection detects an amount in the selection, converts it to the
// user's target currency and records it. It returns (nil, nil) when the text
// holds no currency amount or when an automatic selection arrives with
// autoDetect off.
func (s *ConversionService) ConvertSelection(ctx context.Context, sel Selection) (out *ConversionOutcome, err error) {
	if key := strings.TrimSpace(sel.IdempotencyKey); key != "" {
		ok, err := s.idem.TryReserve(ctx, "selection:"+key)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("selection %q: %w", key, ErrConflict)
		}
		// A selection that yields no conversion may be retried under the same key.
		defer func() {
			if out != nil {
				return
			}
			if relErr := s.idem.Release(context.WithoutCancel(ctx), "selection:"+key); relErr != nil {
				s.log.Warn("conversion.idempotency_release_failed", zap.String("key", key), zap.Error(relErr))
			}
		}()
	}

	settings := s.settings.GetSettings()
	if sel.Auto && !settings.AutoDetect {
		return nil, nil
	}
	det, ok := s.parser().Detect(sel.Text)
	if !ok {
		return nil, nil
	}
	target := settings.TargetFor(det.CurrencyCode)
	if sel.TargetCurrency != "" {
		target = domain.NormalizeCode(sel.TargetCurrency)
	}
	res, err := s.resolver.Convert(ctx, det.Amount, det.CurrencyCode, target)
	if err != nil {
		return nil, err
	}

	src := sel.Source
	if src == "" {
		src = domain.SourceContextMenu
	}
	conf := det.Confidence
	rec := domain.RecordFromResult(res, src, &conf, lo.EmptyableToPtr(sel.Webpage), s.clock.Now())
	out = &ConversionOutcome{
		Detected: &det,
		Result:   res,
		Display:  res.Display(settings.DecimalPlaces),
	}
	return out, s.record(ctx, out, rec)
}

// Convert converts an explicit amount, optionally recording it.
func (s *ConversionService) Convert(ctx context.Context, req ConvertRequest) (*ConversionOutcome, error) {
	src := req.Source
	if src == "" {
		src = domain.SourceManual
	}
	if !src.Valid() {
		return nil, fmt.Errorf("%w: source %q", ErrBadRequest, src)
	}
	res, err := s.resolver.Convert(ctx, req.Amount, req.From, req.To)
	if err != nil {
		return nil, err
	}
	out := &ConversionOutcome{
		Result:  res,
		Display: res.Display(s.settings.GetSettings().DecimalPlaces),
	}
	if !req.Record {
		return out, nil
	}
	rec := domain.RecordFromResult(res, src, nil, lo.EmptyableToPtr(req.Webpage), s.clock.Now())
	return out, s.record(ctx, out, rec)
}

// RepeatConversion re-runs a stored conversion at the current rate.
func (s *ConversionService) RepeatConversion(ctx context.Context, historyID string) (*ConversionOutcome, error) {
	prev, err := s.history.GetRecord(historyID)
	if err != nil {
		return nil, err
	}
	return s.Convert(ctx, ConvertRequest{
		Amount:  prev.OriginalAmount,
		From:    prev.FromCurrency,
		To:      prev.ToCurrency,
		Source:  domain.SourceHistoryRepeat,
		Webpage: lo.FromPtr(prev.Webpage),
		Record:  true,
	})
}

// ConvertFavorite converts a favorite's amount (1 when it has none). Usage is
// bumped only once the conversion has produced a result.
func (s *ConversionService) ConvertFavorite(ctx context.Context, favoriteID string) (*ConversionOutcome, error) {
	fav, err := s.history.GetFavorite(favoriteID)
	if err != nil {
		return nil, err
	}
	amount := decimal.NewFromInt(1)
	if fav.Amount != nil {
		amount = *fav.Amount
	}
	out, err := s.Convert(ctx, ConvertRequest{
		Amount: amount,
		From:   fav.FromCurrency,
		To:     fav.ToCurrency,
		Source: domain.SourcePopup,
		Record: true,
	})
	if out == nil {
		return nil, err
	}
	_, useErr := s.history.UseFavorite(context.WithoutCancel(ctx), favoriteID)
	if err != nil {
		return out, err
	}
	if errors.Is(useErr, ErrNotFound) {
		// removed while converting; the conversion itself stands
		return out, nil
	}
	return out, useErr
}

// record appends rec to history on a context detached from the caller so a
// dropped request does not abort the write.
func (s *ConversionService) record(ctx context.Context, out *ConversionOutcome, rec domain.ConversionRecord) error {
	saved, err := s.history.AddConversion(context.WithoutCancel(ctx), rec)
	if saved.ID != "" {
		out.Record = &saved
	}
	out.Persisted = err == nil
	if s.observer != nil {
		s.observer.Conversion(string(rec.Source), out.Persisted)
	}
	if err != nil {
		s.log.Warn("conversion.record_failed",
			zap.String("pair", rec.Pair().Key()),
			zap.Bool("kept_in_memory", saved.ID != ""),
			zap.Error(err))
	}
	return err
}
