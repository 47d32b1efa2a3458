package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"fxconvert/internal/domain"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// ExportVersion is written into every export document.
const ExportVersion = "1.0"

type ExportFormat string

const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
	FormatYAML ExportFormat = "yaml"
)

func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(s); f {
	case FormatJSON, FormatCSV, FormatYAML:
		return f, nil
	case "":
		return FormatJSON, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", ErrBadRequest, s)
}

// ContentType is the MIME type of an export in this format.
func (f ExportFormat) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv; charset=utf-8"
	case FormatYAML:
		return "application/yaml"
	}
	return "application/json"
}

// ExportDocument is the full-state export.
type ExportDocument struct {
	History    []domain.ConversionRecord   `json:"history"`
	Favorites  []domain.FavoritePair       `json:"favorites"`
	Stats      domain.ConversionStatistics `json:"stats"`
	ExportDate string                      `json:"exportDate"`
	Version    string                      `json:"version"`
}

var csvHeader = []string{
	"Date", "Time", "From Currency", "To Currency", "Original Amount",
	"Converted Amount", "Exchange Rate", "Source", "Confidence", "Webpage",
}

func (h *HistoryStore) snapshot() ExportDocument {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return ExportDocument{
		History:    append([]domain.ConversionRecord{}, h.history...),
		Favorites:  append([]domain.FavoritePair{}, h.favorites...),
		Stats:      h.stats.WithToday(h.clock.Now().UTC().Format(domain.DateLayout)),
		ExportDate: h.clock.Now().UTC().Format(time.RFC3339),
		Version:    ExportVersion,
	}
}

// ExportHistory serialises the store. CSV carries the history only.
func (h *HistoryStore) ExportHistory(format ExportFormat) ([]byte, error) {
	doc := h.snapshot()
	switch format {
	case FormatJSON, "":
		return json.MarshalIndent(doc, "", "  ")
	case FormatYAML:
		return exportYAML(doc)
	case FormatCSV:
		return exportCSV(doc.History)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", ErrBadRequest, format)
}

func exportCSV(history []domain.ConversionRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, rec := range history {
		conf := ""
		if rec.Confidence != nil {
			conf = strconv.FormatFloat(*rec.Confidence, 'f', -1, 64)
		}
		row := []string{
			rec.Date,
			rec.Time().Format(time.TimeOnly),
			rec.FromCurrency,
			rec.ToCurrency,
			rec.OriginalAmount.String(),
			rec.ConvertedAmount.String(),
			rec.ExchangeRate.String(),
			string(rec.Source),
			conf,
			lo.FromPtr(rec.Webpage),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}

// exportYAML goes through the JSON encoding so field names and decimal
// literals match the JSON export exactly.
func exportYAML(doc ExportDocument) ([]byte, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var node yaml.Node
	if err := yaml.Unmarshal(raw, &node); err != nil {
		return nil, err
	}
	blockStyle(&node)
	return yaml.Marshal(&node)
}

func blockStyle(n *yaml.Node) {
	n.Style &^= yaml.FlowStyle | yaml.DoubleQuotedStyle
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// DecodeExport reads a JSON or YAML export document.
func DecodeExport(data []byte) (ExportDocument, error) {
	var doc ExportDocument
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return doc, fmt.Errorf("%w: empty document", domain.ErrInvalidImport)
	}
	if trimmed[0] != '{' {
		var generic any
		if err := yaml.Unmarshal(trimmed, &generic); err != nil {
			return doc, fmt.Errorf("%w: %w", domain.ErrInvalidImport, err)
		}
		raw, err := json.Marshal(generic)
		if err != nil {
			return doc, fmt.Errorf("%w: %w", domain.ErrInvalidImport, err)
		}
		trimmed = raw
	}
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return doc, fmt.Errorf("%w: %w", domain.ErrInvalidImport, err)
	}
	doc.Stats.Normalize()
	return doc, nil
}

type ImportMode string

const (
	ImportReplace ImportMode = "replace"
	ImportAppend  ImportMode = "append"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch m := ImportMode(s); m {
	case ImportReplace, ImportAppend:
		return m, nil
	case "":
		return ImportAppend, nil
	}
	return "", fmt.Errorf("%w: unknown import mode %q", ErrBadRequest, s)
}

type ImportResult struct {
	Mode           ImportMode `json:"mode"`
	HistoryAdded   int        `json:"historyAdded"`
	HistorySkipped int        `json:"historySkipped"`
	FavoritesAdded int        `json:"favoritesAdded"`
}

// ImportHistory merges an export document into the store.
//
// replace drops current history and favorites, adopts the imported ones and
// adds the imported statistics to the current ones. append keeps existing
// records on id collisions and folds only new records into the statistics.
// In both modes the merged log is re-sorted and trimmed.
func (h *HistoryStore) ImportHistory(ctx context.Context, data []byte, mode ImportMode) (ImportResult, error) {
	doc, err := DecodeExport(data)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Mode: mode}
	records := make([]domain.ConversionRecord, 0, len(doc.History))
	for _, rec := range doc.History {
		if validateRecord(rec) != nil || rec.Timestamp <= 0 {
			res.HistorySkipped++
			continue
		}
		if rec.ID == "" {
			rec.ID = h.idgen.NewID()
		}
		if rec.Source == "" {
			rec.Source = domain.SourceManual
		}
		rec.Date = domain.DateOf(rec.Timestamp)
		records = append(records, rec)
	}
	records = lo.UniqBy(records, func(r domain.ConversionRecord) string { return r.ID })

	h.mu.Lock()
	defer h.mu.Unlock()
	switch mode {
	case ImportReplace:
		imported := doc.Stats
		if !imported.ConsistentWith(records) {
			imported = domain.RebuildStatistics(records)
		}
		h.history = h.trim(sortRecent(records))
		h.favorites = nil
		res.FavoritesAdded = h.mergeFavorites(doc.Favorites)
		h.stats.Merge(imported)
		res.HistoryAdded = len(records)
	case ImportAppend:
		seen := lo.SliceToMap(h.history, func(r domain.ConversionRecord) (string, struct{}) { return r.ID, struct{}{} })
		fresh := lo.Filter(records, func(r domain.ConversionRecord, _ int) bool {
			_, ok := seen[r.ID]
			return !ok
		})
		res.HistorySkipped += len(records) - len(fresh)
		fresh = sortRecent(fresh)
		for i := len(fresh) - 1; i >= 0; i-- {
			h.stats.Apply(fresh[i])
		}
		h.history = h.trim(sortRecent(append(append([]domain.ConversionRecord{}, h.history...), fresh...)))
		res.FavoritesAdded = h.mergeFavorites(doc.Favorites)
		res.HistoryAdded = len(fresh)
	default:
		return ImportResult{}, fmt.Errorf("%w: unknown import mode %q", ErrBadRequest, mode)
	}
	return res, h.persist(ctx, KeyConversionHistory, KeyConversionStats, KeyFavoritePairs)
}

// mergeFavorites adds favorites that collide with none by id or triple, up to
// the cap. Callers hold h.mu.
func (h *HistoryStore) mergeFavorites(in []domain.FavoritePair) int {
	added := 0
	for _, f := range in {
		if len(h.favorites) >= h.maxFavorites {
			break
		}
		pair := domain.NewPair(f.FromCurrency, f.ToCurrency)
		if pair.Validate() != nil {
			continue
		}
		f.FromCurrency, f.ToCurrency = pair.From, pair.To
		if lo.ContainsBy(h.favorites, func(e domain.FavoritePair) bool {
			return (f.ID != "" && e.ID == f.ID) || e.SameTriple(f.FromCurrency, f.ToCurrency, f.Amount)
		}) {
			continue
		}
		if f.ID == "" {
			f.ID = h.idgen.NewID()
		}
		if f.Label == "" {
			f.Label = domain.DefaultFavoriteLabel(f.FromCurrency, f.ToCurrency, f.Amount)
		}
		h.favorites = append(h.favorites, f)
		added++
	}
	return added
}
