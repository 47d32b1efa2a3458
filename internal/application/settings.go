package application

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"

	"fxconvert/internal/domain"

	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Setting keys accepted by UpdateSetting.
const (
	SettingBaseCurrency         = "baseCurrency"
	SettingSecondaryCurrency    = "secondaryCurrency"
	SettingAdditionalCurrencies = "additionalCurrencies"
	SettingShowConfidence       = "showConfidence"
	SettingAutoDetect           = "autoDetect"
	SettingShowNotifications    = "showNotifications"
	SettingDecimalPlaces        = "decimalPlaces"
	SettingTheme                = "theme"

	maxDecimalPlaces = 8
)

// SettingKeys lists every accepted key.
var SettingKeys = []string{
	SettingBaseCurrency, SettingSecondaryCurrency, SettingAdditionalCurrencies,
	SettingShowConfidence, SettingAutoDetect, SettingShowNotifications,
	SettingDecimalPlaces, SettingTheme,
}

type SettingsStore struct {
	kv  KeyValueStore
	log *zap.Logger

	mu       sync.RWMutex
	settings domain.UserSettings
}

func NewSettingsStore(kv KeyValueStore, log *zap.Logger) *SettingsStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &SettingsStore{kv: kv, log: log, settings: domain.DefaultSettings()}
}

// Load reads the persisted settings. Missing fields keep their defaults; a
// document that fails validation is replaced by the defaults.
func (s *SettingsStore) Load(ctx context.Context) error {
	vals, err := s.kv.Get(ctx, KeyUserSettings)
	if err != nil {
		s.log.Error("settings.load_failed", zap.Error(err))
		return fmt.Errorf("%w: load settings: %w", domain.ErrPersistence, err)
	}
	st := domain.DefaultSettings()
	if raw, ok := vals[KeyUserSettings]; ok {
		if err := json.Unmarshal(raw, &st); err != nil {
			s.log.Warn("settings.decode_failed", zap.Error(err))
			st = domain.DefaultSettings()
		} else if err := validateSettings(&st); err != nil {
			s.log.Warn("settings.invalid", zap.Error(err))
			st = domain.DefaultSettings()
		}
	}
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
	return nil
}

func (s *SettingsStore) GetSettings() domain.UserSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.Clone()
}

func (s *SettingsStore) PreferredCurrencies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings.PreferredCurrencies()
}

// UpdateSetting validates and applies one key. value may be a JSON-decoded
// value or its string form. Setting the base currency to the current
// secondary (or the reverse) swaps the two.
func (s *SettingsStore) UpdateSetting(ctx context.Context, key string, value any) (domain.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.settings.Clone()
	if err := applySetting(&next, key, value); err != nil {
		return s.settings.Clone(), err
	}
	if err := validateSettings(&next); err != nil {
		return s.settings.Clone(), err
	}
	s.settings = next
	return next.Clone(), s.persist(ctx)
}

func (s *SettingsStore) ResetToDefaults(ctx context.Context) (domain.UserSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = domain.DefaultSettings()
	return s.settings.Clone(), s.persist(ctx)
}

func (s *SettingsStore) persist(ctx context.Context) error {
	raw, err := json.Marshal(s.settings)
	if err != nil {
		return fmt.Errorf("%w: encode settings: %w", domain.ErrPersistence, err)
	}
	if err := s.kv.Set(ctx, map[string][]byte{KeyUserSettings: raw}); err != nil {
		s.log.Error("settings.persist_failed", zap.Error(err))
		return fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}
	return nil
}

func applySetting(st *domain.UserSettings, key string, value any) error {
	switch key {
	case SettingBaseCurrency:
		code, err := currencyValue(key, value)
		if err != nil {
			return err
		}
		if code == st.SecondaryCurrency {
			st.SecondaryCurrency = st.BaseCurrency
		}
		st.BaseCurrency = code
	case SettingSecondaryCurrency:
		code, err := currencyValue(key, value)
		if err != nil {
			return err
		}
		if code == st.BaseCurrency {
			st.BaseCurrency = st.SecondaryCurrency
		}
		st.SecondaryCurrency = code
	case SettingAdditionalCurrencies:
		codes, err := listValue(key, value)
		if err != nil {
			return err
		}
		st.AdditionalCurrencies = codes
	case SettingShowConfidence:
		return boolValue(key, value, &st.ShowConfidence)
	case SettingAutoDetect:
		return boolValue(key, value, &st.AutoDetect)
	case SettingShowNotifications:
		return boolValue(key, value, &st.ShowNotifications)
	case SettingDecimalPlaces:
		places, err := placesValue(key, value)
		if err != nil {
			return err
		}
		st.DecimalPlaces = places
	case SettingTheme:
		str, ok := value.(string)
		if !ok {
			return invalidSetting(key, value)
		}
		st.Theme = domain.Theme(strings.ToLower(strings.TrimSpace(str)))
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownSetting, key)
	}
	return nil
}

// validateSettings checks st and normalises the additional currency list.
func validateSettings(st *domain.UserSettings) error {
	st.BaseCurrency = domain.NormalizeCode(st.BaseCurrency)
	st.SecondaryCurrency = domain.NormalizeCode(st.SecondaryCurrency)
	if !domain.IsKnownCurrency(st.BaseCurrency) {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidSetting, SettingBaseCurrency, domain.ErrUnknownCurrency)
	}
	if !domain.IsKnownCurrency(st.SecondaryCurrency) {
		return fmt.Errorf("%w: %s: %w", domain.ErrInvalidSetting, SettingSecondaryCurrency, domain.ErrUnknownCurrency)
	}
	if st.BaseCurrency == st.SecondaryCurrency {
		return fmt.Errorf("%w: secondary currency must differ from base", domain.ErrInvalidSetting)
	}
	codes := lo.Map(st.AdditionalCurrencies, func(c string, _ int) string { return domain.NormalizeCode(c) })
	for _, c := range codes {
		if !domain.IsKnownCurrency(c) {
			return fmt.Errorf("%w: %s: %q: %w", domain.ErrInvalidSetting, SettingAdditionalCurrencies, c, domain.ErrUnknownCurrency)
		}
	}
	codes = lo.Without(lo.Uniq(codes), st.BaseCurrency)
	if len(codes) > domain.MaxAdditionalCurrencies {
		return fmt.Errorf("%w: at most %d additional currencies", domain.ErrInvalidSetting, domain.MaxAdditionalCurrencies)
	}
	st.AdditionalCurrencies = codes
	if st.DecimalPlaces != nil && (*st.DecimalPlaces < 0 || *st.DecimalPlaces > maxDecimalPlaces) {
		return fmt.Errorf("%w: %s must be between 0 and %d", domain.ErrInvalidSetting, SettingDecimalPlaces, maxDecimalPlaces)
	}
	switch st.Theme {
	case domain.ThemeAuto, domain.ThemeLight, domain.ThemeDark:
	case "":
		st.Theme = domain.ThemeAuto
	default:
		return fmt.Errorf("%w: theme %q", domain.ErrInvalidSetting, st.Theme)
	}
	return nil
}

func invalidSetting(key string, value any) error {
	return fmt.Errorf("%w: %s=%v", domain.ErrInvalidSetting, key, value)
}

func currencyValue(key string, value any) (string, error) {
	str, ok := value.(string)
	if !ok {
		return "", invalidSetting(key, value)
	}
	code := domain.NormalizeCode(str)
	if !domain.IsKnownCurrency(code) {
		return "", fmt.Errorf("%w: %s: %q: %w", domain.ErrInvalidSetting, key, str, domain.ErrUnknownCurrency)
	}
	return code, nil
}

func listValue(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalidSetting(key, value)
			}
			out = append(out, s)
		}
		return out, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}, nil
		}
		return lo.Map(strings.Split(v, ","), func(s string, _ int) string { return strings.TrimSpace(s) }), nil
	}
	return nil, invalidSetting(key, value)
}

func boolValue(key string, value any, dst *bool) error {
	switch v := value.(type) {
	case bool:
		*dst = v
		return nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return invalidSetting(key, value)
		}
		*dst = b
		return nil
	}
	return invalidSetting(key, value)
}

// placesValue accepts nil (currency convention), integers, integral floats
// and their string forms.
func placesValue(key string, value any) (*int, error) {
	var n int
	switch v := value.(type) {
	case nil:
		return nil, nil
	case int:
		n = v
	case float64:
		if v != math.Trunc(v) {
			return nil, invalidSetting(key, value)
		}
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, invalidSetting(key, value)
		}
		n = int(i)
	case string:
		s := strings.TrimSpace(v)
		if s == "" || strings.EqualFold(s, "auto") || s == "null" {
			return nil, nil
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			return nil, invalidSetting(key, value)
		}
		n = i
	default:
		return nil, invalidSetting(key, value)
	}
	return &n, nil
}
