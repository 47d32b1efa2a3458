package domain

import "github.com/samber/lo"

// MaxAdditionalCurrencies caps the extra currencies a user can track.
const MaxAdditionalCurrencies = 10

type Theme string

const (
	ThemeAuto  Theme = "auto"
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// UserSettings is the per-installation preference singleton.
type UserSettings struct {
	BaseCurrency         string   `json:"baseCurrency"`
	SecondaryCurrency    string   `json:"secondaryCurrency"`
	AdditionalCurrencies []string `json:"additionalCurrencies"`
	ShowConfidence       bool     `json:"showConfidence"`
	AutoDetect           bool     `json:"autoDetect"`
	ShowNotifications    bool     `json:"showNotifications"`
	DecimalPlaces        *int     `json:"decimalPlaces"`
	Theme                Theme    `json:"theme"`
}

func DefaultSettings() UserSettings {
	return UserSettings{
		BaseCurrency:         "USD",
		SecondaryCurrency:    "EUR",
		AdditionalCurrencies: []string{},
		ShowConfidence:       true,
		AutoDetect:           true,
		ShowNotifications:    true,
		Theme:                ThemeAuto,
	}
}

// PreferredCurrencies lists base, secondary and additional codes in priority
// order without duplicates.
func (s UserSettings) PreferredCurrencies() []string {
	codes := make([]string, 0, 2+len(s.AdditionalCurrencies))
	for _, c := range append([]string{s.BaseCurrency, s.SecondaryCurrency}, s.AdditionalCurrencies...) {
		if c != "" {
			codes = append(codes, c)
		}
	}
	return lo.Uniq(codes)
}

// TargetFor picks the conversion target for an amount detected in code.
func (s UserSettings) TargetFor(code string) string {
	if code == s.BaseCurrency && s.SecondaryCurrency != "" {
		return s.SecondaryCurrency
	}
	return s.BaseCurrency
}

func (s UserSettings) Clone() UserSettings {
	out := s
	out.AdditionalCurrencies = append([]string{}, s.AdditionalCurrencies...)
	if s.DecimalPlaces != nil {
		p := *s.DecimalPlaces
		out.DecimalPlaces = &p
	}
	return out
}
