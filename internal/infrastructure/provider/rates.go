package provider

import (
	"fmt"
	"net/url"
	"time"

	"fxconvert/internal/domain"

	"github.com/shopspring/decimal"
)

// Provider ids, also used as keyring entries and PROVIDERS values.
const (
	IDExchangeRatesAPI = "exchangeratesapi"
	IDFrankfurter      = "frankfurter"
	IDOpenER           = "openerapi"
	IDCurrencyAPI      = "currencyapi"
	IDFake             = "fake"
)

// crossRate derives from→to out of a table quoted against base.
// lookup must report false for codes the table does not carry.
func crossRate(id, base, from, to string, lookup func(code string) (decimal.Decimal, bool)) (decimal.Decimal, error) {
	baseTo := func(c string) (decimal.Decimal, error) {
		if c == base {
			return decimal.NewFromInt(1), nil
		}
		v, ok := lookup(c)
		if !ok {
			return decimal.Zero, fmt.Errorf("%s: missing rate for %s: %w", id, c, domain.ErrProviderFailure)
		}
		if !v.IsPositive() {
			return decimal.Zero, fmt.Errorf("%s: non-positive rate for %s: %w", id, c, domain.ErrProviderFailure)
		}
		return v, nil
	}
	baseToFrom, err := baseTo(from)
	if err != nil {
		return decimal.Zero, err
	}
	baseToTarget, err := baseTo(to)
	if err != nil {
		return decimal.Zero, err
	}
	if from == base {
		return baseToTarget, nil
	}
	return baseToTarget.DivRound(baseToFrom, 12), nil
}

func endpoint(base, path string, query url.Values) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	u.Path = path
	u.RawQuery = query.Encode()
	return u.String(), nil
}

func unixOrNow(sec int64) time.Time {
	if sec > 0 {
		return time.Unix(sec, 0).UTC()
	}
	return time.Now().UTC()
}

func failure(id string, err error) error {
	return fmt.Errorf("%s: %w: %w", id, domain.ErrProviderFailure, err)
}
