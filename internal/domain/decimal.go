package domain

import "github.com/shopspring/decimal"

func init() {
	// Export documents carry plain JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}
