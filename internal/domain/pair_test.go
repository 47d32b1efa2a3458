package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParsePair(t *testing.T) {
	t.Parallel()
	cases := []struct {
		in      string
		want    Pair
		wantErr bool
	}{
		{in: "USD/EUR", want: Pair{From: "USD", To: "EUR"}},
		{in: "usd→jpy", want: Pair{From: "USD", To: "JPY"}},
		{in: "GBP -> CHF", want: Pair{From: "GBP", To: "CHF"}},
		{in: "USD/XXX", wantErr: true},
		{in: "USDEUR", wantErr: true},
	}
	for _, c := range cases {
		got, err := ParsePair(c.in)
		if c.wantErr {
			require.Error(t, err, c.in)
			continue
		}
		require.NoError(t, err, c.in)
		require.Equal(t, c.want, got)
	}
}

func TestRoundForDisplay(t *testing.T) {
	t.Parallel()
	v := decimal.RequireFromString("1234.56789")
	require.Equal(t, "1235", RoundForDisplay("JPY", v).String())
	require.Equal(t, "1234.57", RoundForDisplay("USD", v).String())
	require.Equal(t, "1234.568", RoundForDisplay("KWD", v).String())
	require.Equal(t, "85.50", FormatAmount("EUR", decimal.RequireFromString("85.5"), nil))
	four := 4
	require.Equal(t, "85.5000", FormatAmount("EUR", decimal.RequireFromString("85.5"), &four))
}

func TestFavoriteSameTriple(t *testing.T) {
	t.Parallel()
	ten := decimal.NewFromInt(10)
	tenAgain := decimal.RequireFromString("10.00")
	f := FavoritePair{FromCurrency: "USD", ToCurrency: "EUR", Amount: &ten}
	require.True(t, f.SameTriple("USD", "EUR", &tenAgain))
	require.False(t, f.SameTriple("USD", "EUR", nil))
	require.False(t, f.SameTriple("EUR", "USD", &ten))
	require.True(t, FavoritePair{FromCurrency: "USD", ToCurrency: "EUR"}.SameTriple("USD", "EUR", nil))
}
