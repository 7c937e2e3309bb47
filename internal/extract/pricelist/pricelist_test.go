package pricelist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

func TestNoopOutsidePriceList(t *testing.T) {
	t.Parallel()

	html := `<ul class="cenik"><li><h3>Střih</h3> <span>450 Kč</span></li></ul>`
	require.Nil(t, ExtractIfPriceListPage("https://salon.cz/o-nas", html))
	require.True(t, IsPriceListURL("https://salon.cz/cen%C3%ADk"))
	require.True(t, IsPriceListURL("https://salon.cz/en/price-list"))
}

func TestListLayout(t *testing.T) {
	t.Parallel()

	html := `<div class="cenik"><ul>
<li><h3>Dámský střih</h3> <span>60 min</span> <span class="price">450 Kč</span></li>
<li><h3>Barvení</h3> <span>1,5 h</span> <span class="price">800–1 200 Kč</span></li>
<li><h3>Pánské služby</h3></li>
<li><strong>Foukaná</strong> 350,-</li>
</ul></div>`

	got := ExtractIfPriceListPage("https://salon.cz/cenik", html)
	require.Equal(t, []profile.Service{
		{Name: "Dámský střih", Slug: "damsky-strih", DurationMinutes: profile.IntPtr(60), PriceFrom: profile.FloatPtr(450)},
		{Name: "Barvení", Slug: "barveni", DurationMinutes: profile.IntPtr(90), PriceFrom: profile.FloatPtr(800), PriceTo: profile.FloatPtr(1200)},
		{Name: "Foukaná", Slug: "foukana", PriceFrom: profile.FloatPtr(350)},
	}, got)
}

func TestTableLayout(t *testing.T) {
	t.Parallel()

	html := `<table>
<tr><th>Služba</th><th>Délka</th><th>Cena</th></tr>
<tr><td>Manikúra</td><td>45 min</td><td>500 Kč</td></tr>
<tr><td>Gelové nehty</td><td>2 hodiny</td><td>od 900 Kč</td></tr>
</table>`

	got := ExtractIfPriceListPage("https://salon.cz/pricing", html)
	require.Len(t, got, 2)
	require.Equal(t, "Manikúra", got[0].Name)
	require.Equal(t, 45, *got[0].DurationMinutes)
	require.Equal(t, 500.0, *got[0].PriceFrom)
	require.Equal(t, "Gelové nehty", got[1].Name)
	require.Equal(t, 120, *got[1].DurationMinutes)
	require.Equal(t, 900.0, *got[1].PriceFrom)
	require.Nil(t, got[1].PriceTo)
}

func TestPriceInStrongSlot(t *testing.T) {
	t.Parallel()

	got := ExtractIfPriceListPage("https://salon.cz/cenik", `<ul><li>Střih <strong>450 Kč</strong></li></ul>`)
	require.Len(t, got, 1)
	require.Equal(t, "Střih", got[0].Name)
	require.Equal(t, 450.0, *got[0].PriceFrom)
}

func TestParsePrice(t *testing.T) {
	t.Parallel()

	from, to := ParsePrice("1 200 Kč")
	require.Equal(t, 1200.0, *from)
	require.Nil(t, to)

	from, to = ParsePrice("300 - 500 CZK")
	require.Equal(t, 300.0, *from)
	require.Equal(t, 500.0, *to)

	from, _ = ParsePrice("49,90 €")
	require.InDelta(t, 49.9, *from, 0.001)

	from, to = ParsePrice("12.50 €")
	require.InDelta(t, 12.5, *from, 0.001)
	require.Nil(t, to)

	from, _ = ParsePrice("1.200 Kč")
	require.Equal(t, 1200.0, *from)

	from, _ = ParsePrice("450,50 Kč")
	require.InDelta(t, 450.5, *from, 0.001)

	from, to = ParsePrice("9.90 - 14.50 EUR")
	require.InDelta(t, 9.9, *from, 0.001)
	require.InDelta(t, 14.5, *to, 0.001)

	from, to = ParsePrice("zdarma")
	require.Nil(t, from)
	require.Nil(t, to)
}

func TestParseDuration(t *testing.T) {
	t.Parallel()

	require.Equal(t, 30, *ParseDuration("30 minut"))
	require.Equal(t, 45, *ParseDuration("0.75 h"))
	require.Equal(t, 60, *ParseDuration("60-90 min"))
	require.Nil(t, ParseDuration("2 hlavy"))
	require.Nil(t, ParseDuration("bez údaje"))
}
