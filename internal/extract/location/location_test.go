package location

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
	"github.com/JakeFAU/receptionist-onboarding/internal/profile"
)

func TestOneLocationPerAddressWithProviders(t *testing.T) {
	t.Parallel()

	pages := []crawler.Page{
		{
			URL:              "https://salon.cz/pobocky/praha",
			HTML:             "<html><body><h2>Salon Praha</h2></body></html>",
			VisibleText:      "Salon Praha\nVinohradská 12, 120 00 Praha 2",
			BookingProviders: []string{"bookio"},
		},
		{
			URL:              "https://salon.cz/pobocky/brno",
			HTML:             "<html><body><h2>Salon Brno</h2></body></html>",
			VisibleText:      "Salon Brno\nKobližná 5, 602 00 Brno",
			BookingProviders: []string{"reservio"},
		},
	}

	locs := Resolve(Input{Pages: pages, BookingProviders: []string{"bookio", "reservio"}})
	require.Equal(t, []profile.Location{
		{Name: "Salon Praha", Address: "Vinohradská 12, 120 00 Praha 2", BookingProviders: []string{"bookio"}},
		{Name: "Salon Brno", Address: "Kobližná 5, 602 00 Brno", BookingProviders: []string{"reservio"}},
	}, locs)
}

func TestCanonicalAddressPerCity(t *testing.T) {
	t.Parallel()

	text := "Korunní 5, 120 00 Praha\nVinohradská 12, 120 00 Praha 2\nKobližná 5, 602 00 Brno"
	pages := []crawler.Page{{URL: "https://salon.cz", VisibleText: text}}

	locs := Resolve(Input{Pages: pages})
	require.Len(t, locs, 2)
	require.Equal(t, "Vinohradská 12, 120 00 Praha 2", locs[0].Address)
	require.Equal(t, "Praha", locs[0].Name)
	require.Equal(t, "Kobližná 5, 602 00 Brno", locs[1].Address)

	// The profile address is the base location for its city.
	locs = Resolve(Input{Pages: pages, ProfileAddress: "Korunní 5, 120 00 Praha"})
	require.Len(t, locs, 2)
	require.Equal(t, "Korunní 5, 120 00 Praha", locs[0].Address)
}

func TestCappedAtFive(t *testing.T) {
	t.Parallel()

	text := "Vinohradská 12, 120 00 Praha\n" +
		"Kobližná 5, 602 00 Brno\n" +
		"Nádražní 10, 702 00 Ostrava\n" +
		"Americká 3, 301 00 Plzeň\n" +
		"Pražská 8, 460 01 Liberec\n" +
		"Horní náměstí 1, 779 00 Olomouc\n" +
		"Dlouhá 4, 760 01 Zlín"

	locs := Resolve(Input{Pages: []crawler.Page{{URL: "https://salon.cz", VisibleText: text}}})
	require.Len(t, locs, 5)
	require.Equal(t, "Praha", locs[0].Name)
	require.Equal(t, "Liberec", locs[4].Name)
}

func TestMultiCitySummaryIsNotAnAddress(t *testing.T) {
	t.Parallel()

	require.Empty(t, Resolve(Input{ProfileAddress: "Praha, Brno"}))

	pages := []crawler.Page{
		{URL: "https://salon.cz/praha"},
		{URL: "https://salon.cz/brno"},
	}
	locs := Resolve(Input{Pages: pages, ProfileAddress: "Praha, Brno"})
	require.Equal(t, []profile.Location{{Name: "Praha"}, {Name: "Brno"}}, locs)
}

func TestSingleAddressSharedByNames(t *testing.T) {
	t.Parallel()

	pages := []crawler.Page{
		{URL: "https://salon.cz", VisibleText: "Vinohradská 12, 120 00 Praha 2"},
		{URL: "https://salon.cz/salon-praha", HTML: "<h1>Salon Praha</h1>"},
		{URL: "https://salon.cz/salon-brno", HTML: "<h1>Salon Brno</h1>"},
	}

	locs := Resolve(Input{Pages: pages})
	require.Equal(t, []profile.Location{
		{Name: "Salon Praha", Address: "Vinohradská 12, 120 00 Praha 2"},
		{Name: "Salon Brno", Address: "Vinohradská 12, 120 00 Praha 2"},
	}, locs)
}

func TestJunkFilteredAndSingleLocationGetsAllProviders(t *testing.T) {
	t.Parallel()

	pages := []crawler.Page{{
		URL:              "https://salon.cz",
		VisibleText:      "Dárkový poukaz 500 Kč Praha\nKobližná 5, 602 00 Brno",
		BookingProviders: []string{"bookio"},
	}}

	locs := Resolve(Input{Pages: pages, BookingProviders: []string{"reservio"}})
	require.Equal(t, []profile.Location{{
		Name:             "Brno",
		Address:          "Kobližná 5, 602 00 Brno",
		BookingProviders: []string{"bookio", "reservio"},
	}}, locs)
}
