package locale

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCitiesIn(t *testing.T) {
	t.Parallel()

	l := Default()
	require.Equal(t, []string{"Brno", "Praha"}, l.CitiesIn("Pobočky v Brně a v Praze 2"))
	require.Equal(t, []string{"Praha"}, l.CitiesIn("PRAHA, Vinohradská 12"))
	require.Empty(t, l.CitiesIn("Mostecká 5"))
	require.Equal(t, "Most", l.CityOf("Náměstí 3, 434 01 Most"))
	require.Equal(t, "České Budějovice", l.CityOf("Lannova 7, Ceske Budejovice"))
}

func TestCustomCities(t *testing.T) {
	t.Parallel()

	l := &Locale{Cities: []string{"Bratislava"}}
	require.Equal(t, []string{"Bratislava"}, l.CitiesIn("Obchodná 4, Bratislava"))
}

func TestCountHelpers(t *testing.T) {
	t.Parallel()

	l := Default()
	require.True(t, ContainsAny("Sídlo společnosti: Brno", l.LegalKeywords))
	require.Equal(t, 2, CountWords("Kadeřnictví Beauty Praha", l.GenericIndustryWords))
	require.Equal(t, 0, CountWords("Salonek", []string{"salon"}))
}
