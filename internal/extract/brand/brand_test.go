package brand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
)

func TestScoreTable(t *testing.T) {
	t.Parallel()

	base := "https://www.salon-ivy.cz"
	require.Equal(t, 41, Score("Salon Ivy", base))
	require.Equal(t, 9, Score("Ivy Beauty Studio s.r.o.", base))
	require.Equal(t, 6, Score("Kadeřnictví", base))
	require.Equal(t, 43, Score("Glow™", base))
	require.Equal(t, 0, Score("", base))
}

func TestIsGeneric(t *testing.T) {
	t.Parallel()

	base := "https://salon-ivy.cz"
	require.True(t, IsGeneric("Úvod", base))
	require.True(t, IsGeneric("Vítejte v našem salonu krásy v centru Prahy", base))
	require.True(t, IsGeneric("", base))
	require.False(t, IsGeneric("Salon Ivy", base))
}

func TestSelectPrefersDomainMatch(t *testing.T) {
	t.Parallel()

	home := crawler.Page{
		URL:   "https://salon-ivy.cz",
		Depth: 0,
		HTML: `<html><head><title>Úvod | Salon Ivy</title>
<script type="application/ld+json">{"@type":"HairSalon","name":"Ivy Beauty Studio s.r.o."}</script></head>
<body><header><a href="/"><img class="logo" src="/logo.png" alt="Salon Ivy"></a></header></body></html>`,
	}
	cenik := crawler.Page{URL: "https://salon-ivy.cz/cenik", Depth: 1, HTML: "<title>Ceník</title>"}

	got := Select(Input{Pages: []crawler.Page{cenik, home}, BaseURL: "https://salon-ivy.cz", OracleName: "Kadeřnictví Praha"})
	require.Equal(t, Candidate{Name: "Salon Ivy", Source: SourceLogo, Score: 41}, got)
}

func TestSelectTiesKeepCollectionOrder(t *testing.T) {
	t.Parallel()

	page := crawler.Page{
		URL:  "https://studio-x1.cz",
		HTML: `<html><head><meta property="og:site_name" content="Bella"><title>Nova</title></head><body></body></html>`,
	}

	got := Select(Input{Pages: []crawler.Page{page}, BaseURL: "https://studio-x1.cz"})
	require.Equal(t, "Bella", got.Name)
	require.Equal(t, SourceSiteName, got.Source)
	require.Equal(t, 18, got.Score)
}

func TestSelectFallsBackToOracle(t *testing.T) {
	t.Parallel()

	got := Select(Input{BaseURL: "https://salon-ivy.cz", OracleName: "Salon Ivy"})
	require.Equal(t, SourceOracle, got.Source)
	require.Empty(t, Select(Input{}).Name)
}
