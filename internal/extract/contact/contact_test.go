package contact

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/receptionist-onboarding/internal/crawler"
)

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"608 744 774":       "+420608744774",
		"+420 608 744 774":  "+420608744774",
		"00420608744774":    "+420608744774",
		"tel:420608744774":  "+420608744774",
		"+49 30 1234 5678":  "+493012345678",
		"12345":             "",
		"":                  "",
		"608 744 774 12 34": "",
	}
	for in, want := range cases {
		require.Equal(t, want, NormalizePhone(in, "420"), in)
	}
}

func TestCleanEmail(t *testing.T) {
	t.Parallel()

	require.Equal(t, "info@salon.cz", CleanEmail("mailto:Info@Salon.cz?subject=Rezervace", DefaultPlaceholderDomains))
	require.Empty(t, CleanEmail("logo@2x.png", DefaultPlaceholderDomains))
	require.Empty(t, CleanEmail("jan@example.com", DefaultPlaceholderDomains))
	require.Empty(t, CleanEmail("not an email", DefaultPlaceholderDomains))
}

func TestFindEmailsDeobfuscates(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"info@salon.cz"}, findEmails("pište na info (at) salon (dot) cz"))
}

func TestStructuredDataWins(t *testing.T) {
	t.Parallel()

	html := `<html><head><script type="application/ld+json">
{"@type":"HairSalon","name":"Salon Ivy","telephone":"+420 777 111 222","email":"recepce@salon-ivy.cz",
 "address":{"@type":"PostalAddress","streetAddress":"Vinohradská 12","postalCode":"120 00","addressLocality":"Praha 2"}}
</script></head><body>
<a href="tel:608744774">Volejte</a><a href="mailto:jiny@salon-ivy.cz">E-mail</a>
<p>Tel: 605 000 000</p></body></html>`

	r := ExtractFromPage(html, "https://salon-ivy.cz/")
	require.Equal(t, "+420777111222", r.Phone)
	require.Equal(t, "recepce@salon-ivy.cz", r.Email)
	require.Equal(t, "Vinohradská 12, 120 00 Praha 2", r.Address)
	require.Equal(t, StrategyStructured, r.Sources[KindPhone].Strategy)
	require.Equal(t, StrategyStructured, r.Sources[KindAddress].Strategy)
	require.Equal(t, "https://salon-ivy.cz/", r.Sources[KindEmail].SourceURL)
}

func TestLinksBeatText(t *testing.T) {
	t.Parallel()

	html := `<html><body>
<a href="tel:+420 608 744 774">zavolat</a>
<a href="mailto:info@salon.cz">napište nám</a>
<p>Tel: 605 111 222, e-mail: jina@salon.cz</p></body></html>`

	r := ExtractFromPage(html, "https://salon.cz/kontakt")
	require.Equal(t, "+420608744774", r.Phone)
	require.Equal(t, StrategyLink, r.Sources[KindPhone].Strategy)
	require.Equal(t, "info@salon.cz", r.Email)
	require.Equal(t, StrategyLink, r.Sources[KindEmail].Strategy)
}

func TestLocalPhoneFromText(t *testing.T) {
	t.Parallel()

	r := ExtractFromPage(`<html><body><p>Číslo účtu: 123456789/0100</p><p>Rezervace na tel. 608 744 774</p></body></html>`, "")
	require.Equal(t, "+420608744774", r.Phone)
	require.Equal(t, StrategyText, r.Sources[KindPhone].Strategy)
}

func TestBankDetailsAreNotPhones(t *testing.T) {
	t.Parallel()

	r := ExtractFromPage(`<html><body><p>Bankovní spojení: 123 456 789/0100</p><p>Banka: Fio, 2100 456 789</p></body></html>`, "")
	require.Empty(t, r.Phone)

	r = ExtractFromPage(`<html><body><p>Bankovní spojení: 123 456 789/0100</p><p>Volejte 608 744 774</p></body></html>`, "")
	require.Equal(t, "+420608744774", r.Phone)
}

func TestLabelledAddressFromText(t *testing.T) {
	t.Parallel()

	html := `<html><body><p>Adresa:</p><p>Vinohradská 12</p><p>120 00 Praha 2</p></body></html>`
	r := ExtractFromPage(html, "https://salon.cz/kontakt")
	require.Equal(t, "Vinohradská 12, 120 00 Praha 2", r.Address)
	require.Equal(t, StrategyText, r.Sources[KindAddress].Strategy)
	require.GreaterOrEqual(t, r.Sources[KindAddress].Score, 4)
	require.False(t, r.AddressIsSummary())
}

func TestFindAddresses(t *testing.T) {
	t.Parallel()

	text := "Vinohradská 12\n120 00 Praha 2\nKobližná 5, 602 00 Brno"
	require.Equal(t, []string{"Vinohradská 12, 120 00 Praha 2", "Kobližná 5, 602 00 Brno"}, FindAddresses(text))
	require.Equal(t, "vinohradska 12 120 00 praha 2", AddressKey("Vinohradská 12, 120 00 Praha 2"))
}

func TestMultiCitySummary(t *testing.T) {
	t.Parallel()

	empty := "<html><body></body></html>"
	pages := []crawler.Page{
		{URL: "https://salon.cz", HTML: empty, VisibleText: "Naše salony najdete v Praze i v Brně."},
		{URL: "https://salon.cz/kontakt", HTML: empty, VisibleText: "Telefon: 608 744 774\nE-mail: info@salon.cz"},
	}

	r := ExtractFromPages(pages)
	require.Equal(t, "Praha, Brno", r.Address)
	require.True(t, r.AddressIsSummary())
	require.Equal(t, "+420608744774", r.Phone)
	require.Equal(t, "info@salon.cz", r.Email)
	require.Equal(t, []string{"Praha", "Brno"}, r.Cities)
}

func TestContactPageReadFirst(t *testing.T) {
	t.Parallel()

	empty := "<html><body></body></html>"
	pages := []crawler.Page{
		{URL: "https://salon.cz", HTML: empty, VisibleText: "Pište na home@salon.cz"},
		{URL: "https://salon.cz/kontakt", HTML: empty, VisibleText: "E-mail: kontakt@salon.cz"},
	}

	r := ExtractFromPages(pages)
	require.Equal(t, "kontakt@salon.cz", r.Email)
	require.Equal(t, "https://salon.cz/kontakt", r.Sources[KindEmail].SourceURL)
}

func TestConfidentAddressReplacesLegalOne(t *testing.T) {
	t.Parallel()

	empty := "<html><body></body></html>"
	pages := []crawler.Page{
		{URL: "https://salon.cz/kontakt", HTML: empty, VisibleText: "Sídlo společnosti: Vinohradská 12, 120 00 Praha 2, IČO: 12345678"},
		{URL: "https://salon.cz/o-nas", HTML: empty, VisibleText: "Kde nás najdete: Kobližná 5, 602 00 Brno"},
	}

	r := ExtractFromPages(pages)
	require.Equal(t, "Kobližná 5, 602 00 Brno", r.Address)
	require.Equal(t, "https://salon.cz/o-nas", r.Sources[KindAddress].SourceURL)
}
