package pacman

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/submarine-osint/submarine/internal/content"
	"github.com/submarine-osint/submarine/internal/models"
)

func newTestExtractor() *Extractor {
	return New(nil, Options{})
}

func extractText(t *testing.T, text string) Result {
	t.Helper()
	return newTestExtractor().Extract(Input{
		URL:  "https://example.com/page",
		Text: text,
	})
}

func TestExtractEmail(t *testing.T) {
	res := extractText(t, "Write to Info@Example.com or sales@acme.io. Again: info@example.com.")
	got := res.Entities[models.KindEmail]
	want := []string{"info@example.com", "sales@acme.io"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("emails = %v, want %v", got, want)
	}
}

func TestExtractIBAN(t *testing.T) {
	res := extractText(t, "Pay to DE89 3704 0044 0532 0130 00 only.")
	got := res.Entities[models.KindIBAN]
	if len(got) != 1 || got[0] != "DE89370400440532013000" {
		t.Errorf("iban = %v", got)
	}

	// Altered check digits must be rejected.
	res = extractText(t, "Pay to DE89 3704 0044 0532 0130 01 only.")
	if len(res.Entities[models.KindIBAN]) != 0 {
		t.Errorf("invalid iban accepted: %v", res.Entities[models.KindIBAN])
	}
}

func TestExtractLEI(t *testing.T) {
	// Deutsche Bank AG.
	res := extractText(t, "LEI 529900T8BM49AURSDO55 registered.")
	if got := res.Entities[models.KindLEI]; len(got) != 1 || got[0] != "529900T8BM49AURSDO55" {
		t.Errorf("lei = %v", got)
	}
	res = extractText(t, "LEI 529900T8BM49AURSDO54 registered.")
	if got := res.Entities[models.KindLEI]; len(got) != 0 {
		t.Errorf("invalid lei accepted: %v", got)
	}
}

func TestExtractISIN(t *testing.T) {
	res := extractText(t, "Apple trades as US0378331005 on NASDAQ.")
	if got := res.Entities[models.KindISIN]; len(got) != 1 || got[0] != "US0378331005" {
		t.Errorf("isin = %v", got)
	}
}

func TestExtractIMO(t *testing.T) {
	res := extractText(t, "Vessel IMO 9074729 departed.")
	if got := res.Entities[models.KindIMO]; len(got) != 1 || got[0] != "9074729" {
		t.Errorf("imo = %v", got)
	}
	res = extractText(t, "Vessel IMO 9074720 departed.")
	if got := res.Entities[models.KindIMO]; len(got) != 0 {
		t.Errorf("invalid imo accepted: %v", got)
	}
}

func TestExtractMMSI(t *testing.T) {
	res := extractText(t, "Tracking MMSI: 211339980 near port.")
	if got := res.Entities[models.KindMMSI]; len(got) != 1 || got[0] != "211339980" {
		t.Errorf("mmsi = %v", got)
	}
	// Bare nine digits without the MMSI marker are too ambiguous.
	res = extractText(t, "Order number 211339980 shipped.")
	if got := res.Entities[models.KindMMSI]; len(got) != 0 {
		t.Errorf("unmarked digits matched as mmsi: %v", got)
	}
}

func TestExtractBTC(t *testing.T) {
	// Genesis block address.
	res := extractText(t, "Send to 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa now.")
	if got := res.Entities[models.KindBTC]; len(got) != 1 {
		t.Errorf("btc = %v", got)
	}
	res = extractText(t, "Send to 1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNb now.")
	if got := res.Entities[models.KindBTC]; len(got) != 0 {
		t.Errorf("bad checksum accepted: %v", got)
	}
}

func TestExtractBech32(t *testing.T) {
	res := extractText(t, "Native segwit: bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4 here.")
	if got := res.Entities[models.KindBTCBech32]; len(got) != 1 {
		t.Errorf("bech32 = %v", got)
	}
	res = extractText(t, "Native segwit: bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5 here.")
	if got := res.Entities[models.KindBTCBech32]; len(got) != 0 {
		t.Errorf("bad bech32 accepted: %v", got)
	}
}

func TestExtractETH(t *testing.T) {
	// EIP-55 reference vector.
	valid := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	res := extractText(t, "Wallet "+valid+" active.")
	if got := res.Entities[models.KindETH]; len(got) != 1 || got[0] != valid {
		t.Errorf("eth = %v", got)
	}

	// All-lowercase carries no checksum and is accepted.
	res = extractText(t, "Wallet "+strings.ToLower(valid)+" active.")
	if got := res.Entities[models.KindETH]; len(got) != 1 {
		t.Errorf("lowercase eth rejected: %v", got)
	}

	// Mixed case with one flipped letter fails EIP-55.
	bad := strings.Replace(valid, "aA", "aa", 1)
	res = extractText(t, "Wallet "+bad+" active.")
	if got := res.Entities[models.KindETH]; len(got) != 0 {
		t.Errorf("bad eip-55 accepted: %v", got)
	}
}

func TestExtractVATAndSWIFT(t *testing.T) {
	res := extractText(t, "VAT DE811907980, BIC DEUTDEFF500.")
	if got := res.Entities[models.KindVAT]; len(got) != 1 || got[0] != "DE811907980" {
		t.Errorf("vat = %v", got)
	}
	if got := res.Entities[models.KindSWIFT]; len(got) != 1 || got[0] != "DEUTDEFF500" {
		t.Errorf("swift = %v", got)
	}
}

func TestExtractPhones(t *testing.T) {
	res := extractText(t, "Call +44 20 7946 0958 or (212) 555-0173.")
	if got := res.Entities[models.KindPhoneIntl]; len(got) != 1 || got[0] != "+442079460958" {
		t.Errorf("intl phone = %v", got)
	}
	if got := res.Entities[models.KindPhoneUS]; len(got) != 1 || got[0] != "2125550173" {
		t.Errorf("us phone = %v", got)
	}
}

func TestTripwireScan(t *testing.T) {
	text := "He was designated under SDN list restrictions."
	res := extractText(t, text)

	var sanctions []models.TripwireHit
	for _, h := range res.Tripwires {
		if h.Category == models.TripwireSanctions {
			sanctions = append(sanctions, h)
		}
	}
	if len(sanctions) == 0 {
		t.Fatalf("no SANCTIONS hits in %v", res.Tripwires)
	}
	for _, h := range sanctions {
		got := strings.ToLower(text[h.Span[0]:h.Span[1]])
		if got != strings.ToLower(h.Term) {
			t.Errorf("span %v yields %q, want term %q", h.Span, got, h.Term)
		}
	}
}

func TestTripwireDedup(t *testing.T) {
	res := extractText(t, "bribery here, bribery there, more bribery")
	count := 0
	for _, h := range res.Tripwires {
		if h.Term == "bribery" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("bribery reported %d times, want 1", count)
	}
}

func TestExtractPersons(t *testing.T) {
	res := extractText(t, "Mr. John Smith met with Maria Garcia. The Quick Brown fox ran.")
	got := res.Entities[models.KindPerson]
	want := []string{"John Smith", "Maria Garcia"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("persons = %v, want %v", got, want)
	}
}

func TestExtractPersonTitleCueBoost(t *testing.T) {
	// "Weston" is not in the gazetteer; only the CEO cue pushes the
	// half-gazetteer candidate over the threshold.
	without := extractText(t, "Weston Maria attended.")
	if len(without.Entities[models.KindPerson]) != 0 {
		t.Errorf("candidate kept without cue: %v", without.Entities[models.KindPerson])
	}
	with := extractText(t, "CEO Weston Maria attended.")
	if got := with.Entities[models.KindPerson]; len(got) != 1 {
		t.Errorf("cue did not boost candidate: %v", got)
	}
}

func TestExtractCompanies(t *testing.T) {
	res := extractText(t, "Acme Widgets GmbH partnered with Globex Trading Ltd. Acme Widgets GmbH again.")
	if got := res.Entities[models.KindCompany]; len(got) != 2 {
		t.Fatalf("companies = %v", got)
	}
	if res.Companies[0].Name != "Acme Widgets GmbH" || res.Companies[0].Jurisdiction != "DE" {
		t.Errorf("first company = %+v", res.Companies[0])
	}
	if res.Companies[1].Jurisdiction != "GB" {
		t.Errorf("second company = %+v", res.Companies[1])
	}
}

func TestExtractOutlinks(t *testing.T) {
	e := newTestExtractor()
	res := e.Extract(Input{
		URL:  "https://example.com/page",
		Text: "hello",
		Links: []content.Link{
			{URL: "https://example.com/about"},
			{URL: "https://sub.example.com/deep"},
			{URL: "https://partner.org/x?utm_source=feed"},
			{URL: "https://partner.org/x"},
			{URL: "ftp://files.example.net/readme"},
		},
	})
	if res.InternalLinks != 2 {
		t.Errorf("internal links = %d, want 2", res.InternalLinks)
	}
	if len(res.Outlinks) != 1 || res.Outlinks[0] != "https://partner.org/x" {
		t.Errorf("outlinks = %v", res.Outlinks)
	}
}

func TestOutlinkCap(t *testing.T) {
	e := New(nil, Options{MaxOutlinks: 3})
	var links []content.Link
	for i := 0; i < 10; i++ {
		links = append(links, content.Link{URL: fmt.Sprintf("https://ext%d.org/", i)})
	}
	res := e.Extract(Input{URL: "https://example.com/", Text: "x", Links: links})
	if len(res.Outlinks) != 3 {
		t.Errorf("outlinks = %d, want 3", len(res.Outlinks))
	}
}

func TestClassifyTier(t *testing.T) {
	cases := []struct {
		url  string
		want ExtractionTier
	}{
		{"https://www.linkedin.com/in/someone", TierExtract},
		{"https://sub.tiktok.com/@user", TierExtract},
		{"https://bit.ly/abc123", TierURLOnly},
		{"https://stats.doubleclick.net/pixel", TierSkip},
		{"https://example.com/", TierFull},
	}
	for _, c := range cases {
		if got := ClassifyTier(c.url); got != c.want {
			t.Errorf("ClassifyTier(%s) = %s, want %s", c.url, got, c.want)
		}
	}
}

func TestSkipTierShortCircuits(t *testing.T) {
	res := newTestExtractor().Extract(Input{
		URL:  "https://stats.doubleclick.net/pixel",
		Text: "info@example.com bribery",
	})
	if len(res.Entities) != 0 || len(res.Tripwires) != 0 {
		t.Errorf("skip tier still extracted: %+v", res)
	}
}

func TestScanCap(t *testing.T) {
	e := New(nil, Options{MaxContentScan: 50})
	res := e.Extract(Input{
		URL:  "https://example.com/",
		Text: strings.Repeat("x", 50) + " info@example.com",
	})
	if len(res.Entities[models.KindEmail]) != 0 {
		t.Errorf("entity beyond scan cap extracted: %v", res.Entities[models.KindEmail])
	}
}

func TestExtractDeterministic(t *testing.T) {
	in := Input{
		URL:  "https://example.com/",
		Text: "Mr. John Smith of Acme Widgets GmbH, info@example.com, bribery, DE89 3704 0044 0532 0130 00",
		Links: []content.Link{
			{URL: "https://partner.org/a"},
			{URL: "https://example.com/b"},
		},
	}
	e := newTestExtractor()
	first := e.Extract(in)
	second := e.Extract(in)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("extraction not deterministic:\n%+v\nvs\n%+v", first, second)
	}
}
