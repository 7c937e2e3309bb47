package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://salon.cz/cenik", "salon.cz"},
		{"standard https", "https://Salon.cz/kontakt", "salon.cz"},
		{"no scheme", "salon.cz/kontakt", "salon.cz"},
		{"host with port", "salon.cz:8080", "salon.cz"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if onboardPagesTotal == nil || onboardImportsTotal == nil ||
		httpRequestsTotal == nil || httpRequestDurationSeconds == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}
}

func TestObservers(t *testing.T) {
	ObservePage("https://observe.test/a", "ok")
	ObservePage("https://observe.test/b", "ok")
	ObservePage("https://observe.test/c", "failed")
	if val := testutil.ToFloat64(onboardPagesTotal.WithLabelValues("observe.test", "ok")); val != 2 {
		t.Errorf("expected 2 ok pages, got %f", val)
	}

	ObserveChunks("https://observe.test", 3)
	ObserveChunks("https://observe.test", 0)
	if val := testutil.ToFloat64(onboardChunksTotal.WithLabelValues("observe.test")); val != 3 {
		t.Errorf("expected 3 chunks, got %f", val)
	}

	ObserveImport("", time.Second)
	if val := testutil.ToFloat64(onboardImportsTotal.WithLabelValues("ok")); val < 1 {
		t.Errorf("expected ok import to be counted, got %f", val)
	}

	ObserveBookingProviders([]string{"reservio", "reservio"})
	if val := testutil.ToFloat64(onboardBookingProviders.WithLabelValues("reservio")); val != 2 {
		t.Errorf("expected 2 reservio detections, got %f", val)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://salon.cz", "https://kadernictvi.cz", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
