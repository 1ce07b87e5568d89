package feed

import (
	"testing"
	"time"

	"github.com/araddon/dateparse"
)

func TestResolveDatePrefersStructuredFields(t *testing.T) {
	published := time.Date(2025, 11, 9, 8, 0, 0, 0, time.FixedZone("JST", 9*3600))
	updated := time.Date(2025, 11, 10, 8, 0, 0, 0, time.UTC)

	got := ResolveDate(DateFields{
		Structured: [3]*time.Time{&published, &updated, nil},
		Text:       [3]string{"Mon, 03 Jul 2023 10:00:00 GMT", "", ""},
	})

	if got == nil {
		t.Fatal("Expected a resolved date")
	}
	if !got.Equal(published) {
		t.Errorf("Expected published time %v, got %v", published, *got)
	}
	if got.Location() != time.UTC {
		t.Errorf("Expected UTC location, got %v", got.Location())
	}
}

func TestResolveDateFallsThroughStructuredOrder(t *testing.T) {
	updated := time.Date(2025, 11, 10, 8, 0, 0, 0, time.UTC)
	zero := time.Time{}

	got := ResolveDate(DateFields{Structured: [3]*time.Time{&zero, &updated, nil}})
	if got == nil || !got.Equal(updated) {
		t.Errorf("Expected updated time %v, got %v", updated, got)
	}
}

func TestResolveDateTextFallback(t *testing.T) {
	text := "Mon, 03 Jul 2023 10:00:00 GMT"
	expected, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		t.Fatal(err)
	}

	got := ResolveDate(DateFields{Text: [3]string{text, "", ""}})
	if got == nil {
		t.Fatal("Expected a resolved date from the published text field")
	}
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, *got)
	}
}

func TestResolveDateSkipsUnparseableText(t *testing.T) {
	got := ResolveDate(DateFields{Text: [3]string{"not a date", "  ", "2025-11-05T14:30:00+01:00"}})
	if got == nil {
		t.Fatal("Expected the created text field to be used")
	}
	expected := time.Date(2025, 11, 5, 13, 30, 0, 0, time.UTC)
	if !got.Equal(expected) {
		t.Errorf("Expected %v, got %v", expected, *got)
	}
}

func TestResolveDateUnknown(t *testing.T) {
	if got := ResolveDate(DateFields{}); got != nil {
		t.Errorf("Expected unknown date, got %v", *got)
	}
	if got := ResolveDate(DateFields{Text: [3]string{"garbage", "unknown", ""}}); got != nil {
		t.Errorf("Expected unknown date for unparseable fields, got %v", *got)
	}
}
