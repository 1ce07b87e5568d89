package news

import (
	"strings"
	"testing"
	"time"
)

func TestUIDIgnoresSummaryAndLink(t *testing.T) {
	published := time.Date(2025, 11, 5, 9, 30, 0, 0, time.UTC)
	a := Item{Title: "ECB keeps rates unchanged", Link: "https://a.example/1", Summary: "first", Region: "European Union", Source: "European Central Bank", PublishedAt: &published}
	b := a
	b.Link = "https://a.example/1?utm=x"
	b.Summary = "second"
	b.Score = 4

	if UID(a) != UID(b) {
		t.Errorf("Expected identical keys, got '%s' and '%s'", UID(a), UID(b))
	}

	expected := "European Union|European Central Bank|2025-11-05|ECB keeps rates unchanged"
	if UID(a) != expected {
		t.Errorf("Expected key '%s', got '%s'", expected, UID(a))
	}
}

func TestUIDTruncatesTitle(t *testing.T) {
	long := strings.Repeat("a", 130)
	a := Item{Title: long + "tail one", Region: "Japan", Source: "Bank of Japan"}
	b := Item{Title: long + "tail two", Region: "Japan", Source: "Bank of Japan"}

	if UID(a) != UID(b) {
		t.Error("Expected titles sharing the first 120 characters to collide")
	}
	if !strings.HasSuffix(UID(a), "||"+strings.Repeat("a", 120)) {
		t.Errorf("Expected undated key with empty date component, got '%s'", UID(a))
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := Truncate("日本銀行の発表", 4); got != "日本銀行" {
		t.Errorf("Expected '日本銀行', got '%s'", got)
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Expected 'short', got '%s'", got)
	}
	if got := Truncate("x", 0); got != "" {
		t.Errorf("Expected empty string, got '%s'", got)
	}
}

func TestDayAndClock(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	published := time.Date(2025, 11, 12, 0, 30, 0, 0, loc)
	item := Item{PublishedAt: &published}

	if item.Day() != "2025-11-11" {
		t.Errorf("Expected UTC day 2025-11-11, got %s", item.Day())
	}
	if item.Clock() != "23:30:00" {
		t.Errorf("Expected UTC clock 23:30:00, got %s", item.Clock())
	}
	if (Item{}).Day() != "" || (Item{}).Clock() != "" {
		t.Error("Expected undated item to render without day and time")
	}
}
