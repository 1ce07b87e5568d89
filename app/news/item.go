package news

import (
	"fmt"
	"time"
)

// TitleKeyLength bounds the title prefix that takes part in the identity key.
const TitleKeyLength = 120

// Item is a classified news entry before it is stored.
type Item struct {
	Title       string
	Link        string
	PublishedAt *time.Time // nil when the feed carried no usable date
	Region      string
	Zone        string
	Source      string
	Markets     []string
	Score       int
	Summary     string
	Reasons     []string
	Extractor   string // classification strategy that produced the item
}

// Record is a stored item as returned by the store.
type Record struct {
	ID        int64
	UID       string
	Title     string
	Link      string
	Date      *time.Time
	Time      string
	Region    string
	Zone      string
	Source    string
	Markets   []string
	Score     int
	Summary   string
	Reasons   []string
	Extractor string
	CreatedAt time.Time
}

// Day returns the item date as YYYY-MM-DD, or "" when undated.
func (i Item) Day() string {
	if i.PublishedAt == nil {
		return ""
	}
	return i.PublishedAt.UTC().Format(time.DateOnly)
}

// Clock returns the item time of day, or "" when undated.
func (i Item) Clock() string {
	if i.PublishedAt == nil {
		return ""
	}
	return i.PublishedAt.UTC().Format(time.TimeOnly)
}

// UID builds the deduplication key region|source|date|title-prefix.
func UID(item Item) string {
	return fmt.Sprintf("%s|%s|%s|%s", item.Region, item.Source, item.Day(), Truncate(item.Title, TitleKeyLength))
}

// Truncate cuts s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// EffectiveDate maps an undated record onto fallback.
func (r Record) EffectiveDate(fallback time.Time) time.Time {
	if r.Date == nil {
		return fallback
	}
	return *r.Date
}
