package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"
)

// ResolveDate picks a single timestamp out of the available date fields.
// Structured values win over text; within each group the published, updated,
// created order applies. Returns nil when nothing usable is present.
func ResolveDate(fields DateFields) *time.Time {
	for _, t := range fields.Structured {
		if t == nil || t.IsZero() {
			continue
		}
		resolved := t.UTC()
		return &resolved
	}

	for _, text := range fields.Text {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		parsed, err := dateparse.ParseIn(text, time.UTC)
		if err != nil || parsed.IsZero() {
			continue
		}
		resolved := parsed.UTC()
		return &resolved
	}

	return nil
}

func dateFieldsOf(item *gofeed.Item) DateFields {
	fields := DateFields{
		Structured: [3]*time.Time{item.PublishedParsed, item.UpdatedParsed, nil},
		Text:       [3]string{item.Published, item.Updated, ""},
	}

	// dc:date is the closest thing RSS has to a creation date
	if item.DublinCoreExt != nil && len(item.DublinCoreExt.Date) > 0 {
		fields.Text[2] = item.DublinCoreExt.Date[0]
	}

	return fields
}
