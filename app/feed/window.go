package feed

import "time"

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

func NewWindow(start, end time.Time) Window {
	return Window{Start: DayOf(start), End: DayOf(end)}
}

// Contains reports whether t falls on a day inside the window. Unknown
// timestamps are always inside.
func (w Window) Contains(t *time.Time) bool {
	if t == nil {
		return true
	}
	day := DayOf(t.UTC())
	return !day.Before(w.Start) && !day.After(w.End)
}

// Run keeps the entries inside the window, preserving order.
func (w Window) Run(entries []Entry) []Entry {
	kept := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		if w.Contains(entry.PublishedAt) {
			kept = append(kept, entry)
		}
	}
	return kept
}

// DayOf truncates t to midnight UTC of its calendar day.
func DayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
