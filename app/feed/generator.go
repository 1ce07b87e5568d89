package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/regnews/app/news"
)

// Channel describes the RSS channel a set of stored records is rendered into.
type Channel struct {
	Title       string
	Link        string
	Description string
	SelfLink    string
	Generator   string
}

type Generator struct {
	now func() time.Time
}

func NewGenerator() *Generator {
	return &Generator{now: time.Now}
}

func (g *Generator) Run(channel Channel, records []news.Record) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	g.writeElement(&buf, "description", cmp.Or(channel.Description, channel.Title), 4)

	if channel.SelfLink != "" {
		buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
			html.EscapeString(channel.SelfLink)))
	}

	lastBuildDate := g.now().In(time.Local)
	if len(records) > 0 {
		lastBuildDate = cmp.Or(g.recordTime(records[0]), records[0].CreatedAt, lastBuildDate)
	}
	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", channel.Generator, 4)

	for _, record := range records {
		g.writeItem(&buf, record)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, record news.Record) {
	buf.WriteString("    <item>\n")

	buf.WriteString("      <guid isPermaLink=\"false\">")
	xml.EscapeText(buf, []byte(record.UID))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", record.Title, 6)
	g.writeElement(buf, "link", record.Link, 6)
	g.writeElement(buf, "description", g.describe(record), 6)

	if published := g.recordTime(record); !published.IsZero() {
		g.writeElement(buf, "pubDate", published.Format(time.RFC1123Z), 6)
	}

	g.writeElement(buf, "source", record.Source, 6)
	for _, market := range record.Markets {
		g.writeElement(buf, "category", market, 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) describe(record news.Record) string {
	var parts []string
	if record.Summary != "" {
		parts = append(parts, record.Summary)
	}
	if record.Score > 0 {
		parts = append(parts, fmt.Sprintf("Impact score: %d", record.Score))
	}
	for _, reason := range record.Reasons {
		parts = append(parts, "- "+reason)
	}
	if len(parts) == 0 {
		return "No description available"
	}
	return strings.Join(parts, "\n")
}

// recordTime combines the stored date and time; zero when undated.
func (g *Generator) recordTime(record news.Record) time.Time {
	if record.Date == nil {
		return time.Time{}
	}
	if record.Time != "" {
		if clock, err := time.Parse(time.TimeOnly, record.Time); err == nil {
			y, m, d := record.Date.Date()
			return time.Date(y, m, d, clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
		}
	}
	return *record.Date
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}
