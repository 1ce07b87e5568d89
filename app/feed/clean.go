package feed

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/unicode/norm"
)

// CleanSummary strips markup from an HTML fragment and collapses whitespace.
// If the fragment cannot be parsed the raw text is returned unchanged.
func CleanSummary(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var parts []string
	collectText(doc.Selection, &parts)

	return norm.NFKC.String(strings.Join(strings.Fields(strings.Join(parts, " ")), " "))
}

func collectText(sel *goquery.Selection, parts *[]string) {
	sel.Contents().Each(func(_ int, node *goquery.Selection) {
		switch goquery.NodeName(node) {
		case "#text":
			*parts = append(*parts, node.Text())
		case "script", "style", "#comment":
		default:
			collectText(node, parts)
		}
	})
}
