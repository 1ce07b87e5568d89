package feed

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/lysyi3m/regnews/app/region"
)

const DefaultMaxEntries = 10

// Reader fetches a source and flattens its entries.
type Reader struct {
	httpClient       *http.Client
	gofeedParser     *gofeed.Parser
	contentExtractor *ContentExtractor
	userAgent        string
	timeout          time.Duration
	maxEntries       int
}

func NewReader(httpClient *http.Client, contentExtractor *ContentExtractor, userAgent string, timeout time.Duration, maxEntries int) *Reader {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Reader{
		httpClient:       httpClient,
		gofeedParser:     gofeed.NewParser(),
		contentExtractor: contentExtractor,
		userAgent:        userAgent,
		timeout:          timeout,
		maxEntries:       maxEntries,
	}
}

// Read returns the most recent entries of src. Sources of an unsupported
// type yield no entries and no error.
func (r *Reader) Read(ctx context.Context, src region.Source) ([]Entry, error) {
	if !strings.EqualFold(src.Type, region.SourceTypeRSS) {
		slog.Debug("Unsupported source type, skipping", "source", src.Name, "type", src.Type)
		return nil, nil
	}

	data, err := r.fetch(ctx, src.URL, "")
	if err != nil {
		return nil, &FetchError{Source: src.Name, URL: src.URL, Err: err}
	}

	entries, err := r.Parse(data)
	if err != nil {
		return nil, &FetchError{Source: src.Name, URL: src.URL, Err: err}
	}

	if src.ExtractContent && r.contentExtractor != nil {
		for i := range entries {
			if entries[i].Summary != "" || entries[i].Link == "" {
				continue
			}
			entries[i].Summary = r.extractSummary(ctx, entries[i].Link)
		}
	}

	return entries, nil
}

// Parse decodes feed data, newest entries first, capped to the reader limit.
func (r *Reader) Parse(data []byte) ([]Entry, error) {
	parsed, err := r.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, Entry{
			Title:       strings.TrimSpace(item.Title),
			Summary:     CleanSummary(cmp.Or(item.Description, item.Content)),
			Link:        strings.TrimSpace(item.Link),
			PublishedAt: ResolveDate(dateFieldsOf(item)),
		})
	}

	slices.SortStableFunc(entries, func(a, b Entry) int {
		return CompareDesc(a.PublishedAt, b.PublishedAt)
	})

	if len(entries) > r.maxEntries {
		entries = entries[:r.maxEntries]
	}

	return entries, nil
}

// CompareDesc orders timestamps newest first with unknown ones last.
func CompareDesc(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return b.Compare(*a)
	}
}

func (r *Reader) extractSummary(ctx context.Context, link string) string {
	data, err := r.fetch(ctx, link, "text/html")
	if err != nil {
		slog.Debug("Failed to fetch article for extraction", "url", link, "error", err)
		return ""
	}

	text, err := r.contentExtractor.Run(data, link)
	if err != nil {
		slog.Debug("Failed to extract article content", "url", link, "error", err)
		return ""
	}

	return text
}

func (r *Reader) fetch(ctx context.Context, url string, wantContentType string) ([]byte, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	if wantContentType != "" {
		contentType := resp.Header.Get("Content-Type")
		if !strings.Contains(strings.ToLower(contentType), wantContentType) {
			return nil, fmt.Errorf("unexpected content type: %s", contentType)
		}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
