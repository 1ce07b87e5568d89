package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lysyi3m/regnews/app/classify"
	"github.com/lysyi3m/regnews/app/database"
	"github.com/lysyi3m/regnews/app/feed"
	"github.com/lysyi3m/regnews/app/region"
)

var (
	testMarkets   = []string{"Energy", "Technology", "Climate Change", "Healthcare", "Real Estate"}
	bootstrapDate = time.Date(2025, 11, 10, 0, 0, 0, 0, time.UTC)
)

type fakeReader struct {
	entries map[string][]feed.Entry
	errs    map[string]error
	calls   []string
}

func (f *fakeReader) Read(_ context.Context, src region.Source) ([]feed.Entry, error) {
	f.calls = append(f.calls, src.Name)
	if err := f.errs[src.Name]; err != nil {
		return nil, err
	}
	return f.entries[src.Name], nil
}

type fakeStore struct {
	latest *time.Time
	err    error
}

func (f *fakeStore) LatestDate(context.Context, string) (*time.Time, error) {
	return f.latest, f.err
}

type fakeCompleter struct {
	content string
	err     error
}

func (f *fakeCompleter) Complete(context.Context, classify.CompletionRequest) (string, error) {
	return f.content, f.err
}

// selectiveCompleter fails for prompts mentioning failOn and answers
// content otherwise.
type selectiveCompleter struct {
	failOn  string
	content string
}

func (f *selectiveCompleter) Complete(_ context.Context, req classify.CompletionRequest) (string, error) {
	if strings.Contains(req.Prompt, f.failOn) {
		return "", errors.New("model overloaded")
	}
	return f.content, nil
}

func at(y int, m time.Month, d, h int) *time.Time {
	t := time.Date(y, m, d, h, 0, 0, 0, time.UTC)
	return &t
}

func testCatalog(sources ...string) *region.Catalog {
	catalog := region.NewCatalog("")
	r := &region.Region{Name: "European Union", Zone: "Europe"}
	for _, name := range sources {
		r.Sources = append(r.Sources, region.Source{Name: name, URL: "https://example.com/" + name, Type: region.SourceTypeRSS})
	}
	catalog.Add(r)
	return catalog
}

func TestFetchRegionEndToEnd(t *testing.T) {
	ctx := context.Background()

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "news.db"))
	require.NoError(t, err)
	defer db.Close()

	repo := database.NewNewsRepository(db, testMarkets, bootstrapDate)
	require.NoError(t, repo.Initialize(ctx))

	reader := &fakeReader{entries: map[string][]feed.Entry{
		"ECB": {
			{Title: "ECB policy statement", Summary: "Rates unchanged", PublishedAt: at(2025, 11, 12, 9)},
			{Title: "Inflation outlook", Summary: "Energy prices ease", PublishedAt: at(2025, 11, 11, 14)},
			{Title: "Bank supervision update", Summary: "Capital buffers", PublishedAt: at(2025, 11, 9, 10)},
		},
	}}

	p := New(testCatalog("ECB"), reader, repo, nil, testMarkets, bootstrapDate, "")
	req := Request{Region: "European Union", End: time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)}

	items, err := p.FetchRegion(ctx, req)
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "ECB policy statement", items[0].Title)
	require.Equal(t, "Inflation outlook", items[1].Title)
	require.Equal(t, []string{"Energy"}, items[1].Markets)
	require.Equal(t, "Europe", items[0].Zone)
	require.Equal(t, "ECB", items[0].Source)
	require.Equal(t, classify.HeuristicName, items[0].Extractor)

	inserted, err := repo.UpsertBatch(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 2, inserted)

	items, err = p.FetchRegion(ctx, req)
	require.NoError(t, err)
	inserted, err = repo.UpsertBatch(ctx, items)
	require.NoError(t, err)
	require.Equal(t, 0, inserted)
}

func TestFetchRegionStartDate(t *testing.T) {
	entries := []feed.Entry{
		{Title: "Policy A", PublishedAt: at(2025, 11, 14, 0)},
		{Title: "Policy B", PublishedAt: at(2025, 11, 12, 0)},
		{Title: "Policy C", PublishedAt: at(2025, 11, 10, 0)},
	}
	end := time.Date(2025, 11, 30, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		store    *fakeStore
		start    *time.Time
		expected int
	}{
		{"bootstrap when store empty", &fakeStore{}, nil, 3},
		{"latest stored date", &fakeStore{latest: at(2025, 11, 12, 0)}, nil, 2},
		{"explicit start wins", &fakeStore{latest: at(2025, 11, 12, 0)}, at(2025, 11, 14, 0), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := &fakeReader{entries: map[string][]feed.Entry{"ECB": entries}}
			p := New(testCatalog("ECB"), reader, tt.store, nil, testMarkets, bootstrapDate, "")

			items, err := p.FetchRegion(context.Background(), Request{Region: "European Union", End: end, Start: tt.start})
			require.NoError(t, err)
			require.Len(t, items, tt.expected)
		})
	}
}

func TestFetchRegionStoreFailure(t *testing.T) {
	storeErr := errors.New("database is locked")
	p := New(testCatalog("ECB"), &fakeReader{}, &fakeStore{err: storeErr}, nil, testMarkets, bootstrapDate, "")

	_, err := p.FetchRegion(context.Background(), Request{Region: "European Union"})
	require.ErrorIs(t, err, storeErr)
}

func TestFetchRegionUnknownRegion(t *testing.T) {
	reader := &fakeReader{}
	p := New(testCatalog("ECB"), reader, &fakeStore{}, nil, testMarkets, bootstrapDate, "")

	items, err := p.FetchRegion(context.Background(), Request{Region: "Atlantis"})
	require.NoError(t, err)
	require.Empty(t, items)
	require.Empty(t, reader.calls)
}

func TestFetchRegionSkipsFailingSource(t *testing.T) {
	reader := &fakeReader{
		entries: map[string][]feed.Entry{
			"Commission": {{Title: "New regulation on grids", PublishedAt: at(2025, 11, 11, 0)}},
		},
		errs: map[string]error{
			"ECB": &feed.FetchError{Source: "ECB", URL: "https://example.com/ECB", Err: errors.New("timeout")},
		},
	}
	p := New(testCatalog("ECB", "Commission"), reader, &fakeStore{}, nil, testMarkets, bootstrapDate, "")

	items, err := p.FetchRegion(context.Background(), Request{Region: "European Union", End: time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Commission", items[0].Source)
	require.Equal(t, []string{"ECB", "Commission"}, reader.calls)
}

func TestFetchRegionUndatedEntries(t *testing.T) {
	reader := &fakeReader{entries: map[string][]feed.Entry{
		"ECB": {
			{Title: "Undated policy note"},
			{Title: "Dated policy note", PublishedAt: at(2025, 11, 11, 0)},
			{Title: "Sports results", PublishedAt: at(2025, 11, 11, 0)},
		},
	}}
	p := New(testCatalog("ECB"), reader, &fakeStore{}, nil, testMarkets, bootstrapDate, "")

	items, err := p.FetchRegion(context.Background(), Request{Region: "European Union", End: time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Dated policy note", items[0].Title)
	require.Equal(t, "Undated policy note", items[1].Title)
	require.Nil(t, items[1].PublishedAt)
}

func TestFetchRegionModelFallsBackToHeuristic(t *testing.T) {
	reader := &fakeReader{entries: map[string][]feed.Entry{
		"ECB": {{Title: "Central bank raises interest rate", PublishedAt: at(2025, 11, 11, 0)}},
	}}
	end := time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)

	p := New(testCatalog("ECB"), reader, &fakeStore{}, &fakeCompleter{err: errors.New("connection refused")}, testMarkets, bootstrapDate, "llama3.1:8b")
	items, err := p.FetchRegion(context.Background(), Request{Region: "European Union", End: end, UseModel: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, classify.HeuristicName, items[0].Extractor)

	p = New(testCatalog("ECB"), reader, &fakeStore{}, &fakeCompleter{content: "not json"}, testMarkets, bootstrapDate, "llama3.1:8b")
	items, err = p.FetchRegion(context.Background(), Request{Region: "European Union", End: end, UseModel: true})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, classify.HeuristicName, items[0].Extractor)
}

func TestFetchRegionModelResult(t *testing.T) {
	reader := &fakeReader{entries: map[string][]feed.Entry{
		"ECB": {
			{Title: "Quarterly bulletin", Summary: "A long feed summary", PublishedAt: at(2025, 11, 11, 0)},
		},
	}}
	completer := &fakeCompleter{content: `{"relevant": true, "markets": ["Real Estate"], "score": "4", "summary": "", "reasons": ["mortgage rules"]}`}
	p := New(testCatalog("ECB"), reader, &fakeStore{}, completer, testMarkets, bootstrapDate, "llama3.1:8b")

	items, err := p.FetchRegion(context.Background(), Request{Region: "European Union", End: time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC), UseModel: true, Model: "gemma3:270m"})
	require.NoError(t, err)
	require.Len(t, items, 1)

	item := items[0]
	require.Equal(t, "gemma3:270m", item.Extractor)
	require.Equal(t, 4, item.Score)
	require.Equal(t, []string{"Real Estate"}, item.Markets)
	require.Equal(t, []string{"mortgage rules"}, item.Reasons)
	require.Equal(t, "A long feed summary", item.Summary)
}

func TestFetchRegionModelFailsForOneItem(t *testing.T) {
	reader := &fakeReader{entries: map[string][]feed.Entry{
		"ECB": {
			{Title: "X policy", PublishedAt: at(2025, 11, 11, 10)},
			{Title: "Y policy", PublishedAt: at(2025, 11, 11, 9)},
		},
	}}
	completer := &selectiveCompleter{
		failOn:  "TITLE='X policy'",
		content: `{"relevant": true, "markets": ["Energy"], "score": 3, "summary": "Y summary", "reasons": ["grid rules"]}`,
	}
	p := New(testCatalog("ECB"), reader, &fakeStore{}, completer, testMarkets, bootstrapDate, "m1")

	items, err := p.FetchRegion(context.Background(), Request{Region: "European Union", End: time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC), UseModel: true})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.Equal(t, "X policy", items[0].Title)
	require.Equal(t, classify.HeuristicName, items[0].Extractor)
	require.Equal(t, 0, items[0].Score)

	require.Equal(t, "Y policy", items[1].Title)
	require.Equal(t, "m1", items[1].Extractor)
	require.Equal(t, 3, items[1].Score)
	require.Equal(t, "Y summary", items[1].Summary)
}
