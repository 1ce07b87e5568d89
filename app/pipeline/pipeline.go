package pipeline

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/lysyi3m/regnews/app/classify"
	"github.com/lysyi3m/regnews/app/feed"
	"github.com/lysyi3m/regnews/app/news"
	"github.com/lysyi3m/regnews/app/region"
)

// FallbackSummaryLength bounds the feed summary used when the classifier
// produced none.
const FallbackSummaryLength = 300

type Reader interface {
	Read(ctx context.Context, src region.Source) ([]feed.Entry, error)
}

type Store interface {
	LatestDate(ctx context.Context, region string) (*time.Time, error)
}

type Regions interface {
	Get(name string) (*region.Region, bool)
}

type Request struct {
	Region   string
	End      time.Time  // zero means today
	Start    *time.Time // nil derives the start from stored data
	UseModel bool
	Model    string // empty selects the configured default model
}

// Pipeline turns the feeds of one region into classified, relevant items.
type Pipeline struct {
	regions      Regions
	reader       Reader
	store        Store
	completer    classify.Completer
	heuristic    *classify.Heuristic
	markets      []string
	bootstrap    time.Time
	defaultModel string
	now          func() time.Time
}

func New(regions Regions, reader Reader, store Store, completer classify.Completer, markets []string, bootstrap time.Time, defaultModel string) *Pipeline {
	return &Pipeline{
		regions:      regions,
		reader:       reader,
		store:        store,
		completer:    completer,
		heuristic:    classify.NewHeuristic(markets),
		markets:      markets,
		bootstrap:    bootstrap,
		defaultModel: defaultModel,
		now:          time.Now,
	}
}

// FetchRegion reads every source of the requested region, keeps entries
// inside the date window, classifies them and returns the relevant ones
// newest first. Source failures are logged and skipped; only a store
// failure while deriving the start date is returned.
func (p *Pipeline) FetchRegion(ctx context.Context, req Request) ([]news.Item, error) {
	items := []news.Item{}

	r, ok := p.regions.Get(req.Region)
	if !ok {
		slog.Warn("Unknown region, nothing to fetch", "region", req.Region)
		return items, nil
	}

	start, err := p.startDate(ctx, req)
	if err != nil {
		return nil, err
	}
	end := req.End
	if end.IsZero() {
		end = p.now().UTC()
	}
	window := feed.NewWindow(start, end)

	classifier := p.classifier(req)

	for _, src := range r.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := p.reader.Read(ctx, src)
		if err != nil {
			slog.Warn("Failed to read source, skipping", "region", r.Name, "source", src.Name, "error", err)
			continue
		}

		entries = window.Run(entries)
		for _, entry := range entries {
			result, err := classifier.Classify(ctx, entry.Title, entry.Summary)
			if err != nil {
				slog.Warn("Failed to classify entry, skipping", "source", src.Name, "title", entry.Title, "error", err)
				continue
			}
			if !result.Relevant {
				continue
			}

			items = append(items, news.Item{
				Title:       entry.Title,
				Link:        entry.Link,
				PublishedAt: entry.PublishedAt,
				Region:      r.Name,
				Zone:        r.Zone,
				Source:      src.Name,
				Markets:     result.Markets,
				Score:       result.Score,
				Summary:     cmp.Or(result.Summary, news.Truncate(entry.Summary, FallbackSummaryLength)),
				Reasons:     result.Reasons,
				Extractor:   result.Extractor,
			})
		}

		slog.Debug("Source processed", "region", r.Name, "source", src.Name, "entries", len(entries))
	}

	slices.SortStableFunc(items, func(a, b news.Item) int {
		return feed.CompareDesc(a.PublishedAt, b.PublishedAt)
	})

	slog.Info("Region fetched",
		"region", r.Name,
		"start", start.Format(time.DateOnly),
		"end", end.Format(time.DateOnly),
		"classifier", classifier.Name(),
		"items", len(items))

	return items, nil
}

func (p *Pipeline) startDate(ctx context.Context, req Request) (time.Time, error) {
	if req.Start != nil {
		return *req.Start, nil
	}

	latest, err := p.store.LatestDate(ctx, req.Region)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to determine start date for %s: %w", req.Region, err)
	}
	if latest != nil {
		return *latest, nil
	}

	return p.bootstrap, nil
}

func (p *Pipeline) classifier(req Request) classify.Classifier {
	if !req.UseModel || p.completer == nil {
		return p.heuristic
	}
	model := cmp.Or(req.Model, p.defaultModel)
	if model == "" {
		return p.heuristic
	}
	return classify.NewFallback(classify.NewModel(p.completer, model, p.markets), p.heuristic)
}
