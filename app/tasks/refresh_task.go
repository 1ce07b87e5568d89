package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/regnews/app/pipeline"
)

// RefreshOptions select the window and classification strategy of a run.
type RefreshOptions struct {
	Start    *time.Time
	End      time.Time
	UseModel bool
	Model    string
}

// RefreshTask fetches each region through the pipeline and stores the
// relevant items. Re-running a task is safe because inserts are keyed.
type RefreshTask struct {
	Task
	Options  RefreshOptions
	fetcher  RegionFetcher
	store    BatchStore
	fetched  int
	inserted int
}

func NewRefreshTask(regions []string, opts RefreshOptions, fetcher RegionFetcher, store BatchStore) *RefreshTask {
	return &RefreshTask{
		Task:    NewTask(TaskTypeRefresh, regions),
		Options: opts,
		fetcher: fetcher,
		store:   store,
	}
}

func (t *RefreshTask) Execute(ctx context.Context) error {
	t.fetched, t.inserted = 0, 0

	for _, region := range t.Regions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		items, err := t.fetcher.FetchRegion(ctx, pipeline.Request{
			Region:   region,
			End:      t.Options.End,
			Start:    t.Options.Start,
			UseModel: t.Options.UseModel,
			Model:    t.Options.Model,
		})
		if err != nil {
			return fmt.Errorf("failed to fetch region %s: %w", region, err)
		}

		inserted, err := t.store.UpsertBatch(ctx, items)
		if err != nil {
			return fmt.Errorf("failed to store region %s: %w", region, err)
		}

		t.fetched += len(items)
		t.inserted += inserted

		slog.Debug("Region refreshed", "region", region, "relevant", len(items), "new", inserted)
	}

	slog.Info("Task completed",
		"type", "Refresh",
		"regions", t.regionList(),
		"duration", t.GetDuration(),
		"relevant", t.fetched,
		"new", t.inserted)

	return nil
}

// Result reports the relevant and newly stored item counts of the last run.
func (t *RefreshTask) Result() (fetched, inserted int) {
	return t.fetched, t.inserted
}
