package tasks

import (
	"context"

	"github.com/lysyi3m/regnews/app/news"
	"github.com/lysyi3m/regnews/app/pipeline"
)

// TaskSchedulerInterface defines the interface for task scheduling operations.
// Used by the main application and the HTTP API to queue refresh runs.
// Example usage:
//
//	scheduler := NewScheduler(interval, periodicRefresh)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewRefreshTask(...))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
	Status(id string) (Status, bool)
}

type RegionFetcher interface {
	FetchRegion(ctx context.Context, req pipeline.Request) ([]news.Item, error)
}

type BatchStore interface {
	UpsertBatch(ctx context.Context, items []news.Item) (int, error)
}
