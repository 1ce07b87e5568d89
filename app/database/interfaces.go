package database

import (
	"context"
	"time"

	"github.com/lysyi3m/regnews/app/news"
)

// NewsStore is the persistence surface used by the pipeline, tasks and API.
type NewsStore interface {
	Initialize(ctx context.Context) error
	UpsertBatch(ctx context.Context, items []news.Item) (int, error)
	Query(ctx context.Context, filter Filter) ([]news.Record, error)
	LatestDate(ctx context.Context, region string) (*time.Time, error)
	Count(ctx context.Context) (int, error)
}

var _ NewsStore = (*NewsRepository)(nil)
