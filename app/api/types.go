package api

import (
	"context"
	"time"

	"github.com/lysyi3m/regnews/app/database"
	"github.com/lysyi3m/regnews/app/feed"
	"github.com/lysyi3m/regnews/app/news"
	"github.com/lysyi3m/regnews/app/region"
	"github.com/lysyi3m/regnews/app/tasks"
)

type GeneratorInterface interface {
	Run(channel feed.Channel, records []news.Record) (string, error)
}

var _ GeneratorInterface = (*feed.Generator)(nil)

type NewsReader interface {
	Query(ctx context.Context, filter database.Filter) ([]news.Record, error)
	Count(ctx context.Context) (int, error)
}

// RefreshFactory builds the task that refreshes the given regions.
type RefreshFactory func(regions []string, opts tasks.RefreshOptions) tasks.TaskInterface

// Settings carries the process configuration the handlers expose or
// validate against.
type Settings struct {
	Markets      []string
	Models       []string
	DefaultModel string
	UseModel     bool
	Bootstrap    time.Time
	FeedLimit    int
	Version      string
}

type Handler struct {
	store     NewsReader
	catalog   *region.Catalog
	generator GeneratorInterface
	scheduler tasks.TaskSchedulerInterface
	refresh   RefreshFactory
	settings  Settings
	now       func() time.Time
}

type NewsResponse struct {
	UID       string   `json:"uid"`
	Title     string   `json:"title"`
	Link      string   `json:"link,omitempty"`
	Date      string   `json:"date,omitempty"`
	Time      string   `json:"time,omitempty"`
	Region    string   `json:"region"`
	Zone      string   `json:"zone"`
	Source    string   `json:"source"`
	Markets   []string `json:"markets"`
	Score     int      `json:"score"`
	Summary   string   `json:"summary"`
	Reasons   []string `json:"reasons"`
	Extractor string   `json:"extractor"`
}

type RefreshRequest struct {
	Regions  []string `json:"regions"`
	UseModel *bool    `json:"use_model"`
	Model    string   `json:"model"`
	Start    string   `json:"start"`
	End      string   `json:"end"`
}

func toNewsResponse(r news.Record) NewsResponse {
	resp := NewsResponse{
		UID:       r.UID,
		Title:     r.Title,
		Link:      r.Link,
		Time:      r.Time,
		Region:    r.Region,
		Zone:      r.Zone,
		Source:    r.Source,
		Markets:   r.Markets,
		Score:     r.Score,
		Summary:   r.Summary,
		Reasons:   r.Reasons,
		Extractor: r.Extractor,
	}
	if r.Date != nil {
		resp.Date = r.Date.Format(time.DateOnly)
	}
	return resp
}
