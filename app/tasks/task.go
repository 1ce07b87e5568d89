package tasks

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeRefresh TaskType = "refresh"
)

const (
	DefaultMaxRetries = 3
)

type TaskInterface interface {
	Execute(ctx context.Context) error
	GetID() string
	GetType() TaskType
	GetRegions() []string
	GetRetryCount() int
	GetMaxRetries() int
	IncrementRetryCount()
	CanRetry() bool
	Start()
	GetDuration() time.Duration
}

type Task struct {
	ID         string
	Type       TaskType
	Regions    []string
	RetryCount int
	MaxRetries int
	StartedAt  *time.Time
}

func (t *Task) GetID() string {
	return t.ID
}

func (t *Task) GetType() TaskType {
	return t.Type
}

func (t *Task) GetRegions() []string {
	return t.Regions
}

func (t *Task) GetRetryCount() int {
	return t.RetryCount
}

func (t *Task) GetMaxRetries() int {
	return t.MaxRetries
}

func (t *Task) IncrementRetryCount() {
	t.RetryCount++
}

func (t *Task) CanRetry() bool {
	return t.RetryCount < t.MaxRetries
}

func (t *Task) Start() {
	now := time.Now()
	t.StartedAt = &now
}

func (t *Task) GetDuration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}
	return time.Since(*t.StartedAt)
}

func (t *Task) regionList() string {
	return strings.Join(t.Regions, ",")
}

func NewTask(taskType TaskType, regions []string) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		Regions:    regions,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
	}
}
