package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var _ TaskSchedulerInterface = (*Scheduler)(nil)

const (
	StateQueued    = "queued"
	StateRunning   = "running"
	StateRetrying  = "retrying"
	StateCompleted = "completed"
	StateFailed    = "failed"
)

const (
	taskTimeout   = 10 * time.Minute
	maxRetryDelay = 30 * time.Second
	queueSize     = 100
	statusTTL     = time.Hour
)

// Status is a snapshot of a task's progress.
type Status struct {
	ID         string    `json:"id"`
	Type       TaskType  `json:"type"`
	Regions    []string  `json:"regions"`
	State      string    `json:"state"`
	RetryCount int       `json:"retry_count"`
	Relevant   int       `json:"relevant"`
	New        int       `json:"new"`
	Error      string    `json:"error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Scheduler runs tasks one at a time so that refreshes never overlap.
// With a positive interval it also enqueues the periodic task on every tick.
type Scheduler struct {
	interval time.Duration
	periodic func() TaskInterface
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	queue    chan TaskInterface

	mu        sync.RWMutex
	statuses  map[string]*Status
	statusTTL time.Duration
}

func NewScheduler(interval time.Duration, periodic func() TaskInterface) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		interval:  interval,
		periodic:  periodic,
		ctx:       ctx,
		cancel:    cancel,
		queue:     make(chan TaskInterface, queueSize),
		statuses:  make(map[string]*Status),
		statusTTL: statusTTL,
	}
}

func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.worker()

	if s.interval <= 0 || s.periodic == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				if err := s.EnqueueTask(s.periodic()); err != nil {
					slog.Warn("Failed to enqueue periodic task", "error", err)
				}
			}
		}
	}()
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

func (s *Scheduler) EnqueueTask(task TaskInterface) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}

	s.setState(task, StateQueued, nil)

	select {
	case s.queue <- task:
		return nil
	case <-s.ctx.Done():
		s.forget(task.GetID())
		return s.ctx.Err()
	default:
		s.forget(task.GetID())
		return fmt.Errorf("task queue is full")
	}
}

func (s *Scheduler) forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.statuses, id)
}

// Status returns the last known status of the task with the given id.
func (s *Scheduler) Status(id string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, ok := s.statuses[id]
	if !ok {
		return Status{}, false
	}
	return *status, true
}

func (s *Scheduler) setState(task TaskInterface, state string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	status, ok := s.statuses[task.GetID()]
	if !ok {
		s.pruneLocked()
		status = &Status{ID: task.GetID(), Type: task.GetType(), Regions: task.GetRegions()}
		s.statuses[task.GetID()] = status
	}

	status.State = state
	status.RetryCount = task.GetRetryCount()
	status.UpdatedAt = time.Now().UTC()
	status.Error = ""
	if err != nil {
		status.Error = err.Error()
	}
	if r, ok := task.(interface{ Result() (int, int) }); ok && state == StateCompleted {
		status.Relevant, status.New = r.Result()
	}
}

// pruneLocked drops finished statuses older than the retention period.
// Callers must hold s.mu.
func (s *Scheduler) pruneLocked() {
	cutoff := time.Now().UTC().Add(-s.statusTTL)
	for id, status := range s.statuses {
		if (status.State == StateCompleted || status.State == StateFailed) && status.UpdatedAt.Before(cutoff) {
			delete(s.statuses, id)
		}
	}
}

func (s *Scheduler) worker() {
	defer s.wg.Done()

	for {
		select {
		case task := <-s.queue:
			s.executeTask(task)
		case <-s.ctx.Done():
			return
		}
	}
}

func (s *Scheduler) executeTask(task TaskInterface) {
	task.Start()
	s.setState(task, StateRunning, nil)

	taskCtx, cancel := context.WithTimeout(s.ctx, taskTimeout)
	defer cancel()

	err := task.Execute(taskCtx)
	if err == nil {
		s.setState(task, StateCompleted, nil)
		return
	}

	slog.Error("Task execution failed", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "error", err)

	if !task.CanRetry() || s.ctx.Err() != nil {
		s.setState(task, StateFailed, err)
		slog.Error("Task failed after maximum retries", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "last_error", err)
		return
	}

	task.IncrementRetryCount()
	retryDelay := min(time.Duration(1<<uint(task.GetRetryCount()-1))*time.Second, maxRetryDelay)
	s.setState(task, StateRetrying, err)

	slog.Warn("Task retry scheduled", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount(), "max_retries", task.GetMaxRetries(), "delay", retryDelay.String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		select {
		case <-time.After(retryDelay):
		case <-s.ctx.Done():
			slog.Debug("Scheduler stopped, skipping task retry", "type", string(task.GetType()), "id", task.GetID())
			return
		}

		s.requeue(task)
	}()
}

func (s *Scheduler) requeue(task TaskInterface) {
	select {
	case s.queue <- task:
	case <-s.ctx.Done():
	default:
		s.setState(task, StateFailed, fmt.Errorf("task queue is full"))
		slog.Error("Failed to re-enqueue task for retry", "type", string(task.GetType()), "id", task.GetID(), "retry_count", task.GetRetryCount())
	}
}
