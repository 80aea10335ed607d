// Package scheduler runs background tasks on fixed intervals.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/clarityfin/clarity/internal/logging"
)

// TaskHandler is the function executed for a task.
type TaskHandler func(ctx context.Context) error

// Task is a registered background job.
type Task struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Interval   time.Duration `json:"interval"`
	Handler    TaskHandler   `json:"-"`
	RunOnStart bool          `json:"run_on_start"`
	Timeout    time.Duration `json:"timeout"`

	LastRun    *time.Time `json:"last_run,omitempty"`
	RunCount   int64      `json:"run_count"`
	ErrorCount int64      `json:"error_count"`
	LastError  string     `json:"last_error,omitempty"`
}

// Scheduler manages interval tasks.
type Scheduler struct {
	tasks   map[string]*Task
	mu      sync.RWMutex
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	started bool
}

// New creates a scheduler.
func New() *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		tasks:  make(map[string]*Task),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Register adds a task. Must be called before Start.
func (s *Scheduler) Register(task *Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		return fmt.Errorf("task ID is required")
	}
	if task.Handler == nil {
		return fmt.Errorf("task handler is required")
	}
	if task.Interval <= 0 {
		return fmt.Errorf("task interval must be positive")
	}
	if task.Timeout == 0 {
		task.Timeout = 5 * time.Minute
	}
	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("task %s already registered", task.ID)
	}

	s.tasks[task.ID] = task

	if s.started {
		s.wg.Add(1)
		go s.runLoop(task)
	}
	return nil
}

// Start launches all registered tasks.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true

	for _, task := range s.tasks {
		s.wg.Add(1)
		go s.runLoop(task)
	}
}

// Stop cancels all tasks and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
}

// Tasks returns a snapshot of registered tasks.
func (s *Scheduler) Tasks() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, *t)
	}
	return out
}

func (s *Scheduler) runLoop(task *Task) {
	defer s.wg.Done()

	if task.RunOnStart {
		s.execute(task)
	}

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.execute(task)
		}
	}
}

func (s *Scheduler) execute(task *Task) {
	ctx, cancel := context.WithTimeout(s.ctx, task.Timeout)
	defer cancel()

	err := task.Handler(ctx)

	s.mu.Lock()
	now := time.Now().UTC()
	task.LastRun = &now
	task.RunCount++
	if err != nil {
		task.ErrorCount++
		task.LastError = err.Error()
	} else {
		task.LastError = ""
	}
	s.mu.Unlock()

	if err != nil {
		logging.Error("task %s failed: %v", task.ID, err)
	} else {
		logging.Debug("task %s completed", task.ID)
	}
}
