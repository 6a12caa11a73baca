package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

const (
	defaultRetryDelay = 5 * time.Minute
	taskLockTTL       = 10 * time.Minute
)

// Runner executes due scheduled tasks and records every run in the task history
type Runner struct {
	db         *gorm.DB
	registry   *Registry
	cache      *services.RedisCache
	retryDelay time.Duration
	now        func() time.Time
	log        zerolog.Logger
}

// NewRunner creates a runner. cache may be nil; when set it guards each task with a lock so
// several workers can share one queue.
func NewRunner(db *gorm.DB, registry *Registry, cache *services.RedisCache) *Runner {
	return &Runner{
		db:         db,
		registry:   registry,
		cache:      cache,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
		log:        logger.WithComponent("worker"),
	}
}

// RunDue executes every active task whose due time has passed and returns how many ran
func (r *Runner) RunDue(ctx context.Context) (int, error) {
	var pending []models.ScheduledTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND due <= ?", models.ScheduledTaskStatusActive, r.now()).
		Order("due").
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("fetch pending tasks: %w", err)
	}

	if len(pending) == 0 {
		r.log.Debug().Msg("No pending tasks found")
		return 0, nil
	}
	r.log.Info().Int("count", len(pending)).Msg("Found pending tasks")

	ran := 0
	for _, task := range pending {
		if ctx.Err() != nil {
			return ran, ctx.Err()
		}
		if r.runLocked(ctx, task) {
			ran++
		}
	}
	return ran, nil
}

// runLocked takes the task lock, re-reads the task and executes it only if it is still due.
// The snapshot from RunDue may be stale when another worker ran the task in the meantime.
func (r *Runner) runLocked(ctx context.Context, task models.ScheduledTask) bool {
	lockKey := fmt.Sprintf("task-lock:%d", task.ID)
	acquired, err := r.cache.SetNX(ctx, lockKey, r.now().Unix(), taskLockTTL)
	if err != nil {
		r.log.Warn().Err(err).Uint("task_id", task.ID).Msg("Failed to take task lock, running anyway")
	} else if !acquired {
		r.log.Debug().Uint("task_id", task.ID).Msg("Task is locked by another worker")
		return false
	}
	defer func() {
		if err := r.cache.Delete(ctx, lockKey); err != nil {
			r.log.Warn().Err(err).Uint("task_id", task.ID).Msg("Failed to release task lock")
		}
	}()

	var current models.ScheduledTask
	err = r.db.WithContext(ctx).
		Where("id = ? AND status = ? AND due <= ?", task.ID, models.ScheduledTaskStatusActive, r.now()).
		First(&current).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		r.log.Debug().Uint("task_id", task.ID).Msg("Task already handled, skipping")
		return false
	}
	if err != nil {
		r.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to reload task")
		return false
	}

	r.Execute(ctx, current)
	return true
}

// Execute runs one task and moves it to its next state. A failed run is retried after the
// retry delay until MaxAttempt failures in a row; recurring tasks then move on to their
// next occurrence instead of failing for good.
func (r *Runner) Execute(ctx context.Context, task models.ScheduledTask) {
	db := r.db.WithContext(ctx)
	startTime := r.now()
	attempt := task.Attempts + 1

	handler, found := r.registry.Get(task.TaskName)
	if !found {
		r.log.Error().Str("task", task.TaskName).Uint("task_id", task.ID).Msg("Task handler not found, marking as failure")
		r.saveHistory(db, task, startTime, 0, "handler_not_found", attempt,
			map[string]interface{}{"error": "handler not found"})
		r.update(db, task, map[string]interface{}{
			"status":   models.ScheduledTaskStatusFailure,
			"last_run": startTime,
			"attempts": attempt,
		})
		return
	}

	r.log.Info().Str("task", task.TaskName).Uint("task_id", task.ID).Int("attempt", attempt).Msg("Processing task")
	result, err := runHandler(ctx, handler, task)
	runtime := r.now().Sub(startTime)

	status := "success"
	resultData := result
	if err != nil {
		status = "failure"
		resultData = map[string]interface{}{"error": err.Error()}
		r.log.Error().Err(err).Str("task", task.TaskName).Uint("task_id", task.ID).Msg("Task failed")
	} else {
		r.log.Info().Str("task", task.TaskName).Uint("task_id", task.ID).Dur("runtime", runtime).Msg("Task completed")
	}
	r.saveHistory(db, task, startTime, runtime, status, attempt, resultData)

	updates := map[string]interface{}{"last_run": startTime}
	switch {
	case err == nil:
		updates["attempts"] = 0
		r.advance(task, startTime, updates)
	case attempt < task.MaxAttempt && !errors.Is(err, ErrNoRetry):
		updates["attempts"] = attempt
		updates["due"] = startTime.Add(r.retryDelay)
	case task.TaskType == models.ScheduledTaskTypeRecurring:
		updates["attempts"] = 0
		r.advance(task, startTime, updates)
	default:
		updates["attempts"] = attempt
		updates["status"] = models.ScheduledTaskStatusFailure
	}
	r.update(db, task, updates)
}

// advance finishes a one-time task or moves a recurring one to its next occurrence
func (r *Runner) advance(task models.ScheduledTask, now time.Time, updates map[string]interface{}) {
	if task.TaskType != models.ScheduledTaskTypeRecurring {
		updates["status"] = models.ScheduledTaskStatusDone
		return
	}

	// a next due that is not after the current one would run the task again immediately
	nextDue := task.NextDue(now)
	if nextDue.After(task.Due) {
		updates["status"] = models.ScheduledTaskStatusActive
		updates["due"] = nextDue
	} else {
		updates["status"] = models.ScheduledTaskStatusDone
	}
}

func (r *Runner) update(db *gorm.DB, task models.ScheduledTask, updates map[string]interface{}) {
	if err := db.Model(&models.ScheduledTask{}).Where("id = ?", task.ID).Updates(updates).Error; err != nil {
		r.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to update task")
	}
}

func (r *Runner) saveHistory(db *gorm.DB, task models.ScheduledTask, runAt time.Time, runtime time.Duration, status string, attempt int, result map[string]interface{}) {
	history := models.ScheduledTaskHistory{
		ScheduledTaskID: task.ID,
		TaskName:        task.TaskName,
		RunAt:           runAt,
		Runtime:         int(runtime.Milliseconds()),
		Status:          status,
		AttemptNumber:   attempt,
		Arguments:       task.Arguments,
		Result:          result,
	}
	if err := db.Create(&history).Error; err != nil {
		r.log.Error().Err(err).Uint("task_id", task.ID).Msg("Failed to save task history")
	}
}

func runHandler(ctx context.Context, handler TaskHandler, task models.ScheduledTask) (result map[string]interface{}, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("task panicked: %v", p)
		}
	}()
	return handler(ctx, task)
}
