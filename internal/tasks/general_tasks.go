package tasks

import (
	"context"

	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/models"
)

// LogInfoTaskDef writes its message to the log; operators use it to check the worker is alive
type LogInfoTaskDef struct{}

// TaskID returns the unique identifier for this task
func (t *LogInfoTaskDef) TaskID() string {
	return "log_info"
}

// HandleExecution handles logging information
func (t *LogInfoTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	message, ok := task.Arguments["message"].(string)
	if !ok {
		message = "No message provided"
	}

	taskLog := logger.WithComponent("tasks")
	taskLog.Info().Uint("task_id", task.ID).Str("message", message).Msg("log_info")

	return map[string]interface{}{
		"status":  "success",
		"message": message,
	}, nil
}

// LogInfoTask is the singleton instance of LogInfoTaskDef
var LogInfoTask = &LogInfoTaskDef{}
