package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"installment_app_echo/internal/models"
	"installment_app_echo/internal/tasks"
)

var scheduleTaskCmd = &cobra.Command{
	Use:   "schedule-task",
	Short: "Queue a task for the worker",
	Example: `  ctl schedule-task --task-name log_info --arguments '{"message":"ping"}' --due "2025-01-01 09:00"
  ctl schedule-task --task-name overdue_scan --due now --tasktype recurring --recurring "FREQ=WEEKLY;BYDAY=MO"`,
	RunE: runScheduleTask,
}

func init() {
	rootCmd.AddCommand(scheduleTaskCmd)

	scheduleTaskCmd.Flags().String("task-name", "", "Name of the task (required)")
	scheduleTaskCmd.Flags().String("arguments", "{}", "JSON arguments for the task")
	scheduleTaskCmd.Flags().String("due", "now", "Due time: now, RFC3339 or '2006-01-02 15:04' (local time)")
	scheduleTaskCmd.Flags().String("tasktype", string(models.ScheduledTaskTypeOneTime), "onetime or recurring")
	scheduleTaskCmd.Flags().String("recurring", "", "RRULE for recurring tasks")
	scheduleTaskCmd.Flags().Int("max-attempt", 3, "Max attempts")
	_ = scheduleTaskCmd.MarkFlagRequired("task-name")
}

func parseDue(value string) (time.Time, error) {
	if value == "" || value == "now" {
		return time.Now(), nil
	}
	if due, err := time.Parse(time.RFC3339, value); err == nil {
		return due, nil
	}
	due, err := time.ParseInLocation("2006-01-02 15:04", value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid due date %q, use '2006-01-02 15:04' or RFC3339", value)
	}
	return due, nil
}

func runScheduleTask(cmd *cobra.Command, args []string) error {
	taskName, _ := cmd.Flags().GetString("task-name")
	argsStr, _ := cmd.Flags().GetString("arguments")
	dueStr, _ := cmd.Flags().GetString("due")
	taskType, _ := cmd.Flags().GetString("tasktype")
	recurring, _ := cmd.Flags().GetString("recurring")
	maxAttempt, _ := cmd.Flags().GetInt("max-attempt")

	var taskArgs map[string]interface{}
	if err := json.Unmarshal([]byte(argsStr), &taskArgs); err != nil {
		return fmt.Errorf("invalid JSON arguments: %w", err)
	}
	due, err := parseDue(dueStr)
	if err != nil {
		return err
	}

	var rule *string
	if recurring != "" {
		rule = &recurring
	}
	if models.ScheduledTaskType(taskType) == models.ScheduledTaskTypeRecurring && rule == nil {
		return fmt.Errorf("--recurring is required for recurring tasks")
	}

	task, err := tasks.BuildScheduledTask(taskName, taskArgs, due, rule, models.ScheduledTaskType(taskType), maxAttempt)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.DB.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created task %d: %s due %s (%s)\n", task.ID, task.TaskName, task.Due.Format(time.RFC3339), task.TaskType)
	return nil
}

var runTasksCmd = &cobra.Command{
	Use:   "run-tasks",
	Short: "Run every due task once and exit",
	RunE:  runRunTasks,
}

func init() {
	rootCmd.AddCommand(runTasksCmd)
}

func runRunTasks(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer app.Close()

	registry := tasks.NewRegistry()
	tasks.DefineTasks(registry, app.TaskDependencies())

	ran, err := tasks.NewRunner(app.DB, registry, app.Cache).RunDue(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ran %d tasks\n", ran)
	return nil
}
