package tasks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

const (
	// OverdueScanTaskID is the task name of the overdue scan
	OverdueScanTaskID = "overdue_scan"
	// DefaultOverdueScanRule runs the scan every morning
	DefaultOverdueScanRule = "FREQ=DAILY;BYHOUR=9;BYMINUTE=0;BYSECOND=0"
)

const (
	overdueSubject  = "Просроченные платежи"
	overdueTemplate = "Здравствуйте, $name!\n\nКлиенты с просроченными платежами ($count):\n$clients"
)

// OverdueScanTaskDef finds overdue contracts and schedules one reminder per responsible employee
type OverdueScanTaskDef struct {
	db       *gorm.DB
	clients  *services.ClientService
	accounts services.AccountProvider
	notifier *SendNotificationTaskDef
	now      func() time.Time
}

func NewOverdueScanTask(db *gorm.DB, clients *services.ClientService, accounts services.AccountProvider, notifier *SendNotificationTaskDef) *OverdueScanTaskDef {
	return &OverdueScanTaskDef{db: db, clients: clients, accounts: accounts, notifier: notifier, now: time.Now}
}

// TaskID returns the unique identifier for this task
func (t *OverdueScanTaskDef) TaskID() string {
	return OverdueScanTaskID
}

func (t *OverdueScanTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	grouped, err := t.clients.OverdueByAssignee(ctx)
	if err != nil {
		return nil, fmt.Errorf("find overdue clients: %w", err)
	}

	assignees := make([]string, 0, len(grouped))
	for uid := range grouped {
		assignees = append(assignees, uid)
	}
	sort.Strings(assignees)

	taskLog := logger.WithComponent("tasks")
	scheduled, skipped, total := 0, 0, 0
	for _, uid := range assignees {
		overdue := grouped[uid]
		total += len(overdue)

		account, err := t.accounts.Get(ctx, uid)
		if err != nil {
			taskLog.Warn().Err(err).Str("user_id", uid).Msg("Cannot resolve employee account, skipping reminder")
			skipped++
			continue
		}

		name := account.DisplayName
		if name == "" {
			name = account.Email
		}
		reminder, err := t.notifier.CreateTask(SendNotificationArgs{
			Users:         []NotificationUser{{UserID: uid, Username: name, Email: account.Email}},
			NotifTemplate: overdueTemplate,
			Subject:       overdueSubject,
			Clients:       overdue,
		}, t.now())
		if err != nil {
			return nil, err
		}
		if err := t.db.WithContext(ctx).Create(reminder).Error; err != nil {
			return nil, fmt.Errorf("schedule reminder: %w", err)
		}
		scheduled++
	}

	return map[string]interface{}{
		"overdue_clients": total,
		"employees":       len(assignees),
		"scheduled":       scheduled,
		"skipped":         skipped,
	}, nil
}

// EnsureOverdueScan creates the recurring overdue scan unless an active one already exists
func EnsureOverdueScan(ctx context.Context, db *gorm.DB, rule string, now time.Time) (*models.ScheduledTask, bool, error) {
	var existing models.ScheduledTask
	err := db.WithContext(ctx).
		Where("task_name = ? AND status = ?", OverdueScanTaskID, models.ScheduledTaskStatusActive).
		First(&existing).Error
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	task, err := BuildScheduledTask(OverdueScanTaskID, map[string]interface{}{}, now, &rule, models.ScheduledTaskTypeRecurring, 1)
	if err != nil {
		return nil, false, err
	}
	// start from the first occurrence after now rather than running immediately
	task.Due = task.NextDue(now)
	if err := db.WithContext(ctx).Create(task).Error; err != nil {
		return nil, false, err
	}
	return task, true, nil
}
