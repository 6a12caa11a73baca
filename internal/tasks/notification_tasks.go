package tasks

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"installment_app_echo/internal/logger"
	"installment_app_echo/internal/models"
	"installment_app_echo/internal/services"
)

const notificationRetryDelay = 5 * time.Minute

// Mailer delivers e-mail notifications
type Mailer interface {
	SendEmail(to []string, subject, body string) error
}

// Messenger delivers WhatsApp notifications
type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string) error
}

// NotificationUser represents the user in the notification payload
type NotificationUser struct {
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phonenumber"`
}

// SendNotificationArgs defines the arguments for a notification task
type SendNotificationArgs struct {
	Users         []NotificationUser       `json:"users"`
	NotifTemplate string                   `json:"notiftemplate"`
	Subject       string                   `json:"subject"`
	Clients       []services.OverdueClient `json:"clients,omitempty"`
	AttemptCount  int                      `json:"attempt_count"`
}

// SendNotificationTaskDef delivers a message to each user over the channel they chose
type SendNotificationTaskDef struct {
	db        *gorm.DB
	prefs     *services.PreferenceService
	mailer    Mailer
	messenger Messenger
	now       func() time.Time
}

func NewSendNotificationTask(db *gorm.DB, prefs *services.PreferenceService, mailer Mailer, messenger Messenger) *SendNotificationTaskDef {
	return &SendNotificationTaskDef{db: db, prefs: prefs, mailer: mailer, messenger: messenger, now: time.Now}
}

// TaskID returns the unique identifier for this task
func (t *SendNotificationTaskDef) TaskID() string {
	return "send_notification"
}

// CreateTask builds a ScheduledTask record for this task
func (t *SendNotificationTaskDef) CreateTask(args SendNotificationArgs, due time.Time) (*models.ScheduledTask, error) {
	return BuildScheduledTask(t.TaskID(), args, due, nil, models.ScheduledTaskTypeOneTime, 3)
}

// HandleExecution sends to every user; users that failed are rescheduled as a new task until
// the attempts run out.
func (t *SendNotificationTaskDef) HandleExecution(ctx context.Context, task models.ScheduledTask) (map[string]interface{}, error) {
	var args SendNotificationArgs
	if err := decodeArgs(task, &args); err != nil {
		return nil, err
	}
	if args.NotifTemplate == "" {
		return nil, fmt.Errorf("%w: notiftemplate is missing", ErrNoRetry)
	}

	taskLog := logger.WithComponent("tasks")

	uids := make([]string, 0, len(args.Users))
	for _, u := range args.Users {
		uids = append(uids, u.UserID)
	}
	prefs, err := t.prefs.ForUsers(ctx, uids)
	if err != nil {
		return nil, fmt.Errorf("load preferences: %w", err)
	}

	successCount, skippedCount := 0, 0
	var failures []string
	var failedUsers []NotificationUser

	for _, user := range args.Users {
		pref, ok := prefs[user.UserID]
		if !ok {
			pref = models.UserNotifPreference{UserID: user.UserID, Channel: models.NotificationChannelEmail}
		}

		var sendErr error
		switch pref.Channel {
		case models.NotificationChannelEmail:
			sendErr = t.sendEmail(user, args)
		case models.NotificationChannelWhatsapp:
			sendErr = t.sendWhatsapp(ctx, user, args, pref)
		case models.NotificationChannelNone:
			taskLog.Debug().Str("user_id", user.UserID).Msg("Notifications disabled, skipping")
			skippedCount++
			continue
		default:
			taskLog.Warn().Str("user_id", user.UserID).Str("channel", string(pref.Channel)).Msg("Unsupported notification channel")
			skippedCount++
			continue
		}

		if sendErr != nil {
			taskLog.Error().Err(sendErr).Str("user_id", user.UserID).Str("channel", string(pref.Channel)).Msg("Failed to send notification")
			failures = append(failures, fmt.Sprintf("%s: %v", user.Username, sendErr))
			failedUsers = append(failedUsers, user)
			continue
		}
		successCount++
	}

	result := map[string]interface{}{
		"total":   len(args.Users),
		"success": successCount,
		"skipped": skippedCount,
		"failure": len(failedUsers),
	}
	if len(failedUsers) == 0 {
		return result, nil
	}
	result["errors"] = failures

	if args.AttemptCount+1 >= task.MaxAttempt {
		return result, fmt.Errorf("%w: max attempts reached, failed to deliver to %d users", ErrNoRetry, len(failedUsers))
	}

	retry := args
	retry.Users = failedUsers
	retry.AttemptCount = args.AttemptCount + 1

	next, err := BuildScheduledTask(t.TaskID(), retry, t.now().Add(notificationRetryDelay), nil, models.ScheduledTaskTypeOneTime, task.MaxAttempt)
	if err != nil {
		return result, fmt.Errorf("build retry task: %w", err)
	}
	if err := t.db.WithContext(ctx).Create(next).Error; err != nil {
		return result, fmt.Errorf("schedule retry task: %w", err)
	}
	result["retry_task_id"] = next.ID
	taskLog.Info().Int("users", len(failedUsers)).Int("attempt", retry.AttemptCount).Msg("Partial failure, rescheduled")
	return result, nil
}

func (t *SendNotificationTaskDef) sendEmail(user NotificationUser, args SendNotificationArgs) error {
	if t.mailer == nil {
		return fmt.Errorf("email is not configured")
	}
	if user.Email == "" {
		return fmt.Errorf("user has no email")
	}

	subject := "Notification"
	if args.Subject != "" {
		subject = args.Subject
	}
	return t.mailer.SendEmail([]string{user.Email}, subject, replacePlaceholders(args.NotifTemplate, user, args))
}

func (t *SendNotificationTaskDef) sendWhatsapp(ctx context.Context, user NotificationUser, args SendNotificationArgs, pref models.UserNotifPreference) error {
	if t.messenger == nil {
		return fmt.Errorf("whatsapp is not configured")
	}

	var chatID string
	if pref.WhatsappTargetType == models.WhatsappTargetTypeGroup {
		chatID = pref.WhatsappGroupID
		if chatID == "" {
			return fmt.Errorf("group ID is empty")
		}
		if !strings.HasSuffix(chatID, "@g.us") {
			chatID += "@g.us"
		}
	} else {
		chatID = pref.Phone
		if chatID == "" {
			chatID = user.PhoneNumber
		}
		if chatID == "" {
			return fmt.Errorf("phone number is empty")
		}
	}

	return t.messenger.SendMessage(ctx, chatID, replacePlaceholders(args.NotifTemplate, user, args))
}

func replacePlaceholders(template string, user NotificationUser, args SendNotificationArgs) string {
	name := user.Username
	if name == "" {
		name = user.Email
	}

	var lines []string
	for _, c := range args.Clients {
		lines = append(lines, fmt.Sprintf("- %s: %.2f", c.FullName, c.Outstanding))
	}

	r := strings.NewReplacer(
		"$username", name,
		"$name", name,
		"$email", user.Email,
		"$subject", args.Subject,
		"$count", fmt.Sprint(len(args.Clients)),
		"$clients", strings.Join(lines, "\n"),
	)
	return r.Replace(template)
}
