package tasks

import (
	"gorm.io/gorm"

	"installment_app_echo/internal/services"
)

// Dependencies are the services the task handlers need
type Dependencies struct {
	DB          *gorm.DB
	Clients     *services.ClientService
	Accounts    services.AccountProvider
	Preferences *services.PreferenceService
	Mailer      Mailer
	Messenger   Messenger
}

// DefineTasks registers all available tasks
func DefineTasks(r *Registry, deps Dependencies) {
	r.Register(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)

	notifier := NewSendNotificationTask(deps.DB, deps.Preferences, deps.Mailer, deps.Messenger)
	r.Register(notifier.TaskID(), notifier.HandleExecution)

	scan := NewOverdueScanTask(deps.DB, deps.Clients, deps.Accounts, notifier)
	r.Register(scan.TaskID(), scan.HandleExecution)
}
