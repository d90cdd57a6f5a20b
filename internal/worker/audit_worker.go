package worker

import (
	"github.com/spec-kit/license-service/internal/events"
	"github.com/spec-kit/license-service/internal/service"
)

// StartAuditWorker registers activity and notification handlers on the
// dispatcher.
func StartAuditWorker(dispatcher events.Dispatcher, activity *service.ActivityService, notifications *service.NotificationService) {
	if activity != nil {
		activity.RegisterHandlers(dispatcher)
	}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
}
