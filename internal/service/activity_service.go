package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/events"
	"github.com/spec-kit/license-service/internal/repository"
)

// ActivityService records license lifecycle events into the audit sink.
// Recording is fire-and-forget: failures are logged and swallowed, the
// primary operation is never affected.
type ActivityService struct {
	logs   repository.ActivityLogRepository
	logger *zap.Logger
}

// NewActivityService creates the service.
func NewActivityService(logs repository.ActivityLogRepository, logger *zap.Logger) *ActivityService {
	return &ActivityService{logs: logs, logger: logger}
}

// RegisterHandlers subscribes to lifecycle events.
func (a *ActivityService) RegisterHandlers(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range []events.EventType{
		events.EventLicenseGenerated,
		events.EventHWIDBound,
		events.EventHWIDReset,
		events.EventLicenseExtended,
		events.EventLicenseRevoked,
		events.EventLicenseDeleted,
	} {
		dispatcher.Subscribe(eventType, a.handleEvent)
	}
}

func (a *ActivityService) handleEvent(ctx context.Context, event events.Event) error {
	a.Record(event.UserID, event.Type.ActivityEventType(),
		fmt.Sprintf("%s for license %s", event.Type, event.LicenseID),
		map[string]any{
			"license_id": event.LicenseID,
			"payload":    event.Payload,
		})
	return nil
}

// Record writes one audit row. Errors never propagate.
func (a *ActivityService) Record(userID string, eventType domain.ActivityEventType, details string, metadata map[string]any) {
	if a.logs == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	log := &domain.ActivityLog{
		ID:        uuid.NewString(),
		UserID:    userID,
		EventType: eventType,
		Details:   details,
		Metadata:  metadata,
	}
	if err := a.logs.Insert(ctx, log); err != nil {
		a.logger.Warn("activity log write failed",
			zap.String("user_id", userID),
			zap.String("event_type", string(eventType)),
			zap.Error(err))
	}
}

// RecentForUser lists a user's latest audit rows for the admin surface.
func (a *ActivityService) RecentForUser(ctx context.Context, userID string, limit int) ([]*domain.ActivityLog, error) {
	return a.logs.ListRecentByUser(ctx, userID, limit)
}
