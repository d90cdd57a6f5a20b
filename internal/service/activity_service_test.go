package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/domain"
	"github.com/spec-kit/license-service/internal/events"
)

// mockActivityLogRepo is an in-memory ActivityLogRepository.
type mockActivityLogRepo struct {
	rows     []*domain.ActivityLog
	failWith error
}

func (m *mockActivityLogRepo) Insert(_ context.Context, log *domain.ActivityLog) error {
	if m.failWith != nil {
		return m.failWith
	}
	m.rows = append(m.rows, log)
	return nil
}

func (m *mockActivityLogRepo) ListRecentByUser(_ context.Context, userID string, limit int) ([]*domain.ActivityLog, error) {
	var out []*domain.ActivityLog
	for _, row := range m.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func TestActivityService_RecordsDispatchedEvents(t *testing.T) {
	repo := &mockActivityLogRepo{}
	svc := NewActivityService(repo, zap.NewNop())
	dispatcher := events.NewInMemoryDispatcher()
	svc.RegisterHandlers(dispatcher)

	err := dispatcher.Publish(context.Background(), events.Event{
		ID:        "evt-1",
		Type:      events.EventHWIDReset,
		LicenseID: "lic-1",
		UserID:    "user-1",
		Timestamp: time.Now(),
		Payload:   events.HWIDResetPayload{PreviousHWID: "device-1"},
	})
	if err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 audit row, got %d", len(repo.rows))
	}
	row := repo.rows[0]
	if row.EventType != domain.ActivityHWIDReset {
		t.Errorf("event_type = %q, want %q", row.EventType, domain.ActivityHWIDReset)
	}
	if row.UserID != "user-1" {
		t.Errorf("user_id = %q, want user-1", row.UserID)
	}
	if row.Metadata["license_id"] != "lic-1" {
		t.Errorf("metadata.license_id = %v, want lic-1", row.Metadata["license_id"])
	}
}

func TestActivityService_SinkFailureIsSwallowed(t *testing.T) {
	repo := &mockActivityLogRepo{failWith: errors.New("sink down")}
	svc := NewActivityService(repo, zap.NewNop())

	// must not panic or propagate
	svc.Record("user-1", domain.ActivityLicenseGenerated, "generated", nil)
}
