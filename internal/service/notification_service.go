package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/license-service/internal/config"
	"github.com/spec-kit/license-service/internal/events"
)

// NotificationService emits notifications for license lifecycle events.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventLicenseGenerated, n.handleLicenseGenerated)
	n.dispatcher.Subscribe(events.EventHWIDReset, n.handleHWIDReset)
	n.dispatcher.Subscribe(events.EventLicenseRevoked, n.handleLicenseRevoked)
}

func (n *NotificationService) handleLicenseGenerated(ctx context.Context, event events.Event) error {
	n.logger.Info("LicenseGenerated", zap.String("license_id", event.LicenseID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleHWIDReset(ctx context.Context, event events.Event) error {
	n.logger.Info("HWIDReset", zap.String("license_id", event.LicenseID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleLicenseRevoked(ctx context.Context, event events.Event) error {
	n.logger.Info("LicenseRevoked", zap.String("license_id", event.LicenseID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("license_id", event.LicenseID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("license_id", event.LicenseID),
		zap.String("event_type", string(event.Type)))
}
