package services

import (
	"context"
	"fmt"
	"log/slog"

	"bannedemails/internal/domain"
)

type notificationService struct {
	mailer   domain.Mailer
	renderer domain.EmailTemplateRenderer
	logger   *slog.Logger
}

// NewNotificationService returns a NotificationService that uses the given Mailer and template renderer.
func NewNotificationService(mailer domain.Mailer, renderer domain.EmailTemplateRenderer, logger *slog.Logger) domain.NotificationService {
	return &notificationService{mailer: mailer, renderer: renderer, logger: logger}
}

// CheckoutBlocked sends the operator notification using the "checkout_blocked" template.
func (s *notificationService) CheckoutBlocked(ctx context.Context, data *domain.CheckoutBlockedEmailData) error {
	if data == nil {
		return fmt.Errorf("checkout blocked data is nil")
	}
	if data.To == "" {
		return fmt.Errorf("checkout blocked recipient is empty")
	}
	subject, htmlBody, textBody, err := s.renderer.Render("checkout_blocked", data)
	if err != nil {
		return fmt.Errorf("failed to render checkout_blocked template: %w", err)
	}
	if err := s.mailer.Send(ctx, data.To, subject, htmlBody, textBody); err != nil {
		return fmt.Errorf("failed to send checkout blocked email: %w", err)
	}
	s.logger.InfoContext(ctx, "checkout blocked notification sent", "notify_email", data.To)
	return nil
}
