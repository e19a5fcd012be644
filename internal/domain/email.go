package domain

import (
	"context"
	"time"
)

// Mailer defines the contract for sending emails (infrastructure port).
type Mailer interface {
	Send(ctx context.Context, to, subject, html, text string) error
}

// EmailTemplateRenderer renders email content from a named template with the given data.
type EmailTemplateRenderer interface {
	Render(templateName string, data any) (subject, htmlBody, textBody string, err error)
}

// CheckoutBlockedEmailData holds data for the operator notification sent
// when a checkout is rejected.
type CheckoutBlockedEmailData struct {
	To           string
	Email        string
	AccountEmail string
	UserID       string
	UserLogin    string
	BlockedAt    time.Time
}

// NotificationService sends operator-facing notifications.
type NotificationService interface {
	CheckoutBlocked(ctx context.Context, data *CheckoutBlockedEmailData) error
}
