package domain

import "context"

// BannedEmailsNonceAction is the anti-forgery action for saving the banned list.
const BannedEmailsNonceAction = "edd_banned_emails_nonce"

// BannedListFilter post-processes the banned list after it is read from
// settings, e.g. to merge an externally managed list.
type BannedListFilter func(ctx context.Context, emails []string) []string

// BanRecorder records the outcome of checkout checks.
type BanRecorder interface {
	RecordCheck(banned bool)
}

// BanService reads and saves the banned list and validates checkouts against it.
type BanService interface {
	// BannedEmails returns the current banned list after filters, or an empty list if unset.
	BannedEmails(ctx context.Context) ([]string, error)
	// SaveBannedEmails normalizes rawText and overwrites the stored list. An
	// invalid token is a silent no-op.
	SaveBannedEmails(ctx context.Context, rawText, token, userID string) error
	// NewSaveToken issues the anti-forgery token for the admin form.
	NewSaveToken(userID string) string
	// CheckPurchase adds ErrCodeEmailBanned to errs when the attempt is banned.
	CheckPurchase(ctx context.Context, attempt CheckoutAttempt, errs ValidationErrors) (bool, error)
}
