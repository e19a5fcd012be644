package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"bannedemails/internal/domain"
)

// Matcher reports whether candidate is a member of banned.
type Matcher func(candidate string, banned []string) bool

// ExactMatch is case-sensitive membership. Entries are stored as typed, so
// "Foo@Bar.com" does not match "foo@bar.com".
func ExactMatch(candidate string, banned []string) bool {
	return slices.Contains(banned, candidate)
}

// FoldMatch is case-insensitive membership.
func FoldMatch(candidate string, banned []string) bool {
	return slices.ContainsFunc(banned, func(b string) bool {
		return strings.EqualFold(b, candidate)
	})
}

// IsBanned reports whether the checkout attempt uses a banned email, using
// exact membership. AccountEmail must already be resolved.
func IsBanned(attempt domain.CheckoutAttempt, banned []string) bool {
	return isBanned(attempt, banned, ExactMatch)
}

func isBanned(attempt domain.CheckoutAttempt, banned []string, match Matcher) bool {
	if len(banned) == 0 {
		return false
	}
	switch {
	case attempt.Authenticated():
		return match(attempt.AccountEmail, banned) || match(attempt.Email, banned)
	case attempt.LoggingIn():
		return attempt.AccountEmail != "" && match(attempt.AccountEmail, banned)
	default:
		return match(attempt.Email, banned)
	}
}

// MergeBannedList returns a filter that appends extra emails not already on the list.
func MergeBannedList(extra []string) domain.BannedListFilter {
	return func(_ context.Context, emails []string) []string {
		out := slices.Clone(emails)
		for _, e := range extra {
			if !slices.Contains(out, e) {
				out = append(out, e)
			}
		}
		return out
	}
}

// BanOption configures a BanService.
type BanOption func(*banService)

// WithFilters registers list filters, run in order after every read.
func WithFilters(filters ...domain.BannedListFilter) BanOption {
	return func(s *banService) { s.filters = append(s.filters, filters...) }
}

// WithMatcher replaces the membership test used at checkout.
func WithMatcher(m Matcher) BanOption {
	return func(s *banService) { s.match = m }
}

// WithNotifications sends an operator email to notifyTo for every blocked checkout.
func WithNotifications(n domain.NotificationService, notifyTo string) BanOption {
	return func(s *banService) {
		s.notifier = n
		s.notifyTo = notifyTo
	}
}

// WithRecorder records every checkout check outcome.
func WithRecorder(r domain.BanRecorder) BanOption {
	return func(s *banService) { s.recorder = r }
}

type banService struct {
	settings domain.SettingsStore
	accounts domain.AccountRepository
	nonces   domain.NonceManager
	logger   *slog.Logger
	filters  []domain.BannedListFilter
	match    Matcher
	notifier domain.NotificationService
	notifyTo string
	recorder domain.BanRecorder
	now      func() time.Time
}

// NewBanService creates a BanService over the given settings store, account
// repository and anti-forgery token manager.
func NewBanService(settings domain.SettingsStore, accounts domain.AccountRepository, nonces domain.NonceManager, logger *slog.Logger, opts ...BanOption) domain.BanService {
	s := &banService{
		settings: settings,
		accounts: accounts,
		nonces:   nonces,
		logger:   logger,
		match:    ExactMatch,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *banService) BannedEmails(ctx context.Context) ([]string, error) {
	emails, err := s.settings.GetStrings(ctx, domain.BannedEmailsKey)
	if err != nil {
		if !errors.Is(err, domain.ErrSettingNotFound) {
			return nil, fmt.Errorf("failed to load banned emails: %w", err)
		}
		emails = nil
	}
	if emails == nil {
		emails = []string{}
	}
	for _, filter := range s.filters {
		emails = filter(ctx, emails)
	}
	return emails, nil
}

func (s *banService) NewSaveToken(userID string) string {
	return s.nonces.Create(domain.BannedEmailsNonceAction, userID)
}

func (s *banService) SaveBannedEmails(ctx context.Context, rawText, token, userID string) error {
	if token == "" || !s.nonces.Verify(token, domain.BannedEmailsNonceAction, userID) {
		s.logger.WarnContext(ctx, "banned emails save ignored: invalid token", "user_id", userID)
		return nil
	}
	emails := NormalizeBannedEmails(rawText)
	if err := s.settings.SetStrings(ctx, domain.BannedEmailsKey, emails); err != nil {
		return fmt.Errorf("failed to save banned emails: %w", err)
	}
	s.logger.InfoContext(ctx, "banned emails saved", "user_id", userID, "count", len(emails))
	return nil
}

func (s *banService) CheckPurchase(ctx context.Context, attempt domain.CheckoutAttempt, errs domain.ValidationErrors) (bool, error) {
	banned, err := s.BannedEmails(ctx)
	if err != nil {
		return false, err
	}
	if len(banned) == 0 {
		s.record(false)
		return false, nil
	}

	attempt.AccountEmail = ""
	switch {
	case attempt.Authenticated():
		acct, err := s.lookup(ctx, s.accounts.GetByID, attempt.UserID)
		if err != nil {
			return false, err
		}
		if acct != nil {
			attempt.AccountEmail = acct.Email
		}
	case attempt.LoggingIn():
		acct, err := s.lookup(ctx, s.accounts.GetByLogin, attempt.UserLogin)
		if err != nil {
			return false, err
		}
		if acct != nil {
			attempt.AccountEmail = acct.Email
		}
	}

	if !isBanned(attempt, banned, s.match) {
		s.record(false)
		return false, nil
	}

	errs.Add(domain.ErrCodeEmailBanned, domain.EmailBannedMessage)
	s.record(true)
	s.logger.InfoContext(ctx, "checkout blocked",
		"email", attempt.Email,
		"account_email", attempt.AccountEmail,
		"user_id", attempt.UserID,
	)
	s.notify(ctx, attempt)
	return true, nil
}

// lookup resolves an account, treating a missing account as nil.
func (s *banService) lookup(ctx context.Context, get func(context.Context, string) (*domain.Account, error), key string) (*domain.Account, error) {
	if key == "" {
		return nil, nil
	}
	acct, err := get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return acct, nil
}

func (s *banService) record(banned bool) {
	if s.recorder != nil {
		s.recorder.RecordCheck(banned)
	}
}

func (s *banService) notify(ctx context.Context, attempt domain.CheckoutAttempt) {
	if s.notifier == nil || s.notifyTo == "" {
		return
	}
	data := &domain.CheckoutBlockedEmailData{
		To:           s.notifyTo,
		Email:        attempt.Email,
		AccountEmail: attempt.AccountEmail,
		UserID:       attempt.UserID,
		UserLogin:    attempt.UserLogin,
		BlockedAt:    s.now().UTC(),
	}
	if err := s.notifier.CheckoutBlocked(ctx, data); err != nil {
		s.logger.ErrorContext(ctx, "checkout blocked notification failed", "err", err)
	}
}
