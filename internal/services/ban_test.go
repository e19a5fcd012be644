package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"bannedemails/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeSettingsStore implements domain.SettingsStore for tests.
type fakeSettingsStore struct {
	values   map[string][]string
	getErr   error
	setErr   error
	setCalls int
}

func newFakeSettingsStore() *fakeSettingsStore {
	return &fakeSettingsStore{values: make(map[string][]string)}
}

func (f *fakeSettingsStore) GetStrings(ctx context.Context, key string) ([]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.values[key]
	if !ok {
		return nil, domain.ErrSettingNotFound
	}
	return v, nil
}

func (f *fakeSettingsStore) SetStrings(ctx context.Context, key string, values []string) error {
	f.setCalls++
	if f.setErr != nil {
		return f.setErr
	}
	f.values[key] = values
	return nil
}

// fakeAccountRepo implements domain.AccountRepository for tests.
type fakeAccountRepo struct {
	byID    map[string]*domain.Account
	byLogin map[string]*domain.Account
	err     error
	calls   int
}

func newFakeAccountRepo(accounts ...*domain.Account) *fakeAccountRepo {
	f := &fakeAccountRepo{byID: make(map[string]*domain.Account), byLogin: make(map[string]*domain.Account)}
	for _, a := range accounts {
		f.byID[a.ID] = a
		f.byLogin[a.Login] = a
	}
	return f
}

func (f *fakeAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

func (f *fakeAccountRepo) GetByLogin(ctx context.Context, login string) (*domain.Account, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if a, ok := f.byLogin[login]; ok {
		return a, nil
	}
	return nil, domain.ErrAccountNotFound
}

// fakeNonces implements domain.NonceManager for tests. A nonce is valid when
// it equals "nonce:<action>:<userID>".
type fakeNonces struct{}

func (fakeNonces) Create(action, userID string) string { return "nonce:" + action + ":" + userID }
func (n fakeNonces) Verify(nonce, action, userID string) bool {
	return nonce == n.Create(action, userID)
}

// fakeRecorder implements domain.BanRecorder for tests.
type fakeRecorder struct {
	banned, allowed int
}

func (f *fakeRecorder) RecordCheck(banned bool) {
	if banned {
		f.banned++
		return
	}
	f.allowed++
}

// fakeNotifier implements domain.NotificationService for tests.
type fakeNotifier struct {
	sent []*domain.CheckoutBlockedEmailData
	err  error
}

func (f *fakeNotifier) CheckoutBlocked(ctx context.Context, data *domain.CheckoutBlockedEmailData) error {
	f.sent = append(f.sent, data)
	return f.err
}

func TestIsBanned(t *testing.T) {
	banned := []string{"banned@example.com", "acct@example.com", "Foo@Bar.com"}

	tests := []struct {
		name    string
		attempt domain.CheckoutAttempt
		banned  []string
		want    bool
	}{
		{
			name:    "guest with banned email",
			attempt: domain.CheckoutAttempt{Email: "banned@example.com"},
			banned:  banned,
			want:    true,
		},
		{
			name:    "guest with allowed email",
			attempt: domain.CheckoutAttempt{Email: "ok@example.com"},
			banned:  banned,
			want:    false,
		},
		{
			name:    "guest ignores account email",
			attempt: domain.CheckoutAttempt{Email: "ok@example.com", AccountEmail: "acct@example.com"},
			banned:  banned,
			want:    false,
		},
		{
			name:    "authenticated account email alone triggers ban",
			attempt: domain.CheckoutAttempt{UserID: "7", Email: "other@example.com", AccountEmail: "acct@example.com"},
			banned:  banned,
			want:    true,
		},
		{
			name:    "authenticated posted email triggers ban",
			attempt: domain.CheckoutAttempt{UserID: "7", Email: "banned@example.com", AccountEmail: "clean@example.com"},
			banned:  banned,
			want:    true,
		},
		{
			name:    "authenticated clean",
			attempt: domain.CheckoutAttempt{UserID: "7", Email: "clean@example.com", AccountEmail: "clean@example.com"},
			banned:  banned,
			want:    false,
		},
		{
			name:    "logging in with banned account email and no posted email",
			attempt: domain.CheckoutAttempt{PurchaseState: domain.PurchaseStateNeedsToLogin, UserLogin: "acct", AccountEmail: "acct@example.com"},
			banned:  banned,
			want:    true,
		},
		{
			name:    "logging in ignores posted email",
			attempt: domain.CheckoutAttempt{PurchaseState: domain.PurchaseStateNeedsToLogin, UserLogin: "x", Email: "banned@example.com"},
			banned:  banned,
			want:    false,
		},
		{
			name:    "logging in unknown account",
			attempt: domain.CheckoutAttempt{PurchaseState: domain.PurchaseStateNeedsToLogin, UserLogin: "nobody"},
			banned:  banned,
			want:    false,
		},
		{
			name:    "case mismatch is not banned",
			attempt: domain.CheckoutAttempt{Email: "foo@bar.com"},
			banned:  banned,
			want:    false,
		},
		{
			name:    "empty list never bans",
			attempt: domain.CheckoutAttempt{UserID: "7", Email: "banned@example.com", AccountEmail: "banned@example.com"},
			banned:  nil,
			want:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsBanned(tt.attempt, tt.banned))
		})
	}
}

func TestFoldMatch(t *testing.T) {
	assert.True(t, FoldMatch("foo@bar.com", []string{"Foo@Bar.com"}))
	assert.False(t, FoldMatch("foo@baz.com", []string{"Foo@Bar.com"}))
	assert.False(t, ExactMatch("foo@bar.com", []string{"Foo@Bar.com"}))
}

func TestBanService_BannedEmails(t *testing.T) {
	ctx := context.Background()

	t.Run("unset returns empty list", func(t *testing.T) {
		svc := NewBanService(newFakeSettingsStore(), newFakeAccountRepo(), fakeNonces{}, testLogger)
		emails, err := svc.BannedEmails(ctx)
		require.NoError(t, err)
		assert.NotNil(t, emails)
		assert.Empty(t, emails)
	})

	t.Run("store error is wrapped", func(t *testing.T) {
		store := newFakeSettingsStore()
		store.getErr = errors.New("connection refused")
		svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger)
		_, err := svc.BannedEmails(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("filters run in order", func(t *testing.T) {
		store := newFakeSettingsStore()
		store.values[domain.BannedEmailsKey] = []string{"a@example.com"}
		var order []string
		first := func(_ context.Context, in []string) []string {
			order = append(order, "first")
			return append(in, "b@example.com")
		}
		second := func(_ context.Context, in []string) []string {
			order = append(order, "second")
			return in[1:]
		}
		svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger, WithFilters(first, second))
		emails, err := svc.BannedEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"b@example.com"}, emails)
		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("merge filter appends missing entries", func(t *testing.T) {
		store := newFakeSettingsStore()
		store.values[domain.BannedEmailsKey] = []string{"a@example.com"}
		svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger,
			WithFilters(MergeBannedList([]string{"a@example.com", "ops@example.com"})))
		emails, err := svc.BannedEmails(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"a@example.com", "ops@example.com"}, emails)
		assert.Equal(t, []string{"a@example.com"}, store.values[domain.BannedEmailsKey])
	})
}

func TestBanService_SaveBannedEmails(t *testing.T) {
	ctx := context.Background()
	valid := fakeNonces{}.Create(domain.BannedEmailsNonceAction, "admin-1")

	tests := []struct {
		name     string
		raw      string
		token    string
		userID   string
		setErr   error
		wantErr  bool
		wantSet  bool
		wantList []string
	}{
		{
			name:     "valid token stores normalized list",
			raw:      " a@example.com \nnope\nB@Example.com",
			token:    valid,
			userID:   "admin-1",
			wantSet:  true,
			wantList: []string{"a@example.com", "B@Example.com"},
		},
		{
			name:     "empty text clears list",
			raw:      "",
			token:    valid,
			userID:   "admin-1",
			wantSet:  true,
			wantList: []string{},
		},
		{
			name:     "invalid token is a silent no-op",
			raw:      "a@example.com",
			token:    "forged",
			userID:   "admin-1",
			wantList: []string{"old@example.com"},
		},
		{
			name:     "missing token is a silent no-op",
			raw:      "a@example.com",
			token:    "",
			userID:   "admin-1",
			wantList: []string{"old@example.com"},
		},
		{
			name:     "token for another user is rejected",
			raw:      "a@example.com",
			token:    valid,
			userID:   "admin-2",
			wantList: []string{"old@example.com"},
		},
		{
			name:     "store error",
			raw:      "a@example.com",
			token:    valid,
			userID:   "admin-1",
			setErr:   errors.New("disk full"),
			wantErr:  true,
			wantSet:  true,
			wantList: []string{"old@example.com"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSettingsStore()
			store.values[domain.BannedEmailsKey] = []string{"old@example.com"}
			store.setErr = tt.setErr
			svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger)

			err := svc.SaveBannedEmails(ctx, tt.raw, tt.token, tt.userID)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			if tt.wantSet {
				assert.Equal(t, 1, store.setCalls)
			} else {
				assert.Zero(t, store.setCalls)
			}
			assert.Equal(t, tt.wantList, store.values[domain.BannedEmailsKey])
		})
	}
}

func TestBanService_NewSaveToken(t *testing.T) {
	svc := NewBanService(newFakeSettingsStore(), newFakeAccountRepo(), fakeNonces{}, testLogger)
	assert.Equal(t, "nonce:edd_banned_emails_nonce:admin-1", svc.NewSaveToken("admin-1"))
}

func TestBanService_CheckPurchase(t *testing.T) {
	ctx := context.Background()
	accounts := []*domain.Account{
		{ID: "1", Login: "acct", Email: "acct@example.com"},
		{ID: "2", Login: "clean", Email: "clean@example.com"},
	}

	tests := []struct {
		name       string
		banned     []string
		attempt    domain.CheckoutAttempt
		repoErr    error
		wantBanned bool
		wantErr    bool
		wantLookup bool
	}{
		{
			name:       "guest banned",
			banned:     []string{"banned@example.com"},
			attempt:    domain.CheckoutAttempt{Email: "banned@example.com"},
			wantBanned: true,
		},
		{
			name:    "guest allowed",
			banned:  []string{"banned@example.com"},
			attempt: domain.CheckoutAttempt{Email: "ok@example.com"},
		},
		{
			name:       "authenticated account email banned",
			banned:     []string{"acct@example.com"},
			attempt:    domain.CheckoutAttempt{UserID: "1", Email: "different@example.com"},
			wantBanned: true,
			wantLookup: true,
		},
		{
			name:       "authenticated posted email banned with missing account",
			banned:     []string{"banned@example.com"},
			attempt:    domain.CheckoutAttempt{UserID: "404", Email: "banned@example.com"},
			wantBanned: true,
			wantLookup: true,
		},
		{
			name:       "logging in account email banned",
			banned:     []string{"acct@example.com"},
			attempt:    domain.CheckoutAttempt{PurchaseState: domain.PurchaseStateNeedsToLogin, UserLogin: "acct"},
			wantBanned: true,
			wantLookup: true,
		},
		{
			name:       "logging in clean account",
			banned:     []string{"acct@example.com"},
			attempt:    domain.CheckoutAttempt{PurchaseState: domain.PurchaseStateNeedsToLogin, UserLogin: "clean"},
			wantLookup: true,
		},
		{
			name:       "posted account email is ignored",
			banned:     []string{"acct@example.com"},
			attempt:    domain.CheckoutAttempt{UserID: "2", Email: "clean@example.com", AccountEmail: "acct@example.com"},
			wantLookup: true,
		},
		{
			name:    "empty list skips lookups",
			banned:  nil,
			attempt: domain.CheckoutAttempt{UserID: "1", Email: "acct@example.com"},
		},
		{
			name:       "account repository error",
			banned:     []string{"acct@example.com"},
			attempt:    domain.CheckoutAttempt{UserID: "1"},
			repoErr:    errors.New("timeout"),
			wantErr:    true,
			wantLookup: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeSettingsStore()
			if tt.banned != nil {
				store.values[domain.BannedEmailsKey] = tt.banned
			}
			repo := newFakeAccountRepo(accounts...)
			repo.err = tt.repoErr
			rec := &fakeRecorder{}
			svc := NewBanService(store, repo, fakeNonces{}, testLogger, WithRecorder(rec))

			errs := domain.ValidationErrors{"invalid_card": "Card declined"}
			banned, err := svc.CheckPurchase(ctx, tt.attempt, errs)
			if tt.wantErr {
				require.Error(t, err)
				assert.False(t, errs.Has(domain.ErrCodeEmailBanned))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBanned, banned)
			assert.Equal(t, tt.wantBanned, errs.Has(domain.ErrCodeEmailBanned))
			assert.Equal(t, "Card declined", errs["invalid_card"])
			if tt.wantBanned {
				assert.Equal(t, domain.EmailBannedMessage, errs[domain.ErrCodeEmailBanned])
				assert.Equal(t, 1, rec.banned)
			} else {
				assert.Equal(t, 1, rec.allowed)
			}
			assert.Equal(t, tt.wantLookup, repo.calls > 0)
		})
	}
}

func TestBanService_CheckPurchase_caseInsensitiveMatcher(t *testing.T) {
	store := newFakeSettingsStore()
	store.values[domain.BannedEmailsKey] = []string{"Foo@Bar.com"}
	attempt := domain.CheckoutAttempt{Email: "foo@bar.com"}

	exact := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger)
	banned, err := exact.CheckPurchase(context.Background(), attempt, domain.ValidationErrors{})
	require.NoError(t, err)
	assert.False(t, banned)

	folded := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger, WithMatcher(FoldMatch))
	banned, err = folded.CheckPurchase(context.Background(), attempt, domain.ValidationErrors{})
	require.NoError(t, err)
	assert.True(t, banned)
}

func TestBanService_CheckPurchase_notifies(t *testing.T) {
	store := newFakeSettingsStore()
	store.values[domain.BannedEmailsKey] = []string{"banned@example.com"}

	t.Run("sends notification on block", func(t *testing.T) {
		n := &fakeNotifier{}
		svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger, WithNotifications(n, "ops@shop.example"))
		banned, err := svc.CheckPurchase(context.Background(), domain.CheckoutAttempt{Email: "banned@example.com"}, domain.ValidationErrors{})
		require.NoError(t, err)
		assert.True(t, banned)
		require.Len(t, n.sent, 1)
		assert.Equal(t, "ops@shop.example", n.sent[0].To)
		assert.Equal(t, "banned@example.com", n.sent[0].Email)
		assert.False(t, n.sent[0].BlockedAt.IsZero())
	})

	t.Run("notification failure does not fail the check", func(t *testing.T) {
		n := &fakeNotifier{err: errors.New("ses down")}
		svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger, WithNotifications(n, "ops@shop.example"))
		errs := domain.ValidationErrors{}
		banned, err := svc.CheckPurchase(context.Background(), domain.CheckoutAttempt{Email: "banned@example.com"}, errs)
		require.NoError(t, err)
		assert.True(t, banned)
		assert.True(t, errs.Has(domain.ErrCodeEmailBanned))
	})

	t.Run("no notification when allowed or recipient unset", func(t *testing.T) {
		n := &fakeNotifier{}
		svc := NewBanService(store, newFakeAccountRepo(), fakeNonces{}, testLogger, WithNotifications(n, ""))
		_, err := svc.CheckPurchase(context.Background(), domain.CheckoutAttempt{Email: "banned@example.com"}, domain.ValidationErrors{})
		require.NoError(t, err)
		assert.Empty(t, n.sent)
	})
}
