package domain

import (
	"context"
	"errors"
)

// ErrSettingNotFound is returned when a settings key has never been written.
var ErrSettingNotFound = errors.New("setting not found")

// BannedEmailsKey is the settings key holding the banned email list.
const BannedEmailsKey = "banned_emails"

// SettingsStore is a narrow key-value accessor over the host's settings.
// Values are ordered lists of strings; Set overwrites the whole value.
type SettingsStore interface {
	GetStrings(ctx context.Context, key string) ([]string, error)
	SetStrings(ctx context.Context, key string, values []string) error
}
