package models

import (
	"strings"
	"time"
)

// Account is a single identity record. Salt and PasswordHash are always
// replaced together, as are RecoveryCode and RecoveryExpiresAt.
type Account struct {
	ID                         int64
	RoleID                     int64
	Username                   string
	Email                      string
	PictureURL                 string
	Salt                       []byte
	PasswordHash               []byte
	RecoveryCode               *string
	RecoveryExpiresAt          *time.Time
	IsPasswordResetPending     bool
	IsPasswordTemporary        bool // true until the holder picks their own password
	LastPasswordChangeAt       time.Time
	LastPasswordResetRequestAt *time.Time
	IsActive                   bool
	Version                    int64 // optimistic concurrency token, bumped by every update
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// SetCredential installs a new salt and hash pair and drops any outstanding
// recovery state.
func (a *Account) SetCredential(salt, hash []byte, temporary bool, at time.Time) {
	a.Salt = salt
	a.PasswordHash = hash
	a.IsPasswordTemporary = temporary
	a.IsPasswordResetPending = false
	a.LastPasswordChangeAt = at
	a.ClearRecovery()
}

// SetRecovery records an issued recovery code.
func (a *Account) SetRecovery(code string, expiresAt, requestedAt time.Time) {
	a.RecoveryCode = &code
	a.RecoveryExpiresAt = &expiresAt
	a.IsPasswordResetPending = true
	a.LastPasswordResetRequestAt = &requestedAt
}

func (a *Account) ClearRecovery() {
	a.RecoveryCode = nil
	a.RecoveryExpiresAt = nil
}

// HasValidRecovery reports whether the account holds a code that is still
// redeemable at now.
func (a *Account) HasValidRecovery(now time.Time) bool {
	return a.RecoveryCode != nil && a.RecoveryExpiresAt != nil && a.RecoveryExpiresAt.After(now)
}

// AccountFilter selects accounts. Set fields are AND-combined, except Username
// and Email which form a single OR group when both are present.
// CrossIdentity widens that group to also compare each value against the
// other column, case-insensitively, so no login can resolve to two accounts.
type AccountFilter struct {
	Username      string
	Email         string
	CrossIdentity bool
	RecoveryCode  string
	ExpiresAfter  *time.Time // recovery_expires_at strictly after this instant
	ActiveOnly    bool
	ExcludeID     int64
}

// Matches evaluates the filter in memory with the same semantics the
// repository applies in SQL.
func (f AccountFilter) Matches(a *Account) bool {
	if f.Username != "" || f.Email != "" {
		identity := (f.Username != "" && a.Username == f.Username) ||
			(f.Email != "" && a.Email == f.Email)
		if f.CrossIdentity && f.Username != "" && f.Email != "" {
			identity = identity ||
				a.Email == strings.ToLower(f.Username) ||
				strings.ToLower(a.Username) == f.Email
		}
		if !identity {
			return false
		}
	}
	if f.RecoveryCode != "" && (a.RecoveryCode == nil || *a.RecoveryCode != f.RecoveryCode) {
		return false
	}
	if f.ExpiresAfter != nil && (a.RecoveryExpiresAt == nil || !a.RecoveryExpiresAt.After(*f.ExpiresAfter)) {
		return false
	}
	if f.ActiveOnly && !a.IsActive {
		return false
	}
	if f.ExcludeID != 0 && a.ID == f.ExcludeID {
		return false
	}
	return true
}
