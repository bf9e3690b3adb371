package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/BradenHooton/assistiva/internal/mailer"
	"github.com/BradenHooton/assistiva/internal/models"
	"github.com/BradenHooton/assistiva/pkg/auth"
	"github.com/BradenHooton/assistiva/pkg/logger"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByID(ctx context.Context, id int64) (*models.Account, error)
	FindOne(ctx context.Context, filter models.AccountFilter) (*models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]*models.Account, error)
	Update(ctx context.Context, account *models.Account) (*models.Account, error)
	Delete(ctx context.Context, id int64) error
}

// Notifier delivers rendered account notifications
type Notifier interface {
	Send(ctx context.Context, msg mailer.Message) error
}

// CredentialConfig holds lifecycle settings for CredentialService
type CredentialConfig struct {
	RecoveryCodeTTL         time.Duration
	GeneratedPasswordLength int
	// RequireDelivery makes a notification failure fail the operation that
	// triggered it. When false the failure is logged and the operation succeeds.
	RequireDelivery bool
	AppName         string
	ResetURLBase    string
	Now             func() time.Time
}

// DefaultCredentialConfig returns the stock lifecycle settings
func DefaultCredentialConfig() CredentialConfig {
	return CredentialConfig{
		RecoveryCodeTTL:         time.Hour,
		GeneratedPasswordLength: auth.DefaultGeneratedLen,
		RequireDelivery:         true,
		AppName:                 "Assistiva",
	}
}

// CredentialService owns the account credential lifecycle: creation with a
// generated password, sign-in, password change and code based recovery.
type CredentialService struct {
	repo     AccountRepository
	notifier Notifier
	cfg      CredentialConfig
	logger   *slog.Logger
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(repo AccountRepository, notifier Notifier, cfg CredentialConfig, logger *slog.Logger) *CredentialService {
	if cfg.RecoveryCodeTTL <= 0 {
		cfg.RecoveryCodeTTL = time.Hour
	}
	if cfg.GeneratedPasswordLength == 0 {
		cfg.GeneratedPasswordLength = auth.DefaultGeneratedLen
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}

	return &CredentialService{
		repo:     repo,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
	}
}

// Username comparison is exact after trimming; email comparison is
// case-insensitive. Lookups and the uniqueness check both go through these.
func normalizeUsername(s string) string { return strings.TrimSpace(s) }
func normalizeEmail(s string) string    { return strings.ToLower(strings.TrimSpace(s)) }

func identityFilter(login string) models.AccountFilter {
	return models.AccountFilter{
		Username: normalizeUsername(login),
		Email:    normalizeEmail(login),
	}
}

// CreateAccount registers a new account with a generated temporary password
// and mails the credentials to the account's email address. If the welcome
// notification fails under RequireDelivery the account stays persisted and
// the delivery error is returned.
func (s *CredentialService) CreateAccount(ctx context.Context, candidate *models.Account) (*models.Account, error) {
	if candidate == nil {
		return nil, fmt.Errorf("%w: account is required", models.ErrInvalidArgument)
	}

	username := normalizeUsername(candidate.Username)
	email := normalizeEmail(candidate.Email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", models.ErrInvalidArgument)
	}

	available, err := s.IsUsernameOrEmailAvailable(ctx, username, email, 0)
	if err != nil {
		return nil, err
	}
	if !available {
		s.logger.Info("account identity not available", slog.String("email", logger.SanitizedEmail(email)))
		return nil, models.ErrConflict
	}

	password, err := auth.GeneratePassword(s.cfg.GeneratedPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	salt, hash, err := newCredential(password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		RoleID:     candidate.RoleID,
		Username:   username,
		Email:      email,
		PictureURL: strings.TrimSpace(candidate.PictureURL),
		IsActive:   true,
	}
	account.SetCredential(salt, hash, true, s.cfg.Now())

	created, err := s.repo.Create(ctx, account)
	if err != nil {
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, err
	}
	if created == nil || created.ID <= 0 {
		s.logger.Error("store returned account without identity")
		return nil, fmt.Errorf("%w: store returned no identity for new account", models.ErrInvariantViolation)
	}

	s.logger.Info("account created", slog.Int64("account_id", created.ID))

	err = s.notify(ctx, created, mailer.TemplateWelcome, mailer.TemplateData{
		Username: created.Username,
		Password: password,
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// SignIn authenticates by username or email. Unknown and inactive accounts
// both yield models.ErrNotFound; a wrong password yields models.ErrUnauthorized.
func (s *CredentialService) SignIn(ctx context.Context, login, password string) (*models.Account, error) {
	if strings.TrimSpace(login) == "" || password == "" {
		return nil, fmt.Errorf("%w: login and password are required", models.ErrInvalidArgument)
	}

	filter := identityFilter(login)
	filter.ActiveOnly = true

	account, err := s.repo.FindOne(ctx, filter)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("sign-in for unknown or inactive account")
		}
		return nil, err
	}

	ok, err := auth.VerifyPassword(account.Salt, account.PasswordHash, password)
	if err != nil {
		s.logger.Error("account holds an unusable credential", slog.Int64("account_id", account.ID))
		return nil, fmt.Errorf("%w: %v", models.ErrInvariantViolation, err)
	}
	if !ok {
		s.logger.Info("sign-in with wrong password", slog.Int64("account_id", account.ID))
		return nil, models.ErrUnauthorized
	}

	s.logger.Info("account signed in", slog.Int64("account_id", account.ID))
	return account, nil
}

// ChangePassword replaces the credential of account id and clears any
// outstanding recovery code.
func (s *CredentialService) ChangePassword(ctx context.Context, id int64, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: new password is required", models.ErrInvalidArgument)
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.rotateCredential(ctx, account, newPassword)
}

// rotateCredential writes a fresh salt and hash for newPassword together with
// the cleared recovery state in a single update, then confirms by email.
func (s *CredentialService) rotateCredential(ctx context.Context, account *models.Account, newPassword string) error {
	salt, hash, err := newCredential(newPassword)
	if err != nil {
		return err
	}

	account.SetCredential(salt, hash, false, s.cfg.Now())

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		s.logger.Error("failed to rotate credential", slog.Int64("account_id", account.ID), slog.Any("error", err))
		return err
	}

	s.logger.Info("password changed", slog.Int64("account_id", updated.ID))

	return s.notify(ctx, updated, mailer.TemplatePasswordChanged, mailer.TemplateData{
		Username:  updated.Username,
		ChangedAt: updated.LastPasswordChangeAt,
	})
}

// RequestRecoveryCode issues a single-use recovery code to the account found
// by username or email, regardless of whether it is active.
func (s *CredentialService) RequestRecoveryCode(ctx context.Context, login string) error {
	if strings.TrimSpace(login) == "" {
		return fmt.Errorf("%w: login is required", models.ErrInvalidArgument)
	}

	account, err := s.repo.FindOne(ctx, identityFilter(login))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("recovery requested for unknown account")
		}
		return err
	}

	code, err := newRecoveryCode()
	if err != nil {
		return err
	}

	now := s.cfg.Now()
	expiresAt := now.Add(s.cfg.RecoveryCodeTTL)
	account.SetRecovery(code, expiresAt, now)

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		s.logger.Error("failed to store recovery code", slog.Int64("account_id", account.ID), slog.Any("error", err))
		return err
	}

	s.logger.Info("recovery code issued",
		slog.Int64("account_id", updated.ID),
		slog.Time("expires_at", expiresAt),
	)

	return s.notify(ctx, updated, mailer.TemplateRecoveryCode, mailer.TemplateData{
		Username:     updated.Username,
		RecoveryCode: code,
		ResetURL:     s.resetURL(code),
		ValidFor:     humanizeWindow(s.cfg.RecoveryCodeTTL),
		ExpiresAt:    expiresAt,
	})
}

// RedeemRecoveryCode sets newPassword on the account holding code, provided
// the code has not expired. Unknown, used and expired codes are reported
// identically as models.ErrInvalidOrExpired.
func (s *CredentialService) RedeemRecoveryCode(ctx context.Context, code, newPassword string) error {
	code = strings.TrimSpace(code)
	if code == "" || newPassword == "" {
		return fmt.Errorf("%w: recovery code and new password are required", models.ErrInvalidArgument)
	}

	now := s.cfg.Now()
	account, err := s.repo.FindOne(ctx, models.AccountFilter{RecoveryCode: code, ExpiresAfter: &now})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("invalid or expired recovery code presented")
			return models.ErrInvalidOrExpired
		}
		return err
	}
	if !account.HasValidRecovery(now) {
		s.logger.Error("store returned account without a live recovery code", slog.Int64("account_id", account.ID))
		return models.ErrInvalidOrExpired
	}

	// The loaded version guards the update, so two concurrent redemptions of
	// the same code cannot both succeed.
	return s.rotateCredential(ctx, account, newPassword)
}

// IsUsernameOrEmailAvailable reports whether no account other than excludeID
// uses username or email. The values are also checked against the opposite
// column, since sign-in accepts either. An empty email is checked as username.
func (s *CredentialService) IsUsernameOrEmailAvailable(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	username = normalizeUsername(username)
	email = normalizeEmail(email)
	if email == "" {
		email = normalizeEmail(username)
	}
	if username == "" && email == "" {
		return false, fmt.Errorf("%w: username or email is required", models.ErrInvalidArgument)
	}

	_, err := s.repo.FindOne(ctx, models.AccountFilter{
		Username:      username,
		Email:         email,
		CrossIdentity: true,
		ExcludeID:     excludeID,
	})
	if errors.Is(err, models.ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

// UpdateAccount overwrites the username, email and role of account id.
// Credential and recovery state are left untouched.
func (s *CredentialService) UpdateAccount(ctx context.Context, id int64, username, email string, roleID int64) (*models.Account, error) {
	username = normalizeUsername(username)
	email = normalizeEmail(email)
	if username == "" || email == "" {
		return nil, fmt.Errorf("%w: username and email are required", models.ErrInvalidArgument)
	}

	available, err := s.IsUsernameOrEmailAvailable(ctx, username, email, id)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, models.ErrConflict
	}

	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	account.Username = username
	account.Email = email
	account.RoleID = roleID

	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		s.logger.Error("failed to update account", slog.Int64("account_id", id), slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("account updated", slog.Int64("account_id", id))
	return updated, nil
}

// SetAccountActive enables or disables sign-in for account id.
func (s *CredentialService) SetAccountActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	account, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if account.IsActive == active {
		return account, nil
	}

	account.IsActive = active
	updated, err := s.repo.Update(ctx, account)
	if err != nil {
		return nil, err
	}

	s.logger.Info("account status changed", slog.Int64("account_id", id), slog.Bool("active", active))
	return updated, nil
}

func (s *CredentialService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CredentialService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	return s.repo.List(ctx, models.AccountFilter{})
}

// DeleteAccount removes account id from the store.
func (s *CredentialService) DeleteAccount(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("account deleted", slog.Int64("account_id", id))
	return nil
}

// notify renders and sends a template to the account's email address,
// applying the RequireDelivery policy to failures.
func (s *CredentialService) notify(ctx context.Context, account *models.Account, template string, data mailer.TemplateData) error {
	data.AppName = s.cfg.AppName

	msg, err := mailer.Render(template, data, account.Email)
	if err == nil {
		err = s.notifier.Send(ctx, msg)
	}
	if err == nil {
		return nil
	}

	if s.cfg.RequireDelivery {
		s.logger.Error("notification failed",
			slog.String("template", template),
			slog.Int64("account_id", account.ID),
			slog.String("email", logger.SanitizedEmail(account.Email)),
			slog.Any("error", err),
		)
		return err
	}

	s.logger.Warn("notification failed, continuing",
		slog.String("template", template),
		slog.Int64("account_id", account.ID),
		slog.String("email", logger.SanitizedEmail(account.Email)),
		slog.Any("error", err),
	)
	return nil
}

func (s *CredentialService) resetURL(code string) string {
	if s.cfg.ResetURLBase == "" {
		return ""
	}
	u, err := url.Parse(s.cfg.ResetURLBase)
	if err != nil {
		s.logger.Warn("invalid reset url base", slog.Any("error", err))
		return ""
	}
	q := u.Query()
	q.Set("recoveryCode", code)
	u.RawQuery = q.Encode()
	return u.String()
}

func newCredential(password string) (salt, hash []byte, err error) {
	salt, err = auth.GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	hash, err = auth.HashPassword(salt, password)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", models.ErrInvalidArgument, err)
	}
	return salt, hash, nil
}
