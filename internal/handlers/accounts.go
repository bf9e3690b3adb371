package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/BradenHooton/assistiva/internal/models"
	"github.com/BradenHooton/assistiva/pkg/auth"
	pkghttp "github.com/BradenHooton/assistiva/pkg/http"
	"github.com/go-chi/chi/v5"
)

// CredentialService defines the account and credential operations the HTTP
// layer depends on
type CredentialService interface {
	CreateAccount(ctx context.Context, candidate *models.Account) (*models.Account, error)
	SignIn(ctx context.Context, login, password string) (*models.Account, error)
	ChangePassword(ctx context.Context, id int64, newPassword string) error
	RequestRecoveryCode(ctx context.Context, login string) error
	RedeemRecoveryCode(ctx context.Context, code, newPassword string) error
	IsUsernameOrEmailAvailable(ctx context.Context, username, email string, excludeID int64) (bool, error)
	UpdateAccount(ctx context.Context, id int64, username, email string, roleID int64) (*models.Account, error)
	SetAccountActive(ctx context.Context, id int64, active bool) (*models.Account, error)
	GetAccount(ctx context.Context, id int64) (*models.Account, error)
	ListAccounts(ctx context.Context) ([]*models.Account, error)
	DeleteAccount(ctx context.Context, id int64) error
}

// AccountHandler handles account administration requests
type AccountHandler struct {
	service CredentialService
	logger  *slog.Logger
}

// NewAccountHandler creates a new AccountHandler
func NewAccountHandler(service CredentialService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		logger:  logger,
	}
}

// Request/Response DTOs

// CreateAccountRequest represents the request body for creating an account.
// The initial password is generated server-side and mailed to the account.
type CreateAccountRequest struct {
	Username   string `json:"username" validate:"required,min=1,max=64"`
	Email      string `json:"email" validate:"required,email,max=254"`
	RoleID     int64  `json:"role_id" validate:"required,oneof=1 2 3"`
	PictureURL string `json:"picture_url" validate:"omitempty,url,max=2048"`
}

// UpdateAccountRequest represents the request body for updating an account
type UpdateAccountRequest struct {
	Username string `json:"username" validate:"required,min=1,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	RoleID   int64  `json:"role_id" validate:"required,oneof=1 2 3"`
}

// ChangePasswordRequest represents the request body for an administrative
// password change
type ChangePasswordRequest struct {
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// SetStatusRequest represents the request body for enabling or disabling an account
type SetStatusRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// AccountResponse represents an account in the HTTP response. Credential
// material and recovery codes are never serialized.
type AccountResponse struct {
	ID                     int64      `json:"id"`
	RoleID                 int64      `json:"role_id"`
	Username               string     `json:"username"`
	Email                  string     `json:"email"`
	PictureURL             string     `json:"picture_url,omitempty"`
	IsActive               bool       `json:"is_active"`
	IsPasswordTemporary    bool       `json:"is_password_temporary"`
	IsPasswordResetPending bool       `json:"is_password_reset_pending"`
	LastPasswordChangeAt   time.Time  `json:"last_password_change_at"`
	RecoveryExpiresAt      *time.Time `json:"recovery_expires_at,omitempty"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// ListAccountsResponse represents a list of accounts
type ListAccountsResponse struct {
	Accounts []*AccountResponse `json:"accounts"`
	Total    int                `json:"total"`
}

// AvailabilityResponse reports whether a username/email pair is free
type AvailabilityResponse struct {
	Available bool `json:"available"`
}

func accountToResponse(a *models.Account) *AccountResponse {
	return &AccountResponse{
		ID:                     a.ID,
		RoleID:                 a.RoleID,
		Username:               a.Username,
		Email:                  a.Email,
		PictureURL:             a.PictureURL,
		IsActive:               a.IsActive,
		IsPasswordTemporary:    a.IsPasswordTemporary,
		IsPasswordResetPending: a.IsPasswordResetPending,
		LastPasswordChangeAt:   a.LastPasswordChangeAt,
		RecoveryExpiresAt:      a.RecoveryExpiresAt,
		CreatedAt:              a.CreatedAt,
		UpdatedAt:              a.UpdatedAt,
	}
}

// RegisterRoutes registers all account routes with the chi router
func (h *AccountHandler) RegisterRoutes(router chi.Router) {
	router.Route("/accounts", func(r chi.Router) {
		r.Post("/", h.CreateAccount)                // POST /accounts
		r.Get("/", h.ListAccounts)                  // GET /accounts
		r.Get("/availability", h.CheckAvailability) // GET /accounts/availability
		r.Get("/{id}", h.GetAccount)                // GET /accounts/{id}
		r.Put("/{id}", h.UpdateAccount)             // PUT /accounts/{id}
		r.Delete("/{id}", h.DeleteAccount)          // DELETE /accounts/{id}
		r.Put("/{id}/password", h.ChangePassword)   // PUT /accounts/{id}/password
		r.Put("/{id}/status", h.SetStatus)          // PUT /accounts/{id}/status
	})
}

// CreateAccount creates an account with a generated temporary password
//
// @Summary Create account
// @Accept json
// @Param request body CreateAccountRequest true "Account"
// @Produce json
// @Success 201 {object} AccountResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /accounts [post]
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	account, err := h.service.CreateAccount(r.Context(), &models.Account{
		Username:   req.Username,
		Email:      req.Email,
		RoleID:     req.RoleID,
		PictureURL: req.PictureURL,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, accountToResponse(account))
}

// ListAccounts returns every account ordered by id
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	resp := ListAccountsResponse{
		Accounts: make([]*AccountResponse, 0, len(accounts)),
		Total:    len(accounts),
	}
	for _, a := range accounts {
		resp.Accounts = append(resp.Accounts, accountToResponse(a))
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// GetAccount retrieves an account by ID
func (h *AccountHandler) GetAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	account, err := h.service.GetAccount(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(account))
}

// UpdateAccount replaces the username, email and role of an account
func (h *AccountHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req UpdateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	account, err := h.service.UpdateAccount(r.Context(), id, req.Username, req.Email, req.RoleID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(account))
}

// DeleteAccount removes an account
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword sets a new password chosen by an administrator
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}
	if err := auth.ValidatePassword(req.NewPassword); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), id, req.NewPassword); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SetStatus enables or disables sign-in for an account
func (h *AccountHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := accountID(w, r)
	if !ok {
		return
	}

	var req SetStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	account, err := h.service.SetAccountActive(r.Context(), id, *req.Active)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, accountToResponse(account))
}

// CheckAvailability reports whether a username and email are unused.
// exclude_id skips the account being edited.
func (h *AccountHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var excludeID int64
	if raw := q.Get("exclude_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			pkghttp.WriteBadRequest(w, "exclude_id must be a positive integer")
			return
		}
		excludeID = id
	}

	available, err := h.service.IsUsernameOrEmailAvailable(r.Context(), q.Get("username"), q.Get("email"), excludeID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, AvailabilityResponse{Available: available})
}

func accountID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		pkghttp.WriteBadRequest(w, "Account ID must be a positive integer")
		return 0, false
	}
	return id, true
}

// writeServiceError maps service errors onto status codes. Identity conflicts
// never say which of username or email collided.
func (h *AccountHandler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var delivery *models.DeliveryError

	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		pkghttp.WriteBadRequest(w, "Invalid account data")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Account not found")
	case errors.Is(err, models.ErrStaleAccount):
		pkghttp.WriteConflict(w, "Account was modified concurrently, retry the request")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Username or email not available")
	case errors.As(err, &delivery):
		h.logger.ErrorContext(r.Context(), "notification delivery failed", slog.String("transport", delivery.Transport))
		pkghttp.WriteError(w, http.StatusBadGateway, "delivery_failed", "The change was saved but the notification email could not be sent")
	default:
		h.logger.ErrorContext(r.Context(), "account request failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
