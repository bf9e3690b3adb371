package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/assistiva/internal/models"
	"github.com/BradenHooton/assistiva/pkg/auth"
	pkghttp "github.com/BradenHooton/assistiva/pkg/http"
	"github.com/go-chi/chi/v5"
)

// forgotPasswordMessage is returned whether or not the login matched an account
const forgotPasswordMessage = "If an account matches, a recovery code has been sent to its email address"

// AuthHandler handles sign-in and password recovery requests
type AuthHandler struct {
	service CredentialService
	logger  *slog.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service CredentialService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Request DTOs

// SignInRequest represents the request body for sign-in. Login is a username
// or an email address.
type SignInRequest struct {
	Login    string `json:"login" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=128"`
}

// ForgotPasswordRequest represents the request body for requesting a recovery code
type ForgotPasswordRequest struct {
	Login string `json:"login" validate:"required,max=254"`
}

// ResetPasswordRequest represents the request body for redeeming a recovery code
type ResetPasswordRequest struct {
	RecoveryCode    string `json:"recovery_code" validate:"required,max=16"`
	NewPassword     string `json:"new_password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=NewPassword"`
}

// SignInResponse represents a successful sign-in
type SignInResponse struct {
	Account            *AccountResponse `json:"account"`
	MustChangePassword bool             `json:"must_change_password"`
}

// MessageResponse carries a human-readable status message
type MessageResponse struct {
	Message string `json:"message"`
}

// RegisterRoutes registers all auth routes with the chi router
func (h *AuthHandler) RegisterRoutes(router chi.Router) {
	router.Route("/auth", func(r chi.Router) {
		r.Post("/sign-in", h.SignIn)                 // POST /auth/sign-in
		r.Post("/forgot-password", h.ForgotPassword) // POST /auth/forgot-password
		r.Post("/reset-password", h.ResetPassword)   // POST /auth/reset-password
	})
}

// SignIn authenticates by username or email
// @Summary Sign in
// @Accept json
// @Param request body SignInRequest true "Sign-in request"
// @Produce json
// @Success 200 {object} SignInResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /auth/sign-in [post]
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	account, err := h.service.SignIn(r.Context(), req.Login, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound),
			errors.Is(err, models.ErrUnauthorized):
			// Unknown, inactive and wrong-password look the same to the caller
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
		case errors.Is(err, models.ErrInvalidArgument):
			pkghttp.WriteBadRequest(w, "Login and password are required")
		default:
			h.logger.ErrorContext(r.Context(), "sign-in failed", slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, SignInResponse{
		Account:            accountToResponse(account),
		MustChangePassword: account.IsPasswordTemporary,
	})
}

// ForgotPassword issues a recovery code to the matching account
// @Summary Request a recovery code
// @Accept json
// @Param request body ForgotPasswordRequest true "Forgot-password request"
// @Produce json
// @Success 202 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteValidationError(w, err.Error())
		return
	}

	err := h.service.RequestRecoveryCode(r.Context(), req.Login)
	var delivery *models.DeliveryError
	switch {
	case err == nil, errors.Is(err, models.ErrNotFound):
	case errors.As(err, &delivery):
		// Answered like any other request so a mail outage does not reveal
		// which logins exist
		h.logger.ErrorContext(r.Context(), "recovery code delivery failed", slog.String("transport", delivery.Transport))
	default:
		h.logger.ErrorContext(r.Context(), "recovery request failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: forgotPasswordMessage})
}

// ResetPassword redeems a recovery code for a new password
// @Summary Reset password
// @Accept json
// @Param request body ResetPasswordRequest true "Reset-password request"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 400 {object} ErrorResponse
// @Router /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
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

	err := h.service.RedeemRecoveryCode(r.Context(), req.RecoveryCode, req.NewPassword)
	var delivery *models.DeliveryError
	switch {
	case err == nil:
	case errors.Is(err, models.ErrInvalidOrExpired),
		errors.Is(err, models.ErrInvalidArgument):
		pkghttp.WriteBadRequest(w, "Recovery code is invalid or has expired")
		return
	case errors.Is(err, models.ErrConflict):
		// Lost a race with another redemption of the same code
		pkghttp.WriteBadRequest(w, "Recovery code is invalid or has expired")
		return
	case errors.As(err, &delivery):
		// The password is already changed at this point
		h.logger.WarnContext(r.Context(), "password change confirmation not delivered", slog.String("transport", delivery.Transport))
	default:
		h.logger.ErrorContext(r.Context(), "password reset failed", slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}
