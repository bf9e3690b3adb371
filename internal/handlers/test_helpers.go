package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/assistiva/internal/models"
	pkghttp "github.com/BradenHooton/assistiva/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockCredentialService implements CredentialService for testing
type MockCredentialService struct {
	CreateAccountFunc              func(ctx context.Context, candidate *models.Account) (*models.Account, error)
	SignInFunc                     func(ctx context.Context, login, password string) (*models.Account, error)
	ChangePasswordFunc             func(ctx context.Context, id int64, newPassword string) error
	RequestRecoveryCodeFunc        func(ctx context.Context, login string) error
	RedeemRecoveryCodeFunc         func(ctx context.Context, code, newPassword string) error
	IsUsernameOrEmailAvailableFunc func(ctx context.Context, username, email string, excludeID int64) (bool, error)
	UpdateAccountFunc              func(ctx context.Context, id int64, username, email string, roleID int64) (*models.Account, error)
	SetAccountActiveFunc           func(ctx context.Context, id int64, active bool) (*models.Account, error)
	GetAccountFunc                 func(ctx context.Context, id int64) (*models.Account, error)
	ListAccountsFunc               func(ctx context.Context) ([]*models.Account, error)
	DeleteAccountFunc              func(ctx context.Context, id int64) error
}

func (m *MockCredentialService) CreateAccount(ctx context.Context, candidate *models.Account) (*models.Account, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, candidate)
	}
	return nil, nil
}

func (m *MockCredentialService) SignIn(ctx context.Context, login, password string) (*models.Account, error) {
	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, login, password)
	}
	return nil, nil
}

func (m *MockCredentialService) ChangePassword(ctx context.Context, id int64, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, id, newPassword)
	}
	return nil
}

func (m *MockCredentialService) RequestRecoveryCode(ctx context.Context, login string) error {
	if m.RequestRecoveryCodeFunc != nil {
		return m.RequestRecoveryCodeFunc(ctx, login)
	}
	return nil
}

func (m *MockCredentialService) RedeemRecoveryCode(ctx context.Context, code, newPassword string) error {
	if m.RedeemRecoveryCodeFunc != nil {
		return m.RedeemRecoveryCodeFunc(ctx, code, newPassword)
	}
	return nil
}

func (m *MockCredentialService) IsUsernameOrEmailAvailable(ctx context.Context, username, email string, excludeID int64) (bool, error) {
	if m.IsUsernameOrEmailAvailableFunc != nil {
		return m.IsUsernameOrEmailAvailableFunc(ctx, username, email, excludeID)
	}
	return true, nil
}

func (m *MockCredentialService) UpdateAccount(ctx context.Context, id int64, username, email string, roleID int64) (*models.Account, error) {
	if m.UpdateAccountFunc != nil {
		return m.UpdateAccountFunc(ctx, id, username, email, roleID)
	}
	return nil, nil
}

func (m *MockCredentialService) SetAccountActive(ctx context.Context, id int64, active bool) (*models.Account, error) {
	if m.SetAccountActiveFunc != nil {
		return m.SetAccountActiveFunc(ctx, id, active)
	}
	return nil, nil
}

func (m *MockCredentialService) GetAccount(ctx context.Context, id int64) (*models.Account, error) {
	if m.GetAccountFunc != nil {
		return m.GetAccountFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockCredentialService) ListAccounts(ctx context.Context) ([]*models.Account, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx)
	}
	return nil, nil
}

func (m *MockCredentialService) DeleteAccount(ctx context.Context, id int64) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, id)
	}
	return nil
}
