package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/lib/jwt"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
	"github.com/magabrotheeeer/account-service/internal/services/auth"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) Verify(ctx context.Context, token string) (auth.VerifyResult, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(auth.VerifyResult), args.Error(1)
}

func TestVerifyHandler_ServeHTTP(t *testing.T) {
	alice := &models.User{UUID: "u-1", Username: "alice", IsVerified: true}

	tests := []struct {
		name           string
		result         auth.VerifyResult
		mockErr        error
		wantStatusCode int
		wantBody       string
	}{
		{
			name:           "newly verified",
			result:         auth.VerifyResult{Status: auth.VerifyNewlyVerified, User: alice},
			wantStatusCode: http.StatusOK,
			wantBody:       "Thank you alice, your email has been verified",
		},
		{
			name:           "already verified",
			result:         auth.VerifyResult{Status: auth.VerifyAlreadyVerified, User: alice},
			wantStatusCode: http.StatusOK,
			wantBody:       "your email is already verified",
		},
		{
			name:           "expired token",
			mockErr:        fmt.Errorf("auth.Verify: %w: %w", auth.ErrUnauthorized, jwt.ErrExpired),
			wantStatusCode: http.StatusUnauthorized,
			wantBody:       "invalid token or expired token",
		},
		{
			name:           "store failure",
			mockErr:        errors.New("db down"),
			wantStatusCode: http.StatusInternalServerError,
			wantBody:       "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := new(ServiceMock)
			svc.On("Verify", mock.Anything, "tok").Return(tt.result, tt.mockErr).Once()
			handler := New(sl.Discard(), svc)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/verification?token=tok", nil))

			assert.Equal(t, tt.wantStatusCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			if tt.wantStatusCode == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
				var got map[string]any
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
				assert.Equal(t, "error", got["status"])
			}
			svc.AssertExpectations(t)
		})
	}
}
