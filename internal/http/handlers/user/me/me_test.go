package me

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/account-service/internal/http/middlewarectx"
	"github.com/magabrotheeeer/account-service/internal/lib/sl"
	"github.com/magabrotheeeer/account-service/internal/models"
)

func TestMeHandler_ServeHTTP(t *testing.T) {
	handler := New(sl.Discard())

	t.Run("profile", func(t *testing.T) {
		user := &models.User{
			UUID:       "u-1",
			Username:   "alice",
			Email:      "a@x.com",
			IsVerified: true,
			JoinDate:   time.Date(2024, time.March, 1, 15, 4, 5, 0, time.UTC),
		}
		req := httptest.NewRequest(http.MethodPost, "/user/me", nil)
		req = req.WithContext(middlewarectx.WithUser(req.Context(), user))
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{
			"status": "ok",
			"data": {"username": "alice", "email": "a@x.com", "verified": true, "join_date": "Mar 01 2024"}
		}`, rec.Body.String())
	})

	t.Run("no user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/user/me", nil)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var got map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "error", got["status"])
	})
}
