package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "code-to-content/internal/errors"
	"code-to-content/internal/model"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) EnsureUser(ctx context.Context, externalID, name string) (model.User, error) {
	args := m.Called(ctx, externalID, name)
	return args.Get(0).(model.User), args.Error(1)
}
func (m *mockUserStore) GetUserByExternalID(ctx context.Context, externalID string) (model.User, error) {
	args := m.Called(ctx, externalID)
	return args.Get(0).(model.User), args.Error(1)
}

func authChain(t *testing.T, users *mockUserStore) (*Sessions, http.Handler) {
	sessions, _ := testSessions(t, time.Hour)

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		require.True(t, ok)
		w.Header().Set("X-User", user.ExternalID)
		w.WriteHeader(http.StatusOK)
	})
	return sessions, Authenticate(sessions, users)(RequireUser(inner))
}

func TestAuthenticate(t *testing.T) {
	t.Run("resolves a bearer token to a user", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetUserByExternalID", mock.Anything, "user_123").
			Return(model.User{ID: 1, ExternalID: "user_123"}, nil).Once()
		sessions, handler := authChain(t, users)

		token, err := sessions.Create(context.Background(), "user_123")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "user_123", rec.Header().Get("X-User"))
	})

	t.Run("accepts the session cookie", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetUserByExternalID", mock.Anything, "user_123").
			Return(model.User{ID: 1, ExternalID: "user_123"}, nil).Once()
		sessions, handler := authChain(t, users)

		token, err := sessions.Create(context.Background(), "user_123")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects requests without a token", func(t *testing.T) {
		users := new(mockUserStore)
		_, handler := authChain(t, users)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.JSONEq(t, `{"error":"Unauthorized"}`, rec.Body.String())
		users.AssertNotCalled(t, "GetUserByExternalID")
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		users := new(mockUserStore)
		_, handler := authChain(t, users)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer deadbeef")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("keeps the external id when the user record is missing", func(t *testing.T) {
		users := new(mockUserStore)
		users.On("GetUserByExternalID", mock.Anything, "user_gone").
			Return(model.User{}, apperrors.ErrNotFound).Once()
		sessions, _ := testSessions(t, time.Hour)

		token, err := sessions.Create(context.Background(), "user_gone")
		require.NoError(t, err)

		var sawExternalID string
		var sawUser bool
		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sawExternalID, _ = ExternalIDFrom(r.Context())
			_, sawUser = UserFrom(r.Context())
		})
		handler := Authenticate(sessions, users)(inner)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		handler.ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "user_gone", sawExternalID)
		assert.False(t, sawUser)
	})
}
