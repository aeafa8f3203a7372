package auth_test

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fizanakara/membership-engine/internal/auth"
	"github.com/fizanakara/membership-engine/internal/domain"
	"github.com/fizanakara/membership-engine/internal/mocks"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testAdmin() *domain.Admin {
	return &domain.Admin{ID: "ADM00000002", Email: "soa@example.org", Role: domain.RoleAdmin}
}

func TestPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct-horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct-horse", hash)
	assert.True(t, auth.CheckPassword(hash, "correct-horse"))
	assert.False(t, auth.CheckPassword(hash, "battery-staple"))
	assert.False(t, auth.CheckPassword("not-a-hash", "correct-horse"))
}

func TestJWTManager_RoundTrip(t *testing.T) {
	manager := auth.NewJWTManager(testSecret, 15*time.Minute)

	token, err := manager.Issue(testAdmin())
	require.NoError(t, err)

	claims, err := manager.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "ADM00000002", claims.AdminID)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.Equal(t, "soa@example.org", claims.Subject)
}

func TestJWTManager_Rejects(t *testing.T) {
	issuedAt := time.Date(2025, time.June, 15, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return issuedAt }
	manager := auth.NewJWTManager(testSecret, 15*time.Minute).WithClock(clock)

	token, err := manager.Issue(testAdmin())
	require.NoError(t, err)

	t.Run("expired", func(t *testing.T) {
		later := auth.NewJWTManager(testSecret, 15*time.Minute).WithClock(func() time.Time { return issuedAt.Add(time.Hour) })

		_, err := later.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := auth.NewJWTManager("ffffffffffffffffffffffffffffffff", 15*time.Minute).WithClock(clock)

		_, err := other.Parse(token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := manager.Parse("not.a.token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}

func TestMiddleware_Authenticate(t *testing.T) {
	manager := auth.NewJWTManager(testSecret, 15*time.Minute)
	token, err := manager.Issue(testAdmin())
	require.NoError(t, err)

	tests := []struct {
		name           string
		header         string
		setupMock      func(*mocks.MockAdminRepository)
		expectedStatus int
	}{
		{
			name:   "valid token",
			header: "Bearer " + token,
			setupMock: func(m *mocks.MockAdminRepository) {
				m.On("GetByID", mock.Anything, "ADM00000002").Return(testAdmin(), nil)
			},
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing header",
			setupMock:      func(m *mocks.MockAdminRepository) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed token",
			header:         "Bearer nope",
			setupMock:      func(m *mocks.MockAdminRepository) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "deleted admin",
			header: "Bearer " + token,
			setupMock: func(m *mocks.MockAdminRepository) {
				m.On("GetByID", mock.Anything, "ADM00000002").Return(nil, sql.ErrNoRows)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "email changed since issue",
			header: "Bearer " + token,
			setupMock: func(m *mocks.MockAdminRepository) {
				changed := testAdmin()
				changed.Email = "new@example.org"
				m.On("GetByID", mock.Anything, "ADM00000002").Return(changed, nil)
			},
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			admins := &mocks.MockAdminRepository{}
			tt.setupMock(admins)

			var seen *auth.Principal
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen, _ = auth.PrincipalFrom(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/admins/persons", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			auth.NewMiddleware(manager, admins).Authenticate(next).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				require.NotNil(t, seen)
				assert.Equal(t, "ADM00000002", seen.AdminID)
			}
			admins.AssertExpectations(t)
		})
	}
}

func TestRequireRole(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guarded := auth.RequireRole(domain.RoleSuperAdmin)(next)

	t.Run("no principal", func(t *testing.T) {
		w := httptest.NewRecorder()
		guarded.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("wrong role", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{AdminID: "ADM00000002", Role: domain.RoleAdmin}))
		w := httptest.NewRecorder()
		guarded.ServeHTTP(w, req)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(auth.WithPrincipal(req.Context(), &auth.Principal{AdminID: "ADM00000001", Role: domain.RoleSuperAdmin}))
		w := httptest.NewRecorder()
		guarded.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
