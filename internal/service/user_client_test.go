package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHTTPUserClient_FindByUserID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users/user-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"user_id": "user-1", "user_name": "Lee", "email": "lee@example.com", "contact_no": "010-1111-2222"}`))
	}))
	defer server.Close()

	client := NewHTTPUserClientWithTimeout(server.URL, time.Second, zap.NewNop())

	profile, err := client.FindByUserID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "Lee", profile.UserName)
	assert.Equal(t, "010-1111-2222", profile.ContactNo)
}

func TestHTTPUserClient_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPUserClient(server.URL, zap.NewNop())

	_, err := client.FindByUserID(context.Background(), "user-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 502")
}

func TestCachedUserClient_Hit(t *testing.T) {
	next := &MockUserClient{}
	cache := &MockCacheInterface{}
	metrics := &MockMetricsInterface{}
	client := NewCachedUserClient(next, cache, metrics, time.Minute, zap.NewNop())

	cache.On("Get", mock.Anything, "reserve:user_profile:user-1").
		Return(`{"user_id":"user-1","email":"cached@example.com"}`, nil)
	metrics.On("IncCacheHit", "user_profile").Once()

	profile, err := client.FindByUserID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "cached@example.com", profile.Email)
	next.AssertNotCalled(t, "FindByUserID", mock.Anything, mock.Anything)
	metrics.AssertExpectations(t)
}

func TestCachedUserClient_MissStoresProfile(t *testing.T) {
	next := &MockUserClient{}
	cache := &MockCacheInterface{}
	metrics := &MockMetricsInterface{}
	client := NewCachedUserClient(next, cache, metrics, time.Minute, zap.NewNop())

	cache.On("Get", mock.Anything, "reserve:user_profile:user-1").Return("", nil)
	metrics.On("IncCacheMiss", "user_profile").Once()
	next.On("FindByUserID", mock.Anything, "user-1").
		Return(&models.UserProfile{UserID: "user-1", Email: "fresh@example.com"}, nil)
	cache.On("Set", mock.Anything, "reserve:user_profile:user-1", mock.AnythingOfType("string"), time.Minute).Return(nil)

	profile, err := client.FindByUserID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "fresh@example.com", profile.Email)
	cache.AssertExpectations(t)
}

func TestCachedUserClient_CacheErrorFallsThrough(t *testing.T) {
	next := &MockUserClient{}
	cache := &MockCacheInterface{}
	metrics := &MockMetricsInterface{}
	client := NewCachedUserClient(next, cache, metrics, time.Minute, zap.NewNop())

	cache.On("Get", mock.Anything, mock.Anything).Return("", errors.New("redis down"))
	cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("redis down"))
	metrics.On("IncCacheMiss", "user_profile")
	next.On("FindByUserID", mock.Anything, "user-1").Return(&models.UserProfile{UserID: "user-1"}, nil)

	profile, err := client.FindByUserID(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", profile.UserID)
}
