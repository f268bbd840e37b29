package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func newTestReconciler(items *MockItemCatalogClient, releases *MockPendingReleaseQueue) *ReleaseReconciler {
	return NewReleaseReconciler(releases, newTestCoordinator(items, 5), zap.NewNop(), ReconcilerConfig{
		Interval:  time.Minute,
		Timeout:   time.Second,
		BatchSize: 10,
	})
}

func TestReleaseReconciler_RunOnce(t *testing.T) {
	items := &MockItemCatalogClient{}
	releases := &MockPendingReleaseQueue{}
	reconciler := newTestReconciler(items, releases)

	pending := []models.PendingRelease{
		{ReservationID: "res-1", ItemID: 7, Quantity: -3},
		{ReservationID: "res-2", ItemID: 8, Quantity: -2},
	}
	releases.On("PopBatch", mock.Anything, 10).Return(pending, nil)
	items.On("UpdateInventory", mock.Anything, int64(7), 3).Return(true, nil)
	items.On("UpdateInventory", mock.Anything, int64(8), 2).Return(false, nil)
	releases.On("Push", mock.Anything, models.PendingRelease{ReservationID: "res-2", ItemID: 8, Quantity: -2, Attempts: 1}).Return(nil).Once()
	releases.On("Len", mock.Anything).Return(int64(1), nil)

	reconciled := reconciler.RunOnce(context.Background())

	assert.Equal(t, 1, reconciled)
	releases.AssertExpectations(t)
	items.AssertExpectations(t)
}

func TestReleaseReconciler_RunOnceEmpty(t *testing.T) {
	items := &MockItemCatalogClient{}
	releases := &MockPendingReleaseQueue{}
	reconciler := newTestReconciler(items, releases)

	releases.On("PopBatch", mock.Anything, 10).Return([]models.PendingRelease{}, nil)
	releases.On("Len", mock.Anything).Return(int64(0), nil)

	assert.Equal(t, 0, reconciler.RunOnce(context.Background()))
	items.AssertNotCalled(t, "UpdateInventory", mock.Anything, mock.Anything, mock.Anything)
}

func TestReleaseReconciler_PopError(t *testing.T) {
	items := &MockItemCatalogClient{}
	releases := &MockPendingReleaseQueue{}
	reconciler := newTestReconciler(items, releases)

	releases.On("PopBatch", mock.Anything, 10).Return(nil, errors.New("redis down"))
	releases.On("Len", mock.Anything).Return(int64(0), errors.New("redis down"))

	assert.Equal(t, 0, reconciler.RunOnce(context.Background()))
	releases.AssertNotCalled(t, "Push", mock.Anything, mock.Anything)
}

func TestReleaseReconciler_RequeueFailureIsLogged(t *testing.T) {
	items := &MockItemCatalogClient{}
	releases := &MockPendingReleaseQueue{}
	reconciler := newTestReconciler(items, releases)

	releases.On("PopBatch", mock.Anything, 10).Return([]models.PendingRelease{{ReservationID: "res-1", ItemID: 7, Quantity: -3, Attempts: 4}}, nil)
	items.On("UpdateInventory", mock.Anything, int64(7), 3).Return(false, errors.New("timeout"))
	releases.On("Push", mock.Anything, mock.MatchedBy(func(p models.PendingRelease) bool { return p.Attempts == 5 })).Return(errors.New("redis down"))
	releases.On("Len", mock.Anything).Return(int64(0), nil)

	assert.Equal(t, 0, reconciler.RunOnce(context.Background()))
	releases.AssertExpectations(t)
}

func TestReleaseReconciler_StartStopsOnCancel(t *testing.T) {
	reconciler := newTestReconciler(&MockItemCatalogClient{}, &MockPendingReleaseQueue{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		reconciler.Start(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reconciler did not stop")
	}
}

func TestGetDefaultReconcilerConfig(t *testing.T) {
	config := GetDefaultReconcilerConfig()

	assert.Equal(t, time.Minute, config.Interval)
	assert.Equal(t, 30*time.Second, config.Timeout)
	assert.Equal(t, 50, config.BatchSize)
}
