package service

import (
	"context"
	"errors"
	"testing"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCoordinator(items *MockItemCatalogClient, threshold uint32) *InventoryCoordinator {
	return NewInventoryCoordinator(items, newTestBreaker(threshold), zap.NewNop())
}

func TestInventoryCoordinator_RequireItem(t *testing.T) {
	items := &MockItemCatalogClient{}
	coordinator := newTestCoordinator(items, 3)

	items.On("FindByID", mock.Anything, int64(7)).Return(equipmentItem(100), nil)

	item, err := coordinator.RequireItem(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, 100, item.TotalQty)
}

func TestInventoryCoordinator_RequireItemNotFound(t *testing.T) {
	items := &MockItemCatalogClient{}
	coordinator := newTestCoordinator(items, 3)

	items.On("FindByID", mock.Anything, int64(7)).Return(nil, models.ErrItemNotFound)

	_, err := coordinator.RequireItem(context.Background(), 7)

	assert.ErrorIs(t, err, models.ErrItemNotFound)
}

func TestInventoryCoordinator_RequireItemFailsClosed(t *testing.T) {
	items := &MockItemCatalogClient{}
	coordinator := newTestCoordinator(items, 3)

	items.On("FindByID", mock.Anything, int64(7)).Return(nil, errors.New("connection refused"))

	_, err := coordinator.RequireItem(context.Background(), 7)

	assert.ErrorIs(t, err, models.ErrItemLookupFailed)
}

func TestInventoryCoordinator_AdjustInventory(t *testing.T) {
	t.Run("non education is a no-op", func(t *testing.T) {
		items := &MockItemCatalogClient{}
		coordinator := newTestCoordinator(items, 3)

		err := coordinator.AdjustInventory(context.Background(), *request(models.CategoryEquipment, 5, sep(10), sep(10)))

		assert.NoError(t, err)
		items.AssertNotCalled(t, "UpdateInventory", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("hold decrements remote stock", func(t *testing.T) {
		items := &MockItemCatalogClient{}
		coordinator := newTestCoordinator(items, 3)
		items.On("UpdateInventory", mock.Anything, int64(7), -5).Return(true, nil).Once()

		err := coordinator.AdjustInventory(context.Background(), *request(models.CategoryEducation, 5, sep(10), sep(10)))

		assert.NoError(t, err)
		items.AssertExpectations(t)
	})

	t.Run("release increments remote stock", func(t *testing.T) {
		items := &MockItemCatalogClient{}
		coordinator := newTestCoordinator(items, 3)
		items.On("UpdateInventory", mock.Anything, int64(7), 5).Return(true, nil).Once()

		err := coordinator.AdjustInventory(context.Background(), request(models.CategoryEducation, 5, sep(10), sep(10)).Release())

		assert.NoError(t, err)
		items.AssertExpectations(t)
	})

	t.Run("rejected update", func(t *testing.T) {
		items := &MockItemCatalogClient{}
		coordinator := newTestCoordinator(items, 3)
		items.On("UpdateInventory", mock.Anything, int64(7), -5).Return(false, nil)

		err := coordinator.AdjustInventory(context.Background(), *request(models.CategoryEducation, 5, sep(10), sep(10)))

		assert.ErrorIs(t, err, models.ErrInventoryUpdateFailed)
	})
}

func TestInventoryCoordinator_OpenBreakerSkipsRemoteCall(t *testing.T) {
	items := &MockItemCatalogClient{}
	coordinator := newTestCoordinator(items, 1)
	r := *request(models.CategoryEducation, 5, sep(10), sep(10))

	items.On("UpdateInventory", mock.Anything, int64(7), -5).Return(false, errors.New("timeout")).Once()

	first := coordinator.AdjustInventory(context.Background(), r)
	second := coordinator.AdjustInventory(context.Background(), r)

	assert.ErrorIs(t, first, models.ErrInventoryUpdateFailed)
	assert.ErrorIs(t, second, models.ErrInventoryUpdateFailed)
	items.AssertNumberOfCalls(t, "UpdateInventory", 1)
}
