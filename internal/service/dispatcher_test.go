package service

import (
	"context"
	"testing"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockCategoryValidator struct {
	mock.Mock
}

func (m *MockCategoryValidator) Validate(ctx context.Context, item *models.ItemSnapshot, r *models.Reservation) error {
	args := m.Called(ctx, item, r)
	return args.Error(0)
}

func TestDispatcher_RoutesByItemCategory(t *testing.T) {
	space := &MockCategoryValidator{}
	equipment := &MockCategoryValidator{}
	dispatcher := NewDispatcher(map[models.Category]CategoryValidator{
		models.CategorySpace:     space,
		models.CategoryEquipment: equipment,
	})

	item := &models.ItemSnapshot{CategoryID: models.CategoryEquipment}
	r := &models.Reservation{ReservationID: "res-1"}
	equipment.On("Validate", mock.Anything, item, r).Return(models.ErrStockInsufficient)

	err := dispatcher.Validate(context.Background(), item, r)

	assert.ErrorIs(t, err, models.ErrStockInsufficient)
	equipment.AssertExpectations(t)
	space.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_UnknownCategoryPassesThrough(t *testing.T) {
	space := &MockCategoryValidator{}
	dispatcher := NewDispatcher(map[models.Category]CategoryValidator{models.CategorySpace: space})

	err := dispatcher.Validate(context.Background(), &models.ItemSnapshot{CategoryID: "vehicle"}, &models.Reservation{})

	assert.NoError(t, err)
	space.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything, mock.Anything)
}
