package service

import (
	"context"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/stretchr/testify/mock"
)

type MockReservationRepository struct {
	mock.Mock
}

func (m *MockReservationRepository) Create(ctx context.Context, r *models.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) GetByID(ctx context.Context, reservationID string) (*models.Reservation, error) {
	args := m.Called(ctx, reservationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Reservation), args.Error(1)
}

func (m *MockReservationRepository) Update(ctx context.Context, r *models.Reservation) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *MockReservationRepository) UpdateStatus(ctx context.Context, change storage.StatusChange) error {
	args := m.Called(ctx, change)
	return args.Error(0)
}

func (m *MockReservationRepository) FindOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID string) ([]models.Reservation, error) {
	args := m.Called(ctx, itemID, start, end, excludeID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Reservation), args.Error(1)
}

func (m *MockReservationRepository) CountOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID string) (int, error) {
	args := m.Called(ctx, itemID, start, end, excludeID)
	return args.Int(0), args.Error(1)
}

func (m *MockReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]models.Reservation), args.Int(1), args.Error(2)
}

// WithItemLock вызывает fn в том же контексте, если мок не вернул ошибку блокировки
func (m *MockReservationRepository) WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, itemID)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

type MockPendingReleaseQueue struct {
	mock.Mock
}

func (m *MockPendingReleaseQueue) Push(ctx context.Context, release models.PendingRelease) error {
	args := m.Called(ctx, release)
	return args.Error(0)
}

func (m *MockPendingReleaseQueue) PopBatch(ctx context.Context, n int) ([]models.PendingRelease, error) {
	args := m.Called(ctx, n)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PendingRelease), args.Error(1)
}

func (m *MockPendingReleaseQueue) Len(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

type MockItemCatalogClient struct {
	mock.Mock
}

func (m *MockItemCatalogClient) FindByID(ctx context.Context, itemID int64) (*models.ItemSnapshot, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemSnapshot), args.Error(1)
}

func (m *MockItemCatalogClient) FindByIDWithRelations(ctx context.Context, itemID int64) (*models.ItemSnapshot, error) {
	args := m.Called(ctx, itemID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ItemSnapshot), args.Error(1)
}

func (m *MockItemCatalogClient) UpdateInventory(ctx context.Context, itemID int64, delta int) (bool, error) {
	args := m.Called(ctx, itemID, delta)
	return args.Bool(0), args.Error(1)
}

type MockUserClient struct {
	mock.Mock
}

func (m *MockUserClient) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

type MockAttachmentPublisher struct {
	mock.Mock
}

func (m *MockAttachmentPublisher) PublishAttachment(ctx context.Context, msg models.AttachmentMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockCacheInterface struct {
	mock.Mock
}

func (m *MockCacheInterface) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheInterface) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheInterface) Del(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheInterface) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockMetricsInterface struct {
	mock.Mock
}

func (m *MockMetricsInterface) IncDBQuery(operation string) {
	m.Called(operation)
}

func (m *MockMetricsInterface) IncCacheHit(cacheType string) {
	m.Called(cacheType)
}

func (m *MockMetricsInterface) IncCacheMiss(cacheType string) {
	m.Called(cacheType)
}

func (m *MockMetricsInterface) ObserveDBQueryDuration(operation string, duration time.Duration) {
	m.Called(operation, duration)
}
