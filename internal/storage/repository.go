package storage

import (
	"context"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
)

// ReservationRepository определяет интерфейс для работы с бронированиями
type ReservationRepository interface {
	// Create сохраняет новое бронирование с уже назначенным идентификатором
	Create(ctx context.Context, r *models.Reservation) error

	// GetByID возвращает бронирование по идентификатору
	GetByID(ctx context.Context, reservationID string) (*models.Reservation, error)

	// Update сохраняет изменяемые поля бронирования
	Update(ctx context.Context, r *models.Reservation) error

	// UpdateStatus меняет статус, причину отмены и признак удержания остатка
	UpdateStatus(ctx context.Context, change StatusChange) error

	// FindOverlapping возвращает активные бронирования ресурса, пересекающие окно.
	// Отмененные бронирования исключаются всегда, excludeID исключается если задан.
	FindOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID string) ([]models.Reservation, error)

	// CountOverlapping возвращает количество активных пересекающих окно бронирований
	CountOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID string) (int, error)

	// List возвращает страницу бронирований и общее количество по фильтру
	List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error)

	// WithItemLock выполняет fn в транзакции под advisory-блокировкой ресурса.
	// Все вызовы репозитория с переданным в fn контекстом идут в этой транзакции.
	WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context) error) error
}

// StatusChange описывает переход бронирования в новый статус
type StatusChange struct {
	ReservationID string
	// From статусы, из которых допустим переход; запись в другом статусе не меняется
	From          []models.Status
	Status        models.Status
	CancelReason  *string
	InventoryHeld bool
	UpdatedBy     string
	UpdatedAt     time.Time
}

// PendingReleaseQueue очередь освобождений остатка, не выполненных сразу
type PendingReleaseQueue interface {
	Push(ctx context.Context, release models.PendingRelease) error
	PopBatch(ctx context.Context, n int) ([]models.PendingRelease, error)
	Len(ctx context.Context) (int64, error)
}

// Repository объединяет все репозитории
type Repository struct {
	Reservation     ReservationRepository
	PendingReleases PendingReleaseQueue
}

// NewRepository создает новый экземпляр Repository со всеми репозиториями
func NewRepository(deps *RepositoryDependencies) *Repository {
	return &Repository{
		Reservation:     NewReservationRepository(deps),
		PendingReleases: NewPendingReleaseQueue(deps),
	}
}

// RepositoryDependencies содержит зависимости для создания репозиториев
type RepositoryDependencies struct {
	DB               DatabaseInterface
	Cache            CacheInterface
	Queue            QueueInterface
	MetricsCollector MetricsInterface
}

// Querier общий набор операций пула и транзакции
type Querier interface {
	QueryRow(ctx context.Context, query string, args ...interface{}) Row
	Query(ctx context.Context, query string, args ...interface{}) (Rows, error)
	Exec(ctx context.Context, query string, args ...interface{}) error
}

// DatabaseInterface определяет интерфейс для работы с базой данных
type DatabaseInterface interface {
	Querier
	BeginTx(ctx context.Context) (Tx, error)
	Health(ctx context.Context) error
}

// CacheInterface определяет интерфейс для работы с кешем
type CacheInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Health(ctx context.Context) error
}

// QueueInterface определяет интерфейс для работы со списками Redis
type QueueInterface interface {
	PushTail(ctx context.Context, key string, values ...string) error
	PopHead(ctx context.Context, key string, n int) ([]string, error)
	Len(ctx context.Context, key string) (int64, error)
}

// MetricsInterface определяет интерфейс для сбора метрик
type MetricsInterface interface {
	IncDBQuery(operation string)
	IncCacheHit(cacheType string)
	IncCacheMiss(cacheType string)
	ObserveDBQueryDuration(operation string, duration time.Duration)
}

// Row интерфейс для работы с результатом одной строки
type Row interface {
	Scan(dest ...interface{}) error
}

// Rows интерфейс для работы с результатом множества строк
type Rows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
	Close()
}

// Tx интерфейс для работы с транзакциями
type Tx interface {
	Querier
	Commit() error
	Rollback() error
}
