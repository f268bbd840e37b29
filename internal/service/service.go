package service

import (
	"time"

	"github.com/egov-portal/reserve-service/internal/clock"
	"github.com/egov-portal/reserve-service/internal/storage"
	"go.uber.org/zap"
)

// ServiceDependencies содержит зависимости для создания сервисов
type ServiceDependencies struct {
	Repository *storage.Repository
	Cache      storage.CacheInterface
	Metrics    storage.MetricsInterface
	Items      ItemCatalogClient
	Users      UserClient
	Publisher  AttachmentPublisher
	Breaker    BreakerSettings
	Clock      clock.Clock
	Location   *time.Location
	ProfileTTL time.Duration
	Pages      PageLimits
	Reconciler ReconcilerConfig
	Logger     *zap.Logger
}

// Service объединяет все сервисы
type Service struct {
	Reservation *ReservationService
	Reconciler  *ReleaseReconciler
	Coordinator *InventoryCoordinator
}

// NewService создает новый экземпляр Service со всеми сервисами
func NewService(deps *ServiceDependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.NewSystem()
	}

	users := deps.Users
	if deps.Cache != nil && deps.ProfileTTL > 0 {
		users = NewCachedUserClient(users, deps.Cache, deps.Metrics, deps.ProfileTTL, logger.Named("user_client"))
	}

	breaker := NewBreaker(deps.Breaker, logger.Named("breaker"))
	coordinator := NewInventoryCoordinator(deps.Items, breaker, logger.Named("inventory"))
	evaluator := NewEvaluator(deps.Repository.Reservation, clk, deps.Location)

	return &Service{
		Reservation: NewReservationService(
			deps.Repository.Reservation,
			deps.Repository.PendingReleases,
			coordinator,
			evaluator,
			users,
			deps.Publisher,
			clk,
			deps.Pages,
			logger.Named("reservation"),
		),
		Reconciler:  NewReleaseReconciler(deps.Repository.PendingReleases, coordinator, logger.Named("reconciler"), deps.Reconciler),
		Coordinator: coordinator,
	}
}
