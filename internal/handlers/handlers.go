package handlers

import (
	"github.com/egov-portal/reserve-service/internal/database"
	"github.com/egov-portal/reserve-service/internal/handlers/public"
	"github.com/egov-portal/reserve-service/internal/service"
	"go.uber.org/zap"
)

// Handlers содержит все HTTP обработчики
type Handlers struct {
	Health      *HealthHandler
	Reservation *public.ReservationHandler
}

// HandlerDependencies содержит зависимости для создания handlers
type HandlerDependencies struct {
	Service *service.Service
	DB      *database.DB
	Redis   *database.RedisClient
	Logger  *zap.Logger
}

// NewHandlers создает новый экземпляр Handlers со всеми обработчиками
func NewHandlers(deps *HandlerDependencies) *Handlers {
	breakerState := func() string {
		return deps.Service.Coordinator.BreakerState()
	}

	return &Handlers{
		Health: NewHealthHandler(deps.DB, breakerState,
			Dependency{Name: "database", Checker: deps.DB},
			Dependency{Name: "redis", Checker: deps.Redis},
		),
		Reservation: public.NewReservationHandler(deps.Service.Reservation, deps.Logger.Named("reservation_handler")),
	}
}
