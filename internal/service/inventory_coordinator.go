package service

import (
	"context"
	"errors"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// InventoryCoordinator выполняет все обращения к Item Catalog Service через circuit breaker.
// Удаленный остаток не кешируется.
type InventoryCoordinator struct {
	items   ItemCatalogClient
	breaker *Breaker
	logger  *zap.Logger
}

// NewInventoryCoordinator создает координатор удаленного остатка
func NewInventoryCoordinator(items ItemCatalogClient, breaker *Breaker, logger *zap.Logger) *InventoryCoordinator {
	return &InventoryCoordinator{
		items:   items,
		breaker: breaker,
		logger:  logger,
	}
}

// Item получает снимок ресурса
func (c *InventoryCoordinator) Item(ctx context.Context, itemID int64) Result[*models.ItemSnapshot] {
	return Call(ctx, c.breaker, func(ctx context.Context) (*models.ItemSnapshot, error) {
		return c.items.FindByID(ctx, itemID)
	})
}

// ItemWithRelations получает снимок ресурса с отображаемыми полями
func (c *InventoryCoordinator) ItemWithRelations(ctx context.Context, itemID int64) Result[*models.ItemSnapshot] {
	return Call(ctx, c.breaker, func(ctx context.Context) (*models.ItemSnapshot, error) {
		return c.items.FindByIDWithRelations(ctx, itemID)
	})
}

// RequireItem получает снимок ресурса для операции записи.
// Любой неуспешный исход превращается в доменную ошибку.
func (c *InventoryCoordinator) RequireItem(ctx context.Context, itemID int64) (*models.ItemSnapshot, error) {
	res := c.Item(ctx, itemID)
	if res.OK() && res.Value != nil {
		return res.Value, nil
	}
	if errors.Is(res.Err, models.ErrItemNotFound) {
		return nil, models.ErrItemNotFound
	}

	c.logger.Error("Item lookup failed",
		zap.Int64("item_id", itemID),
		zap.String("outcome", res.Outcome.String()),
		zap.String("breaker_state", c.breaker.State().String()),
		zap.Error(res.Err))
	return nil, models.ErrItemLookupFailed
}

// AdjustInventory меняет удаленный остаток на -r.Quantity.
// Для удержания передается бронирование, для освобождения r.Release().
// Действует только для категории education, для остальных ничего не делает.
func (c *InventoryCoordinator) AdjustInventory(ctx context.Context, r models.Reservation) error {
	if r.CategoryID != models.CategoryEducation {
		return nil
	}

	ctx, span := tracing.Tracer().Start(ctx, "inventory.adjust")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("item.id", r.ItemID),
		attribute.String("reservation.id", r.ReservationID),
		attribute.Int("inventory.delta", -r.Quantity),
	)

	res := Call(ctx, c.breaker, func(ctx context.Context) (bool, error) {
		return c.items.UpdateInventory(ctx, r.ItemID, -r.Quantity)
	})

	if !res.OK() || !res.Value {
		span.SetStatus(codes.Error, res.Outcome.String())
		c.logger.Error("Inventory update failed",
			zap.String("reservation_id", r.ReservationID),
			zap.Int64("item_id", r.ItemID),
			zap.Int("delta", -r.Quantity),
			zap.String("outcome", res.Outcome.String()),
			zap.String("breaker_state", c.breaker.State().String()),
			zap.Error(res.Err))
		return models.ErrInventoryUpdateFailed
	}

	c.logger.Info("Inventory adjusted",
		zap.String("reservation_id", r.ReservationID),
		zap.Int64("item_id", r.ItemID),
		zap.Int("delta", -r.Quantity))
	return nil
}

// BreakerState возвращает текущее состояние circuit breaker
func (c *InventoryCoordinator) BreakerState() string {
	return c.breaker.State().String()
}
