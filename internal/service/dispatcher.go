package service

import (
	"context"

	"github.com/egov-portal/reserve-service/internal/models"
)

// CategoryValidator проверка допустимости бронирования для одной категории
type CategoryValidator interface {
	Validate(ctx context.Context, item *models.ItemSnapshot, r *models.Reservation) error
}

// Dispatcher выбирает стратегию проверки по категории ресурса
type Dispatcher struct {
	strategies map[models.Category]CategoryValidator
}

// NewDispatcher создает диспетчер с таблицей стратегий
func NewDispatcher(strategies map[models.Category]CategoryValidator) *Dispatcher {
	return &Dispatcher{strategies: strategies}
}

// Validate вызывает ровно одну стратегию по item.CategoryID.
// Для категории без стратегии бронирование допускается без проверок.
func (d *Dispatcher) Validate(ctx context.Context, item *models.ItemSnapshot, r *models.Reservation) error {
	strategy, ok := d.strategies[item.CategoryID]
	if !ok {
		return nil
	}
	return strategy.Validate(ctx, item, r)
}
