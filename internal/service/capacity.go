package service

import (
	"context"
	"fmt"
	"time"

	"github.com/egov-portal/reserve-service/internal/clock"
	"github.com/egov-portal/reserve-service/internal/models"
)

// ConflictFinder запросы пересекающихся бронирований
type ConflictFinder interface {
	FindOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID string) ([]models.Reservation, error)
	CountOverlapping(ctx context.Context, itemID int64, start, end time.Time, excludeID string) (int, error)
}

// Evaluator вычисляет допустимость бронирования по пересечениям и емкости.
// Границы дней считаются в часовом поясе loc.
type Evaluator struct {
	conflicts ConflictFinder
	clock     clock.Clock
	loc       *time.Location
}

// NewEvaluator создает вычислитель емкости
func NewEvaluator(conflicts ConflictFinder, clk clock.Clock, loc *time.Location) *Evaluator {
	if loc == nil {
		loc = time.UTC
	}
	return &Evaluator{conflicts: conflicts, clock: clk, loc: loc}
}

// Strategies возвращает таблицу стратегий для Dispatcher
func (e *Evaluator) Strategies() map[models.Category]CategoryValidator {
	return map[models.Category]CategoryValidator{
		models.CategorySpace:     &SpaceStrategy{e},
		models.CategoryEquipment: &EquipmentStrategy{e},
		models.CategoryEducation: &EducationStrategy{e},
	}
}

// dayNumber возвращает номер календарного дня t в часовом поясе loc
func dayNumber(t time.Time, loc *time.Location) int64 {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

// dayWindow расширяет [start, end] до границ календарных дней в часовом поясе loc.
// Конец окна смещен на микросекунду назад: такова точность timestamptz.
func dayWindow(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	y, m, d := start.In(loc).Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, loc)
	y, m, d = end.In(loc).Date()
	to := time.Date(y, m, d+1, 0, 0, 0, 0, loc).Add(-time.Microsecond)
	return from, to
}

// PeakConcurrentQuantity возвращает максимум по дням окна [start, end] суммы количеств
// активных бронирований, покрывающих день. День покрыт, если он лежит в [r.StartDate, r.EndDate]
// включительно. Окно из одного дня агрегирует только этот день.
func PeakConcurrentQuantity(reservations []models.Reservation, start, end time.Time, loc *time.Location) int {
	first, last := dayNumber(start, loc), dayNumber(end, loc)
	if last < first {
		return 0
	}

	// разностный массив по дням окна
	diff := make([]int, last-first+2)
	for _, r := range reservations {
		if !r.IsActive() {
			continue
		}
		from, to := dayNumber(r.StartDate, loc), dayNumber(r.EndDate, loc)
		if to < first || from > last {
			continue
		}
		from = max(from, first)
		to = min(to, last)
		diff[from-first] += r.Quantity
		diff[to-first+1] -= r.Quantity
	}

	peak, running := 0, 0
	for i := int64(0); i <= last-first; i++ {
		running += diff[i]
		if i == 0 || running > peak {
			peak = running
		}
	}
	return peak
}

// checkWindow проверяет, что бронирование попадает в окно ресурса и не превышает допустимый период
func (e *Evaluator) checkWindow(item *models.ItemSnapshot, r *models.Reservation) error {
	windowStart, windowEnd := item.EffectiveWindow()
	if windowStart != nil && r.StartDate.Before(*windowStart) {
		return models.ErrStartTooEarly
	}
	if windowEnd != nil && r.EndDate.After(*windowEnd) {
		return models.ErrEndTooLate
	}

	if item.IsPeriod {
		days := dayNumber(r.EndDate, e.loc) - dayNumber(r.StartDate, e.loc)
		if days > int64(item.PeriodMaxCount) {
			return models.ErrPeriodTooLong
		}
	}

	return nil
}

// SpaceStrategy эксклюзивный ресурс: пересечения не допускаются
type SpaceStrategy struct {
	e *Evaluator
}

// Validate отклоняет бронирование при любом активном пересечении
func (s *SpaceStrategy) Validate(ctx context.Context, item *models.ItemSnapshot, r *models.Reservation) error {
	if err := s.e.checkWindow(item, r); err != nil {
		return err
	}

	count, err := s.e.conflicts.CountOverlapping(ctx, r.ItemID, r.StartDate, r.EndDate, r.ReservationID)
	if err != nil {
		return fmt.Errorf("failed to count overlapping reservations: %w", err)
	}
	if count > 0 {
		return models.ErrDateUnavailable
	}

	return nil
}

// EquipmentStrategy разделяемый ресурс с общим количеством TotalQty
type EquipmentStrategy struct {
	e *Evaluator
}

// Validate допускает бронирование, если TotalQty - peak >= r.Quantity
func (s *EquipmentStrategy) Validate(ctx context.Context, item *models.ItemSnapshot, r *models.Reservation) error {
	if err := s.e.checkWindow(item, r); err != nil {
		return err
	}

	// пик считается по дням, поэтому выбираются все бронирования затронутых дней
	from, to := dayWindow(r.StartDate, r.EndDate, s.e.loc)
	overlapping, err := s.e.conflicts.FindOverlapping(ctx, r.ItemID, from, to, r.ReservationID)
	if err != nil {
		return fmt.Errorf("failed to find overlapping reservations: %w", err)
	}

	peak := PeakConcurrentQuantity(overlapping, r.StartDate, r.EndDate, s.e.loc)
	if item.TotalQty-peak < r.Quantity {
		return models.ErrStockInsufficient
	}

	return nil
}

// EducationStrategy ресурс с удаленным счетчиком мест
type EducationStrategy struct {
	e *Evaluator
}

// Validate проверяет, что прием открыт сейчас и удаленного остатка хватает.
// item.InventoryQty должен уже учитывать места, удерживаемые самим бронированием.
func (s *EducationStrategy) Validate(_ context.Context, item *models.ItemSnapshot, r *models.Reservation) error {
	now := s.e.clock.Now()
	windowStart, windowEnd := item.EffectiveWindow()
	if (windowStart != nil && now.Before(*windowStart)) || (windowEnd != nil && now.After(*windowEnd)) {
		return models.ErrDateUnavailable
	}

	if item.InventoryQty <= 0 {
		return models.ErrReservationClosed
	}
	if item.InventoryQty < r.Quantity {
		return models.ErrCapacityInsufficient(item.InventoryQty)
	}

	return nil
}

// Remaining возвращает остаток емкости ресурса на окно [start, end]
// Окно расширяется до целых дней, чтобы запрос по датам без времени учитывал весь день.
func (e *Evaluator) Remaining(ctx context.Context, item *models.ItemSnapshot, start, end time.Time) (int, error) {
	from, to := dayWindow(start, end, e.loc)

	switch item.CategoryID {
	case models.CategoryEquipment:
		overlapping, err := e.conflicts.FindOverlapping(ctx, item.ItemID, from, to, "")
		if err != nil {
			return 0, fmt.Errorf("failed to find overlapping reservations: %w", err)
		}
		return item.TotalQty - PeakConcurrentQuantity(overlapping, start, end, e.loc), nil

	case models.CategorySpace:
		count, err := e.conflicts.CountOverlapping(ctx, item.ItemID, from, to, "")
		if err != nil {
			return 0, fmt.Errorf("failed to count overlapping reservations: %w", err)
		}
		if count > 0 {
			return 0, nil
		}
		return 1, nil

	case models.CategoryEducation:
		return item.InventoryQty, nil
	}

	return item.TotalQty, nil
}
