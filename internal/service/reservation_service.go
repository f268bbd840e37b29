package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/egov-portal/reserve-service/internal/clock"
	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/egov-portal/reserve-service/pkg/metrics"
	"github.com/egov-portal/reserve-service/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AttachmentPublisher публикует сообщения о привязке вложений
type AttachmentPublisher interface {
	PublishAttachment(ctx context.Context, msg models.AttachmentMessage) error
}

// PageLimits ограничения размера страницы списка
type PageLimits struct {
	Default int
	Max     int
}

// ReservationService реализует конвейер бронирования и переходы статусов
type ReservationService struct {
	repo        storage.ReservationRepository
	releases    storage.PendingReleaseQueue
	coordinator *InventoryCoordinator
	dispatcher  *Dispatcher
	evaluator   *Evaluator
	users       UserClient
	publisher   AttachmentPublisher
	clock       clock.Clock
	pages       PageLimits
	logger      *zap.Logger
}

// NewReservationService создает новый экземпляр ReservationService
func NewReservationService(
	repo storage.ReservationRepository,
	releases storage.PendingReleaseQueue,
	coordinator *InventoryCoordinator,
	evaluator *Evaluator,
	users UserClient,
	publisher AttachmentPublisher,
	clk clock.Clock,
	pages PageLimits,
	logger *zap.Logger,
) *ReservationService {
	if pages.Default <= 0 {
		pages.Default = 20
	}
	if pages.Max < pages.Default {
		pages.Max = pages.Default
	}

	return &ReservationService{
		repo:        repo,
		releases:    releases,
		coordinator: coordinator,
		dispatcher:  NewDispatcher(evaluator.Strategies()),
		evaluator:   evaluator,
		users:       users,
		publisher:   publisher,
		clock:       clk,
		pages:       pages,
		logger:      logger,
	}
}

func (s *ReservationService) startSpan(ctx context.Context, name string, r *models.Reservation) (context.Context, trace.Span) {
	ctx, span := tracing.Tracer().Start(ctx, "reservation."+name)
	if r != nil {
		span.SetAttributes(
			attribute.String("reservation.id", r.ReservationID),
			attribute.Int64("item.id", r.ItemID),
			attribute.String("reservation.category", string(r.CategoryID)),
		)
	}
	return ctx, span
}

// finish записывает исход операции в метрики и span
func (s *ReservationService) finish(span trace.Span, category models.Category, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
		if re, ok := models.AsReservationError(err); ok {
			outcome = re.Code
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	metrics.RecordReservation(string(category), operation, outcome)
	span.End()
}

// Create проверяет и сохраняет новое бронирование.
// Порядок шагов: проверка категории, изменение удаленного остатка, запись.
func (s *ReservationService) Create(ctx context.Context, principal models.Principal, req models.CreateReservationRequest) (res *models.Reservation, err error) {
	if req.EndDate.Before(req.StartDate) {
		return nil, models.ErrInvalidPeriod
	}

	item, err := s.coordinator.RequireItem(ctx, req.ItemID)
	if err != nil {
		return nil, err
	}

	r := models.NewReservation(req.ItemID, item.CategoryID, principal.UserID, s.clock.Now())
	r.LocationID = req.LocationID
	if r.LocationID == 0 {
		r.LocationID = item.LocationID
	}
	r.Quantity = req.Quantity
	r.Purpose = req.Purpose
	r.AttachmentCode = optional(req.AttachmentCode)
	r.StartDate = req.StartDate
	r.EndDate = req.EndDate
	r.RequesterContact = req.RequesterContact
	r.RequesterEmail = req.RequesterEmail
	s.fillRequesterContact(ctx, r)

	ctx, span := s.startSpan(ctx, "create", r)
	defer func() { s.finish(span, r.CategoryID, "create", err) }()

	adjusted := false
	err = s.repo.WithItemLock(ctx, r.ItemID, func(txCtx context.Context) error {
		if err := s.dispatcher.Validate(txCtx, item, r); err != nil {
			return err
		}

		if err := s.coordinator.AdjustInventory(txCtx, *r); err != nil {
			return err
		}
		adjusted = r.CategoryID == models.CategoryEducation
		r.InventoryHeld = adjusted

		return s.repo.Create(txCtx, r)
	})
	if err != nil {
		if adjusted {
			s.compensate(ctx, *r)
		}
		s.logger.Info("Reservation rejected",
			zap.Int64("item_id", r.ItemID),
			zap.String("category", string(r.CategoryID)),
			zap.String("user_id", principal.UserID),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Reservation created",
		zap.String("reservation_id", r.ReservationID),
		zap.Int64("item_id", r.ItemID),
		zap.String("category", string(r.CategoryID)),
		zap.String("user_id", principal.UserID),
		zap.Int("quantity", r.Quantity))

	s.publishAttachment(ctx, r)
	return r, nil
}

// fillRequesterContact дополняет контакты профилем пользователя, ошибки не прерывают запрос
func (s *ReservationService) fillRequesterContact(ctx context.Context, r *models.Reservation) {
	if r.RequesterContact != "" && r.RequesterEmail != "" {
		return
	}

	profile, err := s.users.FindByUserID(ctx, r.RequesterID)
	if err != nil {
		s.logger.Warn("Failed to get requester profile", zap.Error(err), zap.String("user_id", r.RequesterID))
		return
	}
	if r.RequesterContact == "" {
		r.RequesterContact = profile.ContactNo
	}
	if r.RequesterEmail == "" {
		r.RequesterEmail = profile.Email
	}
}

// publishAttachment отправляет сообщение о привязке вложений. Бронирование уже сохранено,
// поэтому ошибка публикации только логируется.
func (s *ReservationService) publishAttachment(ctx context.Context, r *models.Reservation) {
	if r.AttachmentCode == nil {
		return
	}

	msg := models.AttachmentMessage{
		AttachmentCode: *r.AttachmentCode,
		EntityName:     models.AttachmentEntityName,
		EntityID:       r.ReservationID,
	}
	if err := s.publisher.PublishAttachment(ctx, msg); err != nil {
		s.logger.Error("Failed to publish attachment association",
			zap.Error(err),
			zap.String("reservation_id", r.ReservationID))
	}
}

// compensate отменяет уже выполненное изменение удаленного остатка.
// Если отмена не удалась, она ставится в очередь для release reconciler.
func (s *ReservationService) compensate(ctx context.Context, applied models.Reservation) {
	ctx = context.WithoutCancel(ctx)
	undo := applied.Release()

	if err := s.coordinator.AdjustInventory(ctx, undo); err == nil {
		s.logger.Warn("Inventory change compensated",
			zap.String("reservation_id", applied.ReservationID),
			zap.Int64("item_id", applied.ItemID),
			zap.Int("quantity", applied.Quantity))
		return
	}

	pending := models.PendingRelease{
		ReservationID: applied.ReservationID,
		ItemID:        applied.ItemID,
		Quantity:      undo.Quantity,
		QueuedAt:      s.clock.Now(),
	}
	if err := s.releases.Push(ctx, pending); err != nil {
		s.logger.Error("Failed to queue inventory compensation, manual reconciliation required",
			zap.Error(err),
			zap.String("reservation_id", applied.ReservationID),
			zap.Int64("item_id", applied.ItemID),
			zap.Int("quantity", undo.Quantity))
		return
	}

	s.logger.Warn("Inventory compensation queued",
		zap.String("reservation_id", applied.ReservationID),
		zap.Int64("item_id", applied.ItemID),
		zap.Int("quantity", undo.Quantity))
}

// Get возвращает бронирование со связанными данными.
// Данные ресурса и профиль запрашиваются параллельно, ошибки дают пустые блоки.
func (s *ReservationService) Get(ctx context.Context, reservationID string) (*models.ReservationDetail, error) {
	r, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	detail := &models.ReservationDetail{Reservation: *r}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res := s.coordinator.ItemWithRelations(gctx, r.ItemID)
		if !res.OK() {
			s.logger.Warn("Item relations unavailable",
				zap.Int64("item_id", r.ItemID),
				zap.String("outcome", res.Outcome.String()),
				zap.Error(res.Err))
			return nil
		}
		detail.Item = res.Value
		return nil
	})
	g.Go(func() error {
		profile, err := s.users.FindByUserID(gctx, r.RequesterID)
		if err != nil {
			s.logger.Warn("Requester profile unavailable", zap.Error(err), zap.String("user_id", r.RequesterID))
			return nil
		}
		detail.Requester = profile
		return nil
	})
	_ = g.Wait()

	return detail, nil
}

// List возвращает страницу бронирований
func (s *ReservationService) List(ctx context.Context, filter models.ReservationFilter) (*models.ReservationListResponse, error) {
	if filter.Limit <= 0 {
		filter.Limit = s.pages.Default
	}
	if filter.Limit > s.pages.Max {
		filter.Limit = s.pages.Max
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	filter.Keyword = strings.TrimSpace(filter.Keyword)

	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}

	return &models.ReservationListResponse{
		Items: items,
		Pagination: models.PaginationInfo{
			Offset:     filter.Offset,
			Limit:      filter.Limit,
			TotalItems: total,
		},
	}, nil
}

// creditHeld возвращает копию снимка, в которой удаленный остаток учитывает
// места, уже удерживаемые проверяемым бронированием
func creditHeld(item *models.ItemSnapshot, r *models.Reservation) *models.ItemSnapshot {
	credited := *item
	if r.CategoryID == models.CategoryEducation && r.InventoryHeld {
		credited.InventoryQty += r.Quantity
	}
	return &credited
}

// checkEditable проверяет, что бронирование в статусе REQUEST и принадлежит пользователю
func checkEditable(principal models.Principal, r *models.Reservation) error {
	if !principal.IsAdmin && !r.IsOwnedBy(principal.UserID) {
		return models.ErrNotOwner
	}
	switch r.Status {
	case models.StatusRequest:
		return nil
	case models.StatusDone:
		return models.ErrAlreadyCompleted
	}
	return models.ErrNotRequestStatus
}

// checkCancellable проверяет, что бронирование еще можно отменить
func checkCancellable(principal models.Principal, r *models.Reservation) error {
	switch r.Status {
	case models.StatusDone:
		return models.ErrAlreadyCompleted
	case models.StatusCancel:
		return models.ErrAlreadyCancelled
	}
	if !principal.IsAdmin && !r.IsOwnedBy(principal.UserID) {
		return models.ErrNotOwner
	}
	return nil
}

// checkApprovable проверяет, что бронирование ожидает подтверждения
func checkApprovable(r *models.Reservation) error {
	switch r.Status {
	case models.StatusRequest:
		return nil
	case models.StatusDone:
		return models.ErrAlreadyCompleted
	}
	return models.ErrNotRequestStatus
}

// applyUpdate возвращает копию бронирования с полями из запроса
func applyUpdate(current *models.Reservation, req models.UpdateReservationRequest, userID string, now time.Time) models.Reservation {
	updated := *current
	updated.Quantity = req.Quantity
	updated.Purpose = req.Purpose
	updated.AttachmentCode = optional(req.AttachmentCode)
	updated.StartDate = req.StartDate
	updated.EndDate = req.EndDate
	if req.RequesterContact != "" {
		updated.RequesterContact = req.RequesterContact
	}
	if req.RequesterEmail != "" {
		updated.RequesterEmail = req.RequesterEmail
	}
	updated.UpdatedAt = &now
	updated.UpdatedBy = &userID
	return updated
}

// Update меняет поля бронирования в статусе REQUEST после повторной проверки категории.
// Статус и владелец проверяются повторно под блокировкой ресурса.
func (s *ReservationService) Update(ctx context.Context, principal models.Principal, reservationID string, req models.UpdateReservationRequest) (res *models.Reservation, err error) {
	if req.EndDate.Before(req.StartDate) {
		return nil, models.ErrInvalidPeriod
	}

	existing, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return nil, err
	}

	ctx, span := s.startSpan(ctx, "update", existing)
	defer func() { s.finish(span, existing.CategoryID, "update", err) }()

	if err := checkEditable(principal, existing); err != nil {
		return nil, err
	}

	item, err := s.coordinator.RequireItem(ctx, existing.ItemID)
	if err != nil {
		return nil, err
	}
	if item.CategoryID != existing.CategoryID {
		return nil, models.ErrCategoryMismatch
	}

	now := s.clock.Now()
	var (
		previous   models.Reservation
		updated    models.Reservation
		adjustment models.Reservation
		adjusted   bool
	)

	err = s.repo.WithItemLock(ctx, existing.ItemID, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := checkEditable(principal, current); err != nil {
			return err
		}

		previous = *current
		updated = applyUpdate(current, req, principal.UserID, now)

		if err := s.dispatcher.Validate(txCtx, creditHeld(item, current), &updated); err != nil {
			return err
		}

		// изменение удаленного остатка на разницу количеств
		adjustment = updated
		adjustment.Quantity = updated.Quantity - current.Quantity
		if current.InventoryHeld && adjustment.Quantity != 0 {
			if err := s.coordinator.AdjustInventory(txCtx, adjustment); err != nil {
				return err
			}
			adjusted = adjustment.CategoryID == models.CategoryEducation
		}

		return s.repo.Update(txCtx, &updated)
	})
	if err != nil {
		if adjusted {
			s.compensate(ctx, adjustment)
		}
		return nil, err
	}

	s.logger.Info("Reservation updated",
		zap.String("reservation_id", updated.ReservationID),
		zap.Int64("item_id", updated.ItemID),
		zap.String("category", string(updated.CategoryID)),
		zap.String("user_id", principal.UserID))

	if updated.AttachmentCode != nil && (previous.AttachmentCode == nil || *previous.AttachmentCode != *updated.AttachmentCode) {
		s.publishAttachment(ctx, &updated)
	}

	return &updated, nil
}

// Cancel отменяет бронирование владельцем или администратором.
// Удерживаемый остаток освобождается до смены статуса, при ошибке статус не меняется.
// Статус перечитывается под блокировкой, поэтому остаток освобождается не больше одного раза.
func (s *ReservationService) Cancel(ctx context.Context, principal models.Principal, reservationID, reason string) (err error) {
	existing, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}

	ctx, span := s.startSpan(ctx, "cancel", existing)
	defer func() { s.finish(span, existing.CategoryID, "cancel", err) }()

	if err := checkCancellable(principal, existing); err != nil {
		return err
	}

	var (
		release  models.Reservation
		released bool
	)

	err = s.repo.WithItemLock(ctx, existing.ItemID, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := checkCancellable(principal, current); err != nil {
			return err
		}

		release = current.Release()
		if current.InventoryHeld {
			if err := s.coordinator.AdjustInventory(txCtx, release); err != nil {
				return err
			}
			released = true
		}

		return s.repo.UpdateStatus(txCtx, storage.StatusChange{
			ReservationID: current.ReservationID,
			From:          []models.Status{models.StatusRequest, models.StatusApprove},
			Status:        models.StatusCancel,
			CancelReason:  &reason,
			InventoryHeld: false,
			UpdatedBy:     principal.UserID,
			UpdatedAt:     s.clock.Now(),
		})
	})
	if err != nil {
		if released {
			s.compensate(ctx, release)
		}
		return err
	}

	s.logger.Info("Reservation cancelled",
		zap.String("reservation_id", existing.ReservationID),
		zap.Int64("item_id", existing.ItemID),
		zap.String("category", string(existing.CategoryID)),
		zap.String("user_id", principal.UserID),
		zap.Bool("inventory_released", released))

	return nil
}

// Approve переводит бронирование из REQUEST в APPROVE.
// Доступно только администратору, проверка категории выполняется повторно под блокировкой.
func (s *ReservationService) Approve(ctx context.Context, principal models.Principal, reservationID string) (err error) {
	if !principal.IsAdmin {
		return models.ErrAdminRequired
	}

	existing, err := s.repo.GetByID(ctx, reservationID)
	if err != nil {
		return err
	}

	ctx, span := s.startSpan(ctx, "approve", existing)
	defer func() { s.finish(span, existing.CategoryID, "approve", err) }()

	if err := checkApprovable(existing); err != nil {
		return err
	}

	item, err := s.coordinator.RequireItem(ctx, existing.ItemID)
	if err != nil {
		return err
	}

	var (
		hold     models.Reservation
		adjusted bool
	)

	err = s.repo.WithItemLock(ctx, existing.ItemID, func(txCtx context.Context) error {
		current, err := s.repo.GetByID(txCtx, reservationID)
		if err != nil {
			return err
		}
		if err := checkApprovable(current); err != nil {
			return err
		}

		if err := s.dispatcher.Validate(txCtx, creditHeld(item, current), current); err != nil {
			return err
		}

		hold = *current
		if !current.InventoryHeld {
			if err := s.coordinator.AdjustInventory(txCtx, hold); err != nil {
				return err
			}
			adjusted = current.CategoryID == models.CategoryEducation
		}

		return s.repo.UpdateStatus(txCtx, storage.StatusChange{
			ReservationID: current.ReservationID,
			From:          []models.Status{models.StatusRequest},
			Status:        models.StatusApprove,
			InventoryHeld: current.InventoryHeld || adjusted,
			UpdatedBy:     principal.UserID,
			UpdatedAt:     s.clock.Now(),
		})
	})
	if err != nil {
		if adjusted {
			s.compensate(ctx, hold)
		}
		return err
	}

	s.logger.Info("Reservation approved",
		zap.String("reservation_id", existing.ReservationID),
		zap.Int64("item_id", existing.ItemID),
		zap.String("category", string(existing.CategoryID)),
		zap.String("user_id", principal.UserID))

	return nil
}

// RemainingInventory возвращает остаток емкости ресурса на период
func (s *ReservationService) RemainingInventory(ctx context.Context, itemID int64, start, end time.Time) (*models.InventoryAvailability, error) {
	if end.Before(start) {
		return nil, models.ErrInvalidPeriod
	}

	item, err := s.coordinator.RequireItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	remaining, err := s.evaluator.Remaining(ctx, item, start, end)
	if err != nil {
		return nil, err
	}

	return &models.InventoryAvailability{
		ItemID:    itemID,
		Category:  item.CategoryID,
		TotalQty:  item.TotalQty,
		Remaining: remaining,
		StartDate: start,
		EndDate:   end,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
