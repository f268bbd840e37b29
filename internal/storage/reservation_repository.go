package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	dberrors "github.com/egov-portal/reserve-service/internal/storage/errors"
)

const reservationColumns = `
	reservation_id, item_id, category_id, location_id, quantity, purpose,
	attachment_code, start_date, end_date, status, cancel_reason, inventory_held,
	requester_id, requester_contact, requester_email,
	created_at, created_by, updated_at, updated_by`

type txKey struct{}

// reservationRepository реализует ReservationRepository
type reservationRepository struct {
	db      DatabaseInterface
	metrics MetricsInterface
}

// NewReservationRepository создает новый экземпляр репозитория бронирований
func NewReservationRepository(deps *RepositoryDependencies) ReservationRepository {
	return &reservationRepository{
		db:      deps.DB,
		metrics: deps.MetricsCollector,
	}
}

func txFromContext(ctx context.Context) Tx {
	tx, _ := ctx.Value(txKey{}).(Tx)
	return tx
}

// querier возвращает транзакцию из контекста, если она есть
func (r *reservationRepository) querier(ctx context.Context) Querier {
	if tx := txFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

func (r *reservationRepository) observe(operation string, start time.Time) {
	r.metrics.IncDBQuery(operation)
	r.metrics.ObserveDBQueryDuration(operation, time.Since(start))
}

// WithItemLock выполняет fn под транзакционной advisory-блокировкой ресурса
func (r *reservationRepository) WithItemLock(ctx context.Context, itemID int64, fn func(ctx context.Context) error) error {
	start := time.Now()
	defer r.observe("reservation_item_lock", start)

	// Вложенный вызов переиспользует открытую транзакцию
	if tx := txFromContext(ctx); tx != nil {
		if err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, itemID); err != nil {
			return fmt.Errorf("failed to lock item %d: %w", itemID, dberrors.HandleDatabaseError(err, "reservation_item_lock"))
		}
		return fn(ctx)
	}

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, itemID); err != nil {
		return fmt.Errorf("failed to lock item %d: %w", itemID, dberrors.HandleDatabaseError(err, "reservation_item_lock"))
	}

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Create сохраняет новое бронирование
func (r *reservationRepository) Create(ctx context.Context, res *models.Reservation) error {
	start := time.Now()
	defer r.observe("reservation_create", start)

	query := `
		INSERT INTO reserve.reservations (` + reservationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	err := r.querier(ctx).Exec(ctx, query,
		res.ReservationID,
		res.ItemID,
		string(res.CategoryID),
		res.LocationID,
		res.Quantity,
		res.Purpose,
		res.AttachmentCode,
		res.StartDate,
		res.EndDate,
		string(res.Status),
		res.CancelReason,
		res.InventoryHeld,
		res.RequesterID,
		res.RequesterContact,
		res.RequesterEmail,
		res.CreatedAt,
		res.CreatedBy,
		res.UpdatedAt,
		res.UpdatedBy,
	)
	if err != nil {
		return fmt.Errorf("failed to insert reservation: %w", dberrors.HandleDatabaseError(err, "reservation_create"))
	}

	return nil
}

// GetByID возвращает бронирование по идентификатору
func (r *reservationRepository) GetByID(ctx context.Context, reservationID string) (*models.Reservation, error) {
	start := time.Now()
	defer r.observe("reservation_get", start)

	query := `SELECT ` + reservationColumns + ` FROM reserve.reservations WHERE reservation_id = $1`

	res, err := scanReservation(r.querier(ctx).QueryRow(ctx, query, reservationID))
	if err != nil {
		err = dberrors.HandleDatabaseError(err, "reservation_get")
		if dberrors.IsNotFound(err) {
			return nil, models.ErrReservationNotFound
		}
		return nil, fmt.Errorf("failed to get reservation: %w", err)
	}

	return res, nil
}

// Update сохраняет изменяемые поля бронирования в статусе REQUEST.
// Если бронирование уже в другом статусе, возвращается ErrStatusChanged.
func (r *reservationRepository) Update(ctx context.Context, res *models.Reservation) error {
	start := time.Now()
	defer r.observe("reservation_update", start)

	query := `
		UPDATE reserve.reservations SET
			location_id = $2,
			quantity = $3,
			purpose = $4,
			attachment_code = $5,
			start_date = $6,
			end_date = $7,
			requester_contact = $8,
			requester_email = $9,
			inventory_held = $10,
			updated_at = $11,
			updated_by = $12
		WHERE reservation_id = $1 AND status = 'REQUEST'
		RETURNING reservation_id`

	var id string
	err := r.querier(ctx).QueryRow(ctx, query,
		res.ReservationID,
		res.LocationID,
		res.Quantity,
		res.Purpose,
		res.AttachmentCode,
		res.StartDate,
		res.EndDate,
		res.RequesterContact,
		res.RequesterEmail,
		res.InventoryHeld,
		res.UpdatedAt,
		res.UpdatedBy,
	).Scan(&id)
	if err != nil {
		err = dberrors.HandleDatabaseError(err, "reservation_update")
		if dberrors.IsNotFound(err) {
			return models.ErrStatusChanged
		}
		return fmt.Errorf("failed to update reservation: %w", err)
	}

	return nil
}

// UpdateStatus меняет статус бронирования, если текущий статус входит в change.From.
// Иначе возвращается ErrStatusChanged.
func (r *reservationRepository) UpdateStatus(ctx context.Context, change StatusChange) error {
	start := time.Now()
	defer r.observe("reservation_update_status", start)

	query := `
		UPDATE reserve.reservations SET
			status = $2,
			cancel_reason = COALESCE($3, cancel_reason),
			inventory_held = $4,
			updated_at = $5,
			updated_by = $6
		WHERE reservation_id = $1 AND status = ANY($7)
		RETURNING reservation_id`

	from := make([]string, 0, len(change.From))
	for _, status := range change.From {
		from = append(from, string(status))
	}

	var id string
	err := r.querier(ctx).QueryRow(ctx, query,
		change.ReservationID,
		string(change.Status),
		change.CancelReason,
		change.InventoryHeld,
		change.UpdatedAt,
		change.UpdatedBy,
		from,
	).Scan(&id)
	if err != nil {
		err = dberrors.HandleDatabaseError(err, "reservation_update_status")
		if dberrors.IsNotFound(err) {
			return models.ErrStatusChanged
		}
		return fmt.Errorf("failed to update reservation status: %w", err)
	}

	return nil
}

// FindOverlapping возвращает активные бронирования ресурса, пересекающие окно.
// Границы включаются: касание концов считается пересечением.
func (r *reservationRepository) FindOverlapping(ctx context.Context, itemID int64, from, to time.Time, excludeID string) ([]models.Reservation, error) {
	start := time.Now()
	defer r.observe("reservation_find_overlapping", start)

	query := `
		SELECT ` + reservationColumns + `
		FROM reserve.reservations
		WHERE item_id = $1
		  AND status <> 'CANCEL'
		  AND start_date <= $3
		  AND end_date >= $2
		  AND ($4 = '' OR reservation_id <> $4)
		ORDER BY start_date, reservation_id`

	rows, err := r.querier(ctx).Query(ctx, query, itemID, from, to, excludeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query overlapping reservations: %w", dberrors.HandleDatabaseError(err, "reservation_find_overlapping"))
	}
	defer rows.Close()

	var result []models.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan reservation: %w", err)
		}
		result = append(result, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reservations: %w", err)
	}

	return result, nil
}

// CountOverlapping возвращает количество активных бронирований, пересекающих окно
func (r *reservationRepository) CountOverlapping(ctx context.Context, itemID int64, from, to time.Time, excludeID string) (int, error) {
	start := time.Now()
	defer r.observe("reservation_count_overlapping", start)

	query := `
		SELECT COUNT(*)
		FROM reserve.reservations
		WHERE item_id = $1
		  AND status <> 'CANCEL'
		  AND start_date <= $3
		  AND end_date >= $2
		  AND ($4 = '' OR reservation_id <> $4)`

	var count int
	if err := r.querier(ctx).QueryRow(ctx, query, itemID, from, to, excludeID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count overlapping reservations: %w", dberrors.HandleDatabaseError(err, "reservation_count_overlapping"))
	}

	return count, nil
}

// List возвращает страницу бронирований по фильтру
func (r *reservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.Reservation, int, error) {
	start := time.Now()
	defer r.observe("reservation_list", start)

	where, args := buildListFilter(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM reserve.reservations` + where
	if err := r.querier(ctx).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count reservations: %w", dberrors.HandleDatabaseError(err, "reservation_list"))
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`SELECT %s FROM reserve.reservations%s ORDER BY created_at DESC, reservation_id LIMIT $%d OFFSET $%d`,
		reservationColumns, where, len(args)-1, len(args))

	rows, err := r.querier(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reservations: %w", dberrors.HandleDatabaseError(err, "reservation_list"))
	}
	defer rows.Close()

	items := make([]models.Reservation, 0, filter.Limit)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan reservation: %w", err)
		}
		items = append(items, *res)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate reservations: %w", err)
	}

	return items, total, nil
}

// buildListFilter строит WHERE и аргументы для списка бронирований
func buildListFilter(filter models.ReservationFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.LocationID != nil {
		args = append(args, *filter.LocationID)
		conditions = append(conditions, fmt.Sprintf("location_id = $%d", len(args)))
	}
	if filter.CategoryID != nil {
		args = append(args, string(*filter.CategoryID))
		conditions = append(conditions, fmt.Sprintf("category_id = $%d", len(args)))
	}
	if kw := strings.TrimSpace(filter.Keyword); kw != "" {
		args = append(args, "%"+kw+"%")
		conditions = append(conditions, fmt.Sprintf("(purpose ILIKE $%d OR requester_id ILIKE $%d)", len(args), len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// scanReservation сканирует строку в бронирование
func scanReservation(row Row) (*models.Reservation, error) {
	var (
		res      models.Reservation
		category string
		status   string
	)

	err := row.Scan(
		&res.ReservationID,
		&res.ItemID,
		&category,
		&res.LocationID,
		&res.Quantity,
		&res.Purpose,
		&res.AttachmentCode,
		&res.StartDate,
		&res.EndDate,
		&status,
		&res.CancelReason,
		&res.InventoryHeld,
		&res.RequesterID,
		&res.RequesterContact,
		&res.RequesterEmail,
		&res.CreatedAt,
		&res.CreatedBy,
		&res.UpdatedAt,
		&res.UpdatedBy,
	)
	if err != nil {
		return nil, err
	}

	res.CategoryID = models.Category(category)
	res.Status = models.Status(status)
	return &res, nil
}
