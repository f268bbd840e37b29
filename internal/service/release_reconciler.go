package service

import (
	"context"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/egov-portal/reserve-service/pkg/metrics"
	"go.uber.org/zap"
)

// ReleaseReconciler повторяет изменения удаленного остатка, которые не удалось
// выполнить при компенсации
type ReleaseReconciler struct {
	releases    storage.PendingReleaseQueue
	coordinator *InventoryCoordinator
	logger      *zap.Logger
	config      ReconcilerConfig
}

// ReconcilerConfig конфигурация фонового процесса
type ReconcilerConfig struct {
	// Interval интервал запуска
	Interval time.Duration
	// Timeout ограничение времени одного прохода
	Timeout time.Duration
	// BatchSize сколько записей извлекается за проход
	BatchSize int
}

// NewReleaseReconciler создает новый reconciler
func NewReleaseReconciler(
	releases storage.PendingReleaseQueue,
	coordinator *InventoryCoordinator,
	logger *zap.Logger,
	config ReconcilerConfig,
) *ReleaseReconciler {
	return &ReleaseReconciler{
		releases:    releases,
		coordinator: coordinator,
		logger:      logger,
		config:      config,
	}
}

// Start запускает фоновый процесс до отмены ctx
func (r *ReleaseReconciler) Start(ctx context.Context) {
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	r.logger.Info("Starting release reconciler",
		zap.Duration("interval", r.config.Interval),
		zap.Int("batch_size", r.config.BatchSize))

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Stopping release reconciler")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce выполняет один проход: извлекает пачку, повторяет изменения,
// неуспешные возвращает в конец очереди с увеличенным счетчиком попыток.
// Возвращает количество успешно выполненных изменений.
func (r *ReleaseReconciler) RunOnce(ctx context.Context) int {
	runCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	startTime := time.Now()
	defer r.refreshGauge(runCtx)

	pending, err := r.releases.PopBatch(runCtx, r.config.BatchSize)
	if err != nil {
		r.logger.Error("Failed to fetch pending releases", zap.Error(err))
		return 0
	}

	if len(pending) == 0 {
		r.logger.Debug("No pending releases")
		return 0
	}

	reconciled := 0
	for _, p := range pending {
		if r.reconcile(runCtx, p) {
			reconciled++
		}
	}

	r.logger.Info("Release reconciliation completed",
		zap.Int("pending_found", len(pending)),
		zap.Int("reconciled", reconciled),
		zap.Duration("duration", time.Since(startTime)))

	return reconciled
}

// reconcile повторяет одно изменение остатка
func (r *ReleaseReconciler) reconcile(ctx context.Context, p models.PendingRelease) bool {
	releaseLogger := r.logger.With(
		zap.String("reservation_id", p.ReservationID),
		zap.Int64("item_id", p.ItemID),
		zap.Int("quantity", p.Quantity),
		zap.Int("attempts", p.Attempts))

	// в очередь попадают только изменения удаленного остатка категории education
	adjustment := models.Reservation{
		ReservationID: p.ReservationID,
		ItemID:        p.ItemID,
		CategoryID:    models.CategoryEducation,
		Quantity:      p.Quantity,
	}

	if err := r.coordinator.AdjustInventory(ctx, adjustment); err == nil {
		metrics.RecordReleaseReconciled("success")
		releaseLogger.Info("Pending release reconciled")
		return true
	}

	p.Attempts++
	if err := r.releases.Push(context.WithoutCancel(ctx), p); err != nil {
		metrics.RecordReleaseReconciled("lost")
		releaseLogger.Error("Failed to requeue pending release, manual reconciliation required", zap.Error(err))
		return false
	}

	metrics.RecordReleaseReconciled("requeued")
	releaseLogger.Warn("Pending release requeued")
	return false
}

func (r *ReleaseReconciler) refreshGauge(ctx context.Context) {
	n, err := r.releases.Len(context.WithoutCancel(ctx))
	if err != nil {
		r.logger.Warn("Failed to get pending releases length", zap.Error(err))
		return
	}
	metrics.PendingReleases.Set(float64(n))
}

// GetDefaultReconcilerConfig возвращает конфигурацию по умолчанию
func GetDefaultReconcilerConfig() ReconcilerConfig {
	return ReconcilerConfig{
		Interval:  time.Minute,
		Timeout:   30 * time.Second,
		BatchSize: 50,
	}
}
