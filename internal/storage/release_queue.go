package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/egov-portal/reserve-service/internal/models"
)

// PendingReleasesKey ключ списка Redis с неподтвержденными освобождениями остатка
const PendingReleasesKey = "reserve:pending_releases"

// pendingReleaseQueue реализует PendingReleaseQueue поверх списка Redis
type pendingReleaseQueue struct {
	queue   QueueInterface
	metrics MetricsInterface
}

// NewPendingReleaseQueue создает очередь освобождений остатка
func NewPendingReleaseQueue(deps *RepositoryDependencies) PendingReleaseQueue {
	return &pendingReleaseQueue{
		queue:   deps.Queue,
		metrics: deps.MetricsCollector,
	}
}

// Push добавляет освобождение в конец очереди
func (q *pendingReleaseQueue) Push(ctx context.Context, release models.PendingRelease) error {
	payload, err := json.Marshal(release)
	if err != nil {
		return fmt.Errorf("failed to marshal pending release: %w", err)
	}

	if err := q.queue.PushTail(ctx, PendingReleasesKey, string(payload)); err != nil {
		return fmt.Errorf("failed to queue pending release: %w", err)
	}

	return nil
}

// PopBatch извлекает до n освобождений из начала очереди.
// Поврежденные записи пропускаются, чтобы не блокировать очередь.
func (q *pendingReleaseQueue) PopBatch(ctx context.Context, n int) ([]models.PendingRelease, error) {
	values, err := q.queue.PopHead(ctx, PendingReleasesKey, n)
	if err != nil {
		return nil, fmt.Errorf("failed to pop pending releases: %w", err)
	}

	releases := make([]models.PendingRelease, 0, len(values))
	for _, v := range values {
		var release models.PendingRelease
		if err := json.Unmarshal([]byte(v), &release); err != nil {
			q.metrics.IncCacheMiss("pending_release_corrupt")
			continue
		}
		releases = append(releases, release)
	}

	return releases, nil
}

// Len возвращает длину очереди
func (q *pendingReleaseQueue) Len(ctx context.Context) (int64, error) {
	n, err := q.queue.Len(ctx, PendingReleasesKey)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending releases length: %w", err)
	}
	return n, nil
}
