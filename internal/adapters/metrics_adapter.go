package adapters

import (
	"time"

	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/egov-portal/reserve-service/pkg/metrics"
)

// MetricsAdapter адаптирует metrics для storage.MetricsInterface
type MetricsAdapter struct {
	table string
}

// NewMetricsAdapter создает новый адаптер для метрик с меткой таблицы
func NewMetricsAdapter(table string) storage.MetricsInterface {
	return &MetricsAdapter{table: table}
}

// IncDBQuery увеличивает счетчик запросов к БД
func (a *MetricsAdapter) IncDBQuery(operation string) {
	metrics.DBQueriesTotal.WithLabelValues(operation, a.table).Inc()
}

// IncCacheHit увеличивает счетчик попаданий в кеш
func (a *MetricsAdapter) IncCacheHit(cacheType string) {
	metrics.RecordRedisOperation(cacheType, "hit")
}

// IncCacheMiss увеличивает счетчик промахов кеша
func (a *MetricsAdapter) IncCacheMiss(cacheType string) {
	metrics.RecordRedisOperation(cacheType, "miss")
}

// ObserveDBQueryDuration записывает время выполнения запроса к БД
func (a *MetricsAdapter) ObserveDBQueryDuration(operation string, duration time.Duration) {
	metrics.DBQueryDuration.WithLabelValues(operation, a.table).Observe(duration.Seconds())
}
