package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/egov-portal/reserve-service/internal/database"
)

// Checker проверяет доступность зависимости
type Checker interface {
	Health(ctx context.Context) error
}

// Dependency именованная зависимость для health check
type Dependency struct {
	Name    string
	Checker Checker
}

type HealthHandler struct {
	dependencies []Dependency
	db           *database.DB
	breaker      func() string
}

// NewHealthHandler создает обработчик health check. db нужен только для статистики пула,
// breaker возвращает состояние circuit breaker Item Catalog Service.
func NewHealthHandler(db *database.DB, breaker func() string, dependencies ...Dependency) *HealthHandler {
	return &HealthHandler{
		dependencies: dependencies,
		db:           db,
		breaker:      breaker,
	}
}

type HealthResponse struct {
	Status       string             `json:"status"`
	Services     map[string]string  `json:"services"`
	ItemCatalog  string             `json:"item_catalog_breaker,omitempty"`
	DatabasePool *DatabasePoolStats `json:"database_pool,omitempty"`
}

type DatabasePoolStats struct {
	TotalConns    int32 `json:"total_connections"`
	IdleConns     int32 `json:"idle_connections"`
	AcquiredConns int32 `json:"acquired_connections"`
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	response := HealthResponse{
		Status:   "ok",
		Services: make(map[string]string),
	}

	for _, dep := range h.dependencies {
		if err := dep.Checker.Health(ctx); err != nil {
			response.Status = "unhealthy"
			response.Services[dep.Name] = "down: " + err.Error()
		} else {
			response.Services[dep.Name] = "ok"
		}
	}

	// Состояние breaker не влияет на статус: чтение деградирует, запись отклоняется
	if h.breaker != nil {
		response.ItemCatalog = h.breaker()
	}

	if h.db != nil {
		stats := h.db.Stats()
		response.DatabasePool = &DatabasePoolStats{
			TotalConns:    stats.TotalConns(),
			IdleConns:     stats.IdleConns(),
			AcquiredConns: stats.AcquiredConns(),
		}
	}

	statusCode := http.StatusOK
	if response.Status != "ok" {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	for _, dep := range h.dependencies {
		if err := dep.Checker.Health(ctx); err != nil {
			http.Error(w, dep.Name+" not ready", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
