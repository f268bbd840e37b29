package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// ItemCatalogClient интерфейс для работы с Item Catalog Service
type ItemCatalogClient interface {
	// FindByID возвращает окна, остатки и параметры бронирования ресурса
	FindByID(ctx context.Context, itemID int64) (*models.ItemSnapshot, error)
	// FindByIDWithRelations дополнительно возвращает отображаемые поля (локация, категория, ответственный)
	FindByIDWithRelations(ctx context.Context, itemID int64) (*models.ItemSnapshot, error)
	// UpdateInventory атомарно меняет удаленный остаток на delta
	UpdateInventory(ctx context.Context, itemID int64, delta int) (bool, error)
}

// HTTPItemClient реализация клиента через HTTP
type HTTPItemClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPItemClient создает новый HTTP клиент для Item Catalog Service
func NewHTTPItemClient(baseURL string, logger *zap.Logger) ItemCatalogClient {
	return NewHTTPItemClientWithTimeout(baseURL, 5*time.Second, logger)
}

// NewHTTPItemClientWithTimeout создает новый HTTP клиент с настраиваемым таймаутом
func NewHTTPItemClientWithTimeout(baseURL string, timeout time.Duration, logger *zap.Logger) ItemCatalogClient {
	return &HTTPItemClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type inventoryUpdateRequest struct {
	ReserveQty int `json:"reserveQty"`
}

type inventoryUpdateResponse struct {
	Success bool `json:"success"`
}

// FindByID получает ресурс по идентификатору
func (c *HTTPItemClient) FindByID(ctx context.Context, itemID int64) (*models.ItemSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/reserve-items/%d", c.baseURL, itemID)

	var item models.ItemSnapshot
	if err := c.do(ctx, "find_by_id", http.MethodGet, url, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// FindByIDWithRelations получает ресурс со связанными данными
func (c *HTTPItemClient) FindByIDWithRelations(ctx context.Context, itemID int64) (*models.ItemSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/reserve-items/relations/%d", c.baseURL, itemID)

	var item models.ItemSnapshot
	if err := c.do(ctx, "find_with_relations", http.MethodGet, url, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// UpdateInventory меняет остаток ресурса. Отрицательное delta уменьшает остаток.
func (c *HTTPItemClient) UpdateInventory(ctx context.Context, itemID int64, delta int) (bool, error) {
	url := fmt.Sprintf("%s/api/v1/reserve-items/%d/inventories", c.baseURL, itemID)

	var resp inventoryUpdateResponse
	if err := c.do(ctx, "update_inventory", http.MethodPut, url, inventoryUpdateRequest{ReserveQty: delta}, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// do выполняет запрос и декодирует JSON-ответ в out
func (c *HTTPItemClient) do(ctx context.Context, endpoint, method, url string, payload, out interface{}) error {
	start := time.Now()
	status := "error"
	defer func() {
		metrics.RecordItemAPICall(endpoint, status, time.Since(start).Seconds())
	}()

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		status = "not_found"
		return models.ErrItemNotFound
	}

	if resp.StatusCode != http.StatusOK {
		var errorResp map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&errorResp)
		c.logger.Warn("Item catalog request failed",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.Any("response", errorResp))
		return fmt.Errorf("item catalog %s failed: status %d", endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}

	status = "success"
	return nil
}
