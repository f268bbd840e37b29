package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

// UserClient интерфейс для работы с User Service
type UserClient interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}

// HTTPUserClient реализация клиента через HTTP
type HTTPUserClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPUserClient создает новый HTTP клиент для User Service
func NewHTTPUserClient(baseURL string, logger *zap.Logger) UserClient {
	return NewHTTPUserClientWithTimeout(baseURL, 3*time.Second, logger)
}

// NewHTTPUserClientWithTimeout создает новый HTTP клиент для User Service с настраиваемым таймаутом
func NewHTTPUserClientWithTimeout(baseURL string, timeout time.Duration, logger *zap.Logger) UserClient {
	return &HTTPUserClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FindByUserID получает профиль пользователя
func (c *HTTPUserClient) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	endpoint := fmt.Sprintf("%s/api/v1/users/%s", c.baseURL, url.PathEscape(userID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get user profile: status %d", resp.StatusCode)
	}

	var profile models.UserProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &profile, nil
}

// CachedUserClient кеширует профили пользователей в Redis
type CachedUserClient struct {
	next    UserClient
	cache   storage.CacheInterface
	metrics storage.MetricsInterface
	ttl     time.Duration
	logger  *zap.Logger
}

// NewCachedUserClient создает клиент с кешем профилей
func NewCachedUserClient(next UserClient, cache storage.CacheInterface, metrics storage.MetricsInterface, ttl time.Duration, logger *zap.Logger) UserClient {
	return &CachedUserClient{
		next:    next,
		cache:   cache,
		metrics: metrics,
		ttl:     ttl,
		logger:  logger,
	}
}

func profileCacheKey(userID string) string {
	return "reserve:user_profile:" + userID
}

// FindByUserID возвращает профиль из кеша или из User Service.
// Ошибки кеша не прерывают запрос.
func (c *CachedUserClient) FindByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	key := profileCacheKey(userID)

	if cached, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("Failed to read user profile from cache", zap.Error(err), zap.String("user_id", userID))
	} else if cached != "" {
		var profile models.UserProfile
		if err := json.Unmarshal([]byte(cached), &profile); err == nil {
			c.metrics.IncCacheHit("user_profile")
			return &profile, nil
		}
	}
	c.metrics.IncCacheMiss("user_profile")

	profile, err := c.next.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(profile); err == nil {
		if err := c.cache.Set(ctx, key, string(data), c.ttl); err != nil {
			c.logger.Warn("Failed to cache user profile", zap.Error(err), zap.String("user_id", userID))
		}
	}

	return profile, nil
}
