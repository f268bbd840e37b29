package service

import (
	"context"
	"errors"
	"time"

	"github.com/egov-portal/reserve-service/internal/models"
	"github.com/egov-portal/reserve-service/pkg/metrics"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// Outcome результат вызова через circuit breaker
type Outcome int

// Constants для исходов вызова
const (
	OutcomeOK Outcome = iota
	OutcomeBreakerOpen
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOK:
		return "ok"
	case OutcomeBreakerOpen:
		return "breaker_open"
	default:
		return "failed"
	}
}

// Result размеченный результат удаленного вызова: значение, открытый breaker или ошибка
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// OK сообщает, что вызов выполнен успешно
func (r Result[T]) OK() bool {
	return r.Outcome == OutcomeOK
}

// BreakerSettings параметры circuit breaker
type BreakerSettings struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
}

// Breaker обертка над gobreaker для удаленных вызовов Item Catalog Service
type Breaker struct {
	cb     *gobreaker.CircuitBreaker
	logger *zap.Logger
}

// NewBreaker создает circuit breaker, размыкающийся после FailureThreshold ошибок подряд
func NewBreaker(settings BreakerSettings, logger *zap.Logger) *Breaker {
	threshold := settings.FailureThreshold
	if threshold == 0 {
		threshold = 5
	}

	b := &Breaker{logger: logger}
	b.cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: settings.MaxRequests,
		Interval:    settings.Interval,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Отмена запроса вызывающей стороной и отсутствующий ресурс не считаются отказом сервиса
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, models.ErrItemNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.SetCircuitBreakerState(name, float64(to))
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	metrics.SetCircuitBreakerState(settings.Name, float64(gobreaker.StateClosed))

	return b
}

// State возвращает текущее состояние breaker
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Call выполняет fn через breaker и возвращает размеченный результат.
// Открытый breaker не вызывает fn.
func Call[T any](ctx context.Context, b *Breaker, fn func(ctx context.Context) (T, error)) Result[T] {
	value, err := b.cb.Execute(func() (interface{}, error) {
		return fn(ctx)
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Result[T]{Outcome: OutcomeBreakerOpen, Err: err}
		}
		return Result[T]{Outcome: OutcomeFailed, Err: err}
	}

	typed, _ := value.(T)
	return Result[T]{Value: typed, Outcome: OutcomeOK}
}
