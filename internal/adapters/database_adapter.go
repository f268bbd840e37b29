package adapters

import (
	"context"
	"strings"

	"github.com/egov-portal/reserve-service/internal/database"
	"github.com/egov-portal/reserve-service/internal/storage"
	"github.com/egov-portal/reserve-service/pkg/tracing"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DatabaseAdapter адаптирует database.DB для storage.DatabaseInterface
type DatabaseAdapter struct {
	db *database.DB
}

// NewDatabaseAdapter создает новый адаптер для базы данных
func NewDatabaseAdapter(db *database.DB) storage.DatabaseInterface {
	return &DatabaseAdapter{db: db}
}

// startSpan открывает клиентский span для SQL-запроса
func startSpan(ctx context.Context, query string) (context.Context, trace.Span) {
	return tracing.Tracer().Start(ctx, "db "+statementName(query),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.query.text", strings.TrimSpace(query)),
		),
	)
}

// statementName возвращает первое ключевое слово запроса
func statementName(query string) string {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return "query"
	}
	return strings.ToUpper(fields[0])
}

func endSpan(span trace.Span, err error) {
	if err != nil && err != pgx.ErrNoRows {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// QueryRow выполняет запрос, ожидающий одну строку результата
func (a *DatabaseAdapter) QueryRow(ctx context.Context, query string, args ...interface{}) storage.Row {
	ctx, span := startSpan(ctx, query)
	return &RowAdapter{row: a.db.Pool().QueryRow(ctx, query, args...), span: span}
}

// Query выполняет запрос, возвращающий множество строк
func (a *DatabaseAdapter) Query(ctx context.Context, query string, args ...interface{}) (storage.Rows, error) {
	ctx, span := startSpan(ctx, query)
	rows, err := a.db.Pool().Query(ctx, query, args...)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	return &RowsAdapter{rows: rows, span: span}, nil
}

// Exec выполняет запрос без возврата строк
func (a *DatabaseAdapter) Exec(ctx context.Context, query string, args ...interface{}) error {
	ctx, span := startSpan(ctx, query)
	_, err := a.db.Pool().Exec(ctx, query, args...)
	endSpan(span, err)
	return err
}

// BeginTx начинает транзакцию с уровнем изоляции READ COMMITTED.
// Согласованность проверки и записи обеспечивается advisory-блокировкой ресурса.
func (a *DatabaseAdapter) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := a.db.Pool().BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return nil, err
	}
	return &TxAdapter{tx: tx, ctx: ctx}, nil
}

// Health проверяет состояние базы данных
func (a *DatabaseAdapter) Health(ctx context.Context) error {
	return a.db.Health(ctx)
}

// RowAdapter адаптирует pgx.Row для storage.Row
type RowAdapter struct {
	row  pgx.Row
	span trace.Span
}

// Scan сканирует результат строки и закрывает span запроса
func (r *RowAdapter) Scan(dest ...interface{}) error {
	err := r.row.Scan(dest...)
	endSpan(r.span, err)
	return err
}

// RowsAdapter адаптирует pgx.Rows для storage.Rows
type RowsAdapter struct {
	rows pgx.Rows
	span trace.Span
}

// Next переходит к следующей строке
func (r *RowsAdapter) Next() bool {
	return r.rows.Next()
}

// Scan сканирует текущую строку в переданные указатели
func (r *RowsAdapter) Scan(dest ...interface{}) error {
	return r.rows.Scan(dest...)
}

// Err возвращает ошибку, возникшую во время итерации
func (r *RowsAdapter) Err() error {
	return r.rows.Err()
}

// Close закрывает rows и span запроса
func (r *RowsAdapter) Close() {
	r.rows.Close()
	endSpan(r.span, r.rows.Err())
}

// TxAdapter адаптирует pgx.Tx для storage.Tx
type TxAdapter struct {
	tx  pgx.Tx
	ctx context.Context
}

// QueryRow выполняет запрос в контексте транзакции
func (t *TxAdapter) QueryRow(ctx context.Context, query string, args ...interface{}) storage.Row {
	ctx, span := startSpan(ctx, query)
	return &RowAdapter{row: t.tx.QueryRow(ctx, query, args...), span: span}
}

// Query выполняет запрос в контексте транзакции
func (t *TxAdapter) Query(ctx context.Context, query string, args ...interface{}) (storage.Rows, error) {
	ctx, span := startSpan(ctx, query)
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		endSpan(span, err)
		return nil, err
	}
	return &RowsAdapter{rows: rows, span: span}, nil
}

// Exec выполняет запрос в контексте транзакции
func (t *TxAdapter) Exec(ctx context.Context, query string, args ...interface{}) error {
	ctx, span := startSpan(ctx, query)
	_, err := t.tx.Exec(ctx, query, args...)
	endSpan(span, err)
	return err
}

// Commit подтверждает транзакцию
func (t *TxAdapter) Commit() error {
	return t.tx.Commit(context.WithoutCancel(t.ctx))
}

// Rollback отменяет транзакцию. После Commit вызов безопасен и ничего не делает.
func (t *TxAdapter) Rollback() error {
	err := t.tx.Rollback(context.WithoutCancel(t.ctx))
	if err == pgx.ErrTxClosed {
		return nil
	}
	return err
}
