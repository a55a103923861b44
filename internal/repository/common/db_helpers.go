package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

type txKey struct{}

// Conn возвращает транзакцию из контекста, если она открыта, иначе пул.
// Репозитории всегда ходят в базу через Conn, поэтому одни и те же методы
// работают и внутри транзакции, и вне её.
func Conn(ctx context.Context, db *sqlx.DB) sqlx.ExtContext {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return db
}

// InTransaction сообщает, открыта ли транзакция в контексте.
func InTransaction(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*sqlx.Tx)
	return ok
}

// Transactor открывает транзакцию и кладёт её в контекст.
type Transactor struct {
	db *sqlx.DB
}

func NewTransactor(db *sqlx.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTransaction выполняет fn в транзакции. Вложенный вызов переиспользует внешнюю.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTransaction(ctx) {
		return fn(ctx)
	}
	return WithTransaction(ctx, t.db, func(tx *sqlx.Tx) error {
		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// GetByID - универсальная функция для получения сущности по ID
func GetByID[T any](ctx context.Context, q sqlx.QueryerContext, table string, id interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table)

	if err := sqlx.GetContext(ctx, q, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("get by id from %s: %w", table, err)
	}

	return &entity, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ContainsPattern экранирует спецсимволы LIKE и оборачивает строку в %...%.
// Запросы указывают ESCAPE '\' явно.
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}

// BatchInserter копит строки и вставляет их одним запросом.
type BatchInserter struct {
	exec        sqlx.ExecerContext
	query       string
	suffix      string
	batchSize   int
	values      []interface{}
	rowCount    int
	fieldsCount int
}

// NewBatchInserter создает новый batch inserter. suffix дописывается после VALUES (например ON CONFLICT).
func NewBatchInserter(exec sqlx.ExecerContext, baseQuery, suffix string, fieldsCount int, batchSize int) *BatchInserter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BatchInserter{
		exec:        exec,
		query:       baseQuery,
		suffix:      suffix,
		batchSize:   batchSize,
		values:      make([]interface{}, 0, batchSize*fieldsCount),
		fieldsCount: fieldsCount,
	}
}

// Add добавляет строку для вставки
func (bi *BatchInserter) Add(ctx context.Context, rowValues ...interface{}) error {
	if len(rowValues) != bi.fieldsCount {
		return fmt.Errorf("expected %d fields, got %d", bi.fieldsCount, len(rowValues))
	}

	bi.values = append(bi.values, rowValues...)
	bi.rowCount++

	if bi.rowCount >= bi.batchSize {
		return bi.Flush(ctx)
	}

	return nil
}

// Flush выполняет вставку накопленных значений
func (bi *BatchInserter) Flush(ctx context.Context) error {
	if bi.rowCount == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString(bi.query)
	sb.WriteString(" VALUES ")
	for i := 0; i < bi.rowCount; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for j := 0; j < bi.fieldsCount; j++ {
			if j > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "$%d", i*bi.fieldsCount+j+1)
		}
		sb.WriteString(")")
	}
	if bi.suffix != "" {
		sb.WriteString(" ")
		sb.WriteString(bi.suffix)
	}

	if _, err := bi.exec.ExecContext(ctx, sb.String(), bi.values...); err != nil {
		return fmt.Errorf("batch insert: %w", err)
	}

	bi.values = bi.values[:0]
	bi.rowCount = 0

	return nil
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	err = fn(tx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
