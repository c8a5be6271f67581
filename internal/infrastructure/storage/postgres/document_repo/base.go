// Package document_repo provides PostgreSQL implementations for document repositories.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tradeflow/internal/core/apperror"
	"tradeflow/internal/core/id"
	"tradeflow/internal/infrastructure/storage/postgres"
)

// documentIDColumn links a line row to its header.
const documentIDColumn = "document_id"

// BaseDocumentRepo provides common operations for document headers.
type BaseDocumentRepo[T any] struct {
	txManager  *postgres.TxManager
	tableName  string
	selectCols []string
	newFn      func() T
}

// NewBaseDocumentRepo creates a new base document repository.
func NewBaseDocumentRepo[T any](
	txManager *postgres.TxManager,
	tableName string,
	selectCols []string,
	newFn func() T,
) *BaseDocumentRepo[T] {
	return &BaseDocumentRepo[T]{
		txManager:  txManager,
		tableName:  tableName,
		selectCols: selectCols,
		newFn:      newFn,
	}
}

// Builder returns a new squirrel builder.
func (r *BaseDocumentRepo[T]) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

func (r *BaseDocumentRepo[T]) querier(ctx context.Context) postgres.Querier {
	return r.txManager.GetQuerier(ctx)
}

// Create inserts a new document header.
func (r *BaseDocumentRepo[T]) Create(ctx context.Context, entity T) error {
	data := postgres.StructToMap(entity)
	if len(data) == 0 {
		return fmt.Errorf("no db tags found in entity")
	}

	filteredData := make(map[string]any, len(r.selectCols))
	for _, col := range r.selectCols {
		if val, ok := data[col]; ok {
			filteredData[col] = val
		}
	}

	sql, args, err := r.Builder().
		Insert(r.tableName).
		SetMap(filteredData).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.querier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert %s: %w", r.tableName, postgres.MapError(err))
	}
	return nil
}

// baseSelect creates a SELECT builder.
func (r *BaseDocumentRepo[T]) baseSelect() squirrel.SelectBuilder {
	return r.Builder().
		Select(r.selectCols...).
		From(r.tableName)
}

// GetByID retrieves a document by ID. Soft-deleted documents are not found.
func (r *BaseDocumentRepo[T]) GetByID(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, r.baseSelect().
		Where(squirrel.Eq{"id": entityID, "deletion_mark": false}), entityID.String())
}

// GetForUpdate retrieves a document with a row lock.
func (r *BaseDocumentRepo[T]) GetForUpdate(ctx context.Context, entityID id.ID) (T, error) {
	return r.getOne(ctx, r.baseSelect().
		Where(squirrel.Eq{"id": entityID, "deletion_mark": false}).
		Suffix("FOR UPDATE"), entityID.String())
}

func (r *BaseDocumentRepo[T]) getOne(ctx context.Context, q squirrel.SelectBuilder, key string) (T, error) {
	entity := r.newFn()

	sql, args, err := q.ToSql()
	if err != nil {
		return entity, fmt.Errorf("build query: %w", err)
	}

	if err := pgxscan.Get(ctx, r.querier(ctx), entity, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return entity, apperror.NewNotFound(r.tableName, key)
		}
		return entity, fmt.Errorf("get %s: %w", r.tableName, err)
	}
	return entity, nil
}

// updateVersioned applies set to the row when its stored version equals
// expectedVersion, writing newVersion.
func (r *BaseDocumentRepo[T]) updateVersioned(
	ctx context.Context,
	entityID id.ID,
	expectedVersion, newVersion int,
	set map[string]any,
) error {
	sql, args, err := r.Builder().
		Update(r.tableName).
		SetMap(set).
		Set("version", newVersion).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": entityID, "version": expectedVersion}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	result, err := r.querier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.tableName, postgres.MapError(err))
	}
	if result.RowsAffected() == 0 {
		return apperror.NewConcurrentModification(r.tableName, entityID)
	}
	return nil
}

// lineStore reads and writes the line table of one document type.
type lineStore[L any] struct {
	txManager *postgres.TxManager
	inserter  *postgres.BatchInserter
	tableName string
	columns   []string
}

func newLineStore[L any](txManager *postgres.TxManager, tableName string) lineStore[L] {
	return lineStore[L]{
		txManager: txManager,
		inserter:  postgres.NewBatchInserter(txManager),
		tableName: tableName,
		columns:   postgres.ExtractDBColumns[L](),
	}
}

// get returns the lines of a document in line order.
func (s lineStore[L]) get(ctx context.Context, docID id.ID) ([]L, error) {
	sql, args, err := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar).
		Select(s.columns...).
		From(s.tableName).
		Where(squirrel.Eq{documentIDColumn: docID}).
		OrderBy("line_no").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var lines []L
	if err := pgxscan.Select(ctx, s.txManager.GetQuerier(ctx), &lines, sql, args...); err != nil {
		return nil, fmt.Errorf("get %s: %w", s.tableName, err)
	}
	return lines, nil
}

// save replaces the lines of a document. Must run inside a transaction.
func (s lineStore[L]) save(ctx context.Context, docID id.ID, lines []L) error {
	querier := s.txManager.GetQuerier(ctx)

	deleteSQL := "DELETE FROM " + s.tableName + " WHERE " + documentIDColumn + " = $1"
	if _, err := querier.Exec(ctx, deleteSQL, docID); err != nil {
		return fmt.Errorf("delete existing lines: %w", err)
	}

	if len(lines) == 0 {
		return nil
	}

	_, err := s.inserter.CopyFromSlice(ctx, s.tableName, s.copyColumns(), s.rows(docID, lines))
	return err
}

func (s lineStore[L]) copyColumns() []string {
	return append([]string{documentIDColumn}, s.columns...)
}

func (s lineStore[L]) rows(docID id.ID, lines []L) [][]any {
	rows := make([][]any, len(lines))
	for i := range lines {
		rows[i] = append([]any{docID}, postgres.StructValues(&lines[i], s.columns)...)
	}
	return rows
}
