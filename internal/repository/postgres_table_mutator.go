package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsroom/internal/model"
)

// mutableTables は管理APIから操作可能なテーブルと、テーブルごとに
// 書き込みを許可するカラムの許可リスト。
// テーブル名・カラム名はこのリストとの完全一致でのみSQLに埋め込まれるため、
// 任意の識別子がクエリに混入することはない。
var mutableTables = map[string]map[string]bool{
	"articles": {
		"author_id": true, "category_id": true, "title": true, "slug": true,
		"summary": true, "content": true, "cover_url": true, "status": true,
		"published_at": true,
	},
	"categories": {
		"name": true, "slug": true, "sort_order": true,
	},
	"tags": {
		"name": true, "slug": true,
	},
	"comments": {
		"status": true,
	},
	"ads": {
		"slot": true, "title": true, "image_url": true, "target_url": true,
		"is_active": true, "start_date": true, "end_date": true,
	},
	"profiles": {
		"full_name": true, "avatar_url": true, "role": true, "bio": true,
	},
	"settings": {
		"key": true, "value": true,
	},
	"syndication_sources": {
		"feed_url": true, "category_id": true, "author_id": true, "is_active": true,
	},
}

// idColumn はテーブルごとの主キーカラム名。settingsのみkeyを使う。
func idColumn(table string) string {
	if table == "settings" {
		return "key"
	}
	return "id"
}

// hasTimestamps はupdated_atカラムを持つテーブルか。
func hasTimestamps(table string) bool {
	switch table {
	case "tags", "syndication_sources":
		return false
	}
	return true
}

// PostgresTableMutator は管理API用の許可リスト制テーブル操作を提供する。
// テーブル名・カラム名を許可リストで検証した上でパラメタライズドクエリを組み立てる。
type PostgresTableMutator struct {
	db *sql.DB
}

// NewPostgresTableMutator はPostgresTableMutatorを生成する。
func NewPostgresTableMutator(db *sql.DB) *PostgresTableMutator {
	return &PostgresTableMutator{db: db}
}

// validate はテーブルと全カラムが許可リストに含まれることを検証し、
// 決定的な順序のカラム名リストを返す。
func validate(table string, values map[string]any) ([]string, error) {
	allowed, ok := mutableTables[table]
	if !ok {
		return nil, model.NewTableNotAllowedError(table)
	}

	columns := make([]string, 0, len(values))
	for col := range values {
		if !allowed[col] {
			return nil, model.NewInvalidRequestError(fmt.Sprintf("カラム %s.%s は操作できません", table, col))
		}
		columns = append(columns, col)
	}
	sort.Strings(columns)

	return columns, nil
}

// Insert は許可リスト内のテーブルに行を挿入し、生成されたIDを返す。
func (m *PostgresTableMutator) Insert(ctx context.Context, table string, values map[string]any) (string, error) {
	columns, err := validate(table, values)
	if err != nil {
		return "", err
	}
	if len(columns) == 0 {
		return "", model.NewInvalidRequestError("挿入する値が指定されていません")
	}

	id := uuid.New().String()
	colNames := []string{idColumn(table)}
	placeholders := []string{"$1"}
	args := []any{id}

	// settingsはkeyが主キーなので、values側のkeyをそのまま使う
	if table == "settings" {
		colNames = nil
		placeholders = nil
		args = nil
	}

	for _, col := range columns {
		colNames = append(colNames, col)
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, values[col])
	}

	if hasTimestamps(table) {
		colNames = append(colNames, "updated_at")
		placeholders = append(placeholders, fmt.Sprintf("$%d", len(args)+1))
		args = append(args, time.Now())
	}

	query := fmt.Sprintf(
		`INSERT INTO %s (%s) VALUES (%s) RETURNING %s`,
		table, strings.Join(colNames, ", "), strings.Join(placeholders, ", "), idColumn(table),
	)

	var returnedID string
	if err := m.db.QueryRowContext(ctx, query, args...).Scan(&returnedID); err != nil {
		return "", fmt.Errorf("failed to insert into %s: %w", table, MapPgError(err))
	}

	return returnedID, nil
}

// Update は許可リスト内のテーブルの指定ID行を部分更新する。
func (m *PostgresTableMutator) Update(ctx context.Context, table, id string, values map[string]any) error {
	columns, err := validate(table, values)
	if err != nil {
		return err
	}
	if len(columns) == 0 {
		return model.NewInvalidRequestError("更新する値が指定されていません")
	}

	assignments := make([]string, 0, len(columns)+1)
	args := []any{id}
	for _, col := range columns {
		assignments = append(assignments, fmt.Sprintf("%s = $%d", col, len(args)+1))
		args = append(args, values[col])
	}
	if hasTimestamps(table) {
		assignments = append(assignments, "updated_at = now()")
	}

	query := fmt.Sprintf(
		`UPDATE %s SET %s WHERE %s = $1`,
		table, strings.Join(assignments, ", "), idColumn(table),
	)

	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", table, MapPgError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRowNotFoundError()
	}

	return nil
}

// Delete は許可リスト内のテーブルの指定ID行を削除する。
func (m *PostgresTableMutator) Delete(ctx context.Context, table, id string) error {
	if _, ok := mutableTables[table]; !ok {
		return model.NewTableNotAllowedError(table)
	}

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, table, idColumn(table))

	result, err := m.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, MapPgError(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return model.NewRowNotFoundError()
	}

	return nil
}

// compile-time interface check
var _ TableMutator = (*PostgresTableMutator)(nil)
