package repository

import (
	"errors"

	"github.com/lib/pq"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgreSQLのSQLSTATEコード。
const (
	pgCodeUniqueViolation       = "23505"
	pgCodeForeignKeyViolation   = "23503"
	pgCodeNotNullViolation      = "23502"
	pgCodeInsufficientPrivilege = "42501"
)

// MapPgError はPostgreSQLの制約エラーをAPIErrorに変換する。
// 制約系エラーでない場合は元のエラーをそのまま返す。
func MapPgError(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}

	switch pqErr.Code {
	case pgCodeUniqueViolation:
		return model.NewUniqueViolationError()
	case pgCodeForeignKeyViolation:
		return model.NewForeignKeyViolationError()
	case pgCodeNotNullViolation:
		return model.NewNotNullViolationError()
	case pgCodeInsufficientPrivilege:
		return model.NewPermissionDeniedError()
	}

	return err
}

// IsUniqueViolation はエラーが一意制約違反かどうかを返す。
// プロフィールの同時作成競合の判定に使用する。
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgCodeUniqueViolation
	}
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == model.ErrCodeUniqueViolation
	}
	return false
}
