// Package cleanup は認証データの自動削除ジョブを提供する。
// 保持期間（デフォルト30日）を超過した期限切れセッションと、
// 期限切れ・消費済みの認証トークンを日次バッチで削除する。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionDeleter は期限切れセッションの削除インターフェース。
type SessionDeleter interface {
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// TokenDeleter は不要な認証トークンの削除インターフェース。
type TokenDeleter interface {
	DeleteStale(ctx context.Context) (int64, error)
}

// CleanupJob は期限切れ認証データの自動削除ジョブ。
// 日次実行のバッチジョブとして設計されており、冪等な削除処理を保証する。
type CleanupJob struct {
	sessions      SessionDeleter
	tokens        TokenDeleter
	logger        *slog.Logger
	RetentionDays int // 期限切れセッションの保持日数（デフォルト: 30）
}

// NewCleanupJob は新しいCleanupJobを生成する。
// デフォルトの保持日数は30日。
func NewCleanupJob(sessions SessionDeleter, tokens TokenDeleter, logger *slog.Logger) *CleanupJob {
	return &CleanupJob{
		sessions:      sessions,
		tokens:        tokens,
		logger:        logger,
		RetentionDays: 30,
	}
}

// Run は保持期間を超過したセッションと不要な認証トークンを削除する。
// 期限切れからRetentionDays日経過したセッションをDELETEする。
// 冪等: 削除対象がない場合でもエラーにならない。
func (j *CleanupJob) Run(ctx context.Context) error {
	start := time.Now()

	cutoff := time.Now().AddDate(0, 0, -j.RetentionDays)

	deletedSessions, err := j.sessions.DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		j.logger.Error("セッションクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
			slog.Int("retention_days", j.RetentionDays),
		)
		return fmt.Errorf("セッションクリーンアップの実行に失敗: %w", err)
	}

	deletedTokens, err := j.tokens.DeleteStale(ctx)
	if err != nil {
		j.logger.Error("認証トークンクリーンアップの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("認証トークンクリーンアップの実行に失敗: %w", err)
	}

	duration := time.Since(start)
	j.logger.Info("認証データクリーンアップジョブが完了しました",
		slog.Int64("deleted_sessions", deletedSessions),
		slog.Int64("deleted_tokens", deletedTokens),
		slog.Int("retention_days", j.RetentionDays),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
