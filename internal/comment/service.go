// Package comment はコメント投稿・モデレーションとリアクションのビジネスロジックを提供する。
package comment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// Sanitizer はコメント本文のサニタイズ機能のインターフェース。
type Sanitizer interface {
	SanitizeComment(rawHTML string) string
}

// Service はコメント・リアクションに関するビジネスロジックを提供する。
type Service struct {
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	articleRepo  repository.ArticleRepository
	sanitizer    Sanitizer
}

// NewService はServiceを生成する。
func NewService(
	commentRepo repository.CommentRepository,
	reactionRepo repository.ReactionRepository,
	articleRepo repository.ArticleRepository,
	sanitizer Sanitizer,
) *Service {
	return &Service{
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		articleRepo:  articleRepo,
		sanitizer:    sanitizer,
	}
}

// ListByArticle はスラッグで指定した記事の表示中コメントを投稿者情報付きで取得する。
func (s *Service) ListByArticle(ctx context.Context, articleSlug string) ([]model.CommentWithAuthor, error) {
	article, err := s.findPublished(ctx, articleSlug)
	if err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByArticle(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Create はスラッグで指定した公開済み記事にコメントを投稿する。
// 本文はサニタイズされ、サニタイズ後に空になった場合は投稿を拒否する。
// 返信の場合、親コメントは同一記事に属している必要がある。
func (s *Service) Create(ctx context.Context, userID, articleSlug, parentID, body string) (*model.Comment, error) {
	sanitized := s.sanitizer.SanitizeComment(body)
	if strings.TrimSpace(sanitized) == "" {
		return nil, model.NewInvalidRequestError("コメント本文を入力してください")
	}

	article, err := s.findPublished(ctx, articleSlug)
	if err != nil {
		return nil, err
	}

	if parentID != "" {
		parent, err := s.commentRepo.FindByID(ctx, parentID)
		if err != nil {
			return nil, fmt.Errorf("failed to find parent comment: %w", err)
		}
		if parent == nil || parent.ArticleID != article.ID {
			return nil, model.NewInvalidRequestError("返信先のコメントが見つかりません")
		}
	}

	now := time.Now()
	comment := &model.Comment{
		ID:        uuid.New().String(),
		ArticleID: article.ID,
		UserID:    userID,
		ParentID:  parentID,
		Body:      sanitized,
		Status:    model.CommentStatusVisible,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	slog.Info("comment created",
		slog.String("comment_id", comment.ID),
		slog.String("article_id", article.ID),
		slog.String("user_id", userID),
	)

	return comment, nil
}

// Moderate はコメントの表示状態を変更する。editor以上のロールが必要。
func (s *Service) Moderate(ctx context.Context, actor *model.Profile, commentID string, status model.CommentStatus) error {
	if !canModerate(actor) {
		return model.NewForbiddenError()
	}
	if status != model.CommentStatusVisible && status != model.CommentStatusHidden {
		return model.NewInvalidRequestError(fmt.Sprintf("無効なステータスです: %s", status))
	}

	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if err := s.commentRepo.UpdateStatus(ctx, commentID, status); err != nil {
		return fmt.Errorf("failed to update comment status: %w", err)
	}

	slog.Info("comment moderated",
		slog.String("comment_id", commentID),
		slog.String("status", string(status)),
		slog.String("actor_id", actor.ID),
	)

	return nil
}

// Delete はコメントを削除する。本人またはeditor以上のロールが必要。
func (s *Service) Delete(ctx context.Context, actor *model.Profile, commentID string) error {
	comment, err := s.commentRepo.FindByID(ctx, commentID)
	if err != nil {
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment == nil {
		return model.NewCommentNotFoundError(commentID)
	}

	if actor == nil || (comment.UserID != actor.ID && !canModerate(actor)) {
		return model.NewForbiddenError()
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	slog.Info("comment deleted",
		slog.String("comment_id", commentID),
		slog.String("actor_id", actor.ID),
	)

	return nil
}

// ToggleReaction はスラッグで指定した記事のリアクションをトグルし、
// トグル後の状態（true=作成）を返す。
func (s *Service) ToggleReaction(ctx context.Context, userID, articleSlug string, kind model.ReactionKind) (bool, error) {
	if !kind.IsValid() {
		return false, model.NewInvalidRequestError(fmt.Sprintf("無効なリアクション種別です: %s", kind))
	}

	article, err := s.findPublished(ctx, articleSlug)
	if err != nil {
		return false, err
	}

	active, err := s.reactionRepo.Toggle(ctx, userID, article.ID, kind)
	if err != nil {
		return false, fmt.Errorf("failed to toggle reaction: %w", err)
	}

	return active, nil
}

// CountReactions はスラッグで指定した記事のリアクション数を種別ごとに返す。
func (s *Service) CountReactions(ctx context.Context, articleSlug string) (map[model.ReactionKind]int, error) {
	article, err := s.findPublished(ctx, articleSlug)
	if err != nil {
		return nil, err
	}

	counts, err := s.reactionRepo.CountByArticle(ctx, article.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count reactions: %w", err)
	}
	return counts, nil
}

// findPublished はスラッグで公開済み記事を取得する。見つからない場合はARTICLE_NOT_FOUNDを返す。
func (s *Service) findPublished(ctx context.Context, slug string) (*model.ArticleWithMeta, error) {
	article, err := s.articleRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(slug)
	}
	return article, nil
}

// canModerate はモデレーション操作が許可されるロールかを返す。
func canModerate(actor *model.Profile) bool {
	if actor == nil {
		return false
	}
	return actor.Role == model.RoleEditor || actor.Role.CanAdministrate()
}
