// Package article は記事・カテゴリ・タグの閲覧と編集のビジネスロジックを提供する。
package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// Sanitizer は記事本文HTMLのサニタイズ機能のインターフェース。
type Sanitizer interface {
	SanitizeArticle(rawHTML string) string
}

const (
	defaultListLimit = 20
	maxListLimit     = 50
)

// Input は記事の作成・更新の入力を表す。
type Input struct {
	Title      string
	Slug       string // 空の場合はタイトルから生成
	Summary    string
	Content    string // 未サニタイズHTML
	CoverURL   string
	CategoryID string
	Status     model.ArticleStatus
	TagSlugs   []string
}

// Service は記事に関するビジネスロジックを提供する。
type Service struct {
	articleRepo  repository.ArticleRepository
	categoryRepo repository.CategoryRepository
	tagRepo      repository.TagRepository
	sanitizer    Sanitizer
}

// NewService はServiceを生成する。
func NewService(
	articleRepo repository.ArticleRepository,
	categoryRepo repository.CategoryRepository,
	tagRepo repository.TagRepository,
	sanitizer Sanitizer,
) *Service {
	return &Service{
		articleRepo:  articleRepo,
		categoryRepo: categoryRepo,
		tagRepo:      tagRepo,
		sanitizer:    sanitizer,
	}
}

// ListPublished は公開済み記事をフィルタ・カーソルページネーション付きで取得する。
// cursorは前ページ最終記事のpublished_at（RFC3339Nano）。空の場合は先頭から取得する。
// 返り値のnextCursorが空の場合、それ以降のページはない。
func (s *Service) ListPublished(ctx context.Context, filter model.ArticleFilter, cursor string, limit int) ([]model.ArticleWithMeta, string, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", model.NewInvalidRequestError("カーソルの形式が正しくありません")
		}
		cursorTime = t
	}

	articles, err := s.articleRepo.ListPublished(ctx, filter, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list articles: %w", err)
	}

	nextCursor := ""
	if len(articles) == limit {
		last := articles[len(articles)-1]
		if last.PublishedAt != nil {
			nextCursor = last.PublishedAt.Format(time.RFC3339Nano)
		}
	}

	return articles, nextCursor, nil
}

// GetBySlug はスラッグで公開済み記事を取得し、閲覧数をインクリメントする。
// 閲覧数の更新は結果整合でよいため、失敗してもレスポンスには影響させない。
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.ArticleWithMeta, error) {
	article, err := s.articleRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(slug)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.articleRepo.IncrementViewCount(ctx, article.ID); err != nil {
			slog.Error("failed to increment view count",
				slog.String("article_id", article.ID),
				slog.String("error", err.Error()),
			)
		}
	}()

	return article, nil
}

// ListHeadlines は最新の公開済み記事をlimit件取得する。
func (s *Service) ListHeadlines(ctx context.Context, limit int) ([]model.Article, error) {
	if limit <= 0 || limit > maxListLimit {
		limit = 5
	}
	articles, err := s.articleRepo.ListHeadlines(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list headlines: %w", err)
	}
	return articles, nil
}

// Create は記事を作成する。memberロールには許可されない。
// 本文はサニタイズされ、statusがpublishedの場合は公開日時が設定される。
func (s *Service) Create(ctx context.Context, actor *model.Profile, input Input) (*model.Article, error) {
	if actor == nil || actor.Role == model.RoleMember {
		return nil, model.NewForbiddenError()
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	article := &model.Article{
		ID:         uuid.New().String(),
		AuthorID:   actor.ID,
		CategoryID: input.CategoryID,
		Title:      input.Title,
		Slug:       input.Slug,
		Summary:    input.Summary,
		Content:    s.sanitizer.SanitizeArticle(input.Content),
		CoverURL:   input.CoverURL,
		Status:     input.Status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if article.Slug == "" {
		article.Slug = Slugify(input.Title)
	}
	if article.Status == "" {
		article.Status = model.ArticleStatusDraft
	}
	if article.Status == model.ArticleStatusPublished {
		article.PublishedAt = &now
	}

	tagIDs, err := s.tagRepo.EnsureBySlugs(ctx, input.TagSlugs)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure tags: %w", err)
	}

	if err := s.articleRepo.Create(ctx, article, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to create article: %w", err)
	}

	slog.Info("article created",
		slog.String("article_id", article.ID),
		slog.String("author_id", actor.ID),
		slog.String("status", string(article.Status)),
	)

	return article, nil
}

// Update はスラッグで指定した記事を更新する。公開状態は問わない。
// authorロールは自分の記事のみ、editor以上は全記事を更新できる。
// draftからpublishedに変わるタイミングで公開日時が設定される。
func (s *Service) Update(ctx context.Context, actor *model.Profile, slug string, input Input) (*model.Article, error) {
	if actor == nil || actor.Role == model.RoleMember {
		return nil, model.NewForbiddenError()
	}

	article, err := s.articleRepo.FindAnyBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to find article: %w", err)
	}
	if article == nil {
		return nil, model.NewArticleNotFoundError(slug)
	}

	if actor.Role == model.RoleAuthor && article.AuthorID != actor.ID {
		return nil, model.NewForbiddenError()
	}

	if err := validateInput(input); err != nil {
		return nil, err
	}

	article.CategoryID = input.CategoryID
	article.Title = input.Title
	article.Summary = input.Summary
	article.Content = s.sanitizer.SanitizeArticle(input.Content)
	article.CoverURL = input.CoverURL
	article.UpdatedAt = time.Now()
	if input.Slug != "" {
		article.Slug = input.Slug
	}
	if input.Status != "" {
		if article.PublishedAt == nil && input.Status == model.ArticleStatusPublished {
			now := time.Now()
			article.PublishedAt = &now
		}
		article.Status = input.Status
	}

	tagIDs, err := s.tagRepo.EnsureBySlugs(ctx, input.TagSlugs)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure tags: %w", err)
	}

	if err := s.articleRepo.Update(ctx, article, tagIDs); err != nil {
		return nil, fmt.Errorf("failed to update article: %w", err)
	}

	slog.Info("article updated",
		slog.String("article_id", article.ID),
		slog.String("actor_id", actor.ID),
	)

	return article, nil
}

// ListCategories は全カテゴリを表示順で取得する。
func (s *Service) ListCategories(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListTags は全タグを取得する。
func (s *Service) ListTags(ctx context.Context) ([]model.Tag, error) {
	tags, err := s.tagRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	return tags, nil
}

// validateInput は記事入力の必須項目と列挙値を検証する。
func validateInput(input Input) error {
	if strings.TrimSpace(input.Title) == "" {
		return model.NewInvalidRequestError("タイトルは必須です")
	}
	if input.CategoryID == "" {
		return model.NewInvalidRequestError("カテゴリは必須です")
	}
	switch input.Status {
	case "", model.ArticleStatusDraft, model.ArticleStatusPublished, model.ArticleStatusArchived:
	default:
		return model.NewInvalidRequestError(fmt.Sprintf("無効なステータスです: %s", input.Status))
	}
	return nil
}

// Slugify はタイトルからURLスラッグを生成する。
// 英数字以外はハイフンに置き換え、連続するハイフンは1つにまとめる。
func Slugify(title string) string {
	var b strings.Builder
	prevHyphen := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r):
			b.WriteRune(r)
			prevHyphen = false
		default:
			if !prevHyphen && b.Len() > 0 {
				b.WriteByte('-')
				prevHyphen = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = uuid.New().String()
	}
	return slug
}
