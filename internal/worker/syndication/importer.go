// Package syndication は外部フィードからの記事取り込みワーカーを提供する。
// 取り込み元フィードを定期巡回し、新着記事を下書きとして保存する。
package syndication

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newsroom/internal/article"
	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// Sanitizer は取り込み記事本文のサニタイズ機能のインターフェース。
type Sanitizer interface {
	SanitizeArticle(rawHTML string) string
}

// SSRFValidator はSSRF検証のインターフェース。
type SSRFValidator interface {
	ValidateURL(rawURL string) error
	NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client
}

// Importer は個別フィードのHTTPフェッチ・パース・記事保存を行う。
// 取り込んだ記事は全て下書きとして保存され、編集者の公開操作を待つ。
type Importer struct {
	sourceRepo  repository.SyndicationSourceRepository
	articleRepo repository.ArticleRepository
	sanitizer   Sanitizer
	ssrfGuard   SSRFValidator
	logger      *slog.Logger
	timeout     time.Duration
	maxBodySize int64
}

// NewImporter はImporterの新しいインスタンスを生成する。
func NewImporter(
	sourceRepo repository.SyndicationSourceRepository,
	articleRepo repository.ArticleRepository,
	sanitizer Sanitizer,
	ssrfGuard SSRFValidator,
	logger *slog.Logger,
	timeout time.Duration,
	maxBodySize int64,
) *Importer {
	return &Importer{
		sourceRepo:  sourceRepo,
		articleRepo: articleRepo,
		sanitizer:   sanitizer,
		ssrfGuard:   ssrfGuard,
		logger:      logger,
		timeout:     timeout,
		maxBodySize: maxBodySize,
	}
}

// ImportSource は取り込み元フィードを1回フェッチし、新着記事を下書きとして保存する。
// 保存した記事数を返す。スラッグが既存記事と重複する項目はスキップされる。
func (i *Importer) ImportSource(ctx context.Context, source *model.SyndicationSource) (int, error) {
	start := time.Now()

	// SSRF検証
	if err := i.ssrfGuard.ValidateURL(source.FeedURL); err != nil {
		return 0, fmt.Errorf("SSRF検証に失敗: %w", err)
	}

	client := i.ssrfGuard.NewSafeClient(i.timeout, i.maxBodySize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.FeedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", "Newsroom/1.0 Syndication")
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("予期しないHTTPステータス: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBodySize))
	if err != nil {
		return 0, fmt.Errorf("レスポンス読み取り失敗: %w", err)
	}

	parsedFeed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return 0, fmt.Errorf("フィードのパースに失敗: %w", err)
	}

	imported := 0
	for _, item := range parsedFeed.Items {
		if item == nil || item.Title == "" {
			continue
		}

		created, err := i.importItem(ctx, source, item)
		if err != nil {
			i.logger.Error("記事の取り込みに失敗しました",
				slog.String("source_id", source.ID),
				slog.String("item_title", item.Title),
				slog.String("error", err.Error()),
			)
			continue
		}
		if created {
			imported++
		}
	}

	if err := i.sourceRepo.UpdateLastFetched(ctx, source.ID, time.Now()); err != nil {
		i.logger.Error("取り込み元の状態更新に失敗しました",
			slog.String("source_id", source.ID),
			slog.String("error", err.Error()),
		)
	}

	i.logger.Info("フィード取り込みが完了しました",
		slog.String("source_id", source.ID),
		slog.String("feed_url", source.FeedURL),
		slog.Int("items_total", len(parsedFeed.Items)),
		slog.Int("items_imported", imported),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return imported, nil
}

// importItem はフィード項目を下書き記事として保存する。
// 既存記事とスラッグが重複する場合は取り込み済みとみなしてスキップする。
func (i *Importer) importItem(ctx context.Context, source *model.SyndicationSource, item *gofeed.Item) (bool, error) {
	slug := article.Slugify(item.Title)

	existing, err := i.articleRepo.FindAnyBySlug(ctx, slug)
	if err != nil {
		return false, fmt.Errorf("failed to check duplicate: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	content := item.Content
	if content == "" {
		content = item.Description
	}

	now := time.Now()
	a := &model.Article{
		ID:         uuid.New().String(),
		AuthorID:   source.AuthorID,
		CategoryID: source.CategoryID,
		Title:      item.Title,
		Slug:       slug,
		Summary:    i.sanitizer.SanitizeArticle(item.Description),
		Content:    i.sanitizer.SanitizeArticle(content),
		CoverURL:   itemImageURL(item),
		Status:     model.ArticleStatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := i.articleRepo.Create(ctx, a, nil); err != nil {
		return false, fmt.Errorf("failed to create article: %w", err)
	}
	return true, nil
}

// itemImageURL はフィード項目からカバー画像URLを取得する。
func itemImageURL(item *gofeed.Item) string {
	if item.Image != nil {
		return item.Image.URL
	}
	return ""
}
