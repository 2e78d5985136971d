package syndication

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// SourceImporter は取り込み元フィードのインポート実行インターフェース。
type SourceImporter interface {
	// ImportSource は取り込み元フィードをフェッチし、保存した記事数を返す。
	ImportSource(ctx context.Context, source *model.SyndicationSource) (int, error)
}

// Recorder は取り込み結果のメトリクス記録インターフェース。
type Recorder interface {
	RecordSyndicationImport(count int)
	RecordSyndicationFailure(sourceID string)
}

// Scheduler は取り込み元フィードの定期巡回と並列制御を行う。
// semaphoreパターンで最大並列数を制御しながらインポートを実行する。
type Scheduler struct {
	sourceRepo     repository.SyndicationSourceRepository
	importer       SourceImporter
	recorder       Recorder
	logger         *slog.Logger
	maxConcurrency int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値5を使用する。
func NewScheduler(
	sourceRepo repository.SyndicationSourceRepository,
	importer SourceImporter,
	recorder Recorder,
	logger *slog.Logger,
	maxConcurrency int,
) *Scheduler {
	if maxConcurrency <= 0 {
		maxConcurrency = 5
	}
	return &Scheduler{
		sourceRepo:     sourceRepo,
		importer:       importer,
		recorder:       recorder,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("取り込みスケジューラを開始しました",
		slog.Duration("interval", interval),
		slog.Int("max_concurrency", s.maxConcurrency),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("取り込みサイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("取り込みスケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("取り込みサイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce は有効な取り込み元を1回取得し、並列でインポートを実行する。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	sources, err := s.sourceRepo.ListActive(ctx)
	if err != nil {
		return err
	}

	if len(sources) == 0 {
		s.logger.Info("取り込み対象のフィードはありません")
		return nil
	}

	sem := make(chan struct{}, s.maxConcurrency)
	var wg sync.WaitGroup

	for idx := range sources {
		wg.Add(1)
		sem <- struct{}{}

		go func(src *model.SyndicationSource) {
			defer wg.Done()
			defer func() { <-sem }()

			imported, err := s.importer.ImportSource(ctx, src)
			if err != nil {
				s.logger.Error("フィード取り込みに失敗しました",
					slog.String("source_id", src.ID),
					slog.String("feed_url", src.FeedURL),
					slog.String("error", err.Error()),
				)
				s.recorder.RecordSyndicationFailure(src.ID)
				return
			}
			if imported > 0 {
				s.recorder.RecordSyndicationImport(imported)
			}
		}(&sources[idx])
	}

	wg.Wait()

	s.logger.Info("取り込みサイクルが完了しました",
		slog.Int("source_count", len(sources)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return nil
}
