package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

// PostgresAdRepo はPostgreSQLを使用した広告リポジトリ。
type PostgresAdRepo struct {
	db *sql.DB
}

// NewPostgresAdRepo はPostgresAdRepoを生成する。
func NewPostgresAdRepo(db *sql.DB) *PostgresAdRepo {
	return &PostgresAdRepo{db: db}
}

const adColumns = `id, slot, title, image_url, target_url, is_active,
	start_date, end_date, impressions, clicks, created_at, updated_at`

// FindActiveBySlot はスロットの配信対象広告を1件取得する。
// is_active = true かつ start_date <= now <= end_date の行のうち
// created_atが最新の1件を返す。対象がない場合はnilを返す。
func (r *PostgresAdRepo) FindActiveBySlot(ctx context.Context, slot model.AdSlot, now time.Time) (*model.Ad, error) {
	ad := &model.Ad{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+adColumns+`
		 FROM ads
		 WHERE slot = $1 AND is_active = true AND start_date <= $2 AND end_date >= $2
		 ORDER BY created_at DESC
		 LIMIT 1`,
		slot, now,
	).Scan(&ad.ID, &ad.Slot, &ad.Title, &ad.ImageURL, &ad.TargetURL, &ad.IsActive,
		&ad.StartDate, &ad.EndDate, &ad.Impressions, &ad.Clicks, &ad.CreatedAt, &ad.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active ad: %w", err)
	}

	return ad, nil
}

// FindByID は指定IDの広告を取得する。見つからない場合はnilを返す。
func (r *PostgresAdRepo) FindByID(ctx context.Context, id string) (*model.Ad, error) {
	ad := &model.Ad{}
	err := r.db.QueryRowContext(ctx,
		`SELECT `+adColumns+` FROM ads WHERE id = $1`,
		id,
	).Scan(&ad.ID, &ad.Slot, &ad.Title, &ad.ImageURL, &ad.TargetURL, &ad.IsActive,
		&ad.StartDate, &ad.EndDate, &ad.Impressions, &ad.Clicks, &ad.CreatedAt, &ad.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find ad by ID: %w", err)
	}

	return ad, nil
}

// IncrementImpressions はインプレッション数をアトミックにインクリメントする。
func (r *PostgresAdRepo) IncrementImpressions(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ads SET impressions = impressions + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment impressions: %w", err)
	}
	return nil
}

// IncrementClicks はクリック数をアトミックにインクリメントする。
func (r *PostgresAdRepo) IncrementClicks(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE ads SET clicks = clicks + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to increment clicks: %w", err)
	}
	return nil
}

// compile-time interface check
var _ AdRepository = (*PostgresAdRepo)(nil)
