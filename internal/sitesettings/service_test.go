package sitesettings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

type mockSettingRepo struct {
	getAllFn func(ctx context.Context) (map[string]string, error)
	getFn    func(ctx context.Context, key string) (string, error)
}

func (m *mockSettingRepo) GetAll(ctx context.Context) (map[string]string, error) {
	if m.getAllFn != nil {
		return m.getAllFn(ctx)
	}
	return map[string]string{}, nil
}
func (m *mockSettingRepo) Get(ctx context.Context, key string) (string, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return "", nil
}
func (m *mockSettingRepo) Set(ctx context.Context, key, value string) error {
	return nil
}

type mockArticleRepo struct {
	listHeadlinesFn func(ctx context.Context, limit int) ([]model.Article, error)
}

func (m *mockArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	return nil, nil
}
func (m *mockArticleRepo) FindBySlug(ctx context.Context, slug string) (*model.ArticleWithMeta, error) {
	return nil, nil
}
func (m *mockArticleRepo) ListPublished(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error) {
	return nil, nil
}
func (m *mockArticleRepo) ListHeadlines(ctx context.Context, limit int) ([]model.Article, error) {
	if m.listHeadlinesFn != nil {
		return m.listHeadlinesFn(ctx, limit)
	}
	return nil, nil
}
func (m *mockArticleRepo) Create(ctx context.Context, article *model.Article, tagIDs []string) error {
	return nil
}
func (m *mockArticleRepo) Update(ctx context.Context, article *model.Article, tagIDs []string) error {
	return nil
}
func (m *mockArticleRepo) IncrementViewCount(ctx context.Context, id string) error {
	return nil
}
func (m *mockArticleRepo) FindAnyBySlug(ctx context.Context, slug string) (*model.Article, error) {
	return nil, nil
}

func TestGetAll_ReturnsSettings(t *testing.T) {
	settings := &mockSettingRepo{
		getAllFn: func(ctx context.Context) (map[string]string, error) {
			return map[string]string{"site_title": "Newsroom", NoticeKey: "maintenance tonight"}, nil
		},
	}
	s := NewService(settings, &mockArticleRepo{})

	got, err := s.GetAll(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got["site_title"] != "Newsroom" {
		t.Errorf("settings = %v", got)
	}
}

func TestHeaderSummary_AggregatesHeadlinesAndNotice(t *testing.T) {
	var gotLimit int
	articles := &mockArticleRepo{
		listHeadlinesFn: func(ctx context.Context, limit int) ([]model.Article, error) {
			gotLimit = limit
			return []model.Article{
				{ID: "a-1", Title: "First"},
				{ID: "a-2", Title: "Second"},
			}, nil
		},
	}
	settings := &mockSettingRepo{
		getFn: func(ctx context.Context, key string) (string, error) {
			if key != NoticeKey {
				t.Errorf("setting key = %q, want %q", key, NoticeKey)
			}
			return "breaking maintenance notice", nil
		},
	}
	s := NewService(settings, articles)

	summary, err := s.HeaderSummary(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if gotLimit != headlineCount {
		t.Errorf("headline limit = %d, want %d", gotLimit, headlineCount)
	}
	if len(summary.Headlines) != 2 {
		t.Errorf("headline count = %d, want 2", len(summary.Headlines))
	}
	if summary.Notice != "breaking maintenance notice" {
		t.Errorf("notice = %q", summary.Notice)
	}
}

func TestHeaderSummary_UnsetNotice_IsEmpty(t *testing.T) {
	s := NewService(&mockSettingRepo{}, &mockArticleRepo{})

	summary, err := s.HeaderSummary(context.Background())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if summary.Notice != "" {
		t.Errorf("notice = %q, want empty", summary.Notice)
	}
}

func TestHeaderSummary_RepositoryFailure_IsPropagated(t *testing.T) {
	articles := &mockArticleRepo{
		listHeadlinesFn: func(ctx context.Context, limit int) ([]model.Article, error) {
			return nil, errors.New("connection refused")
		},
	}
	s := NewService(&mockSettingRepo{}, articles)

	if _, err := s.HeaderSummary(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
