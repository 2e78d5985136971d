package syndication

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Partner Feed</title>
    <item>
      <title>Economy Update</title>
      <description>Markets moved today.</description>
    </item>
    <item>
      <title>Sports Final</title>
      <description>The match ended 2-1.</description>
    </item>
    <item>
      <title></title>
      <description>no title, should be skipped</description>
    </item>
  </channel>
</rss>`

type mockSourceRepo struct {
	sources       []model.SyndicationSource
	listActiveErr error
	mu            sync.Mutex
	fetchedIDs    []string
}

func (m *mockSourceRepo) ListActive(ctx context.Context) ([]model.SyndicationSource, error) {
	return m.sources, m.listActiveErr
}
func (m *mockSourceRepo) UpdateLastFetched(ctx context.Context, id string, fetchedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fetchedIDs = append(m.fetchedIDs, id)
	return nil
}

type mockArticleRepo struct {
	mu       sync.Mutex
	existing map[string]*model.Article
	created  []*model.Article
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
	return nil, nil
}
func (m *mockArticleRepo) Create(ctx context.Context, article *model.Article, tagIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created = append(m.created, article)
	return nil
}
func (m *mockArticleRepo) Update(ctx context.Context, article *model.Article, tagIDs []string) error {
	return nil
}
func (m *mockArticleRepo) IncrementViewCount(ctx context.Context, id string) error {
	return nil
}
func (m *mockArticleRepo) FindAnyBySlug(ctx context.Context, slug string) (*model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existing[slug], nil
}

type passthroughSanitizer struct{}

func (passthroughSanitizer) SanitizeArticle(rawHTML string) string {
	return rawHTML
}

// allowAllValidator は検証をスキップし、通常のHTTPクライアントを返す。
// httptestサーバーはループバックアドレスのため、本物のSSRFガードでは弾かれる。
type allowAllValidator struct{}

func (allowAllValidator) ValidateURL(rawURL string) error {
	return nil
}
func (allowAllValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

type denyingValidator struct{}

func (denyingValidator) ValidateURL(rawURL string) error {
	return &model.APIError{Code: "SSRF", Message: "blocked"}
}
func (denyingValidator) NewSafeClient(timeout time.Duration, maxResponseSize int64) *http.Client {
	return &http.Client{Timeout: timeout}
}

func newTestImporter(sources *mockSourceRepo, articles *mockArticleRepo, validator SSRFValidator) *Importer {
	return NewImporter(sources, articles, passthroughSanitizer{}, validator, slog.Default(), 5*time.Second, 1<<20)
}

func testSource(feedURL string) *model.SyndicationSource {
	return &model.SyndicationSource{
		ID:         "src-1",
		FeedURL:    feedURL,
		CategoryID: "cat-1",
		AuthorID:   "system-1",
		IsActive:   true,
	}
}

func TestImportSource_SavesNewItemsAsDrafts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	sources := &mockSourceRepo{}
	articles := &mockArticleRepo{}
	imp := newTestImporter(sources, articles, allowAllValidator{})

	imported, err := imp.ImportSource(context.Background(), testSource(server.URL))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	// タイトルが空の項目はスキップされる
	if imported != 2 {
		t.Errorf("imported = %d, want 2", imported)
	}
	if len(articles.created) != 2 {
		t.Fatalf("created articles = %d, want 2", len(articles.created))
	}

	first := articles.created[0]
	if first.Status != model.ArticleStatusDraft {
		t.Errorf("status = %s, want draft", first.Status)
	}
	if first.Slug != "economy-update" {
		t.Errorf("slug = %q, want economy-update", first.Slug)
	}
	if first.AuthorID != "system-1" || first.CategoryID != "cat-1" {
		t.Errorf("article = %+v", first)
	}

	if len(sources.fetchedIDs) != 1 || sources.fetchedIDs[0] != "src-1" {
		t.Errorf("fetched ids = %v, want [src-1]", sources.fetchedIDs)
	}
}

func TestImportSource_DuplicateSlug_IsSkipped(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testFeedXML))
	}))
	defer server.Close()

	articles := &mockArticleRepo{
		existing: map[string]*model.Article{
			"economy-update": {ID: "a-1", Slug: "economy-update"},
		},
	}
	imp := newTestImporter(&mockSourceRepo{}, articles, allowAllValidator{})

	imported, err := imp.ImportSource(context.Background(), testSource(server.URL))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if imported != 1 {
		t.Errorf("imported = %d, want 1", imported)
	}
}

func TestImportSource_BlockedURL_ReturnsError(t *testing.T) {
	imp := newTestImporter(&mockSourceRepo{}, &mockArticleRepo{}, denyingValidator{})

	_, err := imp.ImportSource(context.Background(), testSource("http://169.254.169.254/feed"))
	if err == nil {
		t.Fatal("expected an error for a blocked URL")
	}
}

func TestImportSource_Non200Status_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	imp := newTestImporter(&mockSourceRepo{}, &mockArticleRepo{}, allowAllValidator{})

	_, err := imp.ImportSource(context.Background(), testSource(server.URL))
	if err == nil {
		t.Fatal("expected an error for a non-200 response")
	}
}

func TestImportSource_MalformedFeed_ReturnsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not xml"))
	}))
	defer server.Close()

	imp := newTestImporter(&mockSourceRepo{}, &mockArticleRepo{}, allowAllValidator{})

	_, err := imp.ImportSource(context.Background(), testSource(server.URL))
	if err == nil {
		t.Fatal("expected a parse error")
	}
}
