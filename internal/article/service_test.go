package article

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hitoshi/newsroom/internal/model"
)

type mockArticleRepo struct {
	mu               sync.Mutex
	listPublishedFn  func(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error)
	findBySlugFn     func(ctx context.Context, slug string) (*model.ArticleWithMeta, error)
	findAnyBySlugFn  func(ctx context.Context, slug string) (*model.Article, error)
	listHeadlinesFn  func(ctx context.Context, limit int) ([]model.Article, error)
	createFn         func(ctx context.Context, article *model.Article, tagIDs []string) error
	updateFn         func(ctx context.Context, article *model.Article, tagIDs []string) error
	incrementedIDs   []string
	incrementWaiters chan string
}

func (m *mockArticleRepo) FindByID(ctx context.Context, id string) (*model.Article, error) {
	return nil, nil
}
func (m *mockArticleRepo) FindBySlug(ctx context.Context, slug string) (*model.ArticleWithMeta, error) {
	if m.findBySlugFn != nil {
		return m.findBySlugFn(ctx, slug)
	}
	return nil, nil
}
func (m *mockArticleRepo) ListPublished(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error) {
	if m.listPublishedFn != nil {
		return m.listPublishedFn(ctx, filter, cursor, limit)
	}
	return nil, nil
}
func (m *mockArticleRepo) ListHeadlines(ctx context.Context, limit int) ([]model.Article, error) {
	if m.listHeadlinesFn != nil {
		return m.listHeadlinesFn(ctx, limit)
	}
	return nil, nil
}
func (m *mockArticleRepo) Create(ctx context.Context, article *model.Article, tagIDs []string) error {
	if m.createFn != nil {
		return m.createFn(ctx, article, tagIDs)
	}
	return nil
}
func (m *mockArticleRepo) Update(ctx context.Context, article *model.Article, tagIDs []string) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, article, tagIDs)
	}
	return nil
}
func (m *mockArticleRepo) IncrementViewCount(ctx context.Context, id string) error {
	m.mu.Lock()
	m.incrementedIDs = append(m.incrementedIDs, id)
	m.mu.Unlock()
	if m.incrementWaiters != nil {
		m.incrementWaiters <- id
	}
	return nil
}
func (m *mockArticleRepo) FindAnyBySlug(ctx context.Context, slug string) (*model.Article, error) {
	if m.findAnyBySlugFn != nil {
		return m.findAnyBySlugFn(ctx, slug)
	}
	return nil, nil
}

type mockCategoryRepo struct {
	listFn func(ctx context.Context) ([]model.Category, error)
}

func (m *mockCategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}
func (m *mockCategoryRepo) FindBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return nil, nil
}

type mockTagRepo struct {
	ensuredSlugs []string
}

func (m *mockTagRepo) List(ctx context.Context) ([]model.Tag, error) {
	return nil, nil
}
func (m *mockTagRepo) EnsureBySlugs(ctx context.Context, slugs []string) ([]string, error) {
	m.ensuredSlugs = slugs
	ids := make([]string, len(slugs))
	for i := range slugs {
		ids[i] = "tag-" + slugs[i]
	}
	return ids, nil
}

type passthroughSanitizer struct{}

func (passthroughSanitizer) SanitizeArticle(rawHTML string) string {
	return strings.ReplaceAll(rawHTML, "<script>", "")
}

func newTestService(articles *mockArticleRepo) (*Service, *mockTagRepo) {
	tags := &mockTagRepo{}
	return NewService(articles, &mockCategoryRepo{}, tags, passthroughSanitizer{}), tags
}

func editorProfile() *model.Profile {
	return &model.Profile{ID: "editor-1", Role: model.RoleEditor}
}

func validInput() Input {
	return Input{
		Title:      "Breaking News",
		Content:    "<p>body</p>",
		CategoryID: "cat-1",
	}
}

func assertErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError with code %s, got %v", code, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %s, want %s", apiErr.Code, code)
	}
}

// --- ListPublished ---

func publishedMeta(slug string, publishedAt time.Time) model.ArticleWithMeta {
	return model.ArticleWithMeta{
		Article: model.Article{
			ID:          "id-" + slug,
			Slug:        slug,
			Status:      model.ArticleStatusPublished,
			PublishedAt: &publishedAt,
		},
	}
}

func TestListPublished_FullPage_ReturnsNextCursor(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	articles := &mockArticleRepo{
		listPublishedFn: func(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error) {
			page := make([]model.ArticleWithMeta, limit)
			for i := range page {
				page[i] = publishedMeta("a", base.Add(-time.Duration(i)*time.Minute))
			}
			return page, nil
		},
	}
	s, _ := newTestService(articles)

	page, next, err := s.ListPublished(context.Background(), model.ArticleFilter{}, "", 3)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(page) != 3 {
		t.Fatalf("page size = %d, want 3", len(page))
	}

	want := base.Add(-2 * time.Minute).Format(time.RFC3339Nano)
	if next != want {
		t.Errorf("next cursor = %q, want %q", next, want)
	}
}

func TestListPublished_PartialPage_ReturnsEmptyCursor(t *testing.T) {
	articles := &mockArticleRepo{
		listPublishedFn: func(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error) {
			return []model.ArticleWithMeta{publishedMeta("only", time.Now())}, nil
		},
	}
	s, _ := newTestService(articles)

	_, next, err := s.ListPublished(context.Background(), model.ArticleFilter{}, "", 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if next != "" {
		t.Errorf("next cursor = %q, want empty", next)
	}
}

func TestListPublished_CursorIsPassedToRepository(t *testing.T) {
	cursor := time.Date(2026, 5, 1, 12, 0, 0, 123456789, time.UTC)
	var gotCursor time.Time
	articles := &mockArticleRepo{
		listPublishedFn: func(ctx context.Context, filter model.ArticleFilter, c time.Time, limit int) ([]model.ArticleWithMeta, error) {
			gotCursor = c
			return nil, nil
		},
	}
	s, _ := newTestService(articles)

	_, _, err := s.ListPublished(context.Background(), model.ArticleFilter{}, cursor.Format(time.RFC3339Nano), 10)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !gotCursor.Equal(cursor) {
		t.Errorf("cursor = %v, want %v", gotCursor, cursor)
	}
}

func TestListPublished_MalformedCursor_ReturnsError(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	_, _, err := s.ListPublished(context.Background(), model.ArticleFilter{}, "yesterday", 10)
	assertErrorCode(t, err, model.ErrCodeInvalidRequest)
}

func TestListPublished_LimitIsClamped(t *testing.T) {
	var gotLimit int
	articles := &mockArticleRepo{
		listPublishedFn: func(ctx context.Context, filter model.ArticleFilter, cursor time.Time, limit int) ([]model.ArticleWithMeta, error) {
			gotLimit = limit
			return nil, nil
		},
	}
	s, _ := newTestService(articles)

	if _, _, err := s.ListPublished(context.Background(), model.ArticleFilter{}, "", 500); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotLimit != maxListLimit {
		t.Errorf("limit = %d, want %d", gotLimit, maxListLimit)
	}

	if _, _, err := s.ListPublished(context.Background(), model.ArticleFilter{}, "", 0); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if gotLimit != defaultListLimit {
		t.Errorf("limit = %d, want %d", gotLimit, defaultListLimit)
	}
}

// --- GetBySlug ---

func TestGetBySlug_IncrementsViewCountAsynchronously(t *testing.T) {
	articles := &mockArticleRepo{
		incrementWaiters: make(chan string, 1),
		findBySlugFn: func(ctx context.Context, slug string) (*model.ArticleWithMeta, error) {
			return &model.ArticleWithMeta{Article: model.Article{ID: "a-1", Slug: slug}}, nil
		},
	}
	s, _ := newTestService(articles)

	got, err := s.GetBySlug(context.Background(), "breaking-news")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Slug != "breaking-news" {
		t.Errorf("slug = %q", got.Slug)
	}

	select {
	case id := <-articles.incrementWaiters:
		if id != "a-1" {
			t.Errorf("incremented id = %q, want a-1", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("view count was not incremented")
	}
}

func TestGetBySlug_NotFound_ReturnsError(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	_, err := s.GetBySlug(context.Background(), "missing")
	assertErrorCode(t, err, model.ErrCodeArticleNotFound)
}

// --- Create ---

func TestCreate_PublishedArticle_SetsPublishedAt(t *testing.T) {
	var created *model.Article
	articles := &mockArticleRepo{
		createFn: func(ctx context.Context, article *model.Article, tagIDs []string) error {
			created = article
			return nil
		},
	}
	s, tags := newTestService(articles)

	input := validInput()
	input.Status = model.ArticleStatusPublished
	input.TagSlugs = []string{"politics", "economy"}

	got, err := s.Create(context.Background(), editorProfile(), input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if created == nil {
		t.Fatal("create must be called")
	}
	if got.PublishedAt == nil {
		t.Error("published article must have a publish timestamp")
	}
	if got.Slug != "breaking-news" {
		t.Errorf("slug = %q, want breaking-news", got.Slug)
	}
	if got.AuthorID != "editor-1" {
		t.Errorf("author = %q, want editor-1", got.AuthorID)
	}
	if len(tags.ensuredSlugs) != 2 {
		t.Errorf("ensured tag slugs = %v", tags.ensuredSlugs)
	}
}

func TestCreate_DefaultsToDraftWithoutPublishedAt(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	got, err := s.Create(context.Background(), editorProfile(), validInput())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.Status != model.ArticleStatusDraft {
		t.Errorf("status = %s, want draft", got.Status)
	}
	if got.PublishedAt != nil {
		t.Error("draft must not have a publish timestamp")
	}
}

func TestCreate_SanitizesContent(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	input := validInput()
	input.Content = "<p>hello</p><script>alert(1)</script>"

	got, err := s.Create(context.Background(), editorProfile(), input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if strings.Contains(got.Content, "<script>") {
		t.Errorf("content was not sanitized: %q", got.Content)
	}
}

func TestCreate_MemberRole_IsForbidden(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	_, err := s.Create(context.Background(), &model.Profile{ID: "m-1", Role: model.RoleMember}, validInput())
	assertErrorCode(t, err, model.ErrCodeForbidden)

	_, err = s.Create(context.Background(), nil, validInput())
	assertErrorCode(t, err, model.ErrCodeForbidden)
}

func TestCreate_InvalidInput_ReturnsError(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	cases := []struct {
		name  string
		input Input
	}{
		{"missing title", Input{CategoryID: "cat-1"}},
		{"missing category", Input{Title: "t"}},
		{"invalid status", Input{Title: "t", CategoryID: "cat-1", Status: "pending"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := s.Create(context.Background(), editorProfile(), tc.input)
			assertErrorCode(t, err, model.ErrCodeInvalidRequest)
		})
	}
}

// --- Update ---

func draftBySlug(authorID string) func(ctx context.Context, slug string) (*model.Article, error) {
	return func(ctx context.Context, slug string) (*model.Article, error) {
		return &model.Article{
			ID:       "a-1",
			AuthorID: authorID,
			Slug:     slug,
			Status:   model.ArticleStatusDraft,
		}, nil
	}
}

func TestUpdate_PublishingDraft_SetsPublishedAtOnce(t *testing.T) {
	articles := &mockArticleRepo{findAnyBySlugFn: draftBySlug("editor-1")}
	s, _ := newTestService(articles)

	input := validInput()
	input.Status = model.ArticleStatusPublished

	got, err := s.Update(context.Background(), editorProfile(), "breaking-news", input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if got.PublishedAt == nil {
		t.Fatal("publishing must set the publish timestamp")
	}
	firstPublish := *got.PublishedAt

	// 既に公開済みの記事を再度publishedで更新しても公開日時は変わらない
	articles.findAnyBySlugFn = func(ctx context.Context, slug string) (*model.Article, error) {
		return &model.Article{
			ID:          "a-1",
			AuthorID:    "editor-1",
			Slug:        slug,
			Status:      model.ArticleStatusPublished,
			PublishedAt: &firstPublish,
		}, nil
	}
	again, err := s.Update(context.Background(), editorProfile(), "breaking-news", input)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !again.PublishedAt.Equal(firstPublish) {
		t.Error("publish timestamp must not change on republish")
	}
}

func TestUpdate_AuthorCanOnlyEditOwnArticles(t *testing.T) {
	articles := &mockArticleRepo{findAnyBySlugFn: draftBySlug("someone-else")}
	s, _ := newTestService(articles)

	author := &model.Profile{ID: "author-1", Role: model.RoleAuthor}
	_, err := s.Update(context.Background(), author, "breaking-news", validInput())
	assertErrorCode(t, err, model.ErrCodeForbidden)

	// editorは他人の記事も更新できる
	_, err = s.Update(context.Background(), editorProfile(), "breaking-news", validInput())
	if err != nil {
		t.Errorf("editor update failed: %v", err)
	}
}

func TestUpdate_UnknownSlug_ReturnsNotFound(t *testing.T) {
	s, _ := newTestService(&mockArticleRepo{})

	_, err := s.Update(context.Background(), editorProfile(), "missing", validInput())
	assertErrorCode(t, err, model.ErrCodeArticleNotFound)
}

// --- Slugify ---

func TestSlugify(t *testing.T) {
	cases := []struct {
		title string
		want  string
	}{
		{"Breaking News", "breaking-news"},
		{"Go 1.25 Released!", "go-1-25-released"},
		{"  spaces   everywhere  ", "spaces-everywhere"},
		{"UPPER case", "upper-case"},
		{"already-a-slug", "already-a-slug"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.title); got != tc.want {
			t.Errorf("Slugify(%q) = %q, want %q", tc.title, got, tc.want)
		}
	}
}

func TestSlugify_NonASCIITitle_FallsBackToUUID(t *testing.T) {
	got := Slugify("速報ニュース")
	if got == "" {
		t.Fatal("slug must not be empty")
	}
	if len(got) != 36 {
		t.Errorf("expected a generated uuid slug, got %q", got)
	}
}
