package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"
)

type mockSessionDeleter struct {
	deleteFn  func(ctx context.Context, cutoff time.Time) (int64, error)
	gotCutoff time.Time
}

func (m *mockSessionDeleter) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.gotCutoff = cutoff
	if m.deleteFn != nil {
		return m.deleteFn(ctx, cutoff)
	}
	return 0, nil
}

type mockTokenDeleter struct {
	deleteFn func(ctx context.Context) (int64, error)
	calls    int
}

func (m *mockTokenDeleter) DeleteStale(ctx context.Context) (int64, error) {
	m.calls++
	if m.deleteFn != nil {
		return m.deleteFn(ctx)
	}
	return 0, nil
}

func TestRun_DeletesSessionsAndTokens(t *testing.T) {
	sessions := &mockSessionDeleter{
		deleteFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 12, nil
		},
	}
	tokens := &mockTokenDeleter{
		deleteFn: func(ctx context.Context) (int64, error) {
			return 4, nil
		},
	}
	job := NewCleanupJob(sessions, tokens, slog.Default())

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if tokens.calls != 1 {
		t.Errorf("token cleanup calls = %d, want 1", tokens.calls)
	}
}

func TestRun_CutoffRespectsRetentionDays(t *testing.T) {
	sessions := &mockSessionDeleter{}
	job := NewCleanupJob(sessions, &mockTokenDeleter{}, slog.Default())
	job.RetentionDays = 7

	before := time.Now().AddDate(0, 0, -7)
	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	after := time.Now().AddDate(0, 0, -7)

	if sessions.gotCutoff.Before(before) || sessions.gotCutoff.After(after) {
		t.Errorf("cutoff = %v, want about 7 days ago", sessions.gotCutoff)
	}
}

func TestRun_DefaultRetentionIsThirtyDays(t *testing.T) {
	job := NewCleanupJob(&mockSessionDeleter{}, &mockTokenDeleter{}, slog.Default())

	if job.RetentionDays != 30 {
		t.Errorf("retention days = %d, want 30", job.RetentionDays)
	}
}

func TestRun_SessionDeleteFailure_SkipsTokenCleanup(t *testing.T) {
	sessions := &mockSessionDeleter{
		deleteFn: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	tokens := &mockTokenDeleter{}
	job := NewCleanupJob(sessions, tokens, slog.Default())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if tokens.calls != 0 {
		t.Errorf("token cleanup calls = %d, want 0", tokens.calls)
	}
}

func TestRun_TokenDeleteFailure_ReturnsError(t *testing.T) {
	tokens := &mockTokenDeleter{
		deleteFn: func(ctx context.Context) (int64, error) {
			return 0, errors.New("connection refused")
		},
	}
	job := NewCleanupJob(&mockSessionDeleter{}, tokens, slog.Default())

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
}
