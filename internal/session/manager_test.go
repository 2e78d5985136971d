package session

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/newsroom/internal/auth"
	"github.com/hitoshi/newsroom/internal/model"
)

// --- モック ---

type mockUserRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.User, error)
	findCalls  atomic.Int64
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	m.findCalls.Add(1)
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.User{ID: id, Email: "user@example.com"}, nil
}
func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}
func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	return nil
}
func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error {
	return nil
}
func (m *mockUserRepo) UpdateEmail(ctx context.Context, id, email string) error {
	return nil
}
func (m *mockUserRepo) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	return nil
}
func (m *mockUserRepo) ConfirmEmail(ctx context.Context, id string) error {
	return nil
}

type mockProfileProvider struct {
	getOrCreateFn func(ctx context.Context, userID string) *model.Profile
	calls         atomic.Int64
}

func (m *mockProfileProvider) GetOrCreate(ctx context.Context, userID string) *model.Profile {
	m.calls.Add(1)
	if m.getOrCreateFn != nil {
		return m.getOrCreateFn(ctx, userID)
	}
	return &model.Profile{ID: userID, FullName: "user", Role: model.RoleMember}
}

// waitForSnapshot は条件を満たすスナップショットが現れるまでポーリングする。
func waitForSnapshot(t *testing.T, m *Manager, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		snap := m.Current()
		if cond(snap) {
			return snap
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("snapshot condition not met within deadline: %+v", m.Current())
	return Snapshot{}
}

func newTestSession(id, userID string) *model.Session {
	return &model.Session{
		ID:        id,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestManager_SignedIn_ReconcilesSnapshot(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{
		Type:    auth.EventSignedIn,
		Session: newTestSession("token-1", "user-1"),
		UserID:  "user-1",
	}

	snap := waitForSnapshot(t, m, func(s Snapshot) bool {
		return s.SignedIn() && s.User != nil && s.Profile != nil
	})

	if snap.Session.ID != "token-1" {
		t.Errorf("Session.ID = %q, want %q", snap.Session.ID, "token-1")
	}
	if snap.User.ID != "user-1" {
		t.Errorf("User.ID = %q, want %q", snap.User.ID, "user-1")
	}
	if snap.Profile.ID != "user-1" {
		t.Errorf("Profile.ID = %q, want %q", snap.Profile.ID, "user-1")
	}
}

func TestManager_DuplicateSignedIn_ReconcilesOnce(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	session := newTestSession("token-dup", "user-1")
	events <- auth.Event{Type: auth.EventSignedIn, Session: session, UserID: "user-1"}
	events <- auth.Event{Type: auth.EventSignedIn, Session: session, UserID: "user-1"}
	events <- auth.Event{Type: auth.EventSignedIn, Session: session, UserID: "user-1"}

	waitForSnapshot(t, m, func(s Snapshot) bool {
		return s.User != nil && s.Profile != nil
	})

	// 消費ループが残りの重複イベントを処理するのを待つ
	time.Sleep(50 * time.Millisecond)

	if got := users.findCalls.Load(); got != 1 {
		t.Errorf("user fetch count = %d, want 1 (duplicates must be ignored)", got)
	}
}

func TestManager_SignedOut_ClearsSnapshot(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.Profile != nil })

	events <- auth.Event{Type: auth.EventSignedOut, UserID: "user-1"}
	snap := waitForSnapshot(t, m, func(s Snapshot) bool { return !s.SignedIn() })

	if snap.User != nil || snap.Profile != nil {
		t.Errorf("snapshot should be fully cleared, got %+v", snap)
	}
}

func TestManager_SignedOutThenSignedInSameToken_Reconciles(t *testing.T) {
	// サインアウト後に同じトークンで再サインインした場合、
	// 重複抑制が誤作動せず再整合されることを検証する。
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	session := newTestSession("token-1", "user-1")
	events <- auth.Event{Type: auth.EventSignedIn, Session: session, UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.Profile != nil })

	events <- auth.Event{Type: auth.EventSignedOut, UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return !s.SignedIn() })

	events <- auth.Event{Type: auth.EventSignedIn, Session: session, UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.Profile != nil })

	if got := users.findCalls.Load(); got != 2 {
		t.Errorf("user fetch count = %d, want 2", got)
	}
}

func TestManager_TokenRefreshed_UpdatesSessionWithoutReconcile(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.Profile != nil })

	events <- auth.Event{Type: auth.EventTokenRefreshed, Session: newTestSession("token-2", "user-1"), UserID: "user-1"}
	snap := waitForSnapshot(t, m, func(s Snapshot) bool {
		return s.Session != nil && s.Session.ID == "token-2"
	})

	// リフレッシュではユーザー・プロフィールの再取得は行わない
	if got := users.findCalls.Load(); got != 1 {
		t.Errorf("user fetch count = %d, want 1", got)
	}
	if snap.Profile == nil {
		t.Error("profile should be retained across token refresh")
	}
}

func TestManager_UserUpdated_ReconcilesCurrentUser(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.User, error) {
			return &model.User{ID: id, Email: "updated@example.com"}, nil
		},
	}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.User != nil })

	events <- auth.Event{Type: auth.EventUserUpdated, UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool {
		return s.User != nil && s.User.Email == "updated@example.com"
	})
}

func TestManager_UserUpdated_ForOtherUser_Ignored(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.User != nil })

	events <- auth.Event{Type: auth.EventUserUpdated, UserID: "user-other"}
	time.Sleep(50 * time.Millisecond)

	if got := users.findCalls.Load(); got != 1 {
		t.Errorf("user fetch count = %d, want 1 (event for another user must be ignored)", got)
	}
}

func TestManager_ProfileFetchFailure_KeepsSessionAlive(t *testing.T) {
	// プロフィール取得に失敗しても認証状態は維持される。
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{
		getOrCreateFn: func(ctx context.Context, userID string) *model.Profile {
			return nil
		},
	}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	snap := waitForSnapshot(t, m, func(s Snapshot) bool { return s.User != nil })

	if !snap.SignedIn() {
		t.Error("session must stay signed in even when profile fetch fails")
	}
	if snap.Profile != nil {
		t.Errorf("Profile = %+v, want nil", snap.Profile)
	}
}

func TestManager_RefreshProfile_WhenSignedOut_DoesNothing(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	m.RefreshProfile(context.Background())

	if got := profiles.calls.Load(); got != 0 {
		t.Errorf("profile fetch count = %d, want 0", got)
	}
}

func TestManager_RefreshProfile_UpdatesProfile(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}

	var refreshed atomic.Bool
	profiles := &mockProfileProvider{
		getOrCreateFn: func(ctx context.Context, userID string) *model.Profile {
			name := "before"
			if refreshed.Load() {
				name = "after"
			}
			return &model.Profile{ID: userID, FullName: name, Role: model.RoleMember}
		},
	}

	m := NewManager(events, users, profiles, Config{})
	m.Start()
	defer m.Stop()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.Profile != nil })

	refreshed.Store(true)
	m.RefreshProfile(context.Background())

	snap := m.Current()
	if snap.Profile == nil || snap.Profile.FullName != "after" {
		t.Errorf("Profile = %+v, want FullName=after", snap.Profile)
	}
}

func TestManager_ProvisionDelay_WaitsBeforeReconcile(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{ProvisionDelay: 80 * time.Millisecond})
	m.Start()
	defer m.Stop()

	start := time.Now()
	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	waitForSnapshot(t, m, func(s Snapshot) bool { return s.Profile != nil })

	if elapsed := time.Since(start); elapsed < 80*time.Millisecond {
		t.Errorf("reconcile finished after %v, want >= 80ms provision delay", elapsed)
	}
}

func TestManager_StopDuringProvisionDelay_AbortsReconcile(t *testing.T) {
	events := make(chan auth.Event, 8)
	users := &mockUserRepo{}
	profiles := &mockProfileProvider{}

	m := NewManager(events, users, profiles, Config{ProvisionDelay: 5 * time.Second})
	m.Start()

	events <- auth.Event{Type: auth.EventSignedIn, Session: newTestSession("token-1", "user-1"), UserID: "user-1"}
	time.Sleep(20 * time.Millisecond)

	stopped := make(chan struct{})
	go func() {
		m.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop should not block on the provision delay")
	}

	if got := users.findCalls.Load(); got != 0 {
		t.Errorf("user fetch count = %d, want 0 (reconcile must be aborted)", got)
	}
}

func TestManager_StartStop_AreIdempotent(t *testing.T) {
	events := make(chan auth.Event)
	m := NewManager(events, &mockUserRepo{}, &mockProfileProvider{}, Config{})

	m.Start()
	m.Start()
	m.Stop()
	m.Stop()
}
