// Package session は認証イベントを購読し、セッション・ユーザー・プロフィールの
// 一貫したスナップショットを維持するセッション同期マネージャを提供する。
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/newsroom/internal/auth"
	"github.com/hitoshi/newsroom/internal/model"
	"github.com/hitoshi/newsroom/internal/repository"
)

// ProfileProvider はプロフィールの取得・自動作成のインターフェース。
type ProfileProvider interface {
	// GetOrCreate はプロフィールを取得し、未作成なら自動作成する。
	// 取得できない場合はnilを返す（エラーで認証状態を壊さない）。
	GetOrCreate(ctx context.Context, userID string) *model.Profile
}

// Snapshot はある時点の認証状態を表す。
// Sessionがnilの場合は未認証。ProfileはSessionが有効でも取得失敗時はnilになりうる。
type Snapshot struct {
	Session *model.Session
	User    *model.User
	Profile *model.Profile
}

// SignedIn はサインイン済みの状態かを返す。
func (s Snapshot) SignedIn() bool {
	return s.Session != nil
}

// Config はManagerの設定。
type Config struct {
	// ProvisionDelay はサインイン直後、プロフィール取得を開始するまでの待機時間。
	// 認証直後のレプリケーション遅延・トリガー未完了の間に空振りするのを避ける。
	ProvisionDelay time.Duration
	// FetchTimeout は1回の整合処理のタイムアウト。ゼロ値の場合は10秒。
	FetchTimeout time.Duration
}

// Manager は認証イベントを単一のゴルーチンで直列に処理し、
// セッション・ユーザー・プロフィールのスナップショットを維持する。
// イベントの並行処理による整合性崩れを構造的に防ぐため、
// 整合処理は必ず消費ループ内で1件ずつ実行される。
type Manager struct {
	events   <-chan auth.Event
	users    repository.UserRepository
	profiles ProfileProvider
	config   Config

	mu        sync.RWMutex
	snap      Snapshot
	lastToken string // 直近に処理したアクセストークン。重複通知の抑制に使う

	startOnce sync.Once
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewManager はManagerを生成する。
func NewManager(events <-chan auth.Event, users repository.UserRepository, profiles ProfileProvider, config Config) *Manager {
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = 10 * time.Second
	}
	return &Manager{
		events:   events,
		users:    users,
		profiles: profiles,
		config:   config,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start は消費ループを開始する。2回目以降の呼び出しは無視される。
func (m *Manager) Start() {
	m.startOnce.Do(func() {
		go m.loop()
	})
}

// Stop は消費ループを停止し、終了を待つ。2回目以降の呼び出しは無視される。
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		<-m.done
	})
}

// Current は現在のスナップショットを返す。
func (m *Manager) Current() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snap
}

// RefreshProfile はスナップショットのプロフィールを再取得する。
// プロフィール更新後に呼び出し、表示中の情報を最新化する。
func (m *Manager) RefreshProfile(ctx context.Context) {
	m.mu.RLock()
	session := m.snap.Session
	m.mu.RUnlock()
	if session == nil {
		return
	}

	prof := m.profiles.GetOrCreate(ctx, session.UserID)
	if prof == nil {
		return
	}

	m.mu.Lock()
	// 再取得中にサインアウトした場合は反映しない
	if m.snap.Session != nil && m.snap.Session.UserID == prof.ID {
		m.snap.Profile = prof
	}
	m.mu.Unlock()
}

// loop は認証イベントを1件ずつ直列に処理する。
func (m *Manager) loop() {
	defer close(m.done)

	for {
		select {
		case <-m.stop:
			return
		case event := <-m.events:
			m.handle(event)
		}
	}
}

// handle は1件のイベントをスナップショットに反映する。
func (m *Manager) handle(event auth.Event) {
	switch event.Type {
	case auth.EventSignedOut:
		m.mu.Lock()
		m.snap = Snapshot{}
		m.lastToken = ""
		m.mu.Unlock()
		slog.Info("session snapshot cleared", slog.String("user_id", event.UserID))

	case auth.EventSignedIn:
		if event.Session == nil {
			return
		}
		m.mu.Lock()
		// 同一トークンの重複通知。再整合は不要
		if m.lastToken == event.Session.ID {
			m.mu.Unlock()
			slog.Debug("duplicate sign-in notification ignored", slog.String("user_id", event.UserID))
			return
		}
		m.lastToken = event.Session.ID
		m.snap.Session = event.Session
		m.mu.Unlock()

		// 直後のプロフィール取得は空振りしやすいため、少し待ってから整合する
		if !m.wait(m.config.ProvisionDelay) {
			return
		}
		m.reconcile(event.Session)

	case auth.EventTokenRefreshed:
		if event.Session == nil {
			return
		}
		m.mu.Lock()
		m.lastToken = event.Session.ID
		m.snap.Session = event.Session
		m.mu.Unlock()

	case auth.EventUserUpdated:
		m.mu.RLock()
		session := m.snap.Session
		m.mu.RUnlock()
		if event.Session != nil {
			session = event.Session
		}
		if session == nil || session.UserID != event.UserID {
			return
		}
		m.reconcile(session)
	}
}

// reconcile はユーザーとプロフィールを取得し、スナップショットを更新する。
func (m *Manager) reconcile(session *model.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), m.config.FetchTimeout)
	defer cancel()

	user, err := m.users.FindByID(ctx, session.UserID)
	if err != nil || user == nil {
		slog.Error("failed to load user for session snapshot",
			slog.String("user_id", session.UserID),
		)
		return
	}

	prof := m.profiles.GetOrCreate(ctx, session.UserID)

	m.mu.Lock()
	// 整合中にサインアウト・別セッションへの切り替えが起きた場合は反映しない
	if m.snap.Session == nil || m.snap.Session.UserID != session.UserID {
		m.mu.Unlock()
		return
	}
	m.snap.User = user
	m.snap.Profile = prof
	m.mu.Unlock()

	slog.Info("session snapshot reconciled",
		slog.String("user_id", session.UserID),
		slog.Bool("profile_loaded", prof != nil),
	)
}

// wait はdの間待機する。停止要求があった場合はfalseを返す。
func (m *Manager) wait(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-m.stop:
		return false
	case <-timer.C:
		return true
	}
}
