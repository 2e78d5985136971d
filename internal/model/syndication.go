package model

import "time"

// SyndicationSource は外部フィードからの記事取り込み元を表す。
// 取り込まれた記事は下書きとして保存され、編集者の公開操作を待つ。
type SyndicationSource struct {
	ID            string
	FeedURL       string
	CategoryID    string
	AuthorID      string
	IsActive      bool
	LastFetchedAt *time.Time
	CreatedAt     time.Time
}
