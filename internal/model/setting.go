package model

import "time"

// Setting はサイト全体の設定項目（キーバリュー）を表す。
type Setting struct {
	Key       string
	Value     string
	UpdatedAt time.Time
}

// HeaderSummary はヘッダー表示用のサマリー情報を表す。
// 最新ヘッドラインとお知らせを1回のリクエストで返すための集約モデル。
type HeaderSummary struct {
	Headlines []Article
	Notice    string
}
