package model

import "time"

// AdSlot は広告の表示位置（スロット）を表す。
// 1リクエストにつきスロットごとに最大1件の広告が選択される。
type AdSlot string

const (
	// AdSlotHeader はヘッダー下のバナー枠。
	AdSlotHeader AdSlot = "header"
	// AdSlotSidebar はサイドバー枠。
	AdSlotSidebar AdSlot = "sidebar"
	// AdSlotArticleBottom は記事本文下の枠。
	AdSlotArticleBottom AdSlot = "article_bottom"
)

// IsValid はスロットが定義済みのいずれかであるかを返す。
func (s AdSlot) IsValid() bool {
	switch s {
	case AdSlotHeader, AdSlotSidebar, AdSlotArticleBottom:
		return true
	}
	return false
}

// Ad は広告ユニットを表す。
// is_activeかつstart_date <= now <= end_dateの行が配信対象となり、
// 複数候補がある場合はcreated_atが最新の1件が選択される。
type Ad struct {
	ID          string
	Slot        AdSlot
	Title       string
	ImageURL    string
	TargetURL   string
	IsActive    bool
	StartDate   time.Time
	EndDate     time.Time
	Impressions int64
	Clicks      int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
