// Package security はアプリケーションのセキュリティ機能を提供する。
//
// ContentSanitizerService は記事本文・コメントのHTMLコンテンツをサニタイズし、
// XSS攻撃などのセキュリティリスクから読者を保護する。
// bluemondayライブラリを使用した許可リストベースのポリシーで、
// 安全なタグと属性のみを通過させる。
package security

import (
	"net/url"

	"github.com/microcosm-cc/bluemonday"
)

// ContentSanitizerService はHTMLコンテンツのサニタイズ機能のインターフェースを定義する。
// 記事・コメントの保存前に使用される。
type ContentSanitizerService interface {
	// SanitizeArticle は記事本文HTMLをサニタイズして安全なHTMLを返す。
	// 見出し・画像・リンクを含むリッチな許可リストを適用する。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeArticle(rawHTML string) string

	// SanitizeComment はコメント本文をサニタイズして安全なHTMLを返す。
	// 記事より狭い許可リスト（段落・強調・リンクのみ）を適用する。
	SanitizeComment(rawHTML string) string
}

// contentSanitizer はContentSanitizerServiceの実装。
// bluemondayのポリシーを保持し、スレッドセーフにサニタイズ処理を行う。
type contentSanitizer struct {
	articlePolicy *bluemonday.Policy
	commentPolicy *bluemonday.Policy
}

// NewContentSanitizer はContentSanitizerServiceの新しいインスタンスを生成する。
// 初期化時にbluemondayのカスタムポリシーを構築する。
// 記事ポリシーの内容:
//   - 許可タグ: h2, h3, h4, p, br, a, ul, ol, li, blockquote, pre, code, strong, em, img, figure, figcaption
//   - 禁止タグ: script, iframe, style および全てのon*イベント属性
//   - imgのsrc属性: httpsスキームのみ許可
//   - aタグ: target="_blank" と rel="noopener noreferrer" を自動付与
//
// コメントポリシーは p, br, a, strong, em, code のみを許可する。
func NewContentSanitizer() *contentSanitizer {
	article := bluemonday.NewPolicy()

	// script, iframe, style等は許可リストに含めないことで自動的に除去される
	// on*イベント属性はbluemondayのデフォルトで許可されないため除去される
	article.AllowElements(
		"h2", "h3", "h4",
		"p", "br", "ul", "ol", "li",
		"blockquote", "pre", "code",
		"strong", "em",
		"figure", "figcaption",
	)

	// aタグ:
	// - href属性を許可
	// - 相対URLは不許可（外部取り込みコンテンツには不適切）
	// - target="_blank"を全リンクに強制付与
	// - rel="noreferrer noopener"を強制付与
	article.AllowAttrs("href").OnElements("a")
	article.AllowRelativeURLs(false)
	article.AddTargetBlankToFullyQualifiedLinks(true)
	article.RequireNoReferrerOnLinks(true)

	// imgタグ:
	// - src属性はhttpsスキームのみ許可（http, javascript, data等は拒否）
	// - alt属性を許可（アクセシビリティ確保）
	article.AllowAttrs("src").OnElements("img")
	article.AllowAttrs("alt").OnElements("img")
	article.AllowURLSchemeWithCustomPolicy("https", func(u *url.URL) bool {
		return true
	})

	comment := bluemonday.NewPolicy()
	comment.AllowElements("p", "br", "strong", "em", "code")
	comment.AllowAttrs("href").OnElements("a")
	comment.AllowRelativeURLs(false)
	comment.AddTargetBlankToFullyQualifiedLinks(true)
	comment.RequireNoReferrerOnLinks(true)

	return &contentSanitizer{
		articlePolicy: article,
		commentPolicy: comment,
	}
}

// SanitizeArticle は記事本文HTMLをサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeArticle(rawHTML string) string {
	return s.articlePolicy.Sanitize(rawHTML)
}

// SanitizeComment はコメント本文をサニタイズして安全なHTMLを返す。
func (s *contentSanitizer) SanitizeComment(rawHTML string) string {
	return s.commentPolicy.Sanitize(rawHTML)
}
