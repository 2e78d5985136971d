package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, data, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidCredentials  = "INVALID_CREDENTIALS"
	ErrCodeEmailNotConfirmed   = "EMAIL_NOT_CONFIRMED"
	ErrCodeEmailTaken          = "EMAIL_TAKEN"
	ErrCodeWeakPassword        = "WEAK_PASSWORD"
	ErrCodeInvalidToken        = "INVALID_TOKEN"
	ErrCodeUnauthorized        = "UNAUTHORIZED"
	ErrCodeForbidden           = "FORBIDDEN"
	ErrCodeUserNotFound        = "USER_NOT_FOUND"
	ErrCodeProfileNotFound     = "PROFILE_NOT_FOUND"
	ErrCodeArticleNotFound     = "ARTICLE_NOT_FOUND"
	ErrCodeCommentNotFound     = "COMMENT_NOT_FOUND"
	ErrCodeInvalidRequest      = "INVALID_REQUEST"
	ErrCodeInvalidSlot         = "INVALID_SLOT"
	ErrCodeTableNotAllowed     = "TABLE_NOT_ALLOWED"
	ErrCodeUniqueViolation     = "UNIQUE_VIOLATION"
	ErrCodeForeignKeyViolation = "FOREIGN_KEY_VIOLATION"
	ErrCodeNotNullViolation    = "NOT_NULL_VIOLATION"
	ErrCodePermissionDenied    = "PERMISSION_DENIED"
	ErrCodeRowNotFound         = "ROW_NOT_FOUND"
)

// NewInvalidCredentialsError は認証情報不正エラーを生成する。
// メールアドレスの存在有無を推測されないよう、メッセージは共通化する。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewEmailNotConfirmedError はメール未確認エラーを生成する。
func NewEmailNotConfirmedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailNotConfirmed,
		Message:  "メールアドレスの確認が完了していません。",
		Category: "auth",
		Action:   "登録時に送信された確認メールのリンクを開いてください。",
	}
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  "このメールアドレスは既に登録されています。",
		Category: "auth",
		Action:   "ログインするか、別のメールアドレスで登録してください。",
	}
}

// NewWeakPasswordError はパスワード強度不足エラーを生成する。
func NewWeakPasswordError() *APIError {
	return &APIError{
		Code:     ErrCodeWeakPassword,
		Message:  "パスワードは8文字以上で入力してください。",
		Category: "validation",
		Action:   "より長いパスワードを設定してください。",
	}
}

// NewInvalidTokenError は無効・期限切れトークンエラーを生成する。
func NewInvalidTokenError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidToken,
		Message:  "リンクが無効か、有効期限が切れています。",
		Category: "auth",
		Action:   "確認メールまたはリセットメールを再度リクエストしてください。",
	}
}

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "管理者に権限の付与を依頼してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewProfileNotFoundError はプロフィール未検出エラーを生成する。
func NewProfileNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeProfileNotFound,
		Message:  "プロフィールが見つかりません。",
		Category: "data",
		Action:   "時間をおいて再度お試しください。",
	}
}

// NewArticleNotFoundError は記事未検出エラーを生成する。
func NewArticleNotFoundError(articleID string) *APIError {
	return &APIError{
		Code:     ErrCodeArticleNotFound,
		Message:  fmt.Sprintf("指定された記事が見つかりません: %s", articleID),
		Category: "data",
		Action:   "記事IDまたはスラッグを確認してください。",
	}
}

// NewCommentNotFoundError はコメント未検出エラーを生成する。
func NewCommentNotFoundError(commentID string) *APIError {
	return &APIError{
		Code:     ErrCodeCommentNotFound,
		Message:  fmt.Sprintf("指定されたコメントが見つかりません: %s", commentID),
		Category: "data",
		Action:   "コメントIDを確認してください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewInvalidSlotError は未定義の広告スロット指定エラーを生成する。
func NewInvalidSlotError(slot string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidSlot,
		Message:  fmt.Sprintf("無効な広告スロットです: %s", slot),
		Category: "validation",
		Action:   "header、sidebar、article_bottom のいずれかを指定してください。",
	}
}

// NewTableNotAllowedError は許可リスト外のテーブル操作エラーを生成する。
func NewTableNotAllowedError(table string) *APIError {
	return &APIError{
		Code:     ErrCodeTableNotAllowed,
		Message:  fmt.Sprintf("このテーブルへの操作は許可されていません: %s", table),
		Category: "validation",
		Action:   "操作可能なテーブル名を確認してください。",
	}
}

// NewUniqueViolationError は一意制約違反エラーを生成する。
func NewUniqueViolationError() *APIError {
	return &APIError{
		Code:     ErrCodeUniqueViolation,
		Message:  "同じ値のレコードが既に存在します。",
		Category: "data",
		Action:   "重複しない値を指定してください。",
	}
}

// NewForeignKeyViolationError は外部キー制約違反エラーを生成する。
func NewForeignKeyViolationError() *APIError {
	return &APIError{
		Code:     ErrCodeForeignKeyViolation,
		Message:  "関連するレコードが存在しないため操作できません。",
		Category: "data",
		Action:   "参照先のレコードを確認してください。",
	}
}

// NewNotNullViolationError は必須項目欠落エラーを生成する。
func NewNotNullViolationError() *APIError {
	return &APIError{
		Code:     ErrCodeNotNullViolation,
		Message:  "必須項目が入力されていません。",
		Category: "data",
		Action:   "すべての必須項目を入力してください。",
	}
}

// NewPermissionDeniedError はデータベース権限エラーを生成する。
func NewPermissionDeniedError() *APIError {
	return &APIError{
		Code:     ErrCodePermissionDenied,
		Message:  "データベースの権限によりアクセスが拒否されました。",
		Category: "data",
		Action:   "管理者に問い合わせてください。",
	}
}

// NewRowNotFoundError は対象行未検出エラーを生成する。
func NewRowNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeRowNotFound,
		Message:  "対象のレコードが見つかりません。",
		Category: "data",
		Action:   "IDを確認してください。",
	}
}
