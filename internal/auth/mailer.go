package auth

import (
	"context"
	"log/slog"
)

// Mailer は認証フローで使用するメール送信のインターフェース。
type Mailer interface {
	// SendSignupConfirmation はメールアドレス確認メールを送信する。
	SendSignupConfirmation(ctx context.Context, email, link string) error
	// SendPasswordReset はパスワードリセットメールを送信する。
	SendPasswordReset(ctx context.Context, email, link string) error
	// SendEmailChangeConfirmation はメールアドレス変更確認メールを変更後のアドレスに送信する。
	SendEmailChangeConfirmation(ctx context.Context, email, link string) error
}

// LogMailer は実際のメール送信を行わず、確認リンクをログに出力するMailer実装。
// 開発環境およびSMTP未設定の環境で使用する。
type LogMailer struct{}

// NewLogMailer はLogMailerを生成する。
func NewLogMailer() *LogMailer {
	return &LogMailer{}
}

// SendSignupConfirmation は確認リンクをログに出力する。
func (m *LogMailer) SendSignupConfirmation(ctx context.Context, email, link string) error {
	slog.Info("signup confirmation mail",
		slog.String("email", email),
		slog.String("link", link),
	)
	return nil
}

// SendPasswordReset はリセットリンクをログに出力する。
func (m *LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	slog.Info("password reset mail",
		slog.String("email", email),
		slog.String("link", link),
	)
	return nil
}

// SendEmailChangeConfirmation は変更確認リンクをログに出力する。
func (m *LogMailer) SendEmailChangeConfirmation(ctx context.Context, email, link string) error {
	slog.Info("email change confirmation mail",
		slog.String("email", email),
		slog.String("link", link),
	)
	return nil
}

// compile-time interface check
var _ Mailer = (*LogMailer)(nil)
