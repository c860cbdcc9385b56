package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/appraise/internal/auth"
	"github.com/hitoshi/appraise/internal/model"
)

// runLogin はブラウザ経由のGoogleログインフローを実行する。
// ローカルのコールバックサーバーでリダイレクトを受け、認可コードを
// IDトークンに交換し、tokeninfoでクレームを確認した上でサインインする。
func (a *App) runLogin(ctx context.Context) error {
	if a.manager.IsAuthenticated() {
		user := a.manager.CurrentUser()
		fmt.Fprintf(a.out, "既に %s としてログインしています。\n", user.Email)
		return nil
	}

	if a.cfg.GoogleClientID == "" {
		return model.NewAuthFailedError("GOOGLE_CLIENT_IDが設定されていません")
	}

	callback, err := auth.NewCallbackServer(a.cfg.OAuthRedirectPort)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := callback.Shutdown(shutdownCtx); err != nil {
			slog.Warn("コールバックサーバーの停止に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}()

	authenticator := auth.NewGoogleAuthenticator(auth.GoogleConfig{
		ClientID:     a.cfg.GoogleClientID,
		ClientSecret: a.cfg.GoogleClientSecret,
		RedirectURL:  callback.RedirectURL(),
	}, nil, slog.Default())

	fmt.Fprintln(a.out, "以下のURLをブラウザで開き、Googleアカウントでログインしてください:")
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "  "+authenticator.LoginURL(callback.State()))
	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "ブラウザでの認証完了を待っています...")

	code, err := callback.Wait(ctx)
	if err != nil {
		if err == auth.ErrLoginCancelled {
			return model.NewLoginCancelledError()
		}
		return err
	}

	exchange, err := authenticator.ExchangeCode(ctx, code)
	if err != nil {
		return model.NewAuthFailedError(err.Error())
	}

	result, err := authenticator.ParseToken(ctx, exchange.IDToken)
	if err != nil {
		return model.NewAuthFailedError(err.Error())
	}

	if err := a.manager.SignIn(ctx, result); err != nil {
		return err
	}

	user := a.manager.CurrentUser()
	fmt.Fprintf(a.out, "ログインしました: %s (%s)\n", user.Email, user.Role)
	return nil
}
