package app

import (
	"context"
	"fmt"
	"time"
)

// runLogout はサインアウトする。
func (a *App) runLogout() error {
	a.manager.SignOut()
	fmt.Fprintln(a.out, "サインアウトしました。")
	return nil
}

// runWhoami は現在のユーザーを表示する。
func (a *App) runWhoami() error {
	user, err := a.requireUser()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "ID:         %s\n", user.ID)
	fmt.Fprintf(a.out, "ExternalID: %s\n", user.ExternalID)
	fmt.Fprintf(a.out, "Email:      %s\n", user.Email)
	fmt.Fprintf(a.out, "Role:       %s\n", user.Role)
	fmt.Fprintf(a.out, "CreatedAt:  %s\n", user.CreatedAt.Format(time.RFC3339))
	return nil
}

// runRefresh はユーザー情報をバックエンドから再取得して表示する。
// 再取得に失敗しても現在のセッションは維持される。
func (a *App) runRefresh(ctx context.Context) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	a.manager.Refresh(ctx)

	user := a.manager.CurrentUser()
	fmt.Fprintf(a.out, "ユーザー情報を更新しました: %s (%s)\n", user.Email, user.Role)
	return nil
}

// runAppraisers は査定士として登録を許可されたIDの一覧を表示する。
// このリストの強制はサーバー側で行われ、ここでの表示は確認用にすぎない。
func (a *App) runAppraisers(ctx context.Context) error {
	if _, err := a.requireUser(); err != nil {
		return err
	}

	ids, err := a.client.GetAppraiserWhitelist(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		fmt.Fprintln(a.out, "許可リストは空です。")
		return nil
	}

	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}
