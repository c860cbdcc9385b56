package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ErrLoginCancelled はユーザーがプロバイダーの同意画面でログインを
// キャンセルしたことを表す。
var ErrLoginCancelled = errors.New("ログインがキャンセルされました")

// callbackResult はリダイレクトで受け取った結果。
type callbackResult struct {
	code string
	err  error
}

// CallbackServer はOAuthリダイレクトを受け取るローカルHTTPサーバー。
// モバイルアプリのリダイレクトURIに相当するもので、1回のログインにつき
// 1インスタンスを生成し、最初のリダイレクトだけを受理する。
type CallbackServer struct {
	state    string
	server   *http.Server
	listener net.Listener
	resultCh chan callbackResult
	once     sync.Once
}

// NewCallbackServer はCallbackServerを生成し、127.0.0.1の指定ポートで待ち受けを開始する。
// portに0を指定した場合は空きポートが自動割り当てされる。
// CSRF対策のstateはインスタンスごとにランダム生成される。
func NewCallbackServer(port int) (*CallbackServer, error) {
	listener, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("コールバック用ポートの待ち受けに失敗しました: %w", err)
	}

	cs := &CallbackServer{
		state:    uuid.NewString(),
		listener: listener,
		resultCh: make(chan callbackResult, 1),
	}

	r := chi.NewRouter()
	r.Get("/redirect", cs.handleRedirect)

	cs.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		// Shutdown/Close後のServeはErrServerClosedを返すため無視する
		_ = cs.server.Serve(listener)
	}()

	return cs, nil
}

// State はこのログイン試行に紐づくstateパラメータを返す。
func (cs *CallbackServer) State() string {
	return cs.state
}

// RedirectURL は認証リクエストに設定するリダイレクトURLを返す。
func (cs *CallbackServer) RedirectURL() string {
	return fmt.Sprintf("http://%s/redirect", cs.listener.Addr().String())
}

// Wait はリダイレクトの到着を待ち、認可コードを返す。
// ユーザーがキャンセルした場合はErrLoginCancelledを返す。
func (cs *CallbackServer) Wait(ctx context.Context) (string, error) {
	select {
	case result := <-cs.resultCh:
		return result.code, result.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Shutdown はサーバーを停止する。
func (cs *CallbackServer) Shutdown(ctx context.Context) error {
	return cs.server.Shutdown(ctx)
}

// deliver は最初の結果のみをチャネルに送る。
// 2回目以降のリダイレクトは無視される。
func (cs *CallbackServer) deliver(result callbackResult) {
	cs.once.Do(func() {
		cs.resultCh <- result
	})
}

// handleRedirect はOAuthリダイレクトを処理する。
// stateの不一致、errorパラメータ、codeの欠落をそれぞれ判別して通知する。
func (cs *CallbackServer) handleRedirect(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		if errCode == "access_denied" {
			cs.deliver(callbackResult{err: ErrLoginCancelled})
		} else {
			cs.deliver(callbackResult{err: fmt.Errorf("プロバイダーがエラーを返しました: %s", errCode)})
		}
		writeCallbackPage(w, http.StatusOK, "ログインは完了しませんでした。ターミナルに戻ってください。")
		return
	}

	if query.Get("state") != cs.state {
		cs.deliver(callbackResult{err: errors.New("stateパラメータが一致しません")})
		writeCallbackPage(w, http.StatusBadRequest, "不正なリクエストです。")
		return
	}

	code := query.Get("code")
	if code == "" {
		cs.deliver(callbackResult{err: errors.New("codeパラメータがありません")})
		writeCallbackPage(w, http.StatusBadRequest, "不正なリクエストです。")
		return
	}

	cs.deliver(callbackResult{code: code})
	writeCallbackPage(w, http.StatusOK, "ログインが完了しました。ターミナルに戻ってください。")
}

// writeCallbackPage はブラウザに表示する簡易ページを出力する。
func writeCallbackPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", message)
}
