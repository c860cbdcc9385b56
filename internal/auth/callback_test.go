package auth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"
)

func newTestCallbackServer(t *testing.T) *CallbackServer {
	t.Helper()
	cs, err := NewCallbackServer(0) // 空きポートを自動割り当て
	if err != nil {
		t.Fatalf("NewCallbackServer がエラーを返した: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		cs.Shutdown(ctx)
	})
	return cs
}

func redirect(t *testing.T, cs *CallbackServer, params url.Values) *http.Response {
	t.Helper()
	resp, err := http.Get(cs.RedirectURL() + "?" + params.Encode())
	if err != nil {
		t.Fatalf("リダイレクトリクエストに失敗した: %v", err)
	}
	resp.Body.Close()
	return resp
}

func TestCallbackServer_RedirectURL(t *testing.T) {
	cs := newTestCallbackServer(t)

	if !strings.HasPrefix(cs.RedirectURL(), "http://127.0.0.1:") {
		t.Errorf("RedirectURL = %q, want http://127.0.0.1:<port>/...", cs.RedirectURL())
	}
	if !strings.HasSuffix(cs.RedirectURL(), "/redirect") {
		t.Errorf("RedirectURLは/redirectで終わるべき: %q", cs.RedirectURL())
	}
}

func TestCallbackServer_DeliversCode(t *testing.T) {
	cs := newTestCallbackServer(t)

	resp := redirect(t, cs, url.Values{
		"state": {cs.State()},
		"code":  {"code-1"},
	})
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ステータス = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	code, err := cs.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait がエラーを返した: %v", err)
	}
	if code != "code-1" {
		t.Errorf("code = %q, want code-1", code)
	}
}

func TestCallbackServer_RejectsStateMismatch(t *testing.T) {
	cs := newTestCallbackServer(t)

	resp := redirect(t, cs, url.Values{
		"state": {"wrong-state"},
		"code":  {"code-1"},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("ステータス = %d, want 400", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cs.Wait(ctx)
	if err == nil {
		t.Fatal("state不一致でエラーが返されるべき")
	}
}

func TestCallbackServer_AccessDenied_IsCancelled(t *testing.T) {
	cs := newTestCallbackServer(t)

	redirect(t, cs, url.Values{
		"error": {"access_denied"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cs.Wait(ctx)
	if !errors.Is(err, ErrLoginCancelled) {
		t.Errorf("ErrLoginCancelled であるべき: got %v", err)
	}
}

func TestCallbackServer_MissingCode(t *testing.T) {
	cs := newTestCallbackServer(t)

	redirect(t, cs, url.Values{
		"state": {cs.State()},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := cs.Wait(ctx)
	if err == nil {
		t.Fatal("code欠落時にエラーが返されるべき")
	}
}

func TestCallbackServer_IgnoresSecondRedirect(t *testing.T) {
	cs := newTestCallbackServer(t)

	redirect(t, cs, url.Values{
		"state": {cs.State()},
		"code":  {"first-code"},
	})
	// 2回目のリダイレクトは無視される
	redirect(t, cs, url.Values{
		"state": {cs.State()},
		"code":  {"second-code"},
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	code, err := cs.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait がエラーを返した: %v", err)
	}
	if code != "first-code" {
		t.Errorf("code = %q, want first-code", code)
	}
}

func TestCallbackServer_WaitCancelled(t *testing.T) {
	cs := newTestCallbackServer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // 即座にキャンセル

	_, err := cs.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("context.Canceled エラーであるべき: got %v", err)
	}
}

func TestCallbackServer_StateIsUniquePerInstance(t *testing.T) {
	cs1 := newTestCallbackServer(t)
	cs2 := newTestCallbackServer(t)

	if cs1.State() == "" {
		t.Fatal("stateは空であってはならない")
	}
	if cs1.State() == cs2.State() {
		t.Error("stateはインスタンスごとに異なるべき")
	}
}
