package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func newTestAuthenticator(config GoogleConfig) *GoogleAuthenticator {
	var buf bytes.Buffer
	if config.ClientID == "" {
		config.ClientID = "client-1"
	}
	return NewGoogleAuthenticator(config, nil, newTestLogger(&buf))
}

func TestLoginURL_ContainsRequiredParams(t *testing.T) {
	g := newTestAuthenticator(GoogleConfig{
		ClientID:    "client-1",
		RedirectURL: "http://127.0.0.1:8910/redirect",
	})

	loginURL := g.LoginURL("state-abc")

	parsed, err := url.Parse(loginURL)
	if err != nil {
		t.Fatalf("LoginURLのパースに失敗した: %v", err)
	}
	q := parsed.Query()

	if q.Get("client_id") != "client-1" {
		t.Errorf("client_id = %q, want client-1", q.Get("client_id"))
	}
	if q.Get("redirect_uri") != "http://127.0.0.1:8910/redirect" {
		t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
	}
	if q.Get("response_type") != "code" {
		t.Errorf("response_type = %q, want code", q.Get("response_type"))
	}
	if q.Get("state") != "state-abc" {
		t.Errorf("state = %q, want state-abc", q.Get("state"))
	}
	scope := q.Get("scope")
	for _, s := range []string{"openid", "email", "profile"} {
		if !strings.Contains(scope, s) {
			t.Errorf("scopeに %s が含まれるべき: %q", s, scope)
		}
	}
}

func TestExchangeCode_ReturnsIDToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("HTTPメソッド = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("フォームのパースに失敗した: %v", err)
		}
		if r.PostFormValue("code") != "code-1" {
			t.Errorf("code = %q, want code-1", r.PostFormValue("code"))
		}
		if r.PostFormValue("grant_type") != "authorization_code" {
			t.Errorf("grant_type = %q, want authorization_code", r.PostFormValue("grant_type"))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "access-1",
			"token_type":   "Bearer",
			"expires_in":   3600,
			"id_token":     "idtoken-1",
		})
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenURL: server.URL})

	exchange, err := g.ExchangeCode(context.Background(), "code-1")
	if err != nil {
		t.Fatalf("ExchangeCode がエラーを返した: %v", err)
	}
	if exchange.IDToken != "idtoken-1" {
		t.Errorf("IDToken = %q, want idtoken-1", exchange.IDToken)
	}
	if exchange.AccessToken != "access-1" {
		t.Errorf("AccessToken = %q, want access-1", exchange.AccessToken)
	}
}

func TestExchangeCode_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenURL: server.URL})

	_, err := g.ExchangeCode(context.Background(), "bad-code")
	if err == nil {
		t.Fatal("トークン交換失敗時にエラーが返されるべき")
	}
}

func TestExchangeCode_MissingIDToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-1"}`))
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenURL: server.URL})

	_, err := g.ExchangeCode(context.Background(), "code-1")
	if err == nil {
		t.Fatal("id_token欠落時にエラーが返されるべき")
	}
}

func TestParseToken_MapsClaims(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("id_token"); got != "idtoken-1" {
			t.Errorf("id_token = %q, want idtoken-1", got)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"sub":     "sub-1",
			"email":   "taro@example.com",
			"name":    "Taro",
			"picture": "https://lh3.example.com/photo.jpg",
		})
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenInfoURL: server.URL})

	result, err := g.ParseToken(context.Background(), "idtoken-1")
	if err != nil {
		t.Fatalf("ParseToken がエラーを返した: %v", err)
	}

	if result.Sub != "sub-1" {
		t.Errorf("Sub = %q, want sub-1", result.Sub)
	}
	if result.Email != "taro@example.com" {
		t.Errorf("Email = %q, want taro@example.com", result.Email)
	}
	if result.Name != "Taro" {
		t.Errorf("Name = %q, want Taro", result.Name)
	}
	if result.IDToken != "idtoken-1" {
		t.Errorf("IDToken = %q, want idtoken-1", result.IDToken)
	}
}

func TestParseToken_ErrorStatus_IsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_token"}`))
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenInfoURL: server.URL})

	_, err := g.ParseToken(context.Background(), "bad-token")
	if err == nil {
		t.Fatal("無効なトークンでエラーが返されるべき")
	}

	var parseErr *TokenParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("TokenParseError であるべき: got %T", err)
	}
}

func TestParseToken_InvalidJSON_IsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenInfoURL: server.URL})

	_, err := g.ParseToken(context.Background(), "idtoken-1")
	if err == nil {
		t.Fatal("不正JSONレスポンスでエラーが返されるべき")
	}

	var parseErr *TokenParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("TokenParseError であるべき: got %T", err)
	}
}

func TestParseToken_EmptySub_IsParseError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"email":"taro@example.com"}`))
	}))
	defer server.Close()

	g := newTestAuthenticator(GoogleConfig{TokenInfoURL: server.URL})

	_, err := g.ParseToken(context.Background(), "idtoken-1")
	if err == nil {
		t.Fatal("subクレーム欠落時にエラーが返されるべき")
	}

	var parseErr *TokenParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("TokenParseError であるべき: got %T", err)
	}
}

func TestParseToken_Unreachable_IsUnreachableError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // 接続拒否を発生させる

	g := newTestAuthenticator(GoogleConfig{TokenInfoURL: server.URL})

	_, err := g.ParseToken(context.Background(), "idtoken-1")
	if err == nil {
		t.Fatal("到達不能時にエラーが返されるべき")
	}

	var unreachableErr *TokenUnreachableError
	if !errors.As(err, &unreachableErr) {
		t.Errorf("TokenUnreachableError であるべき: got %T", err)
	}
}
