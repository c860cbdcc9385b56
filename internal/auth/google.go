// Package auth はGoogle OAuthによる外部ID連携を提供する。
// アプリケーションがユーザーのGoogle認証情報を扱うことなく、
// 検証済みのIDクレームを取得するためのアダプター。
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultGoogleAuthURL      = "https://accounts.google.com/o/oauth2/auth"
	defaultGoogleTokenURL     = "https://oauth2.googleapis.com/token"
	defaultGoogleTokenInfoURL = "https://www.googleapis.com/oauth2/v3/tokeninfo"
)

// GoogleConfig はGoogle OAuthプロバイダーの設定。
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	// テスト用にオーバーライド可能なURL
	AuthURL      string
	TokenURL     string
	TokenInfoURL string
}

// GoogleAuthenticator はGoogle OAuth 2.0による外部ID連携を提供する。
// トークンの真正性の検証はGoogleのtokeninfoエンドポイントに全面的に委譲しており、
// 署名・audienceの追加検証は行わない。
type GoogleAuthenticator struct {
	config     GoogleConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGoogleAuthenticator はGoogleAuthenticatorを生成する。
// httpClientがnilの場合はhttp.DefaultClientが使用される。
func NewGoogleAuthenticator(config GoogleConfig, httpClient *http.Client, logger *slog.Logger) *GoogleAuthenticator {
	if config.AuthURL == "" {
		config.AuthURL = defaultGoogleAuthURL
	}
	if config.TokenURL == "" {
		config.TokenURL = defaultGoogleTokenURL
	}
	if config.TokenInfoURL == "" {
		config.TokenInfoURL = defaultGoogleTokenInfoURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GoogleAuthenticator{config: config, httpClient: httpClient, logger: logger}
}

// GoogleAuthResult はtokeninfoで確認済みのIDクレームの束。
// サインイン処理で1回だけ消費され、永続化されない。
type GoogleAuthResult struct {
	IDToken     string
	AccessToken string
	Sub         string
	Email       string
	Name        string
	Picture     string
}

// TokenUnreachableError はtokeninfoエンドポイントへの到達失敗を表す。
// ネットワーク起因の失敗であり、再試行で回復する可能性がある。
type TokenUnreachableError struct {
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *TokenUnreachableError) Error() string {
	return fmt.Sprintf("tokeninfoエンドポイントに到達できませんでした: %v", e.Err)
}

// Unwrap は原因エラーを返す。
func (e *TokenUnreachableError) Unwrap() error {
	return e.Err
}

// TokenParseError はtokeninfoレスポンスからクレームを解釈できなかったことを表す。
// トークン自体が無効な場合もここに含まれ、再試行では回復しない。
type TokenParseError struct {
	Reason string
}

// Error はerrorインターフェースを実装する。
func (e *TokenParseError) Error() string {
	return fmt.Sprintf("IDトークンのクレームを解釈できませんでした: %s", e.Reason)
}

// LoginURL はGoogle OAuthの認証URLを生成する。
// スコープにはopenid, email, profileを含む。
func (g *GoogleAuthenticator) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {g.config.ClientID},
		"redirect_uri":  {g.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {"openid email profile"},
		"state":         {state},
	}
	return g.config.AuthURL + "?" + params.Encode()
}

// googleTokenResponse はGoogleのトークンエンドポイントのレスポンス。
type googleTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	IDToken     string `json:"id_token"`
}

// TokenExchange は認可コード交換の結果。
type TokenExchange struct {
	IDToken     string
	AccessToken string
}

// ExchangeCode は認可コードをトークンに交換し、IDトークンを取得する。
func (g *GoogleAuthenticator) ExchangeCode(ctx context.Context, code string) (*TokenExchange, error) {
	data := url.Values{
		"code":          {code},
		"client_id":     {g.config.ClientID},
		"client_secret": {g.config.ClientSecret},
		"redirect_uri":  {g.config.RedirectURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token exchange failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp googleTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return nil, fmt.Errorf("empty id token in response")
	}

	return &TokenExchange{
		IDToken:     tokenResp.IDToken,
		AccessToken: tokenResp.AccessToken,
	}, nil
}

// tokenInfoResponse はtokeninfoエンドポイントのレスポンス。
type tokenInfoResponse struct {
	Sub     string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// ParseToken はIDトークンをtokeninfoエンドポイントで検証し、クレームを取得する。
// ネットワーク到達失敗はTokenUnreachableError、クレームの解釈失敗は
// TokenParseErrorを返すため、呼び出し元はログ出力や再試行の判断を分けられる。
func (g *GoogleAuthenticator) ParseToken(ctx context.Context, idToken string) (*GoogleAuthResult, error) {
	reqURL := g.config.TokenInfoURL + "?id_token=" + url.QueryEscape(idToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create tokeninfo request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		g.logger.Error("tokeninfoエンドポイントへのリクエストに失敗しました",
			slog.String("error", err.Error()),
		)
		return nil, &TokenUnreachableError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TokenUnreachableError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("tokeninfoエンドポイントがエラーステータスを返しました",
			slog.Int("http_status", resp.StatusCode),
		)
		return nil, &TokenParseError{Reason: fmt.Sprintf("tokeninfoがステータス %d を返しました", resp.StatusCode)}
	}

	var info tokenInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &TokenParseError{Reason: "レスポンスJSONのパースに失敗しました"}
	}

	if info.Sub == "" {
		return nil, &TokenParseError{Reason: "subクレームが空です"}
	}

	return &GoogleAuthResult{
		IDToken:     idToken,
		AccessToken: idToken,
		Sub:         info.Sub,
		Email:       info.Email,
		Name:        info.Name,
		Picture:     info.Picture,
	}, nil
}
