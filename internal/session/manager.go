package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/appraise/internal/api"
	"github.com/hitoshi/appraise/internal/auth"
	"github.com/hitoshi/appraise/internal/model"
)

// Status はセッションの状態を表す。
type Status int

const (
	// StatusUnknown は起動時の復元が完了していない状態。
	StatusUnknown Status = iota
	// StatusUnauthenticated は未ログイン状態。
	StatusUnauthenticated
	// StatusAuthenticated はログイン済み状態。
	StatusAuthenticated
)

// String はStatusの文字列表現を返す。
func (s Status) String() string {
	switch s {
	case StatusUnauthenticated:
		return "unauthenticated"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// APIClient はManagerが必要とするAPIクライアント操作のインターフェース。
type APIClient interface {
	SetAuthToken(token string)
	ClearAuthToken()
	GetUser(ctx context.Context, externalID string) (*model.User, error)
	RegisterUser(ctx context.Context, req model.RegisterUserRequest) (*model.User, error)
}

// Manager は現在のユーザーと認証状態を所有するセッション管理。
// 全ての遷移はミューテックスで直列化されており、サインインとサインアウトが
// 同時に要求されても交錯しない。
type Manager struct {
	api    APIClient
	store  CredentialStore
	logger *slog.Logger

	mu     sync.Mutex
	status Status
	token  string
	user   *model.User
}

// NewManager はManagerを生成する。状態はStatusUnknownから始まる。
func NewManager(apiClient APIClient, store CredentialStore, logger *slog.Logger) *Manager {
	return &Manager{
		api:    apiClient,
		store:  store,
		logger: logger,
		status: StatusUnknown,
	}
}

// Load は起動時の復元遷移を行う。
// 保存済みのトークンとユーザーのペアが両方存在すればトークンをAPIクライアントに
// 設定してAuthenticatedに遷移する。失敗時はログに残してUnauthenticatedに
// 遷移する（安全側のデフォルト）。ネットワークでの再検証は行わない。
func (m *Manager) Load() {
	m.mu.Lock()
	defer m.mu.Unlock()

	creds, err := m.store.Load()
	if err != nil {
		m.logger.Warn("保存済み認証情報の読み込みに失敗したため未ログインとして扱います",
			slog.String("error", err.Error()),
		)
		m.becomeUnauthenticatedLocked()
		return
	}
	if creds == nil {
		m.becomeUnauthenticatedLocked()
		return
	}

	if tokenExpired(creds.AuthToken) {
		m.logger.Info("保存済みトークンの有効期限が切れているため破棄します")
		if err := m.store.Clear(); err != nil {
			m.logger.Warn("期限切れ認証情報の削除に失敗しました",
				slog.String("error", err.Error()),
			)
		}
		m.becomeUnauthenticatedLocked()
		return
	}

	m.api.SetAuthToken(creds.AuthToken)
	m.token = creds.AuthToken
	m.user = creds.User
	m.status = StatusAuthenticated
	m.logger.Info("保存済みセッションを復元しました",
		slog.String("external_id", creds.User.ExternalID),
		slog.String("role", string(creds.User.Role)),
	)
}

// SignIn はサインイン遷移を行う。
// IDトークンをAPIクライアントに設定した上でsubによるユーザー取得を試み、
// 404の場合のみ登録へフォールバックする。得られたユーザーとトークンは
// メモリ上の遷移より先に永続化される。途中で失敗した場合はトークンを
// ロールバックし、状態はUnauthenticatedのまま、エラーを呼び出し元に返す。
func (m *Manager) SignIn(ctx context.Context, result *auth.GoogleAuthResult) error {
	if result == nil || result.IDToken == "" || result.Sub == "" {
		return fmt.Errorf("認証結果が不完全です")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.api.SetAuthToken(result.IDToken)

	user, err := m.api.GetUser(ctx, result.Sub)
	if api.IsNotFound(err) {
		m.logger.Info("未登録ユーザーのため新規登録します",
			slog.String("external_id", result.Sub),
		)
		user, err = m.api.RegisterUser(ctx, model.RegisterUserRequest{
			ExternalID: result.Sub,
			Email:      result.Email,
		})
	}
	if err != nil {
		m.rollbackLocked()
		return fmt.Errorf("サインインに失敗しました: %w", err)
	}

	if err := m.store.Save(&Credentials{AuthToken: result.IDToken, User: user}); err != nil {
		m.rollbackLocked()
		return fmt.Errorf("セッションの永続化に失敗しました: %w", err)
	}

	m.token = result.IDToken
	m.user = user
	m.status = StatusAuthenticated
	m.logger.Info("サインインしました",
		slog.String("external_id", user.ExternalID),
		slog.String("role", string(user.Role)),
	)
	return nil
}

// SignOut はサインアウト遷移を行う。
// 永続化された認証情報の削除はベストエフォートであり、削除に失敗しても
// メモリ上の状態とAPIクライアントのトークンは必ずクリアされる。
func (m *Manager) SignOut() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Clear(); err != nil {
		m.logger.Warn("保存済み認証情報の削除に失敗しましたがサインアウトを続行します",
			slog.String("error", err.Error()),
		)
	}

	m.becomeUnauthenticatedLocked()
	m.logger.Info("サインアウトしました")
}

// Refresh は現在のユーザーをexternalIdで再取得し、永続化とメモリ上の
// コピーを上書きする。未ログインの場合は何もしない。失敗はログに残して
// 握りつぶし、サインアウトを強制しない（古いデータの方が再認証よりまし）。
func (m *Manager) Refresh(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.status != StatusAuthenticated || m.user == nil {
		return
	}

	updated, err := m.api.GetUser(ctx, m.user.ExternalID)
	if err != nil {
		m.logger.Warn("ユーザー情報の更新に失敗しました",
			slog.String("external_id", m.user.ExternalID),
			slog.String("error", err.Error()),
		)
		return
	}

	if err := m.store.Save(&Credentials{AuthToken: m.token, User: updated}); err != nil {
		m.logger.Warn("更新後のユーザー情報の永続化に失敗しました",
			slog.String("error", err.Error()),
		)
		return
	}

	m.user = updated
}

// Status は現在のセッション状態を返す。
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// IsAuthenticated はログイン済みかどうかを返す。
func (m *Manager) IsAuthenticated() bool {
	return m.Status() == StatusAuthenticated
}

// CurrentUser は現在のユーザーのコピーを返す。未ログインの場合はnilを返す。
func (m *Manager) CurrentUser() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// becomeUnauthenticatedLocked はメモリ上の状態とAPIクライアントのトークンを
// クリアしてUnauthenticatedに遷移する。mu保持中に呼ぶこと。
func (m *Manager) becomeUnauthenticatedLocked() {
	m.api.ClearAuthToken()
	m.token = ""
	m.user = nil
	m.status = StatusUnauthenticated
}

// rollbackLocked はサインイン途中の失敗時にインストール済みトークンを
// 取り消す。mu保持中に呼ぶこと。
func (m *Manager) rollbackLocked() {
	m.becomeUnauthenticatedLocked()
}

// tokenExpired は保存済みトークンが期限切れのJWTかどうかを判定する。
// 署名検証は行わず、expクレームの読み取りのみを行う。
// JWTとして解釈できないトークンやexpを持たないトークンはそのまま信頼する。
func tokenExpired(token string) bool {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}
