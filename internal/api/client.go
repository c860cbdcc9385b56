// Package api は査定サービスのREST APIに対する型付きクライアントを提供する。
// ベアラートークンの付与、クライアント側レート制限、エンドポイントごとの
// 型付きメソッドを含む。リトライは行わず、失敗は呼び出し元へそのまま伝播する。
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/appraise/internal/model"
)

const (
	// defaultTimeout は全リクエストに適用される固定タイムアウト。
	defaultTimeout = 30 * time.Second
	// defaultPageSize は一覧取得のデフォルトページサイズ。
	defaultPageSize = 20
)

// Config はClientの設定。
type Config struct {
	// BaseURL はAPIのベースURL（例: http://localhost:8080/api/v1）。
	BaseURL string
	// Timeout はリクエストタイムアウト。ゼロ値の場合は30秒。
	Timeout time.Duration
	// RateLimit はクライアント側の送信レート（req/sec）。ゼロ以下の場合は無制限。
	RateLimit float64
	// RateBurst はレート制限のバーストサイズ。
	RateBurst int
	// Transport はHTTPトランスポート。メトリクス計測済みトランスポートの注入に使用する。
	// nilの場合はhttp.DefaultTransportが使用される。
	Transport http.RoundTripper
}

// Client は査定サービスAPIのクライアント。
// ベアラートークンはプロセス内の共有可変状態であり、SetAuthToken/ClearAuthTokenで
// 差し替えられる。トークンの永続化はセッション管理側の責務であり、ここでは行わない。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	limiter    *rate.Limiter

	mu    sync.RWMutex
	token string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(cfg Config, logger *slog.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	limit := rate.Inf
	burst := 1
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
		burst = cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
	}

	return &Client{
		baseURL: trimTrailingSlash(cfg.BaseURL),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: cfg.Transport,
		},
		logger:  logger,
		limiter: rate.NewLimiter(limit, burst),
	}
}

// SetAuthToken は以降のリクエストに付与するベアラートークンを設定する。
// メモリ上の状態のみを変更し、ネットワークI/Oや永続化は行わない。
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// ClearAuthToken は設定されているベアラートークンを破棄する。
func (c *Client) ClearAuthToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

// AuthToken は現在設定されているベアラートークンを返す。
// 未設定の場合は空文字列を返す。
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// RegisterUser は新規ユーザーを登録する。
// 同じexternalIdが既に存在する場合は409のStatusErrorを返す（IsConflictで判定可能）。
func (c *Client) RegisterUser(ctx context.Context, req model.RegisterUserRequest) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodPost, "/users/register", nil, req, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser はexternalIdでユーザーを取得する。
// 存在しない場合は404のStatusErrorを返す（IsNotFoundで判定可能）。
func (c *Client) GetUser(ctx context.Context, externalID string) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/"+url.PathEscape(externalID), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetCurrentUser は現在のトークンに対応するユーザーを取得する。
func (c *Client) GetCurrentUser(ctx context.Context) (*model.User, error) {
	var user model.User
	if err := c.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAppraiserWhitelist は査定士として登録を許可されたIDの一覧を取得する。
// 許可リストの強制はサーバー側の責務であり、クライアント側の判定は表示用途に限る。
func (c *Client) GetAppraiserWhitelist(ctx context.Context) ([]string, error) {
	var ids []string
	if err := c.doJSON(ctx, http.MethodGet, "/users/appraisers", nil, nil, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// CreateOrder は査定依頼を作成する。
// ステータスはサーバー側でCREATEDに初期化される。
func (c *Client) CreateOrder(ctx context.Context, req model.CreateOrderRequest) (*model.Order, error) {
	var order model.Order
	if err := c.doJSON(ctx, http.MethodPost, "/orders", nil, req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersParams は査定依頼一覧取得のフィルタとページング指定。
// UserIDとAppraiserIDは任意で、両方・片方・どちらも指定なしのいずれも許される。
type ListOrdersParams struct {
	UserID      string
	AppraiserID string
	Page        int
	Size        int
}

// GetOrders は査定依頼の一覧をページネーションで取得する。
// Sizeがゼロ以下の場合は20が使用される。
func (c *Client) GetOrders(ctx context.Context, params ListOrdersParams) (*model.PaginatedOrders, error) {
	page := params.Page
	if page < 0 {
		page = 0
	}
	size := params.Size
	if size <= 0 {
		size = defaultPageSize
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("size", strconv.Itoa(size))
	if params.UserID != "" {
		query.Set("userId", params.UserID)
	}
	if params.AppraiserID != "" {
		query.Set("appraiserId", params.AppraiserID)
	}

	var result model.PaginatedOrders
	if err := c.doJSON(ctx, http.MethodGet, "/orders", query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetOrder は査定依頼を1件取得する。
func (c *Client) GetOrder(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	if err := c.doJSON(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// AssignOrder は査定依頼に査定士を割り当てる。
// ステータスの遷移とappraiserIdの設定はサーバー側で行われる。
func (c *Client) AssignOrder(ctx context.Context, orderID, appraiserID string) (*model.Order, error) {
	body := map[string]string{"appraiserId": appraiserID}
	var order model.Order
	if err := c.doJSON(ctx, http.MethodPost, "/orders/"+url.PathEscape(orderID)+"/assign", nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus は査定依頼のステータスを更新する。
// 定義外のステータスはリクエストを送信せずにエラーを返す。
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) (*model.Order, error) {
	if !status.Valid() {
		return nil, model.NewInvalidStatusError(string(status))
	}
	body := map[string]string{"status": string(status)}
	var order model.Order
	if err := c.doJSON(ctx, http.MethodPut, "/orders/"+url.PathEscape(orderID)+"/status", nil, body, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// UploadReport は査定レポートをmultipartでアップロードする。
// ファイルパート名は report+<orderId>.pdf に固定される。
func (c *Client) UploadReport(ctx context.Context, orderID string, file []byte, description string) (*model.Report, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "report+"+orderID+".pdf")
	if err != nil {
		return nil, fmt.Errorf("multipartファイルパートの作成に失敗しました: %w", err)
	}
	if _, err := part.Write(file); err != nil {
		return nil, fmt.Errorf("ファイル内容の書き込みに失敗しました: %w", err)
	}
	if err := writer.WriteField("description", description); err != nil {
		return nil, fmt.Errorf("descriptionフィールドの書き込みに失敗しました: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("multipartボディの確定に失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/reports/orders/"+url.PathEscape(orderID), &buf)
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var report model.Report
	if err := c.send(req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReport は査定依頼に紐づくレポートを取得する。
// レポートが未作成の場合は404のStatusErrorを返す。
func (c *Client) GetReport(ctx context.Context, orderID string) (*model.Report, error) {
	var report model.Report
	if err := c.doJSON(ctx, http.MethodGet, "/reports/orders/"+url.PathEscape(orderID), nil, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// doJSON はJSONリクエストを組み立ててsendに渡す。
func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("リクエストボディのエンコードに失敗しました: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.send(req, out)
}

// errorResponse はバックエンドの統一エラーレスポンス。
type errorResponse struct {
	Message   string `json:"message"`
	Status    int    `json:"status"`
	Timestamp string `json:"timestamp"`
}

// send はレート制限の待機、ベアラートークンの付与、リクエスト実行、
// ステータス判定、レスポンスのデコードを行う。
// トークンが未設定の場合、リクエストは無認証のまま送信される。
func (c *Client) send(req *http.Request, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("レート制限の待機に失敗しました: %w", err)
	}

	if token := c.AuthToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("APIリクエストに失敗しました",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("APIリクエストに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		// エラーボディのデコード失敗は無視し、ステータスコードのみで判断する
		_ = json.Unmarshal(respBody, &errResp)
		c.logger.Error("APIがエラーステータスを返しました",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("http_status", resp.StatusCode),
		)
		return &StatusError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}
	return nil
}

// trimTrailingSlash はベースURL末尾のスラッシュを除去する。
func trimTrailingSlash(s string) string {
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}
