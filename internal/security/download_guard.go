// Package security はクライアント側のセキュリティ機能を提供する。
package security

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/doyensec/safeurl"
)

// allowedSchemes はレポートのダウンロードで許可されるURLスキーム。
var allowedSchemes = []string{"http", "https"}

// blockedNetworks はダウンロード先として拒否されるネットワーク範囲。
// safeurlはDialerレベルでDNS解決後のIPアドレスも検証するため、
// ここでの静的チェックはリクエスト送信前の早期失敗のためにある。
var blockedNetworks []net.IPNet

func init() {
	cidrs := []string{
		// プライベートIPアドレス (RFC 1918)
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		// ループバック (RFC 1122)
		"127.0.0.0/8",
		// リンクローカル (RFC 3927) - クラウドメタデータIP (169.254.169.254) を含む
		"169.254.0.0/16",
		// カレントネットワーク
		"0.0.0.0/8",
		// IPv6ループバック
		"::1/128",
		// IPv6リンクローカル
		"fe80::/10",
		// IPv6ユニークローカル
		"fc00::/7",
	}
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR in blockedNetworks: %s: %v", cidr, err))
		}
		blockedNetworks = append(blockedNetworks, *network)
	}
}

// Downloader はサーバーから提示されたfileUrlのような、信頼できないURLから
// ファイルを取得するためのダウンローダー。プライベートIP、ループバック、
// メタデータIPへのアクセスはブロックされる。
type Downloader struct {
	client  *http.Client
	maxSize int64
}

// NewDownloader はSSRF防止機能付きのDownloaderを生成する。
func NewDownloader(timeout time.Duration, maxSize int64) *Downloader {
	config := safeurl.GetConfigBuilder().
		SetTimeout(timeout).
		SetAllowedSchemes(allowedSchemes...).
		SetAllowedPorts(80, 443).
		Build()

	return &Downloader{
		client:  safeurl.Client(config).Client,
		maxSize: maxSize,
	}
}

// ValidateURL はダウンロード先URLの安全性を事前に検証する。
// DNS解決を伴わない静的な検証のみを行う。DNS再バインディング攻撃は
// safeurlクライアント側のDialer検証で防止される。
func (d *Downloader) ValidateURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("URLが空です")
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("無効なURLです: %w", err)
	}

	scheme := strings.ToLower(parsed.Scheme)
	if !isAllowedScheme(scheme) {
		return fmt.Errorf("許可されていないスキームです: %s", scheme)
	}

	host := parsed.Hostname()
	if host == "" {
		return fmt.Errorf("URLにホストがありません: %s", rawURL)
	}

	if ip := net.ParseIP(host); ip != nil {
		if isBlockedIP(ip) {
			return fmt.Errorf("ブロック対象のIPアドレスです: %s", ip.String())
		}
		return nil
	}

	if strings.EqualFold(host, "localhost") {
		return fmt.Errorf("ブロック対象のホストです: %s", host)
	}

	return nil
}

// Download はURLの検証後にファイルを取得して内容を返す。
// レスポンスはmaxSizeバイトまでで打ち切られ、超過はエラーとなる。
func (d *Downloader) Download(ctx context.Context, rawURL string) ([]byte, error) {
	if err := d.ValidateURL(rawURL); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("ダウンロードリクエストの作成に失敗しました: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ファイルのダウンロードに失敗しました: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ダウンロード先がステータス %d を返しました", resp.StatusCode)
	}

	limited := io.LimitReader(resp.Body, d.maxSize+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, fmt.Errorf("ダウンロード内容の読み取りに失敗しました: %w", err)
	}
	if int64(len(data)) > d.maxSize {
		return nil, fmt.Errorf("ファイルサイズが上限を超えています: > %d bytes", d.maxSize)
	}

	return data, nil
}

// isAllowedScheme はURLスキームが許可リストに含まれるかを検証する。
func isAllowedScheme(scheme string) bool {
	for _, allowed := range allowedSchemes {
		if strings.EqualFold(scheme, allowed) {
			return true
		}
	}
	return false
}

// isBlockedIP はIPアドレスがブロック対象のネットワーク範囲に含まれるかを検証する。
func isBlockedIP(ip net.IP) bool {
	for _, network := range blockedNetworks {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
