// Package session は認証セッションの状態管理と永続化を提供する。
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hitoshi/appraise/internal/model"
)

// Credentials は永続化されるトークンとユーザーのペア。
// 両方が揃って初めて有効であり、片方だけの保存・削除は許されない。
type Credentials struct {
	AuthToken string      `json:"authToken"`
	User      *model.User `json:"user"`
}

// CredentialStore は認証情報の永続化層のインターフェース。
type CredentialStore interface {
	// Load は保存済みの認証情報を読み込む。未保存の場合は(nil, nil)を返す。
	Load() (*Credentials, error)
	// Save はトークンとユーザーのペアを保存する。
	Save(creds *Credentials) error
	// Clear は保存済みの認証情報を削除する。未保存の場合も成功とする。
	Clear() error
}

// FileStore は単一のJSONファイルに認証情報を保存するCredentialStore実装。
// ファイルは0600、親ディレクトリは0700で作成される。
type FileStore struct {
	path string
}

// NewFileStore はFileStoreを生成する。
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load は保存済みの認証情報を読み込む。
// ファイルが存在しない場合は(nil, nil)を返す。
// トークンとユーザーのどちらかが欠けたファイルは未保存として扱う。
func (s *FileStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("認証情報ファイルの読み込みに失敗しました: %w", err)
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("認証情報ファイルのパースに失敗しました: %w", err)
	}

	if creds.AuthToken == "" || creds.User == nil {
		return nil, nil
	}

	return &creds, nil
}

// Save はトークンとユーザーのペアを保存する。
// 一時ファイルへの書き込み後にリネームすることで、両方が同時に保存される
// （途中クラッシュで片方だけ残ることがない）ことを保証する。
func (s *FileStore) Save(creds *Credentials) error {
	if creds == nil || creds.AuthToken == "" || creds.User == nil {
		return fmt.Errorf("認証情報が不完全です: トークンとユーザーの両方が必要です")
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("認証情報のエンコードに失敗しました: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("認証情報ディレクトリの作成に失敗しました: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("認証情報ファイルの書き込みに失敗しました: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("認証情報ファイルの置き換えに失敗しました: %w", err)
	}

	return nil
}

// Clear は保存済みの認証情報を削除する。
func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("認証情報ファイルの削除に失敗しました: %w", err)
	}
	return nil
}

// compile-time interface check
var _ CredentialStore = (*FileStore)(nil)
