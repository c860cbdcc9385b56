package api

import (
	"errors"
	"fmt"
	"net/http"
)

// StatusError はバックエンドが2xx以外のステータスを返したことを表す。
// バックエンドのエラーレスポンス {message, status, timestamp} のmessageを保持する。
type StatusError struct {
	StatusCode int
	Message    string
}

// Error はerrorインターフェースを実装する。
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("APIがステータス %d を返しました", e.StatusCode)
	}
	return fmt.Sprintf("APIがステータス %d を返しました: %s", e.StatusCode, e.Message)
}

// IsNotFound はエラーが404 Not Foundかどうかを返す。
// サインイン時の「未登録なので登録が必要」の判定に使用されるため、
// 他の4xxと混同してはならない。
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusNotFound
}

// IsConflict はエラーが409 Conflict（externalId重複など）かどうかを返す。
func IsConflict(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == http.StatusConflict
}
