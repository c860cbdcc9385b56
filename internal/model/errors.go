// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError は統一エラーフォーマットを表す。
// CLIに表示する原因カテゴリと対処方法を含む。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, order, report, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeDuplicateUser      = "DUPLICATE_USER"
	ErrCodeOrderNotFound      = "ORDER_NOT_FOUND"
	ErrCodeReportNotReady     = "REPORT_NOT_READY"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeInvalidOrderInput  = "INVALID_ORDER_INPUT"
	ErrCodeAuthFailed         = "AUTH_FAILED"
	ErrCodeLoginCancelled     = "LOGIN_CANCELLED"
	ErrCodeBackendUnreachable = "BACKEND_UNREACHABLE"
)

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError(externalID string) *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  fmt.Sprintf("ユーザーが見つかりません: %s", externalID),
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewDuplicateUserError は同じexternalIdのユーザーが既に存在する場合のエラーを生成する。
func NewDuplicateUserError() *AppError {
	return &AppError{
		Code:     ErrCodeDuplicateUser,
		Message:  "このアカウントは既に登録されています。",
		Category: "auth",
		Action:   "登録済みのアカウントでログインしてください。",
	}
}

// NewOrderNotFoundError は査定依頼が見つからない場合のエラーを生成する。
func NewOrderNotFoundError(orderID string) *AppError {
	return &AppError{
		Code:     ErrCodeOrderNotFound,
		Message:  fmt.Sprintf("指定された査定依頼が見つかりません: %s", orderID),
		Category: "order",
		Action:   "依頼IDを確認してください。",
	}
}

// NewReportNotReadyError はレポートがまだ存在しない場合のエラーを生成する。
func NewReportNotReadyError(orderID string) *AppError {
	return &AppError{
		Code:     ErrCodeReportNotReady,
		Message:  fmt.Sprintf("この査定依頼のレポートはまだ作成されていません: %s", orderID),
		Category: "report",
		Action:   "査定が完了するまでお待ちください。",
	}
}

// NewInvalidStatusError は無効なステータス指定のエラーを生成する。
func NewInvalidStatusError(status string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効なステータスです: %s", status),
		Category: "validation",
		Action:   "ステータスには CREATED、ASSIGNED、IN_PROGRESS、COMPLETED、CANCELLED のいずれかを指定してください。",
	}
}

// NewInvalidOrderInputError は査定依頼の入力が不正な場合のエラーを生成する。
func NewInvalidOrderInputError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidOrderInput,
		Message:  fmt.Sprintf("査定依頼の入力が不正です: %s", reason),
		Category: "validation",
		Action:   "メーカー、車種、年式、場所をすべて指定してください。",
	}
}

// NewAuthFailedError は認証失敗のエラーを生成する。
func NewAuthFailedError(reason string) *AppError {
	return &AppError{
		Code:     ErrCodeAuthFailed,
		Message:  fmt.Sprintf("認証に失敗しました: %s", reason),
		Category: "auth",
		Action:   "再度ログインをお試しください。",
	}
}

// NewLoginCancelledError はユーザーがログインをキャンセルした場合のエラーを生成する。
func NewLoginCancelledError() *AppError {
	return &AppError{
		Code:     ErrCodeLoginCancelled,
		Message:  "ログインがキャンセルされました。",
		Category: "auth",
		Action:   "ログインするにはブラウザで認証を完了してください。",
	}
}

// NewBackendUnreachableError はバックエンドに到達できない場合のエラーを生成する。
func NewBackendUnreachableError() *AppError {
	return &AppError{
		Code:     ErrCodeBackendUnreachable,
		Message:  "査定サービスに接続できません。",
		Category: "system",
		Action:   "ネットワーク接続とAPPRAISE_API_BASE_URLの設定を確認し、しばらく待ってから再度お試しください。",
	}
}
