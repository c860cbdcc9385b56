// Package model はドメインモデルを定義する。
package model

import "time"

// OrderStatus は査定依頼のステータスを表す。
type OrderStatus string

const (
	// OrderStatusCreated は作成直後の状態。
	OrderStatusCreated OrderStatus = "CREATED"
	// OrderStatusAssigned は査定士が割り当てられた状態。
	OrderStatusAssigned OrderStatus = "ASSIGNED"
	// OrderStatusInProgress は査定作業中の状態。
	OrderStatusInProgress OrderStatus = "IN_PROGRESS"
	// OrderStatusCompleted は査定が完了した状態。
	OrderStatusCompleted OrderStatus = "COMPLETED"
	// OrderStatusCancelled はキャンセルされた状態。
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid はステータスが定義済みの値かどうかを返す。
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusAssigned, OrderStatusInProgress,
		OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order は車両の査定依頼を表す。
// ステータスの状態管理はバックエンドが所有し、クライアントは
// ラウンドトリップの確認なしにローカルでフィールドを書き換えない。
type Order struct {
	ID          string      `json:"id"`
	CarMake     string      `json:"carMake"`
	CarModel    string      `json:"carModel"`
	CarYear     int         `json:"carYear"`
	Location    string      `json:"location"`
	Status      OrderStatus `json:"status"`
	UserID      string      `json:"userId"`
	AppraiserID string      `json:"appraiserId,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CreateOrderRequest は査定依頼の作成リクエストを表す。
// ステータスはサーバー側でCREATEDに初期化される。
type CreateOrderRequest struct {
	CarMake  string `json:"carMake"`
	CarModel string `json:"carModel"`
	CarYear  int    `json:"carYear"`
	Location string `json:"location"`
	UserID   string `json:"userId"`
}

// PaginatedOrders は査定依頼一覧のページネーション結果を表す。
type PaginatedOrders struct {
	Content       []Order `json:"content"`
	TotalElements int64   `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
	Page          int     `json:"page"`
	Size          int     `json:"size"`
}
