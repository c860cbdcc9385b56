// Package model はドメインモデルを定義する。
package model

import "time"

// Report は査定レポートを表す。
// 依頼ごとに1回だけファイルアップロードで作成され、以降クライアントからは読み取り専用。
type Report struct {
	ID          string    `json:"id"`
	OrderID     string    `json:"orderId"`
	Description string    `json:"description"`
	FileURL     string    `json:"fileUrl"`
	CreatedAt   time.Time `json:"createdAt"`
}
