// Package model はドメインモデルを定義する。
package model

import "time"

// UserRole はユーザーの役割を表す。
type UserRole string

const (
	// RoleClient は査定を依頼するクライアントを示す。
	RoleClient UserRole = "CLIENT"
	// RoleAppraiser は査定を実施する査定士を示す。
	RoleAppraiser UserRole = "APPRAISER"
)

// User はサービス利用ユーザーを表す。
// ExternalIDは外部IdP（Google）のsubクレームで、ユーザーを一意に識別する。
// レコードはバックエンド側で作成され、クライアント側では読み取り専用。
type User struct {
	ID         string    `json:"id"`
	ExternalID string    `json:"externalId"`
	Email      string    `json:"email"`
	Role       UserRole  `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

// RegisterUserRequest はユーザー登録リクエストを表す。
// Roleを省略した場合はバックエンド側でCLIENTが設定される。
type RegisterUserRequest struct {
	ExternalID string   `json:"externalId"`
	Email      string   `json:"email"`
	Role       UserRole `json:"role,omitempty"`
}
