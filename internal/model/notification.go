package model

import "time"

// NotificationType は通知の表示区分。
type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationSuccess NotificationType = "success"
	NotificationWarning NotificationType = "warning"
	NotificationError   NotificationType = "error"
)

// Notification はユーザー宛てのアプリ内通知を表す。
type Notification struct {
	ID        string
	UserID    string
	Title     string
	Message   string
	Type      NotificationType
	Read      bool
	CreatedAt time.Time
}

// SystemLog は管理操作の監査ログを表す。追記のみで更新されない。
type SystemLog struct {
	ID        string
	UserID    string // 操作を実行した管理者のID
	Action    string // 例: ADMIN_APPROVE, ADMIN_BLOCK, ADMIN_PROMOTE
	Details   string
	Timestamp time.Time
}
