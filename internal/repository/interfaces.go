// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/cobros/internal/model"
)

// UserRepository はユーザープロフィールの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.UserProfile, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.UserProfile, identity *model.Identity) error

	// List は全ユーザーを作成日時順で返す。管理画面用。
	List(ctx context.Context) ([]*model.UserProfile, error)

	// UpdateDriveConfig はユーザーのStorageBindingを丸ごと置き換える。
	// 4つのIDは常に一括で書き込まれる（部分更新はしない）。
	UpdateDriveConfig(ctx context.Context, userID string, cfg *model.DriveConfig) error

	// SetApproved は承認フラグを更新する。
	SetApproved(ctx context.Context, userID string, approved bool) error

	// SetBlocked はブロックフラグを更新する。
	SetBlocked(ctx context.Context, userID string, blocked bool) error

	// SetRole は権限区分を更新する。
	SetRole(ctx context.Context, userID string, role model.Role) error

	// ListNeedingProvision は承認済みかつStorageBinding未設定のユーザーを返す。
	// 自己修復ワーカーのスキャン対象。
	ListNeedingProvision(ctx context.Context) ([]*model.UserProfile, error)
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// FindActiveByUserID はユーザーの有効期限内セッションのうち最新の1件を返す。
	// 見つからない場合はnilを返す。自己修復ワーカーが委譲クレデンシャルを得るために使う。
	FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// RecordRepository は金銭レコードの永続化インターフェース。
// レコードは追記のみで、更新・削除の操作は提供しない。
type RecordRepository interface {
	// Create はレコードを作成する。
	Create(ctx context.Context, record *model.RecordData) error

	// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.RecordData, error)

	// ListByUserAndDateRange はユーザーのレコードを日付範囲で取得する。
	// fecha降順、createdAt降順で返す。
	ListByUserAndDateRange(ctx context.Context, userID, start, end string) ([]*model.RecordData, error)

	// TotalsByUserAndDateRange は日付範囲のcobrado/ingresado/diferencia合計を返す。
	TotalsByUserAndDateRange(ctx context.Context, userID, start, end string) (*model.RecordTotals, error)
}

// NotificationRepository はアプリ内通知の永続化インターフェース。
type NotificationRepository interface {
	// Create は通知を作成する。
	Create(ctx context.Context, n *model.Notification) error

	// ListByUserID はユーザーの通知を新しい順に最大limit件返す。
	ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error)

	// MarkRead は指定通知を既読にする。通知の所有者のみが対象。
	MarkRead(ctx context.Context, id, userID string) error
}

// SystemLogRepository は管理操作監査ログの永続化インターフェース。
type SystemLogRepository interface {
	// Create は監査ログを追記する。
	Create(ctx context.Context, log *model.SystemLog) error

	// ListRecent は最新limit件の監査ログを返す。
	ListRecent(ctx context.Context, limit int) ([]*model.SystemLog, error)
}
