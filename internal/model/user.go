// Package model はドメインモデルを定義する。
package model

import "time"

// Role はユーザーの権限区分。
type Role string

const (
	// RoleAdmin は管理者。ユーザー承認・ブロック・昇格を実行できる。
	RoleAdmin Role = "admin"
	// RoleUser は一般ユーザー。
	RoleUser Role = "user"
)

// DriveConfig はユーザーごとにプロビジョニングされたDrive/Sheetsの識別子セット。
// 4つのIDは全て揃っているか、全て無いかのどちらか。部分的な状態は
// 「未設定」として扱い、再プロビジョニング対象となる。
type DriveConfig struct {
	RootID     string
	CobrosID   string
	IngresosID string
	SheetID    string
}

// Complete は4つのIDが全て設定されているかを返す。
func (c *DriveConfig) Complete() bool {
	if c == nil {
		return false
	}
	return c.RootID != "" && c.CobrosID != "" && c.IngresosID != "" && c.SheetID != ""
}

// UserSettings はユーザーの通知設定。
type UserSettings struct {
	Diferencias  bool
	AlertasFecha bool
}

// UserProfile はサービス利用ユーザーを表す。
// 初回サインイン時に approved=false で作成され、管理者の承認後に
// レコード操作が可能になる。ハードデリートは行わない。
type UserProfile struct {
	ID                   string
	Email                string
	DisplayName          string
	Role                 Role
	Approved             bool
	Blocked              bool
	PhotoURL             string
	NotificationsEnabled bool
	NotificationSettings UserSettings
	Drive                *DriveConfig // nil = ストレージ未プロビジョニング
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CanAct はユーザーがレコード操作を実行できる状態かを返す。
// 承認済みかつ未ブロックであることが条件。
func (u *UserProfile) CanAct() bool {
	return u.Approved && !u.Blocked
}

// IsAdmin は管理者権限を持つかを返す。
func (u *UserProfile) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Identity は外部IdPとの紐付け情報を表す。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
// AccessTokenはGoogleから委譲されたDrive/Sheetsスコープのbearerトークンで、
// コアの3つの書き込み経路（プロビジョナー・アップローダー・アペンダー）が使用する。
type Session struct {
	ID          string
	UserID      string
	AccessToken string
	ExpiresAt   time.Time
	CreatedAt   time.Time
}
