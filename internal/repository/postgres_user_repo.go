package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/cobros/internal/model"
)

// PostgresUserRepo はPostgreSQLを使用したユーザーリポジトリ。
type PostgresUserRepo struct {
	db *sql.DB
}

// NewPostgresUserRepo はPostgresUserRepoを生成する。
func NewPostgresUserRepo(db *sql.DB) *PostgresUserRepo {
	return &PostgresUserRepo{db: db}
}

const userColumns = `id, email, display_name, role, approved, blocked, photo_url,
	notifications_enabled, notify_diferencias, notify_alertas_fecha,
	drive_root_id, drive_cobros_id, drive_ingresos_id, drive_sheet_id,
	created_at, updated_at`

// scanUser は1行をUserProfileに読み取る。
// drive_*列はNULL許容で、4つ揃っている場合のみDriveを設定する。
// 部分的なバインディングは「未設定」として扱う。
func scanUser(row interface {
	Scan(dest ...any) error
}) (*model.UserProfile, error) {
	user := &model.UserProfile{}
	var rootID, cobrosID, ingresosID, sheetID sql.NullString

	err := row.Scan(
		&user.ID, &user.Email, &user.DisplayName, &user.Role, &user.Approved,
		&user.Blocked, &user.PhotoURL, &user.NotificationsEnabled,
		&user.NotificationSettings.Diferencias, &user.NotificationSettings.AlertasFecha,
		&rootID, &cobrosID, &ingresosID, &sheetID,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cfg := &model.DriveConfig{
		RootID:     rootID.String,
		CobrosID:   cobrosID.String,
		IngresosID: ingresosID.String,
		SheetID:    sheetID.String,
	}
	if cfg.Complete() {
		user.Drive = cfg
	}

	return user, nil
}

// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *PostgresUserRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)

	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
func (r *PostgresUserRepo) CreateWithIdentity(ctx context.Context, user *model.UserProfile, identity *model.Identity) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO users (id, email, display_name, role, approved, blocked, photo_url,
			notifications_enabled, notify_diferencias, notify_alertas_fecha, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		user.ID, user.Email, user.DisplayName, user.Role, user.Approved, user.Blocked,
		user.PhotoURL, user.NotificationsEnabled,
		user.NotificationSettings.Diferencias, user.NotificationSettings.AlertasFecha,
		user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert user: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO identities (id, user_id, provider, provider_user_id, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		identity.ID, identity.UserID, identity.Provider, identity.ProviderUserID, identity.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert identity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// List は全ユーザーを作成日時順で返す。
func (r *PostgresUserRepo) List(ctx context.Context) ([]*model.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*model.UserProfile
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

// UpdateDriveConfig はユーザーのStorageBindingを丸ごと置き換える。
func (r *PostgresUserRepo) UpdateDriveConfig(ctx context.Context, userID string, cfg *model.DriveConfig) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET drive_root_id = $2, drive_cobros_id = $3,
			drive_ingresos_id = $4, drive_sheet_id = $5, updated_at = $6
		 WHERE id = $1`,
		userID, cfg.RootID, cfg.CobrosID, cfg.IngresosID, cfg.SheetID, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update drive config: %w", err)
	}
	return requireRowAffected(result, userID)
}

// SetApproved は承認フラグを更新する。
func (r *PostgresUserRepo) SetApproved(ctx context.Context, userID string, approved bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET approved = $2, updated_at = $3 WHERE id = $1`,
		userID, approved, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update approved flag: %w", err)
	}
	return requireRowAffected(result, userID)
}

// SetBlocked はブロックフラグを更新する。
func (r *PostgresUserRepo) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET blocked = $2, updated_at = $3 WHERE id = $1`,
		userID, blocked, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update blocked flag: %w", err)
	}
	return requireRowAffected(result, userID)
}

// SetRole は権限区分を更新する。
func (r *PostgresUserRepo) SetRole(ctx context.Context, userID string, role model.Role) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`,
		userID, role, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return requireRowAffected(result, userID)
}

// ListNeedingProvision は承認済みかつStorageBinding未設定のユーザーを返す。
// drive_*列のいずれかがNULL（部分バインディング含む）を「未設定」とみなす。
func (r *PostgresUserRepo) ListNeedingProvision(ctx context.Context) ([]*model.UserProfile, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE approved = TRUE AND blocked = FALSE
		   AND (drive_root_id IS NULL OR drive_cobros_id IS NULL
		     OR drive_ingresos_id IS NULL OR drive_sheet_id IS NULL)
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users needing provision: %w", err)
	}
	defer rows.Close()

	var users []*model.UserProfile
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func requireRowAffected(result sql.Result, userID string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found: %s", userID)
	}
	return nil
}

// compile-time interface check
var _ UserRepository = (*PostgresUserRepo)(nil)
