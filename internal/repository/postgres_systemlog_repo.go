package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/cobros/internal/model"
)

// PostgresSystemLogRepo はPostgreSQLを使用した監査ログリポジトリ。
type PostgresSystemLogRepo struct {
	db *sql.DB
}

// NewPostgresSystemLogRepo はPostgresSystemLogRepoを生成する。
func NewPostgresSystemLogRepo(db *sql.DB) *PostgresSystemLogRepo {
	return &PostgresSystemLogRepo{db: db}
}

// Create は監査ログを追記する。
func (r *PostgresSystemLogRepo) Create(ctx context.Context, log *model.SystemLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO system_logs (id, user_id, action, details, timestamp)
		 VALUES ($1, $2, $3, $4, $5)`,
		log.ID, log.UserID, log.Action, log.Details, log.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to insert system log: %w", err)
	}
	return nil
}

// ListRecent は最新limit件の監査ログを返す。
func (r *PostgresSystemLogRepo) ListRecent(ctx context.Context, limit int) ([]*model.SystemLog, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, action, details, timestamp
		 FROM system_logs ORDER BY timestamp DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list system logs: %w", err)
	}
	defer rows.Close()

	var logs []*model.SystemLog
	for rows.Next() {
		log := &model.SystemLog{}
		if err := rows.Scan(&log.ID, &log.UserID, &log.Action, &log.Details, &log.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan system log: %w", err)
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}

// compile-time interface check
var _ SystemLogRepository = (*PostgresSystemLogRepo)(nil)
