package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/cobros/internal/model"
)

// PostgresRecordRepo はPostgreSQLを使用したレコードリポジトリ。
// レコードは不変のため、INSERTとSELECTのみを提供する。
type PostgresRecordRepo struct {
	db *sql.DB
}

// NewPostgresRecordRepo はPostgresRecordRepoを生成する。
func NewPostgresRecordRepo(db *sql.DB) *PostgresRecordRepo {
	return &PostgresRecordRepo{db: db}
}

// Create はレコードを作成する。
func (r *PostgresRecordRepo) Create(ctx context.Context, record *model.RecordData) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO records (id, fecha, cobrado, ingresado, diferencia, observaciones,
			user_id, user_name, type, image_url, file_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		record.ID, record.Fecha,
		record.Cobrado.String(), record.Ingresado.String(), record.Diferencia.String(),
		record.Observaciones, record.UserID, record.UserName, record.Type,
		record.ImageURL, record.FileID, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert record: %w", err)
	}
	return nil
}

// scanRecord は1行をRecordDataに読み取る。
// NUMERIC列は文字列で受けてdecimalにパースする（浮動小数点を経由しない）。
func scanRecord(row interface {
	Scan(dest ...any) error
}) (*model.RecordData, error) {
	record := &model.RecordData{}
	var cobrado, ingresado, diferencia string

	err := row.Scan(
		&record.ID, &record.Fecha, &cobrado, &ingresado, &diferencia,
		&record.Observaciones, &record.UserID, &record.UserName, &record.Type,
		&record.ImageURL, &record.FileID, &record.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if record.Cobrado, err = decimal.NewFromString(cobrado); err != nil {
		return nil, fmt.Errorf("invalid cobrado value %q: %w", cobrado, err)
	}
	if record.Ingresado, err = decimal.NewFromString(ingresado); err != nil {
		return nil, fmt.Errorf("invalid ingresado value %q: %w", ingresado, err)
	}
	if record.Diferencia, err = decimal.NewFromString(diferencia); err != nil {
		return nil, fmt.Errorf("invalid diferencia value %q: %w", diferencia, err)
	}

	return record, nil
}

const recordColumns = `id, to_char(fecha, 'YYYY-MM-DD'), cobrado::text, ingresado::text,
	diferencia::text, observaciones, user_id, user_name, type, image_url, file_id, created_at`

// FindByID は指定IDのレコードを取得する。見つからない場合はnilを返す。
func (r *PostgresRecordRepo) FindByID(ctx context.Context, id string) (*model.RecordData, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, id)

	record, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find record: %w", err)
	}

	return record, nil
}

// ListByUserAndDateRange はユーザーのレコードを日付範囲で取得する。
func (r *PostgresRecordRepo) ListByUserAndDateRange(ctx context.Context, userID, start, end string) ([]*model.RecordData, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM records
		 WHERE user_id = $1 AND fecha >= $2 AND fecha <= $3
		 ORDER BY fecha DESC, created_at DESC`,
		userID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	defer rows.Close()

	var records []*model.RecordData
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}

	return records, rows.Err()
}

// TotalsByUserAndDateRange は日付範囲のcobrado/ingresado/diferencia合計を返す。
func (r *PostgresRecordRepo) TotalsByUserAndDateRange(ctx context.Context, userID, start, end string) (*model.RecordTotals, error) {
	var cobrado, ingresado, diferencia string
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(cobrado), 0)::text, COALESCE(SUM(ingresado), 0)::text,
			COALESCE(SUM(diferencia), 0)::text
		 FROM records WHERE user_id = $1 AND fecha >= $2 AND fecha <= $3`,
		userID, start, end,
	).Scan(&cobrado, &ingresado, &diferencia)
	if err != nil {
		return nil, fmt.Errorf("failed to query record totals: %w", err)
	}

	totals := &model.RecordTotals{}
	if totals.TotalCobrado, err = decimal.NewFromString(cobrado); err != nil {
		return nil, fmt.Errorf("invalid total cobrado %q: %w", cobrado, err)
	}
	if totals.TotalIngresado, err = decimal.NewFromString(ingresado); err != nil {
		return nil, fmt.Errorf("invalid total ingresado %q: %w", ingresado, err)
	}
	if totals.TotalDiferencia, err = decimal.NewFromString(diferencia); err != nil {
		return nil, fmt.Errorf("invalid total diferencia %q: %w", diferencia, err)
	}

	return totals, nil
}

// compile-time interface check
var _ RecordRepository = (*PostgresRecordRepo)(nil)
