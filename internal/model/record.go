package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordType はレコードの種別。
type RecordType string

const (
	// RecordTypeCobro は請求（cobro）レコード。
	RecordTypeCobro RecordType = "cobro"
	// RecordTypeIngreso は入金（ingreso）レコード。
	RecordTypeIngreso RecordType = "ingreso"
)

// Valid は種別がcobro/ingresoのいずれかであるかを返す。
func (t RecordType) Valid() bool {
	return t == RecordTypeCobro || t == RecordTypeIngreso
}

// RecordData は1件の金銭レコードを表す。
// Diferencia は常に Cobrado - Ingresado の導出値であり、単独で設定されることはない。
// 一度書き込まれたレコードは不変（更新・削除の操作は存在しない）。
type RecordData struct {
	ID            string
	Fecha         string // ISO日付（YYYY-MM-DD、時刻なし）
	Cobrado       decimal.Decimal
	Ingresado     decimal.Decimal
	Diferencia    decimal.Decimal
	Observaciones string
	UserID        string
	UserName      string // 書き込み時点のプロフィールから非正規化
	Type          RecordType
	ImageURL      string // 証憑プレビューURL。証憑なしの場合は空
	FileID        string
	CreatedAt     time.Time
}

// RecordTotals はダッシュボード用の集計値。
type RecordTotals struct {
	TotalCobrado    decimal.Decimal
	TotalIngresado  decimal.Decimal
	TotalDiferencia decimal.Decimal
}
