// Package record はレコード送信のコアワークフローを提供する。
//
// 1回の送信はDrive（証憑）、Postgres（レコード本体）、Sheets（ミラー行）の
// 3つの独立したバックエンドにまたがり、これらはトランザクション境界を
// 共有しない。ステップは厳密に順序付けられ、各ステップは前の出力に依存する。
// 永続化の成功が耐久性の分岐点で、その後のミラー失敗はレコードを
// ロールバックしない。
package record

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hitoshi/cobros/internal/drive"
	"github.com/hitoshi/cobros/internal/metrics"
	"github.com/hitoshi/cobros/internal/model"
	"github.com/hitoshi/cobros/internal/repository"
	"github.com/hitoshi/cobros/internal/sheets"
)

// EvidenceUploader は証憑アップロードのインターフェース。
type EvidenceUploader interface {
	Upload(ctx context.Context, token, folderID, filename, mimeType string, content io.Reader) (*drive.UploadResult, error)
}

// MirrorAppender はミラー行追記のインターフェース。
type MirrorAppender interface {
	AppendRow(ctx context.Context, token, sheetID string, record *model.RecordData) error
}

// TextSanitizer は自由テキストのサニタイズインターフェース。
type TextSanitizer interface {
	Sanitize(raw string) string
}

// SubmissionNotifier は送信成功のアプリ内通知インターフェース。
// 通知は付随情報であり、実装は作成失敗を送信に伝播させない。
type SubmissionNotifier interface {
	Notify(ctx context.Context, userID, title, message string, notifType model.NotificationType)
}

// Input はレコード送信の入力。金額が無い場合はゼロとして扱う。
// 金額バリデーション（cobrado>0 OR ingresado>0）はHTTP境界の責務。
type Input struct {
	Fecha         string // YYYY-MM-DD
	Cobrado       decimal.Decimal
	Ingresado     decimal.Decimal
	Observaciones string
	Type          model.RecordType
}

// EvidenceFile は送信に添付された証憑ファイル。
// サイズ・MIME検証済みであることが前提。
type EvidenceFile struct {
	Name     string
	MimeType string
	Content  io.Reader
}

// Service はレコード送信・参照のサービス層。
type Service struct {
	recordRepo repository.RecordRepository
	uploader   EvidenceUploader
	appender   MirrorAppender
	sanitizer  TextSanitizer
	notifier   SubmissionNotifier
	collector  metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(
	recordRepo repository.RecordRepository,
	uploader EvidenceUploader,
	appender MirrorAppender,
	sanitizer TextSanitizer,
	notifier SubmissionNotifier,
	collector metrics.MetricsCollector,
) *Service {
	return &Service{
		recordRepo: recordRepo,
		uploader:   uploader,
		appender:   appender,
		sanitizer:  sanitizer,
		notifier:   notifier,
		collector:  collector,
	}
}

// Create はレコード送信を実行する。
//
//  1. 前提条件: user.DriveのStorageBindingが完全であること。欠けていれば
//     副作用ゼロで失敗する（呼び出し側が先にプロビジョニングする）。
//  2. diferencia = cobrado - ingresado を導出する。
//  3. 証憑があれば種別に対応するフォルダへアップロードする。アップロード
//     失敗は送信全体を失敗させ、レコードは書き込まれない（証憑が
//     指定された以上、証憑なしで黙って保存することはしない）。
//  4. 正規レコードを組み立てて永続化する。ここが耐久性の分岐点。
//     永続化に成功したら本人宛ての成功通知を作成する（失敗は無視）。
//  5. ミラー行を追記する。失敗してもレコードはロールバックせず、
//     保存済みレコードとMIRROR_FAILEDエラーの両方を返す。
func (s *Service) Create(ctx context.Context, input Input, file *EvidenceFile, user *model.UserProfile, token string) (*model.RecordData, error) {
	if !user.Drive.Complete() {
		return nil, model.NewDriveNotConfiguredError()
	}

	diferencia := input.Cobrado.Sub(input.Ingresado)

	var imageURL, fileID string
	if file != nil {
		folderID := user.Drive.CobrosID
		if input.Type == model.RecordTypeIngreso {
			folderID = user.Drive.IngresosID
		}

		uploadStart := time.Now()
		uploaded, err := s.uploader.Upload(ctx, token, folderID, file.Name, file.MimeType, file.Content)
		s.collector.RecordGoogleAPILatency("drive_upload", time.Since(uploadStart))
		if err != nil {
			s.collector.RecordUploadFailure()
			slog.Error("evidence upload failed, record not persisted",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			return nil, model.NewUploadFailedError(err.Error())
		}
		fileID = uploaded.FileID
		imageURL = uploaded.PreviewURL
	}

	record := &model.RecordData{
		ID:            uuid.New().String(),
		Fecha:         input.Fecha,
		Cobrado:       input.Cobrado,
		Ingresado:     input.Ingresado,
		Diferencia:    diferencia,
		Observaciones: s.sanitizer.Sanitize(input.Observaciones),
		UserID:        user.ID,
		UserName:      user.DisplayName,
		Type:          input.Type,
		ImageURL:      imageURL,
		FileID:        fileID,
		CreatedAt:     time.Now(),
	}

	if err := s.recordRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to persist record: %w", err)
	}
	s.collector.RecordSubmission(string(record.Type))
	s.notifier.Notify(ctx, user.ID, "Registro Exitoso",
		fmt.Sprintf("Se ha guardado el registro de %s", record.Type), model.NotificationSuccess)

	appendStart := time.Now()
	err := s.appender.AppendRow(ctx, token, user.Drive.SheetID, record)
	s.collector.RecordGoogleAPILatency("sheets_append", time.Since(appendStart))
	if err != nil {
		s.collector.RecordMirrorFailure()
		slog.Error("mirror append failed, record already persisted",
			slog.String("record_id", record.ID),
			slog.String("sheet_id", user.Drive.SheetID),
			slog.String("error", err.Error()),
		)
		// レコードは保存済み。データ損失を示唆しない形で警告を返す。
		if apiErr, ok := err.(*model.APIError); ok {
			return record, apiErr
		}
		return record, model.NewMirrorFailedError(err.Error())
	}

	slog.Info("record created",
		slog.String("record_id", record.ID),
		slog.String("user_id", user.ID),
		slog.String("type", string(record.Type)),
	)

	return record, nil
}

// List はユーザーのレコードを日付範囲で取得する。
func (s *Service) List(ctx context.Context, userID, start, end string) ([]*model.RecordData, error) {
	records, err := s.recordRepo.ListByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}
	return records, nil
}

// Totals は日付範囲の集計値を取得する。
func (s *Service) Totals(ctx context.Context, userID, start, end string) (*model.RecordTotals, error) {
	totals, err := s.recordRepo.TotalsByUserAndDateRange(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get record totals: %w", err)
	}
	return totals, nil
}

// ExportURL はユーザーのミラーシートのダウンロードURLを返す。
// StorageBinding未設定の場合は前提条件エラー。
func (s *Service) ExportURL(user *model.UserProfile) (string, error) {
	if !user.Drive.Complete() {
		return "", model.NewDriveNotConfiguredError()
	}
	return sheets.GetExportURL(user.Drive.SheetID), nil
}
