package drive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"
)

// Uploader は証憑ファイルを種別ごとのフォルダにアップロードする。
// サイズ・MIMEの検証は呼び出し側（HTTP境界）の責務で、ここでは再検証しない。
type Uploader struct {
	client *Client
	logger *slog.Logger

	// テストで時刻を固定するためのフック
	now func() time.Time
}

// NewUploader はUploaderを生成する。
func NewUploader(client *Client, logger *slog.Logger) *Uploader {
	return &Uploader{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// UploadResult は証憑アップロードの結果。
type UploadResult struct {
	FileID     string
	PreviewURL string
}

var (
	unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]`)
	thumbnailSizeParam  = regexp.MustCompile(`=s\d+(-[a-z]+)?$`)
)

// SanitizeFilename はファイル名を制限された文字集合に正規化する。
// 空になった場合は"evidencia"を使う。
func SanitizeFilename(name string) string {
	sanitized := unsafeFilenameChars.ReplaceAllString(name, "_")
	if sanitized == "" || sanitized == "_" {
		return "evidencia"
	}
	return sanitized
}

// Upload はファイルを指定フォルダにアップロードし、公開閲覧権限を付与して
// 埋め込み可能なプレビューURLを返す。
// ファイル名は高分解能タイムスタンプを前置して衝突を避ける。
// 権限付与の失敗はログのみで握りつぶす。証憑は所有者には引き続き
// 利用可能であり、アップロード全体を失敗させる理由にはならない。
// アップロード本体の失敗は致命的で、呼び出し元に伝播する。
func (u *Uploader) Upload(ctx context.Context, token, folderID, filename, mimeType string, content io.Reader) (*UploadResult, error) {
	name := fmt.Sprintf("%d_%s", u.now().UnixNano(), SanitizeFilename(filename))

	file, err := u.client.UploadMultipart(ctx, token, folderID, name, mimeType, content)
	if err != nil {
		return nil, fmt.Errorf("failed to upload evidence: %w", err)
	}

	if err := u.client.GrantAnyoneReader(ctx, token, file.ID); err != nil {
		u.logger.Warn("evidence permission grant failed, file remains owner-only",
			slog.String("file_id", file.ID),
			slog.String("error", err.Error()),
		)
	}

	return &UploadResult{
		FileID:     file.ID,
		PreviewURL: previewURL(file),
	}, nil
}

// previewURL は直接<img>として埋め込めるプレビューURLを導出する。
// サムネイルURLの末尾サイズ指定を大判（s1000）に書き換えたものを優先し、
// サムネイルが無い非画像ファイルのみ汎用の閲覧リンクにフォールバックする。
func previewURL(file *driveFile) string {
	if file.ThumbnailLink != "" {
		if thumbnailSizeParam.MatchString(file.ThumbnailLink) {
			return thumbnailSizeParam.ReplaceAllString(file.ThumbnailLink, "=s1000")
		}
		return file.ThumbnailLink
	}
	return file.WebViewLink
}
