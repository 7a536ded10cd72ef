// Package sheets はGoogle Sheets APIによるミラー行の追記と、
// スプレッドシート初期フォーマット、エクスポートURLの導出を提供する。
package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hitoshi/cobros/internal/model"
)

const defaultAPIBase = "https://sheets.googleapis.com/v4/spreadsheets"

// NoEvidencePlaceholder は証憑が無い場合にミラー行へ書くリテラル文字列。
// 空セルではなく明示的なプレースホルダーにすることで、下流のフィルタが
// 「証憑なし」と「未処理」を区別できる。
const NoEvidencePlaceholder = "SIN EVIDENCIA"

// Client はGoogle Sheets APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	apiBase    string // テスト用にエンドポイントを差し替え可能
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiBase:    defaultAPIBase,
	}
}

// googleAPIError はGoogle APIのエラーレスポンス。
type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// MirrorRow はレコードをシートの9列構成に射影する。
// 証憑は常に生のURL文字列で送る。=HYPERLINK()のような数式は引数区切りが
// ロケール依存（ESは';'、USは','）で壊れるため使わない。生URLは全ロケールで
// 一様に自動リンク化される。
func MirrorRow(record *model.RecordData) []any {
	evidencia := record.ImageURL
	if evidencia == "" {
		evidencia = NoEvidencePlaceholder
	}

	return []any{
		record.Fecha,
		record.UserID,
		record.UserName,
		strings.ToUpper(string(record.Type)),
		record.Cobrado.InexactFloat64(),
		record.Ingresado.InexactFloat64(),
		record.Diferencia.InexactFloat64(),
		evidencia,
		record.Observaciones,
	}
}

// AppendRow はレコードのミラー行をスプレッドシートに追記する。
// A1を起点とするオープンエンドな範囲に対して、バックエンド側の
// 「最終行の後に追記」のセマンティクスに依存する（行カーソルは持たない）。
// 失敗は必ず呼び出し元へ伝播する（このコンポーネントはエラーを握りつぶさない）。
func (c *Client) AppendRow(ctx context.Context, token, sheetID string, record *model.RecordData) error {
	payload, err := json.Marshal(map[string]any{
		"values": [][]any{MirrorRow(record)},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal append payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s/values/A1:append?valueInputOption=USER_ENTERED", c.apiBase, sheetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create append request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheets append request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.classifyError(resp)
	}

	return nil
}

// classifyError は非成功レスポンスをユーザー向けカテゴリに分類する。
// 権限不足・シート未検出（バインディング不整合）・汎用（ステータス+メッセージ）の3種。
func (c *Client) classifyError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	msg := resp.Status
	var apiErr googleAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	c.logger.Error("sheets api error",
		slog.Int("http_status", resp.StatusCode),
		slog.String("message", msg),
	)

	if resp.StatusCode == http.StatusForbidden || strings.Contains(msg, "insufficient permissions") {
		return model.NewSheetPermissionError()
	}
	if resp.StatusCode == http.StatusNotFound {
		return model.NewSheetNotFoundError()
	}
	return model.NewSheetGenericError(resp.StatusCode, msg)
}

// GetExportURL はスプレッドシートIDからxlsx形式のダウンロードURLを導出する。
// 純粋関数でネットワーク呼び出しは行わない。
func GetExportURL(sheetID string) string {
	return fmt.Sprintf("https://docs.google.com/spreadsheets/d/%s/export?format=xlsx", sheetID)
}
