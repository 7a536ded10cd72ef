// Package drive はGoogle Drive REST APIのクライアントと、
// ユーザーごとのフォルダ/スプレッドシート構造のプロビジョニング、
// 証憑ファイルのアップロードを提供する。
// 全ての操作は呼び出し側が渡す委譲bearerトークンで認可され、
// このパッケージ自身は認証を行わない。
package drive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
)

const (
	defaultAPIBase    = "https://www.googleapis.com/drive/v3"
	defaultUploadBase = "https://www.googleapis.com/upload/drive/v3/files"

	folderMimeType      = "application/vnd.google-apps.folder"
	spreadsheetMimeType = "application/vnd.google-apps.spreadsheet"
)

// Client はGoogle Drive APIのクライアント。
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	// テスト用にエンドポイントを差し替え可能
	apiBase    string
	uploadBase string
}

// NewClient はClientの新しいインスタンスを生成する。
func NewClient(httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     logger,
		apiBase:    defaultAPIBase,
		uploadBase: defaultUploadBase,
	}
}

// driveFile はDrive APIのファイルリソースの必要部分。
type driveFile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ThumbnailLink string `json:"thumbnailLink"`
	WebViewLink   string `json:"webViewLink"`
}

type driveFileList struct {
	Files []driveFile `json:"files"`
}

// escapeQueryValue はDriveの検索クエリ内のシングルクォートをエスケープする。
func escapeQueryValue(v string) string {
	return strings.ReplaceAll(v, "'", `\'`)
}

// findByQuery は検索クエリに一致する最初のファイルIDを返す。
// 一致がない場合は空文字列を返す。
func (c *Client) findByQuery(ctx context.Context, token, q string) (string, error) {
	reqURL := fmt.Sprintf("%s/files?q=%s&fields=%s",
		c.apiBase, url.QueryEscape(q), url.QueryEscape("files(id,name)"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create search request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("drive search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read drive search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drive search failed with status %d: %s", resp.StatusCode, string(body))
	}

	var list driveFileList
	if err := json.Unmarshal(body, &list); err != nil {
		return "", fmt.Errorf("failed to parse drive search response: %w", err)
	}

	if len(list.Files) == 0 {
		return "", nil
	}
	return list.Files[0].ID, nil
}

// FindFolder は名前（および親フォルダ）でゴミ箱外のフォルダを検索する。
// 見つからない場合は空文字列を返す。parentIDが空の場合は親条件なしで検索する。
func (c *Client) FindFolder(ctx context.Context, token, name, parentID string) (string, error) {
	qParts := []string{
		fmt.Sprintf("mimeType='%s'", folderMimeType),
		fmt.Sprintf("name='%s'", escapeQueryValue(name)),
		"trashed=false",
	}
	if parentID != "" {
		qParts = append(qParts, fmt.Sprintf("'%s' in parents", parentID))
	}
	return c.findByQuery(ctx, token, strings.Join(qParts, " and "))
}

// FindSpreadsheet は名前と親フォルダでゴミ箱外のスプレッドシートを検索する。
// 見つからない場合は空文字列を返す。
func (c *Client) FindSpreadsheet(ctx context.Context, token, name, parentID string) (string, error) {
	qParts := []string{
		fmt.Sprintf("mimeType='%s'", spreadsheetMimeType),
		fmt.Sprintf("name='%s'", escapeQueryValue(name)),
		"trashed=false",
		fmt.Sprintf("'%s' in parents", parentID),
	}
	return c.findByQuery(ctx, token, strings.Join(qParts, " and "))
}

// create はDriveにファイルリソースを作成し、そのIDを返す。
func (c *Client) create(ctx context.Context, token, name, mimeType, parentID string) (string, error) {
	meta := map[string]any{
		"name":     name,
		"mimeType": mimeType,
	}
	if parentID != "" {
		meta["parents"] = []string{parentID}
	}

	payload, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("failed to marshal metadata: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiBase+"/files", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("drive create request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read drive create response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("drive create failed with status %d: %s", resp.StatusCode, string(body))
	}

	var file driveFile
	if err := json.Unmarshal(body, &file); err != nil {
		return "", fmt.Errorf("failed to parse drive create response: %w", err)
	}
	if file.ID == "" {
		return "", fmt.Errorf("drive create returned empty id")
	}

	return file.ID, nil
}

// CreateFolder はフォルダを作成し、そのIDを返す。
func (c *Client) CreateFolder(ctx context.Context, token, name, parentID string) (string, error) {
	return c.create(ctx, token, name, folderMimeType, parentID)
}

// CreateSpreadsheet は指定フォルダ配下にスプレッドシートを作成し、そのIDを返す。
func (c *Client) CreateSpreadsheet(ctx context.Context, token, name, parentID string) (string, error) {
	return c.create(ctx, token, name, spreadsheetMimeType, parentID)
}

// UploadMultipart はメタデータとバイナリをmultipart/relatedで1リクエスト送信し、
// 作成されたファイルのid/thumbnailLink/webViewLinkを返す。
func (c *Client) UploadMultipart(ctx context.Context, token, folderID, filename, mimeType string, content io.Reader) (*driveFile, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	metaHeader := textproto.MIMEHeader{}
	metaHeader.Set("Content-Type", "application/json; charset=UTF-8")
	metaPart, err := mw.CreatePart(metaHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create metadata part: %w", err)
	}
	meta := map[string]any{
		"name":    filename,
		"parents": []string{folderID},
	}
	if err := json.NewEncoder(metaPart).Encode(meta); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}

	fileHeader := textproto.MIMEHeader{}
	fileHeader.Set("Content-Type", mimeType)
	filePart, err := mw.CreatePart(fileHeader)
	if err != nil {
		return nil, fmt.Errorf("failed to create file part: %w", err)
	}
	if _, err := io.Copy(filePart, content); err != nil {
		return nil, fmt.Errorf("failed to copy file content: %w", err)
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	reqURL := c.uploadBase + "?uploadType=multipart&fields=" +
		url.QueryEscape("id,thumbnailLink,webViewLink")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "multipart/related; boundary="+mw.Boundary())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("drive upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("drive upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	var file driveFile
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("failed to parse upload response: %w", err)
	}
	if file.ID == "" {
		return nil, fmt.Errorf("drive upload returned empty id")
	}

	return &file, nil
}

// GrantAnyoneReader はファイルに「リンクを知っている全員が閲覧可」の権限を付与する。
func (c *Client) GrantAnyoneReader(ctx context.Context, token, fileID string) error {
	payload := []byte(`{"role":"reader","type":"anyone"}`)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/files/%s/permissions", c.apiBase, fileID), bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create permission request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("permission request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("permission grant failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}
