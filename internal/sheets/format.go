package sheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// headerTitles はミラーシートの9列の見出し。MirrorRowの列順と一致する。
var headerTitles = []string{
	"FECHA", "USUARIO ID", "USUARIO", "TIPO",
	"COBRADO", "INGRESADO", "DIFERENCIA", "EVIDENCIA", "OBSERVACIONES",
}

// totalsFormulas は合計行の数式。金額3列（E, F, G）について、
// 3行目以降のオープンエンドな範囲を合計する。
var totalsFormulas = map[int]string{
	4: "=SUM(E3:E)",
	5: "=SUM(F3:F)",
	6: "=SUM(G3:G)",
}

// InitializeHeader は新規スプレッドシートに見出し行と合計行を書き込み、
// 両行を太字にして先頭2行を固定する。
// スプレッドシートの新規作成時に1回だけ呼ばれる。既存シートに対しては
// 呼び出さないことで冪等性を保つ（プロビジョナー側が制御する）。
func (c *Client) InitializeHeader(ctx context.Context, token, sheetID string) error {
	headerCells := make([]map[string]any, 0, len(headerTitles))
	for _, title := range headerTitles {
		headerCells = append(headerCells, boldStringCell(title))
	}

	totalsCells := make([]map[string]any, 0, len(headerTitles))
	for i := range headerTitles {
		if formula, ok := totalsFormulas[i]; ok {
			totalsCells = append(totalsCells, boldFormulaCell(formula))
			continue
		}
		if i == 0 {
			totalsCells = append(totalsCells, boldStringCell("TOTALES"))
			continue
		}
		totalsCells = append(totalsCells, boldStringCell(""))
	}

	requests := []map[string]any{
		{
			"updateCells": map[string]any{
				"start": map[string]any{
					"sheetId":     0,
					"rowIndex":    0,
					"columnIndex": 0,
				},
				"rows": []map[string]any{
					{"values": headerCells},
					{"values": totalsCells},
				},
				"fields": "userEnteredValue,userEnteredFormat.textFormat.bold",
			},
		},
		{
			"updateSheetProperties": map[string]any{
				"properties": map[string]any{
					"sheetId": 0,
					"gridProperties": map[string]any{
						"frozenRowCount": 2,
					},
				},
				"fields": "gridProperties.frozenRowCount",
			},
		},
	}

	payload, err := json.Marshal(map[string]any{"requests": requests})
	if err != nil {
		return fmt.Errorf("failed to marshal batch update payload: %w", err)
	}

	reqURL := fmt.Sprintf("%s/%s:batchUpdate", c.apiBase, sheetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create batch update request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheets batch update request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("sheets batch update failed with status %d: %s", resp.StatusCode, string(body))
	}

	return nil
}

func boldStringCell(value string) map[string]any {
	return map[string]any{
		"userEnteredValue":  map[string]any{"stringValue": value},
		"userEnteredFormat": map[string]any{"textFormat": map[string]any{"bold": true}},
	}
}

func boldFormulaCell(formula string) map[string]any {
	return map[string]any{
		"userEnteredValue":  map[string]any{"formulaValue": formula},
		"userEnteredFormat": map[string]any{"textFormat": map[string]any{"bold": true}},
	}
}
