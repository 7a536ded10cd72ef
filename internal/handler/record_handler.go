package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hitoshi/cobros/internal/middleware"
	"github.com/hitoshi/cobros/internal/model"
	"github.com/hitoshi/cobros/internal/record"
)

// RecordServiceInterface はレコードハンドラーが必要とするサービスインターフェース。
type RecordServiceInterface interface {
	Create(ctx context.Context, input record.Input, file *record.EvidenceFile, user *model.UserProfile, token string) (*model.RecordData, error)
	List(ctx context.Context, userID, start, end string) ([]*model.RecordData, error)
	Totals(ctx context.Context, userID, start, end string) (*model.RecordTotals, error)
	ExportURL(user *model.UserProfile) (string, error)
}

// RecordHandler はレコード送信・参照のHTTPハンドラー。
type RecordHandler struct {
	service       RecordServiceInterface
	uploadMaxSize int64
}

// NewRecordHandler はRecordHandlerを生成する。
func NewRecordHandler(service RecordServiceInterface, uploadMaxSize int64) *RecordHandler {
	return &RecordHandler{
		service:       service,
		uploadMaxSize: uploadMaxSize,
	}
}

// recordResponse はレコードのAPIレスポンス。
// 金額はJSONの浮動小数点誤差を避けるため文字列で返す。
type recordResponse struct {
	ID            string `json:"id"`
	Fecha         string `json:"fecha"`
	Cobrado       string `json:"cobrado"`
	Ingresado     string `json:"ingresado"`
	Diferencia    string `json:"diferencia"`
	Observaciones string `json:"observaciones,omitempty"`
	UserID        string `json:"user_id"`
	UserName      string `json:"user_name"`
	Type          string `json:"type"`
	ImageURL      string `json:"image_url,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// totalsResponse は集計値のAPIレスポンス。
type totalsResponse struct {
	TotalCobrado    string `json:"total_cobrado"`
	TotalIngresado  string `json:"total_ingresado"`
	TotalDiferencia string `json:"total_diferencia"`
}

// Create はレコード送信を処理する。multipart/form-dataを受け付ける。
// POST /api/records
//
// フィールド: fecha, cobrado, ingresado, observaciones, tipo
// ファイル: evidencia（任意。image/*のみ、最大サイズは設定値）
//
// ミラー追記だけが失敗した場合でもレコードは保存済みなので、
// 201とともに保存済みレコードと警告を返す。
func (h *RecordHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}
	session, err := middleware.SessionFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	// multipart全体のサイズ上限: ファイル上限 + フォームフィールド余裕分
	r.Body = http.MaxBytesReader(w, r.Body, h.uploadMaxSize+64*1024)
	if err := r.ParseMultipartForm(h.uploadMaxSize); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge, model.NewFileTooLargeError())
			return
		}
		middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
			Code:     "INVALID_REQUEST",
			Message:  "No se pudo procesar el formulario.",
			Category: "validation",
			Action:   "Envía el formulario como multipart/form-data.",
		})
		return
	}

	input, apiErr := parseRecordInput(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}

	file, apiErr := h.parseEvidenceFile(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}
	if file != nil {
		if closer, ok := file.Content.(io.Closer); ok {
			defer closer.Close()
		}
	}

	rec, err := h.service.Create(r.Context(), *input, file, user, session.AccessToken)
	if err != nil {
		// レコードが返っている場合はミラー失敗: 保存自体は成功している
		if rec != nil {
			var mirrorErr *model.APIError
			if !errors.As(err, &mirrorErr) {
				mirrorErr = model.NewMirrorFailedError(err.Error())
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			json.NewEncoder(w).Encode(map[string]any{
				"record": toRecordResponse(rec),
				"warning": middleware.ErrorResponseBody{
					Code:     mirrorErr.Code,
					Message:  mirrorErr.Message,
					Category: mirrorErr.Category,
					Action:   mirrorErr.Action,
				},
			})
			return
		}
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"record": toRecordResponse(rec),
	})
}

// List はユーザー自身のレコード一覧を返す。
// GET /api/records?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *RecordHandler) List(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	start, end, apiErr := parseDateRange(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	records, err := h.service.List(r.Context(), user.ID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]recordResponse, 0, len(records))
	for _, rec := range records {
		resp = append(resp, toRecordResponse(rec))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"records": resp})
}

// Totals はダッシュボード用の集計値を返す。
// GET /api/records/totals?start=YYYY-MM-DD&end=YYYY-MM-DD
func (h *RecordHandler) Totals(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	start, end, apiErr := parseDateRange(r)
	if apiErr != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
		return
	}

	totals, err := h.service.Totals(r.Context(), user.ID, start, end)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(totalsResponse{
		TotalCobrado:    totals.TotalCobrado.StringFixed(2),
		TotalIngresado:  totals.TotalIngresado.StringFixed(2),
		TotalDiferencia: totals.TotalDiferencia.StringFixed(2),
	})
}

// Export はユーザーのミラーシートのエクスポートURLを返す。
// GET /api/export
func (h *RecordHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	url, err := h.service.ExportURL(user)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"url": url})
}

// parseRecordInput はフォームフィールドを検証しサービス入力に変換する。
func parseRecordInput(r *http.Request) (*record.Input, *model.APIError) {
	fecha := r.FormValue("fecha")
	if _, err := time.Parse("2006-01-02", fecha); err != nil {
		return nil, model.NewInvalidDateError(fecha)
	}

	recType := model.RecordType(r.FormValue("tipo"))
	if !recType.Valid() {
		return nil, model.NewInvalidTypeError(r.FormValue("tipo"))
	}

	cobrado, err := parseAmount(r.FormValue("cobrado"))
	if err != nil {
		return nil, model.NewInvalidAmountError()
	}
	ingresado, err := parseAmount(r.FormValue("ingresado"))
	if err != nil {
		return nil, model.NewInvalidAmountError()
	}

	// 少なくとも一方の金額が正であること
	if !cobrado.IsPositive() && !ingresado.IsPositive() {
		return nil, model.NewInvalidAmountError()
	}
	if cobrado.IsNegative() || ingresado.IsNegative() {
		return nil, model.NewInvalidAmountError()
	}

	return &record.Input{
		Fecha:         fecha,
		Cobrado:       cobrado,
		Ingresado:     ingresado,
		Observaciones: r.FormValue("observaciones"),
		Type:          recType,
	}, nil
}

// parseAmount は金額フィールドをdecimalに変換する。空はゼロとして扱う。
func parseAmount(value string) (decimal.Decimal, error) {
	if strings.TrimSpace(value) == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(strings.TrimSpace(value))
}

// parseEvidenceFile は証憑ファイルを検証して取り出す。添付が無ければnilを返す。
func (h *RecordHandler) parseEvidenceFile(r *http.Request) (*record.EvidenceFile, *model.APIError) {
	file, header, err := r.FormFile("evidencia")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, model.NewInvalidFileTypeError("desconocido")
	}

	if header.Size > h.uploadMaxSize {
		file.Close()
		return nil, model.NewFileTooLargeError()
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		file.Close()
		return nil, model.NewInvalidFileTypeError(mimeType)
	}

	return &record.EvidenceFile{
		Name:     header.Filename,
		MimeType: mimeType,
		Content:  file,
	}, nil
}

// parseDateRange はクエリパラメータの日付範囲を検証する。双方必須。
func parseDateRange(r *http.Request) (string, string, *model.APIError) {
	start := r.URL.Query().Get("start")
	end := r.URL.Query().Get("end")

	if _, err := time.Parse("2006-01-02", start); err != nil {
		return "", "", model.NewInvalidDateError(start)
	}
	if _, err := time.Parse("2006-01-02", end); err != nil {
		return "", "", model.NewInvalidDateError(end)
	}

	return start, end, nil
}

// toRecordResponse はmodel.RecordDataからAPIレスポンスに変換する。
func toRecordResponse(rec *model.RecordData) recordResponse {
	return recordResponse{
		ID:            rec.ID,
		Fecha:         rec.Fecha,
		Cobrado:       rec.Cobrado.StringFixed(2),
		Ingresado:     rec.Ingresado.StringFixed(2),
		Diferencia:    rec.Diferencia.StringFixed(2),
		Observaciones: rec.Observaciones,
		UserID:        rec.UserID,
		UserName:      rec.UserName,
		Type:          string(rec.Type),
		ImageURL:      rec.ImageURL,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339),
	}
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		middleware.WriteErrorResponse(w, middleware.StatusForAPIError(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}
