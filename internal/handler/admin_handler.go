package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/cobros/internal/admin"
	"github.com/hitoshi/cobros/internal/middleware"
	"github.com/hitoshi/cobros/internal/model"
)

// AdminServiceInterface は管理ハンドラーが必要とするサービスインターフェース。
type AdminServiceInterface interface {
	ListUsers(ctx context.Context) ([]*model.UserProfile, error)
	ListLogs(ctx context.Context) ([]*model.SystemLog, error)
	Perform(ctx context.Context, actorID, targetID string, action admin.Action, value bool) error
}

// AdminHandler はユーザー管理のHTTPハンドラー。管理者ロールが前提。
type AdminHandler struct {
	service AdminServiceInterface
}

// NewAdminHandler はAdminHandlerを生成する。
func NewAdminHandler(service AdminServiceInterface) *AdminHandler {
	return &AdminHandler{service: service}
}

// adminUserResponse はユーザー一覧のAPIレスポンス。
type adminUserResponse struct {
	ID              string `json:"id"`
	Email           string `json:"email"`
	Name            string `json:"name"`
	Role            string `json:"role"`
	Approved        bool   `json:"approved"`
	Blocked         bool   `json:"blocked"`
	DriveConfigured bool   `json:"drive_configured"`
	CreatedAt       string `json:"created_at"`
}

// systemLogResponse は監査ログのAPIレスポンス。
type systemLogResponse struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Action    string `json:"action"`
	Details   string `json:"details"`
	Timestamp string `json:"timestamp"`
}

// actionRequest は管理操作リクエストのボディ。
// valueを省略した場合はtrue（承認・ブロック・昇格）として扱う。
type actionRequest struct {
	Value *bool `json:"value"`
}

// ListUsers は全ユーザーの一覧を返す。
// GET /api/admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]adminUserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, adminUserResponse{
			ID:              u.ID,
			Email:           u.Email,
			Name:            u.DisplayName,
			Role:            string(u.Role),
			Approved:        u.Approved,
			Blocked:         u.Blocked,
			DriveConfigured: u.Drive.Complete(),
			CreatedAt:       u.CreatedAt.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"users": resp})
}

// ListLogs は最新の監査ログを返す。
// GET /api/admin/logs
func (h *AdminHandler) ListLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.service.ListLogs(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	resp := make([]systemLogResponse, 0, len(logs))
	for _, l := range logs {
		resp = append(resp, systemLogResponse{
			ID:        l.ID,
			UserID:    l.UserID,
			Action:    l.Action,
			Details:   l.Details,
			Timestamp: l.Timestamp.Format(time.RFC3339),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"logs": resp})
}

// Approve はユーザーの承認状態を変更する。
// POST /api/admin/users/{id}/approve
func (h *AdminHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.perform(w, r, admin.ActionApprove)
}

// Block はユーザーのブロック状態を変更する。
// POST /api/admin/users/{id}/block
func (h *AdminHandler) Block(w http.ResponseWriter, r *http.Request) {
	h.perform(w, r, admin.ActionBlock)
}

// Promote はユーザーのロールを変更する。
// POST /api/admin/users/{id}/promote
func (h *AdminHandler) Promote(w http.ResponseWriter, r *http.Request) {
	h.perform(w, r, admin.ActionPromote)
}

// perform は3種の管理操作に共通する処理。
// 操作者自身を対象とするリクエストはサービス層で一切の変更前に拒否される。
func (h *AdminHandler) perform(w http.ResponseWriter, r *http.Request, action admin.Action) {
	actor, err := middleware.ProfileFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	targetID := chi.URLParam(r, "id")

	value := true
	if r.Body != nil && r.ContentLength != 0 {
		var req actionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, &model.APIError{
				Code:     "INVALID_REQUEST",
				Message:  "No se pudo interpretar el cuerpo de la solicitud.",
				Category: "validation",
				Action:   "Envía un JSON válido.",
			})
			return
		}
		if req.Value != nil {
			value = *req.Value
		}
	}

	if err := h.service.Perform(r.Context(), actor.ID, targetID, action, value); err != nil {
		handleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
