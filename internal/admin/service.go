// Package admin はユーザー承認・ブロック・昇格の管理ロジックを提供する。
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/cobros/internal/model"
	"github.com/hitoshi/cobros/internal/repository"
)

// Action は管理操作の種別。
type Action string

const (
	ActionApprove Action = "approve"
	ActionBlock   Action = "block"
	ActionPromote Action = "promote"
)

// Valid は操作種別が既知のものかを返す。
func (a Action) Valid() bool {
	return a == ActionApprove || a == ActionBlock || a == ActionPromote
}

// Service は管理操作のサービス層。
// 全ての操作は対象ユーザーへの通知と監査ログの書き込みを伴う。
type Service struct {
	userRepo  repository.UserRepository
	notifRepo repository.NotificationRepository
	logRepo   repository.SystemLogRepository
}

// NewService はServiceを生成する。
func NewService(
	userRepo repository.UserRepository,
	notifRepo repository.NotificationRepository,
	logRepo repository.SystemLogRepository,
) *Service {
	return &Service{
		userRepo:  userRepo,
		notifRepo: notifRepo,
		logRepo:   logRepo,
	}
}

// ListUsers は全ユーザーを返す。
func (s *Service) ListUsers(ctx context.Context) ([]*model.UserProfile, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// ListLogs は最新50件の監査ログを返す。
func (s *Service) ListLogs(ctx context.Context) ([]*model.SystemLog, error) {
	logs, err := s.logRepo.ListRecent(ctx, 50)
	if err != nil {
		return nil, fmt.Errorf("failed to list system logs: %w", err)
	}
	return logs, nil
}

// Perform は管理操作を実行する。
// 自分自身を対象とする操作は、操作種別を問わず、ストアへの一切の
// 変更の前に拒否される。
// 通知・監査ログの書き込み失敗は操作自体を失敗させない（ログのみ）。
func (s *Service) Perform(ctx context.Context, actorID, targetID string, action Action, value bool) error {
	if targetID == actorID {
		return model.NewSelfActionForbiddenError()
	}
	if !action.Valid() {
		return fmt.Errorf("unknown admin action: %s", action)
	}

	target, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("failed to find target user: %w", err)
	}
	if target == nil {
		return model.NewUserNotFoundError(targetID)
	}

	var logMsg, notifMsg string
	notifType := model.NotificationWarning
	if value {
		notifType = model.NotificationSuccess
	}

	switch action {
	case ActionApprove:
		if err := s.userRepo.SetApproved(ctx, targetID, value); err != nil {
			return fmt.Errorf("failed to set approved: %w", err)
		}
		if value {
			logMsg = "Usuario aprobado"
			notifMsg = "Tu cuenta ha sido aprobada."
		} else {
			logMsg = "Usuario desaprobado"
			notifMsg = "Tu cuenta ha sido desaprobada."
		}

	case ActionBlock:
		if err := s.userRepo.SetBlocked(ctx, targetID, value); err != nil {
			return fmt.Errorf("failed to set blocked: %w", err)
		}
		if value {
			logMsg = "Usuario bloqueado"
			notifMsg = "Tu cuenta ha sido bloqueada por un administrador."
		} else {
			logMsg = "Usuario desbloqueado"
			notifMsg = "Tu cuenta ha sido desbloqueada."
		}

	case ActionPromote:
		role := model.RoleUser
		if value {
			role = model.RoleAdmin
		}
		if err := s.userRepo.SetRole(ctx, targetID, role); err != nil {
			return fmt.Errorf("failed to set role: %w", err)
		}
		if value {
			logMsg = "Promovido a Admin"
			notifMsg = "Se te han otorgado permisos de Administrador."
		} else {
			logMsg = "Degradado a User"
			notifMsg = "Se te han revocado los permisos de Administrador."
		}
	}

	s.notify(ctx, targetID, notifMsg, notifType)
	s.audit(ctx, actorID, targetID, action, logMsg)

	slog.Info("admin action performed",
		slog.String("actor_id", actorID),
		slog.String("target_id", targetID),
		slog.String("action", string(action)),
		slog.Bool("value", value),
	)

	return nil
}

// notify は対象ユーザーへアカウント更新通知を作成する。失敗はログのみ。
func (s *Service) notify(ctx context.Context, targetID, message string, notifType model.NotificationType) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    targetID,
		Title:     "Actualización de cuenta",
		Message:   message,
		Type:      notifType,
		Read:      false,
		CreatedAt: time.Now(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		slog.Warn("failed to create account notification",
			slog.String("target_id", targetID),
			slog.String("error", err.Error()),
		)
	}
}

// audit は監査ログを追記する。失敗はログのみ。
func (s *Service) audit(ctx context.Context, actorID, targetID string, action Action, detail string) {
	entry := &model.SystemLog{
		ID:        uuid.New().String(),
		UserID:    actorID,
		Action:    "ADMIN_" + strings.ToUpper(string(action)),
		Details:   fmt.Sprintf("Target: %s - %s", targetID, detail),
		Timestamp: time.Now(),
	}
	if err := s.logRepo.Create(ctx, entry); err != nil {
		slog.Warn("failed to write system log",
			slog.String("actor_id", actorID),
			slog.String("error", err.Error()),
		)
	}
}
