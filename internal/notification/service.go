// Package notification はアプリ内通知の作成・参照ロジックを提供する。
package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/cobros/internal/model"
	"github.com/hitoshi/cobros/internal/repository"
)

// listLimit は1回の取得で返す通知の最大件数。
const listLimit = 50

// Service は通知のサービス層。
type Service struct {
	notifRepo repository.NotificationRepository
}

// NewService はServiceを生成する。
func NewService(notifRepo repository.NotificationRepository) *Service {
	return &Service{notifRepo: notifRepo}
}

// Notify はユーザー宛ての通知を作成する。
// 通知はあくまで付随情報であり、作成失敗は呼び出し元の操作を
// 失敗させない（ログのみ）。
func (s *Service) Notify(ctx context.Context, userID, title, message string, notifType model.NotificationType) {
	n := &model.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Message:   message,
		Type:      notifType,
		Read:      false,
		CreatedAt: time.Now(),
	}
	if err := s.notifRepo.Create(ctx, n); err != nil {
		slog.Warn("failed to create notification",
			slog.String("user_id", userID),
			slog.String("title", title),
			slog.String("error", err.Error()),
		)
	}
}

// List はユーザーの通知を新しい順に返す。
func (s *Service) List(ctx context.Context, userID string) ([]*model.Notification, error) {
	notifications, err := s.notifRepo.ListByUserID(ctx, userID, listLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead は指定通知を既読にする。
func (s *Service) MarkRead(ctx context.Context, id, userID string) error {
	if err := s.notifRepo.MarkRead(ctx, id, userID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}
