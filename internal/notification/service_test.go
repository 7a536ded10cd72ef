package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/hitoshi/cobros/internal/model"
)

// mockNotifRepo はrepository.NotificationRepositoryのモック実装。
type mockNotifRepo struct {
	createFn   func(ctx context.Context, n *model.Notification) error
	listFn     func(ctx context.Context, userID string, limit int) ([]*model.Notification, error)
	markReadFn func(ctx context.Context, id, userID string) error
	created    []*model.Notification
}

func (m *mockNotifRepo) Create(ctx context.Context, n *model.Notification) error {
	m.created = append(m.created, n)
	if m.createFn != nil {
		return m.createFn(ctx, n)
	}
	return nil
}

func (m *mockNotifRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockNotifRepo) MarkRead(ctx context.Context, id, userID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, id, userID)
	}
	return nil
}

func TestService_Notify_CreatesNotification(t *testing.T) {
	repo := &mockNotifRepo{}
	svc := NewService(repo)

	svc.Notify(context.Background(), "user-1", "Actualización de cuenta", "Tu cuenta ha sido aprobada.", model.NotificationSuccess)

	if len(repo.created) != 1 {
		t.Fatalf("created = %d, want 1", len(repo.created))
	}
	n := repo.created[0]
	if n.UserID != "user-1" || n.Type != model.NotificationSuccess || n.Read {
		t.Errorf("notification = %+v", n)
	}
	if n.ID == "" {
		t.Error("notification should get an ID")
	}
}

func TestService_Notify_FailureIsSwallowed(t *testing.T) {
	// 通知作成の失敗は呼び出し元の操作を失敗させない（パニックも起こさない）
	repo := &mockNotifRepo{
		createFn: func(ctx context.Context, n *model.Notification) error {
			return errors.New("db down")
		},
	}
	svc := NewService(repo)

	svc.Notify(context.Background(), "user-1", "titulo", "mensaje", model.NotificationInfo)
}

func TestService_List_UsesLimit(t *testing.T) {
	var gotLimit int
	repo := &mockNotifRepo{
		listFn: func(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
			gotLimit = limit
			return []*model.Notification{{ID: "n-1", UserID: userID}}, nil
		},
	}
	svc := NewService(repo)

	notifications, err := svc.List(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(notifications) != 1 {
		t.Errorf("notifications = %d, want 1", len(notifications))
	}
	if gotLimit != 50 {
		t.Errorf("limit = %d, want 50", gotLimit)
	}
}

func TestService_MarkRead_PropagatesFailure(t *testing.T) {
	repo := &mockNotifRepo{
		markReadFn: func(ctx context.Context, id, userID string) error {
			return errors.New("db down")
		},
	}
	svc := NewService(repo)

	if err := svc.MarkRead(context.Background(), "n-1", "user-1"); err == nil {
		t.Fatal("expected error when repository fails")
	}
}
