package admin

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hitoshi/cobros/internal/model"
)

// --- モック定義 ---

// mockUserRepo はrepository.UserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFn    func(ctx context.Context, id string) (*model.UserProfile, error)
	listFn        func(ctx context.Context) ([]*model.UserProfile, error)
	setApprovedFn func(ctx context.Context, userID string, approved bool) error
	setBlockedFn  func(ctx context.Context, userID string, blocked bool) error
	setRoleFn     func(ctx context.Context, userID string, role model.Role) error

	mutations int
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.UserProfile, identity *model.Identity) error {
	return nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.UserProfile, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateDriveConfig(ctx context.Context, userID string, cfg *model.DriveConfig) error {
	m.mutations++
	return nil
}

func (m *mockUserRepo) SetApproved(ctx context.Context, userID string, approved bool) error {
	m.mutations++
	if m.setApprovedFn != nil {
		return m.setApprovedFn(ctx, userID, approved)
	}
	return nil
}

func (m *mockUserRepo) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	m.mutations++
	if m.setBlockedFn != nil {
		return m.setBlockedFn(ctx, userID, blocked)
	}
	return nil
}

func (m *mockUserRepo) SetRole(ctx context.Context, userID string, role model.Role) error {
	m.mutations++
	if m.setRoleFn != nil {
		return m.setRoleFn(ctx, userID, role)
	}
	return nil
}

func (m *mockUserRepo) ListNeedingProvision(ctx context.Context) ([]*model.UserProfile, error) {
	return nil, nil
}

// mockNotifRepo はrepository.NotificationRepositoryのモック実装。
type mockNotifRepo struct {
	created []*model.Notification
}

func (m *mockNotifRepo) Create(ctx context.Context, n *model.Notification) error {
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotifRepo) ListByUserID(ctx context.Context, userID string, limit int) ([]*model.Notification, error) {
	return nil, nil
}

func (m *mockNotifRepo) MarkRead(ctx context.Context, id, userID string) error {
	return nil
}

// mockLogRepo はrepository.SystemLogRepositoryのモック実装。
type mockLogRepo struct {
	created []*model.SystemLog
}

func (m *mockLogRepo) Create(ctx context.Context, log *model.SystemLog) error {
	m.created = append(m.created, log)
	return nil
}

func (m *mockLogRepo) ListRecent(ctx context.Context, limit int) ([]*model.SystemLog, error) {
	return nil, nil
}

// --- テストヘルパー ---

func targetUser() *model.UserProfile {
	return &model.UserProfile{
		ID:          "target-1",
		Email:       "pedro@example.com",
		DisplayName: "Pedro",
		Role:        model.RoleUser,
	}
}

func newTestService(userRepo *mockUserRepo, notifRepo *mockNotifRepo, logRepo *mockLogRepo) *Service {
	return NewService(userRepo, notifRepo, logRepo)
}

// --- Perform テスト ---

func TestService_Perform_SelfActionRejectedBeforeMutation(t *testing.T) {
	// 3種すべての操作で、自己対象はストア変更前に拒否されること
	for _, action := range []Action{ActionApprove, ActionBlock, ActionPromote} {
		t.Run(string(action), func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
					t.Error("FindByID should not be reached for self-targeted action")
					return targetUser(), nil
				},
			}
			notifRepo := &mockNotifRepo{}
			logRepo := &mockLogRepo{}
			svc := newTestService(userRepo, notifRepo, logRepo)

			err := svc.Perform(context.Background(), "admin-1", "admin-1", action, true)

			var apiErr *model.APIError
			if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeSelfActionForbidden {
				t.Fatalf("expected SELF_ACTION_FORBIDDEN, got %v", err)
			}
			if userRepo.mutations != 0 {
				t.Error("no store mutation should occur")
			}
			if len(notifRepo.created) != 0 {
				t.Error("no notification should be created")
			}
			if len(logRepo.created) != 0 {
				t.Error("no audit log should be written")
			}
		})
	}
}

func TestService_Perform_TargetNotFound(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
			return nil, nil
		},
	}
	svc := newTestService(userRepo, &mockNotifRepo{}, &mockLogRepo{})

	err := svc.Perform(context.Background(), "admin-1", "missing", ActionApprove, true)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != model.ErrCodeUserNotFound {
		t.Fatalf("expected USER_NOT_FOUND, got %v", err)
	}
	if userRepo.mutations != 0 {
		t.Error("no store mutation should occur")
	}
}

func TestService_Perform_Approve(t *testing.T) {
	var gotUserID string
	var gotApproved bool
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
			return targetUser(), nil
		},
		setApprovedFn: func(ctx context.Context, userID string, approved bool) error {
			gotUserID = userID
			gotApproved = approved
			return nil
		},
	}
	notifRepo := &mockNotifRepo{}
	logRepo := &mockLogRepo{}
	svc := newTestService(userRepo, notifRepo, logRepo)

	if err := svc.Perform(context.Background(), "admin-1", "target-1", ActionApprove, true); err != nil {
		t.Fatalf("Perform returned error: %v", err)
	}

	if gotUserID != "target-1" || !gotApproved {
		t.Errorf("SetApproved(%q, %v)", gotUserID, gotApproved)
	}

	// 対象ユーザーへの通知
	if len(notifRepo.created) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notifRepo.created))
	}
	if notifRepo.created[0].UserID != "target-1" {
		t.Errorf("notification target = %q", notifRepo.created[0].UserID)
	}
	if notifRepo.created[0].Type != model.NotificationSuccess {
		t.Errorf("notification type = %q", notifRepo.created[0].Type)
	}

	// 監査ログ
	if len(logRepo.created) != 1 {
		t.Fatalf("audit logs = %d, want 1", len(logRepo.created))
	}
	if logRepo.created[0].Action != "ADMIN_APPROVE" {
		t.Errorf("audit action = %q, want ADMIN_APPROVE", logRepo.created[0].Action)
	}
	if logRepo.created[0].UserID != "admin-1" {
		t.Errorf("audit actor = %q", logRepo.created[0].UserID)
	}
}

func TestService_Perform_BlockAndUnblock(t *testing.T) {
	tests := []struct {
		name       string
		value      bool
		wantType   model.NotificationType
		wantAction string
	}{
		{"block", true, model.NotificationSuccess, "ADMIN_BLOCK"},
		{"unblock", false, model.NotificationWarning, "ADMIN_BLOCK"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userRepo := &mockUserRepo{
				findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
					return targetUser(), nil
				},
			}
			notifRepo := &mockNotifRepo{}
			logRepo := &mockLogRepo{}
			svc := newTestService(userRepo, notifRepo, logRepo)

			if err := svc.Perform(context.Background(), "admin-1", "target-1", ActionBlock, tt.value); err != nil {
				t.Fatalf("Perform returned error: %v", err)
			}
			if logRepo.created[0].Action != tt.wantAction {
				t.Errorf("audit action = %q", logRepo.created[0].Action)
			}
		})
	}
}

func TestService_Perform_PromoteSetsRole(t *testing.T) {
	var gotRole model.Role
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
			return targetUser(), nil
		},
		setRoleFn: func(ctx context.Context, userID string, role model.Role) error {
			gotRole = role
			return nil
		},
	}
	svc := newTestService(userRepo, &mockNotifRepo{}, &mockLogRepo{})

	if err := svc.Perform(context.Background(), "admin-1", "target-1", ActionPromote, true); err != nil {
		t.Fatalf("Perform returned error: %v", err)
	}
	if gotRole != model.RoleAdmin {
		t.Errorf("role = %q, want admin", gotRole)
	}

	if err := svc.Perform(context.Background(), "admin-1", "target-1", ActionPromote, false); err != nil {
		t.Fatalf("Perform returned error: %v", err)
	}
	if gotRole != model.RoleUser {
		t.Errorf("role = %q, want user", gotRole)
	}
}

func TestService_Perform_MutationFailurePropagates(t *testing.T) {
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
			return targetUser(), nil
		},
		setApprovedFn: func(ctx context.Context, userID string, approved bool) error {
			return fmt.Errorf("db down")
		},
	}
	notifRepo := &mockNotifRepo{}
	svc := newTestService(userRepo, notifRepo, &mockLogRepo{})

	if err := svc.Perform(context.Background(), "admin-1", "target-1", ActionApprove, true); err == nil {
		t.Fatal("expected error when mutation fails")
	}
	if len(notifRepo.created) != 0 {
		t.Error("no notification should be sent when mutation fails")
	}
}

func TestService_Perform_UnknownAction(t *testing.T) {
	svc := newTestService(&mockUserRepo{}, &mockNotifRepo{}, &mockLogRepo{})

	if err := svc.Perform(context.Background(), "admin-1", "target-1", Action("delete"), true); err == nil {
		t.Fatal("expected error for unknown action")
	}
}
