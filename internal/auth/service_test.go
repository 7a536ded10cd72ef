package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/cobros/internal/model"
)

// --- モック定義 ---

// mockOAuthProvider はOAuthProviderのモック実装。
type mockOAuthProvider struct {
	exchangeCodeFn func(ctx context.Context, code string) (*OAuthUserInfo, error)
}

func (m *mockOAuthProvider) GetLoginURL(state string) string {
	return "https://accounts.example.com/auth?state=" + state
}

func (m *mockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error) {
	if m.exchangeCodeFn != nil {
		return m.exchangeCodeFn(ctx, code)
	}
	return sampleUserInfo(), nil
}

// mockUserRepo はrepository.UserRepositoryのモック実装。
type mockUserRepo struct {
	findByIDFn           func(ctx context.Context, id string) (*model.UserProfile, error)
	createWithIdentityFn func(ctx context.Context, user *model.UserProfile, identity *model.Identity) error
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*model.UserProfile, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateWithIdentity(ctx context.Context, user *model.UserProfile, identity *model.Identity) error {
	if m.createWithIdentityFn != nil {
		return m.createWithIdentityFn(ctx, user, identity)
	}
	return nil
}

func (m *mockUserRepo) List(ctx context.Context) ([]*model.UserProfile, error) {
	return nil, nil
}

func (m *mockUserRepo) UpdateDriveConfig(ctx context.Context, userID string, cfg *model.DriveConfig) error {
	return nil
}

func (m *mockUserRepo) SetApproved(ctx context.Context, userID string, approved bool) error {
	return nil
}

func (m *mockUserRepo) SetBlocked(ctx context.Context, userID string, blocked bool) error {
	return nil
}

func (m *mockUserRepo) SetRole(ctx context.Context, userID string, role model.Role) error {
	return nil
}

func (m *mockUserRepo) ListNeedingProvision(ctx context.Context) ([]*model.UserProfile, error) {
	return nil, nil
}

// mockIdentityRepo はrepository.IdentityRepositoryのモック実装。
type mockIdentityRepo struct {
	findFn func(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

func (m *mockIdentityRepo) FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
	if m.findFn != nil {
		return m.findFn(ctx, provider, providerUserID)
	}
	return nil, nil
}

// mockSessionRepo はrepository.SessionRepositoryのモック実装。
type mockSessionRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Session, error)
	created    []*model.Session
	deletedIDs []string
}

func (m *mockSessionRepo) Create(ctx context.Context, session *model.Session) error {
	m.created = append(m.created, session)
	return nil
}

func (m *mockSessionRepo) FindByID(ctx context.Context, id string) (*model.Session, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockSessionRepo) FindActiveByUserID(ctx context.Context, userID string) (*model.Session, error) {
	return nil, nil
}

func (m *mockSessionRepo) DeleteByID(ctx context.Context, id string) error {
	m.deletedIDs = append(m.deletedIDs, id)
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

// --- テストヘルパー ---

func sampleUserInfo() *OAuthUserInfo {
	return &OAuthUserInfo{
		ProviderUserID: "google-123",
		Email:          "maria@example.com",
		Name:           "Maria Lopez",
		PhotoURL:       "https://lh3.example.com/photo.jpg",
		Provider:       "google",
		AccessToken:    "ya29.delegated-token",
	}
}

func newTestService(oauth *mockOAuthProvider, userRepo *mockUserRepo, identRepo *mockIdentityRepo, sessionRepo *mockSessionRepo) *Service {
	return NewService(oauth, userRepo, identRepo, sessionRepo, ServiceConfig{SessionMaxAge: 3600})
}

// --- HandleCallback テスト ---

func TestService_HandleCallback_NewUserCreatedUnapproved(t *testing.T) {
	var createdUser *model.UserProfile
	var createdIdentity *model.Identity
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.UserProfile, identity *model.Identity) error {
			createdUser = user
			createdIdentity = identity
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{}
	svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, sessionRepo)

	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}

	if createdUser == nil {
		t.Fatal("new user should be created")
	}
	// 初回サインインは承認待ちで作成される
	if createdUser.Approved {
		t.Error("new user must start unapproved")
	}
	if createdUser.Blocked {
		t.Error("new user must not start blocked")
	}
	if createdUser.Role != model.RoleUser {
		t.Errorf("role = %q, want user", createdUser.Role)
	}
	if createdUser.Email != "maria@example.com" {
		t.Errorf("email = %q", createdUser.Email)
	}
	if createdUser.Drive != nil {
		t.Error("new user has no storage binding yet")
	}

	if createdIdentity == nil {
		t.Fatal("identity should be created alongside the user")
	}
	if createdIdentity.Provider != "google" || createdIdentity.ProviderUserID != "google-123" {
		t.Errorf("identity = %+v", createdIdentity)
	}
	if createdIdentity.UserID != createdUser.ID {
		t.Error("identity must reference the new user")
	}

	if session == nil || session.UserID != createdUser.ID {
		t.Fatal("session should be issued for the new user")
	}
}

func TestService_HandleCallback_ExistingUserReusesProfile(t *testing.T) {
	identRepo := &mockIdentityRepo{
		findFn: func(ctx context.Context, provider, providerUserID string) (*model.Identity, error) {
			return &model.Identity{ID: "ident-1", UserID: "user-1", Provider: provider, ProviderUserID: providerUserID}, nil
		},
	}
	created := false
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.UserProfile, identity *model.Identity) error {
			created = true
			return nil
		},
	}
	sessionRepo := &mockSessionRepo{}
	svc := newTestService(&mockOAuthProvider{}, userRepo, identRepo, sessionRepo)

	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if created {
		t.Error("existing user should not be recreated")
	}
	if session.UserID != "user-1" {
		t.Errorf("session user = %q, want user-1", session.UserID)
	}
}

func TestService_HandleCallback_StoresDelegatedTokenOnSession(t *testing.T) {
	sessionRepo := &mockSessionRepo{}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	session, err := svc.HandleCallback(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}

	if session.AccessToken != "ya29.delegated-token" {
		t.Errorf("session token = %q", session.AccessToken)
	}
	if len(sessionRepo.created) != 1 {
		t.Fatalf("sessions persisted = %d, want 1", len(sessionRepo.created))
	}
	if sessionRepo.created[0].AccessToken != "ya29.delegated-token" {
		t.Error("delegated token must be persisted with the session")
	}
	if !sessionRepo.created[0].ExpiresAt.After(time.Now()) {
		t.Error("session must expire in the future")
	}
}

func TestService_HandleCallback_ExchangeFailure(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			return nil, errors.New("invalid code")
		},
	}
	svc := newTestService(oauth, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})

	if _, err := svc.HandleCallback(context.Background(), "bad-code"); err == nil {
		t.Fatal("expected error when code exchange fails")
	}
}

func TestService_HandleCallback_EmptyNameGetsDefault(t *testing.T) {
	oauth := &mockOAuthProvider{
		exchangeCodeFn: func(ctx context.Context, code string) (*OAuthUserInfo, error) {
			info := sampleUserInfo()
			info.Name = ""
			return info, nil
		},
	}
	var createdUser *model.UserProfile
	userRepo := &mockUserRepo{
		createWithIdentityFn: func(ctx context.Context, user *model.UserProfile, identity *model.Identity) error {
			createdUser = user
			return nil
		},
	}
	svc := newTestService(oauth, userRepo, &mockIdentityRepo{}, &mockSessionRepo{})

	if _, err := svc.HandleCallback(context.Background(), "auth-code"); err != nil {
		t.Fatalf("HandleCallback returned error: %v", err)
	}
	if createdUser.DisplayName != "Usuario" {
		t.Errorf("display name = %q, want Usuario", createdUser.DisplayName)
	}
}

// --- GetCurrentUser テスト ---

func TestService_GetCurrentUser_ValidSession(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "user-1", AccessToken: "tok-1"}, nil
		},
	}
	userRepo := &mockUserRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.UserProfile, error) {
			return &model.UserProfile{ID: id, Email: "maria@example.com"}, nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, userRepo, &mockIdentityRepo{}, sessionRepo)

	user, session, err := svc.GetCurrentUser(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user == nil || user.ID != "user-1" {
		t.Fatalf("user = %+v", user)
	}
	if session == nil || session.AccessToken != "tok-1" {
		t.Fatalf("session = %+v", session)
	}
}

func TestService_GetCurrentUser_UnknownSession(t *testing.T) {
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})

	user, session, err := svc.GetCurrentUser(context.Background(), "missing")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user != nil || session != nil {
		t.Error("unknown session should yield nil user and session")
	}
}

func TestService_GetCurrentUser_OrphanSession(t *testing.T) {
	sessionRepo := &mockSessionRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Session, error) {
			return &model.Session{ID: id, UserID: "gone"}, nil
		},
	}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	user, session, err := svc.GetCurrentUser(context.Background(), "sess-1")
	if err != nil {
		t.Fatalf("GetCurrentUser returned error: %v", err)
	}
	if user != nil || session != nil {
		t.Error("session pointing at a missing user should yield nil")
	}
}

// --- Logout テスト ---

func TestService_Logout(t *testing.T) {
	sessionRepo := &mockSessionRepo{}
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, sessionRepo)

	if err := svc.Logout(context.Background(), "sess-1"); err != nil {
		t.Fatalf("Logout returned error: %v", err)
	}
	if len(sessionRepo.deletedIDs) != 1 || sessionRepo.deletedIDs[0] != "sess-1" {
		t.Errorf("deleted sessions = %v", sessionRepo.deletedIDs)
	}
}

func TestService_Logout_EmptySessionID(t *testing.T) {
	svc := newTestService(&mockOAuthProvider{}, &mockUserRepo{}, &mockIdentityRepo{}, &mockSessionRepo{})

	if err := svc.Logout(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty session ID")
	}
}
