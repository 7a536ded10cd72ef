// Package provision はStorageBindingの確保と自己修復を提供する。
//
// 元の設計ではプロフィール購読のコールバックが副作用として再プロビジョニング
// していたが、ここでは明示的な調整関数として切り出す。プロフィール読み取り
// ハンドラーと定期ワーカーの双方が同じ冪等な契約を通るため、同時実行は
// 冗長な検索を起こすだけで、名前+親スコープのリソースが重複作成される
// ことはない。
package provision

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cobros/internal/metrics"
	"github.com/hitoshi/cobros/internal/model"
	"github.com/hitoshi/cobros/internal/repository"
)

// Provisioner はDrive構造の確保インターフェース。driveパッケージが実装する。
type Provisioner interface {
	Provision(ctx context.Context, token string) (*model.DriveConfig, error)
}

// Service はStorageBindingの確保・永続化を行う。
type Service struct {
	userRepo    repository.UserRepository
	provisioner Provisioner
	collector   metrics.MetricsCollector
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, provisioner Provisioner, collector metrics.MetricsCollector) *Service {
	return &Service{
		userRepo:    userRepo,
		provisioner: provisioner,
		collector:   collector,
	}
}

// EnsureBinding はユーザーのStorageBindingを確保する。
// 既に完全なバインディングがあればそのまま返す。部分的なバインディングは
// 「未設定」とみなし、全体を再プロビジョニングして丸ごと置き換える。
// プロビジョニングは全成功か全失敗で、部分的なバインディングを
// 永続化することはない。
func (s *Service) EnsureBinding(ctx context.Context, user *model.UserProfile, token string) (*model.DriveConfig, error) {
	if user.Drive.Complete() {
		return user.Drive, nil
	}

	cfg, err := s.provisioner.Provision(ctx, token)
	if err != nil {
		s.collector.RecordProvisionAttempt(false)
		return nil, err
	}
	s.collector.RecordProvisionAttempt(true)

	if err := s.userRepo.UpdateDriveConfig(ctx, user.ID, cfg); err != nil {
		return nil, fmt.Errorf("failed to persist storage binding: %w", err)
	}

	slog.Info("storage binding provisioned",
		slog.String("user_id", user.ID),
		slog.String("sheet_id", cfg.SheetID),
	)

	return cfg, nil
}

// Repair は自己修復の1回分を実行する。
// 承認済み・未ブロックでバインディング未設定、かつ委譲クレデンシャルが
// 手元にある場合のみプロビジョニングする。条件を満たさない場合は何もしない。
func (s *Service) Repair(ctx context.Context, user *model.UserProfile, token string) (*model.DriveConfig, error) {
	if !user.CanAct() || user.Drive.Complete() || token == "" {
		return user.Drive, nil
	}
	return s.EnsureBinding(ctx, user, token)
}
