// Package reconcile はStorageBindingの定期調整ジョブを提供する。
// 承認済みでバインディングが欠けたユーザーを定期的に検出し、
// 有効なセッションの委譲クレデンシャルがあれば再プロビジョニングする。
// プロビジョニング契約は冪等なので、ユーザー自身のプロフィール取得に
// よる修復と競合しても重複作成は起こらない。
package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/hitoshi/cobros/internal/model"
	"github.com/hitoshi/cobros/internal/repository"
)

// BindingEnsurer はStorageBinding確保の実行インターフェース。
type BindingEnsurer interface {
	// EnsureBinding はユーザーのStorageBindingを確保する。
	EnsureBinding(ctx context.Context, user *model.UserProfile, token string) (*model.DriveConfig, error)
}

// Scheduler はバインディング調整のスケジューリングを行う。
// ティッカーで対象ユーザーを走査し、1件ずつ順に処理する。
// Google APIのレートを考慮し、並列化はしない。
type Scheduler struct {
	userRepo    repository.UserRepository
	sessionRepo repository.SessionRepository
	ensurer     BindingEnsurer
	logger      *slog.Logger
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	ensurer BindingEnsurer,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		ensurer:     ensurer,
		logger:      logger,
	}
}

// Start は指定間隔のティッカーでスケジューラを起動する。
// コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("バインディング調整スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("調整サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("バインディング調整スケジューラを停止しました")
			return
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				s.logger.Error("調整サイクルの実行に失敗しました",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunOnce はバインディング欠落ユーザーを1回走査し、修復を試みる。
// 有効なセッションが無いユーザーはスキップする（修復にはユーザーの
// 委譲クレデンシャルが必要なため、次回ログイン時に処理される）。
// 個々のユーザーの失敗はサイクル全体を失敗させない。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()

	users, err := s.userRepo.ListNeedingProvision(ctx)
	if err != nil {
		return err
	}

	if len(users) == 0 {
		return nil
	}

	s.logger.Info("調整サイクルを開始します",
		slog.Int("user_count", len(users)),
	)

	repaired := 0
	skipped := 0

	for _, user := range users {
		session, err := s.sessionRepo.FindActiveByUserID(ctx, user.ID)
		if err != nil {
			s.logger.Error("セッションの検索に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if session == nil || session.AccessToken == "" {
			skipped++
			continue
		}

		if _, err := s.ensurer.EnsureBinding(ctx, user, session.AccessToken); err != nil {
			s.logger.Error("バインディングの修復に失敗しました",
				slog.String("user_id", user.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		repaired++
	}

	duration := time.Since(start)
	s.logger.Info("調整サイクルが完了しました",
		slog.Int("user_count", len(users)),
		slog.Int("repaired", repaired),
		slog.Int("skipped", skipped),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
