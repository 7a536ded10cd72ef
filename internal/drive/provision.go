package drive

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/cobros/internal/model"
)

// HeaderInitializer は新規作成されたスプレッドシートに
// ヘッダー/合計行の初期フォーマットを書き込むインターフェース。
// sheetsパッケージが実装する。
type HeaderInitializer interface {
	InitializeHeader(ctx context.Context, token, sheetID string) error
}

// Provisioner はユーザーごとの3階層フォルダとミラースプレッドシートを
// 名前検索→なければ作成の順で確保する。何度呼んでも安全（冪等）。
type Provisioner struct {
	client    *Client
	header    HeaderInitializer
	logger    *slog.Logger
	rootName  string
	sheetName string
}

// NewProvisioner はProvisionerを生成する。
func NewProvisioner(client *Client, header HeaderInitializer, logger *slog.Logger, rootName, sheetName string) *Provisioner {
	return &Provisioner{
		client:    client,
		header:    header,
		logger:    logger,
		rootName:  rootName,
		sheetName: sheetName,
	}
}

// Provision はフォルダ/シート構造を確保してStorageBindingを返す。
// ルート→子フォルダ→シートの順で逐次実行する（子の検索条件は親IDに依存する）。
// どこかで失敗した場合は単一の「初期化失敗」として全体を失敗させ、
// 部分的なバインディングは返さない。途中まで作成されたフォルダが
// 残る可能性はあるが、再実行時に名前検索で再利用される。
// ヘッダーのフォーマットはシートを新規作成した場合のみ行う。
func (p *Provisioner) Provision(ctx context.Context, token string) (*model.DriveConfig, error) {
	rootID, err := p.ensureFolder(ctx, token, p.rootName, "")
	if err != nil {
		return nil, model.NewProvisionFailedError(err.Error())
	}

	cobrosID, err := p.ensureFolder(ctx, token, "Cobros", rootID)
	if err != nil {
		return nil, model.NewProvisionFailedError(err.Error())
	}

	ingresosID, err := p.ensureFolder(ctx, token, "Ingresos", rootID)
	if err != nil {
		return nil, model.NewProvisionFailedError(err.Error())
	}

	sheetID, created, err := p.ensureSpreadsheet(ctx, token, rootID)
	if err != nil {
		return nil, model.NewProvisionFailedError(err.Error())
	}

	if created {
		if err := p.header.InitializeHeader(ctx, token, sheetID); err != nil {
			return nil, model.NewProvisionFailedError(
				fmt.Sprintf("header format: %s", err.Error()))
		}
		p.logger.Info("spreadsheet created and formatted",
			slog.String("sheet_id", sheetID),
		)
	}

	cfg := &model.DriveConfig{
		RootID:     rootID,
		CobrosID:   cobrosID,
		IngresosID: ingresosID,
		SheetID:    sheetID,
	}

	p.logger.Info("drive structure provisioned",
		slog.String("root_id", rootID),
		slog.Bool("sheet_created", created),
	)

	return cfg, nil
}

// ensureFolder は名前（+親）でフォルダを検索し、なければ作成してIDを返す。
func (p *Provisioner) ensureFolder(ctx context.Context, token, name, parentID string) (string, error) {
	id, err := p.client.FindFolder(ctx, token, name, parentID)
	if err != nil {
		return "", fmt.Errorf("find folder %q: %w", name, err)
	}
	if id != "" {
		return id, nil
	}

	id, err = p.client.CreateFolder(ctx, token, name, parentID)
	if err != nil {
		return "", fmt.Errorf("create folder %q: %w", name, err)
	}
	return id, nil
}

// ensureSpreadsheet はミラースプレッドシートを検索し、なければ作成する。
// 第2戻り値は新規作成したかどうか（初期フォーマットの要否）。
func (p *Provisioner) ensureSpreadsheet(ctx context.Context, token, rootID string) (string, bool, error) {
	id, err := p.client.FindSpreadsheet(ctx, token, p.sheetName, rootID)
	if err != nil {
		return "", false, fmt.Errorf("find spreadsheet %q: %w", p.sheetName, err)
	}
	if id != "" {
		return id, false, nil
	}

	id, err = p.client.CreateSpreadsheet(ctx, token, p.sheetName, rootID)
	if err != nil {
		return "", false, fmt.Errorf("create spreadsheet %q: %w", p.sheetName, err)
	}
	return id, true, nil
}
